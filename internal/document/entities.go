package document

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/starford/gtdspace/internal/field"
	"github.com/starford/gtdspace/internal/marker"
)

// ErrUnknownEntity is returned by Build for an entity without a builder.
var ErrUnknownEntity = errors.New("document: unknown entity")

var optionalHorizons = map[string]bool{"areas": true, "goals": true, "vision": true, "purpose": true}

// HabitFields describes a habit document.
type HabitFields struct {
	Base
	Refs
	Status    *bool   `json:"status,omitempty"`
	Frequency string  `json:"frequency,omitempty"`
	FocusTime string  `json:"focusTime,omitempty"`
	Notes     *string `json:"notes,omitempty"`
}

// BuildHabit assembles a habit: Status, Frequency, Focus Time, reference
// groups, Created, Notes and the History log.
func BuildHabit(f HabitFields) string {
	b := newBuilder(f.Base, "Untitled Habit")

	checked := false
	if existing, ok := b.o.fieldIn("status", marker.Checkbox); ok {
		checked = existing.(field.Checkbox).Checked
	}
	if f.Status != nil {
		checked = *f.Status
	}
	b.section("status", "Status", field.Checkbox{Type: "habit-status", Checked: checked}.Marker())
	b.selectSection("frequency", "Frequency", "habit-frequency", f.Frequency)
	b.dateSection("focus_time", "Focus Time", "focus_date_time", f.FocusTime, true)
	b.refSections(f.Refs, []string{"projects", "areas", "goals", "vision", "purpose"},
		map[string]bool{"projects": true, "areas": true, "goals": true, "vision": true, "purpose": true})
	b.createdSection(f.Created)
	b.textSection("notes", "Notes", f.Notes, "")

	history, ok := b.o.text("history")
	if !ok {
		history = historyHeader + "\n" + NewHistoryRow(now(), false, "Created", "Initial habit creation").String()
	}
	b.section("history", HistoryHeading, history)
	return b.render()
}

// AreaFields describes an area of focus.
type AreaFields struct {
	Base
	Refs
	Status        string  `json:"status,omitempty"`
	ReviewCadence string  `json:"reviewCadence,omitempty"`
	Description   *string `json:"description,omitempty"`
}

// BuildArea assembles an area of focus.
func BuildArea(f AreaFields) string {
	b := newBuilder(f.Base, "Untitled Area")
	b.selectSection("status", "Status", "area-status", f.Status)
	b.selectSection("review_cadence", "Review Cadence", "area-review-cadence", f.ReviewCadence)
	b.refSections(f.Refs, []string{"projects", "areas", "goals", "vision", "purpose"}, optionalHorizons)
	b.createdSection(f.Created)
	b.textSection("description", "Description", f.Description, "Describe the standard you want to maintain in this area.")
	return b.render()
}

// GoalFields describes a goal.
type GoalFields struct {
	Base
	Refs
	Status      string  `json:"status,omitempty"`
	TargetDate  string  `json:"targetDate,omitempty"`
	Description *string `json:"description,omitempty"`
}

// BuildGoal assembles a goal: Status, Target Date, Projects and Areas
// references, optional Vision and Purpose references, Created, Description.
func BuildGoal(f GoalFields) string {
	b := newBuilder(f.Base, "Untitled Goal")
	b.selectSection("status", "Status", "goal-status", f.Status)
	b.dateSection("target_date", "Target Date", "goal-target-date", f.TargetDate, true)
	b.refSections(f.Refs, []string{"projects", "areas", "vision", "purpose"},
		map[string]bool{"vision": true, "purpose": true})
	b.createdSection(f.Created)
	b.textSection("description", "Description", f.Description, "Describe the outcome and why it matters.")
	return b.render()
}

// VisionFields describes a vision.
type VisionFields struct {
	Base
	Refs
	Horizon   string  `json:"horizon,omitempty"`
	Narrative *string `json:"narrative,omitempty"`
}

// BuildVision assembles a vision.
func BuildVision(f VisionFields) string {
	b := newBuilder(f.Base, "Untitled Vision")
	b.selectSection("horizon", "Horizon", "vision-horizon", f.Horizon)
	b.refSections(f.Refs, []string{"projects", "goals", "areas", "purpose"},
		map[string]bool{"purpose": true})
	b.createdSection(f.Created)
	b.textSection("narrative", "Narrative", f.Narrative, "Describe what success looks like at this horizon.")
	return b.render()
}

// ProjectFields describes a project README.
type ProjectFields struct {
	Base
	Refs
	Description *string  `json:"description,omitempty"`
	Status      string   `json:"status,omitempty"`
	DueDate     string   `json:"dueDate,omitempty"`
	References  []string `json:"references"`
	Notes       *string  `json:"notes,omitempty"`
}

// BuildProject assembles a project README.
func BuildProject(f ProjectFields) string {
	b := newBuilder(f.Base, "Untitled Project")
	b.textSection("description", "Description", f.Description, "Describe the desired outcome of this project.")
	b.selectSection("status", "Status", "project-status", f.Status)
	b.dateSection("due_date", "Due Date", "due_date", f.DueDate, true)
	b.createdSection(f.Created)
	b.refSection("references", f.References, false)
	b.refSections(f.Refs, []string{"areas", "goals", "vision", "purpose"}, optionalHorizons)
	b.textSection("notes", "Notes", f.Notes, "")
	b.textSection("actions", "Actions", nil, field.ListView{List: "actions-list"}.Marker())
	return b.render()
}

// ActionFields describes a next action.
type ActionFields struct {
	Base
	Status     string   `json:"status,omitempty"`
	FocusDate  string   `json:"focusDate,omitempty"`
	DueDate    string   `json:"dueDate,omitempty"`
	Effort     string   `json:"effort,omitempty"`
	Contexts   []string `json:"contexts"`
	References []string `json:"references"`
	Notes      *string  `json:"notes,omitempty"`
}

// BuildAction assembles an action.
func BuildAction(f ActionFields) string {
	b := newBuilder(f.Base, "Untitled Action")
	b.selectSection("status", "Status", "status", f.Status)
	b.dateSection("focus_date", "Focus Date", "focus_date_time", f.FocusDate, true)
	b.dateSection("due_date", "Due Date", "due_date", f.DueDate, true)
	b.selectSection("effort", "Effort", "effort", f.Effort)

	contexts := f.Contexts
	if contexts == nil {
		if existing, ok := b.o.fieldIn("contexts", marker.MultiSelect); ok {
			contexts = existing.(field.MultiSelect).Values
		}
	}
	ms := field.NewMultiSelect("contexts", contexts)
	if len(ms.Values) > 0 {
		b.section("contexts", "Contexts", ms.Marker())
	} else {
		b.section("contexts", "Contexts", "")
	}

	b.refSection("references", f.References, false)
	b.textSection("notes", "Notes", f.Notes, "")
	b.createdSection(f.Created)
	return b.render()
}

// Horizon index pages. Purpose & Principles has no list marker.
var horizonPages = map[string]struct {
	title   string
	list    string
	heading string
}{
	"areas":    {"Areas of Focus", "areas-list", "Areas List"},
	"goals":    {"Goals", "goals-list", "Goals List"},
	"vision":   {"Vision", "visions-list", "Visions List"},
	"purpose":  {"Purpose & Principles", "", ""},
	"projects": {"Projects", "projects-list", "Projects List"},
	"habits":   {"Habits", "habits-list", "Habits List"},
}

// HorizonFields describes a horizon index page.
type HorizonFields struct {
	Base
	Horizon     string  `json:"horizon"`
	Description *string `json:"description,omitempty"`
}

// BuildHorizonPage assembles an index page listing every document of a
// horizon through its list marker.
func BuildHorizonPage(f HorizonFields) (string, error) {
	page, ok := horizonPages[f.Horizon]
	if !ok {
		return "", fmt.Errorf("%w: horizon %q", ErrUnknownEntity, f.Horizon)
	}
	b := newBuilder(f.Base, page.title)
	b.textSection("description", "Description", f.Description, "")
	if page.list != "" {
		b.section("list", page.heading, field.ListView{List: page.list}.Marker())
	}
	return b.render(), nil
}

// Entities lists the entity names Build accepts.
var Entities = []string{"habit", "area", "goal", "vision", "project", "action", "horizon"}

// Build decodes JSON fields for entity and assembles the document. existing
// replaces the Existing field when non-empty.
func Build(entity string, data []byte, existing string) (string, error) {
	if len(data) == 0 {
		data = []byte("{}")
	}
	decode := func(v any) error {
		if err := json.Unmarshal(data, v); err != nil {
			return fmt.Errorf("document: decode %s fields: %w", entity, err)
		}
		return nil
	}
	switch entity {
	case "habit":
		var f HabitFields
		if err := decode(&f); err != nil {
			return "", err
		}
		f.Existing = pick(existing, f.Existing)
		return BuildHabit(f), nil
	case "area":
		var f AreaFields
		if err := decode(&f); err != nil {
			return "", err
		}
		f.Existing = pick(existing, f.Existing)
		return BuildArea(f), nil
	case "goal":
		var f GoalFields
		if err := decode(&f); err != nil {
			return "", err
		}
		f.Existing = pick(existing, f.Existing)
		return BuildGoal(f), nil
	case "vision":
		var f VisionFields
		if err := decode(&f); err != nil {
			return "", err
		}
		f.Existing = pick(existing, f.Existing)
		return BuildVision(f), nil
	case "project":
		var f ProjectFields
		if err := decode(&f); err != nil {
			return "", err
		}
		f.Existing = pick(existing, f.Existing)
		return BuildProject(f), nil
	case "action":
		var f ActionFields
		if err := decode(&f); err != nil {
			return "", err
		}
		f.Existing = pick(existing, f.Existing)
		return BuildAction(f), nil
	case "horizon":
		var f HorizonFields
		if err := decode(&f); err != nil {
			return "", err
		}
		f.Existing = pick(existing, f.Existing)
		return BuildHorizonPage(f)
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownEntity, entity)
}

func pick(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
