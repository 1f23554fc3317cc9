package spaceservice

import (
	"context"
	"fmt"
	"log/slog"
	"path"

	"github.com/gosimple/slug"

	"github.com/starford/gtdspace/internal/document"
	"github.com/starford/gtdspace/internal/models"
)

// SpaceDirs are the top-level directories of a new space.
var SpaceDirs = []string{
	models.DirAreas,
	models.DirGoals,
	models.DirVision,
	models.DirPurpose,
	models.DirProjects,
	models.DirHabits,
	models.DirSomeday,
	models.DirCabinet,
}

// WelcomePath is the landing document written by InitSpace.
const WelcomePath = "Welcome to GTD Space.md"

// InitOptions selects what InitSpace writes.
type InitOptions struct {
	// Examples adds sample habits, a project with actions, a Someday idea
	// and a Cabinet note.
	Examples bool `json:"examples"`
}

// InitResult lists the documents InitSpace wrote and the ones it left alone
// because they already existed.
type InitResult struct {
	Created []string `json:"created"`
	Skipped []string `json:"skipped"`
}

type seedDoc struct {
	path    string
	content string
}

var horizonDescriptions = map[string]string{
	"areas":    "Ongoing roles and responsibilities to keep in balance (20,000 ft).",
	"goals":    "Outcomes to reach in the next one to two years (30,000 ft).",
	"vision":   "Where life and work are heading in three to five years (40,000 ft).",
	"purpose":  "Why any of this matters, and the values that guide each decision (50,000 ft).",
	"projects": "Every outcome that needs more than one action to finish.",
	"habits":   "Recurring routines with their status history.",
}

var horizonOrder = []string{"areas", "goals", "vision", "purpose", "projects", "habits"}

const welcomeText = `# Welcome to GTD Space

This space keeps every horizon of Getting Things Done in plain Markdown.

## Horizons
- **Areas of Focus** hold ongoing responsibilities.
- **Goals** are one to two year objectives.
- **Vision** describes the three to five year picture.
- **Purpose & Principles** is the foundation for everything else.

## Projects
Each project is a folder under Projects with a README.md and one file per action.

## Habits
Each habit tracks its frequency, a status checkbox and a History table.

## Someday Maybe
Ideas worth keeping that are not commitments yet.

## Cabinet
Reference material that needs no action.
`

const somedayText = `# Learn a New Language

## Idea
Learn conversational Spanish before the next long trip.

## Why it matters
- Travel with more confidence
- Talk with people in their own language

## Next steps when ready
- [ ] Compare apps, classes and tutors
- [ ] Find a conversation partner
`

const cabinetText = `# GTD Principles Reference

## Key Points
- **Capture** what has your attention in a trusted system.
- **Clarify** what each item means and what to do about it.
- **Organize** the results where they belong.
- **Reflect** in a weekly review.
- **Engage** with confidence.

## The Two-Minute Rule
Anything that takes less than two minutes is done now instead of tracked.
`

// InitSpace creates the space directories and writes the horizon pages
// and the welcome document. Documents that already exist are kept as they
// are, so running it on a populated space is safe.
func (s *Service) InitSpace(ctx context.Context, opts InitOptions) (*InitResult, error) {
	for _, dir := range SpaceDirs {
		if err := s.store.Mkdir(dir); err != nil {
			return nil, err
		}
	}

	docs := []seedDoc{{WelcomePath, welcomeText}}
	for _, h := range horizonOrder {
		desc := horizonDescriptions[h]
		content, err := document.BuildHorizonPage(document.HorizonFields{Horizon: h, Description: &desc})
		if err != nil {
			return nil, fmt.Errorf("spaceservice: seed %s page: %w", h, err)
		}
		docs = append(docs, seedDoc{path.Join(horizonDirs[h], "README.md"), content})
	}
	if opts.Examples {
		docs = append(docs, exampleDocs()...)
	}

	res := &InitResult{Created: []string{}, Skipped: []string{}}
	for _, d := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ok, err := s.store.Exists(d.path)
		if err != nil {
			return nil, err
		}
		if ok {
			res.Skipped = append(res.Skipped, d.path)
			continue
		}
		if _, err := s.write(d.path, []byte(d.content)); err != nil {
			return nil, err
		}
		res.Created = append(res.Created, d.path)
	}
	s.logger.Info("spaceservice: space initialised",
		slog.Int("created", len(res.Created)), slog.Int("skipped", len(res.Skipped)))
	return res, nil
}

func exampleDocs() []seedDoc {
	habit := func(title, frequency, notes string) seedDoc {
		content := document.BuildHabit(document.HabitFields{
			Base:      document.Base{Title: title},
			Frequency: frequency,
			Notes:     &notes,
		})
		return seedDoc{path.Join(models.DirHabits, slug.Make(title)+".md"), content}
	}

	projectTitle := "Organize Home Office"
	projectDir := path.Join(models.DirProjects, slug.Make(projectTitle))
	readme := path.Join(projectDir, "README.md")
	desc := "A tidy desk and a filing system that makes paperwork painless."
	project := document.BuildProject(document.ProjectFields{
		Base:        document.Base{Title: projectTitle},
		Description: &desc,
		Status:      "in-progress",
	})
	action := func(title, status, effort string, contexts ...string) seedDoc {
		content := document.BuildAction(document.ActionFields{
			Base:       document.Base{Title: title},
			Status:     status,
			Effort:     effort,
			Contexts:   contexts,
			References: []string{readme},
		})
		return seedDoc{path.Join(projectDir, slug.Make(title)+".md"), content}
	}

	return []seedDoc{
		habit("Morning Review", "daily", "Check the calendar and pick the three most important actions."),
		habit("Weekly Review", "weekly", "Empty the inbox, update project lists and look at Someday Maybe."),
		{readme, project},
		action("Clear the desk", "in-progress", "small", "home"),
		action("Buy a filing cabinet", "waiting", "medium", "errands"),
		{path.Join(models.DirSomeday, slug.Make("Learn a New Language")+".md"), somedayText},
		{path.Join(models.DirCabinet, slug.Make("GTD Principles Reference")+".md"), cabinetText},
	}
}
