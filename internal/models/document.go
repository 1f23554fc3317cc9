// Package models defines the domain types for a GTD space.
package models

import (
	"path"
	"sort"
	"strings"
	"time"

	"github.com/starford/gtdspace/internal/metadata"
)

// Kind is the entity type of a space document.
type Kind string

const (
	KindProject Kind = "project"
	KindAction  Kind = "action"
	KindHabit   Kind = "habit"
	KindArea    Kind = "area"
	KindGoal    Kind = "goal"
	KindVision  Kind = "vision"
	KindPurpose Kind = "purpose"
	KindSomeday Kind = "someday"
	KindCabinet Kind = "cabinet"
	KindHorizon Kind = "horizon"
	KindOther   Kind = "document"
)

// Top-level directories of a space.
const (
	DirProjects = "Projects"
	DirHabits   = "Habits"
	DirAreas    = "Areas of Focus"
	DirGoals    = "Goals"
	DirVision   = "Vision"
	DirPurpose  = "Purpose & Principles"
	DirSomeday  = "Someday Maybe"
	DirCabinet  = "Cabinet"
)

var dirKinds = map[string]Kind{
	DirHabits:  KindHabit,
	DirAreas:   KindArea,
	DirGoals:   KindGoal,
	DirVision:  KindVision,
	DirPurpose: KindPurpose,
	DirSomeday: KindSomeday,
	DirCabinet: KindCabinet,
}

// Dir returns the directory that holds documents of k, or "".
func Dir(k Kind) string {
	if k == KindProject || k == KindAction {
		return DirProjects
	}
	for d, dk := range dirKinds {
		if dk == k {
			return d
		}
	}
	return ""
}

// KindFromPath derives the entity kind from a space-relative path.
// "Projects/X/README.md" is a project, other files in a project folder are
// actions, and a README.md at the top of a horizon directory is its index page.
func KindFromPath(p string) Kind {
	parts := strings.Split(path.Clean(strings.ReplaceAll(p, `\`, "/")), "/")
	if len(parts) < 2 {
		return KindOther
	}
	base := parts[len(parts)-1]
	if parts[0] == DirProjects {
		switch {
		case len(parts) == 2 && strings.EqualFold(base, "README.md"):
			return KindHorizon
		case len(parts) == 3 && strings.EqualFold(base, "README.md"):
			return KindProject
		case len(parts) == 3:
			return KindAction
		}
		return KindOther
	}
	k, ok := dirKinds[parts[0]]
	if !ok {
		return KindOther
	}
	if len(parts) == 2 && strings.EqualFold(base, "README.md") && k != KindCabinet && k != KindSomeday {
		return KindHorizon
	}
	return k
}

// Document is a Markdown file in the space with its derived metadata.
type Document struct {
	Path     string            `json:"path"`
	Kind     Kind              `json:"kind"`
	Title    string            `json:"title,omitempty"`
	Status   string            `json:"status,omitempty"`
	Content  string            `json:"content"`
	Metadata metadata.Metadata `json:"metadata"`
	// ReferencedBy lists documents whose reference markers point here.
	ReferencedBy []string  `json:"referenced_by,omitempty"`
	Checksum     string    `json:"checksum"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// DocumentMetadata is a lightweight representation returned by list operations.
type DocumentMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Summary is an indexed document without its body.
type Summary struct {
	Path      string    `json:"path"`
	Kind      Kind      `json:"kind"`
	Title     string    `json:"title"`
	Status    string    `json:"status,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Reference is a directed edge from a reference marker to a document.
type Reference struct {
	Source string `json:"source"`
	Target string `json:"target"`
	// Field is the metadata key of the marker ("references", "areasReferences").
	Field string `json:"field"`
}

// StatusOf picks the lifecycle status reported for a document.
func StatusOf(md metadata.Metadata) string {
	return md.First("status", "projectStatus", "goalStatus", "areaStatus", "habitStatus")
}

// ReferencesOf returns the reference edges declared by source.
func ReferencesOf(source string, md metadata.Metadata) []Reference {
	var out []Reference
	for key, v := range md {
		if key != "references" && !strings.HasSuffix(key, "References") {
			continue
		}
		for _, target := range v.Strings() {
			out = append(out, Reference{Source: source, Target: target, Field: key})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Field != out[j].Field {
			return out[i].Field < out[j].Field
		}
		return out[i].Target < out[j].Target
	})
	return out
}
