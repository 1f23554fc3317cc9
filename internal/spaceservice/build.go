package spaceservice

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strconv"

	"github.com/gosimple/slug"

	"github.com/starford/gtdspace/internal/apperr"
	"github.com/starford/gtdspace/internal/document"
	"github.com/starford/gtdspace/internal/models"
)

// BuildRequest asks for a canonical entity document.
type BuildRequest struct {
	// Fields are the entity fields as JSON (see document.GoalFields, ...).
	Fields json.RawMessage `json:"fields"`
	// Path names an existing document to rebuild, or the target of a new one.
	Path string `json:"path,omitempty"`
	// Write stores the result in the space.
	Write bool `json:"write"`
}

// BuildResult is the generated document.
type BuildResult struct {
	Path     string           `json:"path,omitempty"`
	Content  string           `json:"content"`
	Document *models.Document `json:"document,omitempty"`
}

var entityKinds = map[string]models.Kind{
	"habit":   models.KindHabit,
	"area":    models.KindArea,
	"goal":    models.KindGoal,
	"vision":  models.KindVision,
	"project": models.KindProject,
	"action":  models.KindAction,
}

var horizonDirs = map[string]string{
	"areas":    models.DirAreas,
	"goals":    models.DirGoals,
	"vision":   models.DirVision,
	"purpose":  models.DirPurpose,
	"projects": models.DirProjects,
	"habits":   models.DirHabits,
}

// BuildDocument assembles an entity document, merging an existing document
// at req.Path when there is one, and optionally writes it.
func (s *Service) BuildDocument(_ context.Context, entity string, req BuildRequest) (*BuildResult, error) {
	var existing string
	if req.Path != "" {
		if err := validPath(req.Path); err != nil {
			return nil, err
		}
		ok, err := s.store.Exists(req.Path)
		if err != nil {
			return nil, err
		}
		if ok {
			data, err := s.read(req.Path)
			if err != nil {
				return nil, err
			}
			existing = string(data)
		}
	}

	content, err := document.Build(entity, req.Fields, existing)
	if err != nil {
		return nil, fmt.Errorf("spaceservice: build %s: %w: %w", entity, apperr.ErrInvalid, err)
	}
	res := &BuildResult{Path: req.Path, Content: content}
	if !req.Write {
		return res, nil
	}

	target := req.Path
	if target == "" {
		if target, err = s.newPath(entity, content, req.Fields); err != nil {
			return nil, err
		}
	}
	doc, err := s.write(target, []byte(content))
	if err != nil {
		return nil, err
	}
	res.Path, res.Document = target, doc
	return res, nil
}

// newPath picks a free file name for a new entity document from its title.
func (s *Service) newPath(entity, content string, fields json.RawMessage) (string, error) {
	if entity == "horizon" {
		var f struct {
			Horizon string `json:"horizon"`
		}
		_ = json.Unmarshal(fields, &f)
		p := path.Join(horizonDirs[f.Horizon], "README.md")
		ok, err := s.store.Exists(p)
		if err != nil {
			return "", err
		}
		if ok {
			return "", fmt.Errorf("spaceservice: %s: %w", p, apperr.ErrAlreadyExists)
		}
		return p, nil
	}

	kind, ok := entityKinds[entity]
	if !ok {
		return "", fmt.Errorf("spaceservice: entity %q: %w", entity, apperr.ErrInvalid)
	}
	if kind == models.KindAction {
		return "", fmt.Errorf("spaceservice: an action needs the path of its project folder: %w", apperr.ErrInvalid)
	}

	name := slug.Make(s.registry.Extract(content).Get("title"))
	if name == "" {
		name = "untitled"
	}
	for i := 1; ; i++ {
		candidate := name
		if i > 1 {
			candidate += "-" + strconv.Itoa(i)
		}
		p := path.Join(models.Dir(kind), candidate+".md")
		if kind == models.KindProject {
			p = path.Join(models.DirProjects, candidate, "README.md")
		}
		ok, err := s.store.Exists(p)
		if err != nil {
			return "", err
		}
		if !ok {
			return p, nil
		}
	}
}
