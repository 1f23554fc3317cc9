package spaceservice

import (
	"context"
	"fmt"
	"strconv"

	"github.com/starford/gtdspace/internal/apperr"
	"github.com/starford/gtdspace/internal/checksum"
	"github.com/starford/gtdspace/internal/document"
	"github.com/starford/gtdspace/internal/field"
	"github.com/starford/gtdspace/internal/models"
	"github.com/starford/gtdspace/internal/reconcile"
)

// FieldUpdate replaces one field marker in place.
type FieldUpdate struct {
	// Type is the field block type: "singleselect", "checkbox",
	// "areas-references", ...
	Type  string         `json:"type"`
	Props map[string]any `json:"props"`
	// Occurrence selects among markers of the same slot, zero based.
	Occurrence int `json:"occurrence"`
}

// UpdateField rewrites a single marker without touching the rest of the
// document. Toggling a habit status also appends a History row.
func (s *Service) UpdateField(_ context.Context, path string, u FieldUpdate, ifMatch string) (*models.Document, error) {
	f, ok := field.FromProps(u.Type, u.Props)
	if !ok {
		return nil, fmt.Errorf("spaceservice: field type %q: %w", u.Type, apperr.ErrInvalid)
	}
	data, err := s.read(path)
	if err != nil {
		return nil, err
	}
	if !checksum.Matches(ifMatch, data) {
		return nil, fmt.Errorf("spaceservice: %s: %w", path, apperr.ErrConflict)
	}

	text, ok := reconcile.PatchField(string(data), f, u.Occurrence)
	if !ok {
		return nil, fmt.Errorf("spaceservice: %s has no %s field #%d: %w", path, field.Identity(f), u.Occurrence, apperr.ErrNotFound)
	}

	if cb, isBox := f.(field.Checkbox); isBox && cb.Type == "habit-status" && models.KindFromPath(path) == models.KindHabit {
		before := s.registry.Extract(string(data)).Get("habitStatus")
		if before != strconv.FormatBool(cb.Checked) {
			row := document.NewHistoryRow(s.now(), cb.Checked, "Manual", "Changed from the editor")
			text = document.AppendHistory(text, row)
		}
	}

	s.logger.Debug("spaceservice: field updated", "path", path, "field", field.Identity(f))
	return s.write(path, []byte(text))
}
