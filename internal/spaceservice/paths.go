package spaceservice

import (
	"fmt"
	"path"
	"strings"

	"github.com/starford/gtdspace/internal/apperr"
)

// validPath accepts space-relative Markdown paths outside hidden directories.
func validPath(p string) error {
	if p == "" {
		return fmt.Errorf("spaceservice: path is required: %w", apperr.ErrInvalid)
	}
	if !strings.HasSuffix(strings.ToLower(p), ".md") {
		return fmt.Errorf("spaceservice: %s is not a markdown file: %w", p, apperr.ErrInvalid)
	}
	if path.IsAbs(p) || strings.Contains(p, `\`) {
		return fmt.Errorf("spaceservice: %s must be relative to the space: %w", p, apperr.ErrInvalid)
	}
	for _, part := range strings.Split(path.Clean(p), "/") {
		if strings.HasPrefix(part, ".") {
			return fmt.Errorf("spaceservice: %s: %w", p, apperr.ErrInvalid)
		}
	}
	return nil
}
