package index

import (
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/starford/gtdspace/internal/apperr"
	"github.com/starford/gtdspace/internal/checksum"
	"github.com/starford/gtdspace/internal/metadata"
	"github.com/starford/gtdspace/internal/models"
	"github.com/starford/gtdspace/internal/storage"
)

// Event operations reported by the indexer.
const (
	OpCreated = "created"
	OpUpdated = "updated"
	OpDeleted = "deleted"
)

// Event describes one index mutation.
type Event struct {
	Op   string `json:"op"`
	Path string `json:"path"`
	// Changes holds the metadata keys that changed; nil values were removed.
	Changes map[string]*metadata.Value `json:"changes,omitempty"`
}

// EventCallback is called after an index mutation.
type EventCallback func(Event)

// Indexer keeps the index in step with the space files.
type Indexer struct {
	db       *DB
	store    storage.Provider
	registry *metadata.Registry
	logger   *slog.Logger
	now      func() time.Time
}

// NewIndexer returns an Indexer extracting metadata with registry.
func NewIndexer(db *DB, store storage.Provider, registry *metadata.Registry, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{db: db, store: store, registry: registry, logger: logger, now: time.Now}
}

// Sync walks the space and brings the index up to date:
//   - new/changed files are extracted and upserted
//   - files removed from disk are deleted from the index
func (ix *Indexer) Sync() error {
	metas, err := ix.store.List("")
	if err != nil {
		return err
	}

	checksums, err := ix.db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == m.Checksum {
			continue
		}

		data, err := ix.store.Read(m.Path)
		if err != nil {
			ix.logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if _, _, err := ix.IndexFile(m.Path, data); err != nil {
			ix.logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			ix.logger.Debug("sync: indexed", slog.String("path", m.Path))
		}
	}

	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := ix.db.DeleteDocument(p); err != nil {
				ix.logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				ix.logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// IndexFile extracts metadata from data and upserts the document. It
// reports false when the stored checksum already matches.
func (ix *Indexer) IndexFile(p string, data []byte) (Event, bool, error) {
	sum := checksum.Sum(data)
	prev := metadata.Metadata{}
	op := OpCreated
	row, err := ix.db.GetDocument(p)
	switch {
	case err == nil:
		if row.Checksum == sum {
			return Event{}, false, nil
		}
		prev, op = row.Metadata, OpUpdated
	case !errors.Is(err, apperr.ErrNotFound):
		return Event{}, false, err
	}

	text := string(data)
	md := ix.registry.Extract(text)
	title := md.Get("title")
	if title == "" {
		title = strings.TrimSuffix(path.Base(p), ".md")
	}
	next := DocumentRow{
		Path:      p,
		Kind:      models.KindFromPath(p),
		Title:     title,
		Status:    models.StatusOf(md),
		Checksum:  sum,
		Metadata:  md,
		UpdatedAt: ix.now(),
	}
	if err := ix.db.UpsertDocument(next, text, models.ReferencesOf(p, md)); err != nil {
		return Event{}, false, fmt.Errorf("index: %s: %w", p, err)
	}
	return Event{Op: op, Path: p, Changes: metadata.Changes(prev, md)}, true, nil
}

// Remove deletes a document from the index.
func (ix *Indexer) Remove(p string) (Event, error) {
	if err := ix.db.DeleteDocument(p); err != nil {
		return Event{}, err
	}
	return Event{Op: OpDeleted, Path: p}, nil
}
