// Package spaceservice coordinates storage, the index, metadata extraction,
// block reconciliation and document builders for a GTD space.
package spaceservice

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/starford/gtdspace/internal/apperr"
	"github.com/starford/gtdspace/internal/blocks"
	"github.com/starford/gtdspace/internal/checksum"
	"github.com/starford/gtdspace/internal/index"
	"github.com/starford/gtdspace/internal/metadata"
	"github.com/starford/gtdspace/internal/models"
	"github.com/starford/gtdspace/internal/reconcile"
	"github.com/starford/gtdspace/internal/storage"
)

// Publisher receives document change notifications. *sse.Broker satisfies it.
type Publisher interface {
	PublishDocumentEvent(op, path string, changes map[string]*metadata.Value)
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher sets the change notification sink.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.pub = p }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithClock replaces time.Now, used for History rows.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service coordinates storage and index operations.
type Service struct {
	store    storage.Provider
	db       *index.DB
	indexer  *index.Indexer
	registry *metadata.Registry
	recon    *reconcile.Reconciler
	pub      Publisher
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates a space service.
func NewService(store storage.Provider, db *index.DB, registry *metadata.Registry, recon *reconcile.Reconciler, opts ...Option) *Service {
	s := &Service{
		store:    store,
		db:       db,
		registry: registry,
		recon:    recon,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	s.indexer = index.NewIndexer(db, store, registry, s.logger)
	return s
}

// Indexer returns the indexer shared with sync and the watcher.
func (s *Service) Indexer() *index.Indexer { return s.indexer }

// Registry returns the metadata extractor registry.
func (s *Service) Registry() *metadata.Registry { return s.registry }

// GetDocument reads a document and enriches it with metadata and reverse references.
func (s *Service) GetDocument(_ context.Context, path string) (*models.Document, error) {
	data, err := s.read(path)
	if err != nil {
		return nil, err
	}
	return s.detail(path, data)
}

// CreateDocument writes a new document and indexes it.
func (s *Service) CreateDocument(_ context.Context, path string, content []byte) (*models.Document, error) {
	if err := validPath(path); err != nil {
		return nil, err
	}
	ok, err := s.store.Exists(path)
	if err != nil {
		return nil, err
	}
	if ok {
		return nil, fmt.Errorf("spaceservice: %s: %w", path, apperr.ErrAlreadyExists)
	}
	return s.write(path, content)
}

// SaveDocument replaces the content of an existing document. A non-empty
// ifMatch must equal the current checksum.
func (s *Service) SaveDocument(_ context.Context, path string, content []byte, ifMatch string) (*models.Document, error) {
	existing, err := s.read(path)
	if err != nil {
		return nil, err
	}
	if !checksum.Matches(ifMatch, existing) {
		return nil, fmt.Errorf("spaceservice: %s: %w", path, apperr.ErrConflict)
	}
	return s.write(path, content)
}

// DeleteDocument removes a document from storage and index.
func (s *Service) DeleteDocument(_ context.Context, path string) error {
	if err := validPath(path); err != nil {
		return err
	}
	if err := s.store.Delete(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("spaceservice: %s: %w", path, apperr.ErrNotFound)
		}
		return err
	}
	ev, err := s.indexer.Remove(path)
	if err != nil {
		return err
	}
	s.publish(ev)
	return nil
}

// Blocks is a document rendered as editor blocks.
type Blocks struct {
	Path     string        `json:"path"`
	Checksum string        `json:"checksum"`
	Blocks   []blocks.Node `json:"blocks"`
}

// GetBlocks returns the reconciled block tree of a document.
func (s *Service) GetBlocks(_ context.Context, path string) (*Blocks, error) {
	data, err := s.read(path)
	if err != nil {
		return nil, err
	}
	bs := s.recon.Deserialize(string(data))
	return &Blocks{Path: path, Checksum: checksum.Sum(data), Blocks: blocks.Nodes(bs)}, nil
}

// SaveBlocks serializes an edited block tree back to Markdown and saves it.
func (s *Service) SaveBlocks(ctx context.Context, path string, nodes []blocks.Node, ifMatch string) (*models.Document, error) {
	text := s.recon.Serialize(blocks.FromNodes(nodes))
	return s.SaveDocument(ctx, path, []byte(text), ifMatch)
}

// ListQuery filters ListDocuments.
type ListQuery struct {
	Kind   models.Kind
	Status string
	Limit  int
	Offset int
}

// ListDocuments returns indexed documents matching q and the total count.
func (s *Service) ListDocuments(_ context.Context, q ListQuery) ([]models.Summary, int, error) {
	rows, total, err := s.db.ListDocuments(index.ListFilter{Kind: q.Kind, Status: q.Status, Limit: q.Limit, Offset: q.Offset})
	if err != nil {
		return nil, 0, err
	}
	items := make([]models.Summary, len(rows))
	for i, r := range rows {
		items[i] = r.Summary()
	}
	return items, total, nil
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	results, err := s.db.Search(query, limit)
	return nonNilSlice(results), err
}

// References returns the documents whose reference markers point at target.
func (s *Service) References(_ context.Context, target string) ([]models.Reference, error) {
	refs, err := s.db.ReferencesTo(target)
	return nonNilSlice(refs), err
}

// ExtractMetadata runs the registry over text.
func (s *Service) ExtractMetadata(text string) metadata.Metadata {
	return s.registry.Extract(text)
}

func (s *Service) read(path string) ([]byte, error) {
	if err := validPath(path); err != nil {
		return nil, err
	}
	data, err := s.store.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("spaceservice: %s: %w", path, apperr.ErrNotFound)
		}
		return nil, err
	}
	return data, nil
}

// write stores content, re-indexes it and publishes the change.
func (s *Service) write(path string, content []byte) (*models.Document, error) {
	if err := s.store.Write(path, content); err != nil {
		return nil, err
	}
	ev, changed, err := s.indexer.IndexFile(path, content)
	if err != nil {
		return nil, err
	}
	if changed {
		s.publish(ev)
	}
	return s.detail(path, content)
}

func (s *Service) publish(ev index.Event) {
	if s.pub == nil {
		return
	}
	s.pub.PublishDocumentEvent(ev.Op, ev.Path, ev.Changes)
}

// detail constructs a Document from raw data without re-reading the file.
func (s *Service) detail(path string, data []byte) (*models.Document, error) {
	md := s.registry.Extract(string(data))
	refs, err := s.db.ReferencesTo(path)
	if err != nil {
		return nil, err
	}
	sources := make([]string, 0, len(refs))
	seen := map[string]bool{}
	for _, r := range refs {
		if !seen[r.Source] {
			seen[r.Source] = true
			sources = append(sources, r.Source)
		}
	}
	return &models.Document{
		Path:         path,
		Kind:         models.KindFromPath(path),
		Title:        md.Get("title"),
		Status:       models.StatusOf(md),
		Content:      string(data),
		Metadata:     md,
		ReferencedBy: sources,
		Checksum:     checksum.Sum(data),
		UpdatedAt:    s.now(),
	}, nil
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
