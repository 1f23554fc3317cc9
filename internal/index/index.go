package index

import "github.com/starford/gtdspace/internal/models"

// DocumentIndex defines the interface for space indexing operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type DocumentIndex interface {
	UpsertDocument(d DocumentRow, body string, refs []models.Reference) error
	DeleteDocument(path string) error
	GetChecksum(path string) (string, error)
	GetDocument(path string) (*DocumentRow, error)
	ListDocuments(f ListFilter) ([]DocumentRow, int, error)
	Search(query string, limit int) ([]SearchResult, error)
	ReferencesTo(target string) ([]models.Reference, error)
	ReferencesFrom(source string) ([]models.Reference, error)
	AllPaths() (map[string]struct{}, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

// Verify *DB satisfies DocumentIndex at compile time.
var _ DocumentIndex = (*DB)(nil)
