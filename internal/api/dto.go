package api

import (
	"encoding/json"

	"github.com/starford/gtdspace/internal/blocks"
	"github.com/starford/gtdspace/internal/index"
	"github.com/starford/gtdspace/internal/models"
	"github.com/starford/gtdspace/internal/spaceservice"
)

// CreateDocumentRequest is the request body for creating a document.
type CreateDocumentRequest struct {
	Path    string `json:"path" example:"Goals/Marathon.md" validate:"required"`
	Content string `json:"content" example:"# Marathon\n" validate:"required"`
}

// SaveDocumentRequest is the request body for replacing document text.
type SaveDocumentRequest struct {
	Content string `json:"content" example:"# Marathon\n" validate:"required"`
}

// SaveBlocksRequest is the request body for saving an edited block tree.
type SaveBlocksRequest struct {
	Blocks []blocks.Node `json:"blocks" validate:"required"`
}

// UpdateFieldRequest replaces one field marker.
type UpdateFieldRequest = spaceservice.FieldUpdate

// BuildRequest is the request body for POST /build/{entity}.
type BuildRequest struct {
	Fields json.RawMessage `json:"fields" swaggertype:"object"`
	Path   string          `json:"path,omitempty" example:"Goals/Marathon.md"`
	Write  bool            `json:"write" example:"true"`
}

// Document is the full document response type (aliased from the domain layer).
type Document = models.Document

// DocumentBlocks is a document as editor blocks.
type DocumentBlocks = spaceservice.Blocks

// BuildResult is the outcome of a build request.
type BuildResult = spaceservice.BuildResult

// DocumentListResponse wraps paginated document listings.
type DocumentListResponse struct {
	Documents []models.Summary `json:"documents" validate:"required"`
	Total     int              `json:"total" example:"42" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results" validate:"required"`
}

// ReferencesResponse lists documents pointing at a path.
type ReferencesResponse struct {
	Target     string             `json:"target" example:"Areas of Focus/Health.md" validate:"required"`
	References []models.Reference `json:"references" validate:"required"`
}
