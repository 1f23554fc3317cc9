package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/gtdspace/internal/models"
	"github.com/starford/gtdspace/internal/spaceservice"
)

const maxBody = 10 << 20

// Handler holds API route handlers.
type Handler struct {
	svc *spaceservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *spaceservice.Service) *Handler {
	return &Handler{svc: svc}
}

// docPath extracts the document path from the wildcard part of the URL.
// Supports encoded slashes from OpenAPI clients (e.g. Goals%2FMarathon.md).
func docPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	return true
}

// ListDocuments handles GET /api/documents.
//
//	@Summary		List indexed documents with optional filtering
//	@Tags			documents
//	@Produce		json
//	@Param			kind	query		string	false	"Entity kind"	Enums(project, action, habit, area, goal, vision, purpose, someday, cabinet, horizon, document)
//	@Param			status	query		string	false	"Canonical status"
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Success		200		{object}	DocumentListResponse
//	@Security		BearerAuth
//	@Router			/documents [get]
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	items, total, err := h.svc.ListDocuments(r.Context(), spaceservice.ListQuery{
		Kind:   models.Kind(q.Get("kind")),
		Status: q.Get("status"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		writeError(w, "list documents", "", err)
		return
	}
	writeJSON(w, http.StatusOK, DocumentListResponse{Documents: items, Total: total})
}

// GetDocument handles GET /api/documents/*.
//
//	@Summary		Get a document with its metadata and reverse references
//	@Tags			documents
//	@Produce		json
//	@Param			path	path		string	true	"Document path"
//	@Success		200		{object}	Document
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{path} [get]
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	path := docPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	doc, err := h.svc.GetDocument(r.Context(), path)
	if err != nil {
		writeError(w, "get document", path, err)
		return
	}
	w.Header().Set("ETag", strconv.Quote(doc.Checksum))
	writeJSON(w, http.StatusOK, doc)
}

// CreateDocument handles POST /api/documents.
//
//	@Summary		Create a new document
//	@Tags			documents
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateDocumentRequest	true	"Document to create"
//	@Success		201		{object}	Document
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents [post]
func (h *Handler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	var req CreateDocumentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Path == "" || req.Content == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path and content are required"))
		return
	}
	doc, err := h.svc.CreateDocument(r.Context(), req.Path, []byte(req.Content))
	if err != nil {
		writeError(w, "create document", req.Path, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

// SaveDocument handles PUT /api/documents/*.
//
//	@Summary		Replace document text with optimistic concurrency
//	@Tags			documents
//	@Accept			json
//	@Produce		json
//	@Param			path		path		string				true	"Document path"
//	@Param			If-Match	header		string				false	"SHA-256 checksum for optimistic concurrency"
//	@Param			body		body		SaveDocumentRequest	true	"Updated content"
//	@Success		200			{object}	Document
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{path} [put]
func (h *Handler) SaveDocument(w http.ResponseWriter, r *http.Request) {
	path := docPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	var req SaveDocumentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	doc, err := h.svc.SaveDocument(r.Context(), path, []byte(req.Content), r.Header.Get("If-Match"))
	if err != nil {
		writeError(w, "save document", path, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// DeleteDocument handles DELETE /api/documents/*.
//
//	@Summary		Delete a document
//	@Tags			documents
//	@Param			path	path	string	true	"Document path"
//	@Success		204		"Document deleted"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{path} [delete]
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	path := docPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	if err := h.svc.DeleteDocument(r.Context(), path); err != nil {
		writeError(w, "delete document", path, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetBlocks handles GET /api/blocks/*.
//
//	@Summary		Get a document as reconciled editor blocks
//	@Tags			blocks
//	@Produce		json
//	@Param			path	path		string	true	"Document path"
//	@Success		200		{object}	DocumentBlocks
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/blocks/{path} [get]
func (h *Handler) GetBlocks(w http.ResponseWriter, r *http.Request) {
	path := docPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	bs, err := h.svc.GetBlocks(r.Context(), path)
	if err != nil {
		writeError(w, "get blocks", path, err)
		return
	}
	w.Header().Set("ETag", strconv.Quote(bs.Checksum))
	writeJSON(w, http.StatusOK, bs)
}

// SaveBlocks handles PUT /api/blocks/*.
//
//	@Summary		Serialize an edited block tree and save it
//	@Tags			blocks
//	@Accept			json
//	@Produce		json
//	@Param			path		path		string				true	"Document path"
//	@Param			If-Match	header		string				false	"SHA-256 checksum for optimistic concurrency"
//	@Param			body		body		SaveBlocksRequest	true	"Block tree"
//	@Success		200			{object}	Document
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/blocks/{path} [put]
func (h *Handler) SaveBlocks(w http.ResponseWriter, r *http.Request) {
	path := docPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	var req SaveBlocksRequest
	if !decodeBody(w, r, &req) {
		return
	}
	doc, err := h.svc.SaveBlocks(r.Context(), path, req.Blocks, r.Header.Get("If-Match"))
	if err != nil {
		writeError(w, "save blocks", path, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// UpdateField handles PATCH /api/fields/*.
//
//	@Summary		Rewrite one field marker in place
//	@Tags			blocks
//	@Accept			json
//	@Produce		json
//	@Param			path		path		string				true	"Document path"
//	@Param			If-Match	header		string				false	"SHA-256 checksum for optimistic concurrency"
//	@Param			body		body		UpdateFieldRequest	true	"Field type and props"
//	@Success		200			{object}	Document
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/fields/{path} [patch]
func (h *Handler) UpdateField(w http.ResponseWriter, r *http.Request) {
	path := docPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	var req UpdateFieldRequest
	if !decodeBody(w, r, &req) {
		return
	}
	doc, err := h.svc.UpdateField(r.Context(), path, req, r.Header.Get("If-Match"))
	if err != nil {
		writeError(w, "update field", path, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// Build handles POST /api/build/{entity}.
//
//	@Summary		Build a canonical entity document
//	@Tags			build
//	@Accept			json
//	@Produce		json
//	@Param			entity	path		string			true	"Entity"	Enums(habit, area, goal, vision, project, action, horizon)
//	@Param			body	body		BuildRequest	true	"Entity fields"
//	@Success		200		{object}	BuildResult		"Preview"
//	@Success		201		{object}	BuildResult		"Written to the space"
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/build/{entity} [post]
func (h *Handler) Build(w http.ResponseWriter, r *http.Request) {
	entity := chi.URLParam(r, "entity")
	var req BuildRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := h.svc.BuildDocument(r.Context(), entity, spaceservice.BuildRequest{
		Fields: req.Fields,
		Path:   req.Path,
		Write:  req.Write,
	})
	if err != nil {
		writeError(w, "build "+entity, req.Path, err)
		return
	}
	status := http.StatusOK
	if req.Write {
		status = http.StatusCreated
	}
	writeJSON(w, status, res)
}

// References handles GET /api/references/*.
//
//	@Summary		List documents whose reference markers point at a path
//	@Tags			references
//	@Produce		json
//	@Param			path	path		string	true	"Target path"
//	@Success		200		{object}	ReferencesResponse
//	@Security		BearerAuth
//	@Router			/references/{path} [get]
func (h *Handler) References(w http.ResponseWriter, r *http.Request) {
	path := docPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	refs, err := h.svc.References(r.Context(), path)
	if err != nil {
		writeError(w, "references", path, err)
		return
	}
	writeJSON(w, http.StatusOK, ReferencesResponse{Target: path, References: refs})
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across documents
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, "search", q, err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}
