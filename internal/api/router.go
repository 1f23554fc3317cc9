package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/gtdspace/internal/spaceservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *spaceservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Documents CRUD.
	r.Get("/documents", h.ListDocuments)
	r.Post("/documents", h.CreateDocument)
	r.Get("/documents/*", h.GetDocument)
	r.Put("/documents/*", h.SaveDocument)
	r.Delete("/documents/*", h.DeleteDocument)

	// Editor blocks and single field updates.
	r.Get("/blocks/*", h.GetBlocks)
	r.Put("/blocks/*", h.SaveBlocks)
	r.Patch("/fields/*", h.UpdateField)

	// Canonical documents.
	r.Post("/build/{entity}", h.Build)

	r.Get("/references/*", h.References)
	r.Get("/search", h.Search)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
