package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	mw "github.com/furqan899/safelift-ai/internal/api/middleware"
	"github.com/furqan899/safelift-ai/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit *mw.RateLimit

	// MediaRoot is the directory served under /media/ for export downloads.
	MediaRoot string

	HealthHandler http.HandlerFunc

	CreateEntryHandler http.HandlerFunc
	UpdateEntryHandler http.HandlerFunc
	DeleteEntryHandler http.HandlerFunc
	GetEntryHandler    http.HandlerFunc
	ListEntriesHandler http.HandlerFunc
	RegenerateHandler  http.HandlerFunc
	ToggleHandler      http.HandlerFunc
	EntryStatsHandler  http.HandlerFunc
	CategoriesHandler  http.HandlerFunc
	SearchHandler      http.HandlerFunc

	CreateExportHandler http.HandlerFunc
	ListExportsHandler  http.HandlerFunc
	GetExportHandler    http.HandlerFunc
	RetryExportHandler  http.HandlerFunc
	DownloadInfoHandler http.HandlerFunc
	ExportStatsHandler  http.HandlerFunc

	DashboardHandler http.HandlerFunc

	CreateKeyHandler http.HandlerFunc
	ListKeysHandler  http.HandlerFunc
	RevokeKeyHandler http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	// Public health check
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))

	// Export files. Download URLs returned by the API point here.
	if deps.MediaRoot != "" {
		fs := http.StripPrefix("/media/", http.FileServer(http.Dir(deps.MediaRoot)))
		r.Get("/media/*", fs.ServeHTTP)
	}

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)
		r.Use(deps.RateLimit.Limit)

		r.Route("/api/v1/knowledge-base", func(r chi.Router) {
			r.Get("/entries", orNotImplemented(deps.ListEntriesHandler))
			r.Post("/entries", orNotImplemented(deps.CreateEntryHandler))
			r.Get("/entries/{entryID}", orNotImplemented(deps.GetEntryHandler))
			r.Put("/entries/{entryID}", orNotImplemented(deps.UpdateEntryHandler))
			r.Delete("/entries/{entryID}", orNotImplemented(deps.DeleteEntryHandler))
			r.Post("/entries/{entryID}/regenerate-embeddings", orNotImplemented(deps.RegenerateHandler))
			r.Post("/entries/{entryID}/toggle-status", orNotImplemented(deps.ToggleHandler))

			r.Post("/search", orNotImplemented(deps.SearchHandler))
			r.Get("/stats", orNotImplemented(deps.EntryStatsHandler))
			r.Get("/categories", orNotImplemented(deps.CategoriesHandler))
		})

		r.Route("/api/v1/exports", func(r chi.Router) {
			r.Get("/", orNotImplemented(deps.ListExportsHandler))
			r.Post("/", orNotImplemented(deps.CreateExportHandler))
			r.Get("/stats", orNotImplemented(deps.ExportStatsHandler))
			r.Get("/{exportID}", orNotImplemented(deps.GetExportHandler))
			r.Post("/{exportID}/retry", orNotImplemented(deps.RetryExportHandler))
			r.Get("/{exportID}/download", orNotImplemented(deps.DownloadInfoHandler))
		})

		r.Get("/api/v1/dashboard/metrics", orNotImplemented(deps.DashboardHandler))

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(deps.Auth.RequireScope("admin"))

			r.Post("/api/v1/admin/keys", orNotImplemented(deps.CreateKeyHandler))
			r.Get("/api/v1/admin/keys", orNotImplemented(deps.ListKeysHandler))
			r.Delete("/api/v1/admin/keys/{keyID}", orNotImplemented(deps.RevokeKeyHandler))
		})
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
