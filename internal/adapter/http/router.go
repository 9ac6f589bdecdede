package http

import (
	"net/http"

	"github.com/aiverse-platform/publish-engine/internal/adapter/auth"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(submissionH *SubmissionHandler, tokens *auth.TokenManager) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(loggingMiddleware)
	r.Use(bodySizeLimitMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(authMiddleware(tokens))

		r.Route("/submissions", func(r chi.Router) {
			r.Post("/", submissionH.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", submissionH.Get)
				r.Get("/job", submissionH.GetJob)
				r.Get("/assets", submissionH.ListAssets)
				r.Get("/logs", submissionH.GetLogs)
			})
		})

		r.Get("/developers/{developerID}/submissions", submissionH.ListByDeveloper)
	})

	return r
}
