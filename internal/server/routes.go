package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Routes assembles the API surface. Session endpoints are open behind the
// optional service token; garden endpoints additionally require a user
// identity.
func Routes(h *Handlers, apiToken string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(CORS)
	r.Use(BearerAuth(apiToken))

	r.Route("/api", func(r chi.Router) {
		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", h.handleCreateSession)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.handleGetSession)
				r.Post("/image", h.handleLoadImage)
				r.Post("/identify", h.handleIdentify)
				r.Post("/diagnose", h.handleDiagnose)
				r.Post("/chat", h.handleChat)
				r.Get("/chat/ws", h.handleChatWS)
				r.Post("/reset", h.handleReset)
			})
		})

		r.Post("/remedies", h.handleRemedies)

		r.Route("/garden", func(r chi.Router) {
			r.Use(RequireUser)
			r.Post("/", h.handleSavePlant)
			r.Get("/", h.handleListPlants)
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, struct {
			Status string `json:"status"`
		}{Status: "ok"})
	})

	return r
}
