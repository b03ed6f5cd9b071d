package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/juanfu7467v/consulta-pe-wa-bot/internal/session"
)

// NewRouter wires the control plane routes.
func NewRouter(lc Lifecycle, reg *session.Registry) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	h := NewHandler(lc, reg)

	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{
			"service": "consulta-pe-wa-bot",
			"status":  "ok",
		})
	})

	r.Route("/api", func(api chi.Router) {
		h.RegisterRoutes(api)
	})

	return r
}
