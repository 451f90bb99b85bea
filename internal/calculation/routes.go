package calculation

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes mounts the calculation endpoints under /calculations.
// requireAuth must put the caller's identity on the request context.
func RegisterRoutes(r chi.Router, h *Handler, requireAuth func(http.Handler) http.Handler) {
	r.Route("/calculations", func(r chi.Router) {
		r.Use(requireAuth)

		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Read)
		r.Put("/{id}", h.Update)
		r.Patch("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}
