package auth

import "github.com/go-chi/chi/v5"

// RegisterRoutes mounts the auth endpoints under /auth.
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(RequireAuth(h.svc))
			r.Post("/logout", h.Logout)
			r.Get("/me", h.Me)
		})
	})
}
