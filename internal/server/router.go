package server

import (
	"context"
	"net/http"

	"go-chi-calculations/internal/auth"
	"go-chi-calculations/internal/calculation"
	"go-chi-calculations/internal/handlers"
	"go-chi-calculations/internal/observability"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Deps are the services the router mounts.
type Deps struct {
	Calculations *calculation.Service
	Auth         *auth.Service
	CORSOrigins  []string
	// Ping checks the backing store for GET /ready. Nil means always ready.
	Ping func(context.Context) error
}

func NewRouter(deps Deps) http.Handler {

	r := chi.NewRouter()

	r.Use(observability.RequestIDMiddleware)
	r.Use(observability.TracingMiddleware)
	r.Use(observability.LoggingMiddleware)
	r.Use(observability.PrometheusMiddleware)
	r.Use(middleware.Recoverer)

	origins := deps.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", observability.RequestIDHeader},
		ExposedHeaders: []string{observability.RequestIDHeader},
		MaxAge:         300,
	}))

	r.Get("/health", handlers.Health)
	r.Get("/ready", handlers.Ready(deps.Ping))

	r.Handle("/metrics", observability.PrometheusHandler())

	auth.RegisterRoutes(r, auth.NewHandler(deps.Auth))
	calculation.RegisterRoutes(r, calculation.NewHandler(deps.Calculations), auth.RequireAuth(deps.Auth))

	return r
}
