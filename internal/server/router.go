// Package server exposes profiles and tender jobs over HTTP.
package server

import (
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"tender/internal/config"
	"tender/internal/jobs"
	"tender/internal/middleware"
	"tender/internal/storage"
)

type Server struct {
	cfg    config.Config
	db     *storage.DB
	runner *jobs.Runner
}

func NewRouter(cfg config.Config, db *storage.DB, runner *jobs.Runner, logger zerolog.Logger) *chi.Mux {
	s := &Server{cfg: cfg, db: db, runner: runner}
	r := chi.NewRouter()

	// request id first: recover and the access log use its logger
	r.Use(middleware.RequestID(logger))
	r.Use(middleware.AccessLog())
	r.Use(middleware.Recover())
	r.Use(middleware.LimitBytes(int64(cfg.MaxUploadMB) * 1024 * 1024))

	r.Get("/health", s.health)

	r.Route("/profiles", func(r chi.Router) {
		r.Get("/", s.listProfiles)
		r.Post("/", s.createProfile)
	})

	r.Route("/jobs", func(r chi.Router) {
		r.Get("/", s.listJobs)
		r.Post("/", s.createJob)
		r.Get("/{id}", s.getJob)
		r.Get("/{id}/result", s.downloadResult)
		r.Post("/{id}/run", s.runJob)
	})

	return r
}
