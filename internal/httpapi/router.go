// Package httpapi wires the HTTP surface of the treasury.
// It keeps handlers thin, delegating business rules to the service layer.
package httpapi

import (
	"log/slog"
	"net/http"

	chi "github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/tinoosan/tesouraria/internal/dictionary"
	"github.com/tinoosan/tesouraria/internal/service/auth"
	"github.com/tinoosan/tesouraria/internal/service/contributor"
	"github.com/tinoosan/tesouraria/internal/service/entry"
	"github.com/tinoosan/tesouraria/internal/service/report"
)

// Services groups the domain services the handlers delegate to.
type Services struct {
	Contributors contributor.Service
	Entries      entry.Service
	Reports      report.Service
	Auth         auth.Service
	Categories   *dictionary.Dictionary
	// Ready is optional; /readyz calls it when set.
	Ready ReadyChecker
}

// Options tunes routing.
type Options struct {
	// ProtectAll gates contributor, entry and category routes. Reports are always gated.
	ProtectAll  bool
	StaticDir   string
	CORSOrigins []string
}

// Server wires handlers and middleware using Chi.
type Server struct {
	contributors contributor.Service
	entries      entry.Service
	reports      report.Service
	auth         auth.Service
	categories   *dictionary.Dictionary
	ready        ReadyChecker
	opts         Options
	log          *slog.Logger
	rt           *chi.Mux
}

// New constructs the HTTP server with routes and middleware.
func New(svc Services, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if svc.Categories == nil {
		svc.Categories = dictionary.New(nil)
	}
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}
	r := chi.NewRouter()
	s := &Server{
		contributors: svc.Contributors,
		entries:      svc.Entries,
		reports:      svc.Reports,
		auth:         svc.Auth,
		categories:   svc.Categories,
		ready:        svc.Ready,
		opts:         opts,
		log:          logger,
		rt:           r,
	}
	r.Use(chimw.RequestID)
	r.Use(s.logRequests)
	r.Use(s.recoverPanics)
	r.Use(metricsMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))
	s.routes()
	return s
}

// Handler exposes the configured http.Handler.
func (s *Server) Handler() http.Handler { return s.rt }

// routes declares the public HTTP API endpoints and attaches any per-route middleware.
func (s *Server) routes() {
	s.rt.Get("/healthz", s.healthz)
	s.rt.Get("/readyz", s.readyz)
	s.rt.Handle("/metrics", metricsHandler())

	s.rt.Route("/api", func(api chi.Router) {
		api.With(s.validateLogin()).Post("/auth/login", s.login)

		api.Group(func(g chi.Router) {
			if s.opts.ProtectAll {
				g.Use(s.requireAuth)
			}
			// Contributors
			g.Get("/dizimistas", s.listContributors)
			g.With(s.validatePostContributor()).Post("/dizimistas", s.postContributor)
			g.With(validateID).Get("/dizimistas/{id}", s.getContributor)
			g.With(validateID).Delete("/dizimistas/{id}", s.deleteContributor)
			// Addresses
			g.Get("/enderecos", s.listAddresses)
			g.With(s.validateAddressBody()).Post("/enderecos", s.postAddress)
			// Entries
			g.Get("/lancamentos", s.listEntries)
			g.With(s.validateEntryBody()).Post("/lancamentos", s.postEntry)
			g.With(validateID).Get("/lancamentos/{id}", s.getEntry)
			g.With(validateID, s.validateEntryBody()).Put("/lancamentos/{id}", s.putEntry)
			g.With(validateID).Delete("/lancamentos/{id}", s.deleteEntry)
			// Dictionary
			g.Get("/categorias", s.getCategories)
		})

		api.With(s.requireAuth, s.validateReportQuery()).Get("/relatorios/caixa", s.cashReport)
	})

	if s.opts.StaticDir != "" {
		s.rt.Get("/*", s.static(s.opts.StaticDir))
	}
}
