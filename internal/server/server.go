// Package server provides the HTML pages and JSON API for movierec.
package server

import (
	"context"
	"html/template"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hyperjump/movierec/internal/config"
	"github.com/hyperjump/movierec/internal/models"
	"github.com/hyperjump/movierec/internal/recommend"
	"github.com/hyperjump/movierec/internal/snapshot"
	"github.com/hyperjump/movierec/pkg/utils"
)

// Recommender is the service surface the handlers need.
type Recommender interface {
	Recommend(ctx context.Context, title string, k int) ([]models.Item, error)
	HasTitle(title string) bool
	TopTitles(n int) []string
	SearchTitles(ctx context.Context, query string, limit int) ([]models.TitleSuggestion, error)
	MaxK() int
	Info() recommend.Info
}

// Server is the HTTP server for the movierec pages and API.
type Server struct {
	service  Recommender
	meta     *snapshot.Meta
	config   *config.Config
	logger   *zap.Logger
	pages    *template.Template
	validate *validator.Validate
	server   *http.Server

	popularOnce sync.Once
	popular     []string
}

// NewServer creates a server. meta may be nil when no snapshot file backs the service.
func NewServer(service Recommender, meta *snapshot.Meta, cfg *config.Config, logger *zap.Logger) *Server {
	return &Server{
		service:  service,
		meta:     meta,
		config:   cfg,
		logger:   utils.OrNop(logger),
		pages:    pages,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Routes builds the router with all middleware installed.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(s.instrument)
	if s.config.Server.RequestTimeout > 0 {
		r.Use(middleware.Timeout(s.config.Server.RequestTimeout))
	}
	r.Use(middleware.Compress(5))

	r.Get("/health", s.handleHealth)
	if s.config.Metrics.EnabledOrDefault() {
		r.Method(http.MethodGet, s.config.Metrics.Path, promhttp.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(s.rateLimit())

		r.Get("/", s.handleHome)
		r.Post("/recommend", s.handleRecommendForm)

		r.Route("/api/v1", func(r chi.Router) {
			r.Get("/recommendations", s.handleRecommend)
			r.Get("/titles/top", s.handleTopTitles)
			r.Get("/titles/search", s.handleSearchTitles)
			r.Get("/status", s.handleStatus)
		})
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := s.config.Server.Addr()
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: s.config.Server.ReadTimeout,
		ReadTimeout:       s.config.Server.ReadTimeout,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// popularTitles is computed once; the catalog never changes after startup.
func (s *Server) popularTitles() []string {
	s.popularOnce.Do(func() {
		s.popular = s.service.TopTitles(s.config.Recommend.PopularCount)
	})
	return s.popular
}
