// Package httpd exposes the tutoring service over HTTP.
package httpd

import (
	"context"
	"embed"
	"fmt"
	"net/http"
	"time"

	"github.com/effective-security/xlog"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tutorstack/tutor/agents"
	"github.com/tutorstack/tutor/config"
)

var logger = xlog.NewPackageLogger("github.com/tutorstack/tutor", "httpd")

//go:embed index.html
var content embed.FS

// Processor answers user queries.
type Processor interface {
	Process(ctx context.Context, query string) (*agents.Response, error)
}

// Server is the HTTP front end of the tutor.
type Server struct {
	tutor   Processor
	router  *chi.Mux
	server  *http.Server
	tracker requestTracker

	environment       string
	requestTimeout    time.Duration
	maxActiveRequests int
}

// NewServer creates the HTTP server for the given tutor.
func NewServer(cfg *config.Config, tutor Processor) *Server {
	s := &Server{
		tutor:             tutor,
		environment:       cfg.Environment,
		requestTimeout:    cfg.RequestTimeout,
		maxActiveRequests: cfg.MaxActiveRequests,
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(processTimeMiddleware)
	r.Use(metricsMiddleware)

	r.Get("/", s.handleHome)
	r.Post("/api/query", s.handleQuery)
	r.Get("/api/health", s.handleHealth)
	r.Method(http.MethodGet, "/api/metrics", promhttp.Handler())

	s.router = r
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Router returns the chi router, for tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	page, err := content.ReadFile("index.html")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "Home page is unavailable.")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}

// Start runs the server until the listener fails or Stop is called.
func (s *Server) Start() error {
	logger.KV(xlog.INFO,
		"status", "starting",
		"addr", s.server.Addr,
		"environment", s.environment,
	)
	err := s.server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	logger.KV(xlog.INFO, "status", "stopping")
	return s.server.Shutdown(ctx)
}
