package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/leonardotrapani/mockroom/internal/grading"
)

// Settings are the values the handlers read on every request.
type Settings struct {
	Endpoint   string
	APIKey     string
	APIVersion string
	Deployment string
	Voice      string

	GradingEndpoint   string
	GradingAPIKey     string
	GradingDeployment string
	GradingAPIVersion string
}

// ConfigSource returns the current settings. Implementations may reload
// between calls.
type ConfigSource interface {
	Settings() Settings
}

type StaticConfig Settings

func (s StaticConfig) Settings() Settings { return Settings(s) }

type Options struct {
	Addr   string
	Config ConfigSource
	// HTTPClient is used for the session mint call.
	HTTPClient *http.Client
	// NewAssessor builds the grader for the current settings.
	NewAssessor func(Settings) grading.Assessor
}

type Server struct {
	http    *http.Server
	handler http.Handler
	metrics *Metrics
}

func New(opts Options) *Server {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if opts.NewAssessor == nil {
		opts.NewAssessor = defaultAssessor
	}
	metrics := NewMetrics()

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Recoverer)
	r.Use(Logger)
	r.Use(metrics.Instrument)

	sessions := &sessionHandler{config: opts.Config, client: opts.HTTPClient, metrics: metrics}
	grades := &gradeHandler{config: opts.Config, newAssessor: opts.NewAssessor, metrics: metrics}

	r.HandleFunc("/session", sessions.ServeHTTP)
	r.HandleFunc("/grade", grades.ServeHTTP)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	return &Server{
		handler: r,
		metrics: metrics,
		http: &http.Server{
			Addr:              opts.Addr,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
	}
}

func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) Start() error {
	log.Printf("Server: listening on %s", s.http.Addr)
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	log.Printf("Server: shutting down")
	return s.http.Shutdown(ctx)
}

func defaultAssessor(s Settings) grading.Assessor {
	return grading.NewOpenAIAssessor(grading.AzureConfig{
		Endpoint:   s.GradingEndpoint,
		Deployment: s.GradingDeployment,
		APIKey:     s.GradingAPIKey,
		APIVersion: s.GradingAPIVersion,
	})
}
