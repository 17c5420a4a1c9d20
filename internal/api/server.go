// Package api implements the HTTP layer for the injury risk service.
// Handlers are methods on *Server. Each handler file is responsible for one
// resource group and only imports the dependencies it actually uses.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"github.com/strainguard/injury-risk-backend/internal/coach"
	"github.com/strainguard/injury-risk-backend/internal/risk"
	"github.com/strainguard/injury-risk-backend/internal/store"
	"github.com/strainguard/injury-risk-backend/internal/worker"
)

// Config holds values read from environment variables at startup.
type Config struct {
	// Env is "production", "staging", or "development".
	Env string

	// CORSOrigins is the list of allowed origins; ["*"] allows any.
	CORSOrigins []string

	// CoachModel is the model identifier recorded alongside model-mode plans.
	CoachModel string
}

// Reader is the subset of store reads the handlers use. *store.Store
// satisfies it; tests inject an in-memory stub.
type Reader interface {
	GetAssessment(ctx context.Context, id uuid.UUID) (store.Assessment, error)
	GetSummary(ctx context.Context) (store.Summary, error)
	GetTrends(ctx context.Context, days int) ([]store.TrendPoint, error)
	RecentInputs(ctx context.Context, limit int) ([]risk.Input, error)
}

// Server holds all shared dependencies. Each handler file attaches methods to
// this type and uses only the fields it needs.
type Server struct {
	// reader handles all dashboard and lookup reads.
	reader Reader

	// coach runs the score-then-plan pipeline with fallback substitution.
	coach *coach.Coach

	// recorder persists assessments and coach attachments off the request
	// path.
	recorder worker.Recorder

	cfg    Config
	logger *slog.Logger
}

// NewServer constructs the Server and wires the chi router. The returned
// http.Handler is ready to pass to http.ListenAndServe.
func NewServer(
	reader Reader,
	c *coach.Coach,
	recorder worker.Recorder,
	cfg Config,
	logger *slog.Logger,
) http.Handler {
	s := &Server{
		reader:   reader,
		coach:    c,
		recorder: recorder,
		cfg:      cfg,
		logger:   logger,
	}

	return s.routes()
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	// ── Global middleware ─────────────────────────────────────────────────────
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggerMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
		MaxAge:         86400,
	}))
	r.Use(middleware.Timeout(90 * time.Second)) // generous — covers the model call

	// ── Health ────────────────────────────────────────────────────────────────
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// ── API v1 ────────────────────────────────────────────────────────────────
	r.Route("/api", func(r chi.Router) {
		r.Post("/assess", s.handleAssess)
		r.Post("/coach", s.handleCoach)
		r.Get("/assessments/{assessmentID}", s.handleGetAssessment)

		r.Route("/dashboard", func(r chi.Router) {
			r.Get("/summary", s.handleDashboardSummary)
			r.Get("/trends", s.handleDashboardTrends)
			r.Get("/factors", s.handleDashboardFactors)
		})
	})

	return r
}
