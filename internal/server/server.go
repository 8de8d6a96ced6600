package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Lokie-ree/aida-sub001/internal/assistant"
	"github.com/Lokie-ree/aida-sub001/internal/audit"
	"github.com/Lokie-ree/aida-sub001/internal/otel"
	"github.com/Lokie-ree/aida-sub001/internal/retention"
)

const defaultTimeout = 60 * time.Second

// Answerer answers voice queries. *assistant.Orchestrator satisfies it.
type Answerer interface {
	Answer(ctx context.Context, q assistant.Query) assistant.Outcome
}

// AuditRecorder writes audit entries. *audit.Recorder satisfies it.
type AuditRecorder interface {
	Record(ctx context.Context, userID, action, resource, details string) (*audit.Entry, error)
}

// AuditLister lists a user's audit entries. *audit.Store satisfies it.
type AuditLister interface {
	ListByUser(ctx context.Context, userID string, limit int) ([]audit.Entry, error)
}

// RetentionRunner runs one retention pass. *retention.Enforcer satisfies it.
type RetentionRunner interface {
	Enforce(ctx context.Context) retention.Result
}

// Server holds all dependencies for the HTTP API.
type Server struct {
	router      *chi.Mux
	answerer    Answerer
	recorder    AuditRecorder
	auditLog    AuditLister
	enforcer    RetentionRunner
	webhook     http.HandlerFunc
	apiKeys     map[string]string
	rateLimiter *RateLimiter
	startTime   time.Time
}

// Option configures the Server.
type Option func(*Server)

// WithAuditLister enables GET /v1/audit.
func WithAuditLister(l AuditLister) Option {
	return func(s *Server) { s.auditLog = l }
}

// WithRetention enables POST /v1/retention/enforce.
func WithRetention(r RetentionRunner) Option {
	return func(s *Server) { s.enforcer = r }
}

// WithRateLimit limits each authenticated user to perMinute requests. Zero disables limiting.
func WithRateLimit(perMinute int) Option {
	return func(s *Server) {
		if perMinute > 0 {
			s.rateLimiter = NewRateLimiter(perMinute)
		}
	}
}

// NewServer builds a Server with the required dependencies and optional Option(s).
func NewServer(
	answerer Answerer,
	recorder AuditRecorder,
	webhook http.HandlerFunc,
	apiKeys map[string]string,
	opts ...Option,
) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		answerer:  answerer,
		recorder:  recorder,
		webhook:   webhook,
		apiKeys:   apiKeys,
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.apiKeys == nil {
		s.apiKeys = make(map[string]string)
	}
	return s
}

// Routes returns the configured http.Handler (chi router with all middleware and routes).
func (s *Server) Routes() http.Handler {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(otel.Middleware())
	r.Use(ClientIPMiddleware)

	// Unauthenticated
	r.Get("/health", s.handleHealth)

	// Voice platform webhook (no auth; signature validation is the platform's concern)
	if s.webhook != nil {
		r.Post("/v1/webhooks/voice", s.webhook)
	}

	// Authenticated API group
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.apiKeys))
		r.Use(RateLimitMiddleware(s.rateLimiter))
		r.Use(middleware.Timeout(defaultTimeout))

		r.Post("/v1/voice/query", s.handleVoiceQuery)
		if s.auditLog != nil {
			r.Get("/v1/audit", s.handleAuditList)
		}
		if s.enforcer != nil {
			r.Post("/v1/retention/enforce", s.handleRetentionEnforce)
		}
	})

	return r
}
