package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"spendwise/internal/log"
	"spendwise/internal/middleware/ratelimit"
	"spendwise/internal/middleware/security"
	"spendwise/internal/middleware/trace"
	"spendwise/internal/services"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services groups the application services the handlers call.
type Services struct {
	Expenses   *services.ExpenseService
	Dashboards *services.DashboardService
	Insights   *services.InsightsService
	Planner    *services.PlannerService
}

// Options configures the HTTP surface.
type Options struct {
	CORSAllowedOrigins []string
	RateLimitPerMinute int
	// TrustedProxies overrides the default private-network proxy list.
	TrustedProxies []string
	Logger         *log.Logger
	// Pinger backs /readyz; nil always reports ready.
	Pinger Pinger
}

type Server struct {
	http.Server

	svc      Services
	logger   *log.Logger
	events   *log.StructuredLogger
	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware
	pinger   Pinger

	shutdownOnce sync.Once
}

// readyTimeout bounds the store ping behind /readyz.
const readyTimeout = 2 * time.Second

// NewServer builds the router. The returned server owns a rate limiter
// goroutine released by Shutdown.
func NewServer(addr string, svc Services, opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentHTTP)
	}

	detector := security.NewDetector()
	if len(opts.TrustedProxies) > 0 {
		if err := detector.SetTrustedProxies(opts.TrustedProxies); err != nil {
			return nil, err
		}
	}

	s := &Server{
		svc:      svc,
		logger:   logger,
		events:   log.NewStructuredLogger(logger),
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector: detector,
		tracer:   trace.NewMiddleware(logger, detector.ExtractClientIP),
		pinger:   opts.Pinger,
	}
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(opts.CORSAllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

func (s *Server) routes(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(log.Middleware(s.logger))
	r.Use(log.RequestIDMiddleware(func(r *http.Request) string {
		return middleware.GetReqID(r.Context())
	}))
	r.Use(s.tracer.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", trace.RequestIDHeader},
		ExposedHeaders: []string{trace.RequestIDHeader, "Retry-After"},
		MaxAge:         300,
	}))
	r.Use(s.detector.Middleware)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("not found").Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusMethodNotAllowed, "method not allowed").Write(w)
	})

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/statusz", s.handleStatus)

	limited := s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, s.detector.ExtractClientIP(r))
		TooManyRequestsError().Write(w)
	})

	r.Route("/api/users", func(r chi.Router) {
		r.Use(log.ComponentMiddleware(log.ComponentExpense))
		r.With(limited).Post("/", s.handleCreateUser)
		r.Route("/{userID}", func(r chi.Router) {
			r.Get("/", s.handleGetUser)
			r.Get("/expenses", s.handleListExpenses)
			r.With(limited).Post("/expenses", s.handleCreateExpense)
			r.With(limited).Delete("/expenses/{expenseID}", s.handleDeleteExpense)
			r.Get("/dashboard", s.handleDashboard)
			r.Get("/insights", s.handleInsights)
			r.With(limited).Post("/optimizer", s.handleOptimize)
		})
	})

	return r
}

// Shutdown gracefully shuts down the server and its rate limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		if err := s.pinger.Ping(ctx); err != nil {
			log.FromContext(r.Context()).WithComponent(log.ComponentStorage).WarnContext(r.Context(), "Readiness check failed",
				log.FieldError, err.Error())
			NewJSONResponse().
				Status(http.StatusServiceUnavailable).
				Body(map[string]string{"status": "unavailable"}).
				Write(w)
			return
		}
	}
	NewJSONResponse().Body(map[string]string{"status": "ready"}).Write(w)
}

type statusResponse struct {
	Requests struct {
		Total         int64 `json:"total"`
		AverageMicros int64 `json:"average_us"`
	} `json:"requests"`
	RateLimit struct {
		Rejected int64 `json:"rejected"`
		Clients  int64 `json:"clients"`
	} `json:"rate_limit"`
	Security struct {
		Suspicious int64 `json:"suspicious"`
		Blocked    int64 `json:"blocked"`
	} `json:"security"`
}

// handleStatus reports in-process counters of the HTTP middleware.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var resp statusResponse

	tm := s.tracer.GetMetrics()
	resp.Requests.Total = tm.TotalRequests
	resp.Requests.AverageMicros = tm.AverageResponseTime

	rl := s.limiter.GetMetrics()
	resp.RateLimit.Rejected = rl.Rejected
	resp.RateLimit.Clients = rl.ClientCount

	dm := s.detector.GetMetrics()
	resp.Security.Suspicious = dm.SuspiciousRequests
	resp.Security.Blocked = dm.BlockedRequests

	NewJSONResponse().Body(resp).Write(w)
}
