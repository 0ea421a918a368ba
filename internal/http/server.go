package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"teampower/internal/ledger"
	applog "teampower/internal/log"
	"teampower/internal/middleware/ratelimit"
	"teampower/internal/middleware/security"
	"teampower/internal/middleware/trace"
	"teampower/internal/services"
	"teampower/internal/session"
)

// Deps are the collaborators of the HTTP API.
type Deps struct {
	// Ledger accepts new records; usually a *services.LedgerService.
	Ledger    ledger.Appender
	Dashboard *services.DashboardService
	Sessions  *session.Manager
	Logger    *applog.Logger

	RateLimitPerMinute int
}

type Server struct {
	http.Server

	ledger    ledger.Appender
	dashboard *services.DashboardService
	sessions  *session.Manager
	logger    *applog.Logger

	limiter *ratelimit.Limiter
	tracer  *trace.Middleware
	started time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, d Deps) *Server {
	logger := d.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	ips := security.NewClientIPResolver()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		ledger:    d.Ledger,
		dashboard: d.Dashboard,
		sessions:  d.Sessions,
		logger:    logger.WithComponent(applog.ComponentHTTP),
		limiter:   ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: d.RateLimitPerMinute}),
		tracer:    trace.NewMiddleware(ips.ClientIP),
		started:   time.Now(),
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/kpis", s.handleKPIs)
	mux.HandleFunc("GET /api/ytd", s.handleYTD)
	mux.HandleFunc("GET /api/monthly", s.handleMonthly)

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("GET /api/transactions/stats", s.handleTransactionStats)
	mux.HandleFunc("GET /api/transactions.csv", s.handleExportCSV)
	mux.Handle("POST /api/transactions", s.requireRole(session.RoleAdmin, s.handleAppendTransaction))

	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.Handle("POST /api/logout", s.requireSession(s.handleLogout))
	mux.Handle("GET /api/profile", s.requireSession(s.handleProfile))
	mux.Handle("POST /api/profile/password", s.requireSession(s.handleChangePassword))

	mux.Handle("GET /api/admin/users", s.requireRole(session.RoleAdmin, s.handleListUsers))
	mux.Handle("POST /api/admin/users/role", s.requireRole(session.RoleAdmin, s.handleSetUserRole))

	// Outermost first: tracing sees every request, including rate-limited ones.
	var h http.Handler = mux
	h = s.withSession(h)
	h = s.limiter.Middleware(ips.ClientIP, isHealthCheck, s.onRateLimit)(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = trace.LoggerMiddleware(s.logger)(h)
	h = s.tracer.Middleware(h)
	s.Handler = h

	return s
}

func isHealthCheck(r *http.Request) bool {
	return r.URL.Path == "/healthz" || r.URL.Path == "/readyz"
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path)
	writeError(w, http.StatusTooManyRequests, "rate limit exceeded, please try again later")
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// Metrics returns request counters collected by the tracing middleware.
func (s *Server) Metrics() trace.Metrics {
	return s.tracer.GetMetrics()
}
