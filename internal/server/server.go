// Package server wires configuration, storage, and HTTP handlers into a
// runnable Guardian API server.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"

	"github.com/neuronest/guardian/internal/alerts"
	"github.com/neuronest/guardian/internal/auth"
	"github.com/neuronest/guardian/internal/children"
	"github.com/neuronest/guardian/internal/config"
	"github.com/neuronest/guardian/internal/dashboard"
	"github.com/neuronest/guardian/internal/focusmode"
	"github.com/neuronest/guardian/internal/gamification"
	"github.com/neuronest/guardian/internal/health"
	"github.com/neuronest/guardian/internal/idgen"
	"github.com/neuronest/guardian/internal/logging"
	"github.com/neuronest/guardian/internal/metrics"
	"github.com/neuronest/guardian/internal/ratelimit"
	"github.com/neuronest/guardian/internal/realtime"
	"github.com/neuronest/guardian/internal/risk"
	"github.com/neuronest/guardian/internal/screentime"
	"github.com/neuronest/guardian/internal/security"
	"github.com/neuronest/guardian/internal/traces"
	"github.com/neuronest/guardian/internal/validation"
	"github.com/neuronest/guardian/internal/webhooks"
)

// Server is the Guardian API server. It owns the HTTP listener, the
// store layer (Postgres or in-memory), and the realtime hub.
type Server struct {
	cfg    *config.Config
	logger *slog.Logger

	db      *sql.DB
	router  *gin.Engine
	httpSrv *http.Server

	tokens      *auth.TokenManager
	hub         *realtime.Hub
	dispatcher  *webhooks.Dispatcher
	alertsOut   *alerts.Emitter
	webhooksOut *webhooks.Emitter
	rateLimiter *ratelimit.Limiter
	checks      *health.Registry

	users        auth.Store
	children     children.Store
	usage        screentime.Store
	risks        risk.Store
	gamification gamification.Store
	alerts       alerts.Store
	focus        focusmode.Store
	webhooks     webhooks.Store

	tracesShutdown func(context.Context) error
	cancelRunCtx   context.CancelFunc

	ready   atomic.Bool
	healthy atomic.Bool
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// New builds a server from config. With DATABASE_URL set it connects to
// Postgres and runs migrations; otherwise every store is in-memory.
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		s.db = db
		s.logger.Info("connected to postgres", "dsn", maskDSN(cfg.DatabaseURL))

		userStore := auth.NewPostgresStore(db)
		childStore := children.NewPostgresStore(db)
		usageStore := screentime.NewPostgresStore(db)
		riskStore := risk.NewPostgresStore(db)
		gamStore := gamification.NewPostgresStore(db)
		alertStore := alerts.NewPostgresStore(db)
		focusStore := focusmode.NewPostgresStore(db)
		webhookStore := webhooks.NewPostgresStore(db)

		migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancelMigrate()
		for name, m := range map[string]interface {
			Migrate(context.Context) error
		}{
			"users":        userStore,
			"children":     childStore,
			"screen_time":  usageStore,
			"risk":         riskStore,
			"gamification": gamStore,
			"alerts":       alertStore,
			"focus_mode":   focusStore,
			"webhooks":     webhookStore,
		} {
			if err := m.Migrate(migrateCtx); err != nil {
				s.logger.Warn("migration failed", "store", name, "error", err)
			}
		}

		s.users = userStore
		s.children = childStore
		s.usage = usageStore
		s.risks = riskStore
		s.gamification = gamStore
		s.alerts = alertStore
		s.focus = focusStore
		s.webhooks = webhookStore
	} else {
		s.logger.Info("no DATABASE_URL set, using in-memory stores")
		s.users = auth.NewMemoryStore()
		s.children = children.NewMemoryStore()
		s.usage = screentime.NewMemoryStore()
		s.risks = risk.NewMemoryStore()
		s.gamification = gamification.NewMemoryStore()
		s.alerts = alerts.NewMemoryStore()
		s.focus = focusmode.NewMemoryStore()
		s.webhooks = webhooks.NewMemoryStore()
	}

	s.tokens = auth.NewTokenManager(
		cfg.JWTSecret, cfg.JWTRefreshSecret,
		time.Duration(cfg.TokenTTLHours)*time.Hour,
		time.Duration(cfg.RefreshTTLHours)*time.Hour,
	)
	s.checks = health.NewRegistry()
	s.checks.Register("database", func(ctx context.Context) health.Status {
		if s.db == nil {
			return health.Status{Name: "database", Healthy: true, Detail: "memory"}
		}
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := s.db.PingContext(pingCtx); err != nil {
			return health.Status{Name: "database", Healthy: false, Detail: err.Error()}
		}
		return health.Status{Name: "database", Healthy: true}
	})
	s.checks.Register("realtime", func(ctx context.Context) health.Status {
		clients := s.hub.Stats()["connectedClients"]
		return health.Status{Name: "realtime", Healthy: true, Detail: fmt.Sprintf("%v clients", clients)}
	})

	s.hub = realtime.NewHub(s.logger)
	s.dispatcher = webhooks.NewDispatcher(s.webhooks)
	s.webhooksOut = webhooks.NewEmitter(s.dispatcher, s.logger)
	s.alertsOut = alerts.NewEmitter(s.alerts, s.hub, s.webhooksOut, s.logger)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	s.router = gin.New()
	s.setupMiddleware()
	s.setupRoutes()

	s.healthy.Store(true)
	return s, nil
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logging.L(c.Request.Context()).Error("panic recovered",
			"panic", recovered, "path", c.Request.URL.Path)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "An internal error occurred",
		})
	}))

	s.router.Use(security.HeadersMiddleware())
	s.router.Use(security.CORSMiddleware(splitOrigins(s.cfg.AllowedOrigins)))
	s.router.Use(validation.RequestSizeMiddleware(validation.MaxRequestSize))

	rlCfg := ratelimit.DefaultConfig()
	if s.cfg.RateLimitRPM > 0 {
		rlCfg.RequestsPerMinute = s.cfg.RateLimitRPM
	}
	s.rateLimiter = ratelimit.New(rlCfg)
	s.router.Use(s.rateLimiter.Middleware())

	s.router.Use(metrics.Middleware())
	s.router.Use(s.requestIDMiddleware())
	s.router.Use(s.loggingMiddleware())
}

func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = idgen.Hex(8)
		}
		c.Header("X-Request-ID", requestID)

		ctx := logging.WithRequestID(c.Request.Context(), requestID)
		ctx = logging.WithLogger(ctx, s.logger.With("request_id", requestID))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		logger := logging.L(c.Request.Context())
		switch {
		case status >= 500:
			logger.Error("request completed", attrs...)
		case status >= 400:
			logger.Warn("request completed", attrs...)
		default:
			logger.Info("request completed", attrs...)
		}
	}
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/health/live", s.handleLive)
	s.router.GET("/health/ready", s.handleReady)
	s.router.GET("/metrics", metrics.Handler())

	s.router.GET("/ws", func(c *gin.Context) {
		s.hub.HandleWebSocket(c.Writer, c.Request)
	})

	authHandler := auth.NewHandler(s.users, s.tokens, s.cfg.IsDevelopment())
	childHandler := children.NewHandler(s.children, s.gamification)
	usageHandler := screentime.NewHandler(s.usage, s.children, s.alertsOut, s.hub)
	riskHandler := risk.NewHandler(risk.NewEngine(nil), s.risks, s.usage, s.children,
		s.alertsOut, s.webhooksOut, s.hub)
	gamHandler := gamification.NewHandler(s.gamification, s.children, s.usage,
		s.alertsOut, s.webhooksOut, s.hub)
	focusHandler := focusmode.NewHandler(s.focus, s.children)
	alertHandler := alerts.NewHandler(s.alerts)
	webhookHandler := webhooks.NewHandler(s.webhooks)
	dashHandler := dashboard.NewHandler(s.children, s.usage, s.risks, s.gamification, s.alerts)

	v1 := s.router.Group("/v1")
	authHandler.RegisterRoutes(v1)

	protected := v1.Group("")
	protected.Use(auth.Middleware(s.tokens))
	childHandler.RegisterRoutes(protected)
	usageHandler.RegisterRoutes(protected)
	riskHandler.RegisterRoutes(protected)
	gamHandler.RegisterRoutes(protected)
	focusHandler.RegisterRoutes(protected)
	alertHandler.RegisterRoutes(protected)
	webhookHandler.RegisterRoutes(protected)
	dashHandler.RegisterRoutes(protected)
}

func (s *Server) handleHealth(c *gin.Context) {
	allHealthy, statuses := s.checks.CheckAll(c.Request.Context())
	healthy := allHealthy && s.healthy.Load()

	checks := gin.H{}
	for _, st := range statuses {
		switch {
		case !st.Healthy:
			checks[st.Name] = "unhealthy: " + st.Detail
		case st.Detail != "":
			checks[st.Name] = st.Detail
		default:
			checks[st.Name] = "ok"
		}
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{
		"status":  statusWord(healthy),
		"checks":  checks,
		"version": "1.0.0",
	})
}

func (s *Server) handleLive(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleReady(c *gin.Context) {
	if !s.ready.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func statusWord(healthy bool) string {
	if healthy {
		return "healthy"
	}
	return "unhealthy"
}

// Run starts the server and blocks until the context is cancelled or a
// termination signal arrives.
func (s *Server) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancelRunCtx = cancel

	if s.cfg.OTLPEndpoint != "" {
		shutdown, err := traces.Init(runCtx, s.cfg.OTLPEndpoint, s.logger)
		if err != nil {
			s.logger.Warn("tracing init failed", "error", err)
		} else {
			s.tracesShutdown = shutdown
		}
	}

	go s.hub.Run(runCtx)
	if s.db != nil {
		go metrics.StartDBStatsCollector(runCtx, s.db, 15*time.Second)
	}

	s.httpSrv = &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.router,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "port", s.cfg.Port, "env", s.cfg.Env)
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	go func() {
		time.Sleep(100 * time.Millisecond)
		s.ready.Store(true)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		s.logger.Info("received signal, shutting down", "signal", sig.String())
	case <-ctx.Done():
		s.logger.Info("context cancelled, shutting down")
	}

	return s.Shutdown()
}

// Shutdown drains in-flight requests and releases resources.
func (s *Server) Shutdown() error {
	s.ready.Store(false)
	if s.cancelRunCtx != nil {
		s.cancelRunCtx()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var firstErr error
	if s.httpSrv != nil {
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			firstErr = fmt.Errorf("http shutdown: %w", err)
		}
	}
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
	if s.tracesShutdown != nil {
		if err := s.tracesShutdown(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("traces shutdown: %w", err)
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("db close: %w", err)
		}
	}

	s.logger.Info("shutdown complete")
	return firstErr
}

// Router exposes the gin engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func splitOrigins(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// maskDSN hides credentials in a connection string for logging.
func maskDSN(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	if at == -1 {
		return dsn
	}
	scheme := strings.Index(dsn, "://")
	if scheme == -1 {
		return "***" + dsn[at:]
	}
	return dsn[:scheme+3] + "***" + dsn[at:]
}
