// Package server wires the HTTP API, WebSocket hub, and background
// collectors into a single runnable unit.
package server

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"

	"github.com/dmarsh/chainboard/internal/advisor"
	"github.com/dmarsh/chainboard/internal/analyzer"
	"github.com/dmarsh/chainboard/internal/chaindata"
	"github.com/dmarsh/chainboard/internal/config"
	"github.com/dmarsh/chainboard/internal/gasprice"
	"github.com/dmarsh/chainboard/internal/logging"
	"github.com/dmarsh/chainboard/internal/metrics"
	"github.com/dmarsh/chainboard/internal/ratelimit"
	"github.com/dmarsh/chainboard/internal/realtime"
	"github.com/dmarsh/chainboard/internal/risk"
	"github.com/dmarsh/chainboard/internal/security"
	"github.com/dmarsh/chainboard/internal/traces"
	"github.com/dmarsh/chainboard/internal/validation"
)

// Server is the top-level application container.
type Server struct {
	cfg          *config.Config
	store        chaindata.Store
	engine       *risk.Engine
	oracle       *gasprice.Oracle
	collector    *chaindata.Collector
	realtimeHub  *realtime.Hub
	rateLimiter  *ratelimit.Limiter
	db           *sql.DB // nil if using in-memory
	router       *gin.Engine
	httpSrv      *http.Server
	logger       *slog.Logger
	shutdownTrc  func(context.Context) error
	cancelRunCtx context.CancelFunc // cancels background goroutines started in Run

	// Health state
	ready   atomic.Bool
	healthy atomic.Bool
}

// Option configures the server
type Option func(*Server)

// WithLogger sets a custom logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithEngine sets a custom risk engine (for testing)
func WithEngine(engine *risk.Engine) Option {
	return func(s *Server) {
		s.engine = engine
	}
}

// WithStore sets a custom chain data store (for testing)
func WithStore(store chaindata.Store) Option {
	return func(s *Server) {
		s.store = store
	}
}

// New creates a new server instance
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		logger: logging.New(cfg.LogLevel, "json"),
	}

	// Apply options first (may set store/engine/logger)
	for _, opt := range opts {
		opt(s)
	}

	// Initialize storage (Postgres if DATABASE_URL set, otherwise in-memory)
	if s.store == nil {
		if cfg.DatabaseURL != "" {
			db, err := sql.Open("postgres", cfg.DatabaseURL)
			if err != nil {
				return nil, fmt.Errorf("failed to open database: %w", err)
			}

			// Configure connection pool
			db.SetMaxOpenConns(25)
			db.SetMaxIdleConns(5)
			db.SetConnMaxLifetime(5 * time.Minute)

			// Test connection
			if err := db.Ping(); err != nil {
				return nil, fmt.Errorf("failed to connect to database: %w", err)
			}

			s.db = db
			s.store = chaindata.NewPostgresStore(db)
			s.logger.Info("using PostgreSQL storage", "url", maskDSN(cfg.DatabaseURL))
		} else {
			s.store = chaindata.NewMemoryStore()
			s.logger.Info("using in-memory storage (set DATABASE_URL for persistence)")
		}
	}

	// Real-time hub for WebSocket clients
	s.realtimeHub = realtime.NewHub(s.logger)

	// Risk engine: address analyzer + gas oracle, AI advice when configured
	if s.engine == nil {
		addrAnalyzer, err := analyzer.New(cfg.RPCURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create analyzer: %w", err)
		}

		oracle, err := gasprice.New(cfg.RPCURL, cfg.GasCacheTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to create gas oracle: %w", err)
		}
		s.oracle = oracle

		var engineOpts []risk.Option
		if cfg.OpenAIKey != "" {
			adv, err := advisor.New(cfg.OpenAIKey, cfg.OpenAIModel)
			if err != nil {
				return nil, fmt.Errorf("failed to create advisor: %w", err)
			}
			engineOpts = append(engineOpts, risk.WithAdvisor(adv))
			s.logger.Info("AI recommendations enabled", "model", cfg.OpenAIModel)
		} else {
			s.logger.Info("AI recommendations disabled (set OPENAI_API_KEY to enable)")
		}

		s.engine = risk.NewEngine(addrAnalyzer, &oracleAdapter{oracle}, engineOpts...)
	}

	// Block collector feeds the store and the realtime hub
	collector, err := chaindata.NewCollector(
		cfg.RPCURL, cfg.ChainID, s.store, cfg.CollectInterval,
		chaindata.WithEmitter(&hubBlockEmitter{s.realtimeHub}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create collector: %w", err)
	}
	s.collector = collector

	// Set Gin mode based on environment
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	s.router = gin.New()
	s.setupMiddleware()
	s.setupRoutes()

	s.healthy.Store(true)

	return s, nil
}

// maskDSN hides credentials in a connection string for logging
func maskDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "(unparseable)"
	}
	if u.User != nil {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}

// -----------------------------------------------------------------------------
// Middleware
// -----------------------------------------------------------------------------

func (s *Server) setupMiddleware() {
	// Recovery with logging
	s.router.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logging.L(c.Request.Context()).Error("panic recovered",
			"error", recovered,
			"path", c.Request.URL.Path,
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error": "internal error",
		})
	}))

	// Security headers
	s.router.Use(security.HeadersMiddleware())

	// CORS (allow all origins for demo - restrict in production)
	s.router.Use(security.CORSMiddleware([]string{"*"}))

	// Request size limit (1MB)
	s.router.Use(validation.RequestSizeMiddleware(validation.MaxRequestSize))

	// Rate limiting
	rlCfg := ratelimit.DefaultConfig()
	rlCfg.RequestsPerMinute = s.cfg.RateLimitRPM
	s.rateLimiter = ratelimit.New(rlCfg)
	s.router.Use(s.rateLimiter.Middleware())

	// Prometheus metrics
	s.router.Use(metrics.Middleware())

	// Request ID
	s.router.Use(s.requestIDMiddleware())

	// Logging
	s.router.Use(s.loggingMiddleware())
}

func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Check for existing request ID (from load balancer, etc.)
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = generateRequestID()
		}

		// Add to context
		ctx := logging.WithRequestID(c.Request.Context(), requestID)
		ctx = logging.WithLogger(ctx, s.logger)
		c.Request = c.Request.WithContext(ctx)

		// Set response header
		c.Header("X-Request-ID", requestID)

		c.Next()
	}
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		logger := logging.L(c.Request.Context())

		// Log level based on status code
		switch {
		case status >= 500:
			logger.Error("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
				"client_ip", c.ClientIP(),
			)
		case status >= 400:
			logger.Warn("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		default:
			logger.Info("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		}
	}
}

// -----------------------------------------------------------------------------
// Routes
// -----------------------------------------------------------------------------

func (s *Server) setupRoutes() {
	// Health & metrics endpoints
	s.router.GET("/health", s.healthHandler)
	s.router.GET("/health/live", s.livenessHandler)
	s.router.GET("/health/ready", s.readinessHandler)
	s.router.GET("/metrics", metrics.Handler())

	// API info
	s.router.GET("/api", s.infoHandler)

	// WebSocket for real-time streaming
	s.router.GET("/ws", func(c *gin.Context) {
		s.realtimeHub.HandleWebSocket(c.Writer, c.Request)
	})

	// V1 API group
	v1 := s.router.Group("/v1")

	// Risk assessment
	riskHandler := risk.NewHandler(s.engine)
	if s.realtimeHub != nil {
		riskHandler = riskHandler.WithEvents(&hubAssessmentEmitter{s.realtimeHub})
	}
	riskHandler.RegisterRoutes(v1)

	// Chain data (blocks, transactions, network stats)
	chaindata.NewHandler(s.store).RegisterRoutes(v1)

	// Gas prices
	if s.oracle != nil {
		gasprice.NewHandler(s.oracle).RegisterRoutes(v1)
	}
}

// -----------------------------------------------------------------------------
// Handlers
// -----------------------------------------------------------------------------

// HealthResponse for health check endpoints
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Checks    map[string]string `json:"checks,omitempty"`
	Timestamp string            `json:"timestamp"`
}

func (s *Server) healthHandler(c *gin.Context) {
	checks := make(map[string]string)

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	// Check database connectivity when configured
	if s.db != nil {
		if err := s.db.PingContext(ctx); err != nil {
			checks["database"] = "unhealthy"
		} else {
			checks["database"] = "healthy"
		}
	}

	// Check the chain data store
	if _, err := s.store.Stats(ctx); err != nil {
		checks["store"] = "unhealthy"
	} else {
		checks["store"] = "healthy"
	}

	status := "healthy"
	httpStatus := http.StatusOK
	for _, v := range checks {
		if v != "healthy" {
			status = "degraded"
			httpStatus = http.StatusServiceUnavailable
			break
		}
	}

	c.JSON(httpStatus, HealthResponse{
		Status:    status,
		Version:   "0.1.0",
		Checks:    checks,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) livenessHandler(c *gin.Context) {
	if !s.healthy.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

func (s *Server) readinessHandler(c *gin.Context) {
	if !s.ready.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (s *Server) infoHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":        "Chainboard",
		"description": "Transaction risk assessment and chain monitoring",
		"version":     "0.1.0",
		"chainId":     s.cfg.ChainID,
	})
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Run starts the HTTP server and background workers, blocking until a
// shutdown signal arrives or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	// Create a cancellable context for background goroutines so Shutdown() can stop them.
	runCtx, cancel := context.WithCancel(ctx)
	s.cancelRunCtx = cancel

	// Traces (no-op when no OTLP endpoint configured)
	shutdownTrc, err := traces.Init(runCtx, s.cfg.OTLPEndpoint, s.logger)
	if err != nil {
		s.logger.Warn("failed to initialize tracing", "error", err)
	} else {
		s.shutdownTrc = shutdownTrc
	}

	s.httpSrv = &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.router,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Channel to catch server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		s.logger.Info("starting server",
			"port", s.cfg.Port,
			"chain_id", s.cfg.ChainID,
		)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Start realtime hub
	go s.realtimeHub.Run(runCtx)

	// Start block collector
	if err := s.collector.Start(runCtx); err != nil {
		s.logger.Error("failed to start block collector", "error", err)
	}

	// Export DB pool stats while running
	if s.db != nil {
		go metrics.StartDBStatsCollector(runCtx, s.db, 15*time.Second)
	}

	// Mark as ready after brief delay for startup
	go func() {
		time.Sleep(100 * time.Millisecond)
		s.ready.Store(true)
		s.logger.Info("server ready")
	}()

	// Wait for shutdown signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		s.logger.Info("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		s.logger.Info("context cancelled")
	}

	return s.Shutdown()
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown() error {
	s.ready.Store(false)
	s.logger.Info("starting graceful shutdown")

	// Cancel the context for all background goroutines (hub, collector)
	if s.cancelRunCtx != nil {
		s.cancelRunCtx()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpSrv.Shutdown(ctx); err != nil {
		s.logger.Error("shutdown error", "error", err)
		return err
	}

	// Stop block collector
	if s.collector != nil {
		s.collector.Stop()
		s.logger.Info("block collector stopped")
	}

	// Stop rate limiter cleanup goroutine
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
		s.logger.Info("rate limiter stopped")
	}

	// Flush traces
	if s.shutdownTrc != nil {
		if err := s.shutdownTrc(ctx); err != nil {
			s.logger.Error("trace shutdown error", "error", err)
		}
	}

	// Close database connection pool
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("database close error", "error", err)
		} else {
			s.logger.Info("database connection closed")
		}
	}

	s.logger.Info("server stopped")
	return nil
}

// Router returns the gin router for testing
func (s *Server) Router() *gin.Engine {
	return s.router
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func generateRequestID() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp-based ID
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(bytes)
}

// -----------------------------------------------------------------------------
// Adapters
// -----------------------------------------------------------------------------

// oracleAdapter adapts gasprice.Oracle to risk.GasEstimator
type oracleAdapter struct {
	oracle *gasprice.Oracle
}

func (a *oracleAdapter) Optimization(ctx context.Context) (any, error) {
	return a.oracle.Current(ctx)
}

// hubBlockEmitter forwards collected blocks to WebSocket clients
type hubBlockEmitter struct {
	hub *realtime.Hub
}

func (e *hubBlockEmitter) EmitBlock(block *chaindata.Block) {
	e.hub.BroadcastBlock(block)
}

// hubAssessmentEmitter forwards completed assessments to WebSocket clients
type hubAssessmentEmitter struct {
	hub *realtime.Hub
}

func (e *hubAssessmentEmitter) EmitAssessment(assessment *risk.Assessment) {
	e.hub.BroadcastAssessment(assessment)
}
