package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	handlers "github.com/GriffinCanCode/coderoom/backend/internal/api/http"
	"github.com/GriffinCanCode/coderoom/backend/internal/api/middleware"
	"github.com/GriffinCanCode/coderoom/backend/internal/api/ws"
	"github.com/GriffinCanCode/coderoom/backend/internal/domain/room"
	"github.com/GriffinCanCode/coderoom/backend/internal/infrastructure/config"
	"github.com/GriffinCanCode/coderoom/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/coderoom/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/coderoom/backend/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/coderoom/backend/internal/sandbox"
)

// ShutdownTimeout bounds how long Close waits for open requests
const ShutdownTimeout = 10 * time.Second

// Server wraps the HTTP server and dependencies
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	registry   *room.Registry
	hub        *ws.Hub
	pool       *sandbox.Pool
	logger     *logging.Logger
	config     *config.Config
	metrics    *monitoring.Metrics
	tracer     *tracing.Tracer

	stopHub context.CancelFunc
	hubDone chan struct{}
}

// NewServer creates a new server instance and starts its event hub
func NewServer(cfg *config.Config) (*Server, error) {
	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	logger.Info("Initializing code room server",
		zap.String("addr", cfg.Addr()),
		zap.String("allowed_origin", cfg.Server.AllowedOrigin),
	)

	// Initialize metrics first (needed by other components)
	metrics := monitoring.NewMetrics()
	tracer := tracing.New("coderoom", logger.Logger)

	pool, err := sandbox.NewPool(sandbox.Config{
		Timeout:      cfg.Sandbox.Timeout,
		MaxCallStack: cfg.Sandbox.MaxCallStack,
		PoolSize:     cfg.Sandbox.PoolSize,
	})
	if err != nil {
		tracer.Close()
		return nil, fmt.Errorf("failed to create sandbox pool: %w", err)
	}
	logger.Info("Sandbox pool ready",
		zap.Int("size", cfg.Sandbox.PoolSize),
		zap.Duration("timeout", cfg.Sandbox.Timeout),
	)

	registry := room.NewRegistry().WithMetrics(metrics)
	hub := ws.NewHub(registry, pool, logger, ws.HubConfig{
		BreakerFailures: cfg.Sandbox.BreakerFailures,
		BreakerCooldown: cfg.Sandbox.BreakerCooldown,
	}).WithMetrics(metrics).WithTracer(tracer)

	hubCtx, stopHub := context.WithCancel(context.Background())
	hubDone := make(chan struct{})
	go func() {
		defer close(hubDone)
		hub.Run(hubCtx)
	}()

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(middleware.Recovery(logger))
	router.Use(middleware.RequestLogger(logger))
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.Server.AllowedOrigin)))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
			zap.Bool("global", cfg.RateLimit.Global),
		)
		limits := middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}
		if cfg.RateLimit.Global {
			router.Use(middleware.GlobalRateLimit(limits))
		} else {
			router.Use(middleware.RateLimit(limits))
		}
	}

	h := handlers.NewHandlers(registry, hub, pool, metrics, logger)
	wsHandler := ws.NewHandler(hub, ws.HandlerConfig{
		AllowedOrigin:     cfg.Server.AllowedOrigin,
		MaxMessageBytes:   cfg.WebSocket.MaxMessageBytes,
		MessagesPerSecond: cfg.WebSocket.MessagesPerSecond,
		MessageBurst:      cfg.WebSocket.MessageBurst,
	}, logger)

	router.GET("/", h.Root)
	router.GET("/health", h.Health)

	api := router.Group("/api")
	{
		api.GET("/stats", h.Stats)
		api.GET("/rooms", h.ListRooms)
		api.POST("/rooms", h.CreateRoom)
		api.GET("/rooms/:id", h.GetRoom)
	}

	// Event channel
	router.GET("/ws", wsHandler.HandleConnection)

	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	logger.Info("Server initialized successfully")

	return &Server{
		router: router,
		httpServer: &http.Server{
			Addr:              cfg.Addr(),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		registry: registry,
		hub:      hub,
		pool:     pool,
		logger:   logger,
		config:   cfg,
		metrics:  metrics,
		tracer:   tracer,
		stopHub:  stopHub,
		hubDone:  hubDone,
	}, nil
}

// Handler returns the router, for mounting under a test server
func (s *Server) Handler() http.Handler {
	return s.router
}

// Logger returns the server's logger
func (s *Server) Logger() *logging.Logger {
	return s.logger
}

// Run starts the HTTP server and blocks until it stops. A stop caused by
// Shutdown is not an error.
func (s *Server) Run() error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests, then stops the hub, which cancels
// running compiles and closes every connection.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")

	var errs []error
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown failed", zap.Error(err))
		errs = append(errs, fmt.Errorf("failed to shut down http server: %w", err))
	}

	s.stopHub()
	select {
	case <-s.hubDone:
		s.logger.Info("Event hub stopped")
	case <-ctx.Done():
		errs = append(errs, fmt.Errorf("event hub did not stop: %w", ctx.Err()))
	}

	if err := s.pool.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close sandbox pool: %w", err))
	}
	s.tracer.Close()

	// Sync logger before exit
	_ = s.logger.Sync()

	return errors.Join(errs...)
}

// Close shuts the server down within ShutdownTimeout
func (s *Server) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	return s.Shutdown(ctx)
}
