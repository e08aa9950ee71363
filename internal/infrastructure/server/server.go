package server

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/venuely/editor-bridge/internal/api/http"
	"github.com/venuely/editor-bridge/internal/api/middleware"
	"github.com/venuely/editor-bridge/internal/api/ws"
	"github.com/venuely/editor-bridge/internal/domain/editor"
	"github.com/venuely/editor-bridge/internal/drafts"
	"github.com/venuely/editor-bridge/internal/infrastructure/config"
	"github.com/venuely/editor-bridge/internal/infrastructure/logging"
	"github.com/venuely/editor-bridge/internal/infrastructure/monitoring"
	"github.com/venuely/editor-bridge/internal/infrastructure/tracing"
	"github.com/venuely/editor-bridge/internal/profile"
	"github.com/venuely/editor-bridge/internal/shared/clock"
)

// Server wraps the HTTP router and the domain components behind it.
type Server struct {
	router        *gin.Engine
	editorManager *editor.Manager
	profiles      *profile.Registry
	journal       *drafts.Journal
	logger        *logging.Logger
	config        *config.Config
	metrics       *monitoring.Metrics
	tracer        *tracing.Tracer

	reapCancel context.CancelFunc
}

// NewServer assembles the service from configuration.
func NewServer(cfg *config.Config) (*Server, error) {
	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		OutputPaths: []string{"stdout"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	logger.Info("Initializing editor bridge",
		zap.String("host", cfg.Server.Host),
		zap.String("port", cfg.Server.Port),
		zap.Duration("debounce", cfg.Editor.Debounce),
		zap.Duration("suppression", cfg.Editor.Suppression),
	)

	// Initialize metrics first (needed by other components)
	metrics := monitoring.NewMetrics()
	tracer := tracing.New("venuely-editor-bridge", logger)

	profiles := profile.NewRegistry(logger)
	if cfg.Profiles.Dir != "" {
		n, err := profiles.LoadDir(context.Background(), cfg.Profiles.Dir)
		if err != nil {
			return nil, fmt.Errorf("failed to load profiles: %w", err)
		}
		logger.Info("Profiles loaded",
			zap.Int("count", n),
			zap.String("dir", cfg.Profiles.Dir))
	}

	var journal *drafts.Journal
	if cfg.Drafts.Dir != "" {
		journal, err = drafts.NewJournal(cfg.Drafts.Dir, clock.Real(), logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open draft journal: %w", err)
		}
	}

	editorManager := editor.NewManager(editor.Options{
		DebounceInterval: cfg.Editor.Debounce,
		SuppressionTTL:   cfg.Editor.Suppression,
		IdleTTL:          cfg.Editor.IdleTTL,
		ClosedRetention:  cfg.Editor.ClosedRetention,
		ReapInterval:     cfg.Editor.ReapInterval,
		MaxSessions:      cfg.Editor.MaxSessions,
	}, profiles, journal, clock.Real(), logger).WithMetrics(metrics)

	if journal != nil && cfg.Drafts.Recover {
		n, err := editorManager.RecoverDrafts()
		if err != nil {
			logger.Warn("Draft recovery incomplete", zap.Error(err))
		}
		if n > 0 {
			logger.Info("Sessions recovered from drafts", zap.Int("count", n))
		}
	}

	reapCtx, reapCancel := context.WithCancel(context.Background())
	go editorManager.Run(reapCtx)

	// Create router
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.CORSWithOrigins(cfg.CORS.Origins)))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	// Create handlers
	handlers := http.NewHandlers(editorManager, profiles, metrics, logger)
	wsHandler := ws.NewHandler(editorManager, metrics, cfg.WS, logger)

	// Register routes
	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)

	// Editor sessions
	router.POST("/editors", handlers.CreateEditor)
	router.GET("/editors", handlers.ListEditors)
	router.GET("/editors/:id", handlers.GetEditor)
	router.GET("/editors/:id/content", handlers.GetContent)
	router.PUT("/editors/:id/content", handlers.PutContent)
	router.DELETE("/editors/:id", handlers.CloseEditor)

	// Sandbox surface attachment
	router.GET("/editors/:id/attach", wsHandler.Attach)

	// Profiles
	router.GET("/profiles", handlers.ListProfiles)
	router.GET("/profiles/:id", handlers.GetProfile)

	// Surface log ingestion
	router.POST("/logs", handlers.StreamLogs)

	// Metrics endpoints
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/stats/sync", handlers.SyncStats)

	logger.Info("Server initialized successfully")

	return &Server{
		router:        router,
		editorManager: editorManager,
		profiles:      profiles,
		journal:       journal,
		logger:        logger,
		config:        cfg,
		metrics:       metrics,
		tracer:        tracer,
		reapCancel:    reapCancel,
	}, nil
}

// Run starts the HTTP server.
func (s *Server) Run() error {
	addr := s.config.Server.Host + ":" + s.config.Server.Port
	s.logger.Info("Starting HTTP server", zap.String("addr", addr))
	return s.router.Run(addr)
}

// Router exposes the assembled engine for callers that serve it
// themselves, such as tests mounting it on httptest.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Close gracefully shuts down the server: the reaper stops and every
// live attachment is drained, which closes its surface socket.
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")

	s.reapCancel()
	s.editorManager.Shutdown()
	s.tracer.Close()

	// Sync logger before exit
	s.logger.Sync()

	return nil
}
