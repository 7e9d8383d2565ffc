package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"smc-signal-engine/internal/database"
	"smc-signal-engine/internal/engine"
	"smc-signal-engine/internal/store"
)

// OutcomeStore is the slice of the database layer the handlers use. Nil when
// outcome history is disabled; *database.DB satisfies it.
type OutcomeStore interface {
	HealthCheck(ctx context.Context) error
	CreateEvaluation(ctx context.Context, eval *database.SignalEvaluation) error
	GetEvaluationByID(ctx context.Context, id string) (*database.SignalEvaluation, error)
	CreateOutcome(ctx context.Context, outcome *database.SignalOutcome) error
	GetUntrainedOutcomes(ctx context.Context, limit int) ([]*database.SignalOutcome, error)
	MarkOutcomesTrained(ctx context.Context, ids []int64) error
	GetOutcomeStats(ctx context.Context, symbol string, since time.Time) (wins, losses int, err error)
}

// Server represents the HTTP API server
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	engine     *engine.Engine
	db         OutcomeStore
	snapshots  *store.SnapshotStore
	config     ServerConfig
	logger     zerolog.Logger
	startedAt  time.Time
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host           string
	Port           int
	AllowedOrigins string
	ProductionMode bool
}

// NewServer creates a new API server
func NewServer(
	config ServerConfig,
	eng *engine.Engine,
	db OutcomeStore, // Can be nil when outcome history is disabled
	snapshots *store.SnapshotStore,
	logger zerolog.Logger,
) *Server {
	if config.ProductionMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if config.AllowedOrigins == "" || config.AllowedOrigins == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = strings.Split(config.AllowedOrigins, ",")
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type"}
	router.Use(cors.New(corsConfig))

	server := &Server{
		router:    router,
		engine:    eng,
		db:        db,
		snapshots: snapshots,
		config:    config,
		logger:    logger.With().Str("component", "api").Logger(),
		startedAt: time.Now(),
	}

	server.setupRoutes()

	return server
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	api := s.router.Group("/api")
	{
		api.POST("/signal", s.handleSignal)
		api.POST("/outcome", s.handleOutcome)
		api.POST("/train", s.handleTrain)
		api.GET("/policy/state", s.handlePolicyState)
		api.GET("/reward/:symbol", s.handleRewardMemory)
		api.GET("/evaluation/:id", s.handleEvaluation)
	}
}

// Start runs the HTTP server and blocks until it stops
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info().Str("addr", addr).Msg("starting HTTP server")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down HTTP server")

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}

	return nil
}

// Router exposes the gin engine for tests
func (s *Server) Router() *gin.Engine {
	return s.router
}

// handleHealth returns server health status
func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	dbStatus := "disabled"
	healthy := true
	if s.db != nil {
		if err := s.db.HealthCheck(ctx); err != nil {
			dbStatus = "unhealthy"
			healthy = false
		} else {
			dbStatus = "healthy"
		}
	}

	redisStatus := "disabled"
	if s.snapshots != nil {
		if s.snapshots.RedisAvailable() {
			redisStatus = "healthy"
		} else {
			redisStatus = "fallback"
		}
	}

	status := "healthy"
	code := http.StatusOK
	if !healthy {
		status = "unhealthy"
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":   status,
		"database": dbStatus,
		"redis":    redisStatus,
		"uptime":   time.Since(s.startedAt).Round(time.Second).String(),
	})
}

// errorResponse is a helper to send error responses
func errorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"error":   true,
		"message": message,
	})
}

// successResponse is a helper to send success responses
func successResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}
