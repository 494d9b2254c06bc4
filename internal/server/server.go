package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pearl/internal/job"
	"pearl/internal/logging"
)

// AgentService is the orchestrator surface the transport needs.
type AgentService interface {
	Submit(goal string, maxIterations int) (string, error)
	Status(id string) (job.View, error)
}

// Config holds HTTP server settings.
type Config struct {
	Host              string
	Port              int
	EnableCORS        bool
	Debug             bool
	DefaultIterations int
}

// Server is the thin HTTP boundary in front of the orchestrator.
type Server struct {
	service    AgentService
	config     Config
	engine     *gin.Engine
	httpServer *http.Server
	logger     logging.Logger
}

// New creates the HTTP server and wires its routes.
func New(service AgentService, config Config, gatherer prometheus.Gatherer, logger logging.Logger) *Server {
	if config.DefaultIterations <= 0 {
		config.DefaultIterations = 3
	}
	if !config.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	if config.EnableCORS {
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
		corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
		engine.Use(cors.New(corsConfig))
	}

	s := &Server{
		service: service,
		config:  config,
		engine:  engine,
		logger:  logging.OrNop(logger),
	}

	engine.POST("/agent/run", s.handleRun)
	engine.GET("/agent/status/:id", s.handleStatus)
	engine.GET("/healthz", s.handleHealth)
	if gatherer != nil {
		engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	return s
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves until the listener fails or Stop is called.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.engine,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	s.logger.Info("HTTP server listening on %s", addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Stop shuts the listener down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
