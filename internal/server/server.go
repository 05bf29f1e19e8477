package server

import (
	"net/http"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nulzo/ollama-openai-proxy/internal/analytics"
	"github.com/nulzo/ollama-openai-proxy/internal/cache"
	"github.com/nulzo/ollama-openai-proxy/internal/config"
	"github.com/nulzo/ollama-openai-proxy/internal/server/middleware"
	"github.com/nulzo/ollama-openai-proxy/internal/server/validator"
	"github.com/nulzo/ollama-openai-proxy/internal/upstream"
)

// serviceName identifies the proxy in traces and request logs.
const serviceName = "ollama-openai-proxy"

type Server struct {
	router    *gin.Engine
	config    *config.Config
	logger    *zap.Logger
	client    *upstream.Client
	cache     cache.CacheService
	ingestor  analytics.Ingestor
	analytics analytics.Service
}

func New(cfg *config.Config, logger *zap.Logger, client *upstream.Client, c cache.CacheService, ing analytics.Ingestor, svc analytics.Service) *Server {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	validator.InitValidator()

	engine := gin.New()
	engine.Use(ginzap.Ginzap(logger, time.RFC3339, true))
	engine.Use(ginzap.RecoveryWithZap(logger, true))
	engine.Use(middleware.Tracing(serviceName))
	engine.Use(middleware.CORS())
	engine.Use(middleware.Correlation())
	engine.Use(middleware.ErrorHandler())

	if cfg.RateLimit.RequestsPerSecond > 0 {
		limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, logger)
		engine.Use(limiter.Middleware())
	}

	s := &Server{
		router:    engine,
		config:    cfg,
		logger:    logger,
		client:    client,
		cache:     c,
		ingestor:  ing,
		analytics: svc,
	}

	s.SetupRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}
