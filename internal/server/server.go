// Package server wires the pipeline and exposes the HTTP surface.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/bldgsense/sensoria/internal/analytics"
	"github.com/bldgsense/sensoria/internal/artifact"
	"github.com/bldgsense/sensoria/internal/config"
	"github.com/bldgsense/sensoria/internal/decision"
	"github.com/bldgsense/sensoria/internal/kg"
	"github.com/bldgsense/sensoria/internal/llm"
	"github.com/bldgsense/sensoria/internal/pipeline"
	"github.com/bldgsense/sensoria/internal/registry"
	"github.com/bldgsense/sensoria/internal/resolve"
	"github.com/bldgsense/sensoria/internal/session"
	"github.com/bldgsense/sensoria/internal/summary"
	"github.com/bldgsense/sensoria/internal/telemetry"
	"github.com/bldgsense/sensoria/internal/translate"

	_ "github.com/lib/pq"
)

type Server struct {
	Pipeline *pipeline.Pipeline
	Sensors  *registry.Sensors
	Store    kg.Store
	DB       *sql.DB
	logger   *zap.Logger
}

func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Server, error) {
	applyEnvOverrides(cfg)

	store, err := newStore(cfg.Graph, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to knowledge store: %w", err)
	}

	db, err := sql.Open("postgres", cfg.Telemetry.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open telemetry store: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	llmClient, err := llm.NewClient(ctx, cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize llm client: %w", err)
	}

	sensors := registry.NewSensors(store, cfg.Registry.SensorTTL(), logger)
	caps := registry.NewCapabilities(
		registry.NewHTTPCapabilitySource(cfg.Analytics.CapabilityEndpoint, timeout(cfg.Analytics.TimeoutSeconds)),
		cfg.Registry.CapabilityTTL(),
		logger,
	)

	pipe := &pipeline.Pipeline{
		Resolver: resolve.NewResolver(cfg.Registry.FuzzyThreshold, logger),
		Translator: translate.NewAdapter(
			cfg.Translator.Endpoint,
			timeout(cfg.Translator.TimeoutSeconds),
			llmClient,
			cfg.Prompts.Translation,
			logger,
		),
		Store:   store,
		Sensors: sensors,
		Engine: decision.NewEngine(
			decision.NewHTTPClassifier(cfg.Decision.Endpoint, timeout(cfg.Decision.TimeoutSeconds)),
			caps,
			logger,
		),
		Fetcher:    telemetry.NewFetcher(db, cfg.Telemetry.Table, cfg.Telemetry.TimestampColumn, logger),
		Invoker:    analytics.NewInvoker(cfg.Analytics.Endpoint, timeout(cfg.Analytics.TimeoutSeconds), logger),
		Summarizer: summary.NewSummarizer(llmClient, cfg.Prompts.Summary, logger),
		Sessions:   session.NewRedisStore(rdb, 0),
		Artifacts:  artifact.NewStore(cfg.Artifacts.Dir, logger),
		Logger:     logger,
	}

	return &Server{
		Pipeline: pipe,
		Sensors:  sensors,
		Store:    store,
		DB:       db,
		logger:   logger,
	}, nil
}

func newStore(cfg config.GraphConfig, logger *zap.Logger) (kg.Store, error) {
	switch cfg.Provider {
	case "sparql":
		return kg.NewSPARQLStore(cfg.Endpoint, timeout(cfg.TimeoutSeconds), logger), nil
	case "cypher":
		return kg.NewCypherStore(cfg.URI, cfg.User, cfg.Password, logger)
	default:
		return nil, fmt.Errorf("unsupported graph provider: %s", cfg.Provider)
	}
}

func timeout(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}

func applyEnvOverrides(cfg *config.Config) {
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		cfg.LLM.Provider = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("GRAPH_ENDPOINT"); v != "" {
		cfg.Graph.Endpoint = v
	}
	if v := os.Getenv("REDIS_ADDRESS"); v != "" {
		cfg.Redis.Address = v
	}
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.Default()

	r.POST("/ask", s.Ask)
	r.GET("/sensors", s.ListSensors)
	r.GET("/healthz", s.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

type askRequest struct {
	SessionID string `json:"session_id"`
	Question  string `json:"question" binding:"required"`
	Start     string `json:"start"`
	End       string `json:"end"`
	Verbose   bool   `json:"verbose"`
}

func (s *Server) Ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: question is required"})
		return
	}

	resp, err := s.Pipeline.Ask(c.Request.Context(), pipeline.Request{
		SessionID: req.SessionID,
		Question:  req.Question,
		Start:     req.Start,
		End:       req.End,
		Verbose:   req.Verbose,
	})
	if err != nil {
		s.logger.Error("pipeline failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) ListSensors(c *gin.Context) {
	names := s.Sensors.Snapshot(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"sensors": names})
}

func (s *Server) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) Close(ctx context.Context) {
	if err := s.Store.Close(ctx); err != nil {
		s.logger.Warn("failed to close knowledge store", zap.Error(err))
	}
	if err := s.DB.Close(); err != nil {
		s.logger.Warn("failed to close telemetry store", zap.Error(err))
	}
}
