package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/iwsa/api/handler"
	"github.com/use-agent/iwsa/api/middleware"
	"github.com/use-agent/iwsa/browser"
	"github.com/use-agent/iwsa/config"
	"github.com/use-agent/iwsa/executor"
	"github.com/use-agent/iwsa/orchestrator"
	"github.com/use-agent/iwsa/pipeline"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health endpoint is intentionally outside auth so monitoring probes always work.
func NewRouter(
	pool *browser.Pool,
	orch *orchestrator.Orchestrator,
	exec *executor.Executor,
	pipe *pipeline.Pipeline,
	cfg *config.Config,
	startTime time.Time,
) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	v1 := r.Group("/api/v1")

	// Health — no auth required.
	v1.GET("/health", handler.Health(pool, startTime))
	v1.GET("/llm/status", llmStatus(orch))

	// Protected group — auth + rate limit.
	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	// Agent (full C1→C2→C3 autonomous flow)
	protected.POST("/agent/scrape", handler.Agent(orch, exec, pipe))

	return r
}

// llmStatus reports per-backend health for the orchestrator's pool (spec §4.4).
func llmStatus(orch *orchestrator.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		report := orch.HealthCheck(c.Request.Context(), 5*time.Second)
		c.JSON(http.StatusOK, gin.H{
			"backends": report.Backends,
			"overall":  report.Overall,
		})
	}
}
