package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/iwsa/browser"
	"github.com/use-agent/iwsa/models"
)

// Health returns a handler for GET /api/v1/health.
//
// Reports pool utilisation and degrades status when > 80% of instances are active.
func Health(pool *browser.Pool, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		max := pool.MaxInstances()
		active := pool.ActiveCount()

		status := "healthy"
		if max > 0 && active > int(float64(max)*0.8) {
			status = "degraded"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status: status,
			Uptime: time.Since(startTime).Round(time.Second).String(),
			PoolStats: models.PoolStats{
				MaxInstances:    max,
				ActiveInstances: active,
			},
			Version: "0.1.0",
		})
	}
}
