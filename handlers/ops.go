package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Readiness reports each dependency and whether the service is ready.
type Readiness func() (deps map[string]bool, ready bool)

// RegisterHealth mounts /health and /ready.
func RegisterHealth(r *gin.Engine, started time.Time, ready Readiness) {
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	// readiness endpoint: 200 only when configuration and backends are usable
	r.GET("/ready", func(c *gin.Context) {
		deps, ok := ready()
		uptime := time.Since(started).Round(time.Second).String()
		if !ok {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "deps": deps, "uptime": uptime})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready", "deps": deps, "uptime": uptime})
	})
}
