package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterDashboardRoutes mounts the read-only dashboard API under prefix.
func RegisterDashboardRoutes(r *gin.Engine, prefix string, dashboard *DashboardHandler) {
	api := r.Group(prefix)
	api.GET("/overview", dashboard.Overview)
	api.GET("/users", dashboard.Users)
	api.GET("/users/:id", dashboard.UserProfile)
	api.GET("/threads/:id", dashboard.Thread)
	api.GET("/leaderboard", dashboard.Leaderboard)
}

// RegisterHealthRoutes mounts liveness and readiness probes. ready reports
// the database reachability through the supplied check.
func RegisterHealthRoutes(r *gin.Engine, readyCheck func() error) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if readyCheck != nil {
			if err := readyCheck(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
}
