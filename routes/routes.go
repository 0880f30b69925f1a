package routes

import (
	"net/http"
	"time"

	"servicehub/handlers"
	"servicehub/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterAdminRoutes registers the operator maintenance endpoints.
func RegisterAdminRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	admin := r.Group("/admin")
	admin.Use(middleware.RateLimitMiddleware())
	admin.Use(middleware.JWTAuthAdminMiddleware())
	{
		admin.POST("/bookings/:id/transition", hb.TransitionBookingHandler)
		admin.POST("/bookings/:id/reset", hb.ResetBookingHandler)
		admin.POST("/conversations/:id/reconcile", hb.ReconcileConversationHandler)
		admin.POST("/conversations/:id/deleted/:userId/clear", hb.ClearDeletedFlagHandler)
		admin.POST("/providers/:id/stats", hb.RecomputeProviderStatsHandler)
	}
}

// RegisterHealthRoute registers liveness and metrics endpoints.
func RegisterHealthRoute(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.GET("/healthz", func(c *gin.Context) {
		if hb.HealthCheck == nil {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
			return
		}
		hb.HealthCheck(c)
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:   []string{"Content-Length"},
		MaxAge:          12 * time.Hour,
	}))

	RegisterHealthRoute(r, hb)
	RegisterAdminRoutes(r, hb)
}
