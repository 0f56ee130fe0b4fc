// Package api exposes the HTTP surface over the case service.
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/casepulse/casepulse/internal/metrics"
)

// RegisterRoutes wires the API routes onto the router.
func RegisterRoutes(router *gin.Engine, h *Handlers) {
	api := router.Group("/api")
	{
		api.POST("/search", h.Search)
		api.GET("/cases/:id", h.GetCase)
		api.POST("/cases/:id/summary", h.GenerateSummary)
		api.GET("/history", h.History)
		api.GET("/orders/:id/document", h.GetOrderDocument)

		api.GET("/health", h.Health)
		api.GET("/cache/stats", h.CacheStats)
		api.GET("/stats", h.Stats)
	}

	router.GET("/metrics", gin.WrapH(metrics.Handler()))
}
