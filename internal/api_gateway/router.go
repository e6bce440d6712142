package api_gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/claimpay/claims-core/internal/api_gateway/handler"
	"github.com/claimpay/claims-core/internal/api_gateway/middleware"
	"github.com/gin-gonic/gin"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	claimHandler *handler.ClaimHandler,
	providerHandler *handler.ProviderHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	// API v1 endpoints
	v1 := r.Group("/api/v1")
	{
		// Claim operations
		claims := v1.Group("/claims")
		{
			claims.POST("", claimHandler.Submit)
			claims.GET("/:id", claimHandler.GetByID)
			claims.GET("/:id/history", claimHandler.GetHistory)
			claims.GET("/:id/transactions", claimHandler.GetTransactions)
		}

		// Provider operations
		providers := v1.Group("/providers")
		{
			providers.POST("", providerHandler.Create)
			providers.GET("/:id", providerHandler.GetByID)
			providers.PUT("/:id/ehr", providerHandler.UpdateEHRSettings)
			providers.GET("/:id/claims", claimHandler.ListByProvider)
			providers.POST("/:id/sync", providerHandler.TriggerSync)
		}
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
