// Package server assembles the HTTP router.
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"stockfolio/internal/handlers"
	"stockfolio/internal/middleware"
)

// Handlers groups the request handlers mounted by NewRouter.
type Handlers struct {
	Holding      *handlers.HoldingHandler
	Distribution *handlers.DistributionHandler
	Quote        *handlers.QuoteHandler
}

// NewRouter builds the gin engine with middleware and all routes. Pipeline
// routes answer 503 when pipelineAPIKey is empty.
func NewRouter(h Handlers, pipelineAPIKey string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Metrics())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key, X-Request-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")

	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	holdings := protected.Group("/holdings")
	holdings.POST("/import", h.Holding.ImportHoldings)
	holdings.POST("/refresh-prices", h.Quote.RefreshPrices)
	holdings.POST("", h.Holding.CreateHolding)
	holdings.GET("", h.Holding.GetUserHoldings)
	holdings.DELETE("", h.Holding.DeleteAllHoldings)
	holdings.GET("/:id", h.Holding.GetHolding)
	holdings.PUT("/:id", h.Holding.UpdateHolding)
	holdings.DELETE("/:id", h.Holding.DeleteHolding)

	protected.GET("/portfolio/summary", h.Holding.GetPortfolioSummary)

	distributions := protected.Group("/distributions")
	distributions.POST("/sync", h.Distribution.SyncDistributions)
	distributions.GET("/summary", h.Distribution.GetDistributionSummary)
	distributions.GET("", h.Distribution.GetUserDistributions)
	distributions.POST("", h.Distribution.CreateDistribution)
	distributions.DELETE("", h.Distribution.DeleteAllDistributions)

	protected.GET("/instruments/:ticker", h.Quote.GetInstrument)

	pipeline := v1.Group("/pipeline")
	pipeline.Use(middleware.PipelineAuthMiddleware(pipelineAPIKey))
	pipeline.POST("/users/:user_id/distributions/sync", h.Distribution.PipelineSyncDistributions)

	return router
}
