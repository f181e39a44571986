package api

import (
	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine, handler *Handler) {
	// Health check
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		v1.GET("/templates/:kind", handler.DownloadTemplate)

		imports := v1.Group("/imports")
		imports.POST("/:kind/preview", handler.PreviewImport)
		imports.GET("/sessions/:id", handler.GetSession)
		imports.POST("/sessions/:id/execute", handler.ExecuteImport)
		imports.DELETE("/sessions/:id", handler.DiscardSession)
		imports.GET("/history", handler.ListHistory)
	}
}

// NewRouter builds the engine with the standard middleware stack.
func NewRouter(handler *Handler) *gin.Engine {
	RegisterValidators()

	router := gin.New()
	router.Use(RecoveryMiddleware())
	router.Use(CORSMiddleware())
	router.Use(LoggingMiddleware())

	SetupRoutes(router, handler)
	return router
}
