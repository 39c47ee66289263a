package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/feichai0017/docfiler/api/handlers"
	"github.com/feichai0017/docfiler/api/middleware"
)

// SetupRoutes wires all HTTP endpoints.
func SetupRoutes(r *gin.Engine, h *handlers.Handlers) {
	r.Use(middleware.CORS())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")

	docs := v1.Group("/documents")
	{
		docs.POST("/upload", h.OCR.Upload)
		docs.POST("/batch", h.OCR.ProcessBatch)
		docs.POST("/preview", h.OCR.Preview)
		docs.POST("/override", h.OCR.Override)
		docs.POST("/retry", h.OCR.Retry)
		docs.GET("/status/:documentId", h.OCR.GetStatus)
	}

	tasks := v1.Group("/tasks")
	{
		tasks.GET("/:taskId", h.OCR.GetTaskStatus)
		tasks.DELETE("/:taskId", h.OCR.CancelTask)
	}
}
