package v1

import (
	"subdns/api/v1/middleware"
	"subdns/api/v1/ssl"
	"subdns/api/v1/subdomains"
	"subdns/internal/httpx"
	"subdns/internal/lifecycle"

	"github.com/gin-gonic/gin"
)

// SetupRouter sets up the API v1 routes
func SetupRouter(r *gin.Engine, service *lifecycle.Service) {
	r.Use(middleware.RequestID())

	v1 := r.Group("/api/v1")
	{
		// Public routes (no authentication required)
		v1.GET("/ping", pingHandler)

		// Protected routes (authentication required when configured)
		protected := v1.Group("")
		protected.Use(middleware.AuthRequired())
		{
			subsHandler := subdomains.NewHandler(service)
			subsGroup := protected.Group("/subdomains")
			{
				subsGroup.GET("", subsHandler.List)
				subsGroup.GET("/:name", subsHandler.Get)
				subsGroup.POST("/create", subsHandler.Register)
				subsGroup.POST("/update", subsHandler.Update)
				subsGroup.POST("/delete", subsHandler.Delete)
			}

			protected.GET("/resolve", subsHandler.Resolve)

			sslHandler := ssl.NewHandler(service)
			sslGroup := protected.Group("/ssl")
			{
				sslGroup.GET("", sslHandler.List)
				sslGroup.GET("/:name", sslHandler.Info)
				sslGroup.GET("/:name/status", sslHandler.Status)
				sslGroup.POST("/:name/regenerate", sslHandler.Regenerate)
				sslGroup.POST("/:name/delete", sslHandler.Remove)
			}
		}
	}
}

// pingHandler handles the ping request using unified response
func pingHandler(c *gin.Context) {
	httpx.OK(c, gin.H{
		"pong": true,
	})
}
