// Package api wires the HTTP surface of the track server.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/wrohdewald/gpxity/internal/config"
	"github.com/wrohdewald/gpxity/internal/handler"
	"github.com/wrohdewald/gpxity/internal/middleware"
	"github.com/wrohdewald/gpxity/internal/track"
)

// SetupRouter builds the gin engine serving col.
func SetupRouter(cfg *config.Server, col track.Collection, log zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger(log))

	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")
	api.Use(middleware.RateLimit(300, time.Minute))
	if !cfg.AuthDisabled {
		api.Use(middleware.Auth(cfg.JWTSecret))
	}

	tracks := handler.NewTrackHandler(col)
	{
		api.GET("/tracks", tracks.List)
		api.POST("/tracks", tracks.Create)
		api.GET("/tracks/:id", tracks.Get)
		api.PUT("/tracks/:id", tracks.Put)
		api.DELETE("/tracks/:id", tracks.Delete)
		api.POST("/tracks/:id/rename", tracks.Rename)
	}

	return r
}
