package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"live-quiz-service/internal/metrics"
)

// NewRouter mounts the REST routes, the websocket endpoint, health and metrics.
func NewRouter(games *GamesHandler, ws *WSHandler, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	r.GET("/ws", gin.WrapF(ws.ServeWS))

	api := r.Group("/api/games")
	api.POST("", games.Create)
	api.GET("/:pin", games.Check)
	api.GET("/:pin/results", games.Results)
	return r
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		logger.Info("request",
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
