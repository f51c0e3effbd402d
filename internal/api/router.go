// Package api exposes the ingestion HTTP surface.
package api

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/heptiolabs/healthcheck"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter builds the ingestion router. The /inbound endpoints sit
// behind the shared-secret check; probes and metrics do not.
func NewRouter(handlers *Handlers, health healthcheck.Handler, secret string, metrics *Metrics, logger *slog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))

	router.GET("/live", gin.WrapF(health.LiveEndpoint))
	router.GET("/ready", gin.WrapF(health.ReadyEndpoint))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	inbound := router.Group("/inbound")
	inbound.Use(RequireSharedSecret(secret, metrics))
	inbound.POST("/verification", handlers.postVerification)
	inbound.POST("/email", handlers.postEmail)

	return router
}

// requestLogger logs one line per request.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.InfoContext(c.Request.Context(), "Request handled",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("duration", time.Since(start)),
			slog.String("correlation_id", c.GetHeader("X-Correlation-Id")),
		)
	}
}
