package gateway

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nftloop/tradeloop-engine/internal/api"
)

// SetupRouter wires the demo HTTP/WebSocket surface on top of registry:
// auth, rate limiting, mutation ingestion, synchronous reads, and the
// per-tenant event stream. Structurally modeled on the teacher's
// routes.go (global middleware first, then a versioned route group).
func SetupRouter(registry *api.Registry, rateLimiter *RateLimiter) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger())
	r.Use(AuthMiddleware())
	if rateLimiter != nil {
		r.Use(rateLimiter.Middleware())
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	tenants := r.Group("/tenants/:tenantId")
	{
		tenants.POST("/mutations", postMutations(registry))
		tenants.GET("/version", getVersion(registry))
		tenants.GET("/wallets/:walletId/loops", getLoopsForWallet(registry))
		tenants.GET("/progress", getProgress(registry))
		tenants.GET("/stream", streamTenantEvents(registry))
	}

	return r
}

// requestLogger logs method/path/status/latency, matching the teacher's
// plain log.Printf access-log convention rather than a structured logging
// middleware.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		c.Next()
		log.Printf("[gateway] %s %s %d %s", c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
