package api

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireSharedSecret rejects requests whose X-Shared-Secret header does
// not match. The comparison is constant time.
func RequireSharedSecret(secret string, metrics *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		presented := c.GetHeader("X-Shared-Secret")
		if subtle.ConstantTimeCompare([]byte(presented), []byte(secret)) != 1 {
			metrics.RequestsUnauthed.Inc()
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
