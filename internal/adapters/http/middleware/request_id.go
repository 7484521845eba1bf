// Package middleware holds the HTTP middleware chain: request id, logging,
// recovery, metrics, and admin auth.
package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/velopay/walletd/internal/adapters/http/common"
)

// RequestID attaches a request id to every request. A client-supplied
// X-Request-ID is honored; otherwise one is generated.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(common.RequestIDKey)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		common.SetRequestID(c, requestID)
		c.Next()
	}
}
