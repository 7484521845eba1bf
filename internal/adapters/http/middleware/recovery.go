package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/velopay/walletd/internal/adapters/http/common"
	domainErrors "github.com/velopay/walletd/internal/domain/errors"
)

// Recovery turns a handler panic into a 500 response instead of a dropped
// connection. The stack goes to the log only, never to the client.
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered",
					slog.Any("panic", r),
					slog.String("request_id", common.GetRequestID(c)),
					slog.String("path", c.Request.URL.Path),
					slog.String("stack", string(debug.Stack())),
				)
				common.Error(c, http.StatusInternalServerError, &common.APIError{
					Code:    string(domainErrors.KindInternal),
					Message: "an unexpected error occurred",
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}
