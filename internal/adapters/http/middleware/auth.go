package middleware

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/velopay/walletd/internal/adapters/http/common"
)

// RoleAdmin is required for freeze/unfreeze/close endpoints.
const RoleAdmin = "admin"

// Claims is the JWT payload the service accepts.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AdminAuth validates a bearer token signed with secret and requires the
// admin role. Expiry is enforced by the jwt library during parsing.
func AdminAuth(secret string) gin.HandlerFunc {
	keyFunc := func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}

	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			common.UnauthorizedResponse(c, "authorization header is required")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			common.UnauthorizedResponse(c, "invalid authorization header format")
			c.Abort()
			return
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(parts[1], claims, keyFunc,
			jwt.WithValidMethods([]string{"HS256"}))
		if err != nil || !token.Valid {
			common.UnauthorizedResponse(c, "invalid or expired token")
			c.Abort()
			return
		}

		if claims.Role != RoleAdmin {
			common.ForbiddenResponse(c, "admin role required")
			c.Abort()
			return
		}

		c.Next()
	}
}
