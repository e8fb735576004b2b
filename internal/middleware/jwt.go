package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/lumen-analytics/backend/internal/access"
	"github.com/lumen-analytics/backend/internal/auth"
	"github.com/lumen-analytics/backend/pkg/response"
)

// JWT returns a middleware that validates the bearer token and sets the caller identity in context.
func JWT(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, "Unauthorized")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Unauthorized(c, "invalid authorization header")
			c.Abort()
			return
		}
		authenticate(c, jwtService, parts[1])
	}
}

// JWTQuery validates a token passed as ?token=, for browser WebSocket clients that cannot set headers.
func JWTQuery(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			response.Unauthorized(c, "Unauthorized")
			c.Abort()
			return
		}
		authenticate(c, jwtService, token)
	}
}

func authenticate(c *gin.Context, jwtService *auth.JWTService, token string) {
	claims, err := jwtService.Validate(token)
	if err != nil {
		response.Unauthorized(c, "invalid or expired token")
		c.Abort()
		return
	}
	access.SetIdentity(c, access.Identity{UserID: claims.UserID, Email: strings.ToLower(claims.Email)})
	c.Next()
}
