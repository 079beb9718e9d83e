package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/phonginreallife/ocmwrap/services"
)

// APIAuthMiddleware guards the API with bearer tokens when a secret is
// configured. Without one, every request passes through.
type APIAuthMiddleware struct {
	Auth *services.APIAuthService
}

func NewAPIAuthMiddleware(auth *services.APIAuthService) *APIAuthMiddleware {
	return &APIAuthMiddleware{Auth: auth}
}

// RequireAuth validates the Authorization header against the configured secret.
func (m *APIAuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.Auth.Enabled() {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required"})
			c.Abort()
			return
		}

		token, err := m.Auth.ExtractTokenFromHeader(authHeader)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			c.Abort()
			return
		}

		claims, err := m.Auth.ValidateToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token: " + err.Error()})
			c.Abort()
			return
		}

		c.Set("subject", claims.Subject)
		c.Next()
	}
}
