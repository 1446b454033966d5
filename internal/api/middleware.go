package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"alcyxob/fitness-coach/internal/service"
)

// Constants for context keys
const (
	ContextSessionIDKey = "sessionID"
)

// CORSMiddleware answers preflight requests and allows the configured origins.
// An empty list or "*" allows every origin.
func CORSMiddleware(origins []string) gin.HandlerFunc {
	allowAll := len(origins) == 0
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = true
	}
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		switch {
		case allowAll:
			c.Header("Access-Control-Allow-Origin", "*")
		case origin != "" && allowed[origin]:
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
		}
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// SessionTokenMiddleware verifies the bearer session token when tokens are enabled
// and stores the session id it names in the context. With tokens disabled it is a no-op.
func SessionTokenMiddleware(tokens service.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokens == nil || !tokens.Enabled() {
			c.Next()
			return
		}
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWithError(c, http.StatusUnauthorized, "Authorization header is missing")
			return
		}

		// Expecting "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			abortWithError(c, http.StatusUnauthorized, "Authorization header format must be Bearer {token}")
			return
		}

		sessionID, err := tokens.Verify(parts[1])
		if err != nil {
			if errors.Is(err, service.ErrTokenExpired) {
				abortWithError(c, http.StatusUnauthorized, "Token has expired")
			} else {
				abortWithError(c, http.StatusUnauthorized, "Invalid session token")
			}
			return
		}

		c.Set(ContextSessionIDKey, sessionID)
		c.Next()
	}
}

// Helper to return JSON error response and abort request
func abortWithError(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, gin.H{"error": message})
}

// resolveSessionID reconciles the session named by the request with the one bound
// to the token. ok is false when the response has already been written.
func resolveSessionID(c *gin.Context, requested string) (id string, ok bool) {
	raw, exists := c.Get(ContextSessionIDKey)
	if !exists {
		return requested, true
	}
	fromToken, _ := raw.(string)
	if requested != "" && requested != fromToken {
		abortWithError(c, http.StatusForbidden, "Session does not match token")
		return "", false
	}
	return fromToken, true
}
