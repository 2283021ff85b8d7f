package middleware

import (
	"net/http" // HTTP status codes
	"strings"  // String manipulation

	"fintrack/internal/domain" // Domain error kinds
	"fintrack/internal/utils"  // JWT utility functions

	"github.com/gin-gonic/gin" // Gin web framework
)

// AccessCookie is the cookie carrying the access token
const AccessCookie = "access_token"

// RefreshCookie is the cookie carrying the refresh token
const RefreshCookie = "refresh_token"

// UserID returns the authenticated user's ID from the gin context
func UserID(c *gin.Context) (uint, bool) {
	v, ok := c.Get("userID")
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}

// JWTAuthMiddleware resolves the caller's identity once per request and
// stores the user ID in the context. The access token is read from the
// session cookie first, falling back to a bearer Authorization header.
// Requests without a valid access token are rejected before any handler runs.
func JWTAuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := tokenFromRequest(c)
		if tokenStr == "" {
			// No session materials at all
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authentication required",
				"kind":  domain.ErrAuthenticationRequired,
			})
			return
		}
		claims, err := utils.ParseJWT(tokenStr, secret) // Parse the JWT token
		if err != nil || claims.TokenType != utils.TokenTypeAccess {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or expired token",
				"kind":  domain.ErrAuthenticationRequired,
			})
			return
		}
		c.Set("userID", claims.UserID) // Store userID in context
		c.Next()                       // Proceed to the next handler
	}
}

// tokenFromRequest extracts the access token from cookie or bearer header
func tokenFromRequest(c *gin.Context) string {
	if cookie, err := c.Cookie(AccessCookie); err == nil && cookie != "" {
		return cookie
	}
	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}
