package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	OwnerHeader = "X-User-ID"
	ownerKey    = "owner_id"
)

// RequireOwner takes the caller's identity from the X-User-ID header, set by
// the authenticating proxy in front of the service.
func RequireOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		owner := strings.TrimSpace(c.GetHeader(OwnerHeader))
		if owner == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Set(ownerKey, owner)
		c.Next()
	}
}

// Owner returns the identity stored by RequireOwner.
func Owner(c *gin.Context) string {
	return c.GetString(ownerKey)
}
