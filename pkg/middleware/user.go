package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prohmpiriya/event-ticketing/pkg/response"
)

const (
	// UserIDHeader carries the caller identity set by the upstream auth layer
	UserIDHeader = "X-User-ID"
	// UserRoleHeader carries the caller role set by the upstream auth layer
	UserRoleHeader = "X-User-Role"

	ContextKeyUserID   = "user_id"
	ContextKeyUserRole = "user_role"

	RoleAdmin = "admin"
)

// UserContext copies identity headers into the gin context
func UserContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID := strings.TrimSpace(c.GetHeader(UserIDHeader)); userID != "" {
			c.Set(ContextKeyUserID, userID)
		}
		if role := strings.TrimSpace(c.GetHeader(UserRoleHeader)); role != "" {
			c.Set(ContextKeyUserRole, role)
		}
		c.Next()
	}
}

// RequireUser rejects requests without a caller identity
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := GetUserID(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.ErrorBody("UNAUTHORIZED", "user identity is required"))
			return
		}
		c.Next()
	}
}

// RequireAdmin rejects requests whose role is not admin
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetUserRole(c) != RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, response.ErrorBody("FORBIDDEN", "admin role is required"))
			return
		}
		c.Next()
	}
}

// GetUserID returns the caller identity from context, falling back to the header
func GetUserID(c *gin.Context) (string, bool) {
	if v, ok := c.Get(ContextKeyUserID); ok {
		if id, ok := v.(string); ok && id != "" {
			return id, true
		}
	}
	id := strings.TrimSpace(c.GetHeader(UserIDHeader))
	return id, id != ""
}

// GetUserRole returns the caller role, empty when unknown
func GetUserRole(c *gin.Context) string {
	if v, ok := c.Get(ContextKeyUserRole); ok {
		if role, ok := v.(string); ok {
			return role
		}
	}
	return strings.TrimSpace(c.GetHeader(UserRoleHeader))
}
