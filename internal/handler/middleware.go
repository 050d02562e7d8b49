package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const userIDKey = "userID"

// UserEnsurer anchors authenticated user ids in storage.
type UserEnsurer interface {
	EnsureExists(ctx context.Context, id uuid.UUID) error
}

// AuthRequired reads the caller identity from the X-User-ID header. Session
// token validation happens at the gateway; this service trusts the header.
func AuthRequired(users UserEnsurer) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader("X-User-ID")
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "X-User-ID header required"})
			return
		}
		userID, err := uuid.Parse(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid X-User-ID"})
			return
		}
		if users != nil {
			if err := users.EnsureExists(c.Request.Context(), userID); err != nil {
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "could not resolve user"})
				return
			}
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

func currentUserID(c *gin.Context) uuid.UUID {
	return c.MustGet(userIDKey).(uuid.UUID)
}
