// Package middleware provides authentication, authorization and request
// validation middleware for the Gin web framework.
package middleware

import (
	"context"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"challengeapp/internal/models"
)

// Session keys for storing user information
const (
	// UserIDKey is the key used to store user ID in session
	UserIDKey = "user_id"
	// UsernameKey is the key used to store username in session
	UsernameKey = "username"
)

// UserLookup resolves a session user id to a full user record. Satisfied by
// services.UserService.
type UserLookup interface {
	GetUserByID(ctx context.Context, id int) (*models.User, error)
}

// sessionUserID extracts and normalizes the user id from the session.
// Session stores sometimes round-trip integers through float64.
func sessionUserID(c *gin.Context) (int, bool) {
	session := sessions.Default(c)
	raw := session.Get(UserIDKey)
	if raw == nil {
		return 0, false
	}
	switch v := raw.(type) {
	case int:
		return v, true
	case float64:
		return int(v), true
	}
	return 0, false
}

func abortUnauthorized(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, gin.H{
		"error": "Authentication required",
		"code":  "UNAUTHORIZED",
	})
	c.Abort()
}

// RequireAuth returns a middleware that requires a logged-in session
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := sessionUserID(c)
		if !ok {
			abortUnauthorized(c)
			return
		}

		session := sessions.Default(c)
		username, ok := session.Get(UsernameKey).(string)
		if !ok || username == "" {
			abortUnauthorized(c)
			return
		}

		// Store user info in context for handlers to use
		c.Set(UserIDKey, userID)
		c.Set(UsernameKey, username)

		c.Next()
	}
}

// RequireAdmin returns a middleware that requires a logged-in admin user
func RequireAdmin(users UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := sessionUserID(c)
		if !ok {
			abortUnauthorized(c)
			return
		}

		user, err := users.GetUserByID(c.Request.Context(), userID)
		if err != nil {
			abortUnauthorized(c)
			return
		}
		if !user.IsAdmin() {
			c.JSON(http.StatusForbidden, gin.H{
				"error": "Admin access required",
				"code":  "FORBIDDEN",
			})
			c.Abort()
			return
		}

		c.Set(UserIDKey, userID)
		c.Set(UsernameKey, user.Username)

		c.Next()
	}
}
