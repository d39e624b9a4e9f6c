package auth

import (
	"net/http"
	"strings"

	"firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"

	"github.com/pulsecheck-labs/pulsecheck-backend/internal/users"
)

const (
	CtxUserUID  = "user_uid"
	CtxUserMail = "user_email"
)

// RequireUser validates Firebase ID tokens, upserts the user row, and puts
// the UID in context. Every authenticated route sits behind this.
func RequireUser(authClient *auth.Client, userRepo *users.Repo) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "missing authorization token"})
			c.Abort()
			return
		}

		decoded, err := authClient.VerifyIDToken(c.Request.Context(), token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "invalid token"})
			c.Abort()
			return
		}

		email := ""
		if v, ok := decoded.Claims["email"].(string); ok {
			email = v
		}

		if _, err := userRepo.EnsureUser(c.Request.Context(), users.UpsertUser{
			UID:   decoded.UID,
			Email: email,
		}); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "ensure user: " + err.Error()})
			c.Abort()
			return
		}

		c.Set(CtxUserUID, decoded.UID)
		c.Set(CtxUserMail, email)
		c.Next()
	}
}

// DevUser sets a UID from the X-User-Id header without verifying anything.
// Development only; never wire this in production.
func DevUser(userRepo *users.Repo) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := strings.TrimSpace(c.GetHeader("X-User-Id"))
		if uid == "" {
			uid = "demo-user"
		}

		if _, err := userRepo.EnsureUser(c.Request.Context(), users.UpsertUser{UID: uid}); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "ensure user: " + err.Error()})
			c.Abort()
			return
		}

		c.Set(CtxUserUID, uid)
		c.Next()
	}
}

// UserUID extracts the authenticated user's UID from the Gin context.
func UserUID(c *gin.Context) string {
	return strings.TrimSpace(c.GetString(CtxUserUID))
}

// extractToken extracts the Bearer token from the Authorization header
func extractToken(c *gin.Context) string {
	bearerToken := c.GetHeader("Authorization")
	if len(bearerToken) > 7 && strings.HasPrefix(bearerToken, "Bearer ") {
		return bearerToken[7:]
	}
	return ""
}
