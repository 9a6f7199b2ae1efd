package middlewares

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"civictrack-be/config"
	"civictrack-be/models"
	authUtils "civictrack-be/utils"

	"github.com/gin-gonic/gin"
)

const (
	ContextUserID = "user_id"
	ContextRole   = "role"

	// AuthCookie is set on login alongside the token in the response body.
	AuthCookie = "auth_token"
)

func tokenFromRequest(c *gin.Context) string {
	authHeader := c.Request.Header.Get("Authorization")
	if authHeader != "" {
		// Extracting token from "Bearer <token>" format
		if strings.HasPrefix(authHeader, "Bearer ") {
			return authHeader[7:]
		}
		return authHeader
	}
	if cookie, err := c.Cookie(AuthCookie); err == nil {
		return cookie
	}
	return ""
}

// AuthMiddleware requires a valid session token and stores the principal on
// the gin context.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := tokenFromRequest(c)
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "No authorization token provided"})
			c.Abort()
			return
		}

		userID, role, err := authUtils.ParseToken(secret, tokenString)
		if err != nil {
			config.Logger.Debug().Err(err).Msg("Token validation failed")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization token"})
			c.Abort()
			return
		}

		c.Set(ContextUserID, userID)
		c.Set(ContextRole, role)
		c.Next()
	}
}

// OptionalAuth attaches the principal when a valid token is present and
// otherwise lets the request through anonymously.
func OptionalAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenString := tokenFromRequest(c); tokenString != "" {
			if userID, role, err := authUtils.ParseToken(secret, tokenString); err == nil {
				c.Set(ContextUserID, userID)
				c.Set(ContextRole, role)
			}
		}
		c.Next()
	}
}

// UserLookup resolves the account behind a token.
type UserLookup interface {
	FindUserByID(ctx context.Context, id string) (*models.User, error)
}

// ActiveUser must run after AuthMiddleware or OptionalAuth. It rejects tokens
// whose account is gone or banned and takes the role from the stored account,
// so a demoted admin loses access before the token expires. Anonymous
// requests pass through.
func ActiveUser(users UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString(ContextUserID)
		if userID == "" {
			c.Next()
			return
		}

		user, err := users.FindUserByID(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token. User not found."})
			} else {
				config.Logger.Error().Err(err).Str("user_id", userID).Msg("Error loading token user")
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
			}
			c.Abort()
			return
		}

		if user.IsBanned {
			c.JSON(http.StatusForbidden, gin.H{
				"error":    "Your account has been banned",
				"reason":   user.BanReason,
				"bannedAt": user.BannedAt,
			})
			c.Abort()
			return
		}

		c.Set(ContextRole, string(user.Role))
		c.Next()
	}
}

// RequireAdmin must run after AuthMiddleware.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !GetPrincipal(c).IsAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetPrincipal returns the caller; the zero Principal means anonymous.
func GetPrincipal(c *gin.Context) models.Principal {
	userID := c.GetString(ContextUserID)
	return models.Principal{
		ID:      userID,
		IsAdmin: userID != "" && c.GetString(ContextRole) == string(models.RoleAdmin),
	}
}
