package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"civictrack-be/config"
	"civictrack-be/middlewares"
	"civictrack-be/models"
	"civictrack-be/store"
	authUtils "civictrack-be/utils"

	"github.com/gin-gonic/gin"
)

// AuthController issues and clears session tokens for registered users.
type AuthController struct {
	users      store.UserRepository
	secret     string
	ttl        time.Duration
	production bool
	domain     string
}

func NewAuthController(users store.UserRepository, secret string, ttl time.Duration, production bool, domain string) *AuthController {
	// For production, don't set domain to allow cross-origin cookies
	if production {
		domain = ""
	}
	return &AuthController{users: users, secret: secret, ttl: ttl, production: production, domain: domain}
}

func userResponse(user *models.User) gin.H {
	return gin.H{
		"id":             user.ID,
		"name":           user.Name,
		"email":          user.Email,
		"role":           user.Role,
		"issuesReported": user.IssuesReported,
		"spamReports":    user.SpamReports,
		"createdAt":      user.CreatedAt,
	}
}

// RegisterUser handles user registration
func (ac *AuthController) RegisterUser(c *gin.Context) {
	var input struct {
		Name     string `json:"name" binding:"required,max=50"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=6"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	now := time.Now().UTC()
	user := &models.User{
		Name:      strings.TrimSpace(input.Name),
		Email:     strings.ToLower(strings.TrimSpace(input.Email)),
		Password:  input.Password,
		Role:      models.RoleUser,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := user.HashPassword(); err != nil {
		config.Logger.Error().Err(err).Msg("Error hashing password")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := ac.users.CreateUser(ctx, user); err != nil {
		respondError(c, err, "User")
		return
	}

	c.JSON(http.StatusCreated, userResponse(user))
}

// LoginUser handles user login. The token goes into an HttpOnly cookie and
// the response body, so both browsers and API clients can use it.
func (ac *AuthController) LoginUser(c *gin.Context) {
	var input struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := ac.users.FindUserByEmail(ctx, strings.ToLower(strings.TrimSpace(input.Email)))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		respondError(c, err, "User")
		return
	}

	if !user.ComparePassword(input.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, err := authUtils.GenerateToken(ac.secret, user.ID.Hex(), string(user.Role), ac.ttl)
	if err != nil {
		config.Logger.Error().Err(err).Msg("Error generating token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}

	cookie := &http.Cookie{
		Name:     middlewares.AuthCookie,
		Value:    token,
		MaxAge:   int(ac.ttl.Seconds()),
		Path:     "/",
		Domain:   ac.domain,
		Secure:   ac.production,
		HttpOnly: true,
		SameSite: http.SameSiteNoneMode,
	}
	if !ac.production {
		// Browsers drop SameSite=None cookies that are not Secure.
		cookie.SameSite = http.SameSiteLaxMode
	}
	http.SetCookie(c.Writer, cookie)

	resp := userResponse(user)
	resp["token"] = token
	c.JSON(http.StatusOK, resp)
}

// GetMe retrieves the authenticated user's information
func (ac *AuthController) GetMe(c *gin.Context) {
	principal := middlewares.GetPrincipal(c)
	if principal.ID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := ac.users.FindUserByID(ctx, principal.ID)
	if err != nil {
		respondError(c, err, "User")
		return
	}
	c.JSON(http.StatusOK, userResponse(user))
}

// LogoutUser handles user logout by clearing the auth_token cookie
func (ac *AuthController) LogoutUser(c *gin.Context) {
	c.SetCookie(middlewares.AuthCookie, "", -1, "/", ac.domain, ac.production, true)
	c.JSON(http.StatusOK, gin.H{
		"message": "Logged out successfully",
	})
}
