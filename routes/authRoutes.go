package routes

import (
	"github.com/gin-gonic/gin"
)

// AuthRoutes sets up the authentication routes
func AuthRoutes(r *gin.Engine, d Dependencies) {
	auth := r.Group("/api/auth")
	{
		auth.POST("/register", d.Auth.RegisterUser)
		auth.POST("/login", d.Auth.LoginUser)
		auth.POST("/logout", d.Auth.LogoutUser)
		auth.GET("/me", append(d.requireAuth(), d.Auth.GetMe)...)
	}
}
