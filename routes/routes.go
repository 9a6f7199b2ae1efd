package routes

import (
	"net/http"
	"time"

	"civictrack-be/controllers"
	"civictrack-be/middlewares"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Dependencies carries everything the HTTP layer needs from main.
type Dependencies struct {
	Auth   *controllers.AuthController
	Issues *controllers.IssueController
	Admin  *controllers.AdminController
	Users  *controllers.UserController
	Media  *controllers.MediaController

	JWTSecret string
	Logger    zerolog.Logger

	// Accounts backs the banned and deleted user check on every
	// authenticated route.
	Accounts middlewares.UserLookup

	// Redis backs the issue creation limiter; nil disables it.
	Redis               *redis.Client
	IssueRateLimit      int
	IssueLimitKeyPrefix string

	CORSOrigins []string
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

// requireAuth admits only callers with a valid token for an active account.
func (d Dependencies) requireAuth() gin.HandlersChain {
	return gin.HandlersChain{middlewares.AuthMiddleware(d.JWTSecret), middlewares.ActiveUser(d.Accounts)}
}

// optionalAuth attaches an active caller when a token is present.
func (d Dependencies) optionalAuth() gin.HandlersChain {
	return gin.HandlersChain{middlewares.OptionalAuth(d.JWTSecret), middlewares.ActiveUser(d.Accounts)}
}

// Setup installs the global middleware and every route group on r.
func Setup(r *gin.Engine, d Dependencies) {
	r.Use(gin.Recovery())
	r.Use(middlewares.RequestLogger(d.Logger))
	r.Use(middlewares.Metrics())
	r.Use(cors.New(corsConfig(d.CORSOrigins)))

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	AuthRoutes(r, d)
	IssueRoutes(r, d)
	AdminRoutes(r, d)
	UserRoutes(r, d)
	if d.Media != nil {
		r.GET("/media/:id", d.Media.ServeImage)
	}
}
