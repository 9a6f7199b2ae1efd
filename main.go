package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"civictrack-be/config"
	"civictrack-be/controllers"
	"civictrack-be/geocode"
	"civictrack-be/media"
	"civictrack-be/models"
	"civictrack-be/routes"
	"civictrack-be/services"
	"civictrack-be/store"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
)

// imageBackend stores issue photos and serves them back.
type imageBackend interface {
	services.ImageStore
	controllers.MediaSource
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		config.Logger.Fatal().Err(err).Msg("Invalid configuration")
	}
	logger := config.InitLogger(cfg.LogLevel, "civictrack")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, images, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("Failed to open store")
	}
	defer closeStore()

	rdb, err := config.ConnectRedis(ctx, cfg.RedisAddress, cfg.RedisPassword)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	if rdb != nil {
		defer rdb.Close()
	}

	if err := ensureAdmin(ctx, db, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		logger.Fatal().Err(err).Msg("Failed to seed admin account")
	}

	opts := services.Options{
		SpamThreshold: cfg.SpamThreshold,
		DefaultRadius: cfg.DefaultSearchRadius,
		MaxRadius:     cfg.MaxSearchRadius,
		DefaultLimit:  cfg.DefaultPageLimit,
		MaxLimit:      cfg.MaxPageLimit,
		SearchTimeout: cfg.SearchTimeout,
		MaxImageSize:  cfg.MaxImageSize,
		Logger:        &logger,
	}
	geocoder := geocode.NewCachedResolver(geocode.PlaceholderResolver{}, rdb, cfg.GeocodeCacheTTL, logger)

	issueService := services.NewIssueService(db, images, geocoder, opts)
	discovery := services.NewDiscoveryService(db, services.NewGeoIndex(db, opts), opts)
	lifecycle := services.NewLifecycleService(db, db, opts)
	moderation := services.NewModerationService(db, opts)
	users := services.NewUserService(db, discovery, opts)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	routes.Setup(r, routes.Dependencies{
		Auth:                controllers.NewAuthController(db, cfg.JWTSecret, cfg.TokenTTL, cfg.IsProduction(), cfg.CookieDomain),
		Issues:              controllers.NewIssueController(issueService, discovery, lifecycle, moderation, cfg.MaxImageSize),
		Admin:               controllers.NewAdminController(issueService, discovery, moderation, users, cfg.AdminPageLimit),
		Users:               controllers.NewUserController(users),
		Media:               controllers.NewMediaController(images),
		JWTSecret:           cfg.JWTSecret,
		Accounts:            db,
		Logger:              logger,
		Redis:               rdb,
		IssueRateLimit:      cfg.IssueRateLimit,
		IssueLimitKeyPrefix: cfg.IssueLimitKeyPrefix,
		CORSOrigins:         cfg.CORSOrigins,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Str("store", cfg.StoreDriver).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server shutdown failed")
	}
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, imageBackend, func(), error) {
	if cfg.StoreDriver == config.StoreMemory {
		config.Logger.Warn().Msg("Using in-memory store; data is lost on restart")
		return store.NewMemoryStore(), media.NewMemoryStore(), func() {}, nil
	}

	client, db, err := config.ConnectDB(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		return nil, nil, nil, err
	}
	disconnect := func() { disconnectDB(client) }

	s := store.NewMongoStore(db)
	if err := s.EnsureIndexes(ctx); err != nil {
		disconnect()
		return nil, nil, nil, err
	}
	images, err := media.NewGridFSStore(db)
	if err != nil {
		disconnect()
		return nil, nil, nil, err
	}
	return s, images, disconnect, nil
}

func disconnectDB(client *mongo.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		config.Logger.Error().Err(err).Msg("Error disconnecting from MongoDB")
	}
}

// ensureAdmin creates the configured admin account once. Existing accounts
// are left untouched.
func ensureAdmin(ctx context.Context, users store.UserRepository, email, password string) error {
	if email == "" {
		return nil
	}
	if _, err := users.FindUserByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, models.ErrNotFound) {
		return err
	}

	now := time.Now().UTC()
	admin := &models.User{
		Name:      "admin",
		Email:     email,
		Password:  password,
		Role:      models.RoleAdmin,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := admin.HashPassword(); err != nil {
		return err
	}
	if err := users.CreateUser(ctx, admin); err != nil && !errors.Is(err, models.ErrDuplicateEmail) {
		return err
	}
	config.Logger.Info().Str("email", email).Msg("Admin account created")
	return nil
}
