package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

// Config is the process configuration, read from the environment (and an
// optional .env file) with defaults for everything but secrets.
type Config struct {
	Port     string
	Env      string
	LogLevel string

	StoreDriver   string
	MongoURI      string
	MongoDatabase string

	RedisAddress  string
	RedisPassword string

	JWTSecret    string
	TokenTTL     time.Duration
	CookieDomain string
	CORSOrigins  []string

	// AdminEmail and AdminPassword seed an admin account at startup when set.
	AdminEmail    string
	AdminPassword string

	SpamThreshold       int
	DefaultSearchRadius float64
	MaxSearchRadius     float64
	DefaultPageLimit    int
	AdminPageLimit      int
	MaxPageLimit        int
	SearchTimeout       time.Duration
	MaxImageSize        int64

	IssueRateLimit      int
	IssueLimitKeyPrefix string
	GeocodeCacheTTL     time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("go_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("store_driver", StoreMongo)
	v.SetDefault("mongodb_uri", "mongodb://localhost:27017")
	v.SetDefault("mongodb_db", "civictrack")
	v.SetDefault("redis_address", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("token_ttl", "72h")
	v.SetDefault("domain", "")
	v.SetDefault("admin_email", "")
	v.SetDefault("admin_password", "")
	v.SetDefault("cors_origins", "http://localhost:3000")
	v.SetDefault("spam_threshold", 3)
	v.SetDefault("default_search_radius", 5000)
	v.SetDefault("max_search_radius", 50000)
	v.SetDefault("default_page_limit", 10)
	v.SetDefault("admin_page_limit", 20)
	v.SetDefault("max_page_limit", 100)
	v.SetDefault("search_timeout", "10s")
	v.SetDefault("max_image_size", 2<<20)
	v.SetDefault("issue_rate_limit", 20)
	v.SetDefault("redis_queue_for_issue_limit", "issue-limit")
	v.SetDefault("geocode_cache_ttl", "24h")
}

// Load reads .env (if present) and the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		Logger.Debug().Msg("No .env file found")
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Port:                v.GetString("port"),
		Env:                 v.GetString("go_env"),
		LogLevel:            v.GetString("log_level"),
		StoreDriver:         strings.ToLower(v.GetString("store_driver")),
		MongoURI:            v.GetString("mongodb_uri"),
		MongoDatabase:       v.GetString("mongodb_db"),
		RedisAddress:        v.GetString("redis_address"),
		RedisPassword:       v.GetString("redis_password"),
		JWTSecret:           v.GetString("jwt_secret"),
		TokenTTL:            v.GetDuration("token_ttl"),
		CookieDomain:        v.GetString("domain"),
		AdminEmail:          strings.ToLower(strings.TrimSpace(v.GetString("admin_email"))),
		AdminPassword:       v.GetString("admin_password"),
		CORSOrigins:         splitList(v.GetString("cors_origins")),
		SpamThreshold:       v.GetInt("spam_threshold"),
		DefaultSearchRadius: v.GetFloat64("default_search_radius"),
		MaxSearchRadius:     v.GetFloat64("max_search_radius"),
		DefaultPageLimit:    v.GetInt("default_page_limit"),
		AdminPageLimit:      v.GetInt("admin_page_limit"),
		MaxPageLimit:        v.GetInt("max_page_limit"),
		SearchTimeout:       v.GetDuration("search_timeout"),
		MaxImageSize:        v.GetInt64("max_image_size"),
		IssueRateLimit:      v.GetInt("issue_rate_limit"),
		IssueLimitKeyPrefix: v.GetString("redis_queue_for_issue_limit"),
		GeocodeCacheTTL:     v.GetDuration("geocode_cache_ttl"),
	}
	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	switch {
	case c.JWTSecret == "":
		return fmt.Errorf("JWT_SECRET environment variable is not set")
	case c.StoreDriver != StoreMongo && c.StoreDriver != StoreMemory:
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", StoreMongo, StoreMemory, c.StoreDriver)
	case c.StoreDriver == StoreMongo && c.MongoURI == "":
		return fmt.Errorf("please define the MONGODB_URI environment variable")
	case c.SpamThreshold < 1:
		return fmt.Errorf("SPAM_THRESHOLD must be at least 1")
	case c.DefaultSearchRadius <= 0 || c.MaxSearchRadius < c.DefaultSearchRadius:
		return fmt.Errorf("search radius defaults must satisfy 0 < DEFAULT_SEARCH_RADIUS <= MAX_SEARCH_RADIUS")
	case c.AdminEmail != "" && len(c.AdminPassword) < 6:
		return fmt.Errorf("ADMIN_PASSWORD must be at least 6 characters when ADMIN_EMAIL is set")
	case c.MaxPageLimit < 1 || c.DefaultPageLimit < 1 || c.AdminPageLimit < 1:
		return fmt.Errorf("page limits must be positive")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
