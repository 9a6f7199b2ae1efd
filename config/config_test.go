package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("jwt_secret", "secret")

	cfg, err := fromViper(v)
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, StoreMongo, cfg.StoreDriver)
	assert.Equal(t, 3, cfg.SpamThreshold)
	assert.Equal(t, 5000.0, cfg.DefaultSearchRadius)
	assert.Equal(t, 50000.0, cfg.MaxSearchRadius)
	assert.Equal(t, 10, cfg.DefaultPageLimit)
	assert.Equal(t, 20, cfg.AdminPageLimit)
	assert.Equal(t, 100, cfg.MaxPageLimit)
	assert.Equal(t, 10*time.Second, cfg.SearchTimeout)
	assert.EqualValues(t, 2<<20, cfg.MaxImageSize)
	assert.Equal(t, 72*time.Hour, cfg.TokenTTL)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSOrigins)
}

func TestFromViperEnvironment(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("STORE_DRIVER", "MEMORY")
	t.Setenv("SPAM_THRESHOLD", "5")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("SEARCH_TIMEOUT", "2s")

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	cfg, err := fromViper(v)
	require.NoError(t, err)
	assert.Equal(t, StoreMemory, cfg.StoreDriver)
	assert.Equal(t, 5, cfg.SpamThreshold)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, 2*time.Second, cfg.SearchTimeout)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		v := viper.New()
		setDefaults(v)
		v.Set("jwt_secret", "secret")
		cfg, err := fromViper(v)
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing secret", func(c *Config) { c.JWTSecret = "" }},
		{"unknown driver", func(c *Config) { c.StoreDriver = "postgres" }},
		{"zero threshold", func(c *Config) { c.SpamThreshold = 0 }},
		{"default above max radius", func(c *Config) { c.DefaultSearchRadius = 60000 }},
		{"zero page limit", func(c *Config) { c.MaxPageLimit = 0 }},
		{"admin without password", func(c *Config) { c.AdminEmail = "admin@civictrack.com" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
