package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Addr:      "0.0.0.0:8080",
		Upstream:  UpstreamConfig{BaseURL: "https://api.example.com", Timeout: time.Second},
		Storage:   StorageConfig{Driver: DriverSQLite, SQLitePath: "storefront.db", Key: "cart"},
		RateLimit: RateLimitConfig{Max: 10, Window: time.Minute},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"memory", func(c *Config) { c.Storage.Driver = DriverMemory }, ""},
		{"no upstream", func(c *Config) { c.Upstream.BaseURL = "" }, "upstream URL is required"},
		{"postgres without url", func(c *Config) { c.Storage.Driver = DriverPostgres }, "postgres URL is required"},
		{"redis without url", func(c *Config) { c.Storage.Driver = DriverRedis }, "redis URL is required"},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "mongo" }, `unknown storage driver "mongo"`},
		{"bad rate limit", func(c *Config) { c.RateLimit.Max = 0 }, "rate limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_PlatformDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/storefront")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("PORT", "9000")

	cfg := validConfig()
	cfg.CORS.Origins = []string{"", "https://shop.example.com"}
	cfg.applyPlatformDefaults()

	assert.Equal(t, "postgres://localhost/storefront", cfg.Storage.PostgresURL)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Storage.RedisURL)
	assert.Equal(t, "0.0.0.0:9000", cfg.Addr)
	assert.Equal(t, []string{"https://shop.example.com"}, cfg.CORS.Origins)
}
