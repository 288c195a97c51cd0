package config

import (
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	LogLevel             string        `env:"LOG_LEVEL" envDefault:"info"`
	Environment          string        `env:"ENVIRONMENT" envDefault:"development"`
	PlatformDomain       string        `env:"PLATFORM_DOMAIN,required"`
	ServerAddr           string        `env:"SERVER_ADDR" envDefault:":8080"`
	AdminAddr            string        `env:"ADMIN_ADDR" envDefault:":9091"`
	PostgresURL          string        `env:"POSTGRES_URL,required"`
	RedisAddr            string        `env:"REDIS_ADDR,required"`
	JWTSecret            string        `env:"JWT_SECRET,required"`
	DirectoryCacheTTL    time.Duration `env:"DIRECTORY_CACHE_TTL" envDefault:"5m"`
	ConnectRatePerMinute int           `env:"CONNECT_RATE_PER_MINUTE" envDefault:"60"`
	ConnectRateBurst     int           `env:"CONNECT_RATE_BURST" envDefault:"10"`
	BypassPrefixes       string        `env:"TENANT_BYPASS_PREFIXES" envDefault:"/static/,/healthz,/metrics,/api/platform/"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// Attempt to load .env file for local development.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// TenantBypassPrefixes returns the path prefixes exempt from tenant
// resolution.
func (c *Config) TenantBypassPrefixes() []string {
	var prefixes []string
	for _, p := range strings.Split(c.BypassPrefixes, ",") {
		if p = strings.TrimSpace(p); p != "" {
			prefixes = append(prefixes, p)
		}
	}
	return prefixes
}
