// Package config provides centralized configuration loaded from environment
// variables. Shared by the serve and preview commands.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is populated from environment variables at startup. Credentials and
// the webhook target are only the initial values; both can be replaced at
// runtime through the admin API.
type Config struct {
	// Upstream shop API
	ShopBaseURL   string
	ShopStoreID   string
	ShopLocale    string
	Authorization string
	Cookie        string
	Proxies       []string

	// Polling
	PollInterval time.Duration
	FetchRPS     float64 // pacing of upstream fetches within a sweep

	// Notifications
	WebhookURL string

	// Admin API server
	APIHost     string
	APIPort     int
	Environment string
	Debug       bool

	CORSAllowOrigins []string

	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	baseURL := envOr("SHOP_BASE_URL", "")
	if baseURL == "" {
		return nil, fmt.Errorf("SHOP_BASE_URL must be set")
	}

	return &Config{
		ShopBaseURL:   strings.TrimRight(baseURL, "/"),
		ShopStoreID:   envOr("SHOP_STORE_ID", "1"),
		ShopLocale:    envOr("SHOP_LOCALE", "de-DE"),
		Authorization: envOr("SHOP_AUTHORIZATION", ""),
		Cookie:        envOr("SHOP_COOKIE", ""),
		Proxies:       envList("PROXIES", nil),

		PollInterval: time.Duration(envInt("POLL_INTERVAL_SECONDS", 30)) * time.Second,
		FetchRPS:     envFloat("FETCH_RPS", 2.0),

		WebhookURL: envOr("WEBHOOK_URL", ""),

		APIHost:     envOr("API_HOST", "0.0.0.0"),
		APIPort:     envInt("API_PORT", envInt("PORT", 8090)),
		Environment: envOr("ENVIRONMENT", "development"),
		Debug:       envBool("DEBUG", false),

		CORSAllowOrigins: envList("CORS_ALLOW_ORIGINS", []string{
			"http://localhost:3000",
			"http://localhost:5173",
		}),

		RateLimitEnabled:  envBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequests: envInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   time.Duration(envInt("RATE_LIMIT_WINDOW", 60)) * time.Second,
	}, nil
}

// IsProduction returns true if running in production environment.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// --------------------------------------------------------------------------
// Env helpers
// --------------------------------------------------------------------------

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}
