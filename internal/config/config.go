package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv         string
	Port           string
	AllowedOrigins []string

	DatabaseURL string
	RedisURL    string

	MeiliSearchHost string
	MeiliMasterKey  string

	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string
	UploadDir              string

	JWTSecret          string
	AccessTokenTTL     time.Duration
	RefreshedAccessTTL time.Duration
	RefreshTokenTTL    time.Duration

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	FrontendURL        string

	ConnectionPendingTTL    time.Duration
	ConnectionSweepSchedule string
	RateLimitConnection     time.Duration
}

func Load() (*Config, error) {
	// .env is optional; production injects real env vars
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:5173")),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),

		MeiliSearchHost: os.Getenv("MEILISEARCH_HOST"),
		MeiliMasterKey:  os.Getenv("MEILI_MASTER_KEY"),

		CloudinaryCloudName:    os.Getenv("CLOUDINARY_CLOUD_NAME"),
		CloudinaryAPIKey:       os.Getenv("CLOUDINARY_API_KEY"),
		CloudinaryAPISecret:    os.Getenv("CLOUDINARY_API_SECRET"),
		CloudinaryUploadFolder: getEnv("CLOUDINARY_UPLOAD_FOLDER", "peerlink"),
		UploadDir:              getEnv("UPLOAD_DIR", "uploads"),

		JWTSecret: getEnv("JWT_SECRET", "change-me"),

		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURL:  os.Getenv("GOOGLE_REDIRECT_URL"),
		FrontendURL:        getEnv("FRONTEND_URL", "http://localhost:5173"),

		ConnectionSweepSchedule: getEnv("CONNECTION_SWEEP_SCHEDULE", "0 0 * * *"),
	}

	durations := []struct {
		key      string
		fallback string
		dst      *time.Duration
	}{
		{"ACCESS_TOKEN_TTL", "24h", &cfg.AccessTokenTTL},
		{"REFRESHED_ACCESS_TOKEN_TTL", "1h", &cfg.RefreshedAccessTTL},
		{"REFRESH_TOKEN_TTL", "720h", &cfg.RefreshTokenTTL},
		{"CONNECTION_PENDING_TTL", "720h", &cfg.ConnectionPendingTTL},
		{"RATE_LIMIT_CONNECTION", "2s", &cfg.RateLimitConnection},
	}
	for _, d := range durations {
		v, err := parseDuration(getEnv(d.key, d.fallback))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", d.key, err)
		}
		*d.dst = v
	}

	if cfg.IsProduction() && cfg.JWTSecret == "change-me" {
		return nil, fmt.Errorf("JWT_SECRET must be set in production")
	}

	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// CloudinaryEnabled reports whether all Cloudinary credentials are present.
func (c *Config) CloudinaryEnabled() bool {
	return c.CloudinaryCloudName != "" && c.CloudinaryAPIKey != "" && c.CloudinaryAPISecret != ""
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func parseDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive, got %s", s)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
