package config

import (
	"errors"
	"os"
	"strings"
	"time"
)

type Config struct {
	DatabaseURL   string
	HTTPPort      string
	JWTSecret     string
	JWTExpiresIn  time.Duration
	LogLevel      string
	UploadDir     string
	PublicURL     string
	AdminEmail    string
	AdminPassword string
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

// FromEnv reads the backend configuration. Call godotenv.Load first so a
// local .env file can fill in anything the environment lacks.
func FromEnv() (Config, error) {
	cfg := Config{
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		HTTPPort:      getEnv("HTTP_PORT", "8080"),
		JWTSecret:     getEnv("JWT_SECRET", ""),
		JWTExpiresIn:  24 * time.Hour,
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		UploadDir:     getEnv("UPLOAD_DIR", "./uploads"),
		AdminEmail:    strings.ToLower(getEnv("ADMIN_EMAIL", "admin@staffdesk.local")),
		AdminPassword: getEnv("ADMIN_PASSWORD", "admin123"),
	}
	cfg.PublicURL = strings.TrimRight(getEnv("PUBLIC_URL", "http://localhost:"+cfg.HTTPPort), "/")
	if s := getEnv("JWT_EXPIRES_IN", ""); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil {
			return Config{}, errors.New("JWT_EXPIRES_IN must be a duration like 24h")
		}
		cfg.JWTExpiresIn = d
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("DATABASE_URL is empty")
	}
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET is empty")
	}
	return cfg, nil
}
