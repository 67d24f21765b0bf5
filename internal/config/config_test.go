package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/staffdesk")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("HTTP_PORT", "")
	t.Setenv("JWT_EXPIRES_IN", "")
	t.Setenv("PUBLIC_URL", "")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, 24*time.Hour, cfg.JWTExpiresIn)
	assert.Equal(t, "http://localhost:8080", cfg.PublicURL)
	assert.Equal(t, "./uploads", cfg.UploadDir)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/staffdesk")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("JWT_EXPIRES_IN", "90m")
	t.Setenv("PUBLIC_URL", "https://hr.example.com/")
	t.Setenv("ADMIN_EMAIL", "Boss@Example.com")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, 90*time.Minute, cfg.JWTExpiresIn)
	assert.Equal(t, "https://hr.example.com", cfg.PublicURL)
	assert.Equal(t, "boss@example.com", cfg.AdminEmail)
}

func TestFromEnvRequiresSecrets(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/staffdesk")
	t.Setenv("JWT_SECRET", "")
	_, err := FromEnv()
	assert.EqualError(t, err, "JWT_SECRET is empty")

	t.Setenv("JWT_SECRET", "x")
	t.Setenv("JWT_EXPIRES_IN", "tomorrow")
	_, err = FromEnv()
	assert.Error(t, err)
}
