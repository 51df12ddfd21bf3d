package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setValidEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SESSION_TOKEN_KEY", strings.Repeat("k", 32))
}

func TestLoad_Defaults(t *testing.T) {
	setValidEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "dev", cfg.Server.Env)
	assert.True(t, cfg.Server.IsDevelopment())
	assert.Equal(t, 24*time.Hour, cfg.Session.Duration)
	assert.Equal(t, "paired", cfg.Database.DBName)
	assert.Equal(t, int64(5<<20), cfg.Upload.MaxFileSize)
}

func TestLoad_RejectsMissingSessionKey(t *testing.T) {
	t.Setenv("SESSION_TOKEN_KEY", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_RejectsShortSessionKey(t *testing.T) {
	t.Setenv("SESSION_TOKEN_KEY", "short")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_ReadsOverrides(t *testing.T) {
	setValidEnv(t)
	t.Setenv("SERVER_PORT", "9999")
	t.Setenv("APP_ENV", "prod")
	t.Setenv("SESSION_DURATION", "3600")
	t.Setenv("TRUSTED_ORIGINS", "https://app.example.com, https://admin.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9999", cfg.Server.Port)
	assert.False(t, cfg.Server.IsDevelopment())
	assert.Equal(t, time.Hour, cfg.Session.Duration)
	assert.Equal(t,
		[]string{"https://app.example.com", "https://admin.example.com"},
		cfg.Server.TrustedOrigins,
	)
}

func TestConnectionString(t *testing.T) {
	cfg := DatabaseConfig{
		Host: "db", Port: "5432", User: "app",
		Password: "pw", DBName: "paired", SSLMode: "disable",
	}
	assert.Equal(t,
		"host=db port=5432 user=app password=pw dbname=paired sslmode=disable",
		cfg.ConnectionString(),
	)
}
