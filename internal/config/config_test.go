package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `{"port": 8080, "jwt_secret": "s", "database": {"host": "localhost"}, "session": {"enabled": true}}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 168, cfg.JWTTTLHours)
	require.Equal(t, 6, cfg.PasswordMinLength)
	require.Equal(t, int64(5*1024*1024), cfg.UploadMaxBytes)
	require.Equal(t, 10, cfg.OTP.ExpireMinutes)
	require.Equal(t, 5432, cfg.Database.Port)
	require.Equal(t, SessionBackendDB, cfg.Session.Backend)
	require.Equal(t, 168, cfg.Session.RetentionHours)
	require.Equal(t, "local", cfg.FileStore.Type)
	require.Equal(t, map[string]interface{}{"dir": "uploads"}, cfg.FileStore.Data)
	require.Equal(t, 20, cfg.Database.MaxOpenConns)
	require.Equal(t, "info", cfg.LogConfig.Level)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("ACCOUNTD_JWT_SECRET", "from-env")
	t.Setenv("ACCOUNTD_DB_DSN", "postgres://u:p@db/accounts")
	t.Setenv("ACCOUNTD_PORT", "9090")
	path := writeConfig(t, `{"port": 8080}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "from-env", cfg.JWTSecret)
	require.Equal(t, "postgres://u:p@db/accounts", cfg.Database.DSN)
	require.Equal(t, 9090, cfg.Port)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "missing secret", body: `{"port": 1, "database": {"host": "h"}}`},
		{name: "missing port", body: `{"jwt_secret": "s", "database": {"host": "h"}}`},
		{name: "missing database", body: `{"port": 1, "jwt_secret": "s"}`},
		{name: "redis without addr", body: `{"port": 1, "jwt_secret": "s", "database": {"host": "h"}, "session": {"enabled": true, "backend": "redis"}}`},
		{name: "unknown backend", body: `{"port": 1, "jwt_secret": "s", "database": {"host": "h"}, "session": {"enabled": true, "backend": "memcache"}}`},
		{name: "bad json", body: `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}
