package config

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv(envOf(map[string]string{
		"DATABASE_URL":   "postgres://localhost/brackets",
		"JWT_SECRET_KEY": "secret",
	}))
	require.NoError(t, err)

	assert.Equal(t, StoreDriverPostgres, cfg.StoreDriver)
	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, "120-M", cfg.RateLimit)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
}

func TestFromEnv_SQLite(t *testing.T) {
	cfg, err := FromEnv(envOf(map[string]string{
		"STORE_DRIVER":         "SQLite",
		"JWT_SECRET_KEY":       "secret",
		"LOG_LEVEL":            "debug",
		"CORS_ALLOWED_ORIGINS": "https://a.example.com, https://b.example.com",
	}))
	require.NoError(t, err)

	assert.Equal(t, StoreDriverSQLite, cfg.StoreDriver)
	assert.Equal(t, "data/brackets.db", cfg.SQLitePath)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORSOrigins)
}

func TestFromEnv_Errors(t *testing.T) {
	base := map[string]string{
		"DATABASE_URL":   "postgres://localhost/brackets",
		"JWT_SECRET_KEY": "secret",
	}
	tests := map[string]map[string]string{
		"missing database":  {"JWT_SECRET_KEY": "secret"},
		"missing secret":    {"DATABASE_URL": "postgres://localhost/brackets"},
		"unknown driver":    {"STORE_DRIVER": "mongo"},
		"bad port":          {"SERVER_PORT": "http"},
		"port out of range": {"SERVER_PORT": "70000"},
		"bad log level":     {"LOG_LEVEL": "loud"},
		"partial r2":        {"R2_BUCKET_NAME": "snapshots"},
	}
	for name, override := range tests {
		t.Run(name, func(t *testing.T) {
			env := map[string]string{}
			if name != "missing database" && name != "missing secret" {
				for k, v := range base {
					env[k] = v
				}
			}
			for k, v := range override {
				env[k] = v
			}
			_, err := FromEnv(envOf(env))
			assert.Error(t, err)
		})
	}
}
