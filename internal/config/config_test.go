package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigDefaultsAreValid(t *testing.T) {
	cfg := NewConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "3000", cfg.ServerPort)
	assert.Equal(t, 100, cfg.Media.ScanWindow)
	assert.Equal(t, "file:data/sessions.db?_foreign_keys=on&_journal_mode=WAL", cfg.StoreDSN())
}

func TestLoadYAMLWithEnvExpansion(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TEST_PG_DSN", "postgres://wa@localhost/wa?sslmode=disable")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server_port: "8088"
database:
  driver: postgres
  dsn: ${TEST_PG_DSN}
session:
  client_timeout: 15s
media:
  scan_window: 25
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "8088", cfg.ServerPort)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "postgres://wa@localhost/wa?sslmode=disable", cfg.StoreDSN())
	assert.Equal(t, 15*time.Second, cfg.Session.ClientTimeout)
	assert.Equal(t, 25, cfg.Media.ScanWindow)
	// untouched defaults survive
	assert.Equal(t, 256, cfg.Session.QRSize)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("WAGATE_PORT", "9999")
	t.Setenv("WAGATE_CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("WAGATE_MEDIA_SCAN_WINDOW", "7")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "9999", cfg.ServerPort)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 7, cfg.Media.ScanWindow)

	corsCfg := cfg.GetCorsConfig()
	assert.False(t, corsCfg.AllowAllOrigins)
	assert.Equal(t, cfg.CORS.AllowedOrigins, corsCfg.AllowOrigins)
}

func TestLoadRejectsBadEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("WAGATE_CLIENT_TIMEOUT", "soon")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WAGATE_CLIENT_TIMEOUT")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }, "unsupported database driver"},
		{"postgres without dsn", func(c *Config) { c.Database.Driver = "postgres" }, "dsn is required"},
		{"zero scan window", func(c *Config) { c.Media.ScanWindow = 0 }, "scan_window"},
		{"zero qr size", func(c *Config) { c.Session.QRSize = 0 }, "qr_size"},
		{"no workers", func(c *Config) { c.Session.ObserverWorkers = 0 }, "observer_workers"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
