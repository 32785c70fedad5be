package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	t.Setenv("FUTMAP_TEST_DB", filepath.Join(tmpDir, "futmap.db"))

	yamlContent := `
app:
  name: futmap-test
database:
  path: "${FUTMAP_TEST_DB}"
ledger:
  restore_slot_on_cancel: true
  timezone: UTC
api:
  enabled: true
  auth:
    enabled: true
    api_keys:
      - key: "k1"
        name: "web"
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0o644))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "futmap-test", cfg.App.Name)
	assert.Equal(t, filepath.Join(tmpDir, "futmap.db"), cfg.Database.Path)
	assert.True(t, cfg.Ledger.RestoreSlotOnCancel)
	assert.Equal(t, "sqlite", cfg.Session.Backend)
	assert.Equal(t, "futmap", cfg.Session.Namespace)
	assert.Equal(t, "confirmed", cfg.Ledger.DefaultStatus)
	assert.True(t, cfg.API.HTTP.Enabled)
	assert.Equal(t, 8080, cfg.API.HTTP.Port)
	assert.Equal(t, "x-api-key", cfg.API.Auth.HeaderAPIKey)
	assert.Equal(t, "UTC", cfg.Location().String())
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "memory", cfg.Session.Backend)
	assert.Equal(t, 3, cfg.Session.Retry.MaxRetries)
	assert.Equal(t, "exports", cfg.Exports.Path)
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{
			name:    "defaults",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "sqlite without path",
			mutate:  func(c *Config) { c.Session.Backend = "sqlite" },
			wantErr: true,
		},
		{
			name:    "redis without address",
			mutate:  func(c *Config) { c.Session.Backend = "redis" },
			wantErr: true,
		},
		{
			name:    "unknown backend",
			mutate:  func(c *Config) { c.Session.Backend = "etcd" },
			wantErr: true,
		},
		{
			name:    "cancelled default status",
			mutate:  func(c *Config) { c.Ledger.DefaultStatus = "cancelled" },
			wantErr: true,
		},
		{
			name:    "bad timezone",
			mutate:  func(c *Config) { c.Ledger.Timezone = "Mars/Olympus" },
			wantErr: true,
		},
		{
			name:    "telegram without chat",
			mutate:  func(c *Config) { c.Telegram.BotToken = "token" },
			wantErr: true,
		},
		{
			name: "duplicate api keys",
			mutate: func(c *Config) {
				c.API.Auth.APIKeys = []APIClientKey{{Key: "a", Name: "one"}, {Key: "a", Name: "two"}}
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
