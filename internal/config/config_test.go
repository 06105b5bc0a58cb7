package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func missingFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "absent.env")
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token")

	cfg, err := Load(missingFile(t))
	require.NoError(t, err)

	assert.Equal(t, "token", cfg.DiscordToken)
	assert.Equal(t, "!", cfg.Prefix)
	assert.False(t, cfg.PublicApp)
	assert.True(t, cfg.SyncCommands)
	assert.Empty(t, cfg.Guilds)
	assert.Equal(t, time.Minute, cfg.CooldownSweepInterval)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "console", cfg.LogFormat)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("DISCORD_APP_ID", "123")
	t.Setenv("COMMAND_PREFIX", "?")
	t.Setenv("PUBLIC_APP", "true")
	t.Setenv("DISCORD_GUILDS", "g1,g2")
	t.Setenv("SYNC_COMMANDS", "false")
	t.Setenv("COOLDOWN_SWEEP_INTERVAL", "30s")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load(missingFile(t))
	require.NoError(t, err)

	assert.Equal(t, "123", cfg.AppID)
	assert.Equal(t, "?", cfg.Prefix)
	assert.True(t, cfg.PublicApp)
	assert.Equal(t, []string{"g1", "g2"}, cfg.Guilds)
	assert.False(t, cfg.SyncCommands)
	assert.Equal(t, 30*time.Second, cfg.CooldownSweepInterval)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadTrimsGuildIDs(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("DISCORD_GUILDS", " g1, g2 ,,g3,")

	cfg, err := Load(missingFile(t))
	require.NoError(t, err)

	assert.Equal(t, []string{"g1", "g2", "g3"}, cfg.Guilds)
}

func TestLoadRequiresToken(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "")

	_, err := Load(missingFile(t))
	assert.Error(t, err)
}

func TestLoadReadsDotenv(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "from-env")
	// Registered so the value godotenv sets is removed after the test.
	t.Setenv("COMMAND_PREFIX", "")
	require.NoError(t, os.Unsetenv("COMMAND_PREFIX"))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("DISCORD_TOKEN=from-file\nCOMMAND_PREFIX=>>\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.DiscordToken, "environment wins over the file")
	assert.Equal(t, ">>", cfg.Prefix)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{DiscordToken: "t", Prefix: "!", LogLevel: "info", LogFormat: "console", CooldownSweepInterval: time.Minute}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"valid", func(*Config) {}, nil},
		{"empty prefix", func(c *Config) { c.Prefix = "" }, ErrEmptyPrefix},
		{"unknown format", func(c *Config) { c.LogFormat = "xml" }, ErrLogFormat},
		{"zero sweep", func(c *Config) { c.CooldownSweepInterval = 0 }, ErrSweepInterval},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	cfg := valid()
	cfg.LogLevel = "loud"
	assert.Error(t, cfg.Validate())
}
