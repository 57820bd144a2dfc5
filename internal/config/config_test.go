package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8090,
			ShutdownTimeout: 10 * time.Second,
			SweepInterval:   30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		World: WorldConfig{
			DefaultRoom:    "main-world",
			SpawnJitter:    0.3,
			SpawnJitterCap: 20.0,
		},
		Chat: ChatConfig{
			HistoryCapacity:  500,
			HistoryPageLimit: 100,
			CommandPrefix:    "/",
		},
		Progress: ProgressConfig{
			BaseThreshold:   100,
			LevelMultiplier: 1.5,
		},
	}
}

func TestValidConfig(t *testing.T) {
	cfg := validConfig()
	assert.NoError(t, cfg.Validate())
}

func TestServerAddr(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, "0.0.0.0:8090", cfg.Server.Addr())
}

func TestValidateRejectsBadPort(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port")
}

func TestValidateRejectsBadLevel(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.Level = "verbose"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logging.level")
}

func TestValidateRejectsBadJitter(t *testing.T) {
	cfg := validConfig()
	cfg.World.SpawnJitter = 1.5
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "spawn_jitter")
}

func TestValidateRejectsPageLimitOverCapacity(t *testing.T) {
	cfg := validConfig()
	cfg.Chat.HistoryCapacity = 50
	cfg.Chat.HistoryPageLimit = 100
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "history_page_limit")
}

func TestValidateRejectsFlatMultiplier(t *testing.T) {
	cfg := validConfig()
	cfg.Progress.LevelMultiplier = 1.0
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "level_multiplier")
}

func TestValidateAggregatesViolations(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Host = ""
	cfg.Logging.Format = "xml"
	cfg.Chat.CommandPrefix = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.host")
	assert.Contains(t, err.Error(), "logging.format")
	assert.Contains(t, err.Error(), "command_prefix")
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yaml")
	err := os.WriteFile(path, []byte(`
server:
  host: 127.0.0.1
  port: 9000
logging:
  level: debug
  format: console
world:
  default_room: plaza
chat:
  history_capacity: 200
  history_page_limit: 50
`), 0o644)
	require.NoError(t, err)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "plaza", cfg.World.DefaultRoom)
	assert.Equal(t, 200, cfg.Chat.HistoryCapacity)
	assert.Equal(t, 50, cfg.Chat.HistoryPageLimit)
	// Unset sections fall back to defaults.
	assert.Equal(t, "/", cfg.Chat.CommandPrefix)
	assert.Equal(t, 100, cfg.Progress.BaseThreshold)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestLoadEmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	err := os.WriteFile(path, []byte(`
logging:
  level: shout
`), 0o644)
	require.NoError(t, err)

	_, err = Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logging.level")
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 500, cfg.Chat.HistoryCapacity)
	assert.Equal(t, "main-world", cfg.World.DefaultRoom)
}
