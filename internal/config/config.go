// Package config provides Viper-based configuration loading for the world server.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig holds the websocket gateway listen settings.
type ServerConfig struct {
	// Host is the bind address for the HTTP/websocket listener.
	Host string `mapstructure:"host"`
	// Port is the TCP port for the HTTP/websocket listener.
	Port int `mapstructure:"port"`
	// ShutdownTimeout bounds graceful HTTP shutdown on stop.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// SweepInterval is how often the dispatcher purges sessions whose
	// connection has been lost.
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	// AdminToken guards the administrative HTTP surface. Empty disables it.
	AdminToken string `mapstructure:"admin_token"`
}

// Addr returns the "host:port" listen address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// WorldConfig holds room catalog and spawn settings.
type WorldConfig struct {
	// RoomsDir is the directory of room YAML files. Empty = built-in rooms.
	RoomsDir string `mapstructure:"rooms_dir"`
	// DefaultRoom is the room joined when a client names no room.
	DefaultRoom string `mapstructure:"default_room"`
	// SpawnJitter is the fraction of the lesser room dimension used to
	// perturb spawn positions.
	SpawnJitter float64 `mapstructure:"spawn_jitter"`
	// SpawnJitterCap is the absolute cap on spawn perturbation, in world units.
	SpawnJitterCap float64 `mapstructure:"spawn_jitter_cap"`
}

// ChatConfig holds chat subsystem settings.
type ChatConfig struct {
	// HistoryCapacity is the per-room bounded log size.
	HistoryCapacity int `mapstructure:"history_capacity"`
	// HistoryPageLimit caps a single history request.
	HistoryPageLimit int `mapstructure:"history_page_limit"`
	// CommandPrefix marks a chat line as a command.
	CommandPrefix string `mapstructure:"command_prefix"`
}

// ProgressConfig holds progression engine settings.
type ProgressConfig struct {
	// BaseThreshold is the XP required to reach level 2.
	BaseThreshold int `mapstructure:"base_threshold"`
	// LevelMultiplier grows the threshold after each level-up.
	LevelMultiplier float64 `mapstructure:"level_multiplier"`
}

// ScriptingConfig holds Lua hook settings.
type ScriptingConfig struct {
	// ScriptDir is the root directory of room scripts. Empty = scripting disabled.
	ScriptDir string `mapstructure:"script_dir"`
	// InstructionLimit caps Lua opcodes per hook call. 0 = package default.
	InstructionLimit int `mapstructure:"instruction_limit"`
}

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	World     WorldConfig     `mapstructure:"world"`
	Chat      ChatConfig      `mapstructure:"chat"`
	Progress  ProgressConfig  `mapstructure:"progress"`
	Scripting ScriptingConfig `mapstructure:"scripting"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateServer(c.Server); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateWorld(c.World); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateChat(c.Chat); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateProgress(c.Progress); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateScripting(c.Scripting); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateServer(s ServerConfig) error {
	var errs []string
	if s.Host == "" {
		errs = append(errs, "server.host must not be empty")
	}
	if s.Port < 1 || s.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", s.Port))
	}
	if s.ShutdownTimeout < 0 {
		errs = append(errs, "server.shutdown_timeout must not be negative")
	}
	if s.SweepInterval <= 0 {
		errs = append(errs, "server.sweep_interval must be positive")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

func validateWorld(w WorldConfig) error {
	var errs []string
	if w.DefaultRoom == "" {
		errs = append(errs, "world.default_room must not be empty")
	}
	if w.SpawnJitter < 0 || w.SpawnJitter > 1 {
		errs = append(errs, fmt.Sprintf("world.spawn_jitter must be 0-1, got %g", w.SpawnJitter))
	}
	if w.SpawnJitterCap < 0 {
		errs = append(errs, "world.spawn_jitter_cap must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateChat(c ChatConfig) error {
	var errs []string
	if c.HistoryCapacity < 1 {
		errs = append(errs, fmt.Sprintf("chat.history_capacity must be >= 1, got %d", c.HistoryCapacity))
	}
	if c.HistoryPageLimit < 1 {
		errs = append(errs, fmt.Sprintf("chat.history_page_limit must be >= 1, got %d", c.HistoryPageLimit))
	}
	if c.HistoryPageLimit > c.HistoryCapacity {
		errs = append(errs, "chat.history_page_limit must not exceed chat.history_capacity")
	}
	if c.CommandPrefix == "" {
		errs = append(errs, "chat.command_prefix must not be empty")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateProgress(p ProgressConfig) error {
	var errs []string
	if p.BaseThreshold < 1 {
		errs = append(errs, fmt.Sprintf("progress.base_threshold must be >= 1, got %d", p.BaseThreshold))
	}
	if p.LevelMultiplier <= 1.0 {
		errs = append(errs, fmt.Sprintf("progress.level_multiplier must be > 1.0, got %g", p.LevelMultiplier))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateScripting(s ScriptingConfig) error {
	if s.InstructionLimit < 0 {
		return errors.New("scripting.instruction_limit must not be negative")
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result. An empty path skips the file and uses
// defaults plus environment overrides only.
//
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()

	// Environment variable overrides with VERSE_ prefix
	v.SetEnvPrefix("VERSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Default returns the built-in configuration used when no config file is given.
//
/// Postcondition: Returns a Config that passes Validate.
func Default() Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("unmarshalling default config: %v", err))
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8090)
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.sweep_interval", "30s")
	v.SetDefault("server.admin_token", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("world.rooms_dir", "")
	v.SetDefault("world.default_room", "main-world")
	v.SetDefault("world.spawn_jitter", 0.3)
	v.SetDefault("world.spawn_jitter_cap", 20.0)

	v.SetDefault("chat.history_capacity", 500)
	v.SetDefault("chat.history_page_limit", 100)
	v.SetDefault("chat.command_prefix", "/")

	v.SetDefault("progress.base_threshold", 100)
	v.SetDefault("progress.level_multiplier", 1.5)

	v.SetDefault("scripting.script_dir", "")
	v.SetDefault("scripting.instruction_limit", 0)
}
