// Package config loads myuni settings from a YAML file and MYUNI_*
// environment variables, then validates them against a CUE schema.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// MYUNI_REMOTE_BASE_URL for remote.base_url.
const EnvPrefix = "MYUNI"

// Config is the complete application configuration.
type Config struct {
	Database string         `mapstructure:"database"`
	Remote   RemoteConfig   `mapstructure:"remote"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Log      LogConfig      `mapstructure:"log"`
	Emulator EmulatorConfig `mapstructure:"emulator"`
}

// RemoteConfig addresses the remote document store and identity provider.
type RemoteConfig struct {
	BaseURL          string        `mapstructure:"base_url"`
	APIKey           string        `mapstructure:"api_key"`
	EventsCollection string        `mapstructure:"events_collection"`
	UsersCollection  string        `mapstructure:"users_collection"`
	Timeout          time.Duration `mapstructure:"timeout"`
}

// SyncConfig controls periodic refresh. An empty Schedule disables it.
type SyncConfig struct {
	Schedule string `mapstructure:"schedule"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// EmulatorConfig configures the local development server.
type EmulatorConfig struct {
	Listen    string `mapstructure:"listen"`
	Seed      string `mapstructure:"seed"`
	JWTSecret string `mapstructure:"jwt_secret"`
}

// SlogLevel maps Level to a slog level. Unknown levels map to info.
func (l LogConfig) SlogLevel() slog.Level {
	switch l.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var defaults = map[string]any{
	"database":                 "myuni.db",
	"remote.base_url":          "http://127.0.0.1:8787",
	"remote.api_key":           "",
	"remote.events_collection": "events",
	"remote.users_collection":  "users",
	"remote.timeout":           "15s",
	"sync.schedule":            "",
	"log.level":                "info",
	"emulator.listen":          "127.0.0.1:8787",
	"emulator.seed":            "",
	"emulator.jwt_secret":      "myuni-dev-secret",
}

// Load reads configuration.
//
// If path is empty, config.yaml is looked up in the working directory and
// its absence is not an error. If path is set, the file must exist.
// Environment variables override file values.
func Load(path string) (Config, error) {
	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := Validate(c); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() Config {
	return Config{
		Database: "myuni.db",
		Remote: RemoteConfig{
			BaseURL:          "http://127.0.0.1:8787",
			EventsCollection: "events",
			UsersCollection:  "users",
			Timeout:          15 * time.Second,
		},
		Log: LogConfig{Level: "info"},
		Emulator: EmulatorConfig{
			Listen:    "127.0.0.1:8787",
			JWTSecret: "myuni-dev-secret",
		},
	}
}
