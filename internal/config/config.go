// Package config provides Viper-based configuration loading for the guessword server.
package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ServerConfig holds the game protocol listener settings.
type ServerConfig struct {
	// Host is the bind address for the game listener.
	Host string `mapstructure:"host"`
	// Port is the TCP port for the game listener.
	Port int `mapstructure:"port"`
	// ReadTimeout bounds the single request read. Zero disables the deadline.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout bounds each response write. Zero disables the deadline.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// MaxMessageBytes is the size of the single bounded request read.
	MaxMessageBytes int `mapstructure:"max_message_bytes"`
	// ShutdownGrace is how long the host waits for in-flight handlers after Shutdown.
	ShutdownGrace time.Duration `mapstructure:"shutdown_grace"`
}

// Addr returns the "host:port" listen address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// PuzzleConfig locates the puzzle definition files.
type PuzzleConfig struct {
	Dir string `mapstructure:"dir"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// HistoryConfig controls the finished-game archive.
type HistoryConfig struct {
	// Enabled turns on recording of finished games to the database.
	Enabled bool `mapstructure:"enabled"`
	// Buffer is the number of results queued before new ones are dropped.
	Buffer int `mapstructure:"buffer"`
}

// HealthConfig controls the gRPC health endpoint.
type HealthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
}

// Addr returns the "host:port" health listen address.
func (h HealthConfig) Addr() string {
	return net.JoinHostPort(h.Host, strconv.Itoa(h.Port))
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
	// File is an optional path that receives log lines in addition to stderr.
	File string `mapstructure:"file"`
}

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Puzzles  PuzzleConfig   `mapstructure:"puzzles"`
	Database DatabaseConfig `mapstructure:"database"`
	History  HistoryConfig  `mapstructure:"history"`
	Health   HealthConfig   `mapstructure:"health"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateServer(c.Server); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Puzzles.Dir == "" {
		errs = append(errs, "puzzles.dir must not be empty")
	}
	if c.History.Enabled {
		if err := validateDatabase(c.Database); err != nil {
			errs = append(errs, err.Error())
		}
		if c.History.Buffer < 1 {
			errs = append(errs, fmt.Sprintf("history.buffer must be >= 1, got %d", c.History.Buffer))
		}
	}
	if c.Health.Enabled {
		if c.Health.Port < 1 || c.Health.Port > 65535 {
			errs = append(errs, fmt.Sprintf("health.port must be 1-65535, got %d", c.Health.Port))
		} else if c.Health.Host == c.Server.Host && c.Health.Port == c.Server.Port {
			errs = append(errs, "health.port must differ from server.port")
		}
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateServer(s ServerConfig) error {
	var errs []string
	if s.Port < 0 || s.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 0-65535, got %d", s.Port))
	}
	if s.ReadTimeout < 0 {
		errs = append(errs, "server.read_timeout must not be negative")
	}
	if s.WriteTimeout < 0 {
		errs = append(errs, "server.write_timeout must not be negative")
	}
	if s.ShutdownGrace < 0 {
		errs = append(errs, "server.shutdown_grace must not be negative")
	}
	if s.MaxMessageBytes < 64 {
		errs = append(errs, fmt.Sprintf("server.max_message_bytes must be >= 64, got %d", s.MaxMessageBytes))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
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

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"host":        "server.host",
	"port":        "server.port",
	"puzzles":     "puzzles.dir",
	"log-level":   "logging.level",
	"log-format":  "logging.format",
	"log-file":    "logging.file",
	"history":     "history.enabled",
	"health-port": "health.port",
}

// Load reads configuration from the given file path, applies environment variable
// and flag overrides, and validates the result. An empty path skips the file and
// uses defaults. fs may be nil.
//
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string, fs *pflag.FlagSet) (Config, error) {
	v := viper.New()

	// Environment variable overrides with GUESSWORD_ prefix
	v.SetEnvPrefix("GUESSWORD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fmt.Errorf("binding flag %q: %w", name, err)
				}
			}
		}
	}

	return LoadFromViper(v)
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

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 13000)
	v.SetDefault("server.read_timeout", "0s")
	v.SetDefault("server.write_timeout", "10s")
	v.SetDefault("server.max_message_bytes", 1024)
	v.SetDefault("server.shutdown_grace", "5s")

	v.SetDefault("puzzles.dir", "puzzles")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "guessword")
	v.SetDefault("database.password", "guessword")
	v.SetDefault("database.name", "guessword")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("history.enabled", false)
	v.SetDefault("history.buffer", 64)

	v.SetDefault("health.enabled", false)
	v.SetDefault("health.host", "127.0.0.1")
	v.SetDefault("health.port", 13001)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file", "")
}
