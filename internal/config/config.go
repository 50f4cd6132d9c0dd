// Package config loads the Bolder configuration file.
//
// The file is YAML. Every section is optional; missing keys keep their
// defaults, so a file holding only
//
//	engine:
//	  min_words_in_block: 6
//
// is a complete configuration. Unknown keys are rejected.
package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/FocuswithJustin/Bolder/core/engine"
	"github.com/FocuswithJustin/Bolder/core/errors"
	"github.com/FocuswithJustin/Bolder/internal/logging"
)

// Config is the full configuration of a Bolder process.
type Config struct {
	Engine engine.Config `yaml:"engine"`
	Server Server        `yaml:"server"`
	Log    Log           `yaml:"log"`
}

// Server configures `bolder serve`.
type Server struct {
	Port           int      `yaml:"port"`
	SettingsDB     string   `yaml:"settings_db"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	APIKey         string   `yaml:"api_key"`
	RateLimit      int      `yaml:"rate_limit"` // requests per minute, 0 = off
	RateLimitBurst int      `yaml:"rate_limit_burst"`
	MaxBodyBytes   int64    `yaml:"max_body_bytes"`
	TLSCert        string   `yaml:"tls_cert"`
	TLSKey         string   `yaml:"tls_key"`
}

// Log configures internal/logging.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

var (
	logLevels  = []string{"debug", "info", "warn", "warning", "error"}
	logFormats = []string{"json", "text"}
)

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Engine: engine.DefaultConfig(),
		Server: Server{
			Port:         8080,
			SettingsDB:   "bolder.db",
			MaxBodyBytes: 8 << 20,
		},
		Log: Log{Level: "info", Format: "json"},
	}
}

// Load reads path over the defaults and validates the result. An empty
// path returns the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.NewIO("read", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		var pe *errors.ParseError
		if errors.As(err, &pe) {
			pe.Path = path
		}
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, &errors.ParseError{Format: "yaml", Message: err.Error(), Err: err}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.Engine.Validate(); err != nil {
		return errors.Wrap(err, "engine")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return errors.NewValidation("server.port", fmt.Sprintf("%d is out of range", c.Server.Port))
	}
	if c.Server.RateLimit < 0 || c.Server.RateLimitBurst < 0 {
		return errors.NewValidation("server.rate_limit", "must not be negative")
	}
	if c.Server.MaxBodyBytes <= 0 {
		return errors.NewValidation("server.max_body_bytes", "must be positive")
	}
	if (c.Server.TLSCert == "") != (c.Server.TLSKey == "") {
		return errors.NewValidation("server.tls_cert", "tls_cert and tls_key must be set together")
	}
	if !slices.Contains(logLevels, c.Log.Level) {
		return errors.NewValidation("log.level", fmt.Sprintf("unknown level %q", c.Log.Level))
	}
	if !slices.Contains(logFormats, c.Log.Format) {
		return errors.NewValidation("log.format", fmt.Sprintf("unknown format %q", c.Log.Format))
	}
	return nil
}

// LogLevel returns the configured level for logging.InitLogger.
func (l Log) LogLevel() logging.Level {
	return logging.ParseLevel(l.Level)
}

// LogFormat returns the configured format for logging.InitLogger.
func (l Log) LogFormat() logging.Format {
	if l.Format == "text" {
		return logging.FormatText
	}
	return logging.FormatJSON
}
