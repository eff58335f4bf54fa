// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/treeshell/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete treeshell configuration.
type Config struct {
	// General settings
	Version string `toml:"version" json:"version"`

	// Shell configuration
	Shell ShellConfig `toml:"shell" json:"shell"`

	// Tree source configuration
	Tree TreeConfig `toml:"tree" json:"tree"`

	// HTTP server configuration
	Server ServerConfig `toml:"server" json:"server"`

	// Logging configuration
	Log LogConfig `toml:"log" json:"log"`
}

// ShellConfig contains interactive shell settings.
type ShellConfig struct {
	// Prompt is a template whose %s is replaced by the current directory
	Prompt string `toml:"prompt" json:"prompt"`

	// Welcome is printed on start and by the welcome command
	Welcome string `toml:"welcome" json:"welcome"`

	// HistoryFile persists line history, empty to disable
	HistoryFile string `toml:"history_file" json:"history_file"`

	// HistoryLimit caps the number of saved history lines
	HistoryLimit int `toml:"history_limit" json:"history_limit"`

	// Color is one of auto, always, never
	Color string `toml:"color" json:"color"`
}

// TreeConfig describes where the namespace comes from.
type TreeConfig struct {
	// File is a JSON or TOML tree description, empty for the built-in tree
	File string `toml:"file" json:"file"`

	// Watch reloads the tree when File changes
	Watch bool `toml:"watch" json:"watch"`
}

// ServerConfig contains HTTP API settings.
type ServerConfig struct {
	Addr string `toml:"addr" json:"addr"`

	// SessionTimeoutSecs is how long an idle session lives
	SessionTimeoutSecs int `toml:"session_timeout_secs" json:"session_timeout_secs"`

	// MaxSessions caps live sessions, 0 for no limit
	MaxSessions int `toml:"max_sessions" json:"max_sessions"`

	// RateLimit is requests per second per client, 0 to disable
	RateLimit float64 `toml:"rate_limit" json:"rate_limit"`
	RateBurst int     `toml:"rate_burst" json:"rate_burst"`

	// AuthToken enables bearer authentication when set
	AuthToken string `toml:"auth_token" json:"auth_token"`

	// CORSOrigins lists allowed origins, empty to disable CORS
	CORSOrigins []string `toml:"cors_origins" json:"cors_origins"`

	// TranscriptDB is the SQLite file for session transcripts, empty to
	// keep no transcripts
	TranscriptDB string `toml:"transcript_db" json:"transcript_db"`
}

// SessionTimeout returns the idle timeout as a duration.
func (s ServerConfig) SessionTimeout() time.Duration {
	return time.Duration(s.SessionTimeoutSecs) * time.Second
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error
	Level string `toml:"level" json:"level"`

	// Format is console or json
	Format string `toml:"format" json:"format"`
}

// DefaultPrompt matches a classic shell prompt.
const DefaultPrompt = "shell:%s> "

// Default returns the default configuration.
func Default() *Config {
	cfg := &Config{
		Version: "1",
		Shell: ShellConfig{
			Prompt:       DefaultPrompt,
			Welcome:      "Welcome! Type `help` to see the available commands.",
			HistoryLimit: 1000,
			Color:        "auto",
		},
		Server: ServerConfig{
			Addr:               "127.0.0.1:8080",
			SessionTimeoutSecs: 1800,
			MaxSessions:        1000,
			RateLimit:          10,
			RateBurst:          20,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}

	if dir, err := ConfigDir(); err == nil {
		cfg.Shell.HistoryFile = filepath.Join(dir, "history")
		cfg.Server.TranscriptDB = filepath.Join(dir, "transcripts.db")
	}
	return cfg
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the treeshell configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".treeshell"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads the configuration from the default path, falling back to
// defaults when no file exists. Environment overrides are applied last.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			return LoadFromPath(path)
		}
	}

	cfg := Default()
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file with full validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := &Config{}
	if err := LoadTOML(cfg, path); err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}

	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file into cfg and fills in missing values.
func LoadTOML(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	fillDefaults(cfg)
	return nil
}

// fillDefaults fills in any missing values with defaults.
func fillDefaults(cfg *Config) {
	defaults := Default()

	if cfg.Version == "" {
		cfg.Version = defaults.Version
	}

	// Shell
	if cfg.Shell.Prompt == "" {
		cfg.Shell.Prompt = defaults.Shell.Prompt
	}
	if cfg.Shell.HistoryLimit == 0 {
		cfg.Shell.HistoryLimit = defaults.Shell.HistoryLimit
	}
	if cfg.Shell.Color == "" {
		cfg.Shell.Color = defaults.Shell.Color
	}

	// Server
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaults.Server.Addr
	}
	if cfg.Server.SessionTimeoutSecs == 0 {
		cfg.Server.SessionTimeoutSecs = defaults.Server.SessionTimeoutSecs
	}
	if cfg.Server.RateBurst == 0 {
		cfg.Server.RateBurst = defaults.Server.RateBurst
	}

	// Log
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaults.Log.Level
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = defaults.Log.Format
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default path.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes the configuration atomically with owner-only permissions.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# treeshell configuration file\n")
	buf.WriteString("# Generated by treeshell - edit with care\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	// auth_token may be set, so keep the file private
	if err := util.AtomicWriteFileWithDir(path, buf.Bytes(), 0600, 0700); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if strings.Count(c.Shell.Prompt, "%s") != 1 || strings.Count(c.Shell.Prompt, "%") != 1 {
		errs = append(errs, ValidationError{
			Field:   "shell.prompt",
			Message: fmt.Sprintf("prompt %q must contain exactly one %%s and no other verbs", c.Shell.Prompt),
		})
	}
	if c.Shell.HistoryLimit < 0 {
		errs = append(errs, ValidationError{
			Field:   "shell.history_limit",
			Message: "must not be negative",
		})
	}
	switch c.Shell.Color {
	case "auto", "always", "never":
	default:
		errs = append(errs, ValidationError{
			Field:   "shell.color",
			Message: fmt.Sprintf("invalid value '%s', must be one of: auto, always, never", c.Shell.Color),
		})
	}

	if c.Tree.Watch && c.Tree.File == "" {
		errs = append(errs, ValidationError{
			Field:   "tree.watch",
			Message: "requires tree.file",
		})
	}
	if c.Tree.File != "" {
		switch strings.ToLower(filepath.Ext(c.Tree.File)) {
		case ".json", ".toml":
		default:
			errs = append(errs, ValidationError{
				Field:   "tree.file",
				Message: fmt.Sprintf("unsupported extension in '%s', use .json or .toml", c.Tree.File),
			})
		}
	}

	if c.Server.Addr == "" {
		errs = append(errs, ValidationError{Field: "server.addr", Message: "must not be empty"})
	}
	if c.Server.SessionTimeoutSecs < 0 {
		errs = append(errs, ValidationError{Field: "server.session_timeout_secs", Message: "must not be negative"})
	}
	if c.Server.MaxSessions < 0 {
		errs = append(errs, ValidationError{Field: "server.max_sessions", Message: "must not be negative"})
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, ValidationError{Field: "server.rate_limit", Message: "must not be negative"})
	}
	if c.Server.RateLimit > 0 && c.Server.RateBurst < 1 {
		errs = append(errs, ValidationError{Field: "server.rate_burst", Message: "must be at least 1 when rate_limit is set"})
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("invalid level '%s', must be one of: debug, info, warn, error", c.Log.Level),
		})
	}
	switch strings.ToLower(c.Log.Format) {
	case "console", "json":
	default:
		errs = append(errs, ValidationError{
			Field:   "log.format",
			Message: fmt.Sprintf("invalid format '%s', must be one of: console, json", c.Log.Format),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides.
//
// Supported variables:
//   - TREESHELL_TREE: overrides tree.file
//   - TREESHELL_PROMPT: overrides shell.prompt
//   - TREESHELL_WELCOME: overrides shell.welcome
//   - TREESHELL_HISTORY_FILE: overrides shell.history_file
//   - TREESHELL_ADDR: overrides server.addr
//   - TREESHELL_AUTH_TOKEN: overrides server.auth_token
//   - TREESHELL_LOG_LEVEL: overrides log.level
//   - TREESHELL_LOG_FORMAT: overrides log.format
func (c *Config) ApplyEnvOverrides() {
	overrides := []struct {
		env    string
		target *string
	}{
		{"TREESHELL_TREE", &c.Tree.File},
		{"TREESHELL_PROMPT", &c.Shell.Prompt},
		{"TREESHELL_WELCOME", &c.Shell.Welcome},
		{"TREESHELL_HISTORY_FILE", &c.Shell.HistoryFile},
		{"TREESHELL_ADDR", &c.Server.Addr},
		{"TREESHELL_AUTH_TOKEN", &c.Server.AuthToken},
		{"TREESHELL_LOG_LEVEL", &c.Log.Level},
		{"TREESHELL_LOG_FORMAT", &c.Log.Format},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.env); v != "" {
			*o.target = v
		}
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "server.addr").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation (e.g., "server.addr").
func (c *Config) Set(key string, value interface{}) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

func (c *Config) lookup(key string) (reflect.Value, error) {
	if key == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)
		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}

		if i == len(parts)-1 {
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go field equivalent.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		result.WriteString(strings.ToUpper(part[:1]))
		result.WriteString(strings.ToLower(part[1:]))
	}
	return result.String()
}

// setFieldValue sets a reflect.Value from an interface{} value with type conversion.
func setFieldValue(field reflect.Value, value interface{}) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %w", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Float64:
			floatVal, err := strconv.ParseFloat(strVal, 64)
			if err != nil {
				return fmt.Errorf("invalid float value: %w", err)
			}
			field.SetFloat(floatVal)
			return nil
		case reflect.Bool:
			boolVal, err := strconv.ParseBool(strVal)
			if err != nil {
				return fmt.Errorf("invalid boolean value: %w", err)
			}
			field.SetBool(boolVal)
			return nil
		case reflect.Slice:
			if field.Type().Elem().Kind() == reflect.String {
				var items []string
				for _, s := range strings.Split(strVal, ",") {
					if s = strings.TrimSpace(s); s != "" {
						items = append(items, s)
					}
				}
				field.Set(reflect.ValueOf(items))
				return nil
			}
		}
	}

	val := reflect.ValueOf(value)
	if !val.IsValid() {
		return fmt.Errorf("cannot assign nil to %s", field.Type())
	}
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// GetAllKeys returns all configuration keys in dot notation.
func GetAllKeys() []string {
	return []string{
		"version",
		"shell.prompt",
		"shell.welcome",
		"shell.history_file",
		"shell.history_limit",
		"shell.color",
		"tree.file",
		"tree.watch",
		"server.addr",
		"server.session_timeout_secs",
		"server.max_sessions",
		"server.rate_limit",
		"server.rate_burst",
		"server.auth_token",
		"server.cors_origins",
		"server.transcript_db",
		"log.level",
		"log.format",
	}
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	if c.Server.CORSOrigins != nil {
		clone.Server.CORSOrigins = append([]string(nil), c.Server.CORSOrigins...)
	}
	return &clone
}

// String renders the configuration as TOML with the auth token redacted.
func (c *Config) String() string {
	safe := c.Clone()
	if safe.Server.AuthToken != "" {
		safe.Server.AuthToken = "[REDACTED]"
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(safe); err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	return buf.String()
}
