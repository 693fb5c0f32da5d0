package cliconfig

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// FileConfig mirrors Config but uses strings for durations to make TOML
// and YAML friendly. Pointers mark settings whose zero value is meaningful.
type FileConfig struct {
	DataDir       string `toml:"data_dir" yaml:"data_dir"`
	Subscriptions int    `toml:"subscriptions" yaml:"subscriptions"`
	Size          int    `toml:"size" yaml:"size"`

	ChunkSize       int    `toml:"chunk_size" yaml:"chunk_size"`
	Retries         *int   `toml:"retries" yaml:"retries"`
	AllowPartial    *bool  `toml:"allow_partial" yaml:"allow_partial"`
	RetryBackoff    string `toml:"retry_backoff" yaml:"retry_backoff"`
	RetryBackoffMax string `toml:"retry_backoff_max" yaml:"retry_backoff_max"`

	Threads          int `toml:"threads" yaml:"threads"`
	CompressionLevel int `toml:"compression_level" yaml:"compression_level"`

	Debounce string `toml:"debounce" yaml:"debounce"`

	LogLevel  string `toml:"log_level" yaml:"log_level"`
	LogFormat string `toml:"log_format" yaml:"log_format"`
}

// LoadFileConfig reads and parses a config file from the given path.
// Files ending in .yaml or .yml are parsed as YAML, anything else as TOML.
// Unknown keys are rejected.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(b))
		dec.KnownFields(true)
		// An empty document decodes to io.EOF.
		if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
			return fc, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		dec := toml.NewDecoder(bytes.NewReader(b))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&fc); err != nil {
			return fc, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.subvault/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".subvault", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("data-dir", fc.DataDir, &cfg.DataDir)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setString("log-format", fc.LogFormat, &cfg.LogFormat)

	s.setInt("subs", fc.Subscriptions, &cfg.Subscriptions)
	s.setInt("size", fc.Size, &cfg.Size)
	s.setInt("chunk-size", fc.ChunkSize, &cfg.ChunkSize)
	s.setIntPtr("retries", fc.Retries, &cfg.Retries)
	s.setInt("threads", fc.Threads, &cfg.Threads)
	s.setInt("compression-level", fc.CompressionLevel, &cfg.CompressionLevel)

	if err := s.setDuration("retry-backoff", fc.RetryBackoff, &cfg.RetryBackoff); err != nil {
		return err
	}
	if err := s.setDuration("retry-backoff-max", fc.RetryBackoffMax, &cfg.RetryBackoffMax); err != nil {
		return err
	}
	if err := s.setDuration("debounce", fc.Debounce, &cfg.DebounceDelay); err != nil {
		return err
	}

	s.setBool("allow-partial", fc.AllowPartial, &cfg.AllowPartial)

	return nil
}
