package cliconfig

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/bft-labs/subvault/pkg/log"
	"github.com/bft-labs/subvault/pkg/runner"
)

const (
	// DefaultSubscriptions is the number of subscriptions when -n is not given.
	DefaultSubscriptions = 8

	// DefaultSize is the default catalog size passed to the generator.
	DefaultSize = 100

	// DefaultThreads bounds the executor running encoding and compression.
	DefaultThreads = 16
)

// Config holds CLI configuration for subvault.
type Config struct {
	DataDir       string
	Subscriptions int
	Size          int

	ChunkSize       int
	Retries         int
	AllowPartial    bool
	RetryBackoff    time.Duration
	RetryBackoffMax time.Duration

	Threads          int
	CompressionLevel int

	DebounceDelay time.Duration

	LogLevel  string
	LogFormat string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		DataDir:          ".",
		Subscriptions:    DefaultSubscriptions,
		Size:             DefaultSize,
		ChunkSize:        runner.DefaultChunkSize,
		RetryBackoffMax:  2 * time.Second,
		Threads:          DefaultThreads,
		CompressionLevel: 3,
		DebounceDelay:    100 * time.Millisecond,
		LogLevel:         "info",
		LogFormat:        log.FormatConsole,
	}
}

// Validate checks the configuration for errors and sets derived defaults.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		c.DataDir = "."
	}
	if c.Subscriptions < 1 || c.Subscriptions > math.MaxUint8 {
		return fmt.Errorf("subscriptions must be between 1 and %d, got %d", math.MaxUint8, c.Subscriptions)
	}
	if c.Size < 1 {
		return fmt.Errorf("size must be positive, got %d", c.Size)
	}
	if c.Threads < 1 {
		return fmt.Errorf("threads must be positive, got %d", c.Threads)
	}
	if c.CompressionLevel < 1 || c.CompressionLevel > 22 {
		return fmt.Errorf("compression level must be between 1 and 22, got %d", c.CompressionLevel)
	}
	if c.RetryBackoffMax > 0 && c.RetryBackoffMax < c.RetryBackoff {
		c.RetryBackoffMax = c.RetryBackoff
	}
	if c.DebounceDelay <= 0 {
		return fmt.Errorf("debounce delay must be positive")
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel)); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	switch c.LogFormat {
	case log.FormatConsole, log.FormatJSON:
	default:
		return fmt.Errorf("log format must be %q or %q, got %q", log.FormatConsole, log.FormatJSON, c.LogFormat)
	}
	return c.RunnerConfig().Validate()
}

// RunnerConfig returns the runner settings of c.
func (c *Config) RunnerConfig() runner.Config {
	return runner.Config{
		ChunkSize:       c.ChunkSize,
		Retries:         c.Retries,
		AllowPartial:    c.AllowPartial,
		RetryBackoff:    c.RetryBackoff,
		RetryBackoffMax: c.RetryBackoffMax,
	}
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setIntPtr sets an int value from a pointer if not nil and flag not changed.
// Used for settings where zero is meaningful.
func (s *configSetter) setIntPtr(flag string, value *int, dst *int) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings. Negative values are
// rejected; zero is applied only when allowZero is set.
func (s *configSetter) setIntFromString(flag, value string, dst *int, allowZero bool) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i < 0 || (i == 0 && !allowZero) {
		return fmt.Errorf("parse %s: %d out of range", flag, i)
	}
	*dst = i
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
// Used for environment variables that come as strings.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
