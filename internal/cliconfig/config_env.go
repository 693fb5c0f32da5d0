package cliconfig

import "os"

// EnvPrefix prefixes every environment variable read by ApplyEnvConfig.
const EnvPrefix = "SUBVAULT_"

// ApplyEnvConfig applies configuration from environment variables (SUBVAULT_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("data-dir", getenv("DATA_DIR"), &cfg.DataDir)
	s.setString("log-level", getenv("LOG_LEVEL"), &cfg.LogLevel)
	s.setString("log-format", getenv("LOG_FORMAT"), &cfg.LogFormat)

	ints := []struct {
		flag, env string
		dst       *int
		allowZero bool
	}{
		{"subs", "SUBSCRIPTIONS", &cfg.Subscriptions, false},
		{"size", "SIZE", &cfg.Size, false},
		{"chunk-size", "CHUNK_SIZE", &cfg.ChunkSize, false},
		{"retries", "RETRIES", &cfg.Retries, true},
		{"threads", "THREADS", &cfg.Threads, false},
		{"compression-level", "COMPRESSION_LEVEL", &cfg.CompressionLevel, false},
	}
	for _, v := range ints {
		if err := s.setIntFromString(v.flag, getenv(v.env), v.dst, v.allowZero); err != nil {
			return err
		}
	}

	if err := s.setDuration("retry-backoff", getenv("RETRY_BACKOFF"), &cfg.RetryBackoff); err != nil {
		return err
	}
	if err := s.setDuration("retry-backoff-max", getenv("RETRY_BACKOFF_MAX"), &cfg.RetryBackoffMax); err != nil {
		return err
	}
	if err := s.setDuration("debounce", getenv("DEBOUNCE"), &cfg.DebounceDelay); err != nil {
		return err
	}

	s.setBoolFromString("allow-partial", getenv("ALLOW_PARTIAL"), &cfg.AllowPartial)

	return nil
}

func getenv(name string) string {
	return os.Getenv(EnvPrefix + name)
}
