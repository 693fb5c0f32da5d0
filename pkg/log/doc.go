// Package log provides the logging abstraction used by subvault components.
//
// The store, the runner and the watcher take a Logger and never talk to a
// logging library directly. A zerolog adapter is provided for the CLI and a
// no-op logger for tests and embedding.
//
// # Usage
//
//	logger, err := log.NewZerologAdapterWithConfig(log.Config{
//	    Level:  "info",
//	    Format: log.FormatConsole,
//	})
//	if err != nil {
//	    return err
//	}
//	logger.Info("saved record", log.Uint64("namespace", 5), log.String("kind", "all info"))
//
// Use With to attach fields to every message of a scoped logger:
//
//	runLog := logger.With(log.String("run_id", id))
//
// # Version
//
// Current version: 1.1.0
// Minimum compatible version: 1.0.0
//
// See version.go for version constants that can be used programmatically.
package log
