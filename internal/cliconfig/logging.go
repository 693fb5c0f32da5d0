package cliconfig

import (
	"io"

	"github.com/bft-labs/subvault/pkg/log"
)

// NewLogger builds the CLI logger from the log settings of cfg.
// Output goes to out, or stderr when out is nil.
func NewLogger(cfg Config, out io.Writer) (*log.ZerologAdapter, error) {
	return log.NewZerologAdapterWithConfig(log.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Out:    out,
	})
}
