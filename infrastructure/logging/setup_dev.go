//go:build !prod

package logging

import (
	"log/slog"
	"os"
)

// Setup initializes logging for development builds: every record goes to stdout
// and there is nothing to close.
func Setup(cfg *Config) (*slog.Logger, func() error, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	logger := slog.New(newHandler(os.Stdout, cfg))
	setGlobal(logger)

	return logger, func() error { return nil }, nil
}
