package main

import (
	"fmt"
	"io"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
)

// logConfig is read from the environment, separate from the config
// file so debugging can be enabled without touching it.
type logConfig struct {
	File  string `env:"POLYVOX_LOGFILE"`
	Debug bool   `env:"POLYVOX_DEBUG"`
}

// setupLog silences logging unless POLYVOX_LOGFILE is set, in which
// case everything goes there. The returned closer flushes the file.
func setupLog() (func() error, error) {
	cfg, err := env.ParseAs[logConfig]()
	if err != nil {
		return nil, fmt.Errorf("error parsing log environment: %w", err)
	}

	if cfg.File == "" {
		if cfg.Debug {
			log.SetOutput(os.Stderr)
			log.SetLevel(log.DebugLevel)
		} else {
			log.SetOutput(io.Discard)
		}
		return func() error { return nil }, nil
	}

	f, err := os.OpenFile(cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("error setting up logging: %w", err)
	}
	log.SetOutput(f)
	log.SetLevel(log.DebugLevel)
	return f.Close, nil
}
