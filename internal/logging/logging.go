// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package logging constructs the engine's zerolog logger.
// See docs/ARCHITECTURE § Observability.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New returns a logger writing to w at the given level. An unknown level
// falls back to info. When json is false, output goes through the console
// writer for human consumption; structured JSON otherwise.
func New(w io.Writer, level string, json bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	if !json {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}

	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

// Default returns the stderr logger used by the CLI before config loads.
func Default() zerolog.Logger {
	return New(os.Stderr, "info", false)
}

// Nop returns a disabled logger for tests and optional dependencies.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}
