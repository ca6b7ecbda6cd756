// Package bootstrap initializes logging before other packages run.
//
// Import it with a blank import at the top of main.go so its init() sets
// zerolog's global level before anything logs:
//
//	import _ "github.com/joeblew999/pwaserve/internal/bootstrap"
//
// PWASERVE_LOG_LEVEL (trace, debug, info, warn, error) controls the level;
// the default is info. Per-request access logs are emitted at debug.
package bootstrap

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// LevelEnv is the environment variable read for the global level.
const LevelEnv = "PWASERVE_LOG_LEVEL"

func init() {
	level := os.Getenv(LevelEnv)
	if level == "" {
		level = "info"
	}
	zerolog.SetGlobalLevel(ParseLevel(level))
	zerolog.TimeFieldFormat = time.RFC3339
}

// ParseLevel parses a level name, falling back to info.
func ParseLevel(level string) zerolog.Level {
	l, err := zerolog.ParseLevel(level)
	if err != nil || l == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return l
}

// NewLogger returns a human-readable logger writing to w.
// The global level is lowered to level if needed so debug output is not
// filtered out before it reaches the logger.
func NewLogger(w io.Writer, level string) zerolog.Logger {
	l := ParseLevel(level)
	if l < zerolog.GlobalLevel() {
		zerolog.SetGlobalLevel(l)
	}
	out := zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	return zerolog.New(out).Level(l).With().Timestamp().Logger()
}
