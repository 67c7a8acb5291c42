// Package logger configures the global zerolog logger.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup sets the global level and output. format "console" gives
// human-readable output; anything else writes JSON lines.
func Setup(service, level, format string) {
	Configure(os.Stderr, service, level, format)
}

func Configure(w io.Writer, service, level, format string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	if strings.EqualFold(format, "console") {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	log.Logger = zerolog.New(w).With().Timestamp().Str("service", service).Logger()
}
