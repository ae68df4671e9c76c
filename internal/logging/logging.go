// Package logging configures the process wide zerolog logger.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// New builds a logger writing to w. Development output is human readable, anything
// else is JSON. Unknown levels fall back to info.
func New(w io.Writer, dev bool, level string) zerolog.Logger {
	if dev {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).Level(ParseLevel(level)).With().Timestamp().Logger()
}

// Setup installs a logger on stderr as the global zerolog logger and returns it.
func Setup(dev bool, level string) zerolog.Logger {
	logger := New(os.Stderr, dev, level)
	zerolog.SetGlobalLevel(ParseLevel(level))
	log.Logger = logger
	zerolog.DefaultContextLogger = &log.Logger
	return logger
}

func ParseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		return zerolog.InfoLevel
	}
	return lvl
}
