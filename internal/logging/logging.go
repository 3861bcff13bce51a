package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const envDev = "DEV"

// New returns a logger writing to w: coloured console output in DEV, JSON
// otherwise. Unknown levels fall back to info.
func New(w io.Writer, env, level string) zerolog.Logger {
	if strings.EqualFold(env, envDev) {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).Level(ParseLevel(level)).With().Timestamp().Logger()
}

// Install builds a stderr logger and makes it the global zerolog logger.
func Install(env, level string) zerolog.Logger {
	logger := New(os.Stderr, env, level)
	log.Logger = logger
	return logger
}

func ParseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}
