// Package logging builds the process logger on zerolog.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Options controls logger construction.
type Options struct {
	Env    string // development -> console output unless Format says otherwise
	Level  string // trace, debug, info, warn, error
	Format string // console, json; empty picks by Env
	Out    io.Writer
}

// New creates a structured logger and installs it as the zerolog global.
func New(opts Options) zerolog.Logger {
	var w io.Writer = os.Stdout
	if opts.Out != nil {
		w = opts.Out
	}

	format := strings.ToLower(opts.Format)
	if format == "" {
		format = "json"
		if opts.Env == "development" {
			format = "console"
		}
	}
	if format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	}

	logger := zerolog.New(w).Level(ParseLevel(opts.Level)).With().Timestamp().Logger()
	log.Logger = logger
	return logger
}

// ParseLevel maps a level name to a zerolog level. Unknown names mean info.
func ParseLevel(s string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(s))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}
