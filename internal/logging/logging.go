// Package logging configures the process-wide zerolog logger.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Options selects the log format and level.
type Options struct {
	Verbose bool // debug level instead of info
	JSON    bool // one JSON object per line instead of console output

	// Out defaults to stderr.
	Out io.Writer
}

// Setup installs the global logger used through github.com/rs/zerolog/log.
func Setup(opt Options) zerolog.Logger {
	out := opt.Out
	if out == nil {
		out = os.Stderr
	}

	var writer io.Writer = zerolog.ConsoleWriter{Out: out}
	if opt.JSON {
		writer = out
	}
	l := zerolog.New(writer).
		With().
		Timestamp().
		Logger()

	if opt.Verbose {
		l = l.Level(zerolog.DebugLevel)
	} else {
		l = l.Level(zerolog.InfoLevel)
	}
	log.Logger = l
	return l
}
