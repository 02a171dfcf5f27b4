// Package logger configures the process-wide zerolog logger and builds
// the per-connection child loggers the listener and relay attach
// structured fields to.
package logger

import (
	"net"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init sets the global logger's level and output. verbose raises the
// level to debug and switches to zerolog's human-readable console
// writer; otherwise the process logs structured JSON to stderr, which
// is what a daemonized bridge should emit.
func Init(verbose bool) {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
		w := zerolog.ConsoleWriter{Out: os.Stderr}
		log.Logger = zerolog.New(w).With().Timestamp().Caller().Logger()
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	zerolog.SetGlobalLevel(level)
}

// ForConnection returns a child logger carrying the fields every
// connection-scoped log line needs: a short correlation id and the
// client's remote address.
func ForConnection(id string, remote net.Addr) zerolog.Logger {
	l := log.With().Str("conn", id)
	if remote != nil {
		l = l.Str("remote", remote.String())
	}
	return l.Logger()
}
