// Package logging builds the component loggers used across teamboard.
//
// Every component logs through a *log.Logger with a bracketed prefix such as
// "[sync] ". When a log file is configured, all components share one
// rotating file.
package logging

import (
	"io"
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/teamboard/teamboard/internal/config"
)

// Factory hands out component loggers that share one output.
type Factory struct {
	out    io.Writer
	closer io.Closer
}

// New creates a Factory for cfg. Quiet discards everything; otherwise
// output goes to cfg.File, rotated by size, or to stderr when no file is set.
func New(cfg config.LogConfig) *Factory {
	if cfg.Quiet {
		return &Factory{out: io.Discard}
	}
	if cfg.File == "" {
		return &Factory{out: os.Stderr}
	}

	rotator := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
	return &Factory{out: rotator, closer: rotator}
}

// Logger returns a logger for component, prefixed "[component] ".
func (f *Factory) Logger(component string) *log.Logger {
	return log.New(f.out, "["+component+"] ", log.LstdFlags)
}

// Writer returns the shared output.
func (f *Factory) Writer() io.Writer {
	return f.out
}

// Close closes the log file, if any.
func (f *Factory) Close() error {
	if f.closer == nil {
		return nil
	}
	return f.closer.Close()
}
