// Package logging builds the process logger.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options selects level, format and an optional rotating log file.
type Options struct {
	Level  string
	Format string
	File   string
	// Out defaults to os.Stderr.
	Out io.Writer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New returns a logger and a closer for its file output. The file always
// receives JSON regardless of Format.
func New(opts Options) (zerolog.Logger, io.Closer, error) {
	level, err := zerolog.ParseLevel(opts.Level)
	if err != nil {
		return zerolog.Nop(), nopCloser{}, err
	}
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	out := opts.Out
	if out == nil {
		out = os.Stderr
	}
	if opts.Format != "json" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.DateTime}
	}

	var closer io.Closer = nopCloser{}
	if opts.File != "" {
		file := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   true,
		}
		out = zerolog.MultiLevelWriter(out, file)
		closer = file
	}

	log := zerolog.New(out).Level(level).With().Timestamp().Logger()
	return log, closer, nil
}
