package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New builds the process logger. Console output always goes to stdout; when
// file is set, JSON lines are also written to a rotating file.
func New(level, file string, pretty bool) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("parse log level %q: %w", level, err)
	}

	var console io.Writer = os.Stdout
	if pretty {
		console = zerolog.ConsoleWriter{Out: os.Stdout}
	}

	out := console
	if file != "" {
		out = zerolog.MultiLevelWriter(console, Rotating(file))
	}

	return zerolog.New(out).Level(lvl).With().Timestamp().Logger(), nil
}

// Rotating returns the file sink used when LOG_FILE is set.
func Rotating(file string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   file,
		MaxSize:    64,
		MaxBackups: 7,
		MaxAge:     7,
		Compress:   false,
	}
}
