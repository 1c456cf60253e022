package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// New builds a leveled logger. Output goes to console (if non-nil) through a
// ConsoleWriter and, when file is set, appended as JSON lines to that file.
// The returned closer releases the file and is never nil.
func New(level, file string, console io.Writer) (zerolog.Logger, io.Closer, error) {
	var writers []io.Writer
	var closer io.Closer = nopCloser{}

	if console != nil {
		writers = append(writers, zerolog.ConsoleWriter{Out: console, TimeFormat: "15:04:05"})
	}
	if file != "" {
		if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
			return zerolog.Nop(), closer, fmt.Errorf("create log dir: %w", err)
		}
		f, err := os.OpenFile(file, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return zerolog.Nop(), closer, fmt.Errorf("open log file %s: %w", file, err)
		}
		writers = append(writers, f)
		closer = f
	}
	if len(writers) == 0 {
		return zerolog.Nop(), closer, nil
	}

	out := writers[0]
	if len(writers) > 1 {
		out = zerolog.MultiLevelWriter(writers...)
	}
	log := zerolog.New(out).With().Timestamp().Logger().Level(ParseLevel(level))
	return log, closer, nil
}

// ParseLevel maps a config string to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
