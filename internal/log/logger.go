package log

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// ErrInvalidFormat is returned for a log format other than text or json.
var ErrInvalidFormat = errors.New("invalid log format")

// Log formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Options configures NewLogger.
type Options struct {
	// Verbose lowers the level from Warn to Debug.
	Verbose bool

	// Format is FormatText or FormatJSON. Empty means FormatText.
	Format string

	// File, when set, redirects output to a rotating log file.
	File string

	// MaxSizeMB is the size at which the log file is rotated.
	MaxSizeMB int

	// MaxBackups is the number of rotated files kept.
	MaxBackups int

	// MaxAgeDays is the number of days rotated files are kept.
	MaxAgeDays int

	// Stderr is the writer used when File is empty. Nil means os.Stderr.
	Stderr io.Writer
}

// nopCloser is returned when logs go to stderr.
type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewLogger builds the application logger. The returned io.Closer flushes
// and closes the log file; it is a no-op for stderr output.
func NewLogger(opts Options) (*slog.Logger, io.Closer, error) {
	var (
		w      io.Writer = opts.Stderr
		closer io.Closer = nopCloser{}
	)
	if w == nil {
		w = os.Stderr
	}

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		file := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   true,
		}
		w, closer = file, file
	}

	switch opts.Format {
	case "", FormatText:
		return NewSecureLogger(w, opts.Verbose), closer, nil
	case FormatJSON:
		return NewSecureJSONLogger(w, opts.Verbose), closer, nil
	default:
		_ = closer.Close()
		return nil, nil, fmt.Errorf("%w: %q", ErrInvalidFormat, opts.Format)
	}
}
