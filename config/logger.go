package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// SlogLevel maps the level to its slog equivalent. Unknown levels map to info.
func (l LogLevel) SlogLevel() slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewLogger builds the process logger described by cfg. The returned closer
// releases the output file, if any.
func NewLogger(cfg LogConfig) (*slog.Logger, io.Closer, error) {
	var (
		out    io.Writer
		closer io.Closer = nopCloser{}
	)

	switch cfg.Output {
	case "", "stdout":
		out = os.Stdout
	case "stderr":
		out = os.Stderr
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log output: %w", err)
		}
		out, closer = f, f
	}

	logger, err := newLogger(cfg, out)
	if err != nil {
		closer.Close()
		return nil, nil, err
	}
	return logger, closer, nil
}

func newLogger(cfg LogConfig, out io.Writer) (*slog.Logger, error) {
	opts := &slog.HandlerOptions{
		Level:     cfg.Level.SlogLevel(),
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	switch cfg.Format {
	case "", "text":
		handler = slog.NewTextHandler(out, opts)
	case "json":
		handler = slog.NewJSONHandler(out, opts)
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidLogFormat, cfg.Format)
	}

	logger := slog.New(handler)
	for k, v := range cfg.Fields {
		logger = logger.With(k, v)
	}
	return logger, nil
}

// NewLoggerTo is NewLogger writing to out instead of cfg.Output. The
// returned closer does nothing.
func NewLoggerTo(cfg LogConfig, out io.Writer) (*slog.Logger, io.Closer, error) {
	logger, err := newLogger(cfg, out)
	if err != nil {
		return nil, nil, err
	}
	return logger, nopCloser{}, nil
}
