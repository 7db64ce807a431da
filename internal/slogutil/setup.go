package slogutil

import (
	"io"
	"log/slog"

	"inferd/internal/config"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Setup builds the process logger from the logging config. Output always
// goes to console; when cfg.File is set it is tee'd into a rotating file
// in the same format. The returned closer releases the file.
func Setup(cfg config.LoggingConfig, console io.Writer) (*slog.Logger, io.Closer, error) {
	level := LevelFromString(cfg.Level)
	consoleHandler := NewHandler(cfg.Format, console, level)

	if cfg.File == "" {
		return slog.New(consoleHandler), nopCloser{}, nil
	}

	rf, err := OpenRotatingFile(RotationOptions{
		Path:       cfg.File,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAgeDays: cfg.MaxAgeDays,
	})
	if err != nil {
		return nil, nil, err
	}

	fileHandler := NewHandler(cfg.Format, rf, level)
	return slog.New(NewTeeHandler(consoleHandler, fileHandler)), rf, nil
}
