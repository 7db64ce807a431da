package slogutil

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

const megabyte = 1024 * 1024

var sizePattern = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*(B|KB|MB|GB)?$`)

// ParseSize parses a size string like "10MB", "1GB", "500KB" into bytes.
// Supported suffixes: B, KB, MB, GB (case-insensitive)
// Returns 0 for empty or invalid strings.
func ParseSize(s string) int64 {
	matches := sizePattern.FindStringSubmatch(strings.TrimSpace(strings.ToUpper(s)))
	if matches == nil {
		return 0
	}

	value, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0
	}

	var multiplier float64
	switch matches[2] {
	case "", "B":
		multiplier = 1
	case "KB":
		multiplier = 1024
	case "MB":
		multiplier = megabyte
	case "GB":
		multiplier = 1024 * megabyte
	}
	return int64(value * multiplier)
}

// RotationOptions describes a size-rotated log file.
type RotationOptions struct {
	Path       string
	MaxSize    string // e.g. "10MB"; rounded up to whole megabytes
	MaxBackups int
	MaxAgeDays int
}

// OpenRotatingFile returns a lumberjack writer for opts. The parent
// directory is created so the first write does not fail.
func OpenRotatingFile(opts RotationOptions) (*lumberjack.Logger, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("log file path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	return &lumberjack.Logger{
		Filename:   opts.Path,
		MaxSize:    megabytes(ParseSize(opts.MaxSize)),
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
	}, nil
}

// megabytes converts a byte count to lumberjack's unit. Zero keeps
// lumberjack's own default of 100MB.
func megabytes(size int64) int {
	if size <= 0 {
		return 0
	}
	mb := int((size + megabyte - 1) / megabyte)
	if mb < 1 {
		mb = 1
	}
	return mb
}
