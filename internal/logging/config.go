package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/metabasenet/node/internal/config"
)

// NewFromConfig creates a logger from configuration. It rejects a
// MaxFileSizeMB/MaxHistoryFiles outside the ranges
// config.LoggingConfig.Validate enforces (1-2048, 2-0x7FFFFFFF)
// rather than silently clamping them.
func NewFromConfig(cfg config.LoggingConfig) (*Logger, error) {
	if cfg.MaxFileSizeMB < 1 || cfg.MaxFileSizeMB > 2048 {
		return nil, fmt.Errorf("logging: max_file_size_mb %d out of range [1, 2048]", cfg.MaxFileSizeMB)
	}
	if cfg.MaxHistoryFiles < 2 || cfg.MaxHistoryFiles > 0x7FFFFFFF {
		return nil, fmt.Errorf("logging: max_history_files %d out of range [2, 2147483647]", cfg.MaxHistoryFiles)
	}

	// Parse level
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	// Determine output path
	outputPath := cfg.OutputPath

	// Configure output writer
	var output io.Writer
	switch outputPath {
	case "stdout", "":
		output = os.Stdout
	case "stderr":
		output = os.Stderr
	default:
		// File output - ensure parent directory exists
		logDir := filepath.Dir(outputPath)
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory %s: %w", logDir, err)
		}

		output = &lumberjack.Logger{
			Filename:   outputPath,
			MaxSize:    cfg.MaxFileSizeMB,
			MaxBackups: cfg.MaxHistoryFiles,
			Compress:   true,
		}
	}

	// Configure format
	if cfg.Format == "console" || cfg.Format == "pretty" {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: getTimeFormat(cfg.TimeFormat),
		}
	}

	// Create logger
	zl := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()

	return &Logger{zl: zl}, nil
}

// getTimeFormat converts string to time format
func getTimeFormat(format string) string {
	switch format {
	case "RFC3339":
		return time.RFC3339
	case "Unix":
		return time.UnixDate
	case "Kitchen":
		return time.Kitchen
	default:
		return time.RFC3339
	}
}
