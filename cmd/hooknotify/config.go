package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"hooknotify/pkg/config"
	"hooknotify/pkg/fileutil"
)

// DefaultConfigName is searched for when --config is not given
const DefaultConfigName = "hooknotify.yml"

var configFile string

// loadOverrides reads the configuration file. Without --config the default
// locations are searched and a missing file means "defaults only".
func loadOverrides(path string) (config.Config, string, error) {
	if path == "" {
		path = fileutil.FindConfigOptional(DefaultConfigName)
		if path == "" {
			return config.Config{}, "", nil
		}
	}

	overrides, err := config.LoadFile(path)
	if err != nil {
		return nil, path, err
	}
	return overrides, path, nil
}

// loadConfig returns the overrides merged over the defaults, normalized and validated
func loadConfig(path string) (config.Config, string, error) {
	overrides, path, err := loadOverrides(path)
	if err != nil {
		return nil, path, err
	}

	cfg, err := config.ValidateConfig(config.Merge(config.Default(), overrides))
	if err != nil {
		return nil, path, fmt.Errorf("invalid configuration %s: %w", displayPath(path), err)
	}
	return cfg, path, nil
}

func displayPath(path string) string {
	if path == "" {
		return "(defaults)"
	}
	return path
}

// setupLogging builds the JSON slog logger. With a log file, records go to
// both stdout and the file; the caller closes the returned closer.
func setupLogging(logPath, level string) (*slog.Logger, io.Closer, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var w io.Writer = os.Stdout
	var closer io.Closer = io.NopCloser(nil)

	if logPath != "" {
		if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}

		file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		w = io.MultiWriter(os.Stdout, file)
		closer = file
	}

	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
	return slog.New(handler), closer, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var intVal int
		if _, err := fmt.Sscanf(value, "%d", &intVal); err == nil {
			return intVal
		}
	}
	return defaultValue
}
