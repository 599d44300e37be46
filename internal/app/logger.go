package app

import (
	"strings"

	"github.com/tramdoc/tramdoc/pkg/logger"
)

// ConfigureLogging initialises the global logger, defaulting to info level JSON output.
func ConfigureLogging(cfg LoggingConfig) error {
	level := strings.TrimSpace(cfg.Level)
	if level == "" {
		level = "info"
	}
	return logger.Init(logger.Options{Level: level, Format: cfg.Format})
}
