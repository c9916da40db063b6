package config

import "github.com/Dami4lola/Ea-script/internal/logging"

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level      string          `yaml:"level"`      // debug, info, warn, error
	Format     string          `yaml:"format"`     // json, text
	DebugMode  bool            `yaml:"debug_mode"` // Master toggle - false = no log files
	Categories map[string]bool `yaml:"categories"` // Per-category toggles
}

// Settings converts the section for logging.Configure.
func (c LoggingConfig) Settings() logging.Settings {
	return logging.Settings{
		DebugMode:  c.DebugMode,
		Categories: c.Categories,
		Level:      c.Level,
		Format:     c.Format,
	}
}
