package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Dami4lola/Ea-script/internal/pacing"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// DirName is the per-workspace state directory.
const DirName = ".eatools"

// Config holds all eatools configuration.
type Config struct {
	// Browser connection to the host application
	Browser BrowserConfig `yaml:"browser"`

	// Delays between commands sent to the host
	Pacing PacingConfig `yaml:"pacing"`

	// Background surface probing
	Readiness ReadinessConfig `yaml:"readiness"`

	// Template and lock persistence
	Storage StorageConfig `yaml:"storage"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// BrowserConfig configures the rod connection.
type BrowserConfig struct {
	// DebuggerURL attaches to an already running Chrome (ws://...). Empty launches one.
	DebuggerURL string `yaml:"debugger_url"`
	// Launch is an optional binary followed by extra Chrome flags.
	Launch   []string `yaml:"launch"`
	Headless bool     `yaml:"headless"`
	// AppURL is opened when no page of the host application is found.
	AppURL            string `yaml:"app_url"`
	NavigationTimeout string `yaml:"navigation_timeout"`
	EvalTimeout       string `yaml:"eval_timeout"`
	// UserDataDir keeps the host login between launches.
	UserDataDir string `yaml:"user_data_dir"`
}

// PacingConfig holds the randomized delay ranges.
type PacingConfig struct {
	Placement pacing.Range `yaml:"placement"`
	Cooldown  pacing.Range `yaml:"cooldown"`
	PackStep  pacing.Range `yaml:"pack_step"`
}

// ReadinessConfig configures the background probe.
type ReadinessConfig struct {
	ProbeInterval string `yaml:"probe_interval"`
}

// StorageConfig configures where the registries are persisted.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Browser: BrowserConfig{
			AppURL:            "https://www.ea.com/ea-sports-fc/ultimate-team/web-app/",
			NavigationTimeout: "60s",
			EvalTimeout:       "30s",
		},
		Pacing: PacingConfig{
			Placement: pacing.Placement,
			Cooldown:  pacing.Cooldown,
			PackStep:  pacing.PackStep,
		},
		Readiness: ReadinessConfig{
			ProbeInterval: "900ms",
		},
		Storage: StorageConfig{
			DatabasePath: filepath.Join(DirName, "eatools.db"),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// DefaultPath returns the config file location for a workspace.
func DefaultPath(workspace string) string {
	return filepath.Join(workspace, DirName, "config.yaml")
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// envOverrides lists the environment variables that win over the file.
type envOverrides struct {
	DebuggerURL string `env:"EATOOLS_DEBUGGER_URL"`
	AppURL      string `env:"EATOOLS_APP_URL"`
	Database    string `env:"EATOOLS_DB"`
	Headless    *bool  `env:"EATOOLS_HEADLESS"`
	LogLevel    string `env:"EATOOLS_LOG_LEVEL"`
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	if o.DebuggerURL != "" {
		c.Browser.DebuggerURL = o.DebuggerURL
	}
	if o.AppURL != "" {
		c.Browser.AppURL = o.AppURL
	}
	if o.Database != "" {
		c.Storage.DatabasePath = o.Database
	}
	if o.Headless != nil {
		c.Browser.Headless = *o.Headless
	}
	if o.LogLevel != "" {
		c.Logging.Level = o.LogLevel
	}
	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	for name, r := range map[string]pacing.Range{
		"placement": c.Pacing.Placement,
		"cooldown":  c.Pacing.Cooldown,
		"pack_step": c.Pacing.PackStep,
	} {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("pacing.%s: %w", name, err)
		}
	}
	if c.GetProbeInterval() <= 0 {
		return fmt.Errorf("readiness.probe_interval must be positive")
	}
	if c.Storage.DatabasePath == "" {
		return fmt.Errorf("storage.database_path not configured (set EATOOLS_DB)")
	}
	return nil
}

// ResolveDatabasePath anchors a relative database path at the workspace.
func (c *Config) ResolveDatabasePath(workspace string) string {
	if filepath.IsAbs(c.Storage.DatabasePath) || c.Storage.DatabasePath == ":memory:" {
		return c.Storage.DatabasePath
	}
	return filepath.Join(workspace, c.Storage.DatabasePath)
}

// GetProbeInterval returns the readiness probe cadence.
func (c *Config) GetProbeInterval() time.Duration {
	d, err := time.ParseDuration(c.Readiness.ProbeInterval)
	if err != nil {
		return 900 * time.Millisecond
	}
	return d
}

// GetNavigationTimeout returns the page navigation timeout.
func (c *Config) GetNavigationTimeout() time.Duration {
	d, err := time.ParseDuration(c.Browser.NavigationTimeout)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// GetEvalTimeout returns the timeout for one call into the host page.
func (c *Config) GetEvalTimeout() time.Duration {
	d, err := time.ParseDuration(c.Browser.EvalTimeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// FindWorkspaceRoot walks up from the working directory looking for .eatools.
// If not found, returns the current working directory.
func FindWorkspaceRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	originalDir := dir
	for {
		if _, err := os.Stat(filepath.Join(dir, DirName)); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return originalDir, nil
}
