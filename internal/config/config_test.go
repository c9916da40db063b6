package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Dami4lola/Ea-script/internal/pacing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Pacing.Placement != pacing.Placement {
		t.Errorf("expected placement pacing %v, got %v", pacing.Placement, cfg.Pacing.Placement)
	}
	if got := cfg.GetProbeInterval(); got != 900*time.Millisecond {
		t.Errorf("expected probe interval 900ms, got %v", got)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestConfig_SaveLoad(t *testing.T) {
	t.Setenv("EATOOLS_DEBUGGER_URL", "")
	t.Setenv("EATOOLS_DB", "")

	path := filepath.Join(t.TempDir(), DirName, "config.yaml")

	cfg := DefaultConfig()
	cfg.Browser.DebuggerURL = "ws://127.0.0.1:9222/devtools/browser/abc"
	cfg.Pacing.Cooldown = pacing.Range{Min: time.Second, Max: 2 * time.Second}
	cfg.Readiness.ProbeInterval = "800ms"

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Browser.DebuggerURL != cfg.Browser.DebuggerURL {
		t.Errorf("expected DebuggerURL=%s, got %s", cfg.Browser.DebuggerURL, loaded.Browser.DebuggerURL)
	}
	if loaded.Pacing.Cooldown != cfg.Pacing.Cooldown {
		t.Errorf("expected cooldown %v, got %v", cfg.Pacing.Cooldown, loaded.Pacing.Cooldown)
	}
	if got := loaded.GetProbeInterval(); got != 800*time.Millisecond {
		t.Errorf("expected probe interval 800ms, got %v", got)
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Storage.DatabasePath != DefaultConfig().Storage.DatabasePath {
		t.Errorf("expected default database path, got %s", cfg.Storage.DatabasePath)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "pacing:\n  placement:\n    min: 100ms\n    max: 200ms\n"
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	want := pacing.Range{Min: 100 * time.Millisecond, Max: 200 * time.Millisecond}
	if cfg.Pacing.Placement != want {
		t.Errorf("expected placement %v, got %v", want, cfg.Pacing.Placement)
	}
	if cfg.Pacing.Cooldown != pacing.Cooldown {
		t.Errorf("cooldown should keep default, got %v", cfg.Pacing.Cooldown)
	}
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("pacing: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Pacing.Cooldown = pacing.Range{Min: 3 * time.Second, Max: time.Second}
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for inverted cooldown")
	}

	cfg = DefaultConfig()
	cfg.Readiness.ProbeInterval = "-1s"
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for negative probe interval")
	}

	cfg = DefaultConfig()
	cfg.Storage.DatabasePath = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for empty database path")
	}
}

func TestResolveDatabasePath(t *testing.T) {
	cfg := DefaultConfig()
	ws := filepath.Join(string(filepath.Separator), "work")
	if got, want := cfg.ResolveDatabasePath(ws), filepath.Join(ws, DirName, "eatools.db"); got != want {
		t.Errorf("expected %s, got %s", want, got)
	}

	cfg.Storage.DatabasePath = ":memory:"
	if got := cfg.ResolveDatabasePath(ws); got != ":memory:" {
		t.Errorf("in-memory path must not be rewritten, got %s", got)
	}
}

func TestDurationFallbacks(t *testing.T) {
	cfg := &Config{}
	if got := cfg.GetEvalTimeout(); got != 30*time.Second {
		t.Errorf("expected 30s eval timeout fallback, got %v", got)
	}
	if got := cfg.GetNavigationTimeout(); got != 60*time.Second {
		t.Errorf("expected 60s navigation timeout fallback, got %v", got)
	}
}

func TestLoggingConfig_Settings(t *testing.T) {
	lc := LoggingConfig{
		Level:      "warn",
		Format:     "json",
		DebugMode:  true,
		Categories: map[string]bool{"autofill": false},
	}
	got := lc.Settings()
	if got.Level != "warn" || got.Format != "json" || !got.DebugMode {
		t.Errorf("settings lost fields: %+v", got)
	}
	if enabled, ok := got.Categories["autofill"]; !ok || enabled {
		t.Errorf("category toggles not carried over: %v", got.Categories)
	}
}
