package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zapcore"
)

// TestAllCategoriesLog checks that every category writes its own file in debug mode
func TestAllCategoriesLog(t *testing.T) {
	tempDir := t.TempDir()
	reset()
	defer reset()

	if err := Configure(tempDir, Settings{DebugMode: true, Level: "debug"}); err != nil {
		t.Fatalf("Failed to initialize logging: %v", err)
	}
	if !IsDebugMode() {
		t.Fatal("Expected debug mode to be enabled")
	}

	categories := []Category{
		CategoryBoot, CategorySession, CategoryBrowser, CategoryStore,
		CategoryReadiness, CategoryAutofill, CategoryPacks, CategoryLocks, CategoryTemplates,
	}
	for _, cat := range categories {
		l := Get(cat)
		l.Info("info for %s", cat)
		l.Debug("debug for %s", cat)
		l.Warn("warn for %s", cat)
		l.Error("error for %s", cat)
	}
	Autofill("convenience autofill log")
	Locks("convenience locks log")

	CloseAll()

	entries, err := os.ReadDir(filepath.Join(tempDir, ".eatools", "logs"))
	if err != nil {
		t.Fatalf("Failed to read logs dir: %v", err)
	}
	for _, cat := range categories {
		found := false
		for _, entry := range entries {
			if !strings.HasSuffix(entry.Name(), "_"+string(cat)+".log") {
				continue
			}
			found = true
			content, err := os.ReadFile(filepath.Join(tempDir, ".eatools", "logs", entry.Name()))
			if err != nil {
				t.Errorf("Failed to read log file for %s: %v", cat, err)
			} else if len(content) == 0 {
				t.Errorf("Log file for %s is empty", cat)
			}
		}
		if !found {
			t.Errorf("No log file found for category: %s", cat)
		}
	}
}

// TestDebugModeDisabled checks that nothing is written in production mode
func TestDebugModeDisabled(t *testing.T) {
	tempDir := t.TempDir()
	reset()
	defer reset()

	if err := Configure(tempDir, Settings{}); err != nil {
		t.Fatalf("Failed to initialize logging: %v", err)
	}
	Autofill("should not be written")
	Get(CategoryStore).Error("nor this")
	CloseAll()

	if _, err := os.Stat(filepath.Join(tempDir, ".eatools", "logs")); !os.IsNotExist(err) {
		t.Errorf("logs directory should not exist in production mode, stat err = %v", err)
	}
}

func TestCategoryFilter(t *testing.T) {
	tempDir := t.TempDir()
	reset()
	defer reset()

	if err := Configure(tempDir, Settings{DebugMode: true, Categories: map[string]bool{"browser": false}}); err != nil {
		t.Fatalf("Failed to initialize logging: %v", err)
	}
	if IsCategoryEnabled(CategoryBrowser) {
		t.Error("browser category should be disabled")
	}
	if !IsCategoryEnabled(CategoryAutofill) {
		t.Error("unlisted categories default to enabled")
	}
}

func TestConfigureRequiresWorkspace(t *testing.T) {
	reset()
	defer reset()

	if err := Configure("", Settings{DebugMode: true}); err == nil {
		t.Error("expected an error without a workspace")
	}
	if IsDebugMode() {
		t.Error("failed Configure must leave debug mode off")
	}
}

func TestConfigureReplacesSettings(t *testing.T) {
	tempDir := t.TempDir()
	reset()
	defer reset()

	if err := Configure(tempDir, Settings{DebugMode: true, Level: "error"}); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if Level() != zapcore.ErrorLevel {
		t.Errorf("level = %v, want error", Level())
	}
	if AuditPath() == "" {
		t.Error("audit log should be open in debug mode")
	}

	if err := Configure(tempDir, Settings{Level: "warning"}); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if IsDebugMode() {
		t.Error("second Configure should turn debug mode off")
	}
	if AuditPath() != "" {
		t.Error("audit log should be closed after reconfiguring")
	}
	if Level() != zapcore.WarnLevel {
		t.Errorf("level = %v, want warn", Level())
	}
}

func TestTimer(t *testing.T) {
	timer := StartTimer(CategoryAutofill, "TestOperation")
	time.Sleep(time.Millisecond)
	if elapsed := timer.Stop(); elapsed <= 0 {
		t.Error("Timer should have recorded non-zero duration")
	}
}
