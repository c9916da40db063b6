// Package logging provides config-driven categorized file-based logging for eatools.
// Logs are written to .eatools/logs/ with one file per category.
// Logging is controlled by logging.debug_mode in the loaded config - when false, no logs are written.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot      Category = "boot"      // Boot/initialization
	CategorySession   Category = "session"   // Session wiring, automation guard
	CategoryBrowser   Category = "browser"   // rod connection, JS bridge calls
	CategoryStore     Category = "store"     // Blob persistence
	CategoryReadiness Category = "readiness" // Surface probing
	CategoryAutofill  Category = "autofill"  // Fill/submit loop
	CategoryPacks     Category = "packs"     // Pack opener
	CategoryLocks     Category = "locks"     // Lock registry
	CategoryTemplates Category = "templates" // Template registry
)

// Settings is the logging section of the configuration. Configure is called
// once per command with the loaded values.
type Settings struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Categories map[string]bool `yaml:"categories"`
	Level      string          `yaml:"level"`
	Format     string          `yaml:"format"` // text or json
}

// Logger wraps a zap logger bound to one category and its file.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
	file     *os.File
}

var (
	loggers   = make(map[Category]*Logger)
	loggersMu sync.RWMutex
	logsDir   string
	workspace string
	config    Settings
	configMu  sync.RWMutex
	level     = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

// Configure applies settings for workspace ws. Files opened under earlier
// settings are closed first.
func Configure(ws string, settings Settings) error {
	if ws == "" {
		return fmt.Errorf("workspace path required")
	}
	CloseAll()

	workspace = ws
	logsDir = filepath.Join(workspace, ".eatools", "logs")

	configMu.Lock()
	config = settings
	configMu.Unlock()
	setLevel(settings.Level)

	if !IsDebugMode() {
		return nil
	}

	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	if err := InitAudit(); err != nil {
		BootWarn("audit log disabled: %v", err)
	}
	Boot("=== eatools logging initialized ===")
	Boot("Workspace: %s", workspace)
	Boot("Log level: %s", level.Level())
	BootDebug("Categories: %v (unset = all)", settings.Categories)
	return nil
}

func setLevel(name string) {
	switch name {
	case "debug":
		level.SetLevel(zapcore.DebugLevel)
	case "warn", "warning":
		level.SetLevel(zapcore.WarnLevel)
	case "error":
		level.SetLevel(zapcore.ErrorLevel)
	default:
		level.SetLevel(zapcore.InfoLevel)
	}
}

// Level returns the level applied to category log files.
func Level() zapcore.Level {
	return level.Level()
}

// IsDebugMode returns whether file logging is enabled
func IsDebugMode() bool {
	configMu.RLock()
	defer configMu.RUnlock()
	return config.DebugMode
}

// IsCategoryEnabled returns whether a specific category is enabled
func IsCategoryEnabled(category Category) bool {
	configMu.RLock()
	defer configMu.RUnlock()

	if !config.DebugMode {
		return false
	}
	if config.Categories == nil {
		return true
	}
	enabled, exists := config.Categories[string(category)]
	if !exists {
		return true
	}
	return enabled
}

// Get returns (or creates) a logger for the given category.
// Returns a no-op logger if debug mode is disabled or category is disabled.
func Get(category Category) *Logger {
	if !IsCategoryEnabled(category) || logsDir == "" {
		return &Logger{category: category, sugar: zap.NewNop().Sugar()}
	}

	loggersMu.RLock()
	if l, ok := loggers[category]; ok {
		loggersMu.RUnlock()
		return l
	}
	loggersMu.RUnlock()

	loggersMu.Lock()
	defer loggersMu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}

	date := time.Now().Format("2006-01-02")
	logPath := filepath.Join(logsDir, fmt.Sprintf("%s_%s.log", date, category))
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[logging] Warning: could not open log file %s: %v\n", logPath, err)
		return &Logger{category: category, sugar: zap.NewNop().Sugar()}
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var enc zapcore.Encoder
	if format() == "json" {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		enc = zapcore.NewConsoleEncoder(encCfg)
	}
	core := zapcore.NewCore(enc, zapcore.AddSync(file), level)

	l := &Logger{
		category: category,
		file:     file,
		sugar:    zap.New(core).Named(string(category)).Sugar(),
	}
	loggers[category] = l
	return l
}

func format() string {
	configMu.RLock()
	defer configMu.RUnlock()
	return config.Format
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	l.sugar.Debugf(format, args...)
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) {
	l.sugar.Infof(format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	l.sugar.Warnf(format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.sugar.Errorf(format, args...)
}

// With returns a logger carrying structured key-value context.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{category: l.category, sugar: l.sugar.With(keysAndValues...)}
}

// CloseAll flushes and closes all open log files (call at shutdown)
func CloseAll() {
	CloseAudit()

	loggersMu.Lock()
	defer loggersMu.Unlock()

	for _, l := range loggers {
		_ = l.sugar.Sync()
		if l.file != nil {
			l.file.Close()
		}
	}
	loggers = make(map[Category]*Logger)
}

// reset clears package state. Used by tests.
func reset() {
	CloseAll()
	configMu.Lock()
	config = Settings{}
	configMu.Unlock()
	logsDir = ""
	workspace = ""
	level.SetLevel(zapcore.InfoLevel)
}

// =============================================================================
// CONVENIENCE FUNCTIONS - no-ops if the category is disabled
// =============================================================================

// Boot logs to the boot category
func Boot(format string, args ...interface{}) {
	Get(CategoryBoot).Info(format, args...)
}

// BootDebug logs debug to the boot category
func BootDebug(format string, args ...interface{}) {
	Get(CategoryBoot).Debug(format, args...)
}

// BootWarn logs warning to the boot category
func BootWarn(format string, args ...interface{}) {
	Get(CategoryBoot).Warn(format, args...)
}

// Session logs to the session category
func Session(format string, args ...interface{}) {
	Get(CategorySession).Info(format, args...)
}

// SessionDebug logs debug to the session category
func SessionDebug(format string, args ...interface{}) {
	Get(CategorySession).Debug(format, args...)
}

// SessionWarn logs warning to the session category
func SessionWarn(format string, args ...interface{}) {
	Get(CategorySession).Warn(format, args...)
}

// Browser logs to the browser category
func Browser(format string, args ...interface{}) {
	Get(CategoryBrowser).Info(format, args...)
}

// BrowserDebug logs debug to the browser category
func BrowserDebug(format string, args ...interface{}) {
	Get(CategoryBrowser).Debug(format, args...)
}

// BrowserWarn logs warning to the browser category
func BrowserWarn(format string, args ...interface{}) {
	Get(CategoryBrowser).Warn(format, args...)
}

// BrowserError logs error to the browser category
func BrowserError(format string, args ...interface{}) {
	Get(CategoryBrowser).Error(format, args...)
}

// Store logs to the store category
func Store(format string, args ...interface{}) {
	Get(CategoryStore).Info(format, args...)
}

// StoreDebug logs debug to the store category
func StoreDebug(format string, args ...interface{}) {
	Get(CategoryStore).Debug(format, args...)
}

// StoreError logs error to the store category
func StoreError(format string, args ...interface{}) {
	Get(CategoryStore).Error(format, args...)
}

// Readiness logs to the readiness category
func Readiness(format string, args ...interface{}) {
	Get(CategoryReadiness).Info(format, args...)
}

// ReadinessDebug logs debug to the readiness category
func ReadinessDebug(format string, args ...interface{}) {
	Get(CategoryReadiness).Debug(format, args...)
}

// Autofill logs to the autofill category
func Autofill(format string, args ...interface{}) {
	Get(CategoryAutofill).Info(format, args...)
}

// AutofillDebug logs debug to the autofill category
func AutofillDebug(format string, args ...interface{}) {
	Get(CategoryAutofill).Debug(format, args...)
}

// AutofillWarn logs warning to the autofill category
func AutofillWarn(format string, args ...interface{}) {
	Get(CategoryAutofill).Warn(format, args...)
}

// AutofillError logs error to the autofill category
func AutofillError(format string, args ...interface{}) {
	Get(CategoryAutofill).Error(format, args...)
}

// Packs logs to the packs category
func Packs(format string, args ...interface{}) {
	Get(CategoryPacks).Info(format, args...)
}

// PacksDebug logs debug to the packs category
func PacksDebug(format string, args ...interface{}) {
	Get(CategoryPacks).Debug(format, args...)
}

// PacksError logs error to the packs category
func PacksError(format string, args ...interface{}) {
	Get(CategoryPacks).Error(format, args...)
}

// Locks logs to the locks category
func Locks(format string, args ...interface{}) {
	Get(CategoryLocks).Info(format, args...)
}

// LocksDebug logs debug to the locks category
func LocksDebug(format string, args ...interface{}) {
	Get(CategoryLocks).Debug(format, args...)
}

// Templates logs to the templates category
func Templates(format string, args ...interface{}) {
	Get(CategoryTemplates).Info(format, args...)
}

// TemplatesDebug logs debug to the templates category
func TemplatesDebug(format string, args ...interface{}) {
	Get(CategoryTemplates).Debug(format, args...)
}

// =============================================================================
// TIMING HELPERS
// =============================================================================

// Timer helps measure operation duration
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation
func StartTimer(category Category, operation string) *Timer {
	return &Timer{category: category, op: operation, start: time.Now()}
}

// Stop ends the timer and logs the duration
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}

// StopWithThreshold logs warning if duration exceeds threshold
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).Warn("%s took %v (threshold: %v)", t.op, elapsed, threshold)
	} else {
		Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	}
	return elapsed
}
