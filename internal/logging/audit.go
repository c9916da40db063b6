package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// =============================================================================
// AUDIT EVENT TYPES - one per command sent to the host or registry change
// =============================================================================

// AuditEventType names an audit event.
type AuditEventType string

const (
	// Session lifecycle
	AuditSessionStart AuditEventType = "session_start"
	AuditSessionEnd   AuditEventType = "session_end"

	// Fill loop
	AuditRunStart AuditEventType = "run_start"
	AuditRunEnd   AuditEventType = "run_end"
	AuditPlace    AuditEventType = "place"
	AuditSubmit   AuditEventType = "submit"

	// Pack opener
	AuditPackOpen       AuditEventType = "pack_open"
	AuditPackDistribute AuditEventType = "pack_distribute"

	// Registries
	AuditLockToggle     AuditEventType = "lock_toggle"
	AuditTemplateSave   AuditEventType = "template_save"
	AuditTemplateDelete AuditEventType = "template_delete"
	AuditImport         AuditEventType = "import"

	AuditError AuditEventType = "error"
)

// AuditEvent is one line of the audit log.
type AuditEvent struct {
	Timestamp  int64                  `json:"ts"` // Unix milliseconds
	EventType  AuditEventType         `json:"event"`
	Category   string                 `json:"cat,omitempty"`
	SessionID  string                 `json:"session,omitempty"`
	RunID      string                 `json:"run,omitempty"`
	Target     string                 `json:"target,omitempty"`
	Success    bool                   `json:"success"`
	DurationMs int64                  `json:"dur_ms,omitempty"`
	Error      string                 `json:"error,omitempty"`
	Message    string                 `json:"msg,omitempty"`
	Fields     map[string]interface{} `json:"fields,omitempty"`
}

// =============================================================================
// AUDIT LOGGER
// =============================================================================

var (
	auditFile   *os.File
	auditPath   string
	auditMu     sync.Mutex
	auditLogger = &AuditLogger{}
)

// AuditLogger writes audit events, optionally scoped to a session and run.
type AuditLogger struct {
	sessionID string
	runID     string
	category  Category
}

// InitAudit opens the day's audit file. No-op unless debug mode is on.
func InitAudit() error {
	if !IsDebugMode() {
		return nil
	}

	auditMu.Lock()
	defer auditMu.Unlock()

	if auditFile != nil {
		return nil
	}

	date := time.Now().Format("2006-01-02")
	path := filepath.Join(logsDir, fmt.Sprintf("%s_audit.jsonl", date))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	auditFile = file
	auditPath = path
	return nil
}

// AuditPath returns the open audit file, or "" when auditing is off.
func AuditPath() string {
	auditMu.Lock()
	defer auditMu.Unlock()
	if auditFile == nil {
		return ""
	}
	return auditPath
}

// CloseAudit closes the audit log file.
func CloseAudit() {
	auditMu.Lock()
	defer auditMu.Unlock()

	if auditFile != nil {
		auditFile.Close()
		auditFile = nil
	}
}

// Audit returns the unscoped audit logger.
func Audit() *AuditLogger {
	return auditLogger
}

// AuditWithSession scopes events to a session.
func AuditWithSession(sessionID string) *AuditLogger {
	return &AuditLogger{sessionID: sessionID}
}

// WithRun scopes events to one fill-loop run.
func (a *AuditLogger) WithRun(runID string) *AuditLogger {
	return &AuditLogger{sessionID: a.sessionID, runID: runID, category: CategoryAutofill}
}

// WithCategory sets the category recorded on events.
func (a *AuditLogger) WithCategory(category Category) *AuditLogger {
	return &AuditLogger{sessionID: a.sessionID, runID: a.runID, category: category}
}

// Log writes one event as a JSON line.
func (a *AuditLogger) Log(event AuditEvent) {
	auditMu.Lock()
	defer auditMu.Unlock()
	if auditFile == nil {
		return
	}

	if event.Timestamp == 0 {
		event.Timestamp = time.Now().UnixMilli()
	}
	if event.SessionID == "" {
		event.SessionID = a.sessionID
	}
	if event.RunID == "" {
		event.RunID = a.runID
	}
	if event.Category == "" && a.category != "" {
		event.Category = string(a.category)
	}

	data, err := json.Marshal(event)
	if err == nil {
		auditFile.Write(append(data, '\n'))
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// =============================================================================
// CONVENIENCE METHODS
// =============================================================================

// SessionStart records a new session.
func (a *AuditLogger) SessionStart(templates, locked int) {
	a.Log(AuditEvent{
		EventType: AuditSessionStart,
		Category:  string(CategorySession),
		Success:   true,
		Fields:    map[string]interface{}{"templates": templates, "locked": locked},
	})
}

// SessionEnd records a closed session.
func (a *AuditLogger) SessionEnd(durationMs int64, err error) {
	a.Log(AuditEvent{
		EventType:  AuditSessionEnd,
		Category:   string(CategorySession),
		Success:    err == nil,
		DurationMs: durationMs,
		Error:      errString(err),
	})
}

// RunStart records the start of a fill-loop run on templateID.
func (a *AuditLogger) RunStart(templateID string) {
	a.Log(AuditEvent{
		EventType: AuditRunStart,
		Category:  string(CategoryAutofill),
		Target:    templateID,
		Success:   true,
	})
}

// RunEnd records how a run ended.
func (a *AuditLogger) RunEnd(outcome string, passes, placed int, durationMs int64, err error) {
	a.Log(AuditEvent{
		EventType:  AuditRunEnd,
		Category:   string(CategoryAutofill),
		Success:    err == nil,
		DurationMs: durationMs,
		Error:      errString(err),
		Message:    outcome,
		Fields:     map[string]interface{}{"passes": passes, "placed": placed},
	})
}

// Place records one placement command.
func (a *AuditLogger) Place(challengeID, position, itemID string, err error) {
	a.Log(AuditEvent{
		EventType: AuditPlace,
		Category:  string(CategoryAutofill),
		Target:    itemID,
		Success:   err == nil,
		Error:     errString(err),
		Fields:    map[string]interface{}{"challenge": challengeID, "position": position},
	})
}

// Submit records one submit command.
func (a *AuditLogger) Submit(challengeID string, err error) {
	a.Log(AuditEvent{
		EventType: AuditSubmit,
		Category:  string(CategoryAutofill),
		Target:    challengeID,
		Success:   err == nil,
		Error:     errString(err),
	})
}

// PackOpen records one open command.
func (a *AuditLogger) PackOpen(packID string, err error) {
	a.Log(AuditEvent{
		EventType: AuditPackOpen,
		Category:  string(CategoryPacks),
		Target:    packID,
		Success:   err == nil,
		Error:     errString(err),
	})
}

// PackDistribute records one send-all-to-club command.
func (a *AuditLogger) PackDistribute(packID string, err error) {
	a.Log(AuditEvent{
		EventType: AuditPackDistribute,
		Category:  string(CategoryPacks),
		Target:    packID,
		Success:   err == nil,
		Error:     errString(err),
	})
}

// LockToggle records a lock state change.
func (a *AuditLogger) LockToggle(itemID string, locked bool) {
	a.Log(AuditEvent{
		EventType: AuditLockToggle,
		Category:  string(CategoryLocks),
		Target:    itemID,
		Success:   true,
		Fields:    map[string]interface{}{"locked": locked},
	})
}

// TemplateSave records a saved template.
func (a *AuditLogger) TemplateSave(challengeID string, slots int) {
	a.Log(AuditEvent{
		EventType: AuditTemplateSave,
		Category:  string(CategoryTemplates),
		Target:    challengeID,
		Success:   true,
		Fields:    map[string]interface{}{"slots": slots},
	})
}

// TemplateDelete records a deleted template.
func (a *AuditLogger) TemplateDelete(challengeID string) {
	a.Log(AuditEvent{
		EventType: AuditTemplateDelete,
		Category:  string(CategoryTemplates),
		Target:    challengeID,
		Success:   true,
	})
}

// Import records a localStorage import.
func (a *AuditLogger) Import(templates, locks int) {
	a.Log(AuditEvent{
		EventType: AuditImport,
		Category:  string(CategorySession),
		Success:   true,
		Fields:    map[string]interface{}{"templates": templates, "locks": locks},
	})
}

// Error records a failure outside the events above.
func (a *AuditLogger) Error(category Category, err error) {
	a.Log(AuditEvent{
		EventType: AuditError,
		Category:  string(category),
		Error:     errString(err),
	})
}
