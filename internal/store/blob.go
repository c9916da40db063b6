// Package store persists the registries as named blobs of structured data.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/Dami4lola/Ea-script/internal/logging"

	_ "github.com/mattn/go-sqlite3"
)

// Blob keys used by the registries.
const (
	KeyTemplates = "sbc_templates"
	KeyLocks     = "locked_players"
)

// BlobStore reads and writes named blobs. Put is durable on return.
type BlobStore interface {
	Get(key string) (data []byte, ok bool, err error)
	Put(key string, data []byte) error
}

// SQLiteStore keeps blobs in a single SQLite table.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
}

// NewSQLiteStore creates or opens the blob database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	timer := logging.StartTimer(logging.CategoryStore, "NewSQLiteStore")
	defer timer.Stop()

	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
		dsn = path + "?_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		logging.StoreError("Failed to open database at %s: %v", path, err)
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, dbPath: path}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logging.Store("Blob store ready at %s", path)
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	return RunMigrations(s.db)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.dbPath
}

// Get returns the blob stored under key.
func (s *SQLiteStore) Get(key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var data []byte
	err := s.db.QueryRow(`SELECT data FROM blobs WHERE key = ?`, key).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read blob %q: %w", key, err)
	}
	logging.StoreDebug("read blob %s (%d bytes)", key, len(data))
	return data, true, nil
}

// Put replaces the blob stored under key. The replaced value is kept in the
// blob history.
func (s *SQLiteStore) Put(key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.put(key, data); err != nil {
		logging.StoreError("Failed to write blob %s: %v", key, err)
		return fmt.Errorf("failed to write blob %q: %w", key, err)
	}
	logging.StoreDebug("wrote blob %s (%d bytes)", key, len(data))
	return nil
}

func (s *SQLiteStore) put(key string, data []byte) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	if _, err := tx.Exec(`
		INSERT INTO blob_history (key, data, replaced_at)
		SELECT key, data, ? FROM blobs WHERE key = ?
	`, now, key); err != nil {
		return err
	}
	if _, err := tx.Exec(`
		DELETE FROM blob_history WHERE key = ? AND id NOT IN (
			SELECT id FROM blob_history WHERE key = ? ORDER BY id DESC LIMIT ?
		)
	`, key, key, historyDepth); err != nil {
		return err
	}
	if _, err := tx.Exec(`
		INSERT INTO blobs (key, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at
	`, key, data, now); err != nil {
		return err
	}
	return tx.Commit()
}

// Revision is a replaced value of a blob.
type Revision struct {
	ID         int64
	Data       []byte
	ReplacedAt time.Time
}

// History returns the replaced values of key, newest first.
func (s *SQLiteStore) History(key string) ([]Revision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT id, data, replaced_at FROM blob_history WHERE key = ? ORDER BY id DESC
	`, key)
	if err != nil {
		return nil, fmt.Errorf("failed to read history of %q: %w", key, err)
	}
	defer rows.Close()

	var revs []Revision
	for rows.Next() {
		var r Revision
		if err := rows.Scan(&r.ID, &r.Data, &r.ReplacedAt); err != nil {
			return nil, err
		}
		revs = append(revs, r)
	}
	return revs, rows.Err()
}

// Keys lists stored blob keys.
func (s *SQLiteStore) Keys() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT key FROM blobs ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("failed to list blobs: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// MemoryStore is a BlobStore held in memory. FailPut makes Put fail, to
// exercise storage error paths.
type MemoryStore struct {
	mu      sync.Mutex
	blobs   map[string][]byte
	FailPut error
	puts    int
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

func (m *MemoryStore) Get(key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blobs[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), data...), true, nil
}

func (m *MemoryStore) Put(key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailPut != nil {
		return m.FailPut
	}
	m.blobs[key] = append([]byte(nil), data...)
	m.puts++
	return nil
}

// Puts counts successful writes.
func (m *MemoryStore) Puts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.puts
}

// Keys lists stored blob keys.
func (m *MemoryStore) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.blobs))
	for k := range m.blobs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
