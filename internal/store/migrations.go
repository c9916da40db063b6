package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Dami4lola/Ea-script/internal/logging"
)

// Schema versions:
// v1: blobs table (key, data, updated_at)
// v2: blob_history table keeping replaced revisions
const CurrentSchemaVersion = 2

// historyDepth is how many replaced revisions are kept per key.
const historyDepth = 20

// Migration upgrades the schema from Version-1 to Version.
type Migration struct {
	Version     int
	Description string
	Up          string
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "blobs table",
		Up: `
		CREATE TABLE IF NOT EXISTS blobs (
			key TEXT PRIMARY KEY,
			data BLOB NOT NULL,
			updated_at DATETIME NOT NULL
		);`,
	},
	{
		Version:     2,
		Description: "blob history",
		Up: `
		CREATE TABLE IF NOT EXISTS blob_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			key TEXT NOT NULL,
			data BLOB NOT NULL,
			replaced_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_blob_history_key ON blob_history(key, id);`,
	},
}

// RunMigrations brings db to CurrentSchemaVersion. Each step runs in its own
// transaction together with its version record.
func RunMigrations(db *sql.DB) error {
	timer := logging.StartTimer(logging.CategoryStore, "RunMigrations")
	defer timer.Stop()

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_versions (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			description TEXT
		)`); err != nil {
		return fmt.Errorf("failed to create schema_versions table: %w", err)
	}

	current := GetSchemaVersion(db)
	applied := 0
	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		logging.StoreDebug("Applying migration v%d: %s", m.Version, m.Description)
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration v%d: %w", m.Version, err)
		}
		if _, err := tx.Exec(m.Up); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration v%d (%s): %w", m.Version, m.Description, err)
		}
		if _, err := tx.Exec(
			"INSERT INTO schema_versions (version, description) VALUES (?, ?)",
			m.Version, m.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record schema version %d: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration v%d: %w", m.Version, err)
		}
		applied++
	}

	if applied > 0 {
		logging.Store("Schema migrated v%d -> v%d (%d steps)", current, CurrentSchemaVersion, applied)
	}
	return nil
}

// GetSchemaVersion returns the highest applied schema version, inferring 1 for
// databases created before versioning.
func GetSchemaVersion(db *sql.DB) int {
	var version sql.NullInt64
	if err := db.QueryRow("SELECT MAX(version) FROM schema_versions").Scan(&version); err == nil && version.Valid {
		return int(version.Int64)
	}
	if tableExists(db, "blobs") {
		logging.StoreDebug("Unversioned database with blobs table, treating as v1")
		return 1
	}
	return 0
}

func tableExists(db *sql.DB, table string) bool {
	var count int
	query := "SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?"
	if err := db.QueryRow(query, table).Scan(&count); err != nil {
		logging.StoreDebug("Table existence check failed for %s: %v", table, err)
		return false
	}
	return count > 0
}

// Backup writes a consistent copy of the database to dest.
func (s *SQLiteStore) Backup(dest string) error {
	timer := logging.StartTimer(logging.CategoryStore, "Backup")
	defer timer.Stop()

	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}
	if _, err := os.Stat(dest); err == nil {
		return fmt.Errorf("backup %s already exists", dest)
	}
	if _, err := s.db.Exec("VACUUM INTO ?", dest); err != nil {
		logging.StoreError("Failed to back up database to %s: %v", dest, err)
		return fmt.Errorf("failed to back up database: %w", err)
	}
	logging.Store("Database backup created: %s", dest)
	return nil
}
