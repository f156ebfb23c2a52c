package remap

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	literrors "livelits/internal/errors"
)

// SQLiteStore persists remapped constants in .livelits/constants.db so a
// separate process can poll them.
type SQLiteStore struct {
	conn   *sql.DB
	logger *slog.Logger
	dbPath string
}

// OpenSQLiteStore opens or creates the constants database under dir.
func OpenSQLiteStore(dir string, logger *slog.Logger) (*SQLiteStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, literrors.New(literrors.StoreUnavailable, "failed to create store directory", err)
	}

	dbPath := filepath.Join(dir, "constants.db")
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, literrors.New(literrors.StoreUnavailable, "failed to open constants database", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA cache_size=-4000", // 4MB cache
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			return nil, literrors.New(literrors.StoreUnavailable, "failed to set pragma", err)
		}
	}

	store := &SQLiteStore{conn: conn, logger: logger, dbPath: dbPath}
	if err := store.initializeSchema(); err != nil {
		_ = conn.Close()
		return nil, literrors.New(literrors.StoreUnavailable, "failed to initialize constants schema", err)
	}
	logger.Debug("Opened constants database", "path", dbPath)
	return store, nil
}

func (s *SQLiteStore) initializeSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS constants (
			scope TEXT NOT NULL,
			owner_path TEXT NOT NULL,
			old_kind TEXT NOT NULL,
			old_value TEXT NOT NULL,
			new_kind TEXT NOT NULL,
			new_value TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (scope, owner_path, old_kind, old_value)
		);
		CREATE INDEX IF NOT EXISTS idx_constants_scope ON constants(scope);

		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		);
		INSERT OR REPLACE INTO schema_version (version) VALUES (1);
	`
	_, err := s.conn.Exec(schema)
	return err
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string { return s.dbPath }

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// AddConstant upserts a remapping. Kind mismatches and write failures are
// reported as not applied.
func (s *SQLiteStore) AddConstant(scopeKey, ownerPath string, oldValue, newValue any) bool {
	if !Accepts(oldValue, newValue) {
		return false
	}
	oldKind, oldText := encodeValue(oldValue)
	newKind, newText := encodeValue(newValue)

	query := `
		INSERT INTO constants (scope, owner_path, old_kind, old_value, new_kind, new_value, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (scope, owner_path, old_kind, old_value)
		DO UPDATE SET new_kind = excluded.new_kind, new_value = excluded.new_value, updated_at = excluded.updated_at
	`
	_, err := s.conn.Exec(query, scopeKey, ownerPath, oldKind, oldText, newKind, newText, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		s.logger.Warn("Failed to store constant", "owner", ownerPath, "error", err.Error())
		return false
	}
	return true
}

// ClearConstants deletes every remapping in the scope.
func (s *SQLiteStore) ClearConstants(scopeKey string) {
	if _, err := s.conn.Exec(`DELETE FROM constants WHERE scope = ?`, scopeKey); err != nil {
		s.logger.Warn("Failed to clear constants", "scope", scopeKey, "error", err.Error())
	}
}

// Lookup returns the value that replaces oldValue under ownerPath.
func (s *SQLiteStore) Lookup(scopeKey, ownerPath string, oldValue any) (any, bool, error) {
	oldKind, oldText := encodeValue(oldValue)
	var newKind, newText string
	err := s.conn.QueryRow(
		`SELECT new_kind, new_value FROM constants WHERE scope = ? AND owner_path = ? AND old_kind = ? AND old_value = ?`,
		scopeKey, ownerPath, oldKind, oldText,
	).Scan(&newKind, &newText)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to query constant: %w", err)
	}
	v, err := decodeValue(newKind, newText)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// Count returns the number of stored remappings.
func (s *SQLiteStore) Count() (int, error) {
	var n int
	if err := s.conn.QueryRow(`SELECT COUNT(*) FROM constants`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count constants: %w", err)
	}
	return n, nil
}
