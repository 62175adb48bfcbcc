package drift

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/faucetdb/tibero/internal/model"
)

// ErrNotFound is returned when no stored snapshot matches.
var ErrNotFound = errors.New("snapshot not found")

// Store keeps the snapshot history of every service in SQLite.
type Store struct {
	db *sqlx.DB
}

// OpenStore opens or creates the history database in dataDir. Pass an
// empty string for an in-memory store.
func OpenStore(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == "" {
		dsn = ":memory:?_journal_mode=WAL"
	} else {
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		dsn = filepath.Join(dataDir, "snapshots.db") + "?_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open snapshot database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate snapshot database: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS snapshots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			service_name TEXT NOT NULL,
			schema_name TEXT NOT NULL,
			table_count INTEGER NOT NULL DEFAULT 0,
			tables_json TEXT NOT NULL,
			taken_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_schema ON snapshots(service_name, schema_name, taken_at)`,

		// v2: free form label, e.g. a release tag.
		`ALTER TABLE snapshots ADD COLUMN label TEXT NOT NULL DEFAULT ''`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			// ADD COLUMN fails if the column already exists.
			if strings.Contains(err.Error(), "duplicate column") {
				continue
			}
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}

// Entry describes one stored snapshot without its tables.
type Entry struct {
	ID         int64     `db:"id" json:"id"`
	Service    string    `db:"service_name" json:"service"`
	Schema     string    `db:"schema_name" json:"schema"`
	Label      string    `db:"label" json:"label,omitempty"`
	TableCount int       `db:"table_count" json:"table_count"`
	TakenAt    time.Time `db:"taken_at" json:"taken_at"`
}

type snapshotRow struct {
	Entry
	TablesJSON string `db:"tables_json"`
}

func (r snapshotRow) toSnapshot() (Snapshot, error) {
	snap := Snapshot{Schema: r.Schema, TakenAt: r.TakenAt.UTC()}
	if err := json.Unmarshal([]byte(r.TablesJSON), &snap.Tables); err != nil {
		return snap, fmt.Errorf("unmarshal snapshot %d: %w", r.ID, err)
	}
	return snap, nil
}

// Save stores snap for service and returns its id.
func (s *Store) Save(ctx context.Context, service, label string, snap Snapshot) (int64, error) {
	tables := snap.Tables
	if tables == nil {
		tables = []model.Table{}
	}
	data, err := json.Marshal(tables)
	if err != nil {
		return 0, fmt.Errorf("marshal snapshot: %w", err)
	}

	const q = `INSERT INTO snapshots (service_name, schema_name, label, table_count, tables_json, taken_at)
		VALUES (?, ?, ?, ?, ?, ?)`
	result, err := s.db.ExecContext(ctx, q, service, snap.Schema, label, len(tables), string(data), snap.TakenAt.UTC())
	if err != nil {
		return 0, fmt.Errorf("save snapshot: %w", err)
	}
	return result.LastInsertId()
}

const selectSnapshot = `SELECT id, service_name, schema_name, label, table_count, tables_json, taken_at FROM snapshots`

// Get returns the snapshot with the given id.
func (s *Store) Get(ctx context.Context, id int64) (Snapshot, error) {
	return s.one(ctx, selectSnapshot+` WHERE id = ?`, id)
}

// Latest returns the most recent snapshot of schema for service.
func (s *Store) Latest(ctx context.Context, service, schema string) (Snapshot, error) {
	return s.one(ctx, selectSnapshot+` WHERE service_name = ? AND schema_name = ?
		ORDER BY taken_at DESC, id DESC LIMIT 1`, service, schema)
}

func (s *Store) one(ctx context.Context, q string, args ...any) (Snapshot, error) {
	var row snapshotRow
	if err := s.db.GetContext(ctx, &row, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Snapshot{}, ErrNotFound
		}
		return Snapshot{}, fmt.Errorf("get snapshot: %w", err)
	}
	return row.toSnapshot()
}

// List returns the snapshots of service, newest first. An empty schema
// lists every schema.
func (s *Store) List(ctx context.Context, service, schema string) ([]Entry, error) {
	q := `SELECT id, service_name, schema_name, label, table_count, taken_at
		FROM snapshots WHERE service_name = ?`
	args := []any{service}
	if schema != "" {
		q += ` AND schema_name = ?`
		args = append(args, schema)
	}
	q += ` ORDER BY taken_at DESC, id DESC`

	entries := []Entry{}
	if err := s.db.SelectContext(ctx, &entries, q, args...); err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	for i := range entries {
		entries[i].TakenAt = entries[i].TakenAt.UTC()
	}
	return entries, nil
}

// Delete removes one snapshot.
func (s *Store) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM snapshots WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Prune keeps the newest keep snapshots of schema for service and deletes
// the rest, returning how many were deleted.
func (s *Store) Prune(ctx context.Context, service, schema string, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	const q = `DELETE FROM snapshots WHERE service_name = ? AND schema_name = ? AND id NOT IN (
		SELECT id FROM snapshots WHERE service_name = ? AND schema_name = ?
		ORDER BY taken_at DESC, id DESC LIMIT ?)`
	result, err := s.db.ExecContext(ctx, q, service, schema, service, schema, keep)
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	return result.RowsAffected()
}
