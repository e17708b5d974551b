package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"genotasks/internal/replica"
)

// Store is the durable journal of a replica: it keeps the winning event of
// every key, tombstones included.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open initializes a new SQLite store and runs the required migrations.
func Open(dbPath string, logger *slog.Logger) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("empty database path")
	}

	if logger == nil {
		logger = slog.Default()
	}

	if err := ensureDir(dbPath); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(0)

	s := &Store{db: conn, logger: logger}
	if err := s.migrate(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return s, nil
}

// Close releases the database resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func ensureDir(dbPath string) error {
	dir := filepath.Dir(dbPath)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS replica_events (
            key TEXT PRIMARY KEY,
            value BLOB,
            tombstone INTEGER NOT NULL DEFAULT 0,
            wall INTEGER NOT NULL,
            logical INTEGER NOT NULL,
            node TEXT NOT NULL,
            updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
        );`,
		`CREATE INDEX IF NOT EXISTS idx_replica_events_stamp ON replica_events(wall, logical, node);`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// Append stores ev as the winner of its key. The replica only appends
// events that already beat the stored value, so this is a plain upsert.
func (s *Store) Append(ctx context.Context, ev replica.Event) error {
	var value any
	if !ev.Tombstone() {
		value = ev.Value
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO replica_events(key, value, tombstone, wall, logical, node)
        VALUES(?, ?, ?, ?, ?, ?)
        ON CONFLICT(key) DO UPDATE SET
            value = excluded.value,
            tombstone = excluded.tombstone,
            wall = excluded.wall,
            logical = excluded.logical,
            node = excluded.node,
            updated_at = CURRENT_TIMESTAMP`,
		ev.Key, value, boolToInt(ev.Tombstone()), ev.Stamp.Wall, int64(ev.Stamp.Logical), ev.Stamp.Node)
	if err != nil {
		return fmt.Errorf("append event %s: %w", ev.Key, err)
	}
	return nil
}

// Load returns every stored winner ordered by timestamp.
func (s *Store) Load(ctx context.Context) ([]replica.Event, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value, tombstone, wall, logical, node
        FROM replica_events ORDER BY wall, logical, node`)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}
	defer rows.Close()

	var events []replica.Event
	for rows.Next() {
		var (
			ev        replica.Event
			value     []byte
			tombstone int
			logical   int64
		)
		if err := rows.Scan(&ev.Key, &value, &tombstone, &ev.Stamp.Wall, &logical, &ev.Stamp.Node); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Stamp.Logical = uint32(logical)
		if tombstone == 0 && len(value) > 0 {
			ev.Value = value
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	s.logger.Debug("journal loaded", slog.Int("events", len(events)))
	return events, nil
}

// Count returns the number of keys in the journal, tombstones included.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM replica_events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
