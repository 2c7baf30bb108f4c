package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/GrEarl/CloverBINGO-sub000/bingo"

	_ "modernc.org/sqlite"
)

const defaultLocalDBName = "cloverbingo_local.db"

type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dbPath = strings.TrimSpace(dbPath)
	if dbPath == "" {
		return nil, fmt.Errorf("empty sqlite database path")
	}
	if dbPath != ":memory:" {
		parent := filepath.Dir(dbPath)
		if parent != "" && parent != "." {
			if err := os.MkdirAll(parent, 0o755); err != nil {
				return nil, err
			}
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, pragma := range []string{
		`PRAGMA busy_timeout = 5000;`,
		`PRAGMA journal_mode = WAL;`,
		`PRAGMA foreign_keys = ON;`,
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := ensureSQLiteSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	log.Printf("[Ledger] sqlite store ready: path=%s", dbPath)
	return &SQLiteStore{db: db, now: time.Now}, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) LoadSession(ctx context.Context, code string) ([]byte, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT state_json FROM session_state WHERE code = ?`, code).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(raw), nil
}

func (s *SQLiteStore) SaveSession(ctx context.Context, code string, state []byte) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO session_state (code, state_json, updated_at_ms)
VALUES (?, ?, ?)
ON CONFLICT (code) DO UPDATE
SET state_json = excluded.state_json,
    updated_at_ms = excluded.updated_at_ms
`, code, string(state), s.now().UTC().UnixMilli())
	return err
}

func (s *SQLiteStore) AppendCommit(ctx context.Context, code string, c bingo.Commit) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO session_commit (code, seq, number, committed_at_ms)
VALUES (?, ?, ?, ?)
ON CONFLICT (code, seq) DO NOTHING
`, code, c.Seq, c.Number, c.CommittedAt.UTC().UnixMilli())
	return err
}

func (s *SQLiteStore) ListCommits(ctx context.Context, code string) ([]bingo.Commit, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT seq, number, committed_at_ms
FROM session_commit
WHERE code = ?
ORDER BY seq ASC
`, code)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]bingo.Commit, 0, 32)
	for rows.Next() {
		var (
			c  bingo.Commit
			ms int64
		)
		if err := rows.Scan(&c.Seq, &c.Number, &ms); err != nil {
			return nil, err
		}
		c.CommittedAt = msToTime(ms)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ClaimOwner(ctx context.Context, code, owner string, ttl time.Duration) error {
	now := s.now().UTC()
	res, err := s.db.ExecContext(ctx, `
INSERT INTO session_owner (code, owner_id, expires_at_ms)
VALUES (?, ?, ?)
ON CONFLICT (code) DO UPDATE
SET owner_id = excluded.owner_id,
    expires_at_ms = excluded.expires_at_ms
WHERE session_owner.owner_id = excluded.owner_id
   OR session_owner.expires_at_ms <= ?
`, code, owner, now.Add(ttl).UnixMilli(), now.UnixMilli())
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrOwnedElsewhere
	}
	return nil
}

func (s *SQLiteStore) ReleaseOwner(ctx context.Context, code, owner string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM session_owner WHERE code = ? AND owner_id = ?`, code, owner)
	return err
}

func ensureSQLiteSchema(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`
CREATE TABLE IF NOT EXISTS session_state (
    code TEXT PRIMARY KEY,
    state_json TEXT NOT NULL,
    updated_at_ms INTEGER NOT NULL
)`,
		`
CREATE TABLE IF NOT EXISTS session_commit (
    code TEXT NOT NULL,
    seq INTEGER NOT NULL,
    number INTEGER NOT NULL,
    committed_at_ms INTEGER NOT NULL,
    PRIMARY KEY (code, seq)
)`,
		`
CREATE TABLE IF NOT EXISTS session_owner (
    code TEXT PRIMARY KEY,
    owner_id TEXT NOT NULL,
    expires_at_ms INTEGER NOT NULL
)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func defaultLocalDatabasePath() (string, error) {
	userConfigDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(userConfigDir, "CloverBINGO", defaultLocalDBName), nil
}
