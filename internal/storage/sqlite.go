package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates or opens a SQLite database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			kind TEXT,
			target TEXT,
			namespaces JSON,
			roots JSON,
			started_at INTEGER,
			duration_ns INTEGER,
			stats JSON
		);`,
		`CREATE TABLE IF NOT EXISTS matches (
			run_id INTEGER REFERENCES runs(id) ON DELETE CASCADE,
			type_id TEXT,
			kind TEXT,
			source TEXT,
			markers JSON,
			PRIMARY KEY (run_id, type_id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_matches_type ON matches(type_id);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) SaveRun(ctx context.Context, run *Run) (int64, error) {
	namespaces, _ := json.Marshal(run.Namespaces)
	roots, _ := json.Marshal(run.Roots)
	stats, _ := json.Marshal(run.Stats)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO runs (kind, target, namespaces, roots, started_at, duration_ns, stats)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, run.Kind, run.Target, namespaces, roots, run.StartedAt.UnixNano(), int64(run.Duration), stats)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO matches (run_id, type_id, kind, source, markers) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(run_id, type_id) DO NOTHING
	`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for _, m := range run.Matches {
		markers, _ := json.Marshal(m.Markers)
		if _, err := stmt.ExecContext(ctx, id, m.TypeID, m.Kind, m.Source, markers); err != nil {
			return 0, fmt.Errorf("failed to insert match %s: %w", m.TypeID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	run.ID = id
	return id, nil
}

const runColumns = "id, kind, target, namespaces, roots, started_at, duration_ns, stats"

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var r Run
	var namespaces, roots, stats []byte
	var startedAt, duration int64
	if err := row.Scan(&r.ID, &r.Kind, &r.Target, &namespaces, &roots, &startedAt, &duration, &stats); err != nil {
		return nil, err
	}
	if len(namespaces) > 0 {
		_ = json.Unmarshal(namespaces, &r.Namespaces)
	}
	if len(roots) > 0 {
		_ = json.Unmarshal(roots, &r.Roots)
	}
	if len(stats) > 0 {
		_ = json.Unmarshal(stats, &r.Stats)
	}
	r.StartedAt = time.Unix(0, startedAt).UTC()
	r.Duration = time.Duration(duration)
	return &r, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, "SELECT "+runColumns+" FROM runs ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func (s *SQLiteStore) LoadRun(ctx context.Context, id int64) (*Run, error) {
	r, err := scanRun(s.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, "SELECT type_id, kind, source, markers FROM matches WHERE run_id = ? ORDER BY type_id", id)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m Match
		var markers []byte
		if err := rows.Scan(&m.TypeID, &m.Kind, &m.Source, &markers); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		if len(markers) > 0 {
			_ = json.Unmarshal(markers, &m.Markers)
		}
		r.Matches = append(r.Matches, m)
	}
	return r, rows.Err()
}
