package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) SaveRun(ctx context.Context, run *Run) (string, error) {
	db, err := s.getDB()
	if err != nil {
		return "", err
	}
	stamp(run)

	meta, err := EncodeMeta(run.Meta)
	if err != nil {
		return "", err
	}
	var cfg, trace, state []byte
	if run.Config != nil {
		if cfg, err = EncodeConfig(run.Config); err != nil {
			return "", err
		}
	}
	if run.Trace != nil {
		if trace, err = EncodeTrace(run.Trace); err != nil {
			return "", err
		}
	}
	if run.Final != nil {
		if state, err = EncodeState(run.Final); err != nil {
			return "", err
		}
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO runs (id, created_at, meta, config, trace, state)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			created_at = excluded.created_at,
			meta = excluded.meta,
			config = excluded.config,
			trace = excluded.trace,
			state = excluded.state
	`, run.Meta.ID, run.Meta.Timestamp.UnixNano(), meta, cfg, trace, state)
	if err != nil {
		return "", err
	}
	return run.Meta.ID, nil
}

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, false, err
	}

	var meta, cfg, trace, state []byte
	err = db.QueryRowContext(ctx, `SELECT meta, config, trace, state FROM runs WHERE id = ?`, id).
		Scan(&meta, &cfg, &trace, &state)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	run := &Run{}
	if run.Meta, err = DecodeMeta(meta); err != nil {
		return nil, false, fmt.Errorf("decode run %s: %w", id, err)
	}
	if len(cfg) > 0 {
		if run.Config, err = DecodeConfig(cfg); err != nil {
			return nil, false, fmt.Errorf("decode config %s: %w", id, err)
		}
	}
	if len(trace) > 0 {
		if run.Trace, err = DecodeTrace(trace); err != nil {
			return nil, false, fmt.Errorf("decode trace %s: %w", id, err)
		}
	}
	if len(state) > 0 {
		if run.Final, err = DecodeState(state); err != nil {
			return nil, false, fmt.Errorf("decode state %s: %w", id, err)
		}
	}
	return run, true, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context) ([]RunMetadata, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT meta FROM runs ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]RunMetadata, 0)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		meta, err := DecodeMeta(payload)
		if err != nil {
			return nil, err
		}
		runs = append(runs, meta)
	}
	return runs, rows.Err()
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("store is not initialized")
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			created_at INTEGER NOT NULL,
			meta BLOB NOT NULL,
			config BLOB,
			trace BLOB,
			state BLOB
		);
	`)
	return err
}
