// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package runcoordinator

import (
	"context"
	"database/sql"
	"encoding/json"

	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver

	"github.com/reelforge/pipelinecore/internal/pipelineerr"
)

// SQLiteRunStore is the durable RunStore: a pure-Go SQLite driver, no cgo,
// matching the teacher's choice for its own durable state.
type SQLiteRunStore struct {
	db *sql.DB
}

// NewSQLiteRunStore opens (or creates) dsn and ensures the run_records
// table exists. dsn is a modernc.org/sqlite data source, e.g. a file path
// or ":memory:" for tests.
func NewSQLiteRunStore(dsn string) (*SQLiteRunStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, pipelineerr.Wrap(pipelineerr.Backend, "open sqlite run store", err)
	}
	const schema = `
CREATE TABLE IF NOT EXISTS run_records (
	execution_id TEXT PRIMARY KEY,
	project_id   TEXT NOT NULL,
	document     TEXT NOT NULL
);`
	if _, err := db.Exec(schema); err != nil {
		return nil, pipelineerr.Wrap(pipelineerr.Backend, "create run_records table", err)
	}
	return &SQLiteRunStore{db: db}, nil
}

func (s *SQLiteRunStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteRunStore) Create(ctx context.Context, r *RunRecord) error {
	doc, err := json.Marshal(r)
	if err != nil {
		return pipelineerr.Wrap(pipelineerr.Backend, "marshal run record", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO run_records (execution_id, project_id, document) VALUES (?, ?, ?)`,
		r.ExecutionID, r.ProjectID, string(doc))
	if err != nil {
		return pipelineerr.Wrap(pipelineerr.Backend, "insert run record", err)
	}
	return nil
}

func (s *SQLiteRunStore) Update(ctx context.Context, r *RunRecord) error {
	doc, err := json.Marshal(r)
	if err != nil {
		return pipelineerr.Wrap(pipelineerr.Backend, "marshal run record", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE run_records SET document = ? WHERE execution_id = ?`,
		string(doc), r.ExecutionID)
	if err != nil {
		return pipelineerr.Wrap(pipelineerr.Backend, "update run record", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return pipelineerr.Wrap(pipelineerr.Backend, "check update result", err)
	}
	if n == 0 {
		return pipelineerr.New(pipelineerr.Validation, "run record does not exist")
	}
	return nil
}

func (s *SQLiteRunStore) Get(ctx context.Context, executionID string) (*RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT document FROM run_records WHERE execution_id = ?`, executionID)
	var doc string
	if err := row.Scan(&doc); err != nil {
		if err == sql.ErrNoRows {
			return nil, pipelineerr.New(pipelineerr.ContextMissing, "run record not found")
		}
		return nil, pipelineerr.Wrap(pipelineerr.Backend, "query run record", err)
	}
	var r RunRecord
	if err := json.Unmarshal([]byte(doc), &r); err != nil {
		return nil, pipelineerr.Wrap(pipelineerr.Backend, "unmarshal run record", err)
	}
	return &r, nil
}
