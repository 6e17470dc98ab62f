package checkpoint

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	werrors "github.com/windlass-dev/windlass/pkg/errors"
	_ "modernc.org/sqlite"
)

// SQLiteStore is the alternate checkpoint backend: a pure-Go (no cgo)
// SQLite database, useful when checkpoints should live in a single file
// shared across workflow names rather than one file per checkpoint.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if necessary) the SQLite database at
// path and ensures its schema exists.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: opening sqlite store: %w", err)
	}
	const schema = `
CREATE TABLE IF NOT EXISTS checkpoints (
	workflow_name TEXT NOT NULL,
	checkpoint_id TEXT NOT NULL,
	saved_at      TEXT NOT NULL,
	input_hash    TEXT NOT NULL,
	step_results  TEXT NOT NULL,
	PRIMARY KEY (workflow_name, checkpoint_id)
);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("checkpoint: creating schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Save upserts rec.
func (s *SQLiteStore) Save(ctx context.Context, rec *Record) error {
	const q = `
INSERT INTO checkpoints (workflow_name, checkpoint_id, saved_at, input_hash, step_results)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(workflow_name, checkpoint_id) DO UPDATE SET
	saved_at = excluded.saved_at,
	input_hash = excluded.input_hash,
	step_results = excluded.step_results;`
	_, err := s.db.ExecContext(ctx, q,
		rec.WorkflowName, rec.CheckpointID, rec.SavedAt.Format(time.RFC3339), rec.InputHash, string(rec.StepResults))
	if err != nil {
		return fmt.Errorf("checkpoint: saving to sqlite: %w", err)
	}
	return nil
}

// Load retrieves a checkpoint by workflow name and checkpoint ID.
func (s *SQLiteStore) Load(ctx context.Context, workflowName, checkpointID string) (*Record, error) {
	const q = `
SELECT workflow_name, checkpoint_id, saved_at, input_hash, step_results
FROM checkpoints WHERE workflow_name = ? AND checkpoint_id = ?;`
	row := s.db.QueryRowContext(ctx, q, workflowName, checkpointID)

	var rec Record
	var savedAt, stepResults string
	if err := row.Scan(&rec.WorkflowName, &rec.CheckpointID, &savedAt, &rec.InputHash, &stepResults); err != nil {
		if err == sql.ErrNoRows {
			return nil, &werrors.CheckpointNotFoundError{WorkflowName: workflowName}
		}
		return nil, fmt.Errorf("checkpoint: loading from sqlite: %w", err)
	}
	rec.SavedAt, _ = time.Parse(time.RFC3339, savedAt)
	rec.StepResults = []byte(stepResults)
	return &rec, nil
}

// Delete removes a checkpoint row.
func (s *SQLiteStore) Delete(ctx context.Context, workflowName, checkpointID string) error {
	const q = `DELETE FROM checkpoints WHERE workflow_name = ? AND checkpoint_id = ?;`
	_, err := s.db.ExecContext(ctx, q, workflowName, checkpointID)
	if err != nil {
		return fmt.Errorf("checkpoint: deleting from sqlite: %w", err)
	}
	return nil
}
