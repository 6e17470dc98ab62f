package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	werrors "github.com/windlass-dev/windlass/pkg/errors"
)

// FileStore persists one JSON document per checkpoint under
// <root>/<workflow-name>/<checkpoint-id>.json, matching the on-disk
// layout named in the checkpoint layout spec.
type FileStore struct {
	root string
}

// NewFileStore returns a FileStore rooted at root (created lazily on
// first Save).
func NewFileStore(root string) *FileStore {
	return &FileStore{root: root}
}

type fileRecord struct {
	WorkflowName string          `json:"workflow_name"`
	CheckpointID string          `json:"checkpoint_id"`
	SavedAt      string          `json:"saved_at"`
	InputHash    string          `json:"input_hash"`
	StepResults  json.RawMessage `json:"step_results"`
}

func (s *FileStore) path(workflowName, checkpointID string) string {
	return filepath.Join(s.root, workflowName, checkpointID+".json")
}

// Save writes rec, creating the workflow's checkpoint directory if
// needed.
func (s *FileStore) Save(ctx context.Context, rec *Record) error {
	dir := filepath.Join(s.root, rec.WorkflowName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("checkpoint: creating %s: %w", dir, err)
	}

	fr := fileRecord{
		WorkflowName: rec.WorkflowName,
		CheckpointID: rec.CheckpointID,
		SavedAt:      rec.SavedAt.Format(time.RFC3339),
		InputHash:    rec.InputHash,
		StepResults:  rec.StepResults,
	}
	data, err := json.MarshalIndent(fr, "", "  ")
	if err != nil {
		return fmt.Errorf("checkpoint: marshaling: %w", err)
	}
	path := s.path(rec.WorkflowName, rec.CheckpointID)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("checkpoint: writing %s: %w", path, err)
	}
	return nil
}

// Load reads back a previously saved checkpoint.
func (s *FileStore) Load(ctx context.Context, workflowName, checkpointID string) (*Record, error) {
	path := s.path(workflowName, checkpointID)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &werrors.CheckpointNotFoundError{WorkflowName: workflowName}
		}
		return nil, fmt.Errorf("checkpoint: reading %s: %w", path, err)
	}

	var fr fileRecord
	if err := json.Unmarshal(data, &fr); err != nil {
		return nil, fmt.Errorf("checkpoint: decoding %s: %w", path, err)
	}
	savedAt, _ := time.Parse(time.RFC3339, fr.SavedAt)
	return &Record{
		WorkflowName: fr.WorkflowName,
		CheckpointID: fr.CheckpointID,
		SavedAt:      savedAt,
		InputHash:    fr.InputHash,
		StepResults:  fr.StepResults,
	}, nil
}

// Delete removes a checkpoint, used only by an explicit --restart.
func (s *FileStore) Delete(ctx context.Context, workflowName, checkpointID string) error {
	path := s.path(workflowName, checkpointID)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("checkpoint: removing %s: %w", path, err)
	}
	return nil
}
