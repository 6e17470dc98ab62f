// Package checkpoint persists content-addressable workflow progress
// snapshots so a run can be resumed without redoing already-completed
// steps. It is deliberately decoupled from pkg/workflow's types: a
// Record carries step results as opaque JSON, so the executor owns the
// translation to and from its own StepResult type.
package checkpoint

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/crypto/blake2b"
)

// Record is one persisted checkpoint.
type Record struct {
	WorkflowName string
	CheckpointID string
	SavedAt      time.Time
	InputHash    string
	StepResults  json.RawMessage
}

// Store persists and retrieves Records. It is single-writer per
// workflow name; callers must not run two resumes of the same
// workflow concurrently.
type Store interface {
	Save(ctx context.Context, rec *Record) error
	Load(ctx context.Context, workflowName, checkpointID string) (*Record, error)
	Delete(ctx context.Context, workflowName, checkpointID string) error
}

// HashInputs returns a stable content hash of a run's resolved inputs,
// used to detect a resume attempt whose inputs differ from the ones the
// checkpoint was saved under. encoding/json canonicalizes map key order,
// so structurally equal inputs always hash identically regardless of
// iteration order.
func HashInputs(inputs map[string]interface{}) (string, error) {
	canonical, err := json.Marshal(inputs)
	if err != nil {
		return "", fmt.Errorf("checkpoint: cannot canonicalize inputs: %w", err)
	}
	sum := blake2b.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
