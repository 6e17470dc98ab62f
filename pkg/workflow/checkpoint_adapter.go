package workflow

import (
	"context"
	"time"

	"github.com/windlass-dev/windlass/pkg/checkpoint"
)

// checkpointAdapter satisfies CheckpointStore over a checkpoint.Store,
// translating between the executor's flat (hash, bytes) shape and the
// store's *checkpoint.Record.
type checkpointAdapter struct {
	store checkpoint.Store
}

// NewCheckpointAdapter wraps a checkpoint.Store as a CheckpointStore.
func NewCheckpointAdapter(store checkpoint.Store) CheckpointStore {
	return &checkpointAdapter{store: store}
}

func (a *checkpointAdapter) Save(ctx context.Context, workflowName, checkpointID string, inputHash string, stepResults []byte) error {
	return a.store.Save(ctx, &checkpoint.Record{
		WorkflowName: workflowName,
		CheckpointID: checkpointID,
		SavedAt:      time.Now(),
		InputHash:    inputHash,
		StepResults:  stepResults,
	})
}

func (a *checkpointAdapter) Load(ctx context.Context, workflowName, checkpointID string) (string, []byte, error) {
	rec, err := a.store.Load(ctx, workflowName, checkpointID)
	if err != nil {
		return "", nil, err
	}
	return rec.InputHash, rec.StepResults, nil
}
