package memory

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/tejashwikalptaru/tunedeck/internal/domain"
	"github.com/tejashwikalptaru/tunedeck/internal/ports"
)

const queueKey = "history.queue"

// QueueRepository implements ports.QueueRepository on a Store.
//
// Thread-safe: All operations protected by sync.RWMutex.
type QueueRepository struct {
	store *Store
	mu    sync.RWMutex
}

// NewQueueRepository creates a new queue repository.
func NewQueueRepository(store *Store) *QueueRepository {
	return &QueueRepository{store: store}
}

// SaveQueue persists the queue state.
func (r *QueueRepository) SaveQueue(ctx context.Context, state domain.QueueState) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.Marshal(state)
	if err != nil {
		return domain.NewPersistenceError("marshal", "queue", "failed to marshal queue", err)
	}
	r.store.SetString(queueKey, string(data))
	return nil
}

// LoadQueue retrieves the last saved queue state.
func (r *QueueRepository) LoadQueue(ctx context.Context) (domain.QueueState, error) {
	if err := ctx.Err(); err != nil {
		return domain.QueueState{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	data := r.store.String(queueKey)
	if data == "" {
		// No saved queue
		return domain.QueueState{Cursor: domain.NoCursor}, nil
	}

	var state domain.QueueState
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return domain.QueueState{}, domain.NewPersistenceError("unmarshal", "queue", "failed to unmarshal queue", err)
	}
	return state, nil
}

// Verify interface implementation
var _ ports.QueueRepository = (*QueueRepository)(nil)
