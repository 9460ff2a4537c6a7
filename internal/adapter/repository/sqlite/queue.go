package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/tejashwikalptaru/tunedeck/internal/domain"
	"github.com/tejashwikalptaru/tunedeck/internal/ports"
)

const queueKey = "queue"

// QueueRepository implements ports.QueueRepository as a single row of the state table.
type QueueRepository struct {
	db *sql.DB
}

// NewQueueRepository creates a new queue repository.
func NewQueueRepository(db *DB) *QueueRepository {
	return &QueueRepository{db: db.db}
}

// SaveQueue persists the queue state, replacing the previous one.
func (r *QueueRepository) SaveQueue(ctx context.Context, state domain.QueueState) error {
	doc, err := json.Marshal(state)
	if err != nil {
		return domain.NewPersistenceError("marshal", "queue", "failed to marshal queue", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO state (key, doc) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET doc = excluded.doc`,
		queueKey, string(doc))
	if err != nil {
		return domain.NewPersistenceError("save", "queue", "failed to save queue", err)
	}
	return nil
}

// LoadQueue retrieves the last saved queue state.
func (r *QueueRepository) LoadQueue(ctx context.Context) (domain.QueueState, error) {
	var doc string
	err := r.db.QueryRowContext(ctx, `SELECT doc FROM state WHERE key = ?`, queueKey).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.QueueState{Cursor: domain.NoCursor}, nil
	}
	if err != nil {
		return domain.QueueState{}, domain.NewPersistenceError("load", "queue", "failed to load queue", err)
	}

	var state domain.QueueState
	if err := json.Unmarshal([]byte(doc), &state); err != nil {
		return domain.QueueState{}, domain.NewPersistenceError("unmarshal", "queue", "failed to unmarshal queue", err)
	}
	return state, nil
}

// Verify interface implementation
var _ ports.QueueRepository = (*QueueRepository)(nil)
