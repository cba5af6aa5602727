package repository

import (
	"context"
	"sync"
	"time"

	"sewamonitor/internal/models"
)

// MemorySnapshotStore keeps the last snapshot in process memory.
type MemorySnapshotStore struct {
	mu      sync.RWMutex
	snap    *models.Snapshot
	savedAt time.Time
	ttl     time.Duration
}

func NewMemorySnapshotStore(ttl time.Duration) *MemorySnapshotStore {
	return &MemorySnapshotStore{ttl: ttl}
}

func (r *MemorySnapshotStore) Save(ctx context.Context, snap *models.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snap = snap
	r.savedAt = time.Now()
	return nil
}

// Load returns nil without error when nothing is stored or the entry expired.
func (r *MemorySnapshotStore) Load(ctx context.Context) (*models.Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.snap == nil {
		return nil, nil
	}
	if r.ttl > 0 && time.Since(r.savedAt) > r.ttl {
		return nil, nil
	}
	return r.snap, nil
}
