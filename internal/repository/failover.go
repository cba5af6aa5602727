package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"sewamonitor/internal/domain"
	"sewamonitor/internal/logging"
	"sewamonitor/internal/models"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverSnapshotStore writes through to the fallback and prefers the
// primary while it is healthy. After a primary failure it retries the primary
// at most once per recoveryInterval.
type FailoverSnapshotStore struct {
	primary  domain.SnapshotStore
	fallback domain.SnapshotStore
	logger   *zerolog.Logger
	isDown   atomic.Bool

	mu        sync.Mutex
	lastCheck time.Time
}

func NewFailoverSnapshotStore(primary, fallback domain.SnapshotStore, logger *zerolog.Logger) *FailoverSnapshotStore {
	return &FailoverSnapshotStore{
		primary:  primary,
		fallback: fallback,
		logger:   logging.Component(logger, "snapshot-store"),
	}
}

func (r *FailoverSnapshotStore) Save(ctx context.Context, snap *models.Snapshot) error {
	if err := r.fallback.Save(ctx, snap); err != nil {
		return err
	}
	if !r.primaryUsable() {
		return nil
	}
	if err := r.primary.Save(ctx, snap); err != nil {
		r.markDown(err)
		return nil
	}
	r.isDown.Store(false)
	return nil
}

func (r *FailoverSnapshotStore) Load(ctx context.Context) (*models.Snapshot, error) {
	if r.primaryUsable() {
		snap, err := r.primary.Load(ctx)
		if err == nil && snap != nil {
			r.isDown.Store(false)
			return snap, nil
		}
		if err != nil {
			r.markDown(err)
		}
	}
	return r.fallback.Load(ctx)
}

func (r *FailoverSnapshotStore) primaryUsable() bool {
	if !r.isDown.Load() {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	// Try to recover after recoveryInterval
	if time.Since(r.lastCheck) > recoveryInterval {
		r.lastCheck = time.Now()
		return true
	}
	return false
}

func (r *FailoverSnapshotStore) markDown(err error) {
	r.logger.Error().Err(err).Msg("Primary snapshot store failed, falling back to memory")
	r.isDown.Store(true)
	r.mu.Lock()
	r.lastCheck = time.Now()
	r.mu.Unlock()
}
