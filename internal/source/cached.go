package source

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"sewamonitor/internal/domain"
	"sewamonitor/internal/logging"
	"sewamonitor/internal/models"

	"github.com/rs/zerolog"
)

// CachedSource saves every good snapshot. Until the upstream has answered
// once, a failed fetch is served from the saved snapshot, so a restart during
// a backend outage still knows the unit catalog and the running rentals.
// The cached snapshot comes back together with an error wrapping both
// models.ErrServedFromCache and the upstream failure. After that, failures
// are returned as is and the coordinator keeps its own last-known-good state.
type CachedSource struct {
	upstream domain.SnapshotSource
	store    domain.SnapshotStore
	logger   *zerolog.Logger
	warm     atomic.Bool
}

func NewCachedSource(upstream domain.SnapshotSource, store domain.SnapshotStore, logger *zerolog.Logger) *CachedSource {
	return &CachedSource{
		upstream: upstream,
		store:    store,
		logger:   logging.Component(logger, "snapshot-cache"),
	}
}

func (s *CachedSource) Fetch(ctx context.Context) (*models.Snapshot, error) {
	snap, err := s.upstream.Fetch(ctx)
	if err == nil {
		s.warm.Store(true)
		if saveErr := s.store.Save(ctx, snap); saveErr != nil {
			s.logger.Warn().Err(saveErr).Msg("save snapshot to cache")
		}
		return snap, nil
	}

	if s.warm.Load() || ctx.Err() != nil {
		return nil, err
	}

	cached, loadErr := s.store.Load(ctx)
	if loadErr != nil || cached == nil {
		return nil, errors.Join(err, loadErr)
	}

	s.logger.Warn().
		Err(err).
		Time("cached_at", cached.FetchedAt).
		Msg("upstream fetch failed, serving cached snapshot")
	return cached, fmt.Errorf("%w: %w", models.ErrServedFromCache, err)
}
