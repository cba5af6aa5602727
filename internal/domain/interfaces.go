package domain

import (
	"context"
	"time"

	"sewamonitor/internal/models"
)

// SnapshotSource returns the full set of known rentals and the unit catalog.
type SnapshotSource interface {
	Fetch(ctx context.Context) (*models.Snapshot, error)
}

// NotificationSink consumes alert events. Notify must not block the caller.
type NotificationSink interface {
	Notify(event models.AlertEvent)
}

// SnapshotStore keeps the last-known-good snapshot.
type SnapshotStore interface {
	Save(ctx context.Context, snap *models.Snapshot) error
	Load(ctx context.Context) (*models.Snapshot, error)
}

// EventPublisher fans events out to in-process subscribers.
type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// Clock returns the current instant.
type Clock func() time.Time
