package models

import "time"

// Booking sources.
const (
	SourceOnline        = "online"
	SourcePrivateOffice = "private-office"
	SourceWalkIn        = "walk-in"
	SourceOther         = "other"
)

const (
	// DefaultSlowCadence how often the rental set is refreshed
	DefaultSlowCadence = 60 * time.Second

	// DefaultFastCadence how often countdowns and alerts are re-evaluated
	DefaultFastCadence = time.Second

	// DefaultAlertThreshold remaining time at which an active rental alerts
	DefaultAlertThreshold = 15 * time.Minute

	// DefaultNotifyQueueSize alerts buffered between the tick and the renderers
	DefaultNotifyQueueSize = 64

	// DefaultRecentAlerts alerts kept for the API view
	DefaultRecentAlerts = 50

	// DefaultSnapshotCacheTTL lifetime of the cached last-known-good snapshot
	DefaultSnapshotCacheTTL = 24 * time.Hour
)
