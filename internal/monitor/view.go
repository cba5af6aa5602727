package monitor

import (
	"time"

	"sewamonitor/internal/models"
	"sewamonitor/internal/rental"
	"sewamonitor/internal/units"
)

// RentalStatus is one rental with its countdown at the time of the view.
type RentalStatus struct {
	Rental    models.Rental `json:"rental"`
	Countdown rental.Result `json:"countdown"`
	Alerted   bool          `json:"alerted"`
}

// View is an immutable picture of the monitor published after every tick.
type View struct {
	GeneratedAt time.Time      `json:"generated_at"`
	LastFetchAt time.Time      `json:"last_fetch_at"`
	LastError   string         `json:"last_error,omitempty"`
	Rentals     []RentalStatus `json:"rentals"`
	Units       []units.Status `json:"units"`
}

// Healthy reports whether the last fetch succeeded.
func (v *View) Healthy() bool {
	return v != nil && v.LastError == "" && !v.LastFetchAt.IsZero()
}

// ByState returns the rentals currently in state, preserving view order.
func (v *View) ByState(state rental.State) []RentalStatus {
	if v == nil {
		return nil
	}
	out := make([]RentalStatus, 0, len(v.Rentals))
	for _, rs := range v.Rentals {
		if rs.Countdown.State == state {
			out = append(out, rs)
		}
	}
	return out
}

// Filter returns the rentals matching the booking source, or all of them
// when source is empty.
func Filter(statuses []RentalStatus, source string) []RentalStatus {
	if source == "" {
		return statuses
	}
	want := models.NormalizeSource(source)
	out := make([]RentalStatus, 0, len(statuses))
	for _, rs := range statuses {
		if models.NormalizeSource(rs.Rental.BookingSource) == want {
			out = append(out, rs)
		}
	}
	return out
}
