package models

import "time"

// AlertEvent is the payload handed to the notification sink when a rental
// is about to expire.
type AlertEvent struct {
	ID               string    `json:"id"`
	RentalID         string    `json:"rental_id"`
	Client           string    `json:"client"`
	Unit             string    `json:"unit"`
	Start            time.Time `json:"waktu_mulai"`
	End              time.Time `json:"waktu_selesai"`
	RemainingSeconds int64     `json:"remaining_seconds"`
	FiredAt          time.Time `json:"fired_at"`
	Message          string    `json:"message"`
}
