package models

import (
	"strings"
	"time"
)

// Rental is one booked occupancy of a unit as reported by the snapshot source.
type Rental struct {
	ID            string    `json:"id"`
	Client        string    `json:"client"`
	Unit          string    `json:"unit"`
	Start         time.Time `json:"waktu_mulai"`
	End           time.Time `json:"waktu_selesai"`
	Price         float64   `json:"price"`
	BookingSource string    `json:"booking_source"`
}

// UnitKey is the case-insensitive identity of the rental's unit.
func (r Rental) UnitKey() string {
	return UnitKey(r.Unit)
}

// UnitKey normalizes a unit name for comparisons.
func UnitKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// NormalizeSource maps free-form booking source tags onto the known set.
func NormalizeSource(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case SourceOnline:
		return SourceOnline
	case SourcePrivateOffice, "private_office", "privateoffice":
		return SourcePrivateOffice
	case SourceWalkIn, "walk_in", "walkin":
		return SourceWalkIn
	default:
		return SourceOther
	}
}
