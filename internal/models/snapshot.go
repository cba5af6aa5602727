package models

import "time"

// Snapshot is the full state returned by one SnapshotSource fetch.
type Snapshot struct {
	AvailableUnits []string  `json:"availableUnits"`
	Active         []Rental  `json:"active"`
	Upcoming       []Rental  `json:"upcoming"`
	Finished       []Rental  `json:"finish"`
	FetchedAt      time.Time `json:"fetched_at"`
}

// All returns every rental of the snapshot once, keyed by ID.
// When an ID appears in several lists the first occurrence wins,
// in the order active, upcoming, finished.
func (s *Snapshot) All() []Rental {
	if s == nil {
		return nil
	}

	total := len(s.Active) + len(s.Upcoming) + len(s.Finished)
	out := make([]Rental, 0, total)
	seen := make(map[string]struct{}, total)
	for _, list := range [][]Rental{s.Active, s.Upcoming, s.Finished} {
		for _, r := range list {
			if _, ok := seen[r.ID]; ok {
				continue
			}
			seen[r.ID] = struct{}{}
			out = append(out, r)
		}
	}
	return out
}
