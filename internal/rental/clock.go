package rental

import (
	"fmt"
	"strings"
	"time"
)

// State is the temporal classification of a rental relative to now.
type State int

const (
	Upcoming State = iota
	Active
	Finished
)

func (s State) String() string {
	switch s {
	case Upcoming:
		return "upcoming"
	case Active:
		return "active"
	case Finished:
		return "finished"
	default:
		return "unknown"
	}
}

// MarshalText renders the state name in JSON payloads.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ParseState maps a state name back to its State.
func ParseState(name string) (State, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "upcoming":
		return Upcoming, true
	case "active":
		return Active, true
	case "finished", "finish":
		return Finished, true
	default:
		return 0, false
	}
}

// Result is the outcome of evaluating a rental window at an instant.
type Result struct {
	State            State `json:"state"`
	RemainingSeconds int64 `json:"remaining_seconds"`
	Hours            int64 `json:"hours"`
	Minutes          int64 `json:"minutes"`
	Seconds          int64 `json:"seconds"`
}

// Clock renders the remaining time as HH:MM:SS.
func (r Result) Clock() string {
	return fmt.Sprintf("%02d:%02d:%02d", r.Hours, r.Minutes, r.Seconds)
}

// Evaluate classifies the window [start, end] at now and returns the time
// left until the next boundary: start for upcoming rentals, end for active
// ones. Finished rentals and inverted windows report zero.
func Evaluate(now, start, end time.Time) Result {
	if !start.Before(end) {
		return Result{State: Finished}
	}

	switch {
	case now.Before(start):
		return breakdown(Upcoming, start.Sub(now))
	case now.After(end):
		return Result{State: Finished}
	default:
		return breakdown(Active, end.Sub(now))
	}
}

func breakdown(state State, d time.Duration) Result {
	secs := int64(d / time.Second)
	if secs < 0 {
		secs = 0
	}
	return Result{
		State:            state,
		RemainingSeconds: secs,
		Hours:            secs / 3600,
		Minutes:          (secs % 3600) / 60,
		Seconds:          secs % 60,
	}
}
