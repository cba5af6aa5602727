package rental

import (
	"time"

	"sewamonitor/internal/models"
)

// Key identifies one booking instance. A rebooked or extended rental keeps
// its ID but gets a new Key, and therefore a new watcher.
type Key struct {
	ID    string
	Start time.Time
	End   time.Time
}

// KeyOf returns the instance key of r.
func KeyOf(r models.Rental) Key {
	return Key{ID: r.ID, Start: r.Start, End: r.End}
}

// Same reports whether both keys describe the same booking instance.
func (k Key) Same(other Key) bool {
	return k.ID == other.ID && k.Start.Equal(other.Start) && k.End.Equal(other.End)
}

// Watcher owns the one-shot alert state of a single booking instance.
// It is not safe for concurrent use; the coordinator loop is its only caller.
type Watcher struct {
	rental    models.Rental
	threshold time.Duration
	fired     bool
	last      Result
}

// NewWatcher returns an armed watcher for r.
func NewWatcher(r models.Rental, threshold time.Duration) *Watcher {
	return &Watcher{rental: r, threshold: threshold}
}

func (w *Watcher) Key() Key              { return KeyOf(w.rental) }
func (w *Watcher) Rental() models.Rental { return w.rental }
func (w *Watcher) Fired() bool           { return w.fired }
func (w *Watcher) Last() Result          { return w.last }

// Refresh replaces the display fields of the rental. The alert state is kept
// as long as the instance key does not change; it reports false otherwise.
func (w *Watcher) Refresh(r models.Rental) bool {
	if !KeyOf(r).Same(w.Key()) {
		return false
	}
	w.rental = r
	return true
}

// Evaluate computes the rental's state at now and reports whether this call
// is the Armed to Fired transition.
func (w *Watcher) Evaluate(now time.Time) (Result, bool) {
	res := Evaluate(now, w.rental.Start, w.rental.End)
	w.last = res

	if w.fired {
		return res, false
	}

	thresholdSecs := int64(w.threshold / time.Second)
	if res.State == Active && res.RemainingSeconds > 0 && res.RemainingSeconds <= thresholdSecs {
		w.fired = true
		return res, true
	}
	return res, false
}
