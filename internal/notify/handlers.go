package notify

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"sewamonitor/internal/events"
	"sewamonitor/internal/models"
)

const toastTitle = "Sewa Hampir Berakhir"

// Output resolves a configured output name to a writer. Unknown names and
// "stdout" map to os.Stdout.
func Output(name string) io.Writer {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "stderr":
		return os.Stderr
	case "discard", "none", "off":
		return io.Discard
	default:
		return os.Stdout
	}
}

// ToastHandler renders each alert as a short titled block on w.
func ToastHandler(w io.Writer) events.EventHandler {
	var mu sync.Mutex
	return func(event *events.Event) error {
		var alert models.AlertEvent
		if err := event.Decode(&alert); err != nil {
			return fmt.Errorf("decode alert: %w", err)
		}

		mu.Lock()
		defer mu.Unlock()
		_, err := fmt.Fprintf(w, "[%s] %s\n%s\n", models.FormatTimestamp(alert.FiredAt), toastTitle, alert.Message)
		if err != nil {
			return fmt.Errorf("write toast: %w", err)
		}
		return nil
	}
}

// BellHandler rings the terminal bell on w.
func BellHandler(w io.Writer) events.EventHandler {
	return func(*events.Event) error {
		if _, err := io.WriteString(w, "\a"); err != nil {
			return fmt.Errorf("ring bell: %w", err)
		}
		return nil
	}
}

// RecentAlerts keeps the last N alerts in memory, newest first.
type RecentAlerts struct {
	mu    sync.RWMutex
	items []models.AlertEvent
	limit int
}

func NewRecentAlerts(limit int) *RecentAlerts {
	if limit <= 0 {
		limit = models.DefaultRecentAlerts
	}
	return &RecentAlerts{limit: limit}
}

// Add records an alert, evicting the oldest past the limit.
func (r *RecentAlerts) Add(alert models.AlertEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items = append([]models.AlertEvent{alert}, r.items...)
	if len(r.items) > r.limit {
		r.items = r.items[:r.limit]
	}
}

// List returns a copy of the recorded alerts, newest first.
func (r *RecentAlerts) List() []models.AlertEvent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]models.AlertEvent{}, r.items...)
}

// Handler subscribes the list to the event bus.
func (r *RecentAlerts) Handler() events.EventHandler {
	return func(event *events.Event) error {
		var alert models.AlertEvent
		if err := event.Decode(&alert); err != nil {
			return fmt.Errorf("decode alert: %w", err)
		}
		r.Add(alert)
		return nil
	}
}
