package notify

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"sewamonitor/internal/events"
	"sewamonitor/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

type blockingPublisher struct {
	release chan struct{}
	mu      sync.Mutex
	seen    []string
}

func (p *blockingPublisher) PublishJSON(eventType string, payload interface{}) error {
	<-p.release
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seen = append(p.seen, payload.(models.AlertEvent).ID)
	return nil
}

func sampleAlert(id string) models.AlertEvent {
	return models.AlertEvent{
		ID:       id,
		RentalID: "r-" + id,
		Client:   "Rina",
		Unit:     "a1",
		FiredAt:  time.Date(2025, 6, 2, 14, 45, 0, 0, time.Local),
		Message:  `Sewa atas nama "Rina" di unit "A1" akan berakhir dalam 15 menit.`,
	}
}

func TestDispatcherDeliversThroughBus(t *testing.T) {
	logger := zerolog.Nop()
	bus := events.NewEventBus()
	var toast bytes.Buffer
	recent := NewRecentAlerts(10)
	bus.Subscribe(events.EventRentalExpiring, ToastHandler(&toast))
	bus.Subscribe(events.EventRentalExpiring, recent.Handler())

	reg := prometheus.NewRegistry()
	d := NewDispatcher(bus, 4, reg, &logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Start(ctx)
		close(done)
	}()

	d.Notify(sampleAlert("1"))
	require.Eventually(t, func() bool { return len(recent.List()) == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	<-done

	assert.Contains(t, toast.String(), toastTitle)
	assert.Contains(t, toast.String(), `di unit "A1" akan berakhir dalam 15 menit.`)
	assert.Contains(t, toast.String(), "2025-06-02T14:45:00")
	assert.Equal(t, "r-1", recent.List()[0].RentalID)
	assert.Equal(t, float64(1), testutil.ToFloat64(d.delivered))
}

func TestDispatcherHandlerFailureIsCounted(t *testing.T) {
	logger := zerolog.Nop()
	bus := events.NewEventBus()
	recent := NewRecentAlerts(10)
	bus.Subscribe(events.EventRentalExpiring, BellHandler(failingWriter{}))
	bus.Subscribe(events.EventRentalExpiring, recent.Handler())

	d := NewDispatcher(bus, 4, prometheus.NewRegistry(), &logger)
	d.Notify(sampleAlert("1"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Start(ctx)

	assert.Equal(t, float64(1), testutil.ToFloat64(d.failures))
	assert.Equal(t, float64(0), testutil.ToFloat64(d.delivered))
	assert.Len(t, recent.List(), 1, "remaining handlers still run")
}

func TestDispatcherNotifyNeverBlocks(t *testing.T) {
	logger := zerolog.Nop()
	pub := &blockingPublisher{release: make(chan struct{})}
	d := NewDispatcher(pub, 1, prometheus.NewRegistry(), &logger)

	finished := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			d.Notify(sampleAlert(string(rune('a' + i))))
		}
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked on a full queue")
	}

	assert.Equal(t, 1, d.Pending())
	assert.Equal(t, float64(4), testutil.ToFloat64(d.dropped))

	close(pub.release)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Start(ctx)

	assert.Equal(t, []string{"a"}, pub.seen)
	assert.Equal(t, 0, d.Pending())
}

func TestBellHandler(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, BellHandler(&buf)(&events.Event{}))
	assert.Equal(t, "\a", buf.String())
}

func TestToastHandlerRejectsGarbage(t *testing.T) {
	var buf bytes.Buffer
	err := ToastHandler(&buf)(&events.Event{Payload: []byte("{")})
	assert.Error(t, err)
	assert.Empty(t, buf.String())
}

func TestRecentAlertsLimit(t *testing.T) {
	recent := NewRecentAlerts(2)
	recent.Add(sampleAlert("1"))
	recent.Add(sampleAlert("2"))
	recent.Add(sampleAlert("3"))

	list := recent.List()
	require.Len(t, list, 2)
	assert.Equal(t, "3", list[0].ID)
	assert.Equal(t, "2", list[1].ID)

	list[0].ID = "changed"
	assert.Equal(t, "3", recent.List()[0].ID)
}

func TestOutput(t *testing.T) {
	assert.NotNil(t, Output("stdout"))
	assert.NotNil(t, Output("stderr"))
	n, err := Output("discard").Write([]byte("x"))
	assert.NoError(t, err)
	assert.Equal(t, 1, n)
}
