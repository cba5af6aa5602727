// Package notify delivers expiry alerts off the monitor's tick path.
package notify

import (
	"context"
	"sync"

	"sewamonitor/internal/domain"
	"sewamonitor/internal/events"
	"sewamonitor/internal/logging"
	"sewamonitor/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Dispatcher is a NotificationSink backed by a bounded queue. Notify never
// blocks; a single worker publishes queued alerts to the event bus.
type Dispatcher struct {
	publisher domain.EventPublisher
	queue     chan models.AlertEvent
	logger    *zerolog.Logger

	delivered prometheus.Counter
	failures  prometheus.Counter
	dropped   prometheus.Counter

	startOnce sync.Once
}

// NewDispatcher builds a dispatcher publishing to publisher. A non-positive
// queueSize falls back to models.DefaultNotifyQueueSize.
func NewDispatcher(publisher domain.EventPublisher, queueSize int, reg prometheus.Registerer, logger *zerolog.Logger) *Dispatcher {
	if queueSize <= 0 {
		queueSize = models.DefaultNotifyQueueSize
	}
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Dispatcher{
		publisher: publisher,
		queue:     make(chan models.AlertEvent, queueSize),
		logger:    logging.Component(logger, "notify"),
		delivered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "sewamonitor",
			Name:      "notify_delivered_total",
			Help:      "Alerts handed to every notification handler.",
		}),
		failures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "sewamonitor",
			Name:      "notify_failures_total",
			Help:      "Alerts for which at least one notification handler failed.",
		}),
		dropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "sewamonitor",
			Name:      "notify_dropped_total",
			Help:      "Alerts dropped because the notification queue was full.",
		}),
	}
}

// Notify enqueues event. When the queue is full the alert is dropped and
// logged; the rental stays marked as alerted either way.
func (d *Dispatcher) Notify(event models.AlertEvent) {
	select {
	case d.queue <- event:
	default:
		d.dropped.Inc()
		d.logger.Warn().
			Str("alert_id", event.ID).
			Str("rental_id", event.RentalID).
			Int("queue_size", cap(d.queue)).
			Msg("notification queue full, alert dropped")
	}
}

// Start delivers queued alerts until ctx is done, then flushes what is
// already queued. It blocks; run it in its own goroutine. Only the first
// call does anything.
func (d *Dispatcher) Start(ctx context.Context) {
	d.startOnce.Do(func() {
		d.logger.Info().Msg("notify dispatcher started")
		defer d.logger.Info().Msg("notify dispatcher stopped")

		for {
			select {
			case <-ctx.Done():
				d.flush()
				return
			case event := <-d.queue:
				d.deliver(event)
			}
		}
	})
}

// Pending returns the number of queued alerts.
func (d *Dispatcher) Pending() int {
	return len(d.queue)
}

func (d *Dispatcher) flush() {
	for {
		select {
		case event := <-d.queue:
			d.deliver(event)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(event models.AlertEvent) {
	if d.publisher == nil {
		return
	}

	if err := d.publisher.PublishJSON(events.EventRentalExpiring, event); err != nil {
		d.failures.Inc()
		d.logger.Error().
			Err(err).
			Str("alert_id", event.ID).
			Str("rental_id", event.RentalID).
			Msg("deliver alert")
		return
	}
	d.delivered.Inc()
}
