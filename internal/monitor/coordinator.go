// Package monitor drives the rental lifecycle engine: it polls the snapshot
// source on a slow cadence, re-evaluates every known rental on a fast
// cadence, raises one expiry alert per booking instance and keeps the unit
// occupancy view current.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"sewamonitor/internal/config"
	"sewamonitor/internal/domain"
	"sewamonitor/internal/logging"
	"sewamonitor/internal/models"
	"sewamonitor/internal/rental"
	"sewamonitor/internal/units"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// ErrAlreadyRunning is returned by Start on a running coordinator.
var ErrAlreadyRunning = errors.New("monitor already running")

type fetchResult struct {
	snap *models.Snapshot
	err  error
}

// Option customizes a Coordinator.
type Option func(*Coordinator)

// WithClock replaces time.Now, mainly for tests.
func WithClock(clock domain.Clock) Option {
	return func(c *Coordinator) {
		if clock != nil {
			c.now = clock
		}
	}
}

// WithMetrics sets the Prometheus instruments.
func WithMetrics(m *Metrics) Option {
	return func(c *Coordinator) {
		if m != nil {
			c.metrics = m
		}
	}
}

// Coordinator owns the watcher population. The watcher map, the catalog and
// the fetch bookkeeping are touched only by the loop goroutine (or by the
// caller when the coordinator is not running); readers use View.
type Coordinator struct {
	source  domain.SnapshotSource
	sink    domain.NotificationSink
	cfg     config.MonitorConfig
	logger  *zerolog.Logger
	now     domain.Clock
	metrics *Metrics

	watchers  map[string]*rental.Watcher
	catalog   []string
	lastFetch time.Time
	lastErr   error

	results chan fetchResult
	view    atomic.Pointer[View]

	mu       sync.Mutex
	running  bool
	cancel   context.CancelFunc
	cron     *cron.Cron
	fetchJob cron.Job
	done     chan struct{}
}

// New builds a stopped coordinator.
func New(
	source domain.SnapshotSource,
	sink domain.NotificationSink,
	cfg config.MonitorConfig,
	logger *zerolog.Logger,
	opts ...Option,
) *Coordinator {
	cfg.ApplyDefaults()

	c := &Coordinator{
		source:   source,
		sink:     sink,
		cfg:      cfg,
		logger:   logging.Component(logger, "monitor"),
		now:      time.Now,
		watchers: make(map[string]*rental.Watcher),
		results:  make(chan fetchResult),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.metrics == nil {
		c.metrics = NewMetrics(prometheus.NewRegistry())
	}
	c.view.Store(&View{})
	return c
}

// Start performs an immediate fetch and schedules the slow and fast cadences.
// The coordinator runs until Stop is called or ctx is cancelled.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return ErrAlreadyRunning
	}
	if err := c.cfg.Validate(); err != nil {
		return fmt.Errorf("monitor config: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	cronLogger := logging.NewCronLogger(c.logger)

	c.fetchJob = cron.NewChain(cron.SkipIfStillRunning(cronLogger)).
		Then(cron.FuncJob(func() { c.fetch(runCtx) }))
	c.cron = cron.New(cron.WithLogger(cronLogger))
	c.cron.Schedule(cron.Every(c.cfg.SlowCadence), c.fetchJob)

	c.cancel = cancel
	c.done = make(chan struct{})
	c.running = true

	ticker := time.NewTicker(c.cfg.FastCadence)
	go c.loop(runCtx, ticker, c.done)

	c.cron.Start()
	go c.fetchJob.Run()

	c.logger.Info().
		Dur("slow_cadence", c.cfg.SlowCadence).
		Dur("fast_cadence", c.cfg.FastCadence).
		Dur("alert_threshold", c.cfg.AlertThreshold).
		Msg("monitor started")
	return nil
}

// Stop cancels the in-flight fetch and both cadences. When it returns no
// further tick or reconciliation runs. Safe to call more than once.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	cancel, scheduler, done := c.cancel, c.cron, c.done
	c.mu.Unlock()

	cancel()
	// A hung fetch is abandoned; its result is never delivered once the
	// context is cancelled, so there is no need to wait for it here.
	scheduler.Stop()
	<-done

	c.logger.Info().Msg("monitor stopped")
}

// RefreshNow triggers an out-of-band fetch. It shares the in-flight guard
// with the slow cadence and reports false when the coordinator is stopped.
func (c *Coordinator) RefreshNow() bool {
	c.mu.Lock()
	job, running := c.fetchJob, c.running
	c.mu.Unlock()

	if !running {
		return false
	}
	go job.Run()
	return true
}

// View returns the latest published state. The returned value must not be
// modified.
func (c *Coordinator) View() *View {
	return c.view.Load()
}

func (c *Coordinator) loop(ctx context.Context, ticker *time.Ticker, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.release(done)
			return
		case res := <-c.results:
			c.apply(res)
			c.tick(c.now())
		case <-ticker.C:
			c.tick(c.now())
		}
	}
}

// release marks the coordinator stopped when its context was cancelled
// without Stop. A later Start may run again.
func (c *Coordinator) release(done chan struct{}) {
	c.mu.Lock()
	if !c.running || c.done != done {
		c.mu.Unlock()
		return
	}
	c.running = false
	cancel, scheduler := c.cancel, c.cron
	c.mu.Unlock()

	cancel()
	scheduler.Stop()
	c.logger.Info().Msg("monitor stopped: context cancelled")
}

func (c *Coordinator) fetch(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	started := time.Now()
	snap, err := c.source.Fetch(ctx)
	c.metrics.FetchDuration.Observe(time.Since(started).Seconds())

	if ctx.Err() != nil {
		return
	}

	select {
	case c.results <- fetchResult{snap: snap, err: err}:
	case <-ctx.Done():
	}
}

// apply folds one fetch result into the watcher population. A cached
// snapshot served after a failed fetch is reconciled, but the fetch still
// counts as failed.
func (c *Coordinator) apply(res fetchResult) {
	err := res.err
	if err == nil && res.snap == nil {
		err = fmt.Errorf("%w: empty response", models.ErrMalformedSnapshot)
	}

	if err == nil {
		c.reconcile(res.snap)
		c.metrics.Fetches.WithLabelValues(fetchOK).Inc()
		return
	}

	if res.snap != nil && errors.Is(err, models.ErrServedFromCache) {
		c.reconcile(res.snap)
		c.lastErr = err
		c.metrics.Fetches.WithLabelValues(fetchLabel(err)).Inc()
		c.logger.Warn().
			Err(err).
			Time("cached_at", res.snap.FetchedAt).
			Int("watchers", len(c.watchers)).
			Msg("snapshot fetch failed, reconciled cached snapshot")
		return
	}

	c.lastErr = err
	c.metrics.Fetches.WithLabelValues(fetchLabel(err)).Inc()
	c.logger.Warn().Err(err).Int("watchers", len(c.watchers)).Msg("snapshot fetch failed, keeping previous state")
}

func fetchLabel(err error) string {
	if errors.Is(err, models.ErrMalformedSnapshot) {
		return fetchMalformed
	}
	return fetchError
}

func (c *Coordinator) reconcile(snap *models.Snapshot) {
	seen := make(map[string]struct{}, len(c.watchers))
	var added, rebooked int

	for _, r := range snap.All() {
		if r.ID == "" {
			continue
		}
		seen[r.ID] = struct{}{}

		if w, ok := c.watchers[r.ID]; ok {
			if w.Refresh(r) {
				continue
			}
			rebooked++
			c.metrics.Rebooked.Inc()
			c.logger.Info().
				Str("rental_id", r.ID).
				Time("start", r.Start).
				Time("end", r.End).
				Msg("rental window changed, watcher re-armed")
		} else {
			added++
		}
		c.watchers[r.ID] = rental.NewWatcher(r, c.cfg.AlertThreshold)
	}

	var removed int
	for id := range c.watchers {
		if _, ok := seen[id]; !ok {
			delete(c.watchers, id)
			removed++
		}
	}

	c.catalog = append([]string(nil), snap.AvailableUnits...)
	c.lastFetch = snap.FetchedAt
	if c.lastFetch.IsZero() {
		c.lastFetch = c.now()
	}
	c.lastErr = nil

	c.metrics.Watchers.Set(float64(len(c.watchers)))
	c.metrics.LastFetch.Set(float64(c.lastFetch.Unix()))

	c.logger.Debug().
		Int("watchers", len(c.watchers)).
		Int("added", added).
		Int("rebooked", rebooked).
		Int("removed", removed).
		Int("catalog_units", len(c.catalog)).
		Msg("snapshot reconciled")
}

// tick evaluates every watcher at now, raises alerts for the ones that just
// crossed the threshold and publishes a fresh view.
func (c *Coordinator) tick(now time.Time) {
	statuses := make([]RentalStatus, 0, len(c.watchers))
	active := make([]models.Rental, 0, len(c.watchers))

	for _, w := range c.watchers {
		res, fired := w.Evaluate(now)
		if fired {
			c.raise(w.Rental(), res, now)
		}
		if res.State == rental.Active {
			active = append(active, w.Rental())
		}
		statuses = append(statuses, RentalStatus{Rental: w.Rental(), Countdown: res, Alerted: w.Fired()})
	}

	sort.Slice(statuses, func(i, j int) bool {
		return lessRental(statuses[i].Rental, statuses[j].Rental)
	})
	sort.Slice(active, func(i, j int) bool {
		return lessRental(active[i], active[j])
	})

	occupancy := units.Reconcile(c.catalog, active)
	total, occupied := units.Counts(occupancy)
	c.metrics.UnitsTotal.Set(float64(total))
	c.metrics.UnitsOccupied.Set(float64(occupied))

	view := &View{
		GeneratedAt: now,
		LastFetchAt: c.lastFetch,
		Rentals:     statuses,
		Units:       occupancy,
	}
	if c.lastErr != nil {
		view.LastError = c.lastErr.Error()
	}
	c.view.Store(view)
}

func (c *Coordinator) raise(r models.Rental, res rental.Result, now time.Time) {
	event := models.AlertEvent{
		ID:               uuid.NewString(),
		RentalID:         r.ID,
		Client:           r.Client,
		Unit:             r.Unit,
		Start:            r.Start,
		End:              r.End,
		RemainingSeconds: res.RemainingSeconds,
		FiredAt:          now,
		Message:          rental.AlertMessage(r.Client, r.Unit, c.cfg.AlertThreshold),
	}

	c.metrics.Alerts.Inc()
	c.logger.Info().
		Str("rental_id", r.ID).
		Str("client", r.Client).
		Str("unit", r.Unit).
		Int64("remaining_seconds", res.RemainingSeconds).
		Msg("rental expiring soon")

	if c.sink != nil {
		c.sink.Notify(event)
	}
}

func lessRental(a, b models.Rental) bool {
	if !a.Start.Equal(b.Start) {
		return a.Start.Before(b.Start)
	}
	return a.ID < b.ID
}
