package eventsync

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/singleflight"

	"github.com/roach88/myuni/internal/event"
	"github.com/roach88/myuni/internal/store"
)

// Source provides full snapshots of the remote event collection.
// Implemented by *remote.DocumentClient.
type Source interface {
	FetchAll(ctx context.Context) ([]event.Document, error)
}

// Store is the local event cache. Implemented by *store.Store.
type Store interface {
	ReplaceEventsAtomic(ctx context.Context, events []event.Event, run store.SyncRun) ([]event.Event, error)
	Watch(ctx context.Context) <-chan []event.Event
}

// Result describes a completed sync cycle.
type Result struct {
	RunID       string
	Count       int
	Fingerprint string
	StartedAt   time.Time
	FinishedAt  time.Time
	// Shared is true if the cycle served more than one caller.
	Shared bool
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = l
	}
}

// WithRunIDGenerator sets the run id generator. Default: UUIDv7Generator.
func WithRunIDGenerator(g RunIDGenerator) Option {
	return func(c *Coordinator) {
		c.runIDs = g
	}
}

// WithClock overrides the wall clock used for run timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		c.now = now
	}
}

// Coordinator orchestrates fetch → map → replace cycles.
//
// Thread-safety: all methods are safe for concurrent use.
type Coordinator struct {
	source Source
	store  Store
	logger *slog.Logger
	runIDs RunIDGenerator
	now    func() time.Time

	flight singleflight.Group

	startOnce sync.Once
	started   chan struct{}

	mu        sync.Mutex
	scheduler *cron.Cron
}

// New creates a Coordinator. No cycle runs until Start, Sync or Refresh is
// called.
func New(source Source, st Store, opts ...Option) *Coordinator {
	c := &Coordinator{
		source:  source,
		store:   st,
		logger:  slog.Default(),
		runIDs:  UUIDv7Generator{},
		now:     time.Now,
		started: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start triggers the initial refresh in the background, exactly once per
// Coordinator. The returned channel is closed when that refresh finishes,
// successfully or not. Later calls return the same channel without starting
// another cycle.
func (c *Coordinator) Start(ctx context.Context) <-chan struct{} {
	c.startOnce.Do(func() {
		go func() {
			defer close(c.started)
			c.Refresh(ctx)
		}()
	})
	return c.started
}

// Refresh runs one sync cycle and swallows any failure. The failure is
// logged; the local cache and Events stream are left as they were.
func (c *Coordinator) Refresh(ctx context.Context) {
	if _, err := c.Sync(ctx); err != nil {
		c.logger.Warn("event sync failed", "error", err)
	}
}

// Sync runs one sync cycle, or joins the cycle already in flight, and
// returns its result.
//
// A joined cycle runs under the context of the caller that started it.
func (c *Coordinator) Sync(ctx context.Context) (Result, error) {
	v, err, shared := c.flight.Do("sync", func() (any, error) {
		return c.runCycle(ctx)
	})
	if err != nil {
		return Result{}, err
	}
	res := v.(Result)
	res.Shared = shared
	return res, nil
}

// Events returns a stream of the whole local event list. The current
// contents are delivered immediately and again after every change.
func (c *Coordinator) Events(ctx context.Context) <-chan []event.Event {
	return c.store.Watch(ctx)
}

func (c *Coordinator) runCycle(ctx context.Context) (Result, error) {
	started := c.now()
	runID := c.runIDs.Generate()
	log := c.logger.With("run_id", runID)

	log.Debug("event sync starting")

	docs, err := c.source.FetchAll(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("fetch remote events: %w", err)
	}

	events := event.FromDocuments(docs)
	run := store.SyncRun{
		ID:          runID,
		Count:       len(events),
		Fingerprint: event.Fingerprint(events),
		StartedAt:   started,
		FinishedAt:  c.now(),
	}

	if _, err := c.store.ReplaceEventsAtomic(ctx, events, run); err != nil {
		return Result{}, fmt.Errorf("replace local events: %w", err)
	}

	log.Info("event sync complete",
		"count", run.Count,
		"fingerprint", run.Fingerprint[:12],
		"duration", run.FinishedAt.Sub(run.StartedAt),
	)

	return Result{
		RunID:       run.ID,
		Count:       run.Count,
		Fingerprint: run.Fingerprint,
		StartedAt:   run.StartedAt,
		FinishedAt:  run.FinishedAt,
	}, nil
}
