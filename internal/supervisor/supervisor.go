// Package supervisor runs the set of coherence workers that serve requests.
//
// A worker whose cache refresh failed returns an error coded CodeCacheDesync. The
// supervisor replaces that worker with a fresh one built by the factory, which
// repopulates before serving. Any other worker error stops the whole set.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"cashless/internal/cache"
	"cashless/internal/coherence"
	"cashless/internal/platform/metrics"
	dErrors "cashless/pkg/domain-errors"
)

// Factory builds the worker for a slot. It is called again on every restart.
type Factory func(slot int) (*coherence.Worker, error)

// Supervisor owns a fixed number of worker slots.
type Supervisor struct {
	slots   []atomic.Pointer[coherence.Worker]
	factory Factory
	next    atomic.Uint64

	minGap time.Duration
	maxGap time.Duration

	logger  *slog.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	started bool
}

type Option func(*Supervisor)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Supervisor) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Supervisor) {
		s.metrics = m
	}
}

// WithRestartBackoff bounds the delay between consecutive restarts of a slot. The
// delay grows while replacements keep failing to sync and drops back to minGap once
// one syncs.
func WithRestartBackoff(minGap, maxGap time.Duration) Option {
	return func(s *Supervisor) {
		s.minGap = minGap
		s.maxGap = maxGap
	}
}

// New creates a supervisor for n slots.
func New(n int, factory Factory, opts ...Option) (*Supervisor, error) {
	if n <= 0 {
		return nil, errors.New("supervisor needs at least one worker slot")
	}
	if factory == nil {
		return nil, errors.New("supervisor worker factory is required")
	}
	s := &Supervisor{
		slots:   make([]atomic.Pointer[coherence.Worker], n),
		factory: factory,
		minGap:  200 * time.Millisecond,
		maxGap:  10 * time.Second,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Run starts every slot and blocks until ctx ends or a slot fails with an error the
// supervisor does not restart. Cancellation is not an error.
func (s *Supervisor) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.New("supervisor already running")
	}
	s.started = true
	s.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for slot := range s.slots {
		slot := slot
		g.Go(func() error {
			return s.runSlot(gctx, slot)
		})
	}
	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func (s *Supervisor) runSlot(ctx context.Context, slot int) error {
	policy := s.newBackoff(ctx)
	for {
		w, err := s.factory(slot)
		if err != nil {
			return fmt.Errorf("build worker %d: %w", slot, err)
		}
		s.slots[slot].Store(w)

		err = w.Run(ctx)
		s.slots[slot].CompareAndSwap(w, nil)
		if ctx.Err() != nil {
			return nil
		}
		select {
		case <-w.Synced():
			// A worker that served before failing starts a new failure streak.
			policy.Reset()
		default:
		}
		if !dErrors.HasCode(err, dErrors.CodeCacheDesync) {
			if err == nil {
				err = fmt.Errorf("worker %d exited", slot)
			}
			return err
		}

		delay := policy.NextBackOff()
		if delay == backoff.Stop {
			return err
		}
		s.metrics.IncrementWorkerRestarts()
		s.logger.WarnContext(ctx, "restarting worker after cache desync",
			"worker", slot,
			"delay", delay,
			"error", err,
		)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
	}
}

func (s *Supervisor) newBackoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.minGap
	b.MaxInterval = s.maxGap
	b.MaxElapsedTime = 0
	return backoff.WithContext(b, ctx)
}

// Workers returns the workers currently occupying the slots.
func (s *Supervisor) Workers() []*coherence.Worker {
	out := make([]*coherence.Worker, 0, len(s.slots))
	for i := range s.slots {
		if w := s.slots[i].Load(); w != nil {
			out = append(out, w)
		}
	}
	return out
}

// Ready reports whether every slot holds a synced worker.
func (s *Supervisor) Ready() bool {
	for i := range s.slots {
		w := s.slots[i].Load()
		if w == nil || w.State() != coherence.StateSynced {
			return false
		}
	}
	return true
}

// pick returns the cache of a synced worker, rotating across slots.
func (s *Supervisor) pick() (*cache.Cache, bool) {
	n := uint64(len(s.slots))
	start := s.next.Add(1)
	for i := uint64(0); i < n; i++ {
		w := s.slots[(start+i)%n].Load()
		if w != nil && w.State() == coherence.StateSynced {
			return w.Cache(), true
		}
	}
	return nil, false
}

// Config reads an event's configuration from one synced worker. It reports absence
// when no worker is synced, so callers reject rather than serve from a stale cache.
func (s *Supervisor) Config(eventID string) (cache.EventConfig, bool) {
	c, ok := s.pick()
	if !ok {
		return cache.EventConfig{}, false
	}
	return c.Config(eventID)
}

// Has reports whether a synced worker mirrors the event.
func (s *Supervisor) Has(eventID string) bool {
	c, ok := s.pick()
	return ok && c.Has(eventID)
}
