package coherence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"cashless/internal/cache"
	"cashless/internal/platform/metrics"
	dErrors "cashless/pkg/domain-errors"
)

// State is the lifecycle of a worker's cache.
type State int32

const (
	StateStarting State = iota
	StateSynced
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateSynced:
		return "synced"
	default:
		return "stopped"
	}
}

// ErrTransportClosed is the cause of the desync Run reports when the relay closes the
// worker's inbox. Messages may have been lost, so the cache is torn down.
var ErrTransportClosed = errors.New("coherence transport closed")

// Worker owns one cache and applies relayed messages to it one at a time.
type Worker struct {
	id        int
	cache     *cache.Cache
	transport Transport
	logger    *slog.Logger
	metrics   *metrics.Metrics

	state  atomic.Int32
	synced chan struct{}
}

type WorkerOption func(*Worker)

func WithLogger(logger *slog.Logger) WorkerOption {
	return func(w *Worker) {
		w.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) WorkerOption {
	return func(w *Worker) {
		w.metrics = m
	}
}

// NewWorker binds a cache to a transport.
func NewWorker(id int, c *cache.Cache, transport Transport, opts ...WorkerOption) *Worker {
	w := &Worker{
		id:        id,
		cache:     c,
		transport: transport,
		logger:    slog.Default(),
		synced:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With("worker", id)
	return w
}

// ID returns the worker slot number.
func (w *Worker) ID() int { return w.id }

// Cache returns the cache this worker keeps in sync.
func (w *Worker) Cache() *cache.Cache { return w.cache }

// State returns the current lifecycle state.
func (w *Worker) State() State { return State(w.state.Load()) }

// Synced is closed once the initial population succeeded.
func (w *Worker) Synced() <-chan struct{} { return w.synced }

// Run subscribes to the relay, populates the cache and then applies messages until ctx
// ends. A failed population or refresh, or a closed inbox, tears the cache down and
// returns an error coded CodeCacheDesync; the caller must not keep serving from this
// worker.
func (w *Worker) Run(ctx context.Context) error {
	w.state.Store(int32(StateStarting))
	defer w.state.Store(int32(StateStopped))

	inbox, err := w.transport.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe worker %d: %w", w.id, err)
	}

	if err := w.cache.Populate(ctx); err != nil {
		return w.desync(ctx, Message{Kind: KindPopulateData}, err)
	}
	w.state.Store(int32(StateSynced))
	close(w.synced)
	w.logger.InfoContext(ctx, "worker synced", "events", len(w.cache.EventIDs()))

	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-inbox:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return w.desync(ctx, Message{Kind: KindPopulateData}, ErrTransportClosed)
			}
			if err := w.Apply(ctx, m); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return w.desync(ctx, m, err)
			}
		}
	}
}

// Apply performs the cache effect of one message.
func (w *Worker) Apply(ctx context.Context, m Message) error {
	var err error
	switch m.Kind {
	case KindEventStart:
		err = w.cache.Start(ctx, m.Data)
	case KindEventEnd:
		w.cache.Evict(m.Data)
	case KindEventChange:
		err = w.cache.RefreshEvent(ctx, m.Data)
	case KindItemsChange:
		err = w.cache.RefreshItems(ctx, m.Data)
	case KindCurrenciesChange:
		err = w.cache.RefreshCurrencies(ctx, m.Data)
	case KindPopulateData:
		err = w.cache.Populate(ctx)
	default:
		w.logger.WarnContext(ctx, "ignoring unknown coherence message", "kind", m.Kind)
		return nil
	}
	if err != nil {
		return err
	}
	w.metrics.IncrementApplied(string(m.Kind))
	w.logger.DebugContext(ctx, "coherence message applied", "kind", m.Kind, "event_id", m.Data)
	return nil
}

func (w *Worker) desync(ctx context.Context, m Message, cause error) error {
	w.cache.Teardown()
	w.metrics.IncrementRefreshFailures()
	w.logger.ErrorContext(ctx, "cache refresh failed, worker stopping",
		"kind", m.Kind,
		"event_id", m.Data,
		"error", cause,
	)
	return dErrors.Wrap(cause, dErrors.CodeCacheDesync, fmt.Sprintf("worker %d cache desync on %s", w.id, m.Kind))
}
