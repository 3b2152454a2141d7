package coherence

import (
	"context"
	"fmt"
	"log/slog"

	"cashless/internal/platform/metrics"
)

// Tracker reports whether an event is mirrored by the local cache.
type Tracker interface {
	Has(eventID string) bool
}

// Emitter publishes coherence messages on behalf of mutation handlers.
//
// Status transitions are always published. The *_CHANGE kinds are only published when
// the local cache mirrors the event; inactive events are never cached, so refreshing
// them on every peer would be wasted work.
type Emitter struct {
	publisher Transport
	tracker   Tracker
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

type EmitterOption func(*Emitter)

func WithEmitterLogger(logger *slog.Logger) EmitterOption {
	return func(e *Emitter) {
		e.logger = logger
	}
}

func WithEmitterMetrics(m *metrics.Metrics) EmitterOption {
	return func(e *Emitter) {
		e.metrics = m
	}
}

func NewEmitter(publisher Transport, tracker Tracker, opts ...EmitterOption) *Emitter {
	e := &Emitter{
		publisher: publisher,
		tracker:   tracker,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Emitter) EventStarted(ctx context.Context, eventID string) error {
	return e.publish(ctx, Message{Kind: KindEventStart, Data: eventID})
}

func (e *Emitter) EventEnded(ctx context.Context, eventID string) error {
	return e.publish(ctx, Message{Kind: KindEventEnd, Data: eventID})
}

func (e *Emitter) EventChanged(ctx context.Context, eventID string) error {
	return e.publishIfTracked(ctx, KindEventChange, eventID)
}

func (e *Emitter) ItemsChanged(ctx context.Context, eventID string) error {
	return e.publishIfTracked(ctx, KindItemsChange, eventID)
}

func (e *Emitter) CurrenciesChanged(ctx context.Context, eventID string) error {
	return e.publishIfTracked(ctx, KindCurrenciesChange, eventID)
}

// Repopulate asks every worker to reload its whole cache.
func (e *Emitter) Repopulate(ctx context.Context) error {
	return e.publish(ctx, Message{Kind: KindPopulateData})
}

func (e *Emitter) publishIfTracked(ctx context.Context, kind Kind, eventID string) error {
	if !e.tracker.Has(eventID) {
		e.logger.DebugContext(ctx, "skipping coherence message for uncached event", "kind", kind, "event_id", eventID)
		return nil
	}
	return e.publish(ctx, Message{Kind: kind, Data: eventID})
}

func (e *Emitter) publish(ctx context.Context, m Message) error {
	if err := e.publisher.Publish(ctx, m); err != nil {
		return fmt.Errorf("publish %s: %w", m.Kind, err)
	}
	e.metrics.IncrementPublished(string(m.Kind))
	return nil
}
