package coherence

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// ErrHubClosed is returned by Publish and Subscribe once the hub stopped relaying.
var ErrHubClosed = errors.New("coherence hub closed")

const (
	defaultQueueSize = 128
	defaultInboxSize = 256
)

type subscriber struct {
	ch   chan Message
	done <-chan struct{}
}

// Hub is the in-process relay: every published message is delivered to every current
// subscriber, the publisher's own subscription included, in publish order.
type Hub struct {
	mu     sync.Mutex
	subs   map[int64]*subscriber
	nextID int64
	closed bool

	queue  chan Message
	stop   chan struct{}
	logger *slog.Logger
}

type HubOption func(*Hub)

func WithHubLogger(logger *slog.Logger) HubOption {
	return func(h *Hub) {
		h.logger = logger
	}
}

// NewHub creates a hub. Run must be called for messages to be relayed.
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		subs:   make(map[int64]*subscriber),
		queue:  make(chan Message, defaultQueueSize),
		stop:   make(chan struct{}),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Publish queues m for relaying.
func (h *Hub) Publish(ctx context.Context, m Message) error {
	if err := m.Validate(); err != nil {
		return err
	}
	select {
	case <-h.stop:
		return ErrHubClosed
	default:
	}
	select {
	case h.queue <- m:
		return nil
	case <-h.stop:
		return ErrHubClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe registers a new inbox. It is removed and closed when ctx ends.
func (h *Hub) Subscribe(ctx context.Context) (<-chan Message, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrHubClosed
	}
	h.nextID++
	id := h.nextID
	sub := &subscriber{ch: make(chan Message, defaultInboxSize), done: ctx.Done()}
	h.subs[id] = sub

	go func() {
		select {
		case <-ctx.Done():
		case <-h.stop:
		}
		h.remove(id)
	}()
	return sub.ch, nil
}

// Subscribers returns the number of live inboxes.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Run relays queued messages until ctx ends, then closes every inbox.
func (h *Hub) Run(ctx context.Context) error {
	defer h.shutdown()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m := <-h.queue:
			h.fanOut(ctx, m)
		}
	}
}

// fanOut holds the lock while delivering so that no inbox is closed mid-send.
// A slow inbox holds up the relay; a departed one is skipped.
func (h *Hub) fanOut(ctx context.Context, m Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sub := range h.subs {
		select {
		case sub.ch <- m:
		case <-sub.done:
		case <-ctx.Done():
			return
		}
	}
	h.logger.DebugContext(ctx, "coherence message relayed", "kind", m.Kind, "event_id", m.Data, "subscribers", len(h.subs))
}

func (h *Hub) remove(id int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sub, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(sub.ch)
	}
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	close(h.stop)
	h.mu.Unlock()
}
