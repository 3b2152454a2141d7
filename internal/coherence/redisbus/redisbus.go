// Package redisbus relays coherence messages between worker processes over Redis
// Streams.
//
// Workers append to a relay stream. One relay, running in the coordinating process,
// consumes the relay stream through a consumer group and re-appends each entry to a
// broadcast stream that every worker reads. Entries are acknowledged only after they
// have been rebroadcast, so a relay that crashes mid-batch redelivers on restart.
package redisbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"cashless/internal/coherence"
)

const (
	payloadField = "payload"
	relayGroup   = "relay"
	readBlock    = time.Second
	readCount    = 100
)

// Bus is a coherence.Transport backed by Redis Streams.
type Bus struct {
	client    redis.UniversalClient
	relay     string
	broadcast string
	maxLen    int64
	logger    *slog.Logger
}

type Option func(*Bus)

func WithLogger(logger *slog.Logger) Option {
	return func(b *Bus) {
		b.logger = logger
	}
}

// WithMaxLen caps the broadcast stream length (approximate trimming).
func WithMaxLen(n int64) Option {
	return func(b *Bus) {
		b.maxLen = n
	}
}

// New creates a bus whose streams are named after prefix.
func New(client redis.UniversalClient, prefix string, opts ...Option) *Bus {
	b := &Bus{
		client:    client,
		relay:     prefix + ":relay",
		broadcast: prefix + ":broadcast",
		maxLen:    10000,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish appends m to the relay stream.
func (b *Bus) Publish(ctx context.Context, m coherence.Message) error {
	payload, err := coherence.Encode(m)
	if err != nil {
		return err
	}
	err = b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: b.relay,
		Values: map[string]any{payloadField: payload},
	}).Err()
	if err != nil {
		return fmt.Errorf("append relay stream: %w", err)
	}
	return nil
}

// Subscribe positions a reader at the current end of the broadcast stream and streams
// every later entry.
func (b *Bus) Subscribe(ctx context.Context) (<-chan coherence.Message, error) {
	last, err := b.client.XRevRangeN(ctx, b.broadcast, "+", "-", 1).Result()
	if err != nil {
		return nil, fmt.Errorf("read broadcast tail: %w", err)
	}
	from := "0-0"
	if len(last) > 0 {
		from = last[0].ID
	}

	out := make(chan coherence.Message, readCount)
	go b.read(ctx, from, out)
	return out, nil
}

func (b *Bus) read(ctx context.Context, from string, out chan<- coherence.Message) {
	defer close(out)
	for {
		streams, err := b.client.XRead(ctx, &redis.XReadArgs{
			Streams: []string{b.broadcast, from},
			Count:   readCount,
			Block:   readBlock,
		}).Result()
		if ctx.Err() != nil {
			return
		}
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			b.logger.ErrorContext(ctx, "broadcast read failed", "error", err)
			return
		}
		for _, stream := range streams {
			for _, entry := range stream.Messages {
				from = entry.ID
				m, ok := b.decode(ctx, entry)
				if !ok {
					continue
				}
				select {
				case out <- m:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

func (b *Bus) decode(ctx context.Context, entry redis.XMessage) (coherence.Message, bool) {
	raw, _ := entry.Values[payloadField].(string)
	m, err := coherence.Decode([]byte(raw))
	if err != nil {
		b.logger.WarnContext(ctx, "dropping malformed coherence entry", "id", entry.ID, "error", err)
		return coherence.Message{}, false
	}
	return m, true
}

// RunRelay consumes the relay stream and rebroadcasts every entry until ctx ends.
// consumer names this relay within the consumer group.
func (b *Bus) RunRelay(ctx context.Context, consumer string) error {
	err := b.client.XGroupCreateMkStream(ctx, b.relay, relayGroup, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create relay group: %w", err)
	}

	// Pending entries from a previous run are drained before new ones.
	cursor := "0"
	for {
		streams, err := b.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    relayGroup,
			Consumer: consumer,
			Streams:  []string{b.relay, cursor},
			Count:    readCount,
			Block:    readBlock,
		}).Result()
		if ctx.Err() != nil {
			return nil
		}
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return fmt.Errorf("read relay stream: %w", err)
		}

		delivered := 0
		for _, stream := range streams {
			for _, entry := range stream.Messages {
				delivered++
				if err := b.forward(ctx, entry); err != nil {
					return err
				}
			}
		}
		if cursor == "0" && delivered == 0 {
			cursor = ">"
		}
	}
}

func (b *Bus) forward(ctx context.Context, entry redis.XMessage) error {
	if m, ok := b.decode(ctx, entry); ok {
		err := b.client.XAdd(ctx, &redis.XAddArgs{
			Stream: b.broadcast,
			MaxLen: b.maxLen,
			Approx: true,
			Values: map[string]any{payloadField: entry.Values[payloadField]},
		}).Err()
		if err != nil {
			return fmt.Errorf("append broadcast stream: %w", err)
		}
		b.logger.DebugContext(ctx, "coherence message rebroadcast", "kind", m.Kind, "event_id", m.Data)
	}
	if err := b.client.XAck(ctx, b.relay, relayGroup, entry.ID).Err(); err != nil {
		return fmt.Errorf("ack relay entry: %w", err)
	}
	return nil
}
