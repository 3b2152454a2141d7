package outbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"cashless/internal/platform/metrics"
)

// Producer sends records to Kafka and returns once every record is acknowledged.
type Producer interface {
	ProduceSync(ctx context.Context, records ...*kgo.Record) kgo.ProduceResults
}

// Publisher drains the outbox into a Kafka topic.
type Publisher struct {
	store    Store
	producer Producer
	topic    string
	interval time.Duration
	batch    int
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type Option func(*Publisher)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

// WithPolling sets the idle poll interval and the maximum batch size.
func WithPolling(interval time.Duration, batch int) Option {
	return func(p *Publisher) {
		if interval > 0 {
			p.interval = interval
		}
		if batch > 0 {
			p.batch = batch
		}
	}
}

func NewPublisher(store Store, producer Producer, topic string, opts ...Option) (*Publisher, error) {
	if store == nil {
		return nil, errors.New("outbox store is required")
	}
	if producer == nil {
		return nil, errors.New("kafka producer is required")
	}
	if topic == "" {
		return nil, errors.New("outbox topic is required")
	}
	p := &Publisher{
		store:    store,
		producer: producer,
		topic:    topic,
		interval: time.Second,
		batch:    100,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Run publishes until ctx ends. A full batch is followed immediately by another poll;
// failures are logged and retried on the next tick.
func (p *Publisher) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		n, err := p.PublishBatch(ctx)
		if err != nil && ctx.Err() == nil {
			p.logger.ErrorContext(ctx, "outbox publish failed", "error", err)
		}
		if err == nil && n == p.batch {
			continue
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// PublishBatch sends one batch and returns how many entries were published.
func (p *Publisher) PublishBatch(ctx context.Context) (int, error) {
	n, err := p.store.Publish(ctx, p.batch, func(ctx context.Context, entries []Entry) error {
		records := make([]*kgo.Record, len(entries))
		for i, e := range entries {
			records[i] = &kgo.Record{
				Topic: p.topic,
				Key:   []byte(e.AggregateID),
				Value: e.Payload,
				Headers: []kgo.RecordHeader{
					{Key: "event_type", Value: []byte(e.EventType)},
					{Key: "company", Value: []byte(e.Company)},
					{Key: "outbox_id", Value: []byte(e.ID)},
				},
				Timestamp: e.CreatedAt,
			}
		}
		if err := p.producer.ProduceSync(ctx, records...).FirstErr(); err != nil {
			return fmt.Errorf("produce outbox batch: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if n > 0 {
		p.metrics.AddOutboxPublished(n)
		p.logger.DebugContext(ctx, "outbox batch published", "count", n, "topic", p.topic)
	}
	return n, nil
}

// NewKafkaClient connects a franz-go client to brokers.
func NewKafkaClient(brokers []string, opts ...kgo.Opt) (*kgo.Client, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	cl, err := kgo.NewClient(append([]kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerLinger(5 * time.Millisecond),
	}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return cl, nil
}

// EnsureTopic creates topic with broker defaults when it does not exist yet.
func EnsureTopic(ctx context.Context, cl *kgo.Client, topic string) error {
	adm := kadm.NewClient(cl)
	resp, err := adm.CreateTopic(ctx, -1, -1, nil, topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create topic %s: %w", topic, resp.Err)
	}
	return nil
}
