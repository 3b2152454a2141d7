// Package outbox records committed ledger movements in the same database transaction
// as the movement itself, and publishes them to Kafka afterwards.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Entry is one ledger movement waiting to be published.
type Entry struct {
	ID          string
	Company     string
	AggregateID string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
}

// NewEntry marshals payload into an entry keyed by aggregateID.
func NewEntry(company, aggregateID, eventType string, payload any, now time.Time) (Entry, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Entry{}, fmt.Errorf("marshal outbox payload: %w", err)
	}
	return Entry{
		ID:          uuid.NewString(),
		Company:     company,
		AggregateID: aggregateID,
		EventType:   eventType,
		Payload:     b,
		CreatedAt:   now,
	}, nil
}

// Store persists and claims outbox entries.
type Store interface {
	Append(ctx context.Context, e Entry) error
	// Publish claims up to limit unpublished entries in creation order, passes them to
	// fn and marks them published if fn succeeds. It returns the number published.
	Publish(ctx context.Context, limit int, fn func(ctx context.Context, entries []Entry) error) (int, error)
}
