// Package coherence keeps the configuration caches of sibling workers consistent.
//
// A worker that commits a configuration change publishes a Message to the relay; the
// relay fans it out to every worker, the author included, and each worker refreshes
// the affected cache entry from the store. Messages are idempotent and replace whole
// entries, so duplicate or reordered delivery across different events is harmless.
package coherence

import (
	"context"
	"encoding/json"
	"fmt"

	dErrors "cashless/pkg/domain-errors"
)

// Kind names what a coherence message invalidates.
type Kind string

const (
	KindEventStart       Kind = "EVENT_START"
	KindEventEnd         Kind = "EVENT_END"
	KindEventChange      Kind = "EVENT_CHANGE"
	KindItemsChange      Kind = "ITEMS_CHANGE"
	KindCurrenciesChange Kind = "CURRENCIES_CHANGE"
	KindPopulateData     Kind = "POPULATE_DATA"
)

// IsValid reports whether k is one of the six known kinds.
func (k Kind) IsValid() bool {
	switch k {
	case KindEventStart, KindEventEnd, KindEventChange, KindItemsChange, KindCurrenciesChange, KindPopulateData:
		return true
	}
	return false
}

// Message is the wire form exchanged between workers and the relay. Data carries the
// event id and is empty for POPULATE_DATA.
type Message struct {
	Kind Kind   `json:"request"`
	Data string `json:"data,omitempty"`
}

// Validate checks the kind and the presence of an event id where one is required.
func (m Message) Validate() error {
	if !m.Kind.IsValid() {
		return dErrors.Newf(dErrors.CodeValidation, "unknown coherence message kind %q", m.Kind)
	}
	if m.Kind != KindPopulateData && m.Data == "" {
		return dErrors.Newf(dErrors.CodeValidation, "coherence message %s requires an event id", m.Kind)
	}
	return nil
}

// Encode serializes a validated message.
func Encode(m Message) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode coherence message: %w", err)
	}
	return b, nil
}

// Decode parses and validates a message.
func Decode(b []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(b, &m); err != nil {
		return Message{}, dErrors.Wrap(err, dErrors.CodeValidation, "decode coherence message")
	}
	if err := m.Validate(); err != nil {
		return Message{}, err
	}
	return m, nil
}

// Transport connects a worker to the relay.
//
// Subscribe must return only after the subscription is positioned, so that a worker
// which subscribes before populating its cache cannot miss a message published in
// between. The channel is closed when ctx ends or the transport fails.
type Transport interface {
	Publish(ctx context.Context, m Message) error
	Subscribe(ctx context.Context) (<-chan Message, error)
}
