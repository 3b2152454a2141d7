// Package models holds the per-event configuration records mirrored by the cache:
// events with their monetary policy, item price tables and currency rate tables.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventStatus is the lifecycle state of an event.
type EventStatus string

const (
	EventStatusInactive EventStatus = "inactive"
	EventStatusActive   EventStatus = "active"
)

// IsValid reports whether s is a known status.
func (s EventStatus) IsValid() bool {
	return s == EventStatusActive || s == EventStatusInactive
}

// Event is an event with its monetary policy, in the event default currency. Nil
// prices are unset in the store.
type Event struct {
	EventID           string
	Company           string
	Name              string
	Description       string
	Status            EventStatus
	StartDate         *time.Time
	CardPrice         *decimal.Decimal
	TagPrice          *decimal.Decimal
	TicketPrice       *decimal.Decimal
	ActivationMinimum *decimal.Decimal
	TicketingEventID  *string
}

// IsActive reports whether the event is running.
func (e *Event) IsActive() bool { return e != nil && e.Status == EventStatusActive }

// Item is the price configuration of one sellable item within an event.
type Item struct {
	EventID        string
	Company        string
	Name           string
	Price          decimal.Decimal
	StaffPrice     decimal.Decimal
	Tax            float64
	Category       string
	BonusAvailable bool
}

// Currency is a conversion rate from Code into the event's default currency.
type Currency struct {
	CurrencyID  string
	EventID     string
	Company     string
	Code        string
	Rate        float64
	MarketRate  float64
	IsDefault   bool
	QuickPrices []float64
}

// ItemTable maps item name to its configuration. Tables are replaced wholesale and
// must not be mutated after being handed to the cache.
type ItemTable map[string]Item

// CurrencyTable maps currency code to its rate record.
type CurrencyTable map[string]Currency

// Default returns the default currency of the table.
func (t CurrencyTable) Default() (Currency, bool) {
	for _, c := range t {
		if c.IsDefault {
			return c, true
		}
	}
	return Currency{}, false
}

// ItemsByName groups items into a table keyed by name.
func ItemsByName(items []Item) ItemTable {
	table := make(ItemTable, len(items))
	for _, it := range items {
		table[it.Name] = it
	}
	return table
}

// CurrenciesByCode groups currencies into a table keyed by code.
func CurrenciesByCode(currencies []Currency) CurrencyTable {
	table := make(CurrencyTable, len(currencies))
	for _, c := range currencies {
		table[c.Code] = c
	}
	return table
}

// EventPatch carries optional event field updates; nil fields are left untouched.
type EventPatch struct {
	Name              *string
	Description       *string
	StartDate         *time.Time
	Status            *EventStatus
	CardPrice         *decimal.Decimal
	TagPrice          *decimal.Decimal
	TicketPrice       *decimal.Decimal
	ActivationMinimum *decimal.Decimal
}

// IsEmpty reports whether the patch updates nothing.
func (p EventPatch) IsEmpty() bool {
	return p.Name == nil && p.Description == nil && p.StartDate == nil && p.Status == nil &&
		p.CardPrice == nil && p.TagPrice == nil && p.TicketPrice == nil && p.ActivationMinimum == nil
}

// ConfigChanged reports whether any non-status field is updated.
func (p EventPatch) ConfigChanged() bool {
	return p.Name != nil || p.Description != nil || p.StartDate != nil ||
		p.CardPrice != nil || p.TagPrice != nil || p.TicketPrice != nil || p.ActivationMinimum != nil
}

// ItemPatch carries optional item updates; a non-nil Name renames the item.
type ItemPatch struct {
	Name           *string
	Price          *decimal.Decimal
	StaffPrice     *decimal.Decimal
	Tax            *float64
	Category       *string
	BonusAvailable *bool
}

// IsEmpty reports whether the patch updates nothing.
func (p ItemPatch) IsEmpty() bool {
	return p.Name == nil && p.Price == nil && p.StaffPrice == nil && p.Tax == nil &&
		p.Category == nil && p.BonusAvailable == nil
}
