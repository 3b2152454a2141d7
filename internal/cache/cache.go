// Package cache keeps a process-local mirror of every active event's configuration:
// the event record, its item price table and its currency rate table.
//
// Reads never perform I/O. Entries are only written by Populate and the refresh
// operations, which coherence workers invoke in response to relay messages. Every
// write replaces a whole entry; nothing is merged incrementally.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"cashless/internal/catalog/models"
	"cashless/internal/platform/metrics"
	"cashless/pkg/platform/sentinel"
)

const (
	configPrefix     = "/config/"
	currenciesPrefix = "/currencies/"
)

func itemsKey(eventID string) string      { return eventID }
func configKey(eventID string) string     { return configPrefix + eventID }
func currenciesKey(eventID string) string { return currenciesPrefix + eventID }

// Snapshot is the full configuration of every active event.
type Snapshot struct {
	Events     []models.Event
	Items      map[string]models.ItemTable
	Currencies map[string]models.CurrencyTable
}

// Loader reads configuration from the system of record.
// LoadEvent returns sentinel.ErrNotFound when the event no longer exists.
type Loader interface {
	LoadActive(ctx context.Context) (*Snapshot, error)
	LoadEvent(ctx context.Context, eventID string) (*models.Event, error)
	LoadItems(ctx context.Context, eventID string) (models.ItemTable, error)
	LoadCurrencies(ctx context.Context, eventID string) (models.CurrencyTable, error)
}

// Cache is safe for concurrent use. Readers observe either the previous or the new
// value of a key, never a partially built one.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]any
	ready   bool

	loader  Loader
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Cache)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Cache) {
		c.metrics = m
	}
}

// New constructs an empty cache. Call Populate before serving reads.
func New(loader Loader, opts ...Option) (*Cache, error) {
	if loader == nil {
		return nil, errors.New("cache loader is required")
	}
	c := &Cache{
		entries: make(map[string]any),
		loader:  loader,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Has reports whether the event is mirrored, which is the case iff it is running.
func (c *Cache) Has(eventID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.entries[configKey(eventID)]
	return ok
}

// Event returns the cached event record.
func (c *Cache) Event(eventID string) (*models.Event, bool) {
	v, ok := c.get(configKey(eventID))
	if !ok {
		return nil, false
	}
	ev, ok := v.(*models.Event)
	return ev, ok
}

// Items returns the cached item table. The table must not be modified.
func (c *Cache) Items(eventID string) (models.ItemTable, bool) {
	v, ok := c.get(itemsKey(eventID))
	if !ok {
		return nil, false
	}
	items, ok := v.(models.ItemTable)
	return items, ok
}

// Currencies returns the cached currency table. The table must not be modified.
func (c *Cache) Currencies(eventID string) (models.CurrencyTable, bool) {
	v, ok := c.get(currenciesKey(eventID))
	if !ok {
		return nil, false
	}
	currencies, ok := v.(models.CurrencyTable)
	return currencies, ok
}

// EventConfig is one event's three entries read together.
type EventConfig struct {
	Event      *models.Event
	Items      models.ItemTable
	Currencies models.CurrencyTable
}

// Config reads all entries of an event under one lock so that a caller never combines
// an event record with tables from a different refresh generation.
func (c *Cache) Config(eventID string) (EventConfig, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ev, ok := c.entries[configKey(eventID)].(*models.Event)
	if !ok {
		return EventConfig{}, false
	}
	cfg := EventConfig{Event: ev}
	cfg.Items, _ = c.entries[itemsKey(eventID)].(models.ItemTable)
	cfg.Currencies, _ = c.entries[currenciesKey(eventID)].(models.CurrencyTable)
	return cfg, true
}

// SetEvent replaces the event entry.
func (c *Cache) SetEvent(eventID string, ev *models.Event) {
	c.set(configKey(eventID), ev)
}

// SetItems replaces the item table entry.
func (c *Cache) SetItems(eventID string, items models.ItemTable) {
	c.set(itemsKey(eventID), items)
}

// SetCurrencies replaces the currency table entry.
func (c *Cache) SetCurrencies(eventID string, currencies models.CurrencyTable) {
	c.set(currenciesKey(eventID), currencies)
}

// Evict removes all three entries of an event.
func (c *Cache) Evict(eventID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, itemsKey(eventID))
	delete(c.entries, configKey(eventID))
	delete(c.entries, currenciesKey(eventID))
}

// EventIDs lists the mirrored events.
func (c *Cache) EventIDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var ids []string
	for key := range c.entries {
		if id, ok := strings.CutPrefix(key, configPrefix); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// Ready reports whether the cache has been populated since construction or teardown.
func (c *Cache) Ready() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ready
}

// Teardown drops every entry and marks the cache as not ready.
func (c *Cache) Teardown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]any)
	c.ready = false
}

// Populate clears the cache and reloads every active event in one pass. On error the
// cache is left untouched.
func (c *Cache) Populate(ctx context.Context) error {
	snap, err := c.loader.LoadActive(ctx)
	if err != nil {
		return fmt.Errorf("load active events: %w", err)
	}

	entries := make(map[string]any, 3*len(snap.Events))
	for i := range snap.Events {
		ev := snap.Events[i]
		entries[configKey(ev.EventID)] = &ev
		items := snap.Items[ev.EventID]
		if items == nil {
			items = models.ItemTable{}
		}
		entries[itemsKey(ev.EventID)] = items
		currencies := snap.Currencies[ev.EventID]
		if currencies == nil {
			currencies = models.CurrencyTable{}
		}
		entries[currenciesKey(ev.EventID)] = currencies
	}

	c.mu.Lock()
	c.entries = entries
	c.ready = true
	c.mu.Unlock()

	c.metrics.SetCachedEvents(len(snap.Events))
	c.logger.InfoContext(ctx, "cache populated", "events", len(snap.Events))
	return nil
}

// Start loads an event's three entries unconditionally and inserts them.
// An event that no longer exists is evicted instead.
func (c *Cache) Start(ctx context.Context, eventID string) error {
	var (
		ev         *models.Event
		items      models.ItemTable
		currencies models.CurrencyTable
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		ev, err = c.loader.LoadEvent(gctx, eventID)
		return err
	})
	g.Go(func() error {
		var err error
		items, err = c.loader.LoadItems(gctx, eventID)
		return err
	})
	g.Go(func() error {
		var err error
		currencies, err = c.loader.LoadCurrencies(gctx, eventID)
		return err
	})
	if err := g.Wait(); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			c.Evict(eventID)
			return nil
		}
		return fmt.Errorf("load event %s: %w", eventID, err)
	}

	c.mu.Lock()
	c.entries[itemsKey(eventID)] = items
	c.entries[currenciesKey(eventID)] = currencies
	c.entries[configKey(eventID)] = ev
	c.mu.Unlock()
	return nil
}

// RefreshEvent reloads the event record if the event is mirrored.
func (c *Cache) RefreshEvent(ctx context.Context, eventID string) error {
	if !c.Has(eventID) {
		return nil
	}
	ev, err := c.loader.LoadEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			c.Evict(eventID)
			return nil
		}
		return fmt.Errorf("reload event %s: %w", eventID, err)
	}
	c.SetEvent(eventID, ev)
	return nil
}

// RefreshItems reloads the item table if the event is mirrored.
func (c *Cache) RefreshItems(ctx context.Context, eventID string) error {
	if !c.Has(eventID) {
		return nil
	}
	items, err := c.loader.LoadItems(ctx, eventID)
	if err != nil {
		return fmt.Errorf("reload items %s: %w", eventID, err)
	}
	c.SetItems(eventID, items)
	return nil
}

// RefreshCurrencies reloads the currency table if the event is mirrored.
func (c *Cache) RefreshCurrencies(ctx context.Context, eventID string) error {
	if !c.Has(eventID) {
		return nil
	}
	currencies, err := c.loader.LoadCurrencies(ctx, eventID)
	if err != nil {
		return fmt.Errorf("reload currencies %s: %w", eventID, err)
	}
	c.SetCurrencies(eventID, currencies)
	return nil
}

func (c *Cache) get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok
}

func (c *Cache) set(key string, v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = v
}
