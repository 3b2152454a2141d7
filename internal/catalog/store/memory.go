package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"cashless/internal/cache"
	"cashless/internal/catalog/models"
	"cashless/pkg/platform/sentinel"
)

// InMemoryStore is a catalog store for tests and single-node development.
type InMemoryStore struct {
	mu         sync.RWMutex
	events     map[string]models.Event
	items      map[string]models.ItemTable
	currencies map[string]models.CurrencyTable
	fail       error
}

// NewInMemory constructs an empty in-memory catalog store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		events:     make(map[string]models.Event),
		items:      make(map[string]models.ItemTable),
		currencies: make(map[string]models.CurrencyTable),
	}
}

// SetFailure makes every load return err until cleared with nil. Tests use it to
// simulate an unreachable system of record.
func (s *InMemoryStore) SetFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = err
}

func (s *InMemoryStore) LoadActive(_ context.Context) (*cache.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.fail != nil {
		return nil, s.fail
	}
	snap := &cache.Snapshot{
		Items:      make(map[string]models.ItemTable),
		Currencies: make(map[string]models.CurrencyTable),
	}
	for id, ev := range s.events {
		if !ev.IsActive() {
			continue
		}
		snap.Events = append(snap.Events, ev)
		snap.Items[id] = cloneItems(s.items[id])
		snap.Currencies[id] = cloneCurrencies(s.currencies[id])
	}
	return snap, nil
}

func (s *InMemoryStore) LoadEvent(_ context.Context, eventID string) (*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.fail != nil {
		return nil, s.fail
	}
	ev, ok := s.events[eventID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &ev, nil
}

func (s *InMemoryStore) LoadItems(_ context.Context, eventID string) (models.ItemTable, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.fail != nil {
		return nil, s.fail
	}
	return cloneItems(s.items[eventID]), nil
}

func (s *InMemoryStore) LoadCurrencies(_ context.Context, eventID string) (models.CurrencyTable, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.fail != nil {
		return nil, s.fail
	}
	return cloneCurrencies(s.currencies[eventID]), nil
}

func (s *InMemoryStore) CreateEvent(_ context.Context, ev *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[ev.EventID]; ok {
		return sentinel.ErrAlreadyUsed
	}
	s.events[ev.EventID] = *ev
	return nil
}

func (s *InMemoryStore) FindEvent(_ context.Context, company, eventID string) (*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ev, ok := s.events[eventID]
	if !ok || ev.Company != company {
		return nil, sentinel.ErrNotFound
	}
	return &ev, nil
}

func (s *InMemoryStore) PatchEvent(_ context.Context, company, eventID string, patch models.EventPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.events[eventID]
	if !ok || ev.Company != company {
		return sentinel.ErrNotFound
	}
	if patch.Name != nil {
		ev.Name = *patch.Name
	}
	if patch.Description != nil {
		ev.Description = *patch.Description
	}
	if patch.StartDate != nil {
		ev.StartDate = patch.StartDate
	}
	if patch.Status != nil {
		ev.Status = *patch.Status
	}
	if patch.CardPrice != nil {
		ev.CardPrice = patch.CardPrice
	}
	if patch.TagPrice != nil {
		ev.TagPrice = patch.TagPrice
	}
	if patch.TicketPrice != nil {
		ev.TicketPrice = patch.TicketPrice
	}
	if patch.ActivationMinimum != nil {
		ev.ActivationMinimum = patch.ActivationMinimum
	}
	s.events[eventID] = ev
	return nil
}

func (s *InMemoryStore) DeleteEvent(_ context.Context, company, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.events[eventID]
	if !ok || ev.Company != company {
		return sentinel.ErrNotFound
	}
	delete(s.events, eventID)
	delete(s.items, eventID)
	delete(s.currencies, eventID)
	return nil
}

func (s *InMemoryStore) ListItems(_ context.Context, company, eventID string) ([]models.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Item
	for _, it := range s.items[eventID] {
		if it.Company == company {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *InMemoryStore) UpsertItems(_ context.Context, company, eventID string, items []models.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := cloneItems(s.items[eventID])
	for _, it := range items {
		it.EventID = eventID
		it.Company = company
		next[it.Name] = it
	}
	s.items[eventID] = next
	return nil
}

func (s *InMemoryStore) PatchItem(_ context.Context, company, eventID, name string, patch models.ItemPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := cloneItems(s.items[eventID])
	it, ok := next[name]
	if !ok || it.Company != company {
		return sentinel.ErrNotFound
	}
	if patch.Name != nil && *patch.Name != name {
		if _, taken := next[*patch.Name]; taken {
			return sentinel.ErrAlreadyUsed
		}
		delete(next, name)
		it.Name = *patch.Name
	}
	if patch.Price != nil {
		it.Price = *patch.Price
	}
	if patch.StaffPrice != nil {
		it.StaffPrice = *patch.StaffPrice
	}
	if patch.Tax != nil {
		it.Tax = *patch.Tax
	}
	if patch.Category != nil {
		it.Category = *patch.Category
	}
	if patch.BonusAvailable != nil {
		it.BonusAvailable = *patch.BonusAvailable
	}
	next[it.Name] = it
	s.items[eventID] = next
	return nil
}

func (s *InMemoryStore) DeleteItems(_ context.Context, company, eventID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := models.ItemTable{}
	for n, it := range s.items[eventID] {
		if it.Company == company && (name == "" || n == name) {
			continue
		}
		next[n] = it
	}
	s.items[eventID] = next
	return nil
}

func (s *InMemoryStore) ListCurrencies(_ context.Context, company, eventID string) ([]models.Currency, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Currency
	for _, c := range s.currencies[eventID] {
		if c.Company == company {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsDefault != out[j].IsDefault {
			return out[i].IsDefault
		}
		return out[i].Code < out[j].Code
	})
	return out, nil
}

func (s *InMemoryStore) ReplaceCurrencies(_ context.Context, company, eventID string, currencies []models.Currency) ([]models.Currency, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := models.CurrencyTable{}
	var created []models.Currency
	for _, c := range currencies {
		c.EventID = eventID
		c.Company = company
		if c.CurrencyID == "" {
			c.CurrencyID = uuid.NewString()
			created = append(created, c)
		}
		if _, dup := next[c.Code]; dup {
			return nil, sentinel.ErrAlreadyUsed
		}
		next[c.Code] = c
	}
	s.currencies[eventID] = next
	return created, nil
}

func cloneItems(in models.ItemTable) models.ItemTable {
	out := make(models.ItemTable, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func cloneCurrencies(in models.CurrencyTable) models.CurrencyTable {
	out := make(models.CurrencyTable, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
