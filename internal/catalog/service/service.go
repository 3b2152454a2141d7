// Package service implements the administrative mutations of events, item prices and
// currency rates, and announces each committed change to the worker caches.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"cashless/internal/catalog/models"
	dErrors "cashless/pkg/domain-errors"
	"cashless/pkg/platform/sentinel"
)

type Store interface {
	CreateEvent(ctx context.Context, ev *models.Event) error
	FindEvent(ctx context.Context, company, eventID string) (*models.Event, error)
	PatchEvent(ctx context.Context, company, eventID string, patch models.EventPatch) error
	DeleteEvent(ctx context.Context, company, eventID string) error

	ListItems(ctx context.Context, company, eventID string) ([]models.Item, error)
	UpsertItems(ctx context.Context, company, eventID string, items []models.Item) error
	PatchItem(ctx context.Context, company, eventID, name string, patch models.ItemPatch) error
	DeleteItems(ctx context.Context, company, eventID, name string) error

	ListCurrencies(ctx context.Context, company, eventID string) ([]models.Currency, error)
	ReplaceCurrencies(ctx context.Context, company, eventID string, currencies []models.Currency) ([]models.Currency, error)
}

// Notifier announces committed configuration changes to every worker.
type Notifier interface {
	EventStarted(ctx context.Context, eventID string) error
	EventEnded(ctx context.Context, eventID string) error
	EventChanged(ctx context.Context, eventID string) error
	ItemsChanged(ctx context.Context, eventID string) error
	CurrenciesChanged(ctx context.Context, eventID string) error
	Repopulate(ctx context.Context) error
}

// Service orchestrates catalog administration.
type Service struct {
	store    Store
	notifier Notifier
	logger   *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// New constructs a Service.
func New(store Store, notifier Notifier, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("catalog store is required")
	}
	if notifier == nil {
		return nil, errors.New("coherence notifier is required")
	}
	s := &Service{
		store:    store,
		notifier: notifier,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// -----------------------------------------------------------------------------
// Events
// -----------------------------------------------------------------------------

// CreateEvent registers a new, inactive event. Inactive events are not cached, so
// nothing is announced.
func (s *Service) CreateEvent(ctx context.Context, ev models.Event) (*models.Event, error) {
	ev.Name = strings.TrimSpace(ev.Name)
	if ev.Company == "" || ev.Name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "company and event name are required")
	}
	if err := validatePrices(ev.CardPrice, ev.TagPrice, ev.TicketPrice, ev.ActivationMinimum); err != nil {
		return nil, err
	}
	ev.EventID = uuid.NewString()
	ev.Status = models.EventStatusInactive
	if err := s.store.CreateEvent(ctx, &ev); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create event")
	}
	return &ev, nil
}

// GetEvent reads an event of the company.
func (s *Service) GetEvent(ctx context.Context, company, eventID string) (*models.Event, error) {
	ev, err := s.store.FindEvent(ctx, company, eventID)
	if err != nil {
		return nil, translate(err, "event not found", "failed to read event")
	}
	return ev, nil
}

// PatchEvent persists the present fields of patch. A status transition is announced
// as EVENT_START or EVENT_END; other changes to a running event as EVENT_CHANGE.
func (s *Service) PatchEvent(ctx context.Context, company, eventID string, patch models.EventPatch) (*models.Event, error) {
	if patch.IsEmpty() {
		return nil, dErrors.New(dErrors.CodeValidation, "no event field to update")
	}
	if patch.Status != nil && !patch.Status.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeValidation, "invalid event status %q", *patch.Status)
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "event name cannot be empty")
	}
	if err := validatePrices(patch.CardPrice, patch.TagPrice, patch.TicketPrice, patch.ActivationMinimum); err != nil {
		return nil, err
	}

	current, err := s.store.FindEvent(ctx, company, eventID)
	if err != nil {
		return nil, translate(err, "event not found", "failed to read event")
	}
	if err := s.store.PatchEvent(ctx, company, eventID, patch); err != nil {
		return nil, translate(err, "event not found", "failed to update event")
	}

	transition := patch.Status != nil && *patch.Status != current.Status
	switch {
	case transition && *patch.Status == models.EventStatusActive:
		err = s.notifier.EventStarted(ctx, eventID)
	case transition:
		err = s.notifier.EventEnded(ctx, eventID)
	case patch.ConfigChanged():
		err = s.notifier.EventChanged(ctx, eventID)
	}
	if err != nil {
		return nil, s.announceFailed(ctx, eventID, err)
	}

	updated, err := s.store.FindEvent(ctx, company, eventID)
	if err != nil {
		return nil, translate(err, "event not found", "failed to read event")
	}
	return updated, nil
}

// DeleteEvent removes the event with its non-fidelity balances, items and currencies.
func (s *Service) DeleteEvent(ctx context.Context, company, eventID string) error {
	if err := s.store.DeleteEvent(ctx, company, eventID); err != nil {
		return translate(err, "event not found", "failed to delete event")
	}
	if err := s.notifier.EventEnded(ctx, eventID); err != nil {
		return s.announceFailed(ctx, eventID, err)
	}
	s.logger.InfoContext(ctx, "event deleted", "event_id", eventID, "company", company)
	return nil
}

// Repopulate asks every worker to rebuild its cache from the store.
func (s *Service) Repopulate(ctx context.Context) error {
	if err := s.notifier.Repopulate(ctx); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to request cache repopulation")
	}
	return nil
}

// -----------------------------------------------------------------------------
// Items
// -----------------------------------------------------------------------------

func (s *Service) ListItems(ctx context.Context, company, eventID string) ([]models.Item, error) {
	items, err := s.store.ListItems(ctx, company, eventID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list items")
	}
	return items, nil
}

// UpsertItems creates new item names and overwrites existing ones.
func (s *Service) UpsertItems(ctx context.Context, company, eventID string, items []models.Item) error {
	if len(items) == 0 {
		return dErrors.New(dErrors.CodeValidation, "at least one item is required")
	}
	seen := make(map[string]struct{}, len(items))
	for i := range items {
		items[i].Name = strings.TrimSpace(items[i].Name)
		it := items[i]
		if it.Name == "" {
			return dErrors.New(dErrors.CodeValidation, "item name is required")
		}
		if _, dup := seen[it.Name]; dup {
			return dErrors.Newf(dErrors.CodeValidation, "duplicate item %q", it.Name)
		}
		seen[it.Name] = struct{}{}
		if it.Price.IsNegative() || it.StaffPrice.IsNegative() || !validAmount(it.Tax) {
			return dErrors.Newf(dErrors.CodeValidation, "item %q has an invalid amount", it.Name)
		}
	}
	if _, err := s.store.FindEvent(ctx, company, eventID); err != nil {
		return translate(err, "event not found", "failed to read event")
	}
	if err := s.store.UpsertItems(ctx, company, eventID, items); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save items")
	}
	if err := s.notifier.ItemsChanged(ctx, eventID); err != nil {
		return s.announceFailed(ctx, eventID, err)
	}
	return nil
}

// PatchItem updates one item; a new name renames it.
func (s *Service) PatchItem(ctx context.Context, company, eventID, name string, patch models.ItemPatch) error {
	if name == "" {
		return dErrors.New(dErrors.CodeValidation, "item name is required")
	}
	if patch.IsEmpty() {
		return dErrors.New(dErrors.CodeValidation, "no item field to update")
	}
	if patch.Name != nil {
		trimmed := strings.TrimSpace(*patch.Name)
		if trimmed == "" {
			return dErrors.New(dErrors.CodeValidation, "item name cannot be empty")
		}
		patch.Name = &trimmed
	}
	if validatePrices(patch.Price, patch.StaffPrice) != nil || (patch.Tax != nil && !validAmount(*patch.Tax)) {
		return dErrors.Newf(dErrors.CodeValidation, "item %q has an invalid amount", name)
	}
	if err := s.store.PatchItem(ctx, company, eventID, name, patch); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return dErrors.Newf(dErrors.CodeConflict, "item %q already exists", *patch.Name)
		}
		return translate(err, "item not found", "failed to update item")
	}
	if err := s.notifier.ItemsChanged(ctx, eventID); err != nil {
		return s.announceFailed(ctx, eventID, err)
	}
	return nil
}

// DeleteItems removes one item, or every item of the event when name is empty.
func (s *Service) DeleteItems(ctx context.Context, company, eventID, name string) error {
	if err := s.store.DeleteItems(ctx, company, eventID, name); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete items")
	}
	if err := s.notifier.ItemsChanged(ctx, eventID); err != nil {
		return s.announceFailed(ctx, eventID, err)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Currencies
// -----------------------------------------------------------------------------

// ListCurrencies returns the event's currencies with the default first.
func (s *Service) ListCurrencies(ctx context.Context, company, eventID string) ([]models.Currency, error) {
	currencies, err := s.store.ListCurrencies(ctx, company, eventID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list currencies")
	}
	return currencies, nil
}

// ReplaceCurrencies makes the event's currency set equal to currencies and returns
// the currencies that were created.
func (s *Service) ReplaceCurrencies(ctx context.Context, company, eventID string, currencies []models.Currency) ([]models.Currency, error) {
	if err := validateCurrencies(currencies); err != nil {
		return nil, err
	}
	for i := range currencies {
		if currencies[i].MarketRate == 0 {
			currencies[i].MarketRate = currencies[i].Rate
		}
	}
	if _, err := s.store.FindEvent(ctx, company, eventID); err != nil {
		return nil, translate(err, "event not found", "failed to read event")
	}
	created, err := s.store.ReplaceCurrencies(ctx, company, eventID, currencies)
	if err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "currency code already exists for this event")
		}
		return nil, translate(err, "currency not found", "failed to save currencies")
	}
	if err := s.notifier.CurrenciesChanged(ctx, eventID); err != nil {
		return nil, s.announceFailed(ctx, eventID, err)
	}
	return created, nil
}

func validateCurrencies(currencies []models.Currency) error {
	if len(currencies) == 0 {
		return dErrors.New(dErrors.CodeValidation, "at least one currency is required")
	}
	codes := make(map[string]struct{}, len(currencies))
	defaults := 0
	for i := range currencies {
		currencies[i].Code = strings.ToUpper(strings.TrimSpace(currencies[i].Code))
		c := currencies[i]
		if c.Code == "" {
			return dErrors.New(dErrors.CodeValidation, "currency code is required")
		}
		if _, dup := codes[c.Code]; dup {
			return dErrors.Newf(dErrors.CodeValidation, "duplicate currency %q", c.Code)
		}
		codes[c.Code] = struct{}{}
		if !validAmount(c.Rate) || c.Rate == 0 {
			return dErrors.Newf(dErrors.CodeValidation, "currency %q needs a positive rate", c.Code)
		}
		if !validAmount(c.MarketRate) {
			return dErrors.Newf(dErrors.CodeValidation, "currency %q has an invalid market rate", c.Code)
		}
		for _, p := range c.QuickPrices {
			if !validAmount(p) {
				return dErrors.Newf(dErrors.CodeValidation, "currency %q has an invalid quick price", c.Code)
			}
		}
		if c.IsDefault {
			defaults++
		}
	}
	if defaults != 1 {
		return dErrors.New(dErrors.CodeValidation, "exactly one default currency is required")
	}
	return nil
}

func validatePrices(values ...*decimal.Decimal) error {
	for _, v := range values {
		if v != nil && v.IsNegative() {
			return dErrors.New(dErrors.CodeValidation, "prices and activation minimum must be non-negative")
		}
	}
	return nil
}

func validAmount(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// announceFailed reports a committed change that could not be broadcast. Workers keep
// serving the previous configuration until the next populate.
func (s *Service) announceFailed(ctx context.Context, eventID string, err error) error {
	s.logger.ErrorContext(ctx, "configuration committed but not broadcast",
		"event_id", eventID,
		"error", err,
	)
	return dErrors.Wrap(err, dErrors.CodeInternal, fmt.Sprintf("change to event %s saved but not propagated", eventID))
}

func translate(err error, notFoundMsg, internalMsg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, notFoundMsg)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, internalMsg)
}
