// Package store persists events, item configurations and currency rates, and serves
// the configuration cache's loads.
package store

import (
	"context"

	"cashless/internal/cache"
	"cashless/internal/catalog/models"
)

// Store is implemented by PostgresStore and InMemoryStore.
type Store interface {
	cache.Loader

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
