//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"cashless/internal/cache"
	"cashless/internal/catalog/models"
	"cashless/internal/catalog/service"
	"cashless/internal/catalog/store"
	"cashless/internal/coherence"
	"cashless/pkg/platform/sentinel"
	"cashless/pkg/testutil/containers"
)

type CatalogPostgresSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestCatalogPostgresSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(CatalogPostgresSuite))
}

func (s *CatalogPostgresSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *CatalogPostgresSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "events", "item_configs", "currencies"))
}

func ptr[T any](v T) *T { return &v }

func (s *CatalogPostgresSuite) newEvent(svc *service.Service, name string) *models.Event {
	ev, err := svc.CreateEvent(context.Background(), models.Event{
		Company:     "acme",
		Name:        name,
		TicketPrice: ptr(decimal.NewFromInt(6)),
		TagPrice:    ptr(decimal.NewFromInt(4)),
	})
	s.Require().NoError(err)
	return ev
}

func (s *CatalogPostgresSuite) configure(svc *service.Service, eventID string) {
	ctx := context.Background()
	s.Require().NoError(svc.UpsertItems(ctx, "acme", eventID, []models.Item{
		{Name: "cola", Price: decimal.NewFromInt(14), StaffPrice: decimal.NewFromInt(7), BonusAvailable: true},
		{Name: "beer", Price: decimal.NewFromInt(10), StaffPrice: decimal.NewFromInt(5)},
	}))
	_, err := svc.ReplaceCurrencies(ctx, "acme", eventID, []models.Currency{
		{Code: "EUR", Rate: 1, MarketRate: 1, IsDefault: true, QuickPrices: []float64{5, 10}},
		{Code: "RON", Rate: 0.2, MarketRate: 0.2},
	})
	s.Require().NoError(err)
}

func (s *CatalogPostgresSuite) TestLoadActiveSkipsInactiveEvents() {
	ctx := context.Background()
	hub := coherence.NewHub()
	local, err := cache.New(s.store)
	s.Require().NoError(err)
	svc, err := service.New(s.store, coherence.NewEmitter(hub, local))
	s.Require().NoError(err)

	running := s.newEvent(svc, "running")
	idle := s.newEvent(svc, "idle")
	s.configure(svc, running.EventID)
	s.configure(svc, idle.EventID)
	s.Require().NoError(s.store.PatchEvent(ctx, "acme", running.EventID,
		models.EventPatch{Status: ptr(models.EventStatusActive)}))

	snap, err := s.store.LoadActive(ctx)
	s.Require().NoError(err)
	s.Require().Len(snap.Events, 1)
	s.Equal(running.EventID, snap.Events[0].EventID)
	s.Len(snap.Items[running.EventID], 2)
	s.Len(snap.Currencies[running.EventID], 2)
	s.NotContains(snap.Items, idle.EventID)

	def, ok := snap.Currencies[running.EventID].Default()
	s.Require().True(ok)
	s.Equal("EUR", def.Code)
	s.Equal([]float64{5, 10}, def.QuickPrices)
}

func (s *CatalogPostgresSuite) TestReplaceCurrencies() {
	ctx := context.Background()
	ev := &models.Event{EventID: "0b0f5a5e-8d7e-4b5c-9f57-0c4f0e1c2a11", Company: "acme", Name: "fest", Status: models.EventStatusInactive}
	s.Require().NoError(s.store.CreateEvent(ctx, ev))

	created, err := s.store.ReplaceCurrencies(ctx, "acme", ev.EventID, []models.Currency{
		{Code: "EUR", Rate: 1, MarketRate: 1, IsDefault: true},
		{Code: "USD", Rate: 0.9, MarketRate: 0.9},
	})
	s.Require().NoError(err)
	s.Require().Len(created, 2)

	eur := created[0]
	eur.Rate, eur.MarketRate = 1, 1
	_, err = s.store.ReplaceCurrencies(ctx, "acme", ev.EventID, []models.Currency{
		eur,
		{Code: "RON", Rate: 0.2, MarketRate: 0.2},
	})
	s.Require().NoError(err)

	table, err := s.store.LoadCurrencies(ctx, ev.EventID)
	s.Require().NoError(err)
	s.Len(table, 2)
	s.Contains(table, "EUR")
	s.Contains(table, "RON")
	s.NotContains(table, "USD")
	s.Equal(eur.CurrencyID, table["EUR"].CurrencyID)

	_, err = s.store.ReplaceCurrencies(ctx, "acme", ev.EventID, []models.Currency{
		eur,
		{Code: "EUR", Rate: 2, MarketRate: 2},
	})
	s.ErrorIs(err, sentinel.ErrAlreadyUsed)
}

func (s *CatalogPostgresSuite) TestDeleteEventCascades() {
	ctx := context.Background()
	hub := coherence.NewHub()
	local, err := cache.New(s.store)
	s.Require().NoError(err)
	svc, err := service.New(s.store, coherence.NewEmitter(hub, local))
	s.Require().NoError(err)

	ev := s.newEvent(svc, "gone")
	s.configure(svc, ev.EventID)
	s.Require().NoError(s.store.DeleteEvent(ctx, "acme", ev.EventID))

	_, err = s.store.LoadEvent(ctx, ev.EventID)
	s.ErrorIs(err, sentinel.ErrNotFound)

	var rows int
	s.Require().NoError(s.postgres.DB.QueryRow(
		`SELECT (SELECT count(*) FROM item_configs) + (SELECT count(*) FROM currencies)`).Scan(&rows))
	s.Zero(rows)
}

// TestAdminChangesReachEveryWorker runs two workers over the same database and checks
// that an event start and a later price change reach both caches.
func (s *CatalogPostgresSuite) TestAdminChangesReachEveryWorker() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	hub := coherence.NewHub()
	go func() { _ = hub.Run(ctx) }()

	workers := make([]*coherence.Worker, 2)
	for i := range workers {
		c, err := cache.New(s.store)
		s.Require().NoError(err)
		workers[i] = coherence.NewWorker(i, c, hub)
		go func(w *coherence.Worker) { _ = w.Run(ctx) }(workers[i])
	}
	for _, w := range workers {
		select {
		case <-w.Synced():
		case <-ctx.Done():
			s.FailNow("worker never synced")
		}
	}

	svc, err := service.New(s.store, coherence.NewEmitter(hub, workers[0].Cache()))
	s.Require().NoError(err)
	ev := s.newEvent(svc, "fest")
	s.configure(svc, ev.EventID)

	_, err = svc.PatchEvent(ctx, "acme", ev.EventID, models.EventPatch{Status: ptr(models.EventStatusActive)})
	s.Require().NoError(err)
	for _, w := range workers {
		c := w.Cache()
		s.Eventually(func() bool { return c.Has(ev.EventID) }, 5*time.Second, 20*time.Millisecond)
	}

	s.Require().NoError(svc.PatchItem(ctx, "acme", ev.EventID, "cola", models.ItemPatch{Price: ptr(decimal.NewFromInt(16))}))
	for _, w := range workers {
		c := w.Cache()
		s.Eventually(func() bool {
			items, ok := c.Items(ev.EventID)
			return ok && items["cola"].Price.Equal(decimal.NewFromInt(16))
		}, 5*time.Second, 20*time.Millisecond)
	}

	_, err = svc.PatchEvent(ctx, "acme", ev.EventID, models.EventPatch{Status: ptr(models.EventStatusInactive)})
	s.Require().NoError(err)
	for _, w := range workers {
		c := w.Cache()
		s.Eventually(func() bool { return !c.Has(ev.EventID) }, 5*time.Second, 20*time.Millisecond)
	}
}
