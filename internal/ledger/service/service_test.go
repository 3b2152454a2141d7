package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store,ConfigSource,Outbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"

	"cashless/internal/cache"
	catalogmodels "cashless/internal/catalog/models"
	"cashless/internal/ledger/models"
	"cashless/internal/ledger/service/mocks"
	"cashless/internal/ledger/store"
	"cashless/internal/outbox"
	"cashless/internal/platform/metrics"
	dErrors "cashless/pkg/domain-errors"
	"cashless/pkg/platform/sentinel"
	"cashless/pkg/requestcontext"
)

// =============================================================================
// Ledger Service Test Suite
// =============================================================================
// Runs the ledger against the in-memory store, whose transactions roll back on
// error, so every rejected operation can be checked for leaving no trace.

type staticConfig map[string]cache.EventConfig

func (c staticConfig) Config(eventID string) (cache.EventConfig, bool) {
	cfg, ok := c[eventID]
	return cfg, ok
}

type LedgerServiceSuite struct {
	suite.Suite
	staffCtx context.Context
	adminCtx context.Context
	store    *store.InMemoryStore
	outbox   *outbox.InMemoryStore
	config   staticConfig
	metrics  *metrics.Metrics
	service  *Service
}

func TestLedgerServiceSuite(t *testing.T) {
	suite.Run(t, new(LedgerServiceSuite))
}

func (s *LedgerServiceSuite) SetupTest() {
	base := context.Background()
	s.staffCtx = requestcontext.WithActor(base, requestcontext.Member{
		Company: "acme", MemberID: "m1", MemberName: "Ana", EventID: "e1", Role: requestcontext.RoleStaff,
	})
	s.adminCtx = requestcontext.WithActor(base, requestcontext.Member{
		Company: "acme", MemberID: "a1", MemberName: "Root", Role: requestcontext.RoleAdmin,
	})
	s.store = store.NewInMemory()
	s.outbox = outbox.NewInMemory()
	s.config = staticConfig{
		"e1": eventConfig("e1", dp(20)),
		"e2": eventConfig("e2", nil),
	}
	s.metrics = metrics.New(prometheus.NewRegistry())

	svc, err := New(s.store, s.config, s.outbox,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithMetrics(s.metrics),
	)
	s.Require().NoError(err)
	s.service = svc
}

func ptr[T any](v T) *T { return &v }

func d(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func dp(v float64) *decimal.Decimal { return ptr(d(v)) }

func (s *LedgerServiceSuite) equalAmount(want float64, got decimal.Decimal) {
	s.T().Helper()
	s.True(got.Equal(d(want)), "want %v, got %s", want, got)
}

func eventConfig(eventID string, minimum *decimal.Decimal) cache.EventConfig {
	return cache.EventConfig{
		Event: &catalogmodels.Event{
			EventID:           eventID,
			Company:           "acme",
			Status:            catalogmodels.EventStatusActive,
			CardPrice:         dp(5),
			TagPrice:          dp(4),
			TicketPrice:       dp(6),
			ActivationMinimum: minimum,
		},
		Items: catalogmodels.ItemsByName([]catalogmodels.Item{
			{Name: "cola", Category: "drinks", Price: d(14), StaffPrice: d(7), BonusAvailable: true},
			{Name: "beer", Category: "drinks", Price: d(10), StaffPrice: d(5)},
			{Name: "vip", Category: "access", Price: d(60), StaffPrice: d(60)},
			{Name: "gum", Category: "snacks", Price: d(0.1), StaffPrice: d(0.1)},
			{Name: "mint", Category: "snacks", Price: d(0.2), StaffPrice: d(0.2)},
		}),
		Currencies: catalogmodels.CurrenciesByCode([]catalogmodels.Currency{
			{Code: "EUR", Rate: 1, IsDefault: true},
			{Code: "USD", Rate: 0.9},
			{Code: "RON", Rate: 0.2},
			{Code: "XXX", Rate: 0},
		}),
	}
}

// seed stores a client balance of 100 EUR created at e1.
func (s *LedgerServiceSuite) seed(mod func(b *models.Balance)) *models.Balance {
	b := &models.Balance{
		BalanceID:    uuid.NewString(),
		Company:      "acme",
		EventID:      ptr("e1"),
		EventCreated: "e1",
		Currency:     "EUR",
		Amount:       d(100),
		ScanID:       ptr("scan-" + uuid.NewString()),
	}
	if mod != nil {
		mod(b)
	}
	s.Require().NoError(s.store.Create(context.Background(), b))
	return b
}

func (s *LedgerServiceSuite) amountOf(balanceID string) decimal.Decimal {
	b, err := s.store.FindByID(context.Background(), "acme", balanceID)
	s.Require().NoError(err)
	return b.Amount
}

func (s *LedgerServiceSuite) TestNew() {
	s.Run("store is required", func() {
		_, err := New(nil, s.config, s.outbox)
		s.Error(err)
	})

	s.Run("config source is required", func() {
		_, err := New(s.store, nil, s.outbox)
		s.Error(err)
	})

	s.Run("outbox is required", func() {
		_, err := New(s.store, s.config, nil)
		s.Error(err)
	})
}

// -----------------------------------------------------------------------------
// Activation
// -----------------------------------------------------------------------------

func (s *LedgerServiceSuite) TestActivationCost() {
	ev := s.config["e1"].Event
	cases := []struct {
		name     string
		scan     string
		ticket   string
		fidelity bool
		want     float64
	}{
		{"fidelity card pays the card price", "s1", "", true, 5},
		{"scan only bundles a ticket", "s1", "", false, 10},
		{"ticket only", "", "t1", false, 6},
		{"distinct scan and ticket", "s1", "t1", false, 10},
		{"tag doubling as ticket", "s1", "s1", false, 6},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			s.equalAmount(tc.want, ActivationCost(ev, tc.scan, tc.ticket, tc.fidelity))
		})
	}

	s.Run("unset prices count as zero", func() {
		s.True(ActivationCost(&catalogmodels.Event{}, "s1", "t1", false).IsZero())
	})
}

func (s *LedgerServiceSuite) TestCreateBalance() {
	s.Run("converts the deposit and deducts the activation cost", func() {
		b, err := s.service.CreateBalance(s.staffCtx, CreateBalanceRequest{
			ScanID: "tag-1", Amount: d(100), ActivationCurrency: "USD",
		})
		s.Require().NoError(err)
		s.equalAmount(80, b.Amount)
		s.Equal("EUR", b.Currency)
		s.Equal("USD", b.ActivationCurrency)
		s.equalAmount(10, b.ActivationCost)
		s.equalAmount(100, b.InitialAmount)
		s.False(b.IsBonus)
		s.Require().NotNil(b.EventID)
		s.Equal("e1", *b.EventID)
		s.Equal("m1", b.CreatedByID)

		pending := s.outbox.Pending()
		s.Require().Len(pending, 1)
		s.Equal(models.EventBalanceActivated, pending[0].EventType)
		s.Equal(b.BalanceID, pending[0].AggregateID)
	})

	s.Run("event not running is not found", func() {
		ctx := requestcontext.WithActor(context.Background(), requestcontext.Member{Company: "acme", EventID: "gone"})
		_, err := s.service.CreateBalance(ctx, CreateBalanceRequest{ScanID: "tag-2", Amount: d(100), ActivationCurrency: "EUR"})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("remainder below zero is rejected", func() {
		_, err := s.service.CreateBalance(s.staffCtx, CreateBalanceRequest{ScanID: "tag-3", Amount: d(8), ActivationCurrency: "EUR"})
		s.True(dErrors.HasCode(err, dErrors.CodeInsufficientFunds))
	})

	s.Run("deposit below the activation minimum is rejected", func() {
		_, err := s.service.CreateBalance(s.staffCtx, CreateBalanceRequest{ScanID: "tag-4", Amount: d(15), ActivationCurrency: "EUR"})
		s.True(dErrors.HasCode(err, dErrors.CodeActivationPolicy))
	})

	s.Run("missing activation minimum is a policy error", func() {
		ctx := requestcontext.WithActor(context.Background(), requestcontext.Member{Company: "acme", EventID: "e2"})
		_, err := s.service.CreateBalance(ctx, CreateBalanceRequest{ScanID: "tag-5", Amount: d(100), ActivationCurrency: "EUR"})
		s.True(dErrors.HasCode(err, dErrors.CodeActivationPolicy))
	})

	s.Run("unusable currency is a conversion error", func() {
		_, err := s.service.CreateBalance(s.staffCtx, CreateBalanceRequest{ScanID: "tag-6", Amount: d(100), ActivationCurrency: "XXX"})
		s.True(dErrors.HasCode(err, dErrors.CodeConversion))
	})

	s.Run("registered tag is a conflict", func() {
		_, err := s.service.CreateBalance(s.staffCtx, CreateBalanceRequest{ScanID: "tag-1", Amount: d(100), ActivationCurrency: "EUR"})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("administrators create bonus balances", func() {
		b, err := s.service.CreateBalance(s.adminCtx, CreateBalanceRequest{
			EventID: "e1", ScanID: "tag-7", Amount: d(50), ActivationCurrency: "EUR",
		})
		s.Require().NoError(err)
		s.True(b.IsBonus)
		s.Equal("e1", b.EventCreated)
	})

	s.Run("fidelity card registers its client and roams", func() {
		b, err := s.service.CreateBalance(s.staffCtx, CreateBalanceRequest{
			ScanID: "card-1", Amount: d(100), ActivationCurrency: "EUR", IsFidelityCard: true,
			Client: &ClientProfile{Name: "Ion", Email: "ion@example.com"},
		})
		s.Require().NoError(err)
		s.equalAmount(95, b.Amount)
		s.Nil(b.EventID)
		client, ok := s.store.ClientByBalance(b.BalanceID)
		s.Require().True(ok)
		s.Equal("Ion", client.Name)
	})

	s.Run("missing input is rejected before any read", func() {
		_, err := s.service.CreateBalance(s.staffCtx, CreateBalanceRequest{Amount: d(100), ActivationCurrency: "EUR"})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))

		_, err = s.service.CreateBalance(s.staffCtx, CreateBalanceRequest{ScanID: "tag-8", Amount: d(100)})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))

		_, err = s.service.CreateBalance(context.Background(), CreateBalanceRequest{ScanID: "tag-8"})
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func (s *LedgerServiceSuite) TestCreateStaffBalance() {
	hash, err := bcrypt.GenerateFromPassword([]byte("open-sesame"), bcrypt.MinCost)
	s.Require().NoError(err)
	s.store.AddStaff(models.StaffMember{MemberID: "a1", Company: "acme", Name: "Root", PasswordHash: string(hash), IsAdmin: true})

	s.Run("verified admin password activates a bonus staff balance", func() {
		b, err := s.service.CreateStaffBalance(s.staffCtx, CreateStaffBalanceRequest{
			AdminPassword: "open-sesame", ScanID: "staff-1", Amount: d(50), ActivationCurrency: "USD",
		})
		s.Require().NoError(err)
		s.True(b.IsBonus)
		s.True(b.IsStaff())
		s.Equal("m1", *b.MemberID)
		s.Equal("staff-1", *b.TicketID)
		s.Equal("a1", b.CreatedByID)
		s.True(b.ActivationCost.IsZero())
		s.equalAmount(45, b.Amount)
	})

	s.Run("wrong password is unauthorized", func() {
		_, err := s.service.CreateStaffBalance(s.staffCtx, CreateStaffBalanceRequest{
			AdminPassword: "guess", ScanID: "staff-2", Amount: d(50), ActivationCurrency: "EUR",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("company without administrators", func() {
		ctx := requestcontext.WithActor(context.Background(), requestcontext.Member{Company: "other", EventID: "e1"})
		_, err := s.service.CreateStaffBalance(ctx, CreateStaffBalanceRequest{
			AdminPassword: "open-sesame", ScanID: "staff-3", Amount: d(50), ActivationCurrency: "EUR",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("admin password is required", func() {
		_, err := s.service.CreateStaffBalance(s.staffCtx, CreateStaffBalanceRequest{ScanID: "staff-4", ActivationCurrency: "EUR"})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

// -----------------------------------------------------------------------------
// Top-up
// -----------------------------------------------------------------------------

func (s *LedgerServiceSuite) TestTopUp() {
	s.Run("credits the amount converted into the balance currency", func() {
		b := s.seed(func(b *models.Balance) { b.Amount = d(80) })
		got, err := s.service.TopUp(s.staffCtx, TopUpRequest{ScanID: *b.ScanID, Amount: d(50), Currency: "USD"})
		s.Require().NoError(err)
		s.equalAmount(125, got.Amount)
		s.equalAmount(125, s.amountOf(b.BalanceID))

		topUps := s.store.TopUps()
		s.Require().Len(topUps, 1)
		s.Equal("USD", topUps[0].Currency)
		s.equalAmount(50, topUps[0].Amount)
		s.Equal("m1", topUps[0].MemberID)
	})

	s.Run("non-default balance currency routes through the default", func() {
		b := s.seed(func(b *models.Balance) { b.Currency = "RON"; b.Amount = d(0) })
		_, err := s.service.TopUp(s.staffCtx, TopUpRequest{ScanID: *b.ScanID, Amount: d(10), Currency: "EUR"})
		s.Require().NoError(err)
		s.equalAmount(50, s.amountOf(b.BalanceID))
	})

	s.Run("ticket id finds the balance", func() {
		b := s.seed(func(b *models.Balance) { b.TicketID = ptr("ticket-" + uuid.NewString()) })
		_, err := s.service.TopUp(s.staffCtx, TopUpRequest{TicketID: *b.TicketID, Amount: d(5), Currency: "EUR"})
		s.Require().NoError(err)
		s.equalAmount(105, s.amountOf(b.BalanceID))
	})

	s.Run("staff cannot top up bonus balances", func() {
		b := s.seed(func(b *models.Balance) { b.IsBonus = true })
		_, err := s.service.TopUp(s.staffCtx, TopUpRequest{ScanID: *b.ScanID, Amount: d(10), Currency: "EUR"})
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
		s.equalAmount(100, s.amountOf(b.BalanceID))
	})

	s.Run("staff cannot top up a negative or zero amount", func() {
		b := s.seed(nil)
		before := len(s.store.TopUps())
		for _, amount := range []float64{-60, 0} {
			_, err := s.service.TopUp(s.staffCtx, TopUpRequest{ScanID: *b.ScanID, Amount: d(amount), Currency: "EUR"})
			s.True(dErrors.HasCode(err, dErrors.CodeValidation), "amount %v", amount)
		}
		s.equalAmount(100, s.amountOf(b.BalanceID))
		s.Len(s.store.TopUps(), before)
	})

	s.Run("admin correction must name a member", func() {
		b := s.seed(nil)
		_, err := s.service.TopUp(s.adminCtx, TopUpRequest{EventID: "e1", ScanID: *b.ScanID, Amount: d(-30), Currency: "EUR"})
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

		_, err = s.service.TopUp(s.adminCtx, TopUpRequest{
			EventID: "e1", ScanID: *b.ScanID, Amount: d(-30), Currency: "EUR", MemberID: "m9", MemberName: "Eva",
		})
		s.Require().NoError(err)
		s.equalAmount(70, s.amountOf(b.BalanceID))

		topUps := s.store.TopUps()
		last := topUps[len(topUps)-1]
		s.Equal("m9", last.MemberID)
		s.Equal("Eva", last.MemberName)
	})

	s.Run("admin tops up bonus balances without a member", func() {
		b := s.seed(func(b *models.Balance) { b.IsBonus = true })
		_, err := s.service.TopUp(s.adminCtx, TopUpRequest{EventID: "e1", ScanID: *b.ScanID, Amount: d(20), Currency: "EUR"})
		s.Require().NoError(err)
		s.equalAmount(120, s.amountOf(b.BalanceID))
	})

	s.Run("correction below zero is rejected", func() {
		b := s.seed(nil)
		before := len(s.store.TopUps())
		_, err := s.service.TopUp(s.adminCtx, TopUpRequest{
			EventID: "e1", ScanID: *b.ScanID, Amount: d(-101), Currency: "EUR", MemberID: "m9", MemberName: "Eva",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeInsufficientFunds))
		s.equalAmount(100, s.amountOf(b.BalanceID))
		s.Len(s.store.TopUps(), before)
	})

	s.Run("currency without a usable rate", func() {
		b := s.seed(nil)
		_, err := s.service.TopUp(s.staffCtx, TopUpRequest{ScanID: *b.ScanID, Amount: d(10), Currency: "XXX"})
		s.True(dErrors.HasCode(err, dErrors.CodeConversion))
	})

	s.Run("unknown token", func() {
		_, err := s.service.TopUp(s.staffCtx, TopUpRequest{ScanID: "nobody", Amount: d(10), Currency: "EUR"})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("token and currency are required", func() {
		_, err := s.service.TopUp(s.staffCtx, TopUpRequest{Amount: d(10), Currency: "EUR"})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))

		_, err = s.service.TopUp(s.staffCtx, TopUpRequest{ScanID: "x", Amount: d(10)})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

// -----------------------------------------------------------------------------
// Purchase
// -----------------------------------------------------------------------------

func (s *LedgerServiceSuite) TestPurchase() {
	s.Run("client balance pays the client price", func() {
		b := s.seed(nil)
		receipt, err := s.service.Purchase(s.staffCtx, PurchaseRequest{
			ScanID: *b.ScanID, Lines: []PurchaseLine{{ItemName: "cola", Quantity: 2}},
		})
		s.Require().NoError(err)
		s.equalAmount(28, receipt.Total)
		s.equalAmount(72, receipt.Balance)
		s.equalAmount(72, s.amountOf(b.BalanceID))
		s.Require().Len(receipt.Lines, 1)
		s.Equal("cola", receipt.Lines[0].ItemName)
		s.Equal(2, receipt.Lines[0].Quantity)
	})

	s.Run("staff balance pays the staff price", func() {
		b := s.seed(func(b *models.Balance) { b.MemberID = ptr("m7") })
		receipt, err := s.service.Purchase(s.staffCtx, PurchaseRequest{
			ScanID: *b.ScanID, Lines: []PurchaseLine{{ItemName: "cola", Quantity: 2}},
		})
		s.Require().NoError(err)
		s.equalAmount(14, receipt.Total)
	})

	s.Run("unknown items are dropped", func() {
		b := s.seed(nil)
		before := len(s.store.Transactions())
		receipt, err := s.service.Purchase(s.staffCtx, PurchaseRequest{
			ScanID: *b.ScanID, Lines: []PurchaseLine{{ItemName: "cola", Quantity: 1}, {ItemName: "ghost", Quantity: 3}},
		})
		s.Require().NoError(err)
		s.equalAmount(14, receipt.Total)
		s.Len(s.store.Transactions(), before+1)
	})

	s.Run("total is converted into the balance currency", func() {
		b := s.seed(func(b *models.Balance) { b.Currency = "RON"; b.Amount = d(100) })
		receipt, err := s.service.Purchase(s.staffCtx, PurchaseRequest{
			ScanID: *b.ScanID, Lines: []PurchaseLine{{ItemName: "cola", Quantity: 1}},
		})
		s.Require().NoError(err)
		s.equalAmount(70, receipt.Total)
		s.Equal("RON", receipt.Currency)
		s.equalAmount(30, s.amountOf(b.BalanceID))
		s.equalAmount(14, receipt.Lines[0].Amount)
	})

	s.Run("bonus balance cannot buy ineligible items", func() {
		b := s.seed(func(b *models.Balance) { b.IsBonus = true })
		txBefore, outboxBefore := len(s.store.Transactions()), len(s.outbox.Pending())

		_, err := s.service.Purchase(s.staffCtx, PurchaseRequest{
			ScanID: *b.ScanID, Lines: []PurchaseLine{{ItemName: "cola", Quantity: 1}, {ItemName: "beer", Quantity: 1}},
		})
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
		s.equalAmount(100, s.amountOf(b.BalanceID))
		s.Len(s.store.Transactions(), txBefore)
		s.Len(s.outbox.Pending(), outboxBefore)
	})

	s.Run("bonus balance buys eligible items", func() {
		b := s.seed(func(b *models.Balance) { b.IsBonus = true })
		_, err := s.service.Purchase(s.staffCtx, PurchaseRequest{
			ScanID: *b.ScanID, Lines: []PurchaseLine{{ItemName: "cola", Quantity: 1}},
		})
		s.Require().NoError(err)
	})

	s.Run("balance registered at another event is refused", func() {
		b := s.seed(func(b *models.Balance) { b.EventID = ptr("e2"); b.EventCreated = "e2" })
		_, err := s.service.Purchase(s.staffCtx, PurchaseRequest{
			ScanID: *b.ScanID, Lines: []PurchaseLine{{ItemName: "cola", Quantity: 1}},
		})
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("fidelity card roams and accrues client spend", func() {
		b := s.seed(func(b *models.Balance) { b.EventID = nil; b.EventCreated = "e2"; b.IsFidelityCard = true })
		s.Require().NoError(s.store.InsertClient(context.Background(), &models.Client{
			ClientID: "c1", Company: "acme", BalanceID: b.BalanceID, Name: "Ion",
		}))

		_, err := s.service.Purchase(s.staffCtx, PurchaseRequest{
			ScanID: *b.ScanID, Lines: []PurchaseLine{{ItemName: "beer", Quantity: 3}},
		})
		s.Require().NoError(err)
		client, ok := s.store.ClientByBalance(b.BalanceID)
		s.Require().True(ok)
		s.equalAmount(30, client.AmountSpent)
	})

	s.Run("balance covering the exact total", func() {
		b := s.seed(func(b *models.Balance) { b.Amount = d(0.3) })
		receipt, err := s.service.Purchase(s.staffCtx, PurchaseRequest{
			ScanID: *b.ScanID, Lines: []PurchaseLine{{ItemName: "gum", Quantity: 1}, {ItemName: "mint", Quantity: 1}},
		})
		s.Require().NoError(err)
		s.equalAmount(0.3, receipt.Total)
		s.True(receipt.Balance.IsZero(), receipt.Balance.String())
		s.True(s.amountOf(b.BalanceID).IsZero())
	})

	s.Run("lines carry the item category", func() {
		b := s.seed(nil)
		receipt, err := s.service.Purchase(s.staffCtx, PurchaseRequest{
			ScanID: *b.ScanID, Lines: []PurchaseLine{{ItemName: "beer", Quantity: 1}},
		})
		s.Require().NoError(err)
		s.Require().Len(receipt.Lines, 1)
		s.Equal("drinks", receipt.Lines[0].ItemCategory)
	})

	s.Run("insufficient balance leaves no trace", func() {
		b := s.seed(func(b *models.Balance) { b.Amount = d(20) })
		txBefore := len(s.store.Transactions())
		_, err := s.service.Purchase(s.staffCtx, PurchaseRequest{
			ScanID: *b.ScanID, Lines: []PurchaseLine{{ItemName: "cola", Quantity: 2}},
		})
		s.True(dErrors.HasCode(err, dErrors.CodeInsufficientFunds))
		s.equalAmount(20, s.amountOf(b.BalanceID))
		s.Len(s.store.Transactions(), txBefore)
		s.Equal(1.0, testutil.ToFloat64(s.metrics.LedgerOperations.WithLabelValues("purchase", "insufficient_funds")))
	})

	s.Run("inactive event is not found", func() {
		b := s.seed(nil)
		ctx := requestcontext.WithActor(context.Background(), requestcontext.Member{Company: "acme", EventID: "stopped"})
		_, err := s.service.Purchase(ctx, PurchaseRequest{
			ScanID: *b.ScanID, Lines: []PurchaseLine{{ItemName: "cola", Quantity: 1}},
		})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
		s.equalAmount(100, s.amountOf(b.BalanceID))
	})

	s.Run("invalid lines are rejected", func() {
		_, err := s.service.Purchase(s.staffCtx, PurchaseRequest{ScanID: "x"})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))

		_, err = s.service.Purchase(s.staffCtx, PurchaseRequest{ScanID: "x", Lines: []PurchaseLine{{ItemName: "cola"}}})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))

		_, err = s.service.Purchase(s.staffCtx, PurchaseRequest{ScanID: "x", Lines: []PurchaseLine{{Quantity: 1}}})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *LedgerServiceSuite) TestConcurrentPurchasesNeverOverdraw() {
	b := s.seed(nil)
	req := PurchaseRequest{ScanID: *b.ScanID, Lines: []PurchaseLine{{ItemName: "vip", Quantity: 1}}}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = s.service.Purchase(s.staffCtx, req)
		}()
	}
	wg.Wait()

	var succeeded, refused int
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case dErrors.HasCode(err, dErrors.CodeInsufficientFunds):
			refused++
		default:
			s.Failf("unexpected error", "%v", err)
		}
	}
	s.Equal(1, succeeded)
	s.Equal(1, refused)
	s.equalAmount(40, s.amountOf(b.BalanceID))
}

// -----------------------------------------------------------------------------
// Balance administration
// -----------------------------------------------------------------------------

func (s *LedgerServiceSuite) TestLookup() {
	s.Run("finds the balance of the actor's event", func() {
		b := s.seed(nil)
		got, err := s.service.Lookup(s.staffCtx, models.Token{ScanID: *b.ScanID})
		s.Require().NoError(err)
		s.Equal(b.BalanceID, got.BalanceID)
	})

	s.Run("balance of another event is hidden", func() {
		b := s.seed(func(b *models.Balance) { b.EventID = ptr("e2"); b.EventCreated = "e2" })
		_, err := s.service.Lookup(s.staffCtx, models.Token{ScanID: *b.ScanID})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("administrators see every event", func() {
		b := s.seed(func(b *models.Balance) { b.EventID = ptr("e2"); b.EventCreated = "e2" })
		_, err := s.service.Lookup(s.adminCtx, models.Token{ScanID: *b.ScanID})
		s.NoError(err)
	})

	s.Run("empty token", func() {
		_, err := s.service.Lookup(s.staffCtx, models.Token{})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *LedgerServiceSuite) TestPatchBalance() {
	b := s.seed(nil)

	s.Run("administrator role required", func() {
		_, err := s.service.PatchBalance(s.staffCtx, b.BalanceID, models.BalancePatch{Amount: dp(5)})
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("empty and negative patches are rejected", func() {
		_, err := s.service.PatchBalance(s.adminCtx, b.BalanceID, models.BalancePatch{})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))

		_, err = s.service.PatchBalance(s.adminCtx, b.BalanceID, models.BalancePatch{Amount: dp(-1)})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("applies the correction", func() {
		got, err := s.service.PatchBalance(s.adminCtx, b.BalanceID, models.BalancePatch{Amount: dp(42), MemberID: ptr("m3")})
		s.Require().NoError(err)
		s.equalAmount(42, got.Amount)
		s.Equal("m3", *got.MemberID)
	})

	s.Run("scan id of another balance is a conflict", func() {
		other := s.seed(nil)
		_, err := s.service.PatchBalance(s.adminCtx, b.BalanceID, models.BalancePatch{ScanID: other.ScanID})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("unknown balance", func() {
		_, err := s.service.PatchBalance(s.adminCtx, "missing", models.BalancePatch{Amount: dp(1)})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *LedgerServiceSuite) TestDeleteBalance() {
	s.Run("removes the balance and its top-ups", func() {
		b := s.seed(nil)
		_, err := s.service.TopUp(s.staffCtx, TopUpRequest{ScanID: *b.ScanID, Amount: d(5), Currency: "EUR"})
		s.Require().NoError(err)

		s.Require().NoError(s.service.DeleteBalance(s.adminCtx, b.BalanceID))
		_, err = s.store.FindByID(context.Background(), "acme", b.BalanceID)
		s.ErrorIs(err, sentinel.ErrNotFound)
		for _, t := range s.store.TopUps() {
			s.NotEqual(*b.ScanID, t.ScanID)
		}
	})

	s.Run("fidelity cards are kept", func() {
		b := s.seed(func(b *models.Balance) { b.IsFidelityCard = true })
		err := s.service.DeleteBalance(s.adminCtx, b.BalanceID)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("unknown balance", func() {
		err := s.service.DeleteBalance(s.adminCtx, "missing")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *LedgerServiceSuite) TestDeleteEventBalances() {
	s.seed(nil)
	s.seed(nil)
	card := s.seed(func(b *models.Balance) { b.IsFidelityCard = true })
	other := s.seed(func(b *models.Balance) { b.EventID = ptr("e2"); b.EventCreated = "e2" })

	removed, err := s.service.DeleteEventBalances(s.adminCtx, "e1")
	s.Require().NoError(err)
	s.EqualValues(2, removed)

	left, err := s.service.ListBalances(s.adminCtx, models.Filter{})
	s.Require().NoError(err)
	ids := make([]string, 0, len(left))
	for _, b := range left {
		ids = append(ids, b.BalanceID)
	}
	s.ElementsMatch([]string{card.BalanceID, other.BalanceID}, ids)
}

func (s *LedgerServiceSuite) TestListBalances() {
	s.seed(nil)
	target := s.seed(func(b *models.Balance) { b.EventID = ptr("e2"); b.EventCreated = "e2" })

	s.Run("filters are combined", func() {
		got, err := s.service.ListBalances(s.staffCtx, models.Filter{EventID: "e2"})
		s.Require().NoError(err)
		s.Require().Len(got, 1)
		s.Equal(target.BalanceID, got[0].BalanceID)
	})

	s.Run("page size defaults", func() {
		got, err := s.service.ListBalances(s.staffCtx, models.Filter{})
		s.Require().NoError(err)
		s.Len(got, 2)
	})

	s.Run("negative page", func() {
		_, err := s.service.ListBalances(s.staffCtx, models.Filter{Page: -1})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

// -----------------------------------------------------------------------------
// History
// -----------------------------------------------------------------------------

func (s *LedgerServiceSuite) TestListTopUps() {
	b := s.seed(nil)
	for _, amount := range []float64{5, 25, 50} {
		_, err := s.service.TopUp(s.staffCtx, TopUpRequest{ScanID: *b.ScanID, Amount: d(amount), Currency: "EUR"})
		s.Require().NoError(err)
	}
	_, err := s.service.TopUp(s.staffCtx, TopUpRequest{ScanID: *b.ScanID, Amount: d(30), Currency: "USD"})
	s.Require().NoError(err)

	s.Run("event is required", func() {
		_, err := s.service.ListTopUps(s.adminCtx, models.TopUpFilter{})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("amount bounds and currency narrow the result", func() {
		got, err := s.service.ListTopUps(s.adminCtx, models.TopUpFilter{
			EventID: "e1", Currency: "EUR", MinAmount: dp(10), MaxAmount: dp(40),
		})
		s.Require().NoError(err)
		s.Require().Len(got, 1)
		s.equalAmount(25, got[0].Amount)
	})

	s.Run("inverted bounds are rejected", func() {
		_, err := s.service.ListTopUps(s.adminCtx, models.TopUpFilter{EventID: "e1", MinAmount: dp(40), MaxAmount: dp(10)})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("pages through the event", func() {
		got, err := s.service.ListTopUps(s.adminCtx, models.TopUpFilter{EventID: "e1", ScanID: *b.ScanID, Page: 1, PageSize: 3})
		s.Require().NoError(err)
		s.Len(got, 1)
	})
}

func (s *LedgerServiceSuite) TestListTransactions() {
	b := s.seed(nil)
	_, err := s.service.Purchase(s.staffCtx, PurchaseRequest{
		ScanID: *b.ScanID, Lines: []PurchaseLine{{ItemName: "cola", Quantity: 1}, {ItemName: "gum", Quantity: 2}},
	})
	s.Require().NoError(err)

	s.Run("filters by category", func() {
		got, err := s.service.ListTransactions(s.adminCtx, models.TransactionFilter{ItemCategory: "snacks"})
		s.Require().NoError(err)
		s.Require().Len(got, 1)
		s.Equal("gum", got[0].ItemName)
		s.equalAmount(0.2, got[0].Amount)
	})

	s.Run("filters by scan and event", func() {
		got, err := s.service.ListTransactions(s.staffCtx, models.TransactionFilter{EventID: "e1", ScanID: *b.ScanID})
		s.Require().NoError(err)
		s.Len(got, 2)
	})

	s.Run("other companies see nothing", func() {
		ctx := requestcontext.WithActor(context.Background(), requestcontext.Member{Company: "rival", Role: requestcontext.RoleAdmin})
		got, err := s.service.ListTransactions(ctx, models.TransactionFilter{})
		s.Require().NoError(err)
		s.Empty(got)
	})

	s.Run("date range must be ordered", func() {
		from, to := time.Now(), time.Now().Add(-time.Hour)
		_, err := s.service.ListTransactions(s.adminCtx, models.TransactionFilter{From: &from, To: &to})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

// =============================================================================
// Store failure mapping
// =============================================================================

type LedgerFailureSuite struct {
	suite.Suite
	ctx     context.Context
	ctrl    *gomock.Controller
	store   *mocks.MockStore
	config  *mocks.MockConfigSource
	outbox  *mocks.MockOutbox
	service *Service
	balance *models.Balance
}

func TestLedgerFailureSuite(t *testing.T) {
	suite.Run(t, new(LedgerFailureSuite))
}

func (s *LedgerFailureSuite) SetupTest() {
	s.ctx = requestcontext.WithActor(context.Background(), requestcontext.Member{Company: "acme", MemberID: "m1", EventID: "e1"})
	s.ctrl = gomock.NewController(s.T())
	s.store = mocks.NewMockStore(s.ctrl)
	s.config = mocks.NewMockConfigSource(s.ctrl)
	s.outbox = mocks.NewMockOutbox(s.ctrl)
	svc, err := New(s.store, s.config, s.outbox, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	s.Require().NoError(err)
	s.service = svc
	s.balance = &models.Balance{BalanceID: "b1", Company: "acme", EventCreated: "e1", EventID: ptr("e1"), Currency: "EUR", Amount: d(100), ScanID: ptr("s1")}

	s.config.EXPECT().Config("e1").Return(eventConfig("e1", dp(0)), true).AnyTimes()
	s.store.EXPECT().RunInTx(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, fn func(context.Context) error) error { return fn(ctx) },
	).AnyTimes()
}

func (s *LedgerFailureSuite) TearDownTest() {
	s.ctrl.Finish()
}

// amountIs matches a decimal argument by value, whatever its exponent.
type amountIs float64

func (m amountIs) Matches(x any) bool {
	v, ok := x.(decimal.Decimal)
	return ok && v.Equal(d(float64(m)))
}

func (m amountIs) String() string { return fmt.Sprintf("is amount %v", float64(m)) }

func (s *LedgerFailureSuite) purchase() error {
	_, err := s.service.Purchase(s.ctx, PurchaseRequest{ScanID: "s1", Lines: []PurchaseLine{{ItemName: "cola", Quantity: 1}}})
	return err
}

func (s *LedgerFailureSuite) TestGuardOutcomes() {
	s.Run("row changed underneath is a concurrency conflict", func() {
		s.store.EXPECT().FindByToken(gomock.Any(), "acme", models.Token{ScanID: "s1"}).Return(s.balance, nil)
		s.store.EXPECT().ApplyDelta(gomock.Any(), "acme", "b1", amountIs(-14)).Return(decimal.Zero, sentinel.ErrConflict)
		s.True(dErrors.HasCode(s.purchase(), dErrors.CodeConcurrencyConflict))
	})

	s.Run("failed guard is insufficient funds", func() {
		s.store.EXPECT().FindByToken(gomock.Any(), "acme", models.Token{ScanID: "s1"}).Return(s.balance, nil)
		s.store.EXPECT().ApplyDelta(gomock.Any(), "acme", "b1", amountIs(-14)).Return(decimal.Zero, sentinel.ErrGuardFailed)
		s.True(dErrors.HasCode(s.purchase(), dErrors.CodeInsufficientFunds))
	})

	s.Run("driver failure is internal", func() {
		s.store.EXPECT().FindByToken(gomock.Any(), "acme", models.Token{ScanID: "s1"}).Return(s.balance, nil)
		s.store.EXPECT().ApplyDelta(gomock.Any(), "acme", "b1", amountIs(-14)).Return(decimal.Zero, errors.New("connection reset"))
		s.True(dErrors.HasCode(s.purchase(), dErrors.CodeInternal))
	})
}

func (s *LedgerFailureSuite) TestOutboxFailureFailsTheOperation() {
	s.store.EXPECT().FindByToken(gomock.Any(), "acme", models.Token{ScanID: "s1"}).Return(s.balance, nil)
	s.store.EXPECT().ApplyDelta(gomock.Any(), "acme", "b1", amountIs(-14)).Return(d(86), nil)
	s.store.EXPECT().InsertTransactions(gomock.Any(), gomock.Len(1)).Return(nil)
	s.outbox.EXPECT().Append(gomock.Any(), gomock.Any()).Return(errors.New("disk full"))

	s.True(dErrors.HasCode(s.purchase(), dErrors.CodeInternal))
}

func (s *LedgerFailureSuite) TestReadFailureIsInternal() {
	s.store.EXPECT().FindByToken(gomock.Any(), "acme", gomock.Any()).Return(nil, errors.New("timeout"))
	s.True(dErrors.HasCode(s.purchase(), dErrors.CodeInternal))
}
