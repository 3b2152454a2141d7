//go:build integration

package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"cashless/internal/ledger/models"
	"cashless/internal/ledger/store"
	"cashless/pkg/platform/sentinel"
	"cashless/pkg/testutil/containers"
)

type LedgerPostgresSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
	eventID  string
}

func TestLedgerPostgresSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(LedgerPostgresSuite))
}

func (s *LedgerPostgresSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *LedgerPostgresSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(),
		"balances", "top_ups", "transactions", "clients", "staff_members", "ledger_outbox"))
	s.eventID = uuid.NewString()
}

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func (s *LedgerPostgresSuite) create(amount string, mod func(b *models.Balance)) *models.Balance {
	scan := "scan-" + uuid.NewString()
	b := &models.Balance{
		BalanceID:          uuid.NewString(),
		Company:            "acme",
		EventID:            &s.eventID,
		EventCreated:       s.eventID,
		Currency:           "EUR",
		ActivationCurrency: "EUR",
		Amount:             dec(amount),
		InitialAmount:      dec(amount),
		ScanID:             &scan,
		CreatedAt:          time.Now().UTC().Truncate(time.Microsecond),
		CreatedBy:          "Ana",
		CreatedByID:        "m1",
	}
	if mod != nil {
		mod(b)
	}
	s.Require().NoError(s.store.Create(context.Background(), b))
	return b
}

func (s *LedgerPostgresSuite) assertAmount(want, balanceID string) {
	s.T().Helper()
	b, err := s.store.FindByID(context.Background(), "acme", balanceID)
	s.Require().NoError(err)
	s.True(b.Amount.Equal(dec(want)), "want %s, got %s", want, b.Amount)
}

func (s *LedgerPostgresSuite) TestConcurrentDebitsNeverOverdraw() {
	b := s.create("100", nil)

	const attempts = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		ok      int
		guarded int
	)
	for n := 0; n < attempts; n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.store.RunInTx(context.Background(), func(ctx context.Context) error {
				_, err := s.store.ApplyDelta(ctx, "acme", b.BalanceID, dec("-60"))
				return err
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, sentinel.ErrGuardFailed):
				guarded++
			default:
				s.Failf("unexpected error", "%v", err)
			}
		}()
	}
	wg.Wait()

	s.Equal(1, ok)
	s.Equal(attempts-1, guarded)
	s.assertAmount("40", b.BalanceID)
}

func (s *LedgerPostgresSuite) TestFailedTransactionLeavesNoTrace() {
	b := s.create("50", nil)
	failure := errors.New("rejected after debit")

	err := s.store.RunInTx(context.Background(), func(ctx context.Context) error {
		if _, err := s.store.ApplyDelta(ctx, "acme", b.BalanceID, dec("-20")); err != nil {
			return err
		}
		if err := s.store.InsertTransactions(ctx, []models.Transaction{{
			TransactionID: uuid.NewString(), Company: "acme", EventID: s.eventID, ScanID: *b.ScanID,
			MemberID: "m1", MemberName: "Ana", ItemName: "cola", ItemCategory: "drinks", Quantity: 1, Amount: dec("20"), Date: time.Now(),
		}}); err != nil {
			return err
		}
		return failure
	})
	s.ErrorIs(err, failure)
	s.assertAmount("50", b.BalanceID)

	var count int
	s.Require().NoError(s.postgres.DB.QueryRow(`SELECT count(*) FROM transactions`).Scan(&count))
	s.Zero(count)
}

func (s *LedgerPostgresSuite) TestFindByToken() {
	ticket := "ticket-1"
	b := s.create("10", func(b *models.Balance) { b.TicketID = &ticket })

	got, err := s.store.FindByToken(context.Background(), "acme", models.Token{TicketID: ticket})
	s.Require().NoError(err)
	s.Equal(b.BalanceID, got.BalanceID)

	_, err = s.store.FindByToken(context.Background(), "other", models.Token{TicketID: ticket})
	s.ErrorIs(err, sentinel.ErrNotFound)

	_, err = s.store.FindByToken(context.Background(), "acme", models.Token{ScanID: "nobody"})
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *LedgerPostgresSuite) TestDuplicateScanID() {
	b := s.create("10", nil)
	dup := *b
	dup.BalanceID = uuid.NewString()
	err := s.store.Create(context.Background(), &dup)
	s.ErrorIs(err, sentinel.ErrAlreadyUsed)
}

func (s *LedgerPostgresSuite) TestDeleteByEventKeepsFidelityCards() {
	ctx := context.Background()
	tag := s.create("10", nil)
	card := s.create("10", func(b *models.Balance) { b.IsFidelityCard = true; b.EventID = nil })
	s.Require().NoError(s.store.InsertTopUp(ctx, &models.TopUp{
		TopUpID: uuid.NewString(), Company: "acme", EventID: s.eventID, ScanID: *tag.ScanID,
		MemberID: "m1", MemberName: "Ana", Amount: dec("5"), Currency: "EUR", Date: time.Now(),
	}))

	removed, err := s.store.DeleteByEvent(ctx, "acme", s.eventID)
	s.Require().NoError(err)
	s.EqualValues(1, removed)

	_, err = s.store.FindByID(ctx, "acme", tag.BalanceID)
	s.ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.store.FindByID(ctx, "acme", card.BalanceID)
	s.NoError(err)

	var topUps int
	s.Require().NoError(s.postgres.DB.QueryRow(`SELECT count(*) FROM top_ups`).Scan(&topUps))
	s.Zero(topUps)

	s.ErrorIs(s.store.Delete(ctx, "acme", card.BalanceID), sentinel.ErrNotFound)
}

func (s *LedgerPostgresSuite) TestClientSpend() {
	ctx := context.Background()
	card := s.create("100", func(b *models.Balance) { b.IsFidelityCard = true })
	email := "ion@example.com"
	s.Require().NoError(s.store.InsertClient(ctx, &models.Client{
		ClientID: uuid.NewString(), Company: "acme", BalanceID: card.BalanceID, Name: "Ion", Email: &email, CreatedAt: time.Now(),
	}))
	s.Require().NoError(s.store.AddClientSpend(ctx, "acme", card.BalanceID, dec("12.5")))
	s.Require().NoError(s.store.AddClientSpend(ctx, "acme", card.BalanceID, dec("7.5")))

	var spent decimal.Decimal
	s.Require().NoError(s.postgres.DB.QueryRow(
		`SELECT amount_spent FROM clients WHERE balance_id = $1`, card.BalanceID).Scan(&spent))
	s.True(spent.Equal(dec("20")), spent.String())
}

func (s *LedgerPostgresSuite) TestListAndPatch() {
	ctx := context.Background()
	first := s.create("10", nil)
	s.create("20", func(b *models.Balance) { b.IsFidelityCard = true })

	cards := true
	got, err := s.store.List(ctx, "acme", models.Filter{EventID: s.eventID, IsFidelityCard: &cards, PageSize: 10})
	s.Require().NoError(err)
	s.Len(got, 1)

	amount, member := dec("99"), "m5"
	s.Require().NoError(s.store.Patch(ctx, "acme", first.BalanceID, models.BalancePatch{Amount: &amount, MemberID: &member}))
	b, err := s.store.FindByID(ctx, "acme", first.BalanceID)
	s.Require().NoError(err)
	s.True(b.Amount.Equal(dec("99")))
	s.Equal("m5", *b.MemberID)
}

func (s *LedgerPostgresSuite) TestExactBalanceDebit() {
	b := s.create("0.3", nil)

	next, err := s.store.ApplyDelta(context.Background(), "acme", b.BalanceID, dec("0.1").Add(dec("0.2")).Neg())
	s.Require().NoError(err)
	s.True(next.IsZero(), next.String())

	_, err = s.store.ApplyDelta(context.Background(), "acme", b.BalanceID, dec("-0.01"))
	s.ErrorIs(err, sentinel.ErrGuardFailed)
	s.assertAmount("0", b.BalanceID)
}

func (s *LedgerPostgresSuite) TestHistory() {
	ctx := context.Background()
	b := s.create("100", nil)
	day := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i, amount := range []string{"5", "25", "50"} {
		s.Require().NoError(s.store.InsertTopUp(ctx, &models.TopUp{
			TopUpID: uuid.NewString(), Company: "acme", EventID: s.eventID, ScanID: *b.ScanID,
			MemberID: "m1", MemberName: "Ana", Amount: dec(amount), Currency: "EUR",
			Date: day.Add(time.Duration(i) * time.Hour),
		}))
	}
	s.Require().NoError(s.store.InsertTransactions(ctx, []models.Transaction{
		{TransactionID: uuid.NewString(), Company: "acme", EventID: s.eventID, ScanID: *b.ScanID, MemberID: "m1",
			MemberName: "Ana", ItemName: "cola", ItemCategory: "drinks", Quantity: 2, Amount: dec("28"), Date: day},
		{TransactionID: uuid.NewString(), Company: "acme", EventID: s.eventID, ScanID: *b.ScanID, MemberID: "m1",
			MemberName: "Ana", ItemName: "gum", ItemCategory: "snacks", Quantity: 1, Amount: dec("0.1"), Date: day},
	}))

	floor := dec("10")
	from := day.Add(30 * time.Minute)
	topUps, err := s.store.ListTopUps(ctx, "acme", models.TopUpFilter{
		EventID: s.eventID, MinAmount: &floor, From: &from, PageSize: 10,
	})
	s.Require().NoError(err)
	s.Require().Len(topUps, 2)
	s.True(topUps[0].Amount.Equal(dec("50")), "newest first")

	lines, err := s.store.ListTransactions(ctx, "acme", models.TransactionFilter{
		EventID: s.eventID, ItemCategory: "snacks", PageSize: 10,
	})
	s.Require().NoError(err)
	s.Require().Len(lines, 1)
	s.Equal("gum", lines[0].ItemName)
	s.True(lines[0].Amount.Equal(dec("0.1")))
}
