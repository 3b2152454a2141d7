package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"cashless/internal/currency"
	"cashless/internal/ledger/models"
	dErrors "cashless/pkg/domain-errors"
	"cashless/pkg/requestcontext"
)

// TopUpRequest credits (or, for corrections, debits) a balance.
type TopUpRequest struct {
	ScanID   string
	TicketID string
	Amount   decimal.Decimal
	Currency string
	// Date defaults to the request time.
	Date *time.Time

	// EventID selects the event whose rates apply when an administrator acts.
	EventID string
	// MemberID and MemberName attribute an administrator's correction of a
	// non-bonus balance to the staff member it is made for.
	MemberID   string
	MemberName string
}

// PurchaseLine is one requested item.
type PurchaseLine struct {
	ItemName string
	Quantity int
}

// PurchaseRequest debits a balance for a list of items at the actor's event.
type PurchaseRequest struct {
	ScanID string
	Lines  []PurchaseLine
	// EventID is used when the actor's token is not scoped to an event.
	EventID string
}

// Receipt is the outcome of a committed purchase.
type Receipt struct {
	BalanceID string
	// Total is the debited amount in the balance currency.
	Total    decimal.Decimal
	Currency string
	Balance  decimal.Decimal
	Lines    []models.Transaction
}

type topUpPayload struct {
	BalanceID string          `json:"balance_id"`
	TopUpID   string          `json:"top_up_id"`
	EventID   string          `json:"event_id"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Credited  decimal.Decimal `json:"credited"`
	Balance   decimal.Decimal `json:"balance"`
	MemberID  string          `json:"member_id"`
}

type purchasePayload struct {
	BalanceID string          `json:"balance_id"`
	EventID   string          `json:"event_id"`
	Total     decimal.Decimal `json:"total"`
	Currency  string          `json:"currency"`
	Balance   decimal.Decimal `json:"balance"`
	Items     []purchaseItem  `json:"items"`
}

type purchaseItem struct {
	Name     string          `json:"name"`
	Category string          `json:"category,omitempty"`
	Quantity int             `json:"quantity"`
	Amount   decimal.Decimal `json:"amount"`
}

// TopUp credits a balance with an amount stated in any currency of the event. The
// amount is converted into the balance's own currency through the event default.
//
// Only administrators may top up bonus balances. An administrator topping up a
// non-bonus balance is correcting it and must name the staff member the correction
// is recorded for. Only those corrections may be negative, and they never take the
// balance below zero; everyone else must top up a strictly positive amount.
func (s *Service) TopUp(ctx context.Context, req TopUpRequest) (_ *models.Balance, err error) {
	ctx, done := s.observe(ctx, "top_up")
	defer done(&err)

	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	token := models.Token{ScanID: strings.TrimSpace(req.ScanID), TicketID: strings.TrimSpace(req.TicketID)}
	switch {
	case token.IsEmpty():
		return nil, dErrors.New(dErrors.CodeValidation, "scan id or ticket id is required")
	case req.Currency == "":
		return nil, dErrors.New(dErrors.CodeValidation, "top-up currency is required")
	case !actor.IsAdmin() && !req.Amount.IsPositive():
		return nil, dErrors.New(dErrors.CodeValidation, "top-up amount must be positive")
	}

	eventID := actor.EventID
	if actor.IsAdmin() {
		eventID = req.EventID
	}
	cfg, err := s.runningEvent(eventID)
	if err != nil {
		return nil, err
	}
	rates, err := currency.NewRates(cfg.Currencies)
	if err != nil {
		return nil, err
	}
	if !rates.Has(req.Currency) {
		return nil, dErrors.Newf(dErrors.CodeConversion, "currency %s is not accepted at this event", req.Currency)
	}

	b, err := s.store.FindByToken(ctx, actor.Company, token)
	if err != nil {
		return nil, translate(err, "balance was not found", "failed to read balance")
	}

	memberID, memberName := actor.MemberID, actor.MemberName
	switch {
	case actor.IsAdmin() && !b.IsBonus:
		if req.MemberID == "" || req.MemberName == "" {
			return nil, dErrors.New(dErrors.CodeForbidden, "admin corrections of non-bonus balances must name a member")
		}
		memberID, memberName = req.MemberID, req.MemberName
	case !actor.IsAdmin() && b.IsBonus:
		return nil, dErrors.New(dErrors.CodeForbidden, "cannot top up bonus balance")
	}

	credit, err := rates.Convert(req.Amount, req.Currency, b.Currency)
	if err != nil {
		return nil, err
	}
	if b.Amount.Add(credit).IsNegative() {
		return nil, dErrors.New(dErrors.CodeInsufficientFunds, "subtraction is greater than current balance")
	}

	date := requestcontext.Now(ctx)
	if req.Date != nil {
		date = *req.Date
	}
	topUp := &models.TopUp{
		TopUpID:    uuid.NewString(),
		Company:    actor.Company,
		EventID:    eventID,
		ScanID:     deref(b.ScanID),
		MemberID:   memberID,
		MemberName: memberName,
		Amount:     req.Amount,
		Currency:   req.Currency,
		Date:       date,
	}

	err = s.store.RunInTx(ctx, func(ctx context.Context) error {
		next, err := s.applyDelta(ctx, b, credit)
		if err != nil {
			return err
		}
		b.Amount = next
		if err := s.store.InsertTopUp(ctx, topUp); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record top-up")
		}
		return s.appendOutbox(ctx, actor.Company, b.BalanceID, models.EventBalanceToppedUp, topUpPayload{
			BalanceID: b.BalanceID,
			TopUpID:   topUp.TopUpID,
			EventID:   eventID,
			Amount:    req.Amount,
			Currency:  req.Currency,
			Credited:  credit,
			Balance:   next,
			MemberID:  memberID,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "balance topped up",
		"balance_id", b.BalanceID,
		"event_id", eventID,
		"credited", credit,
		"currency", b.Currency,
	)
	return b, nil
}

// Purchase debits a balance for items sold at the actor's event.
//
// Lines are priced from the cached item table at staff price for staff balances and
// at client price otherwise. Item names the event does not sell are dropped from the
// purchase. A bonus balance may only buy bonus-eligible items. The total, in the event
// default currency, is converted into the balance currency before the guarded debit.
func (s *Service) Purchase(ctx context.Context, req PurchaseRequest) (_ *Receipt, err error) {
	ctx, done := s.observe(ctx, "purchase")
	defer done(&err)

	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.ScanID) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "scan id is required")
	}
	if len(req.Lines) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "at least one item is required")
	}
	for _, line := range req.Lines {
		if line.ItemName == "" {
			return nil, dErrors.New(dErrors.CodeValidation, "invalid transaction items")
		}
		if line.Quantity <= 0 {
			return nil, dErrors.New(dErrors.CodeValidation, "invalid transaction, invalid quantity")
		}
	}

	eventID := actor.EventID
	if eventID == "" {
		eventID = req.EventID
	}
	cfg, err := s.runningEvent(eventID)
	if err != nil {
		return nil, err
	}
	rates, err := currency.NewRates(cfg.Currencies)
	if err != nil {
		return nil, err
	}

	b, err := s.store.FindByToken(ctx, actor.Company, models.Token{ScanID: strings.TrimSpace(req.ScanID)})
	if err != nil {
		return nil, translate(err, "balance was not found", "failed to read balance")
	}
	if !b.BelongsTo(eventID) {
		return nil, dErrors.New(dErrors.CodeForbidden, "this tag is not registered in this event")
	}

	now := requestcontext.Now(ctx)
	var (
		total decimal.Decimal
		lines []models.Transaction
	)
	for _, line := range req.Lines {
		item, ok := cfg.Items[line.ItemName]
		if !ok {
			continue
		}
		if b.IsBonus && !item.BonusAvailable {
			return nil, dErrors.Newf(dErrors.CodeForbidden, "%s can't be purchased by bonus balances", line.ItemName)
		}
		unit := item.Price
		if b.IsStaff() {
			unit = item.StaffPrice
		}
		amount := unit.Mul(decimal.NewFromInt(int64(line.Quantity)))
		total = total.Add(amount)
		lines = append(lines, models.Transaction{
			TransactionID: uuid.NewString(),
			Company:       actor.Company,
			EventID:       eventID,
			ScanID:        deref(b.ScanID),
			MemberID:      actor.MemberID,
			MemberName:    actor.MemberName,
			ItemName:      line.ItemName,
			ItemCategory:  item.Category,
			Quantity:      line.Quantity,
			Amount:        amount,
			Date:          now,
		})
	}

	debit := total
	if b.Currency != rates.Default() {
		if debit, err = rates.FromDefaultTo(total, b.Currency); err != nil {
			return nil, err
		}
	}
	if b.Amount.LessThan(debit) {
		return nil, dErrors.New(dErrors.CodeInsufficientFunds, "insufficient amount")
	}

	receipt := &Receipt{BalanceID: b.BalanceID, Total: debit, Currency: b.Currency, Lines: lines}
	err = s.store.RunInTx(ctx, func(ctx context.Context) error {
		next, err := s.applyDelta(ctx, b, debit.Neg())
		if err != nil {
			return err
		}
		receipt.Balance = next
		if len(lines) > 0 {
			if err := s.store.InsertTransactions(ctx, lines); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record transaction")
			}
		}
		if b.IsFidelityCard {
			if err := s.store.AddClientSpend(ctx, actor.Company, b.BalanceID, debit); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update client spend")
			}
		}
		return s.appendOutbox(ctx, actor.Company, b.BalanceID, models.EventPurchaseRecorded, purchaseFrom(eventID, receipt))
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "purchase recorded",
		"balance_id", b.BalanceID,
		"event_id", eventID,
		"total", debit,
		"currency", b.Currency,
		"lines", len(lines),
	)
	return receipt, nil
}

func purchaseFrom(eventID string, r *Receipt) purchasePayload {
	items := make([]purchaseItem, 0, len(r.Lines))
	for _, l := range r.Lines {
		items = append(items, purchaseItem{Name: l.ItemName, Category: l.ItemCategory, Quantity: l.Quantity, Amount: l.Amount})
	}
	return purchasePayload{
		BalanceID: r.BalanceID,
		EventID:   eventID,
		Total:     r.Total,
		Currency:  r.Currency,
		Balance:   r.Balance,
		Items:     items,
	}
}
