package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"cashless/internal/currency"
	"cashless/internal/ledger/models"
	dErrors "cashless/pkg/domain-errors"
	"cashless/pkg/requestcontext"
)

// ClientProfile is the customer registered together with a fidelity card.
type ClientProfile struct {
	Name  string
	Email string
}

// CreateBalanceRequest activates a balance on a token.
type CreateBalanceRequest struct {
	// EventID is used when the actor's token is not scoped to an event.
	EventID            string
	ScanID             string
	TicketID           string
	Amount             decimal.Decimal
	ActivationCurrency string
	IsFidelityCard     bool
	Client             *ClientProfile
}

// CreateStaffBalanceRequest activates a staff bonus balance, authorized by the
// password of any company administrator.
type CreateStaffBalanceRequest struct {
	EventID            string
	AdminPassword      string
	ScanID             string
	TicketID           string
	Amount             decimal.Decimal
	ActivationCurrency string
	IsFidelityCard     bool
}

type activationPayload struct {
	BalanceID          string          `json:"balance_id"`
	EventID            string          `json:"event_id"`
	ScanID             string          `json:"scan_id"`
	Amount             decimal.Decimal `json:"amount"`
	Currency           string          `json:"currency"`
	InitialAmount      decimal.Decimal `json:"initial_amount"`
	ActivationCurrency string          `json:"activation_currency"`
	ActivationCost     decimal.Decimal `json:"activation_cost"`
	IsBonus            bool            `json:"is_bonus"`
	IsFidelityCard     bool            `json:"is_fidelity_card"`
}

// CreateBalance activates a balance. The initial amount is converted into the event
// default currency and the activation cost is deducted; the balance is rejected
// without any write if the remainder is negative or the converted deposit is below
// the event's activation minimum. Administrators create bonus balances.
func (s *Service) CreateBalance(ctx context.Context, req CreateBalanceRequest) (_ *models.Balance, err error) {
	ctx, done := s.observe(ctx, "create_balance")
	defer done(&err)

	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	req.ScanID = strings.TrimSpace(req.ScanID)
	req.TicketID = strings.TrimSpace(req.TicketID)
	if req.ScanID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "scan id is required")
	}
	if req.ActivationCurrency == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "activation currency is required")
	}
	if req.Amount.IsNegative() {
		return nil, dErrors.New(dErrors.CodeValidation, "amount must be a non-negative number")
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
	deposit, err := rates.ToDefault(req.Amount, req.ActivationCurrency)
	if err != nil {
		return nil, err
	}

	cost := ActivationCost(cfg.Event, req.ScanID, req.TicketID, req.IsFidelityCard)
	amount := deposit.Sub(cost)
	if amount.IsNegative() {
		return nil, dErrors.New(dErrors.CodeInsufficientFunds, "cannot create balance, insufficient amount")
	}
	if cfg.Event.ActivationMinimum == nil {
		return nil, dErrors.New(dErrors.CodeActivationPolicy, "activation minimum is not configured for this event")
	}
	if deposit.LessThan(*cfg.Event.ActivationMinimum) {
		return nil, dErrors.Newf(dErrors.CodeActivationPolicy, "amount needs to be at least %s %s",
			cfg.Event.ActivationMinimum.String(), rates.Default())
	}

	b := &models.Balance{
		BalanceID:          uuid.NewString(),
		Company:            actor.Company,
		EventCreated:       eventID,
		Currency:           rates.Default(),
		ActivationCurrency: req.ActivationCurrency,
		Amount:             amount,
		InitialAmount:      req.Amount,
		ActivationCost:     cost,
		IsFidelityCard:     req.IsFidelityCard,
		IsBonus:            actor.IsAdmin(),
		ScanID:             optional(req.ScanID),
		TicketID:           optional(req.TicketID),
		CreatedAt:          requestcontext.Now(ctx),
		CreatedBy:          actor.MemberName,
		CreatedByID:        actor.MemberID,
	}
	if !req.IsFidelityCard {
		b.EventID = optional(eventID)
	}

	err = s.store.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.Create(ctx, b); err != nil {
			return translate(err, "balance not found", "failed to create balance")
		}
		if req.IsFidelityCard && req.Client != nil {
			client := &models.Client{
				ClientID:  uuid.NewString(),
				Company:   actor.Company,
				BalanceID: b.BalanceID,
				Name:      strings.TrimSpace(req.Client.Name),
				Email:     optional(strings.TrimSpace(req.Client.Email)),
				CreatedAt: b.CreatedAt,
			}
			if err := s.store.InsertClient(ctx, client); err != nil {
				return translate(err, "client not found", "failed to register client")
			}
		}
		return s.appendOutbox(ctx, actor.Company, b.BalanceID, models.EventBalanceActivated, activationFrom(b))
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "balance activated",
		"balance_id", b.BalanceID,
		"event_id", eventID,
		"amount", b.Amount,
		"currency", b.Currency,
		"bonus", b.IsBonus,
	)
	return b, nil
}

// CreateStaffBalance activates a bonus balance linked to the acting staff member. No
// activation cost applies.
func (s *Service) CreateStaffBalance(ctx context.Context, req CreateStaffBalanceRequest) (_ *models.Balance, err error) {
	ctx, done := s.observe(ctx, "create_staff_balance")
	defer done(&err)

	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	req.ScanID = strings.TrimSpace(req.ScanID)
	req.TicketID = strings.TrimSpace(req.TicketID)
	switch {
	case req.ScanID == "":
		return nil, dErrors.New(dErrors.CodeValidation, "scan id is required")
	case req.AdminPassword == "":
		return nil, dErrors.New(dErrors.CodeValidation, "admin password is required")
	case req.ActivationCurrency == "":
		return nil, dErrors.New(dErrors.CodeValidation, "activation currency is required")
	case req.Amount.IsNegative():
		return nil, dErrors.New(dErrors.CodeValidation, "amount must be a non-negative number")
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
	amount, err := rates.ToDefault(req.Amount, req.ActivationCurrency)
	if err != nil {
		return nil, err
	}

	adminID, err := s.verifyAdmin(ctx, actor.Company, req.AdminPassword)
	if err != nil {
		return nil, err
	}

	ticketID := req.TicketID
	if ticketID == "" {
		ticketID = req.ScanID
	}
	b := &models.Balance{
		BalanceID:          uuid.NewString(),
		Company:            actor.Company,
		EventID:            optional(eventID),
		EventCreated:       eventID,
		Currency:           rates.Default(),
		ActivationCurrency: req.ActivationCurrency,
		Amount:             amount,
		InitialAmount:      req.Amount,
		IsFidelityCard:     req.IsFidelityCard,
		IsBonus:            true,
		MemberID:           optional(actor.MemberID),
		ScanID:             optional(req.ScanID),
		TicketID:           optional(ticketID),
		CreatedAt:          requestcontext.Now(ctx),
		CreatedBy:          actor.MemberName,
		CreatedByID:        adminID,
	}

	err = s.store.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.Create(ctx, b); err != nil {
			return translate(err, "balance not found", "failed to create staff balance")
		}
		return s.appendOutbox(ctx, actor.Company, b.BalanceID, models.EventBalanceActivated, activationFrom(b))
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "staff balance activated",
		"balance_id", b.BalanceID,
		"event_id", eventID,
		"member_id", actor.MemberID,
		"approved_by", adminID,
	)
	return b, nil
}

// verifyAdmin returns the id of the company administrator whose password matches.
func (s *Service) verifyAdmin(ctx context.Context, company, password string) (string, error) {
	admins, err := s.store.CompanyAdmins(ctx, company)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to read company administrators")
	}
	if len(admins) == 0 {
		return "", dErrors.New(dErrors.CodeNotFound, "admin was not found")
	}
	for _, admin := range admins {
		if bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)) == nil {
			return admin.MemberID, nil
		}
	}
	return "", dErrors.New(dErrors.CodeUnauthorized, "could not authenticate admin")
}

// Lookup reads the balance on a token. When the actor is scoped to an event, a
// non-fidelity balance registered at another event is reported as not found.
func (s *Service) Lookup(ctx context.Context, token models.Token) (_ *models.Balance, err error) {
	ctx, done := s.observe(ctx, "lookup")
	defer done(&err)

	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	if token.IsEmpty() {
		return nil, dErrors.New(dErrors.CodeValidation, "scan id or ticket id is required")
	}
	b, err := s.store.FindByToken(ctx, actor.Company, token)
	if err != nil {
		return nil, translate(err, "balance was not found", "failed to read balance")
	}
	if actor.EventID != "" && !b.BelongsTo(actor.EventID) {
		return nil, dErrors.New(dErrors.CodeNotFound, "balance was not registered in this event")
	}
	return b, nil
}

// PatchBalance applies an administrative correction and returns the updated balance.
func (s *Service) PatchBalance(ctx context.Context, balanceID string, patch models.BalancePatch) (_ *models.Balance, err error) {
	ctx, done := s.observe(ctx, "patch_balance")
	defer done(&err)

	actor, err := requireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return nil, dErrors.New(dErrors.CodeValidation, "no balance field to update")
	}
	if patch.Amount != nil && patch.Amount.IsNegative() {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid balance")
	}
	if patch.ScanID != nil && strings.TrimSpace(*patch.ScanID) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "scan id cannot be empty")
	}

	if err := s.store.Patch(ctx, actor.Company, balanceID, patch); err != nil {
		return nil, translate(err, "balance was not found", "failed to update balance")
	}
	b, err := s.store.FindByID(ctx, actor.Company, balanceID)
	if err != nil {
		return nil, translate(err, "balance was not found", "failed to read balance")
	}
	s.logger.InfoContext(ctx, "balance corrected",
		"balance_id", balanceID,
		"member_id", actor.MemberID,
	)
	return b, nil
}

// DeleteBalance removes a single-event balance together with its top-ups. Fidelity
// cards belong to clients and cannot be deleted here.
func (s *Service) DeleteBalance(ctx context.Context, balanceID string) (err error) {
	ctx, done := s.observe(ctx, "delete_balance")
	defer done(&err)

	actor, err := requireAdmin(ctx)
	if err != nil {
		return err
	}
	return s.store.RunInTx(ctx, func(ctx context.Context) error {
		b, err := s.store.FindByID(ctx, actor.Company, balanceID)
		if err != nil {
			return translate(err, "balance was not found", "failed to read balance")
		}
		if b.IsFidelityCard {
			return dErrors.New(dErrors.CodeForbidden, "could not delete balance, this is a client's balance")
		}
		if err := s.store.Delete(ctx, actor.Company, balanceID); err != nil {
			return translate(err, "balance was not found", "failed to delete balance")
		}
		return nil
	})
}

// DeleteEventBalances removes every single-event balance created at eventID and its
// top-ups, returning how many balances were removed.
func (s *Service) DeleteEventBalances(ctx context.Context, eventID string) (_ int64, err error) {
	ctx, done := s.observe(ctx, "delete_event_balances")
	defer done(&err)

	actor, err := requireAdmin(ctx)
	if err != nil {
		return 0, err
	}
	if eventID == "" {
		return 0, dErrors.New(dErrors.CodeValidation, "event id is required")
	}
	removed, err := s.store.DeleteByEvent(ctx, actor.Company, eventID)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete event balances")
	}
	s.logger.InfoContext(ctx, "event balances deleted",
		"event_id", eventID,
		"removed", removed,
	)
	return removed, nil
}

// ListBalances returns the company's balances matching every present filter field.
func (s *Service) ListBalances(ctx context.Context, f models.Filter) (_ []models.Balance, err error) {
	ctx, done := s.observe(ctx, "list_balances")
	defer done(&err)

	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	if f.PageSize, err = pageSize(f.Page, f.PageSize); err != nil {
		return nil, err
	}

	out, err := s.store.List(ctx, actor.Company, f)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list balances")
	}
	return out, nil
}

func activationFrom(b *models.Balance) activationPayload {
	return activationPayload{
		BalanceID:          b.BalanceID,
		EventID:            b.EventCreated,
		ScanID:             deref(b.ScanID),
		Amount:             b.Amount,
		Currency:           b.Currency,
		InitialAmount:      b.InitialAmount,
		ActivationCurrency: b.ActivationCurrency,
		ActivationCost:     b.ActivationCost,
		IsBonus:            b.IsBonus,
		IsFidelityCard:     b.IsFidelityCard,
	}
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
