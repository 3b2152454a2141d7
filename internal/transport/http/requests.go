package httptransport

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	catalogmodels "cashless/internal/catalog/models"
	"cashless/internal/ledger/models"
	"cashless/internal/ledger/service"
	dErrors "cashless/pkg/domain-errors"
)

// -----------------------------------------------------------------------------
// Balances
// -----------------------------------------------------------------------------

type clientRequest struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"omitempty,email"`
}

// CreateBalanceRequest is the body of POST /balances.
type CreateBalanceRequest struct {
	EventID            string          `json:"event_id"`
	ScanID             string          `json:"scan_id" validate:"required,max=128"`
	TicketID           string          `json:"ticket_id" validate:"max=128"`
	Amount             decimal.Decimal `json:"amount" validate:"gte=0"`
	ActivationCurrency string          `json:"activation_currency" validate:"required,max=8"`
	IsFidelityCard     bool            `json:"is_fidelity_card"`
	Client             *clientRequest  `json:"client"`
}

func (r *CreateBalanceRequest) Prepare() error {
	r.ScanID = strings.TrimSpace(r.ScanID)
	r.TicketID = strings.TrimSpace(r.TicketID)
	r.ActivationCurrency = normalizeCode(r.ActivationCurrency)
	if r.Client != nil && !r.IsFidelityCard {
		return dErrors.New(dErrors.CodeValidation, "client details are only accepted for fidelity cards")
	}
	return nil
}

func (r *CreateBalanceRequest) toService() service.CreateBalanceRequest {
	req := service.CreateBalanceRequest{
		EventID:            r.EventID,
		ScanID:             r.ScanID,
		TicketID:           r.TicketID,
		Amount:             r.Amount,
		ActivationCurrency: r.ActivationCurrency,
		IsFidelityCard:     r.IsFidelityCard,
	}
	if r.Client != nil {
		req.Client = &service.ClientProfile{Name: r.Client.Name, Email: r.Client.Email}
	}
	return req
}

// CreateStaffBalanceRequest is the body of POST /balances/staff.
type CreateStaffBalanceRequest struct {
	EventID            string          `json:"event_id"`
	AdminPassword      string          `json:"admin_password" validate:"required"`
	ScanID             string          `json:"scan_id" validate:"required,max=128"`
	TicketID           string          `json:"ticket_id" validate:"max=128"`
	Amount             decimal.Decimal `json:"amount" validate:"gte=0"`
	ActivationCurrency string          `json:"activation_currency" validate:"required,max=8"`
	IsFidelityCard     bool            `json:"is_fidelity_card"`
}

func (r *CreateStaffBalanceRequest) Prepare() error {
	r.ScanID = strings.TrimSpace(r.ScanID)
	r.TicketID = strings.TrimSpace(r.TicketID)
	r.ActivationCurrency = normalizeCode(r.ActivationCurrency)
	return nil
}

func (r *CreateStaffBalanceRequest) toService() service.CreateStaffBalanceRequest {
	return service.CreateStaffBalanceRequest{
		EventID:            r.EventID,
		AdminPassword:      r.AdminPassword,
		ScanID:             r.ScanID,
		TicketID:           r.TicketID,
		Amount:             r.Amount,
		ActivationCurrency: r.ActivationCurrency,
		IsFidelityCard:     r.IsFidelityCard,
	}
}

// PatchBalanceRequest is the body of PATCH /balances/{id}.
type PatchBalanceRequest struct {
	Amount   *decimal.Decimal `json:"balance" validate:"omitempty,gte=0"`
	MemberID *string          `json:"member_id"`
	ScanID   *string          `json:"scan_id"`
}

func (r *PatchBalanceRequest) toModel() models.BalancePatch {
	p := models.BalancePatch{Amount: r.Amount, MemberID: r.MemberID}
	if r.ScanID != nil {
		trimmed := strings.TrimSpace(*r.ScanID)
		p.ScanID = &trimmed
	}
	return p
}

// -----------------------------------------------------------------------------
// Payments
// -----------------------------------------------------------------------------

// TopUpRequest is the body of POST /top-ups. Negative amounts are administrative
// corrections.
type TopUpRequest struct {
	ScanID     string          `json:"scan_id" validate:"required_without=TicketID,max=128"`
	TicketID   string          `json:"ticket_id" validate:"max=128"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency" validate:"required,max=8"`
	Date       *time.Time      `json:"date"`
	EventID    string          `json:"event_id"`
	MemberID   string          `json:"member_id"`
	MemberName string          `json:"member_name"`
}

func (r *TopUpRequest) Prepare() error {
	r.Currency = normalizeCode(r.Currency)
	if r.Amount.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "amount cannot be zero")
	}
	return nil
}

func (r *TopUpRequest) toService() service.TopUpRequest {
	return service.TopUpRequest{
		ScanID:     r.ScanID,
		TicketID:   r.TicketID,
		Amount:     r.Amount,
		Currency:   r.Currency,
		Date:       r.Date,
		EventID:    r.EventID,
		MemberID:   r.MemberID,
		MemberName: r.MemberName,
	}
}

type purchaseLine struct {
	Name     string `json:"name" validate:"required"`
	Quantity int    `json:"quantity" validate:"gt=0"`
}

// PurchaseRequest is the body of POST /transactions.
type PurchaseRequest struct {
	ScanID  string         `json:"scan_id" validate:"required,max=128"`
	EventID string         `json:"event_id"`
	Items   []purchaseLine `json:"items" validate:"required,min=1,dive"`
}

func (r *PurchaseRequest) toService() service.PurchaseRequest {
	lines := make([]service.PurchaseLine, 0, len(r.Items))
	for _, it := range r.Items {
		lines = append(lines, service.PurchaseLine{ItemName: it.Name, Quantity: it.Quantity})
	}
	return service.PurchaseRequest{ScanID: r.ScanID, EventID: r.EventID, Lines: lines}
}

// -----------------------------------------------------------------------------
// Catalog
// -----------------------------------------------------------------------------

// CreateEventRequest is the body of POST /events.
type CreateEventRequest struct {
	Name              string           `json:"event_name" validate:"required,max=200"`
	Description       string           `json:"event_description"`
	StartDate         *time.Time       `json:"start_date"`
	CardPrice         *decimal.Decimal `json:"card_price" validate:"omitempty,gte=0"`
	TagPrice          *decimal.Decimal `json:"tag_price" validate:"omitempty,gte=0"`
	TicketPrice       *decimal.Decimal `json:"ticket_price" validate:"omitempty,gte=0"`
	ActivationMinimum *decimal.Decimal `json:"activation_minimum" validate:"omitempty,gte=0"`
	TicketingEventID  *string          `json:"ticketing_event_id"`
}

func (r *CreateEventRequest) toModel(company string) catalogmodels.Event {
	return catalogmodels.Event{
		Company:           company,
		Name:              r.Name,
		Description:       r.Description,
		StartDate:         r.StartDate,
		CardPrice:         r.CardPrice,
		TagPrice:          r.TagPrice,
		TicketPrice:       r.TicketPrice,
		ActivationMinimum: r.ActivationMinimum,
		TicketingEventID:  r.TicketingEventID,
	}
}

// PatchEventRequest is the body of PATCH /events/{id}.
type PatchEventRequest struct {
	Name              *string          `json:"event_name"`
	Description       *string          `json:"event_description"`
	StartDate         *time.Time       `json:"start_date"`
	Status            *string          `json:"event_status" validate:"omitempty,oneof=active inactive"`
	CardPrice         *decimal.Decimal `json:"card_price" validate:"omitempty,gte=0"`
	TagPrice          *decimal.Decimal `json:"tag_price" validate:"omitempty,gte=0"`
	TicketPrice       *decimal.Decimal `json:"ticket_price" validate:"omitempty,gte=0"`
	ActivationMinimum *decimal.Decimal `json:"activation_minimum" validate:"omitempty,gte=0"`
}

func (r *PatchEventRequest) toModel() catalogmodels.EventPatch {
	p := catalogmodels.EventPatch{
		Name:              r.Name,
		Description:       r.Description,
		StartDate:         r.StartDate,
		CardPrice:         r.CardPrice,
		TagPrice:          r.TagPrice,
		TicketPrice:       r.TicketPrice,
		ActivationMinimum: r.ActivationMinimum,
	}
	if r.Status != nil {
		status := catalogmodels.EventStatus(*r.Status)
		p.Status = &status
	}
	return p
}

type itemRequest struct {
	Name           string          `json:"item_name" validate:"required,max=200"`
	Price          decimal.Decimal `json:"item_price" validate:"gte=0"`
	StaffPrice     decimal.Decimal `json:"staff_price" validate:"gte=0"`
	Tax            float64         `json:"item_tax" validate:"gte=0"`
	Category       string          `json:"item_category"`
	BonusAvailable *bool           `json:"bonus_available"`
}

// UpsertItemsRequest is the body of POST /events/{id}/items.
type UpsertItemsRequest struct {
	Items []itemRequest `json:"items" validate:"required,min=1,dive"`
}

func (r *UpsertItemsRequest) toModel() []catalogmodels.Item {
	out := make([]catalogmodels.Item, 0, len(r.Items))
	for _, it := range r.Items {
		bonus := true
		if it.BonusAvailable != nil {
			bonus = *it.BonusAvailable
		}
		out = append(out, catalogmodels.Item{
			Name:           it.Name,
			Price:          it.Price,
			StaffPrice:     it.StaffPrice,
			Tax:            it.Tax,
			Category:       it.Category,
			BonusAvailable: bonus,
		})
	}
	return out
}

// PatchItemRequest is the body of PATCH /events/{id}/items. Name selects the item,
// NewName renames it.
type PatchItemRequest struct {
	Name           string           `json:"item_name" validate:"required"`
	NewName        *string          `json:"new_item_name"`
	Price          *decimal.Decimal `json:"item_price" validate:"omitempty,gte=0"`
	StaffPrice     *decimal.Decimal `json:"staff_price" validate:"omitempty,gte=0"`
	Tax            *float64         `json:"item_tax" validate:"omitempty,gte=0"`
	Category       *string          `json:"item_category"`
	BonusAvailable *bool            `json:"bonus_available"`
}

func (r *PatchItemRequest) toModel() catalogmodels.ItemPatch {
	return catalogmodels.ItemPatch{
		Name:           r.NewName,
		Price:          r.Price,
		StaffPrice:     r.StaffPrice,
		Tax:            r.Tax,
		Category:       r.Category,
		BonusAvailable: r.BonusAvailable,
	}
}

type currencyRequest struct {
	CurrencyID  string    `json:"currency_id" validate:"omitempty,uuid"`
	Code        string    `json:"currency" validate:"required,max=8"`
	Rate        float64   `json:"rate" validate:"gt=0"`
	MarketRate  float64   `json:"market_rate" validate:"gte=0"`
	IsDefault   bool      `json:"is_default"`
	QuickPrices []float64 `json:"quick_prices" validate:"dive,gte=0"`
}

// ReplaceCurrenciesRequest is the body of PUT /events/{id}/currencies.
type ReplaceCurrenciesRequest struct {
	Currencies []currencyRequest `json:"currencies" validate:"required,min=1,dive"`
}

func (r *ReplaceCurrenciesRequest) toModel() []catalogmodels.Currency {
	out := make([]catalogmodels.Currency, 0, len(r.Currencies))
	for _, c := range r.Currencies {
		out = append(out, catalogmodels.Currency{
			CurrencyID:  c.CurrencyID,
			Code:        normalizeCode(c.Code),
			Rate:        c.Rate,
			MarketRate:  c.MarketRate,
			IsDefault:   c.IsDefault,
			QuickPrices: c.QuickPrices,
		})
	}
	return out
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
