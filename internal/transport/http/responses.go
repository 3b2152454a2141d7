package httptransport

import (
	"time"

	"github.com/shopspring/decimal"

	catalogmodels "cashless/internal/catalog/models"
	"cashless/internal/ledger/models"
	"cashless/internal/ledger/service"
)

// BalanceResponse carries amounts as decimal strings.
type BalanceResponse struct {
	BalanceID          string          `json:"balance_id"`
	EventID            *string         `json:"event_id"`
	EventCreated       string          `json:"event_created"`
	Currency           string          `json:"event_currency"`
	ActivationCurrency string          `json:"activation_currency"`
	Balance            decimal.Decimal `json:"balance"`
	InitialAmount      decimal.Decimal `json:"initial_amount"`
	ActivationCost     decimal.Decimal `json:"activation_cost"`
	IsFidelityCard     bool            `json:"is_fidelity_card"`
	IsBonus            bool            `json:"is_bonus"`
	MemberID           *string         `json:"member_id,omitempty"`
	ScanID             *string         `json:"scan_id,omitempty"`
	TicketID           *string         `json:"ticket_id,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	CreatedBy          string          `json:"created_by"`
}

func balanceFrom(b *models.Balance) BalanceResponse {
	return BalanceResponse{
		BalanceID:          b.BalanceID,
		EventID:            b.EventID,
		EventCreated:       b.EventCreated,
		Currency:           b.Currency,
		ActivationCurrency: b.ActivationCurrency,
		Balance:            b.Amount,
		InitialAmount:      b.InitialAmount,
		ActivationCost:     b.ActivationCost,
		IsFidelityCard:     b.IsFidelityCard,
		IsBonus:            b.IsBonus,
		MemberID:           b.MemberID,
		ScanID:             b.ScanID,
		TicketID:           b.TicketID,
		CreatedAt:          b.CreatedAt,
		CreatedBy:          b.CreatedBy,
	}
}

type BalanceListResponse struct {
	Balances []BalanceResponse `json:"balances"`
	Page     int               `json:"page"`
	Count    int               `json:"count"`
}

type ReceiptLine struct {
	TransactionID string          `json:"transaction_id"`
	ItemName      string          `json:"item_name"`
	ItemCategory  string          `json:"item_category,omitempty"`
	Quantity      int             `json:"quantity"`
	Amount        decimal.Decimal `json:"amount"`
}

type ReceiptResponse struct {
	BalanceID string          `json:"balance_id"`
	Total     decimal.Decimal `json:"total"`
	Currency  string          `json:"currency"`
	Balance   decimal.Decimal `json:"balance"`
	Lines     []ReceiptLine   `json:"transactions"`
}

func receiptFrom(r *service.Receipt) ReceiptResponse {
	lines := make([]ReceiptLine, 0, len(r.Lines))
	for _, l := range r.Lines {
		lines = append(lines, ReceiptLine{
			TransactionID: l.TransactionID,
			ItemName:      l.ItemName,
			ItemCategory:  l.ItemCategory,
			Quantity:      l.Quantity,
			Amount:        l.Amount,
		})
	}
	return ReceiptResponse{
		BalanceID: r.BalanceID,
		Total:     r.Total,
		Currency:  r.Currency,
		Balance:   r.Balance,
		Lines:     lines,
	}
}

type EventResponse struct {
	EventID           string           `json:"event_id"`
	Name              string           `json:"event_name"`
	Description       string           `json:"event_description"`
	Status            string           `json:"event_status"`
	StartDate         *time.Time       `json:"start_date,omitempty"`
	CardPrice         *decimal.Decimal `json:"card_price"`
	TagPrice          *decimal.Decimal `json:"tag_price"`
	TicketPrice       *decimal.Decimal `json:"ticket_price"`
	ActivationMinimum *decimal.Decimal `json:"activation_minimum"`
	TicketingEventID  *string          `json:"ticketing_event_id,omitempty"`
}

func eventFrom(e *catalogmodels.Event) EventResponse {
	return EventResponse{
		EventID:           e.EventID,
		Name:              e.Name,
		Description:       e.Description,
		Status:            string(e.Status),
		StartDate:         e.StartDate,
		CardPrice:         e.CardPrice,
		TagPrice:          e.TagPrice,
		TicketPrice:       e.TicketPrice,
		ActivationMinimum: e.ActivationMinimum,
		TicketingEventID:  e.TicketingEventID,
	}
}

type ItemResponse struct {
	Name           string          `json:"item_name"`
	Price          decimal.Decimal `json:"item_price"`
	StaffPrice     decimal.Decimal `json:"staff_price"`
	Tax            float64         `json:"item_tax"`
	Category       string          `json:"item_category"`
	BonusAvailable bool            `json:"bonus_available"`
}

func itemsFrom(items []catalogmodels.Item) []ItemResponse {
	out := make([]ItemResponse, 0, len(items))
	for _, it := range items {
		out = append(out, ItemResponse{
			Name:           it.Name,
			Price:          it.Price,
			StaffPrice:     it.StaffPrice,
			Tax:            it.Tax,
			Category:       it.Category,
			BonusAvailable: it.BonusAvailable,
		})
	}
	return out
}

type CurrencyResponse struct {
	CurrencyID  string    `json:"currency_id"`
	Code        string    `json:"currency"`
	Rate        float64   `json:"rate"`
	MarketRate  float64   `json:"market_rate"`
	IsDefault   bool      `json:"is_default"`
	QuickPrices []float64 `json:"quick_prices"`
}

func currenciesFrom(currencies []catalogmodels.Currency) []CurrencyResponse {
	out := make([]CurrencyResponse, 0, len(currencies))
	for _, c := range currencies {
		quick := c.QuickPrices
		if quick == nil {
			quick = []float64{}
		}
		out = append(out, CurrencyResponse{
			CurrencyID:  c.CurrencyID,
			Code:        c.Code,
			Rate:        c.Rate,
			MarketRate:  c.MarketRate,
			IsDefault:   c.IsDefault,
			QuickPrices: quick,
		})
	}
	return out
}

type TopUpResponse struct {
	TopUpID    string          `json:"top_up_id"`
	EventID    string          `json:"event_id"`
	ScanID     string          `json:"scan_id"`
	MemberID   string          `json:"member_id"`
	MemberName string          `json:"member_name"`
	Amount     decimal.Decimal `json:"top_up_amount"`
	Currency   string          `json:"top_up_currency"`
	Date       time.Time       `json:"top_up_date"`
}

type TopUpListResponse struct {
	TopUps []TopUpResponse `json:"top_ups"`
	Page   int             `json:"page"`
	Count  int             `json:"count"`
}

func topUpsFrom(topUps []models.TopUp, page int) TopUpListResponse {
	out := make([]TopUpResponse, 0, len(topUps))
	for _, t := range topUps {
		out = append(out, TopUpResponse{
			TopUpID:    t.TopUpID,
			EventID:    t.EventID,
			ScanID:     t.ScanID,
			MemberID:   t.MemberID,
			MemberName: t.MemberName,
			Amount:     t.Amount,
			Currency:   t.Currency,
			Date:       t.Date,
		})
	}
	return TopUpListResponse{TopUps: out, Page: page, Count: len(out)}
}

type TransactionResponse struct {
	TransactionID string          `json:"transaction_id"`
	EventID       string          `json:"event_id"`
	ScanID        string          `json:"scan_id"`
	MemberID      string          `json:"member_id"`
	MemberName    string          `json:"member_name"`
	ItemName      string          `json:"item_name"`
	ItemCategory  string          `json:"item_category"`
	Quantity      int             `json:"quantity"`
	Amount        decimal.Decimal `json:"amount"`
	Date          time.Time       `json:"transaction_date"`
}

type TransactionListResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
	Page         int                   `json:"page"`
	Count        int                   `json:"count"`
}

func transactionsFrom(lines []models.Transaction, page int) TransactionListResponse {
	out := make([]TransactionResponse, 0, len(lines))
	for _, t := range lines {
		out = append(out, TransactionResponse{
			TransactionID: t.TransactionID,
			EventID:       t.EventID,
			ScanID:        t.ScanID,
			MemberID:      t.MemberID,
			MemberName:    t.MemberName,
			ItemName:      t.ItemName,
			ItemCategory:  t.ItemCategory,
			Quantity:      t.Quantity,
			Amount:        t.Amount,
			Date:          t.Date,
		})
	}
	return TransactionListResponse{Transactions: out, Page: page, Count: len(out)}
}
