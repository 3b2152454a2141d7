// Package models holds stored-value balances and their append-only movement records.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Balance is stored value attached to a scannable token or a fidelity card.
// Amount is denominated in Currency and is never negative.
type Balance struct {
	BalanceID          string
	Company            string
	EventID            *string
	EventCreated       string
	Currency           string
	ActivationCurrency string
	Amount             decimal.Decimal
	InitialAmount      decimal.Decimal
	ActivationCost     decimal.Decimal
	IsFidelityCard     bool
	IsBonus            bool
	MemberID           *string
	ScanID             *string
	TicketID           *string
	CreatedAt          time.Time
	CreatedBy          string
	CreatedByID        string
}

// IsStaff reports whether the balance is linked to a staff member and buys at staff prices.
func (b *Balance) IsStaff() bool { return b.MemberID != nil && *b.MemberID != "" }

// BelongsTo reports whether the balance may be used at eventID. Fidelity cards roam.
func (b *Balance) BelongsTo(eventID string) bool {
	return b.IsFidelityCard || b.EventCreated == eventID
}

// TopUp records one credit (or admin correction) applied to a balance.
type TopUp struct {
	TopUpID    string
	Company    string
	EventID    string
	ScanID     string
	MemberID   string
	MemberName string
	Amount     decimal.Decimal
	Currency   string
	Date       time.Time
}

// Transaction records one purchased item line. Amount is in the event default currency.
type Transaction struct {
	TransactionID string
	Company       string
	EventID       string
	ScanID        string
	MemberID      string
	MemberName    string
	ItemName      string
	ItemCategory  string
	Quantity      int
	Amount        decimal.Decimal
	Date          time.Time
}

// Client is the customer profile linked to a fidelity card.
type Client struct {
	ClientID    string
	Company     string
	BalanceID   string
	Name        string
	Email       *string
	AmountSpent decimal.Decimal
	CreatedAt   time.Time
}

// StaffMember is a company member allowed to operate points of sale.
type StaffMember struct {
	MemberID     string
	Company      string
	Name         string
	PasswordHash string
	IsAdmin      bool
}

// Token identifies a balance by its scan id or ticket id.
type Token struct {
	ScanID   string
	TicketID string
}

// IsEmpty reports whether neither identifier is set.
func (t Token) IsEmpty() bool { return t.ScanID == "" && t.TicketID == "" }

// Key returns the scan id when present, otherwise the ticket id.
func (t Token) Key() string {
	if t.ScanID != "" {
		return t.ScanID
	}
	return t.TicketID
}

// Filter selects balances; zero fields are ignored.
type Filter struct {
	BalanceID      string
	CreatedBy      string
	EventID        string
	MemberID       string
	ScanID         string
	TicketID       string
	IsFidelityCard *bool
	Page           int
	PageSize       int
}

// TopUpFilter selects an event's top-ups; zero fields other than EventID are ignored.
// MinAmount and MaxAmount bound the recorded amount inclusively.
type TopUpFilter struct {
	EventID   string
	MemberID  string
	ScanID    string
	Currency  string
	MinAmount *decimal.Decimal
	MaxAmount *decimal.Decimal
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
}

// TransactionFilter selects purchased lines; zero fields are ignored. From and To
// bound the transaction date inclusively.
type TransactionFilter struct {
	EventID      string
	MemberID     string
	ScanID       string
	ItemName     string
	ItemCategory string
	From         *time.Time
	To           *time.Time
	Page         int
	PageSize     int
}

// BalancePatch carries an administrative correction; nil fields are left untouched.
type BalancePatch struct {
	Amount   *decimal.Decimal
	MemberID *string
	ScanID   *string
}

// IsEmpty reports whether the patch updates nothing.
func (p BalancePatch) IsEmpty() bool {
	return p.Amount == nil && p.MemberID == nil && p.ScanID == nil
}

// Outbox event types.
const (
	EventBalanceActivated = "balance.activated"
	EventBalanceToppedUp  = "balance.topped_up"
	EventPurchaseRecorded = "purchase.recorded"
)
