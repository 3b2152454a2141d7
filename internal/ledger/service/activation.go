package service

import (
	"github.com/shopspring/decimal"

	catalogmodels "cashless/internal/catalog/models"
)

// ActivationCost returns the fee charged, in the event default currency, for
// activating a balance on the given token. Unset prices count as zero.
//
//	fidelity card             card price
//	scan and ticket, same id  ticket price (the tag doubles as the ticket)
//	scan and ticket differ    ticket + tag price
//	ticket only               ticket price
//	scan only                 ticket + tag price (a tag bundles a ticket)
func ActivationCost(ev *catalogmodels.Event, scanID, ticketID string, fidelity bool) decimal.Decimal {
	card, tag, ticket := price(ev.CardPrice), price(ev.TagPrice), price(ev.TicketPrice)
	switch {
	case fidelity:
		return card
	case scanID != "" && scanID == ticketID:
		return ticket
	case scanID != "" && ticketID != "":
		return ticket.Add(tag)
	case ticketID != "":
		return ticket
	case scanID != "":
		return ticket.Add(tag)
	default:
		return ticket
	}
}

func price(p *decimal.Decimal) decimal.Decimal {
	if p == nil {
		return decimal.Zero
	}
	return *p
}
