// Package currency converts amounts between an event's currencies.
//
// Rates are only ever stored relative to the event's default currency, so every
// conversion between two non-default currencies goes through the default: first
// multiply by the source rate, then divide by the target rate. A rate of zero, a
// missing code or a non-finite configured rate makes the currency unusable.
package currency

import (
	"math"

	"github.com/shopspring/decimal"

	"cashless/internal/catalog/models"
	dErrors "cashless/pkg/domain-errors"
)

// Rates is an immutable view over one event's currency table. Amounts are exact
// decimals; division rounds to decimal.DivisionPrecision places.
type Rates struct {
	rates map[string]decimal.Decimal
	def   string
}

// NewRates builds Rates from a cached currency table. The table must name exactly one
// default currency; absence is an activation policy error since no amount can be priced.
func NewRates(table models.CurrencyTable) (Rates, error) {
	r := Rates{rates: make(map[string]decimal.Decimal, len(table))}
	for code, c := range table {
		if math.IsNaN(c.Rate) || math.IsInf(c.Rate, 0) {
			r.rates[code] = decimal.Zero
		} else {
			r.rates[code] = decimal.NewFromFloat(c.Rate)
		}
		if c.IsDefault {
			r.def = code
		}
	}
	if r.def == "" {
		return Rates{}, dErrors.New(dErrors.CodeActivationPolicy, "event default currency not found")
	}
	return r, nil
}

// Default returns the code of the default currency.
func (r Rates) Default() string { return r.def }

// Has reports whether code has a usable rate.
func (r Rates) Has(code string) bool {
	_, err := r.rate(code)
	return err == nil
}

// ToDefault converts amount expressed in from into the default currency.
func (r Rates) ToDefault(amount decimal.Decimal, from string) (decimal.Decimal, error) {
	rate, err := r.rate(from)
	if err != nil {
		return decimal.Zero, err
	}
	return amount.Mul(rate), nil
}

// FromDefaultTo converts an amount expressed in the default currency into to.
func (r Rates) FromDefaultTo(amount decimal.Decimal, to string) (decimal.Decimal, error) {
	rate, err := r.rate(to)
	if err != nil {
		return decimal.Zero, err
	}
	return amount.Div(rate), nil
}

// Convert converts amount from one currency into another. Same-code conversions are
// the identity and do not require a rate.
func (r Rates) Convert(amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	if from == to {
		return amount, nil
	}
	inDefault, err := r.ToDefault(amount, from)
	if err != nil {
		return decimal.Zero, err
	}
	if to == r.def {
		return inDefault, nil
	}
	return r.FromDefaultTo(inDefault, to)
}

func (r Rates) rate(code string) (decimal.Decimal, error) {
	rate, ok := r.rates[code]
	if !ok {
		return decimal.Zero, dErrors.Newf(dErrors.CodeConversion, "missing conversion rate for currency: %s", code)
	}
	if rate.IsZero() {
		return decimal.Zero, dErrors.Newf(dErrors.CodeConversion, "currency %s has no usable rate", code)
	}
	return rate, nil
}
