package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "cashless/pkg/domain-errors"
)

func TestWriteError(t *testing.T) {
	t.Run("internal error omits description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeInternal, "db failed"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		var body map[string]string
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, "internal", body["error"])
		assert.NotContains(t, body, "error_description")
	})

	t.Run("plain errors are internal", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, errors.New("pq: connection refused"))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "pq")
	})

	t.Run("domain error includes description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeInsufficientFunds, "insufficient amount"))

		assert.Equal(t, http.StatusPaymentRequired, w.Code)
		var body ErrorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, "insufficient_funds", body.Error)
		assert.Equal(t, "insufficient amount", body.Description)
	})
}

func TestStatusOf(t *testing.T) {
	cases := map[dErrors.Code]int{
		dErrors.CodeValidation:          http.StatusBadRequest,
		dErrors.CodeConversion:          http.StatusBadRequest,
		dErrors.CodeActivationPolicy:    http.StatusBadRequest,
		dErrors.CodeUnauthorized:        http.StatusUnauthorized,
		dErrors.CodeForbidden:           http.StatusForbidden,
		dErrors.CodeNotFound:            http.StatusNotFound,
		dErrors.CodeConflict:            http.StatusConflict,
		dErrors.CodeConcurrencyConflict: http.StatusConflict,
		dErrors.CodeInsufficientFunds:   http.StatusPaymentRequired,
		dErrors.CodeTimeout:             http.StatusGatewayTimeout,
		dErrors.CodeCacheDesync:         http.StatusServiceUnavailable,
		dErrors.CodeInternal:            http.StatusInternalServerError,
	}
	for code, status := range cases {
		assert.Equal(t, status, StatusOf(code), code)
	}
}

type sample struct {
	Name     string           `json:"name" validate:"required"`
	Quantity int              `json:"quantity" validate:"gt=0"`
	Amount   decimal.Decimal  `json:"amount"`
	Price    *decimal.Decimal `json:"price" validate:"omitempty,gte=0"`
}

func (s *sample) Prepare() error {
	s.Name = strings.ToLower(s.Name)
	if s.Amount.IsNegative() {
		return dErrors.New(dErrors.CodeValidation, "amount must not be negative")
	}
	return nil
}

func TestDecode(t *testing.T) {
	request := func(body string) *http.Request {
		return httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	}

	t.Run("valid body is prepared", func(t *testing.T) {
		got, err := Decode[sample](request(`{"name":"COLA","quantity":2}`))
		require.NoError(t, err)
		assert.Equal(t, "cola", got.Name)
	})

	t.Run("decimal amounts keep their digits", func(t *testing.T) {
		got, err := Decode[sample](request(`{"name":"gum","quantity":1,"amount":0.1,"price":"0.2"}`))
		require.NoError(t, err)
		assert.Equal(t, "0.3", got.Amount.Add(*got.Price).String())
	})

	t.Run("numeric tags apply to decimals", func(t *testing.T) {
		_, err := Decode[sample](request(`{"name":"gum","quantity":1,"price":-0.5}`))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("tag failure names the field", func(t *testing.T) {
		_, err := Decode[sample](request(`{"quantity":0}`))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		assert.Contains(t, err.Error(), "Name is required")
	})

	t.Run("prepare failure", func(t *testing.T) {
		_, err := Decode[sample](request(`{"name":"cola","quantity":1,"amount":-1}`))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("unknown fields are rejected", func(t *testing.T) {
		_, err := Decode[sample](request(`{"name":"cola","quantity":1,"extra":true}`))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := Decode[sample](request(`{`))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}
