// Package httputil holds the JSON response helpers shared by every handler, and the
// single place where domain error codes become HTTP statuses.
package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	dErrors "cashless/pkg/domain-errors"
)

const maxBodyBytes = 1 << 20

var validate = newValidator()

// newValidator lets numeric tags such as gte=0 apply to decimal amounts.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.InexactFloat64()
		}
		return nil
	}, decimal.Decimal{})
	return v
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

// Preparer is implemented by request bodies that normalize or cross-check their
// fields after tag validation.
type Preparer interface {
	Prepare() error
}

// StatusOf maps a domain error code to its HTTP status.
func StatusOf(code dErrors.Code) int {
	switch code {
	case dErrors.CodeValidation, dErrors.CodeConversion, dErrors.CodeActivationPolicy:
		return http.StatusBadRequest
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeForbidden:
		return http.StatusForbidden
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeConflict, dErrors.CodeConcurrencyConflict:
		return http.StatusConflict
	case dErrors.CodeInsufficientFunds:
		return http.StatusPaymentRequired
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	case dErrors.CodeCacheDesync:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes err as an ErrorResponse. Internal errors never expose their message.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status := StatusOf(code)
	resp := ErrorResponse{Error: string(code)}
	var de *dErrors.Error
	if status != http.StatusInternalServerError && errors.As(err, &de) {
		resp.Description = de.Message
	}
	WriteJSON(w, status, resp)
}

// Decode reads a JSON body into T, validates its struct tags and runs Prepare when T
// implements Preparer. Errors are coded CodeValidation.
func Decode[T any](r *http.Request) (*T, error) {
	var req T
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid request body")
	}
	if err := validate.Struct(&req); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, describe(err))
	}
	if p, ok := any(&req).(Preparer); ok {
		if err := p.Prepare(); err != nil {
			return nil, err
		}
	}
	return &req, nil
}

// DecodeAndPrepare is Decode that writes the error response itself. It reports
// whether the handler may continue.
func DecodeAndPrepare[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (*T, bool) {
	req, err := Decode[T](r)
	if err != nil {
		logger.WarnContext(ctx, "rejected request body",
			"request_id", requestID,
			"error", err,
		)
		WriteError(w, err)
		return nil, false
	}
	return req, true
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid request body"
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return strings.Join(msgs, "; ")
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.IndexByte(field, '.'); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required", "required_without":
		return field + " is required"
	case "gt", "gte", "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "email":
		return field + " must be a valid email address"
	default:
		return field + " is invalid"
	}
}
