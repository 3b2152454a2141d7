// Package httptransport is the thin HTTP layer over the ledger and catalog services.
// Handlers decode, call one service operation and encode; status codes come from
// httputil.WriteError.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	catalogmodels "cashless/internal/catalog/models"
	"cashless/internal/ledger/models"
	"cashless/internal/ledger/service"
	dErrors "cashless/pkg/domain-errors"
	"cashless/pkg/platform/httputil"
	"cashless/pkg/requestcontext"
)

// LedgerService is the balance ledger as seen by the handlers.
type LedgerService interface {
	CreateBalance(ctx context.Context, req service.CreateBalanceRequest) (*models.Balance, error)
	CreateStaffBalance(ctx context.Context, req service.CreateStaffBalanceRequest) (*models.Balance, error)
	Lookup(ctx context.Context, token models.Token) (*models.Balance, error)
	PatchBalance(ctx context.Context, balanceID string, patch models.BalancePatch) (*models.Balance, error)
	DeleteBalance(ctx context.Context, balanceID string) error
	DeleteEventBalances(ctx context.Context, eventID string) (int64, error)
	ListBalances(ctx context.Context, f models.Filter) ([]models.Balance, error)
	TopUp(ctx context.Context, req service.TopUpRequest) (*models.Balance, error)
	Purchase(ctx context.Context, req service.PurchaseRequest) (*service.Receipt, error)
	ListTopUps(ctx context.Context, f models.TopUpFilter) ([]models.TopUp, error)
	ListTransactions(ctx context.Context, f models.TransactionFilter) ([]models.Transaction, error)
}

// CatalogService is event administration as seen by the handlers.
type CatalogService interface {
	CreateEvent(ctx context.Context, ev catalogmodels.Event) (*catalogmodels.Event, error)
	GetEvent(ctx context.Context, company, eventID string) (*catalogmodels.Event, error)
	PatchEvent(ctx context.Context, company, eventID string, patch catalogmodels.EventPatch) (*catalogmodels.Event, error)
	DeleteEvent(ctx context.Context, company, eventID string) error
	Repopulate(ctx context.Context) error

	ListItems(ctx context.Context, company, eventID string) ([]catalogmodels.Item, error)
	UpsertItems(ctx context.Context, company, eventID string, items []catalogmodels.Item) error
	PatchItem(ctx context.Context, company, eventID, name string, patch catalogmodels.ItemPatch) error
	DeleteItems(ctx context.Context, company, eventID, name string) error

	ListCurrencies(ctx context.Context, company, eventID string) ([]catalogmodels.Currency, error)
	ReplaceCurrencies(ctx context.Context, company, eventID string, currencies []catalogmodels.Currency) ([]catalogmodels.Currency, error)
}

// Handler serves the payment and administration endpoints.
type Handler struct {
	ledger  LedgerService
	catalog CatalogService
	logger  *slog.Logger
}

func NewHandler(ledger LedgerService, catalog CatalogService, logger *slog.Logger) *Handler {
	return &Handler{ledger: ledger, catalog: catalog, logger: logger}
}

// RegisterPayments mounts the routes used by point-of-sale devices.
func (h *Handler) RegisterPayments(r chi.Router) {
	r.Post("/balances", h.handleCreateBalance)
	r.Post("/balances/staff", h.handleCreateStaffBalance)
	r.Get("/balances", h.handleListBalances)
	r.Get("/balances/scan/{scanId}", h.handleLookupScan)
	r.Get("/balances/ticket/{ticketId}", h.handleLookupTicket)
	r.Post("/top-ups", h.handleTopUp)
	r.Get("/top-ups", h.handleListTopUps)
	r.Post("/transactions", h.handlePurchase)
	r.Get("/transactions", h.handleListTransactions)
}

// RegisterAdmin mounts the administration routes. The caller guards them.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Patch("/balances/{id}", h.handlePatchBalance)
	r.Delete("/balances/{id}", h.handleDeleteBalance)

	r.Post("/events", h.handleCreateEvent)
	r.Get("/events/{id}", h.handleGetEvent)
	r.Patch("/events/{id}", h.handlePatchEvent)
	r.Delete("/events/{id}", h.handleDeleteEvent)
	r.Delete("/events/{id}/balances", h.handleDeleteEventBalances)

	r.Get("/events/{id}/items", h.handleListItems)
	r.Post("/events/{id}/items", h.handleUpsertItems)
	r.Patch("/events/{id}/items", h.handlePatchItem)
	r.Delete("/events/{id}/items", h.handleDeleteItems)

	r.Get("/events/{id}/currencies", h.handleListCurrencies)
	r.Put("/events/{id}/currencies", h.handleReplaceCurrencies)

	r.Post("/cache/populate", h.handlePopulate)
}

// fail logs err at a level matching its status and writes the error response.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	ctx := r.Context()
	code := dErrors.CodeOf(err)
	attrs := []any{
		"request_id", requestcontext.RequestID(ctx),
		"code", code,
		"error", err,
	}
	if httputil.StatusOf(code) >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, msg, attrs...)
	} else {
		h.logger.WarnContext(ctx, msg, attrs...)
	}
	httputil.WriteError(w, err)
}

func decode[T any](h *Handler, w http.ResponseWriter, r *http.Request) (*T, bool) {
	ctx := r.Context()
	return httputil.DecodeAndPrepare[T](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
}

func queryInt(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, dErrors.Newf(dErrors.CodeValidation, "%s must be an integer", key)
	}
	return v, nil
}

func queryBool(r *http.Request, key string) (*bool, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, dErrors.Newf(dErrors.CodeValidation, "%s must be a boolean", key)
	}
	return &v, nil
}
