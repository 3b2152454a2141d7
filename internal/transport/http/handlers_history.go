package httptransport

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"cashless/internal/ledger/models"
	dErrors "cashless/pkg/domain-errors"
	"cashless/pkg/platform/httputil"
)

func (h *Handler) handleListTopUps(w http.ResponseWriter, r *http.Request) {
	f, err := topUpFilterFrom(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out, err := h.ledger.ListTopUps(r.Context(), f)
	if err != nil {
		h.fail(w, r, "top-up listing failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, topUpsFrom(out, f.Page))
}

func (h *Handler) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	f, err := transactionFilterFrom(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out, err := h.ledger.ListTransactions(r.Context(), f)
	if err != nil {
		h.fail(w, r, "transaction listing failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, transactionsFrom(out, f.Page))
}

func topUpFilterFrom(r *http.Request) (models.TopUpFilter, error) {
	q := r.URL.Query()
	f := models.TopUpFilter{
		EventID:  q.Get("event_id"),
		MemberID: q.Get("member_id"),
		ScanID:   q.Get("scan_id"),
		Currency: normalizeCode(q.Get("currency")),
	}
	var err error
	if f.Page, f.PageSize, err = queryPage(r); err != nil {
		return f, err
	}
	if f.From, f.To, err = queryRange(r); err != nil {
		return f, err
	}
	if f.MinAmount, err = queryDecimal(r, "min_amount"); err != nil {
		return f, err
	}
	if f.MaxAmount, err = queryDecimal(r, "max_amount"); err != nil {
		return f, err
	}
	return f, nil
}

func transactionFilterFrom(r *http.Request) (models.TransactionFilter, error) {
	q := r.URL.Query()
	f := models.TransactionFilter{
		EventID:      q.Get("event_id"),
		MemberID:     q.Get("member_id"),
		ScanID:       q.Get("scan_id"),
		ItemName:     q.Get("item_name"),
		ItemCategory: q.Get("item_category"),
	}
	var err error
	if f.Page, f.PageSize, err = queryPage(r); err != nil {
		return f, err
	}
	if f.From, f.To, err = queryRange(r); err != nil {
		return f, err
	}
	return f, nil
}

func queryPage(r *http.Request) (page, size int, err error) {
	if page, err = queryInt(r, "page"); err != nil {
		return 0, 0, err
	}
	if size, err = queryInt(r, "page_size"); err != nil {
		return 0, 0, err
	}
	return page, size, nil
}

// queryRange reads the RFC 3339 bounds "from" and "to".
func queryRange(r *http.Request) (from, to *time.Time, err error) {
	if from, err = queryTime(r, "from"); err != nil {
		return nil, nil, err
	}
	if to, err = queryTime(r, "to"); err != nil {
		return nil, nil, err
	}
	return from, to, nil
}

func queryTime(r *http.Request, key string) (*time.Time, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, dErrors.Newf(dErrors.CodeValidation, "%s must be an RFC 3339 timestamp", key)
	}
	return &t, nil
}

func queryDecimal(r *http.Request, key string) (*decimal.Decimal, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, dErrors.Newf(dErrors.CodeValidation, "%s must be a number", key)
	}
	return &d, nil
}
