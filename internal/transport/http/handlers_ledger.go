package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"cashless/internal/ledger/models"
	"cashless/pkg/platform/httputil"
)

func (h *Handler) handleCreateBalance(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[CreateBalanceRequest](h, w, r)
	if !ok {
		return
	}
	b, err := h.ledger.CreateBalance(r.Context(), req.toService())
	if err != nil {
		h.fail(w, r, "balance activation failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, balanceFrom(b))
}

func (h *Handler) handleCreateStaffBalance(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[CreateStaffBalanceRequest](h, w, r)
	if !ok {
		return
	}
	b, err := h.ledger.CreateStaffBalance(r.Context(), req.toService())
	if err != nil {
		h.fail(w, r, "staff balance activation failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, balanceFrom(b))
}

func (h *Handler) handleLookupScan(w http.ResponseWriter, r *http.Request) {
	h.lookup(w, r, models.Token{ScanID: chi.URLParam(r, "scanId")})
}

func (h *Handler) handleLookupTicket(w http.ResponseWriter, r *http.Request) {
	h.lookup(w, r, models.Token{TicketID: chi.URLParam(r, "ticketId")})
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request, token models.Token) {
	b, err := h.ledger.Lookup(r.Context(), token)
	if err != nil {
		h.fail(w, r, "balance lookup failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, balanceFrom(b))
}

func (h *Handler) handleListBalances(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, size, err := queryPage(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	fidelity, err := queryBool(r, "is_fidelity_card")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	out, err := h.ledger.ListBalances(r.Context(), models.Filter{
		BalanceID:      q.Get("balance_id"),
		CreatedBy:      q.Get("created_by"),
		EventID:        q.Get("event_id"),
		MemberID:       q.Get("member_id"),
		ScanID:         q.Get("scan_id"),
		TicketID:       q.Get("ticket_id"),
		IsFidelityCard: fidelity,
		Page:           page,
		PageSize:       size,
	})
	if err != nil {
		h.fail(w, r, "balance listing failed", err)
		return
	}
	resp := BalanceListResponse{Balances: make([]BalanceResponse, 0, len(out)), Page: page, Count: len(out)}
	for i := range out {
		resp.Balances = append(resp.Balances, balanceFrom(&out[i]))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handlePatchBalance(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[PatchBalanceRequest](h, w, r)
	if !ok {
		return
	}
	b, err := h.ledger.PatchBalance(r.Context(), chi.URLParam(r, "id"), req.toModel())
	if err != nil {
		h.fail(w, r, "balance correction failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, balanceFrom(b))
}

func (h *Handler) handleDeleteBalance(w http.ResponseWriter, r *http.Request) {
	if err := h.ledger.DeleteBalance(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, "balance deletion failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDeleteEventBalances(w http.ResponseWriter, r *http.Request) {
	removed, err := h.ledger.DeleteEventBalances(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "event balance deletion failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int64{"removed": removed})
}

func (h *Handler) handleTopUp(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[TopUpRequest](h, w, r)
	if !ok {
		return
	}
	b, err := h.ledger.TopUp(r.Context(), req.toService())
	if err != nil {
		h.fail(w, r, "top-up failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, balanceFrom(b))
}

func (h *Handler) handlePurchase(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[PurchaseRequest](h, w, r)
	if !ok {
		return
	}
	receipt, err := h.ledger.Purchase(r.Context(), req.toService())
	if err != nil {
		h.fail(w, r, "purchase failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, receiptFrom(receipt))
}
