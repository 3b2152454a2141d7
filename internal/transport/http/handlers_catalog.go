package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"cashless/pkg/platform/httputil"
	"cashless/pkg/requestcontext"
)

func company(r *http.Request) string {
	return requestcontext.Actor(r.Context()).Company
}

func (h *Handler) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[CreateEventRequest](h, w, r)
	if !ok {
		return
	}
	ev, err := h.catalog.CreateEvent(r.Context(), req.toModel(company(r)))
	if err != nil {
		h.fail(w, r, "event creation failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, eventFrom(ev))
}

func (h *Handler) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	ev, err := h.catalog.GetEvent(r.Context(), company(r), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "event read failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, eventFrom(ev))
}

func (h *Handler) handlePatchEvent(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[PatchEventRequest](h, w, r)
	if !ok {
		return
	}
	ev, err := h.catalog.PatchEvent(r.Context(), company(r), chi.URLParam(r, "id"), req.toModel())
	if err != nil {
		h.fail(w, r, "event update failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, eventFrom(ev))
}

func (h *Handler) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.DeleteEvent(r.Context(), company(r), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, "event deletion failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.catalog.ListItems(r.Context(), company(r), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "item listing failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"items": itemsFrom(items)})
}

func (h *Handler) handleUpsertItems(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[UpsertItemsRequest](h, w, r)
	if !ok {
		return
	}
	if err := h.catalog.UpsertItems(r.Context(), company(r), chi.URLParam(r, "id"), req.toModel()); err != nil {
		h.fail(w, r, "item upsert failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handlePatchItem(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[PatchItemRequest](h, w, r)
	if !ok {
		return
	}
	if err := h.catalog.PatchItem(r.Context(), company(r), chi.URLParam(r, "id"), req.Name, req.toModel()); err != nil {
		h.fail(w, r, "item update failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDeleteItems removes the item named by ?item_name, or every item when absent.
func (h *Handler) handleDeleteItems(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("item_name")
	if err := h.catalog.DeleteItems(r.Context(), company(r), chi.URLParam(r, "id"), name); err != nil {
		h.fail(w, r, "item deletion failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListCurrencies(w http.ResponseWriter, r *http.Request) {
	currencies, err := h.catalog.ListCurrencies(r.Context(), company(r), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "currency listing failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"currencies": currenciesFrom(currencies)})
}

func (h *Handler) handleReplaceCurrencies(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[ReplaceCurrenciesRequest](h, w, r)
	if !ok {
		return
	}
	created, err := h.catalog.ReplaceCurrencies(r.Context(), company(r), chi.URLParam(r, "id"), req.toModel())
	if err != nil {
		h.fail(w, r, "currency replacement failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"created": currenciesFrom(created)})
}

func (h *Handler) handlePopulate(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.Repopulate(r.Context()); err != nil {
		h.fail(w, r, "cache repopulation failed", err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}
