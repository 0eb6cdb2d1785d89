package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/inkpress/storefront/internal/models"
)

type cartView struct {
	ID         string            `json:"id"`
	Items      []models.CartItem `json:"items"`
	ItemCount  int               `json:"itemCount"`
	TotalCents int64             `json:"totalCents"`
}

func (h *Handler) HandleCart(w http.ResponseWriter, r *http.Request) {
	cartID := chi.URLParam(r, "cartID")
	ctx := r.Context()

	items, err := h.cart.List(ctx, cartID)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	count, err := h.cart.ItemCount(ctx, cartID)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	total, err := h.cart.TotalCents(ctx, cartID)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.writeJSON(w, cartView{ID: cartID, Items: items, ItemCount: count, TotalCents: total})
}

func (h *Handler) HandleClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.cart.Clear(r.Context(), chi.URLParam(r, "cartID")); err != nil {
		h.writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleUpdateCartItem(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Quantity *int `json:"quantity"`
	}
	if !h.decode(w, r, &request) {
		return
	}
	if request.Quantity == nil {
		h.writeError(w, "quantity is required", http.StatusBadRequest)
		return
	}
	err := h.cart.UpdateQuantity(r.Context(), chi.URLParam(r, "cartID"), chi.URLParam(r, "itemID"), *request.Quantity)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.HandleCart(w, r)
}

func (h *Handler) HandleRemoveCartItem(w http.ResponseWriter, r *http.Request) {
	if err := h.cart.Remove(r.Context(), chi.URLParam(r, "cartID"), chi.URLParam(r, "itemID")); err != nil {
		h.writeErr(w, err)
		return
	}
	h.HandleCart(w, r)
}
