package api

import (
	"net/http"

	"github.com/google/uuid"
)

type addItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity"`
}

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handlers) GetCart(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	view, err := h.carts.GetCart(r.Context(), userID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// AddCartItem puts a product into the caller's cart, reserving its stock
func (h *Handlers) AddCartItem(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req addItemRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	item, err := h.carts.AddItem(r.Context(), userID, req.ProductID, req.Quantity)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, item)
}

func (h *Handlers) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	productID, err := uuidParam(r, "productID")
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req quantityRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	item, err := h.carts.UpdateQuantity(r.Context(), userID, productID, req.Quantity)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

func (h *Handlers) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	productID, err := uuidParam(r, "productID")
	if err != nil {
		respondError(w, r, err)
		return
	}

	if err := h.carts.RemoveItem(r.Context(), userID, productID); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
