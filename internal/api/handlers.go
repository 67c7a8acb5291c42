package api

import (
	"net/http"

	"github.com/example/online-store/internal/domain/cart"
	"github.com/example/online-store/internal/domain/catalog"
	"github.com/example/online-store/internal/domain/order"
	"github.com/example/online-store/internal/domain/report"
	"github.com/shopspring/decimal"
)

type Handlers struct {
	catalog *catalog.Service
	carts   *cart.Service
	orders  *order.Service
	reports *report.Service
}

func NewHandlers(catalogService *catalog.Service, cartService *cart.Service, orderService *order.Service, reportService *report.Service) *Handlers {
	return &Handlers{
		catalog: catalogService,
		carts:   cartService,
		orders:  orderService,
		reports: reportService,
	}
}

// Product Handlers

func (h *Handlers) ListProducts(w http.ResponseWriter, r *http.Request) {
	page, size, err := pageQuery(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	result, err := h.catalog.ListActive(r.Context(), page, size)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *Handlers) FilterProducts(w http.ResponseWriter, r *http.Request) {
	page, size, err := pageQuery(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	categoryID, err := optionalUUID(r, "category_id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	subcategoryID, err := optionalUUID(r, "subcategory_id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	result, err := h.catalog.Filter(r.Context(), catalog.FilterParams{
		CategoryID:    categoryID,
		SubcategoryID: subcategoryID,
		Page:          page,
		Size:          size,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	product, err := h.catalog.GetProduct(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, product)
}

func (h *Handlers) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req catalog.NewProduct
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	product, err := h.catalog.CreateProduct(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, product)
}

func (h *Handlers) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req catalog.ProductUpdate
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	product, err := h.catalog.UpdateProduct(r.Context(), id, req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, product)
}

func (h *Handlers) UpdatePrice(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req struct {
		Price *decimal.Decimal `json:"price"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if req.Price == nil {
		respondError(w, r, badRequest("price is required"))
		return
	}

	product, err := h.catalog.UpdatePrice(r.Context(), id, *req.Price)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, product)
}

func (h *Handlers) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	if err := h.catalog.DeleteProduct(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) CreateDiscount(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req struct {
		Percentage *int `json:"discount_percentage"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if req.Percentage == nil {
		respondError(w, r, badRequest("discount_percentage is required"))
		return
	}

	product, err := h.catalog.CreateDiscount(r.Context(), id, *req.Percentage)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, product)
}
