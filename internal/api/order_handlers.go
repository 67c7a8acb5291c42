package api

import (
	"net/http"
	"time"

	"github.com/example/online-store/internal/model"
)

const dateLayout = "2006-01-02"

func (h *Handlers) CreateOrder(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	o, err := h.orders.CreateFromCart(r.Context(), userID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, o)
}

func (h *Handlers) ListOrders(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	orders, err := h.orders.List(r.Context(), userID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if orders == nil {
		orders = []model.Order{}
	}
	respondJSON(w, http.StatusOK, orders)
}

func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	orderID, err := uuidParam(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	o, err := h.orders.Get(r.Context(), orderID, userID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func (h *Handlers) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	orderID, err := uuidParam(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req struct {
		Status model.OrderStatus `json:"status"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), orderID, userID, req.Status)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

// SalesReport lists order items with optional start_date, end_date and
// min_quantity filters. Dates are RFC 3339 or YYYY-MM-DD; a bare end date
// includes the whole day.
func (h *Handlers) SalesReport(w http.ResponseWriter, r *http.Request) {
	start, err := timeQuery(r, "start_date", false)
	if err != nil {
		respondError(w, r, err)
		return
	}
	end, err := timeQuery(r, "end_date", true)
	if err != nil {
		respondError(w, r, err)
		return
	}
	minQty, err := intQuery(r, "min_quantity", 0)
	if err != nil {
		respondError(w, r, err)
		return
	}

	sales, err := h.reports.Sales(r.Context(), model.ReportQuery{
		Start:       start,
		End:         end,
		MinQuantity: minQty,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, sales)
}

func timeQuery(r *http.Request, name string, endOfDay bool) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, badRequest("invalid %s", name)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}
