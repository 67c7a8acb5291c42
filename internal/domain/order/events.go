package order

import (
	"time"

	"github.com/example/online-store/internal/model"
	"github.com/google/uuid"
)

const (
	AggregateType           = "Order"
	EventOrderPlaced        = "OrderPlaced"
	EventOrderStatusChanged = "OrderStatusChanged"
)

type PlacedItem struct {
	ProductID uuid.UUID   `json:"product_id"`
	Name      string      `json:"name"`
	Quantity  int         `json:"quantity"`
	UnitPrice model.Money `json:"unit_price"`
}

type OrderPlaced struct {
	OrderID  uuid.UUID    `json:"order_id"`
	UserID   uuid.UUID    `json:"user_id"`
	Items    []PlacedItem `json:"items"`
	Total    model.Money  `json:"total"`
	PlacedAt time.Time    `json:"placed_at"`
}

type OrderStatusChanged struct {
	OrderID   uuid.UUID         `json:"order_id"`
	UserID    uuid.UUID         `json:"user_id"`
	From      model.OrderStatus `json:"from"`
	To        model.OrderStatus `json:"to"`
	ChangedAt time.Time         `json:"changed_at"`
}
