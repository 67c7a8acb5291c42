package report

import (
	"context"
	"errors"
	"time"

	"github.com/example/online-store/internal/infrastructure/store"
	"github.com/example/online-store/internal/model"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrInvalidFilter = errors.New("invalid report filter")

type Service struct {
	store store.Store
}

func NewService(st store.Store) *Service {
	return &Service{store: st}
}

type ProductInfo struct {
	ID    uuid.UUID   `json:"id"`
	Name  string      `json:"name"`
	Price model.Money `json:"price"`
}

type Row struct {
	OrderItemID uuid.UUID   `json:"order_item_id"`
	OrderID     uuid.UUID   `json:"order_id"`
	CreatedAt   time.Time   `json:"created_at"`
	Product     ProductInfo `json:"product"`
	Quantity    int         `json:"quantity"`
	TotalPrice  model.Money `json:"total_price"`
}

type Sales struct {
	Items         []Row       `json:"items"`
	TotalQuantity int         `json:"total_quantity"`
	TotalRevenue  model.Money `json:"total_revenue"`
}

// Sales lists order items matching q. Totals use the product's current
// price, not the price at the time of the order.
func (s *Service) Sales(ctx context.Context, q model.ReportQuery) (*Sales, error) {
	if q.MinQuantity < 0 {
		return nil, ErrInvalidFilter
	}
	if !q.Start.IsZero() && !q.End.IsZero() && q.Start.After(q.End) {
		return nil, ErrInvalidFilter
	}

	var rows []model.ReportRow
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		rows, err = tx.SalesReport(ctx, q)
		return err
	})
	if err != nil {
		return nil, err
	}

	out := &Sales{Items: make([]Row, 0, len(rows))}
	for _, r := range rows {
		total := r.ProductPrice.Mul(decimal.NewFromInt(int64(r.Quantity)))
		out.Items = append(out.Items, Row{
			OrderItemID: r.OrderItemID,
			OrderID:     r.OrderID,
			CreatedAt:   r.OrderedAt,
			Product:     ProductInfo{ID: r.ProductID, Name: r.ProductName, Price: model.NewMoney(r.ProductPrice)},
			Quantity:    r.Quantity,
			TotalPrice:  model.NewMoney(total),
		})
		out.TotalQuantity += r.Quantity
		out.TotalRevenue = model.NewMoney(out.TotalRevenue.Add(total))
	}
	return out, nil
}
