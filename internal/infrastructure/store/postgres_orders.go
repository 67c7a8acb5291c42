package store

import (
	"context"
	"strings"
	"time"

	"github.com/example/online-store/internal/model"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

func (t *pgTx) InsertOrder(ctx context.Context, o *model.Order) error {
	_, err := t.tx.NamedExecContext(ctx, `
		INSERT INTO orders (id, user_id, status, created_at, updated_at)
		VALUES (:id, :user_id, :status, :created_at, :updated_at)`, o)
	return translate(err)
}

func (t *pgTx) InsertOrderItem(ctx context.Context, item *model.OrderItem) error {
	_, err := t.tx.NamedExecContext(ctx, `
		INSERT INTO order_items (id, order_id, product_id, quantity)
		VALUES (:id, :order_id, :product_id, :quantity)`, item)
	return translate(err)
}

func (t *pgTx) GetOrder(ctx context.Context, id, userID uuid.UUID) (*model.Order, error) {
	var o model.Order
	err := t.tx.GetContext(ctx, &o, `
		SELECT id, user_id, status, created_at, updated_at
		FROM orders
		WHERE id = $1 AND user_id = $2
		FOR UPDATE`, id, userID)
	if err != nil {
		return nil, translate(err)
	}

	o.Items = []model.OrderItem{}
	err = t.tx.SelectContext(ctx, &o.Items, `
		SELECT id, order_id, product_id, quantity
		FROM order_items
		WHERE order_id = $1
		ORDER BY id`, o.ID)
	if err != nil {
		return nil, translate(err)
	}
	return &o, nil
}

func (t *pgTx) ListOrders(ctx context.Context, userID uuid.UUID) ([]model.Order, error) {
	orders := []model.Order{}
	err := t.tx.SelectContext(ctx, &orders, `
		SELECT id, user_id, status, created_at, updated_at
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, translate(err)
	}
	if len(orders) == 0 {
		return orders, nil
	}

	byID := make(map[uuid.UUID]*model.Order, len(orders))
	ids := make([]uuid.UUID, len(orders))
	for i := range orders {
		orders[i].Items = []model.OrderItem{}
		byID[orders[i].ID] = &orders[i]
		ids[i] = orders[i].ID
	}

	query, args, err := sqlx.In(`
		SELECT id, order_id, product_id, quantity
		FROM order_items
		WHERE order_id IN (?)`, ids)
	if err != nil {
		return nil, err
	}
	var items []model.OrderItem
	if err := t.tx.SelectContext(ctx, &items, t.tx.Rebind(query), args...); err != nil {
		return nil, translate(err)
	}
	for _, item := range items {
		if o, ok := byID[item.OrderID]; ok {
			o.Items = append(o.Items, item)
		}
	}
	return orders, nil
}

func (t *pgTx) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus, at time.Time) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE orders SET status = $2, updated_at = $3
		WHERE id = $1`, id, string(status), at)
	if err != nil {
		return translate(err)
	}
	return expectRow(res.RowsAffected())
}

func (t *pgTx) SalesReport(ctx context.Context, q model.ReportQuery) ([]model.ReportRow, error) {
	var (
		where []string
		args  []any
	)
	if !q.Start.IsZero() {
		where = append(where, "o.created_at >= ?")
		args = append(args, q.Start)
	}
	if !q.End.IsZero() {
		where = append(where, "o.created_at <= ?")
		args = append(args, q.End)
	}
	if q.MinQuantity > 0 {
		where = append(where, "oi.quantity >= ?")
		args = append(args, q.MinQuantity)
	}

	query := `
		SELECT oi.id AS order_item_id, o.id AS order_id, o.created_at AS ordered_at,
		       p.id AS product_id, p.name AS product_name, p.price AS product_price,
		       oi.quantity
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		JOIN products p ON p.id = oi.product_id`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	rows := []model.ReportRow{}
	if err := t.tx.SelectContext(ctx, &rows, t.tx.Rebind(query), args...); err != nil {
		return nil, translate(err)
	}
	return rows, nil
}
