package store

import (
	"context"

	"github.com/example/online-store/internal/model"
	"github.com/google/uuid"
)

func (t *pgTx) GetCartByUser(ctx context.Context, userID uuid.UUID) (*model.Cart, error) {
	return t.getCartByUser(ctx, `SELECT id, user_id, created_at FROM carts WHERE user_id = $1`, userID)
}

func (t *pgTx) GetCartByUserForUpdate(ctx context.Context, userID uuid.UUID) (*model.Cart, error) {
	return t.getCartByUser(ctx, `SELECT id, user_id, created_at FROM carts WHERE user_id = $1 FOR UPDATE`, userID)
}

func (t *pgTx) getCartByUser(ctx context.Context, query string, userID uuid.UUID) (*model.Cart, error) {
	var c model.Cart
	if err := t.tx.GetContext(ctx, &c, query, userID); err != nil {
		return nil, translate(err)
	}

	c.Items = []model.CartItem{}
	err := t.tx.SelectContext(ctx, &c.Items, `
		SELECT cart_id, product_id, quantity
		FROM cart_items
		WHERE cart_id = $1
		ORDER BY created_at, product_id`, c.ID)
	if err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (t *pgTx) InsertCart(ctx context.Context, c *model.Cart) error {
	_, err := t.tx.NamedExecContext(ctx, `
		INSERT INTO carts (id, user_id, created_at)
		VALUES (:id, :user_id, :created_at)
		ON CONFLICT (user_id) DO NOTHING`, c)
	return translate(err)
}

func (t *pgTx) DeleteCart(ctx context.Context, cartID uuid.UUID) error {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM carts WHERE id = $1`, cartID)
	if err != nil {
		return translate(err)
	}
	return expectRow(res.RowsAffected())
}

func (t *pgTx) GetCartItem(ctx context.Context, cartID, productID uuid.UUID) (*model.CartItem, error) {
	var item model.CartItem
	err := t.tx.GetContext(ctx, &item, `
		SELECT cart_id, product_id, quantity
		FROM cart_items
		WHERE cart_id = $1 AND product_id = $2
		FOR UPDATE`, cartID, productID)
	if err != nil {
		return nil, translate(err)
	}
	return &item, nil
}

func (t *pgTx) InsertCartItem(ctx context.Context, item *model.CartItem) error {
	_, err := t.tx.NamedExecContext(ctx, `
		INSERT INTO cart_items (cart_id, product_id, quantity)
		VALUES (:cart_id, :product_id, :quantity)`, item)
	return translate(err)
}

func (t *pgTx) UpdateCartItem(ctx context.Context, item *model.CartItem) error {
	res, err := t.tx.NamedExecContext(ctx, `
		UPDATE cart_items SET quantity = :quantity
		WHERE cart_id = :cart_id AND product_id = :product_id`, item)
	if err != nil {
		return translate(err)
	}
	return expectRow(res.RowsAffected())
}

func (t *pgTx) DeleteCartItem(ctx context.Context, cartID, productID uuid.UUID) error {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = $1 AND product_id = $2`, cartID, productID)
	if err != nil {
		return translate(err)
	}
	return expectRow(res.RowsAffected())
}
