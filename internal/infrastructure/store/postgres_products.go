package store

import (
	"context"
	"strings"

	"github.com/example/online-store/internal/model"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const productColumns = `id, name, description, category_id, price, stock, reserved, is_active, created_at, updated_at`

func (t *pgTx) GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var p model.Product
	err := t.tx.GetContext(ctx, &p, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (t *pgTx) GetProductForUpdate(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var p model.Product
	err := t.tx.GetContext(ctx, &p, `SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (t *pgTx) GetProductByName(ctx context.Context, name string) (*model.Product, error) {
	var p model.Product
	err := t.tx.GetContext(ctx, &p, `SELECT `+productColumns+` FROM products WHERE name = $1`, name)
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (t *pgTx) ListProducts(ctx context.Context, q model.ProductQuery) ([]model.Product, int, error) {
	where := []string{"p.is_active", "p.stock - p.reserved > 0"}
	args := map[string]any{"limit": q.Limit, "offset": q.Offset}
	from := "products p"

	if q.CategoryID != uuid.Nil {
		where = append(where, "p.category_id = :category_id")
		args["category_id"] = q.CategoryID
	}
	if q.ParentCategoryID != uuid.Nil {
		from += " JOIN product_categories c ON c.id = p.category_id"
		where = append(where, "c.parent_id = :parent_id")
		args["parent_id"] = q.ParentCategoryID
	}
	cond := strings.Join(where, " AND ")

	var total int
	countQuery, countArgs, err := sqlx.Named(`SELECT COUNT(*) FROM `+from+` WHERE `+cond, args)
	if err != nil {
		return nil, 0, err
	}
	if err := t.tx.GetContext(ctx, &total, t.tx.Rebind(countQuery), countArgs...); err != nil {
		return nil, 0, translate(err)
	}

	pageQuery, pageArgs, err := sqlx.Named(`
		SELECT p.id, p.name, p.description, p.category_id, p.price, p.stock, p.reserved,
		       p.is_active, p.created_at, p.updated_at
		FROM `+from+`
		WHERE `+cond+`
		ORDER BY p.created_at, p.id
		LIMIT :limit OFFSET :offset`, args)
	if err != nil {
		return nil, 0, err
	}
	products := []model.Product{}
	if err := t.tx.SelectContext(ctx, &products, t.tx.Rebind(pageQuery), pageArgs...); err != nil {
		return nil, 0, translate(err)
	}
	return products, total, nil
}

func (t *pgTx) InsertProduct(ctx context.Context, p *model.Product) error {
	_, err := t.tx.NamedExecContext(ctx, `
		INSERT INTO products (`+productColumns+`)
		VALUES (:id, :name, :description, :category_id, :price, :stock, :reserved, :is_active, :created_at, :updated_at)`, p)
	return translate(err)
}

func (t *pgTx) UpdateProduct(ctx context.Context, p *model.Product) error {
	res, err := t.tx.NamedExecContext(ctx, `
		UPDATE products SET
			name = :name,
			description = :description,
			category_id = :category_id,
			price = :price,
			stock = :stock,
			reserved = :reserved,
			is_active = :is_active,
			updated_at = :updated_at
		WHERE id = :id`, p)
	if err != nil {
		return translate(err)
	}
	return expectRow(res.RowsAffected())
}

func (t *pgTx) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return translate(err)
	}
	return expectRow(res.RowsAffected())
}

func (t *pgTx) ReserveStock(ctx context.Context, productID uuid.UUID, qty int) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE products SET stock = stock - $2, updated_at = NOW()
		WHERE id = $1 AND stock - reserved >= $2`, productID, qty)
	if err != nil {
		return translate(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	// Nothing matched: tell a missing product from a short one.
	var exists bool
	if err := t.tx.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM products WHERE id = $1)`, productID); err != nil {
		return translate(err)
	}
	if !exists {
		return ErrNotFound
	}
	return ErrInsufficientStock
}

func (t *pgTx) ReleaseStock(ctx context.Context, productID uuid.UUID, qty int) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE products SET stock = stock + $2, updated_at = NOW()
		WHERE id = $1`, productID, qty)
	if err != nil {
		return translate(err)
	}
	return expectRow(res.RowsAffected())
}

func (t *pgTx) InsertDiscount(ctx context.Context, d *model.Discount) error {
	_, err := t.tx.NamedExecContext(ctx, `
		INSERT INTO product_discounts (id, product_id, discount_percentage, created_at)
		VALUES (:id, :product_id, :discount_percentage, :created_at)`, d)
	return translate(err)
}

func (t *pgTx) ListDiscounts(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID][]model.Discount, error) {
	out := make(map[uuid.UUID][]model.Discount, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}

	ids := make([]string, len(productIDs))
	for i, id := range productIDs {
		ids[i] = id.String()
	}

	var rows []model.Discount
	err := t.tx.SelectContext(ctx, &rows, `
		SELECT id, product_id, discount_percentage, created_at
		FROM product_discounts
		WHERE product_id = ANY($1::uuid[])
		ORDER BY created_at DESC, id DESC`, pq.Array(ids))
	if err != nil {
		return nil, translate(err)
	}
	for _, d := range rows {
		out[d.ProductID] = append(out[d.ProductID], d)
	}
	return out, nil
}

func expectRow(n int64, err error) error {
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
