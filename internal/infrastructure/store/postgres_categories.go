package store

import (
	"context"

	"github.com/example/online-store/internal/model"
	"github.com/google/uuid"
)

const categoryColumns = `id, name, description, parent_id, created_at, updated_at`

func (t *pgTx) GetCategory(ctx context.Context, id uuid.UUID) (*model.Category, error) {
	var c model.Category
	err := t.tx.GetContext(ctx, &c, `SELECT `+categoryColumns+` FROM product_categories WHERE id = $1`, id)
	if err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (t *pgTx) GetCategoryByName(ctx context.Context, name string) (*model.Category, error) {
	var c model.Category
	err := t.tx.GetContext(ctx, &c, `SELECT `+categoryColumns+` FROM product_categories WHERE name = $1`, name)
	if err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (t *pgTx) ListCategories(ctx context.Context) ([]model.Category, error) {
	categories := []model.Category{}
	err := t.tx.SelectContext(ctx, &categories, `SELECT `+categoryColumns+` FROM product_categories ORDER BY name`)
	if err != nil {
		return nil, translate(err)
	}
	return categories, nil
}

func (t *pgTx) InsertCategory(ctx context.Context, c *model.Category) error {
	_, err := t.tx.NamedExecContext(ctx, `
		INSERT INTO product_categories (`+categoryColumns+`)
		VALUES (:id, :name, :description, :parent_id, :created_at, :updated_at)`, c)
	return translate(err)
}

func (t *pgTx) UpdateCategory(ctx context.Context, c *model.Category) error {
	res, err := t.tx.NamedExecContext(ctx, `
		UPDATE product_categories SET
			name = :name,
			description = :description,
			parent_id = :parent_id,
			updated_at = :updated_at
		WHERE id = :id`, c)
	if err != nil {
		return translate(err)
	}
	return expectRow(res.RowsAffected())
}

// DeleteCategory relies on the self-referencing ON DELETE CASCADE to remove
// descendants; products still pointing into the subtree make it fail.
func (t *pgTx) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM product_categories WHERE id = $1`, id)
	if err != nil {
		return translate(err)
	}
	return expectRow(res.RowsAffected())
}
