package catalog

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/example/online-store/internal/infrastructure/store"
	"github.com/example/online-store/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

type Service struct {
	store store.Store
	now   func() time.Time
}

func NewService(st store.Store) *Service {
	return &Service{
		store: st,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

type NewProduct struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	CategoryID  uuid.UUID       `json:"category_id"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
}

// ProductUpdate is a partial update. Nil fields are left unchanged.
type ProductUpdate struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	CategoryID  *uuid.UUID       `json:"category_id"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock"`
	Reserved    *int             `json:"reserved"`
	IsActive    *bool            `json:"is_active"`
}

// FilterParams narrows a listing. CategoryID matches the product's own
// category, SubcategoryID matches the parent of the product's category.
type FilterParams struct {
	CategoryID    uuid.UUID
	SubcategoryID uuid.UUID
	Page          int
	Size          int
}

func (s *Service) GetProduct(ctx context.Context, id uuid.UUID) (*ProductView, error) {
	var view ProductView
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		p, err := tx.GetProduct(ctx, id)
		if err != nil {
			return productErr(err)
		}
		discounts, err := tx.ListDiscounts(ctx, []uuid.UUID{id})
		if err != nil {
			return err
		}
		view = ApplyDiscount(*p, discounts[id])
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// ListActive returns active products that still have available stock.
func (s *Service) ListActive(ctx context.Context, page, size int) (*Page[ProductView], error) {
	return s.list(ctx, model.ProductQuery{}, page, size)
}

func (s *Service) Filter(ctx context.Context, f FilterParams) (*Page[ProductView], error) {
	q := model.ProductQuery{
		CategoryID:       f.CategoryID,
		ParentCategoryID: f.SubcategoryID,
	}
	return s.list(ctx, q, f.Page, f.Size)
}

func (s *Service) list(ctx context.Context, q model.ProductQuery, page, size int) (*Page[ProductView], error) {
	if err := validatePage(page, size); err != nil {
		return nil, err
	}
	q.Limit = size
	q.Offset = (page - 1) * size

	var result *Page[ProductView]
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		products, total, err := tx.ListProducts(ctx, q)
		if err != nil {
			return err
		}

		ids := make([]uuid.UUID, len(products))
		for i, p := range products {
			ids[i] = p.ID
		}
		discounts := map[uuid.UUID][]model.Discount{}
		if len(ids) > 0 {
			if discounts, err = tx.ListDiscounts(ctx, ids); err != nil {
				return err
			}
		}

		views := make([]ProductView, len(products))
		for i, p := range products {
			views[i] = ApplyDiscount(p, discounts[p.ID])
		}
		result = newPage(views, total, page, size)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) CreateProduct(ctx context.Context, in NewProduct) (*model.Product, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, ErrInvalidName
	}
	if in.Price.IsNegative() {
		return nil, ErrInvalidPrice
	}
	if in.Stock < 0 {
		return nil, ErrInvalidStock
	}

	now := s.now()
	p := &model.Product{
		ID:          uuid.New(),
		Name:        name,
		Description: in.Description,
		CategoryID:  in.CategoryID,
		Price:       model.NewMoney(in.Price.Round(2)),
		Stock:       in.Stock,
		Reserved:    0,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := tx.GetCategory(ctx, p.CategoryID); err != nil {
			return categoryErr(err)
		}
		if _, err := tx.GetProductByName(ctx, p.Name); err == nil {
			return ErrProductExists
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		return productErr(tx.InsertProduct(ctx, p))
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("component", "catalog").Str("product_id", p.ID.String()).Str("name", p.Name).Msg("product created")
	return p, nil
}

func (s *Service) UpdatePrice(ctx context.Context, id uuid.UUID, price decimal.Decimal) (*model.Product, error) {
	return s.UpdateProduct(ctx, id, ProductUpdate{Price: &price})
}

func (s *Service) UpdateProduct(ctx context.Context, id uuid.UUID, upd ProductUpdate) (*model.Product, error) {
	var updated *model.Product
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		p, err := tx.GetProductForUpdate(ctx, id)
		if err != nil {
			return productErr(err)
		}

		if upd.Name != nil {
			name := strings.TrimSpace(*upd.Name)
			if name == "" {
				return ErrInvalidName
			}
			if name != p.Name {
				other, err := tx.GetProductByName(ctx, name)
				if err == nil && other.ID != p.ID {
					return ErrProductExists
				} else if err != nil && !errors.Is(err, store.ErrNotFound) {
					return err
				}
			}
			p.Name = name
		}
		if upd.Description != nil {
			p.Description = *upd.Description
		}
		if upd.CategoryID != nil && *upd.CategoryID != p.CategoryID {
			if _, err := tx.GetCategory(ctx, *upd.CategoryID); err != nil {
				return categoryErr(err)
			}
			p.CategoryID = *upd.CategoryID
		}
		if upd.Price != nil {
			if upd.Price.IsNegative() {
				return ErrInvalidPrice
			}
			p.Price = model.NewMoney(upd.Price.Round(2))
		}
		if upd.Stock != nil {
			p.Stock = *upd.Stock
		}
		if upd.Reserved != nil {
			p.Reserved = *upd.Reserved
		}
		if p.Reserved < 0 || p.Reserved > p.Stock {
			return ErrInvalidStock
		}
		if upd.IsActive != nil {
			p.IsActive = *upd.IsActive
		}

		p.UpdatedAt = s.now()
		if err := tx.UpdateProduct(ctx, p); err != nil {
			return productErr(err)
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteProduct removes the product permanently. Cart lines holding it go
// with it; products that appear in orders cannot be deleted.
func (s *Service) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		return productErr(tx.DeleteProduct(ctx, id))
	})
	if err != nil {
		return err
	}
	log.Info().Str("component", "catalog").Str("product_id", id.String()).Msg("product deleted")
	return nil
}

// CreateDiscount appends a discount to the product's history and returns the
// product priced with it.
func (s *Service) CreateDiscount(ctx context.Context, productID uuid.UUID, pct int) (*ProductView, error) {
	if pct < 0 || pct > 100 {
		return nil, ErrInvalidDiscount
	}

	var view ProductView
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		p, err := tx.GetProduct(ctx, productID)
		if err != nil {
			return productErr(err)
		}
		d := &model.Discount{
			ID:         uuid.New(),
			ProductID:  productID,
			Percentage: pct,
			CreatedAt:  s.now(),
		}
		if err := tx.InsertDiscount(ctx, d); err != nil {
			return productErr(err)
		}
		discounts, err := tx.ListDiscounts(ctx, []uuid.UUID{productID})
		if err != nil {
			return err
		}
		view = ApplyDiscount(*p, discounts[productID])
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}
