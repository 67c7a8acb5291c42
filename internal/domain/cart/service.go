package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/online-store/internal/domain/catalog"
	"github.com/example/online-store/internal/infrastructure/store"
	"github.com/example/online-store/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var (
	ErrItemNotFound      = errors.New("cart item not found")
	ErrInvalidQuantity   = errors.New("quantity must be at least 1")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// Service keeps one cart per user. Stock moves out of products.stock when
// it is put into a cart and back when it is taken out.
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

// Line is a cart item priced for display.
type Line struct {
	ProductID uuid.UUID   `json:"product_id"`
	Name      string      `json:"name"`
	Quantity  int         `json:"quantity"`
	UnitPrice model.Money `json:"unit_price"`
	Total     model.Money `json:"total"`
}

type View struct {
	ID     uuid.UUID   `json:"id"`
	UserID uuid.UUID   `json:"user_id"`
	Items  []Line      `json:"items"`
	Total  model.Money `json:"total"`
}

func (s *Service) GetOrCreate(ctx context.Context, userID uuid.UUID) (*model.Cart, error) {
	var c *model.Cart
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		c, err = s.getOrCreate(ctx, tx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// getOrCreate returns the user's cart locked for the rest of tx.
func (s *Service) getOrCreate(ctx context.Context, tx store.Tx, userID uuid.UUID) (*model.Cart, error) {
	c, err := tx.GetCartByUserForUpdate(ctx, userID)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	err = tx.InsertCart(ctx, &model.Cart{
		ID:        uuid.New(),
		UserID:    userID,
		CreatedAt: s.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("create cart: %w", err)
	}
	// A concurrent first add may have created the cart instead of us.
	return tx.GetCartByUserForUpdate(ctx, userID)
}

// GetCart returns the user's cart with current effective prices.
func (s *Service) GetCart(ctx context.Context, userID uuid.UUID) (*View, error) {
	var view *View
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		c, err := tx.GetCartByUser(ctx, userID)
		if errors.Is(err, store.ErrNotFound) {
			c, err = s.getOrCreate(ctx, tx, userID)
		}
		if err != nil {
			return err
		}

		ids := make([]uuid.UUID, len(c.Items))
		for i, it := range c.Items {
			ids[i] = it.ProductID
		}
		discounts := map[uuid.UUID][]model.Discount{}
		if len(ids) > 0 {
			if discounts, err = tx.ListDiscounts(ctx, ids); err != nil {
				return err
			}
		}

		view = &View{ID: c.ID, UserID: c.UserID, Items: make([]Line, 0, len(c.Items))}
		for _, it := range c.Items {
			p, err := tx.GetProduct(ctx, it.ProductID)
			if err != nil {
				return fmt.Errorf("load product %s: %w", it.ProductID, err)
			}
			priced := catalog.ApplyDiscount(*p, discounts[p.ID])
			line := Line{
				ProductID: p.ID,
				Name:      p.Name,
				Quantity:  it.Quantity,
				UnitPrice: priced.Price,
				Total:     model.NewMoney(priced.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))),
			}
			view.Items = append(view.Items, line)
			view.Total = model.NewMoney(view.Total.Add(line.Total.Decimal))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// AddItem reserves quantity units of the product and puts them in the
// user's cart, merging with an existing line for the same product.
func (s *Service) AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*model.CartItem, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	var item *model.CartItem
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		p, err := sellableProduct(ctx, tx, productID)
		if err != nil {
			return err
		}

		c, err := s.getOrCreate(ctx, tx, userID)
		if err != nil {
			return err
		}

		if err := reserve(ctx, tx, p, quantity); err != nil {
			return err
		}

		existing, err := tx.GetCartItem(ctx, c.ID, productID)
		switch {
		case err == nil:
			existing.Quantity += quantity
			if err := tx.UpdateCartItem(ctx, existing); err != nil {
				return err
			}
			item = existing
		case errors.Is(err, store.ErrNotFound):
			item = &model.CartItem{CartID: c.ID, ProductID: productID, Quantity: quantity}
			if err := tx.InsertCartItem(ctx, item); err != nil {
				return err
			}
		default:
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Debug().Str("component", "cart").Str("user_id", userID.String()).Str("product_id", productID.String()).
		Int("quantity", quantity).Msg("item added")
	return item, nil
}

// UpdateQuantity sets the line's quantity, reserving or releasing the
// difference.
func (s *Service) UpdateQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) (*model.CartItem, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	var item *model.CartItem
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		c, err := tx.GetCartByUserForUpdate(ctx, userID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrItemNotFound
			}
			return err
		}
		existing, err := tx.GetCartItem(ctx, c.ID, productID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrItemNotFound
			}
			return err
		}

		switch delta := quantity - existing.Quantity; {
		case delta > 0:
			p, err := sellableProduct(ctx, tx, productID)
			if err != nil {
				return err
			}
			if err := reserve(ctx, tx, p, delta); err != nil {
				return err
			}
		case delta < 0:
			if err := tx.ReleaseStock(ctx, productID, -delta); err != nil {
				return err
			}
		}

		existing.Quantity = quantity
		if err := tx.UpdateCartItem(ctx, existing); err != nil {
			return err
		}
		item = existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// RemoveItem drops the line and returns its quantity to stock. Removing a
// product that is not in the cart does nothing.
func (s *Service) RemoveItem(ctx context.Context, userID, productID uuid.UUID) error {
	return s.store.WithTx(ctx, func(tx store.Tx) error {
		c, err := tx.GetCartByUserForUpdate(ctx, userID)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		} else if err != nil {
			return err
		}
		existing, err := tx.GetCartItem(ctx, c.ID, productID)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		} else if err != nil {
			return err
		}

		if err := tx.ReleaseStock(ctx, productID, existing.Quantity); err != nil {
			return err
		}
		return tx.DeleteCartItem(ctx, c.ID, productID)
	})
}

// sellableProduct loads a product that may still be put into carts.
func sellableProduct(ctx context.Context, tx store.Tx, id uuid.UUID) (*model.Product, error) {
	p, err := tx.GetProduct(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, catalog.ErrProductNotFound
	} else if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, fmt.Errorf("%w: %s", catalog.ErrProductUnavailable, p.Name)
	}
	return p, nil
}

func reserve(ctx context.Context, tx store.Tx, p *model.Product, quantity int) error {
	err := tx.ReserveStock(ctx, p.ID, quantity)
	switch {
	case errors.Is(err, store.ErrInsufficientStock):
		return fmt.Errorf("%w for %s", ErrInsufficientStock, p.Name)
	case errors.Is(err, store.ErrNotFound):
		return catalog.ErrProductNotFound
	}
	return err
}
