package catalog

import (
	"errors"

	"github.com/example/online-store/internal/infrastructure/store"
)

var (
	ErrProductNotFound    = errors.New("product not found")
	ErrProductExists      = errors.New("product with this name already exists")
	ErrProductInUse       = errors.New("product is referenced by existing orders")
	ErrProductUnavailable = errors.New("product is not available for sale")
	ErrCategoryNotFound   = errors.New("category not found")
	ErrCategoryExists     = errors.New("category with this name already exists")
	ErrCategoryInUse      = errors.New("category or one of its subcategories still has products")
	ErrCategoryCycle      = errors.New("category parent would create a cycle")
	ErrInvalidName        = errors.New("name is required")
	ErrInvalidPrice       = errors.New("price must not be negative")
	ErrInvalidStock       = errors.New("stock and reserved must satisfy 0 <= reserved <= stock")
	ErrInvalidDiscount    = errors.New("discount percentage must be between 0 and 100")
	ErrInvalidPage        = errors.New("page must be at least 1 and size between 1 and 100")
)

func productErr(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return ErrProductNotFound
	case errors.Is(err, store.ErrDuplicate):
		return ErrProductExists
	case errors.Is(err, store.ErrReferenced):
		return ErrProductInUse
	}
	return err
}

func categoryErr(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return ErrCategoryNotFound
	case errors.Is(err, store.ErrDuplicate):
		return ErrCategoryExists
	case errors.Is(err, store.ErrReferenced):
		return ErrCategoryInUse
	}
	return err
}
