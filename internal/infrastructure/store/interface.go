package store

import (
	"context"
	"time"

	"github.com/example/online-store/internal/model"
	"github.com/google/uuid"
)

// Store opens transaction scopes. Every read and write the services perform
// goes through the Tx handed to fn; fn returning an error rolls back.
type Store interface {
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the persistence collaborator available inside one transaction.
type Tx interface {
	ProductRepository
	DiscountRepository
	CategoryRepository
	CartRepository
	OrderRepository
	UserRepository
}

type ProductRepository interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error)
	// GetProductForUpdate locks the product row until the transaction ends.
	GetProductForUpdate(ctx context.Context, id uuid.UUID) (*model.Product, error)
	GetProductByName(ctx context.Context, name string) (*model.Product, error)
	// ListProducts returns one page of active products with available stock
	// and the size of the whole filtered set.
	ListProducts(ctx context.Context, q model.ProductQuery) ([]model.Product, int, error)
	InsertProduct(ctx context.Context, p *model.Product) error
	UpdateProduct(ctx context.Context, p *model.Product) error
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	// ReserveStock takes qty out of the available pool in a single
	// conditional write. ErrInsufficientStock if stock - reserved < qty.
	ReserveStock(ctx context.Context, productID uuid.UUID, qty int) error
	// ReleaseStock returns qty to the pool.
	ReleaseStock(ctx context.Context, productID uuid.UUID, qty int) error
}

type DiscountRepository interface {
	InsertDiscount(ctx context.Context, d *model.Discount) error
	// ListDiscounts returns the discount history of each product, newest first.
	ListDiscounts(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID][]model.Discount, error)
}

type CategoryRepository interface {
	GetCategory(ctx context.Context, id uuid.UUID) (*model.Category, error)
	GetCategoryByName(ctx context.Context, name string) (*model.Category, error)
	ListCategories(ctx context.Context) ([]model.Category, error)
	InsertCategory(ctx context.Context, c *model.Category) error
	UpdateCategory(ctx context.Context, c *model.Category) error
	// DeleteCategory removes the category and all its descendants.
	DeleteCategory(ctx context.Context, id uuid.UUID) error
}

type CartRepository interface {
	// GetCartByUser returns the user's cart with its items.
	GetCartByUser(ctx context.Context, userID uuid.UUID) (*model.Cart, error)
	// GetCartByUserForUpdate is GetCartByUser with the cart row locked until
	// the transaction ends. Every cart mutation and checkout takes this lock
	// before touching items or stock.
	GetCartByUserForUpdate(ctx context.Context, userID uuid.UUID) (*model.Cart, error)
	// InsertCart does nothing when the user already has a cart.
	InsertCart(ctx context.Context, c *model.Cart) error
	DeleteCart(ctx context.Context, cartID uuid.UUID) error
	GetCartItem(ctx context.Context, cartID, productID uuid.UUID) (*model.CartItem, error)
	InsertCartItem(ctx context.Context, item *model.CartItem) error
	UpdateCartItem(ctx context.Context, item *model.CartItem) error
	DeleteCartItem(ctx context.Context, cartID, productID uuid.UUID) error
}

type OrderRepository interface {
	InsertOrder(ctx context.Context, o *model.Order) error
	InsertOrderItem(ctx context.Context, item *model.OrderItem) error
	// GetOrder returns the order with its items, scoped to its owner.
	GetOrder(ctx context.Context, id, userID uuid.UUID) (*model.Order, error)
	ListOrders(ctx context.Context, userID uuid.UUID) ([]model.Order, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus, at time.Time) error
	SalesReport(ctx context.Context, q model.ReportQuery) ([]model.ReportRow, error)
}

type UserRepository interface {
	GetUser(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	// UserExists reports whether the username or the email is taken.
	UserExists(ctx context.Context, username, email string) (bool, error)
	InsertUser(ctx context.Context, u *model.User) error
	UpdateUserPassword(ctx context.Context, id uuid.UUID, hash string, at time.Time) error
	// RevokeToken blacklists jti. It reports false when jti was already
	// revoked, so exactly one caller wins a race to revoke the same token.
	RevokeToken(ctx context.Context, jti string, expiresAt time.Time) (bool, error)
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
	// DeleteExpiredTokens drops blacklist entries whose token expired before
	// now and returns how many were removed.
	DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error)
}
