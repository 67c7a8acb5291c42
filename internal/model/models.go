package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a catalog entry. Stock is the live sellable pool; Reserved is an
// administrative hold-back that is never handed out to carts.
type Product struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	CategoryID  uuid.UUID `db:"category_id" json:"category_id"`
	Price       Money     `db:"price" json:"price"`
	Stock       int       `db:"stock" json:"stock"`
	Reserved    int       `db:"reserved" json:"reserved"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// AvailableStock returns the quantity that can still be put into carts.
func (p *Product) AvailableStock() int {
	return p.Stock - p.Reserved
}

// Category is a node of the category tree. Root categories have no parent.
type Category struct {
	ID          uuid.UUID     `db:"id" json:"id"`
	Name        string        `db:"name" json:"name"`
	Description string        `db:"description" json:"description"`
	ParentID    uuid.NullUUID `db:"parent_id" json:"parent_id"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at" json:"updated_at"`
}

func (c *Category) IsRoot() bool {
	return !c.ParentID.Valid
}

// Discount is one entry of a product's discount history.
type Discount struct {
	ID         uuid.UUID `db:"id" json:"id"`
	ProductID  uuid.UUID `db:"product_id" json:"product_id"`
	Percentage int       `db:"discount_percentage" json:"discount_percentage"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

type Cart struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	UserID    uuid.UUID  `db:"user_id" json:"user_id"`
	Items     []CartItem `db:"-" json:"items"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

type CartItem struct {
	CartID    uuid.UUID `db:"cart_id" json:"cart_id"`
	ProductID uuid.UUID `db:"product_id" json:"product_id"`
	Quantity  int       `db:"quantity" json:"quantity"`
}

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderReserved  OrderStatus = "reserved"
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderReserved, OrderCompleted, OrderCancelled:
		return true
	}
	return false
}

type Order struct {
	ID        uuid.UUID   `db:"id" json:"id"`
	UserID    uuid.UUID   `db:"user_id" json:"user_id"`
	Status    OrderStatus `db:"status" json:"status"`
	Items     []OrderItem `db:"-" json:"items"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt time.Time   `db:"updated_at" json:"updated_at"`
}

// OrderItem snapshots the quantity only; price is always read live.
type OrderItem struct {
	ID        uuid.UUID `db:"id" json:"id"`
	OrderID   uuid.UUID `db:"order_id" json:"order_id"`
	ProductID uuid.UUID `db:"product_id" json:"product_id"`
	Quantity  int       `db:"quantity" json:"quantity"`
}

type User struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	IsSuperuser  bool      `db:"is_superuser" json:"is_superuser"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// ProductQuery selects active products with available stock.
// A zero CategoryID / ParentCategoryID means "no constraint".
type ProductQuery struct {
	CategoryID       uuid.UUID
	ParentCategoryID uuid.UUID
	Limit            int
	Offset           int
}

// ReportQuery filters order items for the sales report. Zero values are ignored.
type ReportQuery struct {
	Start       time.Time
	End         time.Time
	MinQuantity int
}

// ReportRow is one order item joined with its order and the product's current data.
type ReportRow struct {
	OrderItemID  uuid.UUID       `db:"order_item_id"`
	OrderID      uuid.UUID       `db:"order_id"`
	OrderedAt    time.Time       `db:"ordered_at"`
	ProductID    uuid.UUID       `db:"product_id"`
	ProductName  string          `db:"product_name"`
	ProductPrice decimal.Decimal `db:"product_price"`
	Quantity     int             `db:"quantity"`
}
