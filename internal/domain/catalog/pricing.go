package catalog

import (
	"bytes"

	"github.com/example/online-store/internal/model"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ProductView is a product as shown to shoppers: Price carries the effective
// (discounted) price, OriginalPrice the persisted one.
type ProductView struct {
	model.Product
	OriginalPrice      model.Money      `json:"original_price"`
	DiscountPercentage int              `json:"discount_percentage"`
	Discounts          []model.Discount `json:"discounts"`
}

// EffectivePrice returns price * (1 - pct/100) rounded to cents.
func EffectivePrice(price decimal.Decimal, pct int) decimal.Decimal {
	factor := decimal.NewFromInt(int64(100 - pct))
	return price.Mul(factor).Div(hundred).Round(2)
}

// LatestDiscount picks the most recently created discount. Equal timestamps
// are broken by the greater id so the choice is stable.
func LatestDiscount(discounts []model.Discount) (model.Discount, bool) {
	if len(discounts) == 0 {
		return model.Discount{}, false
	}
	latest := discounts[0]
	for _, d := range discounts[1:] {
		if d.CreatedAt.After(latest.CreatedAt) ||
			(d.CreatedAt.Equal(latest.CreatedAt) && bytes.Compare(d.ID[:], latest.ID[:]) > 0) {
			latest = d
		}
	}
	return latest, true
}

// ApplyDiscount builds the shopper view of p. p itself is not modified.
func ApplyDiscount(p model.Product, discounts []model.Discount) ProductView {
	view := ProductView{
		Product:       p,
		OriginalPrice: p.Price,
		Discounts:     discounts,
	}
	if view.Discounts == nil {
		view.Discounts = []model.Discount{}
	}
	if d, ok := LatestDiscount(discounts); ok {
		view.DiscountPercentage = d.Percentage
		view.Price = model.NewMoney(EffectivePrice(p.Price.Decimal, d.Percentage))
	}
	return view
}

// Page is one slice of a filtered listing. Total counts the whole filtered set.
type Page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Size  int `json:"size"`
	Pages int `json:"pages"`
}

const MaxPageSize = 100

func validatePage(page, size int) error {
	if page < 1 || size < 1 || size > MaxPageSize {
		return ErrInvalidPage
	}
	return nil
}

func newPage[T any](items []T, total, page, size int) *Page[T] {
	return &Page[T]{
		Items: items,
		Total: total,
		Page:  page,
		Size:  size,
		Pages: (total + size - 1) / size,
	}
}
