package catalog

import (
	"testing"
	"time"

	"github.com/example/online-store/internal/model"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestEffectivePrice(t *testing.T) {
	tests := []struct {
		price    string
		pct      int
		expected string
	}{
		{"100.00", 20, "80.00"},
		{"19.99", 15, "16.99"},
		{"10.00", 0, "10.00"},
		{"10.00", 100, "0.00"},
		{"0.05", 50, "0.03"},
		{"0.10", 33, "0.07"},
	}

	for _, tt := range tests {
		t.Run(tt.price, func(t *testing.T) {
			got := EffectivePrice(decimal.RequireFromString(tt.price), tt.pct)
			assert.Equal(t, tt.expected, got.StringFixed(2))
		})
	}
}

func TestApplyDiscount_LeavesProductUntouched(t *testing.T) {
	p := model.Product{ID: uuid.New(), Price: model.NewMoney(decimal.RequireFromString("100.00"))}
	discounts := []model.Discount{{ID: uuid.New(), ProductID: p.ID, Percentage: 20, CreatedAt: time.Now()}}

	view := ApplyDiscount(p, discounts)

	assert.Equal(t, "80.00", view.Price.StringFixed(2))
	assert.Equal(t, "100.00", view.OriginalPrice.StringFixed(2))
	assert.Equal(t, "100.00", p.Price.StringFixed(2))
}

func TestApplyDiscount_PicksLatest(t *testing.T) {
	p := model.Product{ID: uuid.New(), Price: model.NewMoney(decimal.NewFromInt(200))}
	now := time.Now()
	discounts := []model.Discount{
		{ID: uuid.New(), Percentage: 10, CreatedAt: now.Add(-2 * time.Hour)},
		{ID: uuid.New(), Percentage: 30, CreatedAt: now},
		{ID: uuid.New(), Percentage: 50, CreatedAt: now.Add(-time.Hour)},
	}

	view := ApplyDiscount(p, discounts)

	assert.Equal(t, 30, view.DiscountPercentage)
	assert.Equal(t, "140.00", view.Price.StringFixed(2))
}

func TestApplyDiscount_TieBreakIsOrderIndependent(t *testing.T) {
	now := time.Now()
	low := model.Discount{ID: uuid.MustParse("00000000-0000-0000-0000-000000000001"), Percentage: 10, CreatedAt: now}
	high := model.Discount{ID: uuid.MustParse("ffffffff-0000-0000-0000-000000000000"), Percentage: 40, CreatedAt: now}

	d1, ok := LatestDiscount([]model.Discount{low, high})
	assert.True(t, ok)
	d2, _ := LatestDiscount([]model.Discount{high, low})

	assert.Equal(t, high.ID, d1.ID)
	assert.Equal(t, high.ID, d2.ID)
}

func TestApplyDiscount_NoDiscounts(t *testing.T) {
	p := model.Product{Price: model.NewMoney(decimal.RequireFromString("9.99"))}

	view := ApplyDiscount(p, nil)

	assert.Equal(t, "9.99", view.Price.StringFixed(2))
	assert.Equal(t, 0, view.DiscountPercentage)
	assert.NotNil(t, view.Discounts)
}
