package cache

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKey(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		query    url.Values
		expected string
	}{
		{"no params", "/products", url.Values{}, "/products?"},
		{"sorted params", "/products", url.Values{"size": {"10"}, "page": {"2"}}, "/products?page=2&size=10"},
		{"repeated param", "/products/filter", url.Values{"category_id": {"b", "a"}}, "/products/filter?category_id=a&category_id=b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Key(tt.path, tt.query))
		})
	}
}

func TestKey_OrderIndependent(t *testing.T) {
	a, _ := url.ParseQuery("page=1&size=20&category_id=x")
	b, _ := url.ParseQuery("category_id=x&size=20&page=1")

	assert.Equal(t, Key("/products/filter", a), Key("/products/filter", b))
}
