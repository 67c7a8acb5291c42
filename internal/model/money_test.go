package model

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoney_MarshalJSON(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"80", `"80.00"`},
		{"12.5", `"12.50"`},
		{"0", `"0.00"`},
		{"9.99", `"9.99"`},
		{"-3.1", `"-3.10"`},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			data, err := json.Marshal(NewMoney(decimal.RequireFromString(tt.in)))
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(data))
		})
	}
}

func TestMoney_ZeroValue(t *testing.T) {
	data, err := json.Marshal(struct {
		Total Money `json:"total"`
	}{})

	require.NoError(t, err)
	assert.JSONEq(t, `{"total":"0.00"}`, string(data))
}

func TestMoney_InProduct(t *testing.T) {
	p := Product{Name: "lamp", Price: NewMoney(decimal.NewFromInt(100))}

	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"price":"100.00"`)

	var back Product
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, back.Price.Equal(decimal.NewFromInt(100)))
}
