package email

import (
	"net/smtp"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"0", "$0.00"},
		{"5.5", "$5.50"},
		{"999.99", "$999.99"},
		{"1000", "$1,000.00"},
		{"1234567.891", "$1,234,567.89"},
		{"-42.1", "$-42.10"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatMoney(decimal.RequireFromString(tt.in)))
		})
	}
}

func TestBuildOrderConfirmationBody(t *testing.T) {
	body := BuildOrderConfirmationBody("order-123", decimal.RequireFromString("35"), []OrderItem{
		{ProductID: "p1", Name: "Mug <large>", Quantity: 3, UnitPrice: decimal.RequireFromString("10")},
		{ProductID: "p2", Quantity: 2, UnitPrice: decimal.RequireFromString("2.5")},
	})

	assert.Contains(t, body, "order-123")
	assert.Contains(t, body, "Mug &lt;large&gt;")
	assert.Contains(t, body, "p2")
	assert.Contains(t, body, "$30.00")
	assert.Contains(t, body, "$35.00")
}

func TestService_SendOrderConfirmation(t *testing.T) {
	svc := NewService("mail.local", 2525, "shop@example.com")

	var (
		gotAddr string
		gotTo   []string
		gotMsg  string
	)
	svc.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, string(msg)
		return nil
	}

	err := svc.SendOrderConfirmation("alice@example.com", "0123456789abcdef", decimal.NewFromInt(10), nil)

	require.NoError(t, err)
	assert.Equal(t, "mail.local:2525", gotAddr)
	assert.Equal(t, []string{"alice@example.com"}, gotTo)
	assert.True(t, strings.HasPrefix(gotMsg, "From: shop@example.com\r\n"))
	assert.Contains(t, gotMsg, "Subject: Order confirmation #01234567\r\n")
}
