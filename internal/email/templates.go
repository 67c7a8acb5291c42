package email

import (
	"fmt"
	"html"
	"strings"

	"github.com/shopspring/decimal"
)

// OrderItem represents an item in an order for email purposes
type OrderItem struct {
	ProductID string
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
}

// BuildOrderConfirmationBody builds the HTML body for order confirmation email
func BuildOrderConfirmationBody(orderID string, total decimal.Decimal, items []OrderItem) string {
	var rows strings.Builder
	for _, item := range items {
		name := item.Name
		if name == "" {
			name = item.ProductID
		}
		line := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		fmt.Fprintf(&rows, `<tr>
				<td style="padding: 8px; border-bottom: 1px solid #eee;">%s</td>
				<td style="padding: 8px; border-bottom: 1px solid #eee; text-align: center;">%d</td>
				<td style="padding: 8px; border-bottom: 1px solid #eee; text-align: right;">%s</td>
				<td style="padding: 8px; border-bottom: 1px solid #eee; text-align: right;">%s</td>
			</tr>
`, html.EscapeString(name), item.Quantity, FormatMoney(item.UnitPrice), FormatMoney(line))
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: sans-serif; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
	<h1 style="font-size: 22px;">Thank you for your order</h1>
	<p>Order number: <strong style="font-family: monospace;">%s</strong></p>
	<table style="width: 100%%; border-collapse: collapse; margin: 20px 0;">
		<thead>
			<tr style="background: #f8f9fa;">
				<th style="padding: 8px; text-align: left;">Product</th>
				<th style="padding: 8px; text-align: center;">Qty</th>
				<th style="padding: 8px; text-align: right;">Unit price</th>
				<th style="padding: 8px; text-align: right;">Subtotal</th>
			</tr>
		</thead>
		<tbody>
			%s
		</tbody>
	</table>
	<p style="text-align: right; font-size: 18px;">Total: <strong>%s</strong></p>
	<p style="font-size: 12px; color: #999;">This is an automated message.</p>
</body>
</html>`, html.EscapeString(orderID), rows.String(), FormatMoney(total))
}

// BuildStatusUpdateBody builds the HTML body for a status change email
func BuildStatusUpdateBody(orderID, status string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: sans-serif; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
	<p>Your order <strong style="font-family: monospace;">%s</strong> is now <strong>%s</strong>.</p>
	<p style="font-size: 12px; color: #999;">This is an automated message.</p>
</body>
</html>`, html.EscapeString(orderID), html.EscapeString(status))
}

// FormatMoney renders an amount with two decimals and thousands separators
func FormatMoney(d decimal.Decimal) string {
	fixed := d.StringFixed(2)
	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign, fixed = "-", fixed[1:]
	}
	intPart, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	lead := len(intPart) % 3
	if lead > 0 {
		b.WriteString(intPart[:lead])
	}
	for i := lead; i < len(intPart); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(intPart[i : i+3])
	}
	return "$" + sign + b.String() + "." + frac
}
