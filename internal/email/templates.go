package email

import (
	"bytes"
	"html/template"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// OrderLine is an item row in an order email
type OrderLine struct {
	Title    string
	Quantity int
	Price    decimal.Decimal
	Subtotal decimal.Decimal
}

// OrderConfirmation is the data behind the confirmation email
type OrderConfirmation struct {
	OrderNumber  string
	CustomerName string
	Items        []OrderLine
	Subtotal     decimal.Decimal
	Tax          decimal.Decimal
	Shipping     decimal.Decimal
	Discount     decimal.Decimal
	Total        decimal.Decimal
	PlacedAt     time.Time
}

// StatusUpdate is the data behind shipping, delivery and cancellation emails
type StatusUpdate struct {
	OrderNumber    string
	Status         string
	Note           string
	Carrier        string
	TrackingNumber string
	ChangedAt      time.Time
}

// Money renders an amount as dollars with thousands separators.
func Money(d decimal.Decimal) string {
	return "$" + humanize.FormatFloat("#,###.##", d.Round(2).InexactFloat64())
}

var funcs = template.FuncMap{
	"money": Money,
	"count": func(n int) string { return humanize.Comma(int64(n)) },
	"date":  func(t time.Time) string { return t.Format("January 2, 2006") },
}

const layoutStyle = `font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;`

var confirmationTmpl = template.Must(template.New("confirmation").Funcs(funcs).Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="` + layoutStyle + `">
	<h1 style="font-size: 24px;">Thank you for your order</h1>
	{{if .CustomerName}}<p>Hi {{.CustomerName}},</p>{{end}}
	<p>We received order <strong style="font-family: monospace;">{{.OrderNumber}}</strong> on {{date .PlacedAt}}.</p>
	<table style="width: 100%; border-collapse: collapse; margin: 20px 0;">
		<thead>
			<tr style="background: #f8f9fa;">
				<th style="padding: 12px; text-align: left;">Book</th>
				<th style="padding: 12px; text-align: center;">Qty</th>
				<th style="padding: 12px; text-align: right;">Price</th>
				<th style="padding: 12px; text-align: right;">Subtotal</th>
			</tr>
		</thead>
		<tbody>
		{{range .Items}}
			<tr>
				<td style="padding: 12px; border-bottom: 1px solid #eee;">{{.Title}}</td>
				<td style="padding: 12px; border-bottom: 1px solid #eee; text-align: center;">{{count .Quantity}}</td>
				<td style="padding: 12px; border-bottom: 1px solid #eee; text-align: right;">{{money .Price}}</td>
				<td style="padding: 12px; border-bottom: 1px solid #eee; text-align: right;">{{money .Subtotal}}</td>
			</tr>
		{{end}}
		</tbody>
	</table>
	<table style="width: 100%; text-align: right;">
		<tr><td>Subtotal</td><td>{{money .Subtotal}}</td></tr>
		<tr><td>Tax</td><td>{{money .Tax}}</td></tr>
		<tr><td>Shipping</td><td>{{if .Shipping.IsZero}}Free{{else}}{{money .Shipping}}{{end}}</td></tr>
		{{if .Discount.IsPositive}}<tr><td>You saved</td><td>{{money .Discount}}</td></tr>{{end}}
		<tr><td><strong>Total</strong></td><td><strong>{{money .Total}}</strong></td></tr>
	</table>
	<p style="font-size: 12px; color: #999;">This email was sent automatically. Contact support if anything looks wrong.</p>
</body>
</html>`))

var statusTmpl = template.Must(template.New("status").Funcs(funcs).Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="` + layoutStyle + `">
	<h1 style="font-size: 24px;">Order {{.OrderNumber}} is {{.Status}}</h1>
	<p>Updated on {{date .ChangedAt}}.</p>
	{{if .Note}}<p>{{.Note}}</p>{{end}}
	{{if .TrackingNumber}}<p>Tracking: {{if .Carrier}}{{.Carrier}} {{end}}<span style="font-family: monospace;">{{.TrackingNumber}}</span></p>{{end}}
	<p style="font-size: 12px; color: #999;">This email was sent automatically. Contact support if anything looks wrong.</p>
</body>
</html>`))

// BuildOrderConfirmationBody renders the HTML body of the confirmation email
func BuildOrderConfirmationBody(data OrderConfirmation) (string, error) {
	var buf bytes.Buffer
	if err := confirmationTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// BuildStatusBody renders the HTML body of a status email
func BuildStatusBody(data StatusUpdate) (string, error) {
	var buf bytes.Buffer
	if err := statusTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
