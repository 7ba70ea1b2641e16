// Package pricing is the single place cart and order totals are computed.
package pricing

import "github.com/shopspring/decimal"

var (
	// TaxRate is applied to the subtotal.
	TaxRate = decimal.RequireFromString("0.08")
	// FreeShippingThreshold: subtotals strictly above it ship free.
	FreeShippingThreshold = decimal.NewFromInt(50)
	// FlatShipping is charged at or below the threshold.
	FlatShipping = decimal.RequireFromString("5.99")
)

// Line is one priced quantity.
type Line struct {
	Price         decimal.Decimal
	OriginalPrice decimal.Decimal
	Quantity      int
}

// Subtotal is price × quantity.
func (l Line) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Discount is (originalPrice − price) × quantity when originalPrice is above price.
func (l Line) Discount() decimal.Decimal {
	if !l.OriginalPrice.GreaterThan(l.Price) {
		return decimal.Zero
	}
	return l.OriginalPrice.Sub(l.Price).Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Summary is the derived price breakdown shown for carts and orders.
// Discount is informational: prices are already discounted.
type Summary struct {
	TotalItems int             `json:"totalItems"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	Tax        decimal.Decimal `json:"tax"`
	Shipping   decimal.Decimal `json:"shipping"`
	Discount   decimal.Decimal `json:"discount"`
	Total      decimal.Decimal `json:"total"`
}

// Shipping returns the shipping charge for a subtotal.
func Shipping(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThan(FreeShippingThreshold) {
		return decimal.Zero
	}
	return FlatShipping
}

// Tax returns the tax for a subtotal, rounded to cents.
func Tax(subtotal decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(TaxRate).Round(2)
}

// Compute builds the summary for a set of lines. Shipping follows the subtotal
// alone, so an empty set still carries the flat charge.
func Compute(lines []Line) Summary {
	var s Summary
	s.Subtotal = decimal.Zero
	s.Discount = decimal.Zero
	for _, l := range lines {
		s.TotalItems += l.Quantity
		s.Subtotal = s.Subtotal.Add(l.Subtotal())
		s.Discount = s.Discount.Add(l.Discount())
	}
	s.Subtotal = s.Subtotal.Round(2)
	s.Discount = s.Discount.Round(2)
	s.Tax = Tax(s.Subtotal)
	s.Shipping = Shipping(s.Subtotal)
	s.Total = s.Subtotal.Add(s.Tax).Add(s.Shipping)
	return s
}
