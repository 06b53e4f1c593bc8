package domain

import "github.com/shopspring/decimal"

// Product is one row of the catalog feed. It is never modified after parsing.
type Product struct {
	ID          string          `json:"id"`          // SKU, or a slug of the title when the feed has none
	Name        string          `json:"name"`        // Display title
	Price       decimal.Decimal `json:"price"`       // Unit price in major units
	Currency    string          `json:"currency"`    // ISO 4217 code, upper case
	Image       string          `json:"image"`       // First http(s) image or the placeholder
	Description string          `json:"description"` // Free text, may be empty
	Brand       string          `json:"brand"`       // Free text, may be empty
}

// PriceCents rounds the unit price to minor units.
func (p Product) PriceCents() int64 {
	return p.Price.Shift(2).Round(0).IntPart()
}
