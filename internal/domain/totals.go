package domain

// Hint is the soft message pricing wants shown next to the coupon field.
type Hint string

const (
	HintNone                  Hint = ""
	HintFreeShippingThreshold Hint = "free_shipping_threshold"
	HintFreeShippingCoupon    Hint = "free_shipping_coupon"
	HintCouponUnrecognized    Hint = "coupon_unrecognized"
)

// Totals are derived from a cart and selections and are never stored.
// All amounts are minor units.
type Totals struct {
	SubtotalCents int64 `json:"subtotal_cents"`
	DiscountCents int64 `json:"discount_cents"`
	ShippingCents int64 `json:"shipping_cents"`
	TaxCents      int64 `json:"tax_cents"`
	TotalCents    int64 `json:"total_cents"`

	FreeByThreshold bool `json:"free_by_threshold"`
	FreeByCoupon    bool `json:"free_by_coupon"`
	FreeByPickup    bool `json:"free_by_pickup"`

	Coupon *Coupon `json:"coupon,omitempty"` // Applied coupon, nil when none matched
	Hint   Hint    `json:"hint,omitempty"`
}

// PreTaxCents is the total before tax.
func (t Totals) PreTaxCents() int64 {
	return t.TotalCents - t.TaxCents
}
