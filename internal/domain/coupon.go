package domain

type CouponKind string

const (
	CouponPercent      CouponKind = "percent"
	CouponFixed        CouponKind = "fixed"
	CouponFreeShipping CouponKind = "free_shipping"
)

// Coupon values are a whole percentage for percent coupons and minor units
// for fixed coupons. Free-shipping coupons ignore the value.
type Coupon struct {
	Kind  CouponKind `json:"kind" mapstructure:"kind"`
	Value int64      `json:"value" mapstructure:"value"`
}
