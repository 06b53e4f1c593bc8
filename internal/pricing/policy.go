package pricing

import (
	"fmt"
	"math"
	"strings"

	"storefront/app/internal/config"
	"storefront/app/internal/domain"
)

// Policy is the static pricing table: shipping rates per method, the
// free-shipping threshold, tax rates per destination country in basis points,
// and the coupon table keyed by upper-case code.
type Policy struct {
	FreeShippingThreshold int64
	ShippingRates         map[domain.ShippingMethod]int64
	TaxRates              map[string]int64
	Coupons               map[string]domain.Coupon
}

// DefaultPolicy is the reference policy.
func DefaultPolicy() Policy {
	return Policy{
		FreeShippingThreshold: 15000,
		ShippingRates: map[domain.ShippingMethod]int64{
			domain.ShippingStandard: 995,
			domain.ShippingExpress:  1995,
			domain.ShippingPickup:   0,
		},
		TaxRates: map[string]int64{
			"AU": 1000,
		},
		Coupons: map[string]domain.Coupon{
			"WELCOME10": {Kind: domain.CouponPercent, Value: 10},
			"SAVE20":    {Kind: domain.CouponFixed, Value: 2000},
			"FREESHIP":  {Kind: domain.CouponFreeShipping, Value: 1},
		},
	}
}

// PolicyFromConfig builds a policy from the pricing section. Config keys come
// back lower case, so codes and countries are upper-cased here.
func PolicyFromConfig(cfg config.PricingConfig) (Policy, error) {
	policy := Policy{
		FreeShippingThreshold: cfg.FreeShippingThreshold,
		ShippingRates:         make(map[domain.ShippingMethod]int64, len(cfg.ShippingRates)),
		TaxRates:              make(map[string]int64, len(cfg.TaxRates)),
		Coupons:               make(map[string]domain.Coupon, len(cfg.Coupons)),
	}

	for method, rate := range cfg.ShippingRates {
		if rate < 0 {
			return Policy{}, fmt.Errorf("shipping rate for %s must not be negative", method)
		}
		policy.ShippingRates[domain.ShippingMethod(strings.ToLower(method))] = rate
	}
	if _, ok := policy.ShippingRates[domain.ShippingStandard]; !ok {
		return Policy{}, fmt.Errorf("shipping rate for %s is required", domain.ShippingStandard)
	}

	for country, rate := range cfg.TaxRates {
		if rate < 0 {
			return Policy{}, fmt.Errorf("tax rate for %s must not be negative", country)
		}
		policy.TaxRates[strings.ToUpper(country)] = int64(math.Round(rate * basisPoints))
	}

	for code, coupon := range cfg.Coupons {
		kind := domain.CouponKind(coupon.Kind)
		switch kind {
		case domain.CouponPercent, domain.CouponFixed, domain.CouponFreeShipping:
		default:
			return Policy{}, fmt.Errorf("coupon %s: unknown kind %q", code, coupon.Kind)
		}
		policy.Coupons[strings.ToUpper(code)] = domain.Coupon{Kind: kind, Value: coupon.Value}
	}

	return policy, nil
}

// Coupon looks a code up case-insensitively.
func (p Policy) Coupon(code string) (domain.Coupon, bool) {
	coupon, ok := p.Coupons[strings.ToUpper(strings.TrimSpace(code))]
	return coupon, ok
}

// ShippingRate falls back to the standard rate for unknown methods.
func (p Policy) ShippingRate(method domain.ShippingMethod) int64 {
	if rate, ok := p.ShippingRates[method]; ok {
		return rate
	}
	return p.ShippingRates[domain.ShippingStandard]
}

// TaxRate is in basis points; countries without an entry are untaxed.
func (p Policy) TaxRate(country string) int64 {
	return p.TaxRates[strings.ToUpper(country)]
}
