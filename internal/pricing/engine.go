// Package pricing turns a cart and checkout selections into totals.
package pricing

import (
	"storefront/app/internal/domain"
)

const basisPoints = 10000

type Engine struct {
	policy Policy
}

func NewEngine(policy Policy) *Engine {
	return &Engine{policy: policy}
}

func (e *Engine) Policy() Policy {
	return e.policy
}

// ComputeTotals depends only on its arguments and the policy.
func (e *Engine) ComputeTotals(items []domain.CartItem, selections domain.Selections) domain.Totals {
	selections = selections.Normalize()
	totals := domain.Totals{}

	for _, item := range items {
		totals.SubtotalCents += item.LineCents()
	}

	coupon, found := e.policy.Coupon(selections.Code)
	if found {
		totals.Coupon = &coupon
		switch coupon.Kind {
		case domain.CouponPercent:
			totals.DiscountCents = totals.SubtotalCents * coupon.Value / 100
		case domain.CouponFixed:
			totals.DiscountCents = min(coupon.Value, totals.SubtotalCents)
		}
		totals.DiscountCents = max(0, totals.DiscountCents)
	}

	totals.FreeByThreshold = totals.SubtotalCents >= e.policy.FreeShippingThreshold
	totals.FreeByCoupon = found && coupon.Kind == domain.CouponFreeShipping
	totals.FreeByPickup = selections.Method == domain.ShippingPickup
	// Nothing ships from an empty cart.
	if len(items) > 0 && !totals.FreeByThreshold && !totals.FreeByCoupon && !totals.FreeByPickup {
		totals.ShippingCents = e.policy.ShippingRate(selections.Method)
	}

	preTax := max(0, totals.SubtotalCents-totals.DiscountCents+totals.ShippingCents)
	totals.TaxCents = roundBasisPoints(preTax, e.policy.TaxRate(selections.Country))
	totals.TotalCents = preTax + totals.TaxCents

	switch {
	case totals.FreeByThreshold && totals.SubtotalCents > 0:
		totals.Hint = domain.HintFreeShippingThreshold
	case totals.FreeByCoupon:
		totals.Hint = domain.HintFreeShippingCoupon
	case selections.Code != "" && !found:
		totals.Hint = domain.HintCouponUnrecognized
	}

	return totals
}

// roundBasisPoints rounds amount*bp/10000 half up. Both inputs are non-negative.
func roundBasisPoints(amount, bp int64) int64 {
	return (amount*bp + basisPoints/2) / basisPoints
}
