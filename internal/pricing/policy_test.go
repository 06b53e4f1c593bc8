package pricing

import (
	"testing"

	"storefront/app/internal/config"
	"storefront/app/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicyFromConfig(t *testing.T) {
	policy, err := PolicyFromConfig(config.PricingConfig{
		FreeShippingThreshold: 15000,
		ShippingRates:         map[string]int64{"standard": 995, "express": 1995, "pickup": 0},
		TaxRates:              map[string]float64{"au": 0.10, "nz": 0.15},
		Coupons: map[string]config.CouponConfig{
			"welcome10": {Kind: "percent", Value: 10},
			"save20":    {Kind: "fixed", Value: 2000},
			"freeship":  {Kind: "free_shipping", Value: 1},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, DefaultPolicy().Coupons, policy.Coupons)
	assert.Equal(t, DefaultPolicy().ShippingRates, policy.ShippingRates)
	assert.Equal(t, int64(1000), policy.TaxRate("AU"))
	assert.Equal(t, int64(1500), policy.TaxRate("nz"))
	assert.Zero(t, policy.TaxRate("US"))

	coupon, ok := policy.Coupon(" Save20 ")
	assert.True(t, ok)
	assert.Equal(t, domain.Coupon{Kind: domain.CouponFixed, Value: 2000}, coupon)
}

func TestPolicyFromConfigRejects(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.PricingConfig
	}{
		{"missing standard", config.PricingConfig{ShippingRates: map[string]int64{"express": 1}}},
		{"negative rate", config.PricingConfig{ShippingRates: map[string]int64{"standard": -1}}},
		{"negative tax", config.PricingConfig{ShippingRates: map[string]int64{"standard": 1}, TaxRates: map[string]float64{"AU": -0.1}}},
		{"unknown coupon kind", config.PricingConfig{
			ShippingRates: map[string]int64{"standard": 1},
			Coupons:       map[string]config.CouponConfig{"X": {Kind: "bogus"}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := PolicyFromConfig(tt.cfg)
			assert.Error(t, err)
		})
	}
}
