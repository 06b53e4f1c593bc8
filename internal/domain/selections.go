package domain

import "strings"

type ShippingMethod string

func (m ShippingMethod) String() string {
	return string(m)
}

const (
	ShippingStandard ShippingMethod = "standard"
	ShippingExpress  ShippingMethod = "express"
	ShippingPickup   ShippingMethod = "pickup"
)

var ShippingMethods = []ShippingMethod{
	ShippingStandard,
	ShippingExpress,
	ShippingPickup,
}

func (m ShippingMethod) Label() string {
	switch m {
	case ShippingStandard:
		return "Standard"
	case ShippingExpress:
		return "Express"
	case ShippingPickup:
		return "Pickup"
	default:
		return "Unknown"
	}
}

// ParseShippingMethod falls back to standard for anything it does not know.
func ParseShippingMethod(s string) ShippingMethod {
	m := ShippingMethod(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range ShippingMethods {
		if m == known {
			return m
		}
	}
	return ShippingStandard
}

const DefaultCountry = "AU"

// Selections are the checkout choices that feed pricing.
type Selections struct {
	Method  ShippingMethod `json:"method"`
	Country string         `json:"country"`
	Code    string         `json:"code"` // Coupon code, upper case, may be empty
}

// DefaultSelections is what a fresh checkout starts with.
func DefaultSelections() Selections {
	return Selections{Method: ShippingStandard, Country: DefaultCountry}
}

// Normalize trims and upper-cases the coupon code and fills in defaults.
func (s Selections) Normalize() Selections {
	s.Method = ParseShippingMethod(string(s.Method))
	s.Country = strings.ToUpper(strings.TrimSpace(s.Country))
	if s.Country == "" {
		s.Country = DefaultCountry
	}
	s.Code = strings.ToUpper(strings.TrimSpace(s.Code))
	return s
}
