package web

import (
	"net/http"
	"net/url"
	"strings"

	"storefront/app/internal/checkout"
	"storefront/app/internal/domain"
)

func checked(r *http.Request, name string) bool {
	switch strings.ToLower(r.PostFormValue(name)) {
	case "1", "on", "true", "yes":
		return true
	default:
		return false
	}
}

func selectionsFromForm(r *http.Request, current domain.Selections) domain.Selections {
	sel := current
	if v := r.PostFormValue("method"); v != "" {
		sel.Method = domain.ParseShippingMethod(v)
	}
	if v := r.PostFormValue("country"); v != "" {
		sel.Country = v
	}
	if _, ok := r.PostForm["coupon"]; ok {
		sel.Code = r.PostFormValue("coupon")
	}
	if checked(r, "remove_coupon") {
		sel.Code = ""
	}
	return sel.Normalize()
}

func submitRequestFromForm(r *http.Request) checkout.SubmitRequest {
	contact := domain.Contact{
		Email: r.PostFormValue("email"),
		Shipping: domain.Shipping{
			Name:  r.PostFormValue("name"),
			Phone: r.PostFormValue("phone"),
			Address: domain.Address{
				Line1:      r.PostFormValue("line1"),
				Line2:      r.PostFormValue("line2"),
				City:       r.PostFormValue("city"),
				State:      r.PostFormValue("state"),
				PostalCode: r.PostFormValue("postal_code"),
				Country:    r.PostFormValue("country"),
			},
		},
	}

	if !checked(r, "billing_same") {
		contact.Billing = &domain.Shipping{
			Name: r.PostFormValue("billing_name"),
			Address: domain.Address{
				Line1:      r.PostFormValue("billing_line1"),
				Line2:      r.PostFormValue("billing_line2"),
				City:       r.PostFormValue("billing_city"),
				State:      r.PostFormValue("billing_state"),
				PostalCode: r.PostFormValue("billing_postal_code"),
				Country:    r.PostFormValue("billing_country"),
			},
		}
	}

	if checked(r, "gift") {
		contact.GiftMessage = r.PostFormValue("gift_message")
	}

	return checkout.SubmitRequest{
		Contact:       contact,
		AcceptedTerms: checked(r, "terms"),
		PaymentMethod: strings.TrimSpace(r.PostFormValue("payment_method")),
	}
}

// backTo returns the local path the request came from, or fallback.
func backTo(r *http.Request, fallback string) string {
	ref, err := url.Parse(r.Referer())
	if err != nil || ref.Path == "" || !strings.HasPrefix(ref.Path, "/") || strings.HasPrefix(ref.Path, "//") {
		return fallback
	}
	if ref.Host != "" && ref.Host != r.Host {
		return fallback
	}
	return ref.Path
}
