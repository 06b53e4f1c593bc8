package render

import (
	"bytes"
	"testing"

	"storefront/app/internal/checkout"
	"storefront/app/internal/domain"
	"storefront/app/internal/pricing"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, buf *bytes.Buffer) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(buf)
	require.NoError(t, err)
	return doc
}

func mugItem(qty int) domain.CartItem {
	return domain.CartItem{
		Product: domain.Product{
			ID: "mug", Name: "Mug", Price: decimal.RequireFromString("49.99"),
			Currency: "AUD", Image: "https://img/mug.png",
		},
		Quantity: qty,
	}
}

func TestHomeRendersOneCardPerProduct(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	products := []domain.Product{
		{ID: "mug", Name: "Mug", Price: decimal.RequireFromString("49.99"), Currency: "AUD", Image: "https://img/mug.png", Brand: "Acme"},
		{ID: "tee", Name: "Tee <b>", Price: decimal.RequireFromString("20"), Currency: "AUD", Image: "https://img/tee.png"},
	}

	var buf bytes.Buffer
	require.NoError(t, r.Home(&buf, HomeView{
		Layout:   Layout{Theme: domain.ThemeDark, CartCount: 3, Notices: []string{"Mug added to cart"}},
		Products: ProductCards(products),
		Cart:     NewCartView([]domain.CartItem{mugItem(3)}, "AUD"),
	}))
	doc := parse(t, &buf)

	cards := doc.Find("#products-grid .product-card")
	require.Equal(t, 2, cards.Length())
	assert.Equal(t, "Mug", cards.First().Find("h3").Text())
	assert.Equal(t, "$49.99", cards.First().Find(".price").Text())
	assert.Equal(t, "Tee <b>", cards.Last().Find("h3").Text())
	sku, _ := cards.Last().Find("input[name=sku]").Attr("value")
	assert.Equal(t, "tee", sku)

	assert.True(t, doc.Find("body").HasClass("dark-mode"))
	assert.Equal(t, "3", doc.Find("#cart-count").Text())
	assert.Equal(t, "Mug added to cart", doc.Find(".toast").Text())
	assert.Equal(t, "$149.97", doc.Find("#total-amount").Text())
}

func TestHomeRendersFeedError(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, r.Home(&buf, HomeView{
		Layout:    Layout{Theme: domain.ThemeLight},
		FeedError: "https://feed/products.csv",
		Cart:      NewCartView(nil, "AUD"),
	}))
	doc := parse(t, &buf)

	assert.Zero(t, doc.Find(".product-card").Length())
	assert.Contains(t, doc.Find("#products-grid .error").Text(), "Could not load products")
	assert.Equal(t, "https://feed/products.csv", doc.Find("#products-grid .error code").Text())
	assert.Equal(t, 1, doc.Find("#empty-cart").Length())
	assert.False(t, doc.Find("body").HasClass("dark-mode"))
}

func TestCartPageLines(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	other := mugItem(1)
	other.ID, other.Name, other.Currency = "pen", "Pen", ""
	other.Price = decimal.RequireFromString("2.50")

	var buf bytes.Buffer
	view := NewCartView([]domain.CartItem{mugItem(2), other}, "AUD")
	require.NoError(t, r.Cart(&buf, CartPage{Layout: Layout{CartCount: view.Count}, Cart: view}))
	doc := parse(t, &buf)

	lines := doc.Find(".cart-item")
	require.Equal(t, 2, lines.Length())
	assert.Contains(t, lines.First().Find("span").Text(), "Mug (Qty: 2) - $99.98")
	action, _ := lines.Last().Find("form.remove-form").Attr("action")
	assert.Equal(t, "/cart/items/1/remove", action)
	assert.Equal(t, "$102.48", doc.Find("#total-amount").Text())
	assert.Equal(t, "3", doc.Find("#cart-count").Text())
}

func TestHintText(t *testing.T) {
	assert.Equal(t, "🎉 Free shipping applied (order over $150).", HintText(domain.HintFreeShippingThreshold, 15000, "AUD"))
	assert.Equal(t, "🚚 Free shipping coupon applied.", HintText(domain.HintFreeShippingCoupon, 15000, "AUD"))
	assert.Equal(t, "Coupon not recognized.", HintText(domain.HintCouponUnrecognized, 15000, "AUD"))
	assert.Empty(t, HintText(domain.HintNone, 15000, "AUD"))
}

func checkoutInput(snap checkout.Snapshot, items ...domain.CartItem) CheckoutInput {
	policy := pricing.DefaultPolicy()
	engine := pricing.NewEngine(policy)
	return CheckoutInput{
		Items:          items,
		Totals:         engine.ComputeTotals(items, snap.Selections),
		Snapshot:       snap,
		Rates:          policy.ShippingRates,
		ThresholdCents: policy.FreeShippingThreshold,
		Currency:       "AUD",
		PublishableKey: "pk_test_123",
		ButtonLabel:    "Pay $120.92",
		ButtonEnabled:  true,
	}
}

func TestCheckoutPageBreakdown(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	snap := checkout.Snapshot{
		State:        checkout.StateReady,
		ClientSecret: "pi_1_secret_x",
		Selections:   domain.Selections{Method: domain.ShippingStandard, Country: "AU", Code: "NOPE"},
	}

	var buf bytes.Buffer
	require.NoError(t, r.Checkout(&buf, NewCheckoutView(checkoutInput(snap, mugItem(2)))))
	doc := parse(t, &buf)

	assert.Equal(t, "$99.98", doc.Find("#subtotal").Text())
	assert.Zero(t, doc.Find("#discount-row").Length(), "no discount, no row")
	assert.Equal(t, "$9.95", doc.Find("#shipping").Text())
	assert.Equal(t, "$10.99", doc.Find("#tax").Text())
	assert.Equal(t, "$120.92", doc.Find("#total").Text())
	assert.Equal(t, "Coupon not recognized.", doc.Find("#coupon-msg").Text())

	checked, _ := doc.Find("input[name=method][checked]").Attr("value")
	assert.Equal(t, "standard", checked)

	secret, _ := doc.Find("#payment-element").Attr("data-client-secret")
	assert.Equal(t, "pi_1_secret_x", secret)
	key, _ := doc.Find("#payment-element").Attr("data-publishable-key")
	assert.Equal(t, "pk_test_123", key)
	assert.Equal(t, 1, doc.Find(`script[src="https://js.stripe.com/v3/"]`).Length())
	assert.Contains(t, doc.Find("script").Text(), "createPaymentMethod")
	assert.Contains(t, doc.Find("script").Text(), "billing_details")

	_, disabled := doc.Find("#submit").Attr("disabled")
	assert.False(t, disabled)
	assert.Equal(t, "Pay $120.92", doc.Find("#button-text").Text())
	assert.Zero(t, doc.Find("#payment-result").Length())
	_, hidden := doc.Find("#billing-fields").Attr("hidden")
	assert.True(t, hidden)
}

func TestCheckoutPageStates(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	t.Run("error", func(t *testing.T) {
		snap := checkout.Snapshot{
			State:      checkout.StateError,
			Message:    "Invalid amount. Please check your cart.",
			Selections: domain.DefaultSelections(),
		}
		in := checkoutInput(snap)
		in.ButtonEnabled = false

		var buf bytes.Buffer
		require.NoError(t, r.Checkout(&buf, NewCheckoutView(in)))
		doc := parse(t, &buf)

		assert.Equal(t, "Invalid amount. Please check your cart.", doc.Find("#payment-result.error").Text())
		_, disabled := doc.Find("#submit").Attr("disabled")
		assert.True(t, disabled)
		assert.Contains(t, doc.Find("#order-summary").Text(), "Your cart is empty.")
	})

	t.Run("succeeded", func(t *testing.T) {
		snap := checkout.Snapshot{State: checkout.StateSucceeded, Selections: domain.DefaultSelections()}

		var buf bytes.Buffer
		require.NoError(t, r.Checkout(&buf, NewCheckoutView(checkoutInput(snap))))
		doc := parse(t, &buf)

		assert.Zero(t, doc.Find("#checkout-form").Length())
		assert.Contains(t, doc.Find("#payment-result.success").Text(), "Order confirmed")
	})

	t.Run("separate billing", func(t *testing.T) {
		snap := checkout.Snapshot{
			State:      checkout.StateReady,
			Selections: domain.DefaultSelections(),
			Contact: domain.Contact{
				Billing:     &domain.Shipping{Name: "Grace", Address: domain.Address{City: "Perth"}},
				GiftMessage: "Happy birthday",
			},
		}

		var buf bytes.Buffer
		require.NoError(t, r.Checkout(&buf, NewCheckoutView(checkoutInput(snap, mugItem(1)))))
		doc := parse(t, &buf)

		_, hidden := doc.Find("#billing-fields").Attr("hidden")
		assert.False(t, hidden)
		name, _ := doc.Find("input[name=billing_name]").Attr("value")
		assert.Equal(t, "Grace", name)
		assert.Equal(t, "Happy birthday", doc.Find("#gift-message").Text())
		assert.Zero(t, doc.Find("script").Length(), "no session, nothing to mount")
	})

	t.Run("discount", func(t *testing.T) {
		snap := checkout.Snapshot{
			State:      checkout.StateReady,
			Selections: domain.Selections{Method: domain.ShippingStandard, Country: "AU", Code: "SAVE20"},
		}

		var buf bytes.Buffer
		require.NoError(t, r.Checkout(&buf, NewCheckoutView(checkoutInput(snap, mugItem(2)))))
		doc := parse(t, &buf)

		assert.Equal(t, 1, doc.Find("#discount-row").Length())
		assert.Equal(t, "-$20.00", doc.Find("#discount").Text())
	})
}
