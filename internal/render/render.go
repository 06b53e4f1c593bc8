// Package render turns shop state into HTML pages.
package render

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"

	"storefront/app/internal/checkout"
	"storefront/app/internal/domain"
	"storefront/app/internal/money"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = []string{"home", "cart", "checkout"}

type Renderer struct {
	pages map[string]*template.Template
}

func New() (*Renderer, error) {
	base, err := template.ParseFS(templateFS, "templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse layout: %w", err)
	}

	r := &Renderer{pages: make(map[string]*template.Template, len(pages))}
	for _, name := range pages {
		page, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := page.ParseFS(templateFS, "templates/"+name+".html"); err != nil {
			return nil, fmt.Errorf("failed to parse %s page: %w", name, err)
		}
		r.pages[name] = page
	}
	return r, nil
}

// Layout is shared by every page.
type Layout struct {
	Title     string
	Theme     domain.Theme
	CartCount int
	Notices   []string
}

type ProductCard struct {
	ID          string
	Name        string
	Description string
	Brand       string
	Image       string
	Price       string
}

type CartLine struct {
	Index     int
	Name      string
	Image     string
	Quantity  int
	LineTotal string
}

type CartView struct {
	Lines []CartLine
	Count int
	Total string
	Empty bool
}

type HomeView struct {
	Layout
	Products  []ProductCard
	FeedError string // Feed URL when the catalog failed to load
	Cart      CartView
}

type CartPage struct {
	Layout
	Cart CartView
}

type MethodOption struct {
	Value    string
	Label    string
	Rate     string
	Selected bool
}

type CheckoutView struct {
	Layout
	Lines []CartLine

	Subtotal    string
	Discount    string
	HasDiscount bool
	Shipping    string
	Tax         string
	Total       string
	Hint        string

	Selections domain.Selections
	Methods    []MethodOption

	Contact     domain.Contact
	BillingSame bool
	Billing     domain.Shipping

	PublishableKey string
	ClientSecret   string
	ButtonLabel    string
	ButtonEnabled  bool
	Message        string
	Succeeded      bool
}

func (r *Renderer) Home(w io.Writer, v HomeView) error {
	if v.Title == "" {
		v.Title = "Shop"
	}
	return r.execute(w, "home", v)
}

func (r *Renderer) Cart(w io.Writer, v CartPage) error {
	if v.Title == "" {
		v.Title = "Cart"
	}
	return r.execute(w, "cart", v)
}

func (r *Renderer) Checkout(w io.Writer, v CheckoutView) error {
	if v.Title == "" {
		v.Title = "Checkout"
	}
	return r.execute(w, "checkout", v)
}

func (r *Renderer) execute(w io.Writer, page string, data any) error {
	if err := r.pages[page].ExecuteTemplate(w, "layout", data); err != nil {
		return fmt.Errorf("failed to render %s: %w", page, err)
	}
	return nil
}

// ProductCards builds one card per product, in feed order.
func ProductCards(products []domain.Product) []ProductCard {
	cards := make([]ProductCard, 0, len(products))
	for _, p := range products {
		cards = append(cards, ProductCard{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Brand:       p.Brand,
			Image:       p.Image,
			Price:       money.FormatMajor(p.Price, p.Currency),
		})
	}
	return cards
}

// NewCartView formats the cart. Lines without a currency use currency.
func NewCartView(items []domain.CartItem, currency string) CartView {
	v := CartView{
		Lines: make([]CartLine, 0, len(items)),
		Count: domain.CountItems(items),
		Empty: len(items) == 0,
	}

	var total int64
	for i, item := range items {
		code := item.Currency
		if code == "" {
			code = currency
		}
		total += item.LineCents()
		v.Lines = append(v.Lines, CartLine{
			Index:     i,
			Name:      item.Name,
			Image:     item.Image,
			Quantity:  item.Quantity,
			LineTotal: money.Format(item.LineCents(), code),
		})
	}
	v.Total = money.Format(total, currency)
	return v
}

// HintText is the message shown under the coupon field.
func HintText(hint domain.Hint, thresholdCents int64, currency string) string {
	switch hint {
	case domain.HintFreeShippingThreshold:
		return fmt.Sprintf("🎉 Free shipping applied (order over %s).", wholeAmount(thresholdCents, currency))
	case domain.HintFreeShippingCoupon:
		return "🚚 Free shipping coupon applied."
	case domain.HintCouponUnrecognized:
		return "Coupon not recognized."
	default:
		return ""
	}
}

func wholeAmount(cents int64, currency string) string {
	s := money.Format(cents, currency)
	if cents%100 == 0 {
		s = strings.TrimSuffix(s, ".00")
	}
	return s
}

// CheckoutInput is everything the checkout page is built from.
type CheckoutInput struct {
	Layout         Layout
	Items          []domain.CartItem
	Totals         domain.Totals
	Snapshot       checkout.Snapshot
	Rates          map[domain.ShippingMethod]int64
	ThresholdCents int64
	Currency       string
	PublishableKey string
	ButtonLabel    string
	ButtonEnabled  bool
}

func NewCheckoutView(in CheckoutInput) CheckoutView {
	cur := in.Currency
	t := in.Totals
	snap := in.Snapshot

	methods := make([]MethodOption, 0, len(domain.ShippingMethods))
	for _, m := range domain.ShippingMethods {
		methods = append(methods, MethodOption{
			Value:    string(m),
			Label:    m.Label(),
			Rate:     money.Format(in.Rates[m], cur),
			Selected: snap.Selections.Method == m,
		})
	}

	cartView := NewCartView(in.Items, cur)
	v := CheckoutView{
		Layout:         in.Layout,
		Lines:          cartView.Lines,
		Subtotal:       money.Format(t.SubtotalCents, cur),
		Discount:       money.Format(t.DiscountCents, cur),
		HasDiscount:    t.DiscountCents > 0,
		Shipping:       money.Format(t.ShippingCents, cur),
		Tax:            money.Format(t.TaxCents, cur),
		Total:          money.Format(t.TotalCents, cur),
		Hint:           HintText(t.Hint, in.ThresholdCents, cur),
		Selections:     snap.Selections,
		Methods:        methods,
		Contact:        snap.Contact,
		BillingSame:    snap.Contact.Billing == nil,
		PublishableKey: in.PublishableKey,
		ClientSecret:   snap.ClientSecret,
		ButtonLabel:    in.ButtonLabel,
		ButtonEnabled:  in.ButtonEnabled,
		Succeeded:      snap.State == checkout.StateSucceeded,
	}
	if snap.Contact.Billing != nil {
		v.Billing = *snap.Contact.Billing
	}
	if snap.State == checkout.StateError {
		v.Message = snap.Message
	}
	if v.Layout.CartCount == 0 {
		v.Layout.CartCount = cartView.Count
	}
	return v
}
