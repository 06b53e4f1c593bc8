// Package web serves the storefront over HTTP.
package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"storefront/app/internal/cart"
	"storefront/app/internal/checkout"
	"storefront/app/internal/metrics"
	"storefront/app/internal/pricing"
	"storefront/app/internal/render"
	"storefront/app/internal/shop"

	log "github.com/sirupsen/logrus"
)

const noticeUnknownProduct = "Sorry, that product is no longer available."

type Handler struct {
	sessions       *shop.Sessions
	catalog        *shop.Catalog
	display        *shop.Display
	renderer       *render.Renderer
	policy         pricing.Policy
	metrics        *metrics.Metrics
	cookieName     string
	publishableKey string
}

func New(
	sessions *shop.Sessions,
	catalog *shop.Catalog,
	display *shop.Display,
	renderer *render.Renderer,
	policy pricing.Policy,
	metrics *metrics.Metrics,
	cookieName string,
	publishableKey string,
) *Handler {
	return &Handler{
		sessions:       sessions,
		catalog:        catalog,
		display:        display,
		renderer:       renderer,
		policy:         policy,
		metrics:        metrics,
		cookieName:     cookieName,
		publishableKey: publishableKey,
	}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.handleHome)

	mux.HandleFunc("GET /cart", h.handleCart)
	mux.HandleFunc("POST /cart/items", h.handleAddItem)
	mux.HandleFunc("POST /cart/items/{index}/remove", h.handleRemoveItem)
	mux.HandleFunc("POST /cart/items/{index}/quantity", h.handleUpdateQuantity)

	mux.HandleFunc("GET /checkout", h.handleCheckout)
	mux.HandleFunc("POST /checkout/selections", h.handleSelections)
	mux.HandleFunc("POST /checkout/submit", h.handleSubmit)

	mux.HandleFunc("POST /theme", h.handleTheme)

	mux.HandleFunc("GET /healthz", h.handleHealth)
	mux.Handle("GET /metrics", h.metrics.Handler())
}

// Routes returns the full handler with middleware applied.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return Chain(Recovery, Session(h.cookieName), Logging(h.metrics))(mux)
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*shop.Session, bool) {
	s, err := h.sessions.Get(r.Context(), SessionID(r.Context()))
	if err != nil {
		log.Errorf("❌ Failed to open session: %v", err)
		http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
		return nil, false
	}
	return s, true
}

func prefersDark(r *http.Request) bool {
	return r.Header.Get("Sec-CH-Prefers-Color-Scheme") == "dark"
}

func (h *Handler) layout(r *http.Request, s *shop.Session) render.Layout {
	return render.Layout{
		Theme:     s.Theme(r.Context(), prefersDark(r)),
		CartCount: s.Cart().Count(),
		Notices:   s.Notices(r.Context()),
	}
}

func (h *Handler) writeHTML(w http.ResponseWriter, fn func(w http.ResponseWriter) error) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Accept-CH", "Sec-CH-Prefers-Color-Scheme")
	if err := fn(w); err != nil {
		log.Errorf("❌ %v", err)
	}
}

func (h *Handler) redirect(w http.ResponseWriter, r *http.Request, to string) {
	http.Redirect(w, r, to, http.StatusSeeOther)
}

func (h *Handler) handleHome(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	view := render.HomeView{}
	products, err := h.catalog.Load(r.Context())
	if err != nil {
		view.FeedError = h.catalog.URL()
	} else {
		view.Products = render.ProductCards(products)
	}
	view.Layout = h.layout(r, s)
	view.Cart = render.NewCartView(s.Cart().Items(), h.display.Currency())

	h.writeHTML(w, func(w http.ResponseWriter) error { return h.renderer.Home(w, view) })
}

func (h *Handler) handleCart(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	view := render.CartPage{
		Layout: h.layout(r, s),
		Cart:   render.NewCartView(s.Cart().Items(), h.display.Currency()),
	}
	h.writeHTML(w, func(w http.ResponseWriter) error { return h.renderer.Cart(w, view) })
}

func (h *Handler) handleAddItem(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	sku := r.PostFormValue("sku")
	product, found, err := h.catalog.Find(r.Context(), sku)
	if err != nil {
		log.Warnf("⚠️ Could not look up %q: %v", sku, err)
	}
	if !found {
		s.Notify(r.Context(), noticeUnknownProduct)
		h.redirect(w, r, backTo(r, "/"))
		return
	}

	if err := s.OnAdd(r.Context(), product); err != nil {
		log.Errorf("❌ Failed to add %s to cart: %v", sku, err)
		http.Error(w, "Could not update cart", http.StatusInternalServerError)
		return
	}
	h.redirect(w, r, backTo(r, "/"))
}

func (h *Handler) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	h.mutateLine(w, r, func(s *shop.Session, index int) error {
		return s.OnRemove(r.Context(), index)
	})
}

func (h *Handler) handleUpdateQuantity(w http.ResponseWriter, r *http.Request) {
	quantity, err := strconv.Atoi(r.PostFormValue("quantity"))
	if err != nil {
		http.Error(w, "invalid quantity", http.StatusBadRequest)
		return
	}
	h.mutateLine(w, r, func(s *shop.Session, index int) error {
		return s.OnUpdateQuantity(r.Context(), index, quantity)
	})
}

// mutateLine applies fn to the indexed line. A stale index is ignored so a
// double submit cannot remove the wrong line.
func (h *Handler) mutateLine(w http.ResponseWriter, r *http.Request, fn func(s *shop.Session, index int) error) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		http.Error(w, "invalid index", http.StatusBadRequest)
		return
	}

	s, ok := h.session(w, r)
	if !ok {
		return
	}

	if err := fn(s, index); err != nil {
		if !errors.Is(err, cart.ErrIndexOutOfRange) {
			log.Errorf("❌ Failed to update cart line %d: %v", index, err)
			http.Error(w, "Could not update cart", http.StatusInternalServerError)
			return
		}
		log.Debugf("Ignoring stale cart index: %v", err)
	}
	h.redirect(w, r, backTo(r, "/cart"))
}

func (h *Handler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	if err := s.PrepareCheckout(r.Context()); err != nil && !checkout.IsSoft(err) {
		log.Warnf("⚠️ Checkout not ready for %s: %v", s.ID(), err)
	}

	orchestrator := s.Checkout()
	label, enabled := orchestrator.Button()
	view := render.NewCheckoutView(render.CheckoutInput{
		Layout:         h.layout(r, s),
		Items:          s.Cart().Items(),
		Totals:         orchestrator.Totals(),
		Snapshot:       orchestrator.Snapshot(),
		Rates:          h.policy.ShippingRates,
		ThresholdCents: h.policy.FreeShippingThreshold,
		Currency:       h.display.Currency(),
		PublishableKey: h.publishableKey,
		ButtonLabel:    label,
		ButtonEnabled:  enabled,
	})
	h.writeHTML(w, func(w http.ResponseWriter) error { return h.renderer.Checkout(w, view) })
}

func (h *Handler) handleSelections(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	selections := selectionsFromForm(r, s.Checkout().Snapshot().Selections)
	if _, err := s.OnSelectionChange(r.Context(), selections); err != nil && !checkout.IsSoft(err) {
		log.Warnf("⚠️ Selection change for %s: %v", s.ID(), err)
	}
	h.redirect(w, r, "/checkout")
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	if err := s.Submit(r.Context(), submitRequestFromForm(r)); err != nil && !checkout.IsSoft(err) {
		log.Warnf("⚠️ Checkout submit for %s: %v", s.ID(), err)
	}
	h.redirect(w, r, "/checkout")
}

func (h *Handler) handleTheme(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	if _, err := s.ToggleTheme(r.Context(), prefersDark(r)); err != nil {
		log.Errorf("❌ Failed to toggle theme: %v", err)
	}
	h.redirect(w, r, backTo(r, "/"))
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]string{"status": "ok"}); err != nil {
		log.Errorf("❌ failed to encode health response: %v", err)
	}
}
