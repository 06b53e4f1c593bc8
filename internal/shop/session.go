package shop

import (
	"context"
	"errors"

	"storefront/app/internal/cart"
	"storefront/app/internal/checkout"
	"storefront/app/internal/domain"
	"storefront/app/internal/metrics"
	"storefront/app/internal/state"

	log "github.com/sirupsen/logrus"
)

const (
	noticePaymentFailed    = "⚠️ Payment failed. Try again."
	noticePaymentSucceeded = "✅ Payment successful!"
)

// Events is what the presentation layer tells the shop about.
type Events interface {
	OnAdd(ctx context.Context, product domain.Product) error
	OnRemove(ctx context.Context, index int) error
	OnSelectionChange(ctx context.Context, selections domain.Selections) (domain.Totals, error)
}

// OrderSink accepts confirmed orders for persistence.
type OrderSink interface {
	ConfirmOrder(ctx context.Context, order domain.Order) (string, error)
}

// Session is one visitor's cart and checkout.
type Session struct {
	id       string
	cart     *cart.Store
	checkout *checkout.Orchestrator
	state    state.StateManager
	orders   OrderSink
	metrics  *metrics.Metrics
}

var (
	_ Events            = (*Session)(nil)
	_ cart.Listener     = (*Session)(nil)
	_ checkout.Listener = (*Session)(nil)
)

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Cart() *cart.Store {
	return s.cart
}

func (s *Session) Checkout() *checkout.Orchestrator {
	return s.checkout
}

func (s *Session) OnAdd(ctx context.Context, product domain.Product) error {
	if err := s.cart.Add(ctx, product); err != nil {
		return err
	}
	s.Notify(ctx, product.Name+" added to cart")
	return nil
}

// OnRemove deletes the line at index. An index that no longer exists is
// reported as cart.ErrIndexOutOfRange and leaves the cart untouched.
func (s *Session) OnRemove(ctx context.Context, index int) error {
	return s.cart.Remove(ctx, index)
}

func (s *Session) OnUpdateQuantity(ctx context.Context, index, quantity int) error {
	return s.cart.UpdateQuantity(ctx, index, quantity)
}

func (s *Session) OnSelectionChange(ctx context.Context, selections domain.Selections) (domain.Totals, error) {
	totals, err := s.checkout.OnSelectionChange(ctx, selections)
	s.saveCheckout(ctx)
	return totals, err
}

// PrepareCheckout makes sure a payment session is bound to the current
// payable amount.
func (s *Session) PrepareCheckout(ctx context.Context) error {
	err := s.checkout.EnsureSession(ctx)
	s.saveCheckout(ctx)
	return err
}

func (s *Session) Submit(ctx context.Context, req checkout.SubmitRequest) error {
	err := s.checkout.Submit(ctx, req)
	s.saveCheckout(ctx)

	var validation *checkout.ValidationError
	switch {
	case err == nil:
		s.metrics.Checkouts.WithLabelValues("ok").Inc()
		s.Notify(ctx, noticePaymentSucceeded)
	case errors.As(err, &validation):
		s.metrics.Checkouts.WithLabelValues("invalid").Inc()
		s.Notify(ctx, validation.Notice)
	case errors.Is(err, checkout.ErrPaymentFailed):
		s.metrics.Checkouts.WithLabelValues("error").Inc()
		s.Notify(ctx, noticePaymentFailed)
	default:
		s.metrics.Checkouts.WithLabelValues("error").Inc()
	}
	return err
}

func (s *Session) Notices(ctx context.Context) []string {
	notices, err := s.state.PopNotices(ctx, s.id)
	if err != nil {
		log.Warnf("⚠️ Failed to read notices for %s: %v", s.id, err)
		return nil
	}
	return notices
}

// Theme returns the stored theme, else dark when the client prefers it.
func (s *Session) Theme(ctx context.Context, prefersDark bool) domain.Theme {
	theme, ok, err := s.state.GetTheme(ctx, s.id)
	if err != nil {
		log.Warnf("⚠️ Failed to read theme for %s: %v", s.id, err)
	}
	if ok {
		return theme
	}
	if prefersDark {
		return domain.ThemeDark
	}
	return domain.ThemeLight
}

func (s *Session) ToggleTheme(ctx context.Context, prefersDark bool) (domain.Theme, error) {
	next := s.Theme(ctx, prefersDark).Toggle()
	if err := s.state.SetTheme(ctx, s.id, next); err != nil {
		return "", err
	}
	return next, nil
}

func (s *Session) CartChanged(_ context.Context, event cart.Event) {
	s.metrics.CartEvents.WithLabelValues(string(event.Kind)).Inc()
}

func (s *Session) CheckoutSucceeded(ctx context.Context, receipt checkout.Receipt) {
	order := domain.Order{
		SessionID:    s.id,
		Items:        receipt.Items,
		Totals:       receipt.Totals,
		Currency:     receipt.Currency,
		Selections:   receipt.Selections,
		Contact:      receipt.Contact,
		ClientSecret: receipt.ClientSecret,
	}
	id, err := s.orders.ConfirmOrder(ctx, order)
	if err != nil {
		log.Errorf("❌ Paid order for session %s could not be queued: %v", s.id, err)
		return
	}
	log.Infof("🧾 Session %s placed order %s", s.id, id)
}

// Notify queues a transient notice for the next page the visitor sees.
func (s *Session) Notify(ctx context.Context, text string) {
	if err := s.state.PushNotice(ctx, s.id, text); err != nil {
		log.Warnf("⚠️ Failed to push notice for %s: %v", s.id, err)
	}
}

func (s *Session) saveCheckout(ctx context.Context) {
	if err := s.state.SaveCheckout(ctx, s.id, s.checkout.Snapshot()); err != nil {
		log.Warnf("⚠️ Failed to save checkout for %s: %v", s.id, err)
	}
}
