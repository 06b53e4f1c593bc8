// Package payment binds checkout to Stripe's PaymentIntents API.
package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"storefront/app/internal/checkout"
	"storefront/app/internal/config"
	"storefront/app/internal/domain"

	log "github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/paymentintent"
)

var (
	ErrNotMounted      = errors.New("payment widget is not mounted")
	ErrMalformedSecret = errors.New("malformed client secret")
)

// ConfirmFunc confirms a payment intent by id.
type ConfirmFunc func(id string, params *stripe.PaymentIntentConfirmParams) (*stripe.PaymentIntent, error)

// StripeWidget confirms the payment intent behind the mounted client secret.
type StripeWidget struct {
	confirm ConfirmFunc

	mu       sync.Mutex
	intentID string
	secret   string
}

var _ checkout.Widget = (*StripeWidget)(nil)

// Configure sets the Stripe API key used by every widget.
func Configure(cfg config.PaymentConfig) {
	if cfg.SecretKey == "" {
		log.Warn("⚠️ payment.secret_key is empty, payment confirmation will fail")
		return
	}
	stripe.Key = cfg.SecretKey
}

// NewStripeWidget confirms against the live API. Call Configure first.
func NewStripeWidget() *StripeWidget {
	return NewStripeWidgetWith(paymentintent.Confirm)
}

// NewStripeWidgetWith uses confirm instead of the live API.
func NewStripeWidgetWith(confirm ConfirmFunc) *StripeWidget {
	return &StripeWidget{confirm: confirm}
}

// IntentID extracts "pi_123" from "pi_123_secret_abc".
func IntentID(clientSecret string) (string, error) {
	id, _, ok := strings.Cut(clientSecret, "_secret_")
	if !ok || id == "" {
		return "", ErrMalformedSecret
	}
	return id, nil
}

func (w *StripeWidget) Mount(_ context.Context, clientSecret string) error {
	id, err := IntentID(clientSecret)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.intentID = id
	w.secret = clientSecret
	log.Debugf("Mounted payment widget on %s", id)
	return nil
}

func (w *StripeWidget) Unmount() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.intentID = ""
	w.secret = ""
}

// Mounted returns the bound intent id, or "" when nothing is mounted.
func (w *StripeWidget) Mounted() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.intentID
}

func (w *StripeWidget) Confirm(ctx context.Context, req checkout.ConfirmRequest) error {
	w.mu.Lock()
	id := w.intentID
	bound := w.secret
	w.mu.Unlock()

	if id == "" {
		return ErrNotMounted
	}
	if req.ClientSecret != "" && req.ClientSecret != bound {
		return fmt.Errorf("confirm requested for a different session than the mounted one")
	}
	if strings.TrimSpace(req.PaymentMethod) == "" {
		return errors.New("no payment method was provided")
	}

	params := &stripe.PaymentIntentConfirmParams{
		PaymentMethod: stripe.String(req.PaymentMethod),
		ReceiptEmail:  stripe.String(req.Contact.Email),
		Shipping:      shippingParams(req.Contact.Shipping),
	}
	if req.ReturnURL != "" {
		params.ReturnURL = stripe.String(req.ReturnURL)
	}
	params.Context = ctx

	intent, err := w.confirm(id, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Msg != "" {
			return errors.New(stripeErr.Msg)
		}
		return err
	}

	switch intent.Status {
	case stripe.PaymentIntentStatusSucceeded, stripe.PaymentIntentStatusProcessing:
		log.Infof("💳 Payment intent %s is %s", id, intent.Status)
		return nil
	default:
		return fmt.Errorf("payment was not completed (status %s)", intent.Status)
	}
}

func shippingParams(s domain.Shipping) *stripe.ShippingDetailsParams {
	params := &stripe.ShippingDetailsParams{
		Name: stripe.String(s.Name),
		Address: &stripe.AddressParams{
			Line1:      stripe.String(s.Address.Line1),
			City:       stripe.String(s.Address.City),
			PostalCode: stripe.String(s.Address.PostalCode),
			Country:    stripe.String(s.Address.Country),
		},
	}
	if s.Phone != "" {
		params.Phone = stripe.String(s.Phone)
	}
	if s.Address.Line2 != "" {
		params.Address.Line2 = stripe.String(s.Address.Line2)
	}
	if s.Address.State != "" {
		params.Address.State = stripe.String(s.Address.State)
	}
	return params
}
