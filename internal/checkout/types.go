package checkout

import (
	"context"

	"storefront/app/internal/client"
	"storefront/app/internal/domain"
)

type State string

const (
	StateUninitialized State = "uninitialized"
	StateReady         State = "ready"
	StateSubmitting    State = "submitting"
	StateSucceeded     State = "succeeded"
	StateError         State = "error"
)

// Cart is what checkout reads from and clears on success.
type Cart interface {
	Items() []domain.CartItem
	Clear(ctx context.Context) error
}

type Pricer interface {
	ComputeTotals(items []domain.CartItem, selections domain.Selections) domain.Totals
}

type SessionCreator interface {
	CreatePaymentSession(ctx context.Context, req client.PaymentSessionRequest) (*client.PaymentSession, error)
}

type CurrencySource interface {
	Currency() string
}

// Widget is the hosted payment element. It is bound to one session secret
// at a time.
type Widget interface {
	Mount(ctx context.Context, clientSecret string) error
	Unmount()
	Confirm(ctx context.Context, req ConfirmRequest) error
}

type ConfirmRequest struct {
	ClientSecret  string
	PaymentMethod string
	ReturnURL     string
	Contact       domain.Contact
}

// SubmitRequest is the checkout form at the moment the visitor confirms.
type SubmitRequest struct {
	Contact       domain.Contact
	AcceptedTerms bool
	PaymentMethod string
}

// Receipt is handed to listeners once a payment is confirmed.
type Receipt struct {
	Items        []domain.CartItem
	Totals       domain.Totals
	Selections   domain.Selections
	Contact      domain.Contact
	Currency     string
	ClientSecret string
}

type Listener interface {
	CheckoutSucceeded(ctx context.Context, receipt Receipt)
}

// Snapshot is the persisted form of an orchestrator.
type Snapshot struct {
	State        State             `json:"state"`
	ClientSecret string            `json:"client_secret,omitempty"`
	BoundAmount  int64             `json:"bound_amount"`
	Selections   domain.Selections `json:"selections"`
	Contact      domain.Contact    `json:"contact"`
	Message      string            `json:"message,omitempty"`
	// SessionError marks Message as coming from a failed session refresh
	// rather than from a declined confirmation.
	SessionError bool              `json:"session_error,omitempty"`
}
