// Package checkout drives one visitor's checkout: it keeps the payment session
// bound to the current payable amount and confirms payment through the
// hosted widget.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"storefront/app/internal/client"
	"storefront/app/internal/domain"
	"storefront/app/internal/money"

	log "github.com/sirupsen/logrus"
)

const (
	noticeRequiredFields = "Please fill all required fields."
	noticeAcceptTerms    = "Please accept the Terms and Privacy Policy."
	messageInvalidAmount = "Invalid amount. Please check your cart."
	messageConfirmed     = "Order confirmed, check your email."
)

type Orchestrator struct {
	cart      Cart
	pricer    Pricer
	sessions  SessionCreator
	widget    Widget
	currency  CurrencySource
	returnURL string

	mu        sync.Mutex
	snap      Snapshot
	seq       uint64
	mounted   bool
	listeners []Listener
}

func New(cart Cart, pricer Pricer, sessions SessionCreator, widget Widget, currency CurrencySource, returnURL string) *Orchestrator {
	return &Orchestrator{
		cart:      cart,
		pricer:    pricer,
		sessions:  sessions,
		widget:    widget,
		currency:  currency,
		returnURL: returnURL,
		snap: Snapshot{
			State:      StateUninitialized,
			Selections: domain.DefaultSelections(),
		},
	}
}

// Restore rehydrates a persisted snapshot and rebinds the widget to its
// session. An interrupted submission comes back as an error the visitor can
// retry.
func (o *Orchestrator) Restore(ctx context.Context, snap Snapshot) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	snap.Selections = snap.Selections.Normalize()
	if snap.State == StateSubmitting {
		snap.State = StateError
		snap.Message = "Error: payment confirmation was interrupted, please try again."
	}
	o.snap = snap
	o.restartLocked()

	if o.snap.ClientSecret != "" && o.snap.State != StateSucceeded {
		if err := o.widget.Mount(ctx, o.snap.ClientSecret); err != nil {
			o.snap.ClientSecret = ""
			o.snap.State = StateUninitialized
			return fmt.Errorf("failed to remount payment widget: %w", err)
		}
		o.mounted = true
	}
	return nil
}

func (o *Orchestrator) Subscribe(l Listener) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.listeners = append(o.listeners, l)
}

func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snap
}

// Totals recomputes from the current cart and selections.
func (o *Orchestrator) Totals() domain.Totals {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.totalsLocked()
}

// Button returns the submit control label and whether it is enabled.
func (o *Orchestrator) Button() (string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	total := o.totalsLocked().TotalCents
	switch o.snap.State {
	case StateUninitialized:
		return "Preparing payment...", false
	case StateSubmitting:
		return "Complete Order", false
	case StateSucceeded:
		return "Order complete", false
	default:
		return "Pay " + money.Format(total, o.currencyCode()), total > 0
	}
}

// Init requests the first payment session for the current totals.
func (o *Orchestrator) Init(ctx context.Context) error {
	return o.refresh(ctx, o.Totals().TotalCents)
}

// EnsureSession refreshes the session only when the payable amount no longer
// matches the one the session is bound to.
func (o *Orchestrator) EnsureSession(ctx context.Context) error {
	o.mu.Lock()
	o.restartLocked()
	if o.snap.State == StateSucceeded {
		o.mu.Unlock()
		return nil
	}
	total := o.totalsLocked().TotalCents
	current := o.snap.ClientSecret != "" && total == o.snap.BoundAmount
	if current {
		o.recoverLocked()
	}
	o.mu.Unlock()

	if current {
		return nil
	}
	return o.refresh(ctx, total)
}

// OnSelectionChange recomputes totals for the new selections and refreshes
// the session when the amount moved.
func (o *Orchestrator) OnSelectionChange(ctx context.Context, selections domain.Selections) (domain.Totals, error) {
	o.mu.Lock()
	o.restartLocked()
	if o.snap.State == StateSucceeded {
		o.mu.Unlock()
		return domain.Totals{}, ErrAlreadyCompleted
	}
	o.snap.Selections = selections.Normalize()
	o.snap.Contact.Shipping.Address.Country = o.snap.Selections.Country
	totals := o.totalsLocked()
	current := o.snap.ClientSecret != "" && totals.TotalCents == o.snap.BoundAmount
	if current {
		o.recoverLocked()
	}
	o.mu.Unlock()

	if current {
		return totals, nil
	}
	return totals, o.refresh(ctx, totals.TotalCents)
}

// Submit validates the form, makes sure the session matches the payable
// amount, and confirms through the widget.
func (o *Orchestrator) Submit(ctx context.Context, req SubmitRequest) error {
	o.mu.Lock()
	o.restartLocked()
	switch o.snap.State {
	case StateSucceeded:
		o.mu.Unlock()
		return ErrAlreadyCompleted
	case StateSubmitting:
		o.mu.Unlock()
		return ErrNotReady
	}

	contact := normalizeContact(req.Contact, o.snap.Selections.Country)
	o.snap.Contact = contact
	if err := validate(contact, req.AcceptedTerms); err != nil {
		o.mu.Unlock()
		return err
	}

	totals := o.totalsLocked()
	stale := o.snap.ClientSecret == "" || totals.TotalCents != o.snap.BoundAmount
	o.mu.Unlock()

	if stale {
		if err := o.refresh(ctx, totals.TotalCents); err != nil {
			return err
		}
	}

	o.mu.Lock()
	if o.snap.ClientSecret == "" || o.snap.BoundAmount != totals.TotalCents {
		o.mu.Unlock()
		return ErrNotReady
	}
	o.snap.State = StateSubmitting
	confirm := ConfirmRequest{
		ClientSecret:  o.snap.ClientSecret,
		PaymentMethod: req.PaymentMethod,
		ReturnURL:     o.returnURL,
		Contact:       contact,
	}
	receipt := Receipt{
		Items:        o.cart.Items(),
		Totals:       totals,
		Selections:   o.snap.Selections,
		Contact:      contact,
		Currency:     o.currencyCode(),
		ClientSecret: o.snap.ClientSecret,
	}
	o.mu.Unlock()

	err := o.widget.Confirm(ctx, confirm)

	o.mu.Lock()
	if err != nil {
		o.snap.State = StateError
		o.snap.Message = "Error: " + err.Error()
		o.snap.SessionError = false
		o.mu.Unlock()
		log.Warnf("⚠️ Payment confirmation failed: %v", err)
		return fmt.Errorf("%w: %w", ErrPaymentFailed, err)
	}
	o.snap.State = StateSucceeded
	o.snap.Message = messageConfirmed
	if o.mounted {
		o.widget.Unmount()
		o.mounted = false
	}
	listeners := append([]Listener(nil), o.listeners...)
	o.mu.Unlock()

	if err := o.cart.Clear(ctx); err != nil {
		log.Errorf("❌ Payment succeeded but the cart could not be cleared: %v", err)
	}

	log.Infof("✅ Payment confirmed for %d %s", totals.TotalCents, receipt.Currency)
	for _, l := range listeners {
		l.CheckoutSucceeded(ctx, receipt)
	}
	return nil
}

// refresh requests a new session for amount. Only the most recent request
// may bind its result; older responses are dropped with ErrSuperseded.
func (o *Orchestrator) refresh(ctx context.Context, amount int64) error {
	o.mu.Lock()
	if amount < 1 {
		o.seq++
		o.snap.State = StateError
		o.snap.Message = messageInvalidAmount
		o.snap.SessionError = true
		o.mu.Unlock()
		return ErrInvalidAmount
	}

	o.seq++
	token := o.seq
	o.snap.State = StateUninitialized
	shipping := o.snap.Contact.Shipping
	if shipping.Address.Country == "" {
		shipping.Address.Country = o.snap.Selections.Country
	}
	req := client.PaymentSessionRequest{
		Amount:   amount,
		Currency: strings.ToLower(o.currencyCode()),
		Items:    o.cart.Items(),
		Email:    o.snap.Contact.Email,
		Shipping: shipping,
	}
	o.mu.Unlock()

	session, err := o.sessions.CreatePaymentSession(ctx, req)

	o.mu.Lock()
	defer o.mu.Unlock()

	if token != o.seq {
		log.Debugf("Dropping payment session for %d: superseded", amount)
		return ErrSuperseded
	}

	if err != nil {
		o.snap.State = StateError
		o.snap.Message = "Error initialising payment: " + err.Error()
		o.snap.SessionError = true
		log.Errorf("❌ Payment session request failed: %v", err)
		return err
	}

	if o.mounted {
		o.widget.Unmount()
		o.mounted = false
	}
	if err := o.widget.Mount(ctx, session.ClientSecret); err != nil {
		o.snap.State = StateError
		o.snap.ClientSecret = ""
		o.snap.Message = "Error initialising payment: " + err.Error()
		o.snap.SessionError = true
		return fmt.Errorf("failed to mount payment widget: %w", err)
	}
	o.mounted = true

	o.snap.ClientSecret = session.ClientSecret
	o.snap.BoundAmount = session.Amount
	o.snap.State = StateReady
	o.snap.Message = ""
	o.snap.SessionError = false
	log.Debugf("Payment session bound to %d", session.Amount)
	return nil
}

// recoverLocked clears a session error once the amount is back on the session
// that is still bound.
func (o *Orchestrator) recoverLocked() {
	if o.snap.State != StateError || !o.snap.SessionError {
		return
	}
	o.snap.State = StateReady
	o.snap.Message = ""
	o.snap.SessionError = false
}

// restartLocked begins a new checkout once a completed one sees a cart with
// lines in it again.
func (o *Orchestrator) restartLocked() {
	if o.snap.State != StateSucceeded || len(o.cart.Items()) == 0 {
		return
	}
	if o.mounted {
		o.widget.Unmount()
		o.mounted = false
	}
	o.seq++
	o.snap = Snapshot{
		State:      StateUninitialized,
		Selections: domain.DefaultSelections(),
	}
	log.Debugf("Starting a new checkout after a completed order")
}

func (o *Orchestrator) totalsLocked() domain.Totals {
	return o.pricer.ComputeTotals(o.cart.Items(), o.snap.Selections)
}

func (o *Orchestrator) currencyCode() string {
	if o.currency == nil {
		return money.DefaultCurrency
	}
	return o.currency.Currency()
}

func normalizeContact(c domain.Contact, country string) domain.Contact {
	c.Email = strings.TrimSpace(c.Email)
	c.Shipping = trimShipping(c.Shipping)
	if c.Shipping.Address.Country == "" {
		c.Shipping.Address.Country = country
	}
	if c.Billing != nil {
		billing := trimShipping(*c.Billing)
		if billing.Address.Country == "" {
			billing.Address.Country = domain.DefaultCountry
		}
		c.Billing = &billing
	}
	c.GiftMessage = strings.TrimSpace(c.GiftMessage)
	return c
}

func trimShipping(s domain.Shipping) domain.Shipping {
	s.Name = strings.TrimSpace(s.Name)
	s.Phone = strings.TrimSpace(s.Phone)
	s.Address.Line1 = strings.TrimSpace(s.Address.Line1)
	s.Address.Line2 = strings.TrimSpace(s.Address.Line2)
	s.Address.City = strings.TrimSpace(s.Address.City)
	s.Address.State = strings.TrimSpace(s.Address.State)
	s.Address.PostalCode = strings.TrimSpace(s.Address.PostalCode)
	s.Address.Country = strings.ToUpper(strings.TrimSpace(s.Address.Country))
	return s
}

func validate(c domain.Contact, acceptedTerms bool) error {
	required := []string{c.Email, c.Shipping.Name, c.Shipping.Address.Line1, c.Shipping.Address.City, c.Shipping.Address.PostalCode}
	for _, field := range required {
		if field == "" {
			return &ValidationError{Notice: noticeRequiredFields}
		}
	}
	if !acceptedTerms {
		return &ValidationError{Notice: noticeAcceptTerms}
	}
	return nil
}

// IsSoft reports whether err leaves checkout in a state the visitor can
// simply retry from.
func IsSoft(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrSuperseded)
}
