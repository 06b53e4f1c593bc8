package shop

import (
	"context"
	"fmt"
	"sync"

	"storefront/app/internal/cart"
	"storefront/app/internal/checkout"
	"storefront/app/internal/client"
	"storefront/app/internal/metrics"
	"storefront/app/internal/state"

	log "github.com/sirupsen/logrus"
)

// Deps are shared by every session.
type Deps struct {
	State     state.StateManager
	Pricer    checkout.Pricer
	Payments  checkout.SessionCreator
	NewWidget func() checkout.Widget
	Orders    OrderSink
	Display   *Display
	Metrics   *metrics.Metrics
	ReturnURL string
}

// Sessions opens visitor sessions lazily from the state manager and keeps
// them in memory.
type Sessions struct {
	deps Deps

	mu   sync.Mutex
	byID map[string]*Session
}

func NewSessions(deps Deps) *Sessions {
	deps.Payments = &meteredSessions{next: deps.Payments, metrics: deps.Metrics}
	return &Sessions{
		deps: deps,
		byID: map[string]*Session{},
	}
}

// Get returns the session for id, opening it on first use.
// TODO: evict sessions idle longer than the cookie lifetime.
func (r *Sessions) Get(ctx context.Context, id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.byID[id]; ok {
		return s, nil
	}

	s, err := r.open(ctx, id)
	if err != nil {
		return nil, err
	}
	r.byID[id] = s
	return s, nil
}

func (r *Sessions) open(ctx context.Context, id string) (*Session, error) {
	store, err := cart.Open(ctx, id, r.deps.State, r.deps.Display)
	if err != nil {
		return nil, fmt.Errorf("failed to open cart: %w", err)
	}

	orchestrator := checkout.New(store, r.deps.Pricer, r.deps.Payments, r.deps.NewWidget(), r.deps.Display, r.deps.ReturnURL)

	var snap checkout.Snapshot
	found, err := r.deps.State.LoadCheckout(ctx, id, &snap)
	if err != nil {
		return nil, fmt.Errorf("failed to load checkout: %w", err)
	}
	if found {
		if err := orchestrator.Restore(ctx, snap); err != nil {
			log.Warnf("⚠️ Discarding checkout session for %s: %v", id, err)
		}
	}

	s := &Session{
		id:       id,
		cart:     store,
		checkout: orchestrator,
		state:    r.deps.State,
		orders:   r.deps.Orders,
		metrics:  r.deps.Metrics,
	}
	store.Subscribe(s)
	orchestrator.Subscribe(s)

	log.Debugf("Opened session %s with %d cart lines", id, store.Len())
	return s, nil
}

type meteredSessions struct {
	next    checkout.SessionCreator
	metrics *metrics.Metrics
}

func (m *meteredSessions) CreatePaymentSession(ctx context.Context, req client.PaymentSessionRequest) (*client.PaymentSession, error) {
	session, err := m.next.CreatePaymentSession(ctx, req)
	m.metrics.PaymentSessions.WithLabelValues(metrics.Result(err)).Inc()
	return session, err
}
