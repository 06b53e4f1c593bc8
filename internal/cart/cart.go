// Package cart is the visitor's ordered list of line items. Every mutation is
// persisted before listeners hear about it.
package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"storefront/app/internal/domain"

	log "github.com/sirupsen/logrus"
)

// ErrIndexOutOfRange is returned by index-based operations on a line that no
// longer exists.
var ErrIndexOutOfRange = errors.New("cart index out of range")

// Persister is the subset of the state manager the store needs.
type Persister interface {
	LoadCart(ctx context.Context, sessionID string) ([]domain.CartItem, error)
	SaveCart(ctx context.Context, sessionID string, items []domain.CartItem) error
}

// CurrencySource supplies the display currency for products without one.
type CurrencySource interface {
	Currency() string
}

type EventKind string

const (
	EventAdded   EventKind = "added"
	EventUpdated EventKind = "updated"
	EventRemoved EventKind = "removed"
	EventCleared EventKind = "cleared"
)

// Event describes one committed mutation. Item is the line that changed and
// is zero for EventCleared.
type Event struct {
	Kind  EventKind
	Item  domain.CartItem
	Items []domain.CartItem
}

type Listener interface {
	CartChanged(ctx context.Context, event Event)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(ctx context.Context, event Event)

func (f ListenerFunc) CartChanged(ctx context.Context, event Event) {
	f(ctx, event)
}

type Store struct {
	sessionID string
	persister Persister
	currency  CurrencySource

	mu        sync.Mutex
	items     []domain.CartItem
	listeners []Listener
}

// Open loads the persisted cart for the session.
func Open(ctx context.Context, sessionID string, persister Persister, currency CurrencySource) (*Store, error) {
	items, err := persister.LoadCart(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	return &Store{
		sessionID: sessionID,
		persister: persister,
		currency:  currency,
		items:     items,
	}, nil
}

// Subscribe registers a listener for committed mutations.
func (s *Store) Subscribe(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// Items returns a copy of the lines in order.
func (s *Store) Items() []domain.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Count is the total quantity across lines.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.CountItems(s.items)
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Add increments the matching line or appends a new one with quantity 1.
func (s *Store) Add(ctx context.Context, product domain.Product) error {
	return s.mutate(ctx, func(items []domain.CartItem) ([]domain.CartItem, Event, error) {
		for i := range items {
			if items[i].ID == product.ID {
				items[i].Quantity++
				return items, Event{Kind: EventUpdated, Item: items[i]}, nil
			}
		}

		item := domain.CartItem{Product: product, Quantity: 1}
		if item.Currency == "" && s.currency != nil {
			item.Currency = s.currency.Currency()
		}
		return append(items, item), Event{Kind: EventAdded, Item: item}, nil
	})
}

// Remove deletes the line at index.
func (s *Store) Remove(ctx context.Context, index int) error {
	return s.mutate(ctx, func(items []domain.CartItem) ([]domain.CartItem, Event, error) {
		if index < 0 || index >= len(items) {
			return nil, Event{}, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, index, len(items))
		}
		removed := items[index]
		return append(items[:index], items[index+1:]...), Event{Kind: EventRemoved, Item: removed}, nil
	})
}

// UpdateQuantity sets the quantity of the line at index. A quantity below one
// removes the line.
func (s *Store) UpdateQuantity(ctx context.Context, index, quantity int) error {
	if quantity < 1 {
		return s.Remove(ctx, index)
	}
	return s.mutate(ctx, func(items []domain.CartItem) ([]domain.CartItem, Event, error) {
		if index < 0 || index >= len(items) {
			return nil, Event{}, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, index, len(items))
		}
		items[index].Quantity = quantity
		return items, Event{Kind: EventUpdated, Item: items[index]}, nil
	})
}

// Clear empties the cart.
func (s *Store) Clear(ctx context.Context) error {
	return s.mutate(ctx, func(items []domain.CartItem) ([]domain.CartItem, Event, error) {
		return []domain.CartItem{}, Event{Kind: EventCleared}, nil
	})
}

// mutate applies fn to a working copy, persists the result and only then
// swaps it in and notifies listeners.
func (s *Store) mutate(ctx context.Context, fn func([]domain.CartItem) ([]domain.CartItem, Event, error)) error {
	s.mu.Lock()

	next, event, err := fn(s.snapshot())
	if err != nil {
		s.mu.Unlock()
		return err
	}

	if err := s.persister.SaveCart(ctx, s.sessionID, next); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to persist cart: %w", err)
	}

	s.items = next
	event.Items = s.snapshot()
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	log.Debugf("Cart %s %s: %d lines", s.sessionID, event.Kind, len(event.Items))
	for _, l := range listeners {
		l.CartChanged(ctx, event)
	}
	return nil
}

func (s *Store) snapshot() []domain.CartItem {
	out := make([]domain.CartItem, len(s.items))
	copy(out, s.items)
	return out
}
