package cart

import (
	"context"
	"errors"
	"testing"

	"storefront/app/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryPersister struct {
	carts   map[string][]domain.CartItem
	saves   int
	failErr error
}

func newMemoryPersister() *memoryPersister {
	return &memoryPersister{carts: make(map[string][]domain.CartItem)}
}

func (m *memoryPersister) LoadCart(_ context.Context, sessionID string) ([]domain.CartItem, error) {
	return append([]domain.CartItem{}, m.carts[sessionID]...), nil
}

func (m *memoryPersister) SaveCart(_ context.Context, sessionID string, items []domain.CartItem) error {
	if m.failErr != nil {
		return m.failErr
	}
	m.saves++
	m.carts[sessionID] = append([]domain.CartItem{}, items...)
	return nil
}

type fixedCurrency string

func (c fixedCurrency) Currency() string { return string(c) }

func product(id, price, currency string) domain.Product {
	return domain.Product{ID: id, Name: id, Price: decimal.RequireFromString(price), Currency: currency}
}

func openStore(t *testing.T, p *memoryPersister) *Store {
	t.Helper()
	s, err := Open(context.Background(), "sid", p, fixedCurrency("NZD"))
	require.NoError(t, err)
	return s
}

func TestAddSameProductTwice(t *testing.T) {
	s := openStore(t, newMemoryPersister())
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, product("mug", "49.99", "AUD")))
	require.NoError(t, s.Add(ctx, product("mug", "49.99", "AUD")))

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, 2, s.Count())
}

func TestAddFallsBackToDisplayCurrency(t *testing.T) {
	s := openStore(t, newMemoryPersister())
	require.NoError(t, s.Add(context.Background(), product("mug", "4", "")))
	require.NoError(t, s.Add(context.Background(), product("cup", "4", "AUD")))

	items := s.Items()
	assert.Equal(t, "NZD", items[0].Currency)
	assert.Equal(t, "AUD", items[1].Currency)
}

func TestRemove(t *testing.T) {
	p := newMemoryPersister()
	s := openStore(t, p)
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, product("mug", "4", "AUD")))
	require.NoError(t, s.Remove(ctx, 0))
	assert.Empty(t, s.Items())
	assert.Empty(t, p.carts["sid"])

	saves := p.saves
	err := s.Remove(ctx, 0)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	assert.ErrorIs(t, s.Remove(ctx, -1), ErrIndexOutOfRange)
	assert.Equal(t, saves, p.saves, "failed removal must not persist")
}

func TestRemoveKeepsOrder(t *testing.T) {
	s := openStore(t, newMemoryPersister())
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.Add(ctx, product(id, "1", "AUD")))
	}

	require.NoError(t, s.Remove(ctx, 1))
	items := s.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].ID)
	assert.Equal(t, "c", items[1].ID)
}

func TestUpdateQuantity(t *testing.T) {
	s := openStore(t, newMemoryPersister())
	ctx := context.Background()
	require.NoError(t, s.Add(ctx, product("a", "1", "AUD")))
	require.NoError(t, s.Add(ctx, product("b", "1", "AUD")))

	require.NoError(t, s.UpdateQuantity(ctx, 1, 5))
	assert.Equal(t, 5, s.Items()[1].Quantity)

	require.NoError(t, s.UpdateQuantity(ctx, 0, 0))
	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "b", items[0].ID)

	assert.ErrorIs(t, s.UpdateQuantity(ctx, 3, 2), ErrIndexOutOfRange)
}

func TestClear(t *testing.T) {
	p := newMemoryPersister()
	s := openStore(t, p)
	ctx := context.Background()
	require.NoError(t, s.Add(ctx, product("a", "1", "AUD")))

	require.NoError(t, s.Clear(ctx))
	assert.Empty(t, s.Items())
	assert.NotNil(t, p.carts["sid"])
	assert.Empty(t, p.carts["sid"])
}

func TestPersistBeforeNotify(t *testing.T) {
	p := newMemoryPersister()
	s := openStore(t, p)

	var events []Event
	s.Subscribe(ListenerFunc(func(_ context.Context, e Event) {
		persisted := p.carts["sid"]
		assert.Equal(t, len(e.Items), len(persisted), "listener ran before persistence")
		events = append(events, e)
	}))

	ctx := context.Background()
	require.NoError(t, s.Add(ctx, product("a", "1", "AUD")))
	require.NoError(t, s.Add(ctx, product("a", "1", "AUD")))
	require.NoError(t, s.Remove(ctx, 0))
	require.NoError(t, s.Clear(ctx))

	require.Len(t, events, 4)
	assert.Equal(t, EventAdded, events[0].Kind)
	assert.Equal(t, EventUpdated, events[1].Kind)
	assert.Equal(t, 2, events[1].Item.Quantity)
	assert.Equal(t, EventRemoved, events[2].Kind)
	assert.Equal(t, EventCleared, events[3].Kind)
}

func TestPersistFailureLeavesCartUntouched(t *testing.T) {
	p := newMemoryPersister()
	s := openStore(t, p)
	ctx := context.Background()
	require.NoError(t, s.Add(ctx, product("a", "1", "AUD")))

	notified := false
	s.Subscribe(ListenerFunc(func(context.Context, Event) { notified = true }))

	p.failErr = errors.New("redis down")
	err := s.Add(ctx, product("b", "1", "AUD"))
	require.Error(t, err)
	assert.False(t, notified)
	assert.Len(t, s.Items(), 1)
}

func TestReopenReproducesOrder(t *testing.T) {
	p := newMemoryPersister()
	s := openStore(t, p)
	ctx := context.Background()
	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, s.Add(ctx, product(id, "1", "AUD")))
	}
	require.NoError(t, s.Add(ctx, product("a", "1", "AUD")))

	reopened := openStore(t, p)
	assert.Equal(t, s.Items(), reopened.Items())
}
