package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"storefront/app/internal/config"
	"storefront/app/internal/domain"
	"storefront/app/internal/domain/task"
	"storefront/app/internal/metrics"
	"storefront/app/internal/queue"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const group = "orders"

type fakeRepo struct {
	mu       sync.Mutex
	orders   map[string]domain.Order
	failures int
}

func (r *fakeRepo) EnsureSchema(context.Context) error { return nil }

func (r *fakeRepo) SaveOrder(_ context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failures > 0 {
		r.failures--
		return errors.New("database unavailable")
	}
	if r.orders == nil {
		r.orders = map[string]domain.Order{}
	}
	r.orders[order.ID] = *order
	return nil
}

func (r *fakeRepo) saved(id string) (domain.Order, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	return order, ok
}

func newTestService(t *testing.T, repo *fakeRepo) (*Service, *queue.RedisQueue, *metrics.Metrics) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	q, err := queue.NewRedisQueue(context.Background(), rdb, config.RedisConfig{KeyPrefix: "test", ConsumerGroup: group})
	require.NoError(t, err)
	q.WithBlock(10 * time.Millisecond)

	m := metrics.New()
	return NewService(repo, q, m, group, 1), q, m
}

func nextMessage(t *testing.T, q *queue.RedisQueue, taskType string) *redis.XMessage {
	t.Helper()
	msg, err := q.GetTask(context.Background(), group, "test", q.StreamName(taskType))
	require.NoError(t, err)
	require.NotNil(t, msg, "expected a %s message", taskType)
	return msg
}

func TestConfirmOrderAssignsIDAndEnqueues(t *testing.T) {
	repo := &fakeRepo{}
	s, q, _ := newTestService(t, repo)
	fixed := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	id, err := s.ConfirmOrder(context.Background(), domain.Order{SessionID: "sid-1", Currency: "AUD"})
	require.NoError(t, err)
	assert.Len(t, id, 36)

	msg := nextMessage(t, q, "OrderTask")
	orderTask, err := task.UnmarshalTask[*task.OrderTask]([]byte(msg.Values["task_data"].(string)))
	require.NoError(t, err)
	assert.Equal(t, id, orderTask.Order.ID)
	assert.Equal(t, fixed, orderTask.Order.ConfirmedAt)
}

func TestProcessMessageSavesOrder(t *testing.T) {
	repo := &fakeRepo{}
	s, q, m := newTestService(t, repo)
	ctx := context.Background()

	_, err := s.ConfirmOrder(ctx, domain.Order{ID: "order-1"})
	require.NoError(t, err)

	require.NoError(t, s.processMessage(ctx, nextMessage(t, q, "OrderTask")))
	_, ok := repo.saved("order-1")
	assert.True(t, ok)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OrdersSaved.WithLabelValues("ok")))
}

func TestFailedSaveGoesThroughRetryStream(t *testing.T) {
	repo := &fakeRepo{failures: 2}
	s, q, m := newTestService(t, repo)
	ctx := context.Background()

	_, err := s.ConfirmOrder(ctx, domain.Order{ID: "order-2"})
	require.NoError(t, err)

	require.NoError(t, s.processMessage(ctx, nextMessage(t, q, "OrderTask")))
	_, ok := repo.saved("order-2")
	assert.False(t, ok)

	retry := nextMessage(t, q, "OrderRetryTask")
	require.NoError(t, s.processMessage(ctx, retry))

	again := nextMessage(t, q, "OrderRetryTask")
	retryTask, err := task.UnmarshalTask[*task.OrderRetryTask]([]byte(again.Values["task_data"].(string)))
	require.NoError(t, err)
	assert.Equal(t, 1, retryTask.RetryCount)
	assert.Equal(t, "database unavailable", retryTask.Error)

	require.NoError(t, s.processMessage(ctx, again))
	_, ok = repo.saved("order-2")
	assert.True(t, ok)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.OrdersSaved.WithLabelValues("error")))
}

func TestProcessMessageRejectsUnknownTypes(t *testing.T) {
	s, _, _ := newTestService(t, &fakeRepo{})

	err := s.processMessage(context.Background(), &redis.XMessage{
		ID:     "1-0",
		Values: map[string]interface{}{"task_type": "Bogus", "task_data": "{}"},
	})
	assert.ErrorContains(t, err, "unknown task type")

	err = s.processMessage(context.Background(), &redis.XMessage{ID: "2-0", Values: map[string]interface{}{}})
	assert.Error(t, err)
}

func TestRunWorkersDrainsOrders(t *testing.T) {
	repo := &fakeRepo{}
	s, _, _ := newTestService(t, repo)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.RunWorkers(ctx, 2) }()

	_, err := s.ConfirmOrder(ctx, domain.Order{ID: "order-3"})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		_, ok := repo.saved("order-3")
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("workers did not stop")
	}
}
