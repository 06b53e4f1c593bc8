package queue

import (
	"context"
	"testing"
	"time"

	"storefront/app/internal/config"
	"storefront/app/internal/domain"
	"storefront/app/internal/domain/task"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const group = "orders"

func newTestQueue(t *testing.T) *RedisQueue {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	q, err := NewRedisQueue(context.Background(), rdb, config.RedisConfig{KeyPrefix: "test", ConsumerGroup: group})
	require.NoError(t, err)
	return q.WithBlock(10 * time.Millisecond)
}

func TestEnsureStreamsExistIsIdempotent(t *testing.T) {
	q := newTestQueue(t)
	require.NoError(t, q.EnsureStreamsExist(context.Background()))

	for _, taskType := range task.Types {
		pending, err := q.redisClient.XPending(context.Background(), q.StreamName(taskType), group).Result()
		require.NoError(t, err, taskType)
		assert.Zero(t, pending.Count)
	}
}

func TestAddGetAck(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()
	stream := q.StreamName("OrderTask")

	msg, err := q.GetTask(ctx, group, "c1", stream)
	require.NoError(t, err)
	assert.Nil(t, msg)

	id, err := q.AddTask(ctx, &task.OrderTask{Order: domain.Order{ID: "order-1", Currency: "AUD"}})
	require.NoError(t, err)

	msg, err = q.GetTask(ctx, group, "c1", stream)
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, id, msg.ID)
	assert.Equal(t, "OrderTask", msg.Values["task_type"])

	decoded, err := task.UnmarshalTask[*task.OrderTask]([]byte(msg.Values["task_data"].(string)))
	require.NoError(t, err)
	assert.Equal(t, "order-1", decoded.Order.ID)

	require.NoError(t, q.AckTask(ctx, stream, group, msg.ID))
	pending, err := q.redisClient.XPending(ctx, stream, group).Result()
	require.NoError(t, err)
	assert.Zero(t, pending.Count)
}

func TestAutoClaimPicksUpUnackedMessages(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()
	stream := q.StreamName("OrderRetryTask")

	_, err := q.AddTask(ctx, &task.OrderRetryTask{Order: domain.Order{ID: "order-2"}, RetryCount: 1})
	require.NoError(t, err)

	msg, err := q.GetTask(ctx, group, "crashed", stream)
	require.NoError(t, err)
	require.NotNil(t, msg)

	claimed, err := q.AutoClaim(ctx, group, "rescuer", stream, 0)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, msg.ID, claimed[0].ID)
}
