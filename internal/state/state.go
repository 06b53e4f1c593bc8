package state

import (
	"context"
	"encoding/json"
	"fmt"

	"storefront/app/internal/domain"

	"github.com/redis/go-redis/v9"
)

// StateManager is the per-visitor persisted state. Every key lives under the
// visitor's session id.
type StateManager interface {
	LoadCart(ctx context.Context, sessionID string) ([]domain.CartItem, error)
	SaveCart(ctx context.Context, sessionID string, items []domain.CartItem) error

	GetTheme(ctx context.Context, sessionID string) (domain.Theme, bool, error)
	SetTheme(ctx context.Context, sessionID string, theme domain.Theme) error

	LoadCheckout(ctx context.Context, sessionID string, into any) (bool, error)
	SaveCheckout(ctx context.Context, sessionID string, snapshot any) error

	PushNotice(ctx context.Context, sessionID, notice string) error
	PopNotices(ctx context.Context, sessionID string) ([]string, error)
}

type redisStateManager struct {
	redisClient *redis.Client
	keyPrefix   string
}

func NewRedisStateManager(redisClient *redis.Client, keyPrefix string) StateManager {
	return &redisStateManager{
		redisClient: redisClient,
		keyPrefix:   keyPrefix + ":session:",
	}
}

func (s *redisStateManager) key(sessionID, name string) string {
	return s.keyPrefix + sessionID + ":" + name
}

func (s *redisStateManager) LoadCart(ctx context.Context, sessionID string) ([]domain.CartItem, error) {
	items := make([]domain.CartItem, 0)
	found, err := s.getJSON(ctx, s.key(sessionID, "cart"), &items)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart for session %s: %w", sessionID, err)
	}
	if !found {
		return []domain.CartItem{}, nil
	}
	return items, nil
}

func (s *redisStateManager) SaveCart(ctx context.Context, sessionID string, items []domain.CartItem) error {
	if items == nil {
		items = []domain.CartItem{}
	}
	if err := s.setJSON(ctx, s.key(sessionID, "cart"), items); err != nil {
		return fmt.Errorf("failed to save cart for session %s: %w", sessionID, err)
	}
	return nil
}

func (s *redisStateManager) GetTheme(ctx context.Context, sessionID string) (domain.Theme, bool, error) {
	val, err := s.redisClient.Get(ctx, s.key(sessionID, "theme")).Result()
	if err != nil {
		if err == redis.Nil {
			return "", false, nil // No preference saved yet
		}
		return "", false, fmt.Errorf("failed to get theme for session %s: %w", sessionID, err)
	}

	theme, ok := domain.ParseTheme(val)
	return theme, ok, nil
}

func (s *redisStateManager) SetTheme(ctx context.Context, sessionID string, theme domain.Theme) error {
	err := s.redisClient.Set(ctx, s.key(sessionID, "theme"), string(theme), 0).Err() // No expiration
	if err != nil {
		return fmt.Errorf("failed to set theme for session %s: %w", sessionID, err)
	}
	return nil
}

func (s *redisStateManager) LoadCheckout(ctx context.Context, sessionID string, into any) (bool, error) {
	found, err := s.getJSON(ctx, s.key(sessionID, "checkout"), into)
	if err != nil {
		return false, fmt.Errorf("failed to load checkout for session %s: %w", sessionID, err)
	}
	return found, nil
}

func (s *redisStateManager) SaveCheckout(ctx context.Context, sessionID string, snapshot any) error {
	if err := s.setJSON(ctx, s.key(sessionID, "checkout"), snapshot); err != nil {
		return fmt.Errorf("failed to save checkout for session %s: %w", sessionID, err)
	}
	return nil
}

func (s *redisStateManager) PushNotice(ctx context.Context, sessionID, notice string) error {
	if err := s.redisClient.RPush(ctx, s.key(sessionID, "notices"), notice).Err(); err != nil {
		return fmt.Errorf("failed to push notice for session %s: %w", sessionID, err)
	}
	return nil
}

// PopNotices returns and clears the pending notices in one transaction.
func (s *redisStateManager) PopNotices(ctx context.Context, sessionID string) ([]string, error) {
	key := s.key(sessionID, "notices")

	var lrange *redis.StringSliceCmd
	_, err := s.redisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		lrange = pipe.LRange(ctx, key, 0, -1)
		pipe.Del(ctx, key)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to pop notices for session %s: %w", sessionID, err)
	}

	return lrange.Val(), nil
}

func (s *redisStateManager) getJSON(ctx context.Context, key string, into any) (bool, error) {
	val, err := s.redisClient.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(val, into); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

func (s *redisStateManager) setJSON(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return s.redisClient.Set(ctx, key, data, 0).Err()
}
