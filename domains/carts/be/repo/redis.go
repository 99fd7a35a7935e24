package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/zenGate-Global/palmyra-storefront/domains/carts/be/service"
)

const (
	defaultCartTTL    = 30 * 24 * time.Hour
	defaultPendingTTL = time.Hour
)

// RedisStore keeps carts as JSON values keyed by cart session.
type RedisStore struct {
	client     redis.Cmdable
	cartTTL    time.Duration
	pendingTTL time.Duration
}

// NewRedisStore returns a store using the supplied client. Zero TTLs fall back to defaults.
func NewRedisStore(client redis.Cmdable, cartTTL, pendingTTL time.Duration) *RedisStore {
	if client == nil {
		panic("redis client is required")
	}
	if cartTTL <= 0 {
		cartTTL = defaultCartTTL
	}
	if pendingTTL <= 0 {
		pendingTTL = defaultPendingTTL
	}
	return &RedisStore{client: client, cartTTL: cartTTL, pendingTTL: pendingTTL}
}

func cartKey(session string) string    { return "cart:" + session }
func pendingKey(session string) string { return "cart:" + session + ":pending" }

func (s *RedisStore) Load(ctx context.Context, session string) (service.Cart, error) {
	raw, err := s.client.Get(ctx, cartKey(session)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return service.Cart{}, nil
		}
		return service.Cart{}, fmt.Errorf("load cart: %w", err)
	}
	var cart service.Cart
	if err := json.Unmarshal(raw, &cart); err != nil {
		return service.Cart{}, fmt.Errorf("decode cart: %w", err)
	}
	return cart, nil
}

func (s *RedisStore) Save(ctx context.Context, session string, cart service.Cart) error {
	raw, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := s.client.Set(ctx, cartKey(session), raw, s.cartTTL).Err(); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

func (s *RedisStore) StagePending(ctx context.Context, session string, item service.PendingItem) error {
	raw, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("encode pending item: %w", err)
	}
	if err := s.client.Set(ctx, pendingKey(session), raw, s.pendingTTL).Err(); err != nil {
		return fmt.Errorf("stage pending item: %w", err)
	}
	return nil
}

// TakePending uses GETDEL so concurrent logins cannot both apply the same item.
func (s *RedisStore) TakePending(ctx context.Context, session string) (service.PendingItem, bool, error) {
	raw, err := s.client.GetDel(ctx, pendingKey(session)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return service.PendingItem{}, false, nil
		}
		return service.PendingItem{}, false, fmt.Errorf("take pending item: %w", err)
	}
	var item service.PendingItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return service.PendingItem{}, false, fmt.Errorf("decode pending item: %w", err)
	}
	return item, true, nil
}

var _ service.Store = (*RedisStore)(nil)
