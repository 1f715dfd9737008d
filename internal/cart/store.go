package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/rentiva/rentiva-backend/pkg/redis"
)

// Store persists cart snapshots keyed by customer identity.
type Store interface {
	Load(ctx context.Context, identity string) (*Snapshot, error)
	Save(ctx context.Context, identity string, snapshot *Snapshot) error
	Clear(ctx context.Context, identity string) error
}

type redisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore backs carts with Redis. Snapshots expire after ttl so
// abandoned carts clean themselves up.
func NewRedisStore(client *redis.Client, ttl time.Duration) (Store, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("cart ttl must be positive")
	}
	return &redisStore{client: client, ttl: ttl}, nil
}

func (s *redisStore) Load(ctx context.Context, identity string) (*Snapshot, error) {
	raw, err := s.client.Get(ctx, s.client.CartKey(identity))
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("loading cart: %w", err)
	}
	var snapshot Snapshot
	if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
		return nil, fmt.Errorf("decoding cart snapshot: %w", err)
	}
	return &snapshot, nil
}

func (s *redisStore) Save(ctx context.Context, identity string, snapshot *Snapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encoding cart snapshot: %w", err)
	}
	return s.client.Set(ctx, s.client.CartKey(identity), string(payload), s.ttl)
}

func (s *redisStore) Clear(ctx context.Context, identity string) error {
	return s.client.Del(ctx, s.client.CartKey(identity))
}

type memoryStore struct {
	mu    sync.Mutex
	carts map[string]*Snapshot
}

// NewMemoryStore is an in-process store used by tests and local tooling.
func NewMemoryStore() Store {
	return &memoryStore{carts: map[string]*Snapshot{}}
}

func (s *memoryStore) Load(_ context.Context, identity string) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot, ok := s.carts[identity]
	if !ok {
		return nil, nil
	}
	copied := *snapshot
	copied.Items = append([]Item(nil), snapshot.Items...)
	return &copied, nil
}

func (s *memoryStore) Save(_ context.Context, identity string, snapshot *Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *snapshot
	copied.Items = append([]Item(nil), snapshot.Items...)
	s.carts[identity] = &copied
	return nil
}

func (s *memoryStore) Clear(_ context.Context, identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, identity)
	return nil
}
