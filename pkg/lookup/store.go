package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

// MemoryStore keeps entries for the life of the process.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string][]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string][]string)}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names, ok := s.items[key]
	if !ok {
		return nil, false, nil
	}
	return append([]string(nil), names...), true, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, names []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[key] = append([]string(nil), names...)
	return nil
}

// Len reports how many keys are cached.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// RedisStore shares entries between server replicas. Values are JSON arrays
// written without a TTL.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore wraps client; prefix namespaces every key (a trailing colon
// is added when missing).
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	prefix = strings.TrimSpace(prefix)
	if prefix != "" && !strings.HasSuffix(prefix, ":") {
		prefix += ":"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]string, bool, error) {
	if s == nil || s.client == nil {
		return nil, false, errors.New("lookup: redis client is nil")
	}
	raw, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("lookup: redis get %s: %w", key, err)
	}
	var names []string
	if err := json.Unmarshal(raw, &names); err != nil {
		return nil, false, fmt.Errorf("lookup: decode %s: %w", key, err)
	}
	if names == nil {
		names = []string{}
	}
	return names, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, names []string) error {
	if s == nil || s.client == nil {
		return errors.New("lookup: redis client is nil")
	}
	if names == nil {
		names = []string{}
	}
	raw, err := json.Marshal(names)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.prefix+key, raw, 0).Err(); err != nil {
		return fmt.Errorf("lookup: redis set %s: %w", key, err)
	}
	return nil
}
