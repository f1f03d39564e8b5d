package history

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/lk2023060901/ai-research-backend/internal/pkg/errors"
)

// Storage persists the serialized history index as a single named record.
type Storage interface {
	Load(ctx context.Context) ([]*Entry, error)
	Save(ctx context.Context, entries []*Entry) error
}

const redisHistoryKey = "chat:history"

// RedisStorage keeps the index in a single Redis string value.
type RedisStorage struct {
	client *redis.Client
	key    string
}

// NewRedisStorage creates Redis-backed storage.
func NewRedisStorage(client *redis.Client) *RedisStorage {
	return &RedisStorage{client: client, key: redisHistoryKey}
}

// Load reads and decodes the stored index. A missing key yields an empty index.
func (s *RedisStorage) Load(ctx context.Context) ([]*Entry, error) {
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrHistoryStorageFailed, "load history index")
	}

	var entries []*Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, errors.Wrap(err, errors.ErrHistoryStorageFailed, "decode history index")
	}
	return entries, nil
}

// Save encodes and writes the whole index.
func (s *RedisStorage) Save(ctx context.Context, entries []*Entry) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return errors.Wrap(err, errors.ErrHistoryStorageFailed, "encode history index")
	}
	if err := s.client.Set(ctx, s.key, raw, 0).Err(); err != nil {
		return errors.Wrap(err, errors.ErrHistoryStorageFailed, "save history index")
	}
	return nil
}

// MemoryStorage is an in-process Storage used in tests and when Redis is absent.
type MemoryStorage struct {
	mu      sync.Mutex
	entries []*Entry
}

// NewMemoryStorage creates empty in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (s *MemoryStorage) Load(_ context.Context) ([]*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Entry, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.Clone()
	}
	return out, nil
}

func (s *MemoryStorage) Save(_ context.Context, entries []*Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make([]*Entry, len(entries))
	for i, e := range entries {
		s.entries[i] = e.Clone()
	}
	return nil
}
