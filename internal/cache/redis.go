package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache keys
const (
	DressListKey      = "dresses:list"
	DressAvailableKey = "dresses:available"
	DressKeyFmt       = "dresses:item:%d"
	DressPattern      = "dresses:*"
	DashboardKey      = "reports:dashboard"
)

const (
	DressTTL     = 5 * time.Minute
	DashboardTTL = time.Minute
)

// Store wraps a Redis client. A nil *Store, or one whose connection failed,
// behaves as an always-empty cache so callers fall through to the database.
type Store struct {
	client *redis.Client
}

// Init connects to Redis. On failure the returned store is disabled and the
// error is returned for logging.
func Init(addr, password string, db int) (*Store, error) {
	if addr == "" {
		return &Store{}, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		// Close the failed client for graceful degradation
		client.Close()
		return &Store{}, err
	}
	return &Store{client: client}, nil
}

// NewStore wraps an existing client
func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

// Client returns the Redis client, nil when caching is disabled
func (s *Store) Client() *redis.Client {
	if s == nil {
		return nil
	}
	return s.client
}

func (s *Store) Enabled() bool {
	return s.Client() != nil
}

// GetCached returns the raw bytes for key if present
func (s *Store) GetCached(ctx context.Context, key string) ([]byte, bool) {
	if !s.Enabled() {
		return nil, false
	}
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return data, true
}

func (s *Store) SetCached(ctx context.Context, key string, data []byte, ttl time.Duration) {
	if !s.Enabled() {
		return
	}
	s.client.Set(ctx, key, data, ttl)
}

// GetJSON decodes a cached value into out. A miss or a corrupt entry reports false.
func (s *Store) GetJSON(ctx context.Context, key string, out any) bool {
	data, ok := s.GetCached(ctx, key)
	if !ok {
		return false
	}
	return json.Unmarshal(data, out) == nil
}

func (s *Store) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) {
	if !s.Enabled() {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	s.SetCached(ctx, key, data, ttl)
}

// InvalidatePattern removes all keys matching a glob pattern
func (s *Store) InvalidatePattern(ctx context.Context, pattern string) {
	if !s.Enabled() {
		return
	}
	keys, err := s.client.Keys(ctx, pattern).Result()
	if err == nil && len(keys) > 0 {
		s.client.Del(ctx, keys...)
	}
}

// InvalidateKeys removes specific cache keys
func (s *Store) InvalidateKeys(ctx context.Context, keys ...string) {
	if !s.Enabled() || len(keys) == 0 {
		return
	}
	s.client.Del(ctx, keys...)
}

// InvalidateDresses drops every dress listing and the dashboard counts.
// Called after any dress or rental mutation.
func (s *Store) InvalidateDresses(ctx context.Context) {
	s.InvalidatePattern(ctx, DressPattern)
	s.InvalidateKeys(ctx, DashboardKey)
}

// InvalidateDashboard drops the cached dashboard figures
func (s *Store) InvalidateDashboard(ctx context.Context) {
	s.InvalidateKeys(ctx, DashboardKey)
}

// Ping checks the connection. A disabled store reports nil.
func (s *Store) Ping(ctx context.Context) error {
	if !s.Enabled() {
		return nil
	}
	return s.client.Ping(ctx).Err()
}

// IsHealthy returns true if Redis is connected and responding
func (s *Store) IsHealthy() bool {
	if !s.Enabled() {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return s.client.Ping(ctx).Err() == nil
}

func (s *Store) Close() error {
	if !s.Enabled() {
		return nil
	}
	return s.client.Close()
}
