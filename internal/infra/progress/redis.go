package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	domain "github.com/cyberguardx/cyberguardx/internal/domain/scans"
)

const keyPrefix = "scan:progress:"

// RedisStore is a ProgressStore backed by Redis, for deployments where
// the scan request and the progress poll can land on different instances.
// Snapshots are stored as JSON values with a TTL matching the retention
// windows of the in-memory store.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis and pings it to ensure it's alive.
func NewRedisStore(addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &RedisStore{client: client}, nil
}

func (s *RedisStore) Put(ctx context.Context, p *domain.ScanProgress) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding progress: %w", err)
	}
	ttl := runningTTL
	if p.Status.Terminal() {
		ttl = terminalTTL
	}
	if err := s.client.Set(ctx, keyPrefix+string(p.ScanID), data, ttl).Err(); err != nil {
		return fmt.Errorf("storing progress: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id domain.ScanID) (*domain.ScanProgress, error) {
	data, err := s.client.Get(ctx, keyPrefix+string(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading progress: %w", err)
	}
	var p domain.ScanProgress
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decoding progress: %w", err)
	}
	return &p, nil
}

// Close releases the underlying connection pool.
func (s *RedisStore) Close() error { return s.client.Close() }
