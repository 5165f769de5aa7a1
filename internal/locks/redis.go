package locks

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"autoapply/internal/config"
	"autoapply/internal/logging"
)

// releaseScript deletes the lock only when the stored token matches, so an
// expired lock reacquired by another worker is never released by the first.
const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`

// RedisManager implements Manager with SET NX PX, which keeps application
// attempts exclusive across service instances. The TTL guards against a
// crashed holder pinning a job forever.
type RedisManager struct {
	client        *redis.Client
	ttl           time.Duration
	retryInterval time.Duration
	logger        logging.Logger
}

// NewRedisManager creates a Redis-backed lock manager from the service config
func NewRedisManager(cfg *config.Config) (*RedisManager, error) {
	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	opts.DB = cfg.Redis.DB
	opts.DialTimeout = cfg.Redis.Timeout
	opts.ReadTimeout = cfg.Redis.Timeout
	opts.WriteTimeout = cfg.Redis.Timeout

	return &RedisManager{
		client:        redis.NewClient(opts),
		ttl:           cfg.Redis.LockTTL,
		retryInterval: 50 * time.Millisecond,
		logger:        logging.GetGlobalLogger(),
	}, nil
}

// Ping tests the Redis connection
func (m *RedisManager) Ping(ctx context.Context) error {
	return m.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (m *RedisManager) Close() error {
	return m.client.Close()
}

func (m *RedisManager) Acquire(ctx context.Context, key string) (func(), error) {
	token := uuid.New().String()
	lockKey := "lock:" + key

	for {
		ok, err := m.client.SetNX(ctx, lockKey, token, m.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquiring lock %s: %w", key, err)
		}
		if ok {
			return func() {
				// Release is best-effort; the TTL covers a lost connection
				releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := m.client.Eval(releaseCtx, releaseScript, []string{lockKey}, token).Err(); err != nil && err != redis.Nil {
					m.logger.Warn("Failed to release lock", map[string]interface{}{
						"key":   key,
						"error": err.Error(),
					})
				}
			}, nil
		}

		select {
		case <-time.After(m.retryInterval):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
