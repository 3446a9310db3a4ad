package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"gitlab.com/astradesk/api/wa-campaign-bridge/internal/config"
)

// unlockScript releases the key only when it still holds our token, so an
// expired lock reclaimed by another worker is never released by us.
var unlockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

// Guard is a single-flight lock keyed by resource. Acquire is non-blocking:
// a held lock means someone else is working on the resource and the caller
// should simply skip it.
type Guard interface {
	// Acquire takes the lock for key, returning a release func and true on
	// success. TTL bounds how long a crashed holder can wedge the key.
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), acquired bool, err error)
}

// RedisGuard implements Guard with SET NX on a shared redis.
type RedisGuard struct {
	client *redis.Client
	prefix string
}

// NewRedisGuard connects to redis and returns a guard. The connection is
// verified with a ping.
func NewRedisGuard(ctx context.Context, cfg config.RedisConfig, prefix string) (*RedisGuard, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &RedisGuard{client: client, prefix: prefix}, nil
}

// Acquire implements Guard.
func (g *RedisGuard) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	token := uuid.New().String()
	fullKey := g.prefix + ":" + key

	ok, err := g.client.SetNX(ctx, fullKey, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquiring lock %s: %w", fullKey, err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = unlockScript.Run(releaseCtx, g.client, []string{fullKey}, token).Err()
	}
	return release, true, nil
}

// Close closes the underlying redis connection.
func (g *RedisGuard) Close() error {
	return g.client.Close()
}
