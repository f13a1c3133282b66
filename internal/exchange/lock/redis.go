package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"giftexchange/pkg/platform/sentinel"
)

const (
	defaultTTL    = 30 * time.Second
	defaultPrefix = "giftexchange:lock:"
)

// releaseScript deletes the lock only while it still holds our token, so an
// expired lease can never release a lock taken over by another process.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a Locker shared by every process using the same Redis. Acquire
// fails fast with sentinel.ErrUnavailable when the key is held elsewhere.
type Redis struct {
	client redis.UniversalClient
	ttl    time.Duration
	prefix string
}

type RedisOption func(*Redis)

// WithTTL bounds how long a lock survives a crashed holder.
func WithTTL(ttl time.Duration) RedisOption {
	return func(r *Redis) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

func WithPrefix(prefix string) RedisOption {
	return func(r *Redis) {
		r.prefix = prefix
	}
}

func NewRedis(client redis.UniversalClient, opts ...RedisOption) *Redis {
	r := &Redis{client: client, ttl: defaultTTL, prefix: defaultPrefix}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Redis) Acquire(ctx context.Context, key string) (Release, error) {
	name := r.prefix + key
	token := uuid.NewString()

	ok, err := r.client.SetNX(ctx, name, token, r.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", name, err)
	}
	if !ok {
		return nil, fmt.Errorf("lock %s is held: %w", name, sentinel.ErrUnavailable)
	}

	return func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, r.client, []string{name}, token).Err(); err != nil {
			return fmt.Errorf("release lock %s: %w", name, err)
		}
		return nil
	}, nil
}
