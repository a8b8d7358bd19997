package quota

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// keyTTL keeps day keys around long enough to cover clock skew between
// instances before Redis reclaims them.
const keyTTL = 48 * time.Hour

// consumeScript performs the read-check-increment as a single server-side
// operation, so concurrent admission checks for the same key cannot both
// pass the limit. Returns -1 when the limit is already spent, otherwise the
// remaining count after the increment.
var consumeScript = redis.NewScript(`
local used = tonumber(redis.call('GET', KEYS[1]) or '0')
local limit = tonumber(ARGV[1])
if used >= limit then
  return -1
end
used = redis.call('INCR', KEYS[1])
redis.call('EXPIRE', KEYS[1], ARGV[2])
return limit - used
`)

// RedisConfig holds connection settings for the quota store.
type RedisConfig struct {
	Addr     string
	Username string
	Password string
	UseTLS   bool
	DB       int
}

// RedisCounter is the Redis-backed Counter used as the primary quota store.
type RedisCounter struct {
	client *redis.Client
	// now is injectable for tests.
	now func() time.Time
}

// NewRedisCounter connects to Redis and verifies the connection.
func NewRedisCounter(ctx context.Context, cfg RedisConfig) (*RedisCounter, error) {
	var tlsConfig *tls.Config
	if cfg.UseTLS {
		tlsConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		TLSConfig:    tlsConfig,
		DialTimeout:  10 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("quota: redis ping: %w", err)
	}

	return &RedisCounter{client: client, now: time.Now}, nil
}

// NewRedisCounterWithClient wraps an existing client. Useful for tests.
func NewRedisCounterWithClient(client *redis.Client) *RedisCounter {
	return &RedisCounter{client: client, now: time.Now}
}

// Consume runs the atomic check-and-increment script.
func (c *RedisCounter) Consume(ctx context.Context, userID string, limit int) (Decision, error) {
	key := DayKey(userID, c.now())

	remaining, err := consumeScript.Run(ctx, c.client, []string{key}, limit, int(keyTTL.Seconds())).Int()
	if err != nil {
		return Decision{}, fmt.Errorf("quota: redis consume: %w", err)
	}

	if remaining < 0 {
		return Decision{OK: false, Remaining: 0}, nil
	}
	return Decision{OK: true, Remaining: remaining}, nil
}

// Close releases the underlying Redis connection.
func (c *RedisCounter) Close() error {
	return c.client.Close()
}

// Compile-time check that RedisCounter implements Counter.
var _ Counter = (*RedisCounter)(nil)
