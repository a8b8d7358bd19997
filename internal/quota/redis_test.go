package quota

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unreachableRedisCounter wraps a client pointed at a port nothing listens on.
func unreachableRedisCounter() *RedisCounter {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	return NewRedisCounterWithClient(client)
}

func TestRedisCounter_ConsumeErrorWrapped(t *testing.T) {
	counter := unreachableRedisCounter()
	defer func() { _ = counter.Close() }()

	_, err := counter.Consume(context.Background(), "user-1", 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota: redis consume")
}

func TestRedisCounter_FallbackOnFailure(t *testing.T) {
	primary := unreachableRedisCounter()
	defer func() { _ = primary.Close() }()

	c := NewFallbackCounter(primary, NewMemoryCounter(), nil)

	// The unreachable primary degrades to the local counter, which still
	// enforces the limit.
	d, err := c.Consume(context.Background(), "user-1", 1)
	require.NoError(t, err)
	assert.True(t, d.OK)

	d, err = c.Consume(context.Background(), "user-1", 1)
	require.NoError(t, err)
	assert.False(t, d.OK)
}
