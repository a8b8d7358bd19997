package quota

import (
	"context"
	"sync"
	"time"
)

// MemoryCounter is an in-process Counter. It uses the same key scheme as the
// Redis counter but is only safe within a single process.
type MemoryCounter struct {
	mu     sync.Mutex
	counts map[string]int
	// now is injectable for tests.
	now func() time.Time
}

// NewMemoryCounter creates a MemoryCounter.
func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{
		counts: make(map[string]int),
		now:    time.Now,
	}
}

// Consume performs the read-check-increment under the counter mutex.
func (c *MemoryCounter) Consume(ctx context.Context, userID string, limit int) (Decision, error) {
	if err := ctx.Err(); err != nil {
		return Decision{}, err
	}

	key := DayKey(userID, c.now())

	c.mu.Lock()
	defer c.mu.Unlock()

	used := c.counts[key]
	if used >= limit {
		return Decision{OK: false, Remaining: 0}, nil
	}

	c.counts[key] = used + 1
	return Decision{OK: true, Remaining: limit - (used + 1)}, nil
}

// Compile-time check that MemoryCounter implements Counter.
var _ Counter = (*MemoryCounter)(nil)
