// Package quota enforces a per-user daily generation limit. The counter is
// keyed by user id and UTC date, so a fresh key appears naturally at UTC
// midnight and no explicit reset is needed.
package quota

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Decision is the outcome of one admission check.
type Decision struct {
	// OK reports whether the request is admitted.
	OK bool `json:"ok"`
	// Remaining is the number of admissions left today after this one.
	Remaining int `json:"remaining"`
}

// Counter is the admission gate. Consume atomically increments the user's
// daily counter and reports whether the request is within the limit;
// concurrent calls for the same user must never both pass the limit.
type Counter interface {
	Consume(ctx context.Context, userID string, limit int) (Decision, error)
}

// DayKey builds the counter key for a user on the given instant's UTC date.
func DayKey(userID string, now time.Time) string {
	return fmt.Sprintf("quota:%s:%s", userID, now.UTC().Format("2006-01-02"))
}

// FallbackCounter consults a primary counter and degrades to a secondary one
// when the primary errors. The secondary is typically the in-process counter,
// which is best-effort across multiple instances, an accepted limitation.
type FallbackCounter struct {
	primary   Counter
	secondary Counter
	logger    *slog.Logger
}

// NewFallbackCounter creates a FallbackCounter.
func NewFallbackCounter(primary, secondary Counter, logger *slog.Logger) *FallbackCounter {
	if logger == nil {
		logger = slog.Default()
	}
	return &FallbackCounter{
		primary:   primary,
		secondary: secondary,
		logger:    logger,
	}
}

// Consume tries the primary counter and falls back on error.
func (c *FallbackCounter) Consume(ctx context.Context, userID string, limit int) (Decision, error) {
	decision, err := c.primary.Consume(ctx, userID, limit)
	if err == nil {
		return decision, nil
	}

	c.logger.Warn("primary quota store unavailable, using local counter",
		slog.String("user_id", userID),
		slog.String("error", err.Error()),
	)
	return c.secondary.Consume(ctx, userID, limit)
}

// Compile-time check that FallbackCounter implements Counter.
var _ Counter = (*FallbackCounter)(nil)
