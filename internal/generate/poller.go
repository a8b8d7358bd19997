package generate

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/jblabs/veo-gateway/internal/extract"
	"github.com/jblabs/veo-gateway/internal/veo"
)

// Polling behavior constants.
const (
	// backoffFactor is the multiplicative growth of the poll interval.
	backoffFactor = 1.6
	// jitterFraction is the maximum uniform jitter added to each interval,
	// as a fraction of the computed base. Smooths provider load.
	jitterFraction = 0.25
	// artifactRecheckAttempts bounds the short re-checks performed when the
	// provider reports done but the artifact URI is not yet queryable.
	artifactRecheckAttempts = 3
)

// artifactRecheckDelay is the fixed delay between artifact re-checks.
// Package-level so tests can shorten it.
var artifactRecheckDelay = 2 * time.Second

// Policy bounds a polling loop.
type Policy struct {
	// Timeout is the total wall-clock budget for the poll.
	Timeout time.Duration
	// MinInterval is the initial delay between status queries.
	MinInterval time.Duration
	// MaxInterval caps the exponential backoff.
	MaxInterval time.Duration
}

// PollOutcome is the terminal result of a successful poll.
type PollOutcome struct {
	// Operation is the final operation payload.
	Operation veo.Operation
	// URI is the artifact location. Empty when the provider reported done
	// but the artifact never became visible within the re-check budget.
	URI string
	// Attempts is the number of status queries issued.
	Attempts int
}

// PollUntilDone repeatedly queries an operation until it is terminal, the
// policy timeout is exceeded, or the context is cancelled. Transient provider
// errors (rate limits, 5xx, transport failures) are absorbed by the backoff
// schedule; all other errors propagate as ProviderError.
func PollUntilDone(ctx context.Context, client veo.Client, name string, policy Policy, logger *slog.Logger) (PollOutcome, error) {
	if logger == nil {
		logger = slog.Default()
	}

	start := time.Now()
	interval := policy.MinInterval
	attempts := 0

	for {
		if err := ctx.Err(); err != nil {
			return PollOutcome{Attempts: attempts}, fmt.Errorf("generate: polling cancelled: %w", err)
		}

		op, err := client.GetOperation(ctx, name)
		attempts++
		switch {
		case err == nil:
			if op.Done {
				return resolveArtifact(ctx, client, name, op, attempts, logger)
			}
		case veo.IsTransient(err):
			logger.Warn("transient poll error, retrying",
				slog.String("operation", name),
				slog.Int("attempt", attempts),
				slog.String("error", err.Error()),
			)
		default:
			return PollOutcome{Attempts: attempts}, &ProviderError{Err: err}
		}

		next := nextInterval(interval)
		if time.Since(start)+next > policy.Timeout {
			return PollOutcome{Attempts: attempts}, &TimeoutError{
				OperationName: name,
				Timeout:       policy.Timeout,
				Attempts:      attempts,
			}
		}

		if err := sleep(ctx, next); err != nil {
			return PollOutcome{Attempts: attempts}, fmt.Errorf("generate: polling cancelled: %w", err)
		}

		interval = time.Duration(float64(interval) * backoffFactor)
		if interval > policy.MaxInterval {
			interval = policy.MaxInterval
		}
	}
}

// resolveArtifact handles a terminal operation. A done operation whose
// artifact URI is not yet visible gets a small number of fixed-delay
// re-checks before degrading to a no-URI outcome; the provider's done flag
// and the artifact becoming queryable are eventually consistent.
func resolveArtifact(ctx context.Context, client veo.Client, name string, op veo.Operation, attempts int, logger *slog.Logger) (PollOutcome, error) {
	if op.Error != nil {
		return PollOutcome{Operation: op, Attempts: attempts}, &ProviderError{
			Message: op.Error.Message,
		}
	}

	if uri, ok := extract.FindURI(op.Response); ok {
		return PollOutcome{Operation: op, URI: uri, Attempts: attempts}, nil
	}

	for i := 0; i < artifactRecheckAttempts; i++ {
		if err := sleep(ctx, artifactRecheckDelay); err != nil {
			return PollOutcome{Operation: op, Attempts: attempts}, fmt.Errorf("generate: polling cancelled: %w", err)
		}

		recheck, err := client.GetOperation(ctx, name)
		if err != nil {
			// Best-effort: a failing re-check degrades to the no-URI
			// outcome instead of failing the whole poll.
			logger.Warn("artifact re-check failed",
				slog.String("operation", name),
				slog.String("error", err.Error()),
			)
			continue
		}
		attempts++
		if uri, ok := extract.FindURI(recheck.Response); ok {
			return PollOutcome{Operation: recheck, URI: uri, Attempts: attempts}, nil
		}
		op = recheck
	}

	logger.Warn("operation done but artifact never became visible",
		slog.String("operation", name),
		slog.Int("attempts", attempts),
	)
	return PollOutcome{Operation: op, Attempts: attempts}, nil
}

// nextInterval adds uniform random jitter up to jitterFraction of the base.
func nextInterval(base time.Duration) time.Duration {
	maxJitter := int64(float64(base) * jitterFraction)
	if maxJitter <= 0 {
		return base
	}
	return base + time.Duration(rand.Int64N(maxJitter+1))
}

// sleep waits for d or until the context is cancelled, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
