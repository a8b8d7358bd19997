package generate

import (
	"fmt"
	"regexp"
	"time"
)

// ValidationError reports malformed or missing request input. It is always
// recoverable by the caller correcting the request.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ConfigError reports missing operator-side configuration, typically an
// unresolvable provider credential. Not retryable without intervention.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string {
	return e.Err.Error()
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// badInputPattern matches provider messages that indicate the caller's input
// was rejected, so the failure can be surfaced as a client error.
var badInputPattern = regexp.MustCompile(`(?i)invalid|missing|400|INVALID_ARGUMENT`)

// ProviderError reports that the provider rejected a request or returned an
// unrecognized shape. The provider message is preserved because it often
// carries actionable detail.
type ProviderError struct {
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	return e.Message
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// ClientFault reports whether the message matches a known bad-input
// signature, in which case the caller-facing layer maps it to a client error.
func (e *ProviderError) ClientFault() bool {
	return badInputPattern.MatchString(e.Error())
}

// TimeoutError reports that wait-mode polling exceeded its budget. Surfaced
// distinctly so callers can offer try-again messaging.
type TimeoutError struct {
	OperationName string
	Timeout       time.Duration
	Attempts      int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("generate: polling %s timed out after %s (%d attempts)", e.OperationName, e.Timeout, e.Attempts)
}
