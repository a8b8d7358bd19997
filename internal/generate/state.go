package generate

import (
	"errors"
	"log/slog"
)

// Phase is the orchestration state of a single generation call. The explicit
// state machine keeps timeout and cancellation races easy to reason about and
// shows up in structured logs for out-of-band tracing.
type Phase string

const (
	// PhaseValidating indicates input is being validated and normalized.
	PhaseValidating Phase = "VALIDATING"
	// PhaseStarting indicates the provider start call is in flight.
	PhaseStarting Phase = "STARTING"
	// PhaseQueued indicates the operation handle exists but is not polled.
	PhaseQueued Phase = "QUEUED"
	// PhasePolling indicates wait-mode status polling is in progress.
	PhasePolling Phase = "POLLING"
	// PhaseCompleted indicates a terminal result was produced.
	PhaseCompleted Phase = "COMPLETED"
	// PhaseFailed indicates the call ended with an error.
	PhaseFailed Phase = "FAILED"
)

// ErrInvalidTransition is returned when an invalid phase transition is attempted.
var ErrInvalidTransition = errors.New("generate: invalid phase transition")

// validTransitions defines which phase transitions are allowed.
var validTransitions = map[Phase][]Phase{
	PhaseValidating: {PhaseStarting, PhaseFailed},
	PhaseStarting:   {PhaseQueued, PhasePolling, PhaseCompleted, PhaseFailed},
	PhaseQueued:     {},
	PhasePolling:    {PhaseCompleted, PhaseFailed},
	PhaseCompleted:  {},
	PhaseFailed:     {},
}

// IsTerminal returns true if the phase is a final state.
func (p Phase) IsTerminal() bool {
	switch p {
	case PhaseQueued, PhaseCompleted, PhaseFailed:
		return true
	default:
		return false
	}
}

// progress tracks the phase of one orchestration call. It is call-local and
// needs no locking; requests never share it.
type progress struct {
	phase Phase
}

func newProgress() *progress {
	return &progress{phase: PhaseValidating}
}

// current returns the phase the call is in.
func (p *progress) current() Phase {
	return p.phase
}

// advance moves to the next phase, returning ErrInvalidTransition when the
// move is not allowed from the current phase.
func (p *progress) advance(to Phase) error {
	for _, allowed := range validTransitions[p.phase] {
		if allowed == to {
			p.phase = to
			return nil
		}
	}
	return ErrInvalidTransition
}

// advanceTo is advance with the failure mode logged instead of returned. An
// invalid transition is a sequencing bug in the orchestrator, not a caller
// error, so it is reported and the call keeps going.
func (p *progress) advanceTo(to Phase, logger *slog.Logger) {
	if err := p.advance(to); err != nil {
		logger.Warn("invalid orchestration phase transition",
			slog.String("from", string(p.phase)),
			slog.String("to", string(to)),
		)
	}
}

// fail forces the FAILED phase from any non-terminal phase.
func (p *progress) fail() {
	if !p.phase.IsTerminal() {
		p.phase = PhaseFailed
	}
}
