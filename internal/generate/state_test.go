package generate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhaseTransitions(t *testing.T) {
	tests := []struct {
		name  string
		from  Phase
		to    Phase
		valid bool
	}{
		{"validating to starting", PhaseValidating, PhaseStarting, true},
		{"validating to failed", PhaseValidating, PhaseFailed, true},
		{"validating to polling", PhaseValidating, PhasePolling, false},
		{"starting to queued", PhaseStarting, PhaseQueued, true},
		{"starting to polling", PhaseStarting, PhasePolling, true},
		{"starting to completed", PhaseStarting, PhaseCompleted, true},
		{"polling to completed", PhasePolling, PhaseCompleted, true},
		{"polling to queued", PhasePolling, PhaseQueued, false},
		{"completed is terminal", PhaseCompleted, PhaseFailed, false},
		{"queued is terminal", PhaseQueued, PhasePolling, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &progress{phase: tt.from}
			err := p.advance(tt.to)
			if tt.valid {
				require.NoError(t, err)
				assert.Equal(t, tt.to, p.phase)
			} else {
				assert.ErrorIs(t, err, ErrInvalidTransition)
				assert.Equal(t, tt.from, p.phase)
			}
		})
	}
}

func TestPhaseIsTerminal(t *testing.T) {
	assert.True(t, PhaseQueued.IsTerminal())
	assert.True(t, PhaseCompleted.IsTerminal())
	assert.True(t, PhaseFailed.IsTerminal())
	assert.False(t, PhaseValidating.IsTerminal())
	assert.False(t, PhaseStarting.IsTerminal())
	assert.False(t, PhasePolling.IsTerminal())
}

func TestProgressFail(t *testing.T) {
	p := newProgress()
	p.fail()
	assert.Equal(t, PhaseFailed, p.phase)

	// Terminal phases are not overwritten.
	p = &progress{phase: PhaseCompleted}
	p.fail()
	assert.Equal(t, PhaseCompleted, p.phase)
}
