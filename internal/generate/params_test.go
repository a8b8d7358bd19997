package generate

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jblabs/veo-gateway/internal/config"
)

const testDefaultModel = "veo-3.0-fast-generate-001"

func testCaps() func(string) config.ModelCaps {
	cfg := &config.Config{MinDurationSec: 4, MaxDurationSec: 8}
	return cfg.CapsFor
}

func TestNormalize_DurationClamping(t *testing.T) {
	tests := []struct {
		name         string
		duration     any
		wantSeconds  int
		wantDidClamp bool
	}{
		{"within bounds", 6, 6, false},
		{"below minimum", 1, 4, true},
		{"above maximum", 30, 8, true},
		{"at lower bound", 4, 4, false},
		{"at upper bound", 8, 8, false},
		{"float within bounds", 5.0, 5, false},
		{"numeric string", "7", 7, false},
		{"numeric string out of range", "99", 8, true},
		{"garbage string falls back to max", "soon", 8, false},
		{"NaN falls back to max", math.NaN(), 8, false},
		{"NaN float32 falls back to max", float32(math.NaN()), 8, false},
		{"infinite falls back to max", math.Inf(1), 8, false},
		{"nil falls back to max", nil, 8, false},
		{"bool falls back to max", true, 8, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(RawParams{Duration: tt.duration, Resolution: "720p"}, testDefaultModel, testCaps())
			assert.Equal(t, tt.wantSeconds, got.DurationSeconds)
			assert.Equal(t, tt.wantDidClamp, got.DidClamp)
			if tt.wantDidClamp {
				assert.NotEmpty(t, got.Note)
			} else {
				assert.Empty(t, got.Note)
			}
		})
	}
}

func TestNormalize_HighResForcesFixedDuration(t *testing.T) {
	tests := []struct {
		name     string
		duration any
	}{
		{"shorter than fixed", 4},
		{"longer than fixed", 30},
		{"malformed", "whenever"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(RawParams{Duration: tt.duration, Resolution: "1080p"}, testDefaultModel, testCaps())
			assert.Equal(t, 8, got.DurationSeconds)
		})
	}

	// The override note takes precedence over the clamp note and names the rule.
	got := Normalize(RawParams{Duration: 4, Resolution: "1080p"}, testDefaultModel, testCaps())
	assert.Contains(t, got.Note, "1080p")
	assert.Contains(t, got.Note, "8")
}

func TestNormalize_ModelCoercion(t *testing.T) {
	tests := []struct {
		name  string
		model any
		want  string
	}{
		{"plain string", "veo-3.0-generate-001", "veo-3.0-generate-001"},
		{"string with whitespace", "  veo-3.0-generate-001  ", "veo-3.0-generate-001"},
		{"empty string falls back", "", testDefaultModel},
		{"nil falls back", nil, testDefaultModel},
		{"object with name", map[string]any{"name": "veo-2.0-generate-001"}, "veo-2.0-generate-001"},
		{"object with nested model.name", map[string]any{"model": map[string]any{"name": "veo-3.0-generate-001"}}, "veo-3.0-generate-001"},
		{"object without name falls back", map[string]any{"id": 7}, testDefaultModel},
		{"number falls back", 42, testDefaultModel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(RawParams{Model: tt.model, Resolution: "720p"}, testDefaultModel, testCaps())
			assert.Equal(t, tt.want, got.Model)
		})
	}
}

func TestNormalize_SeedPerModelCapability(t *testing.T) {
	seed := int64(1234)

	t.Run("seed kept when supported", func(t *testing.T) {
		got := Normalize(RawParams{Seed: &seed, Resolution: "720p"}, testDefaultModel, testCaps())
		if assert.NotNil(t, got.Seed) {
			assert.Equal(t, seed, *got.Seed)
		}
	})

	t.Run("seed dropped when unsupported", func(t *testing.T) {
		got := Normalize(RawParams{Model: "veo-2.0-generate-001", Seed: &seed, Resolution: "720p"}, testDefaultModel, testCaps())
		assert.Nil(t, got.Seed)
	})

	t.Run("absent seed stays absent", func(t *testing.T) {
		got := Normalize(RawParams{Resolution: "720p"}, testDefaultModel, testCaps())
		assert.Nil(t, got.Seed)
	})
}

func TestNormalize_LongFormBounds(t *testing.T) {
	// The long-form model family carries different configured bounds.
	got := Normalize(RawParams{Model: "veo-3.0-longform-generate-001", Duration: 45, Resolution: "720p"}, testDefaultModel, testCaps())
	assert.Equal(t, 45, got.DurationSeconds)
	assert.False(t, got.DidClamp)

	got = Normalize(RawParams{Model: "veo-3.0-longform-generate-001", Duration: 90, Resolution: "720p"}, testDefaultModel, testCaps())
	assert.Equal(t, 60, got.DurationSeconds)
	assert.True(t, got.DidClamp)
}

func TestNormalize_Defaults(t *testing.T) {
	got := Normalize(RawParams{}, testDefaultModel, testCaps())
	assert.Equal(t, "16:9", got.AspectRatio)
	assert.Equal(t, "1080p", got.Resolution)
	assert.Equal(t, testDefaultModel, got.Model)
}

func TestNormalize_ClampNoteMentionsRange(t *testing.T) {
	got := Normalize(RawParams{Duration: 2, Resolution: "720p"}, testDefaultModel, testCaps())
	assert.True(t, got.DidClamp)
	assert.True(t, strings.Contains(got.Note, "4-8"), "note should mention the allowed range: %q", got.Note)
}
