package generate

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/jblabs/veo-gateway/internal/config"
)

// RawParams is the unvalidated parameter set as supplied by the client.
// Model and Duration are typed any because clients have been observed sending
// objects where strings belong and strings where numbers belong; coercion is
// the normalizer's job, never the transport's.
type RawParams struct {
	Model       any
	AspectRatio string
	Resolution  string
	Duration    any
	Seed        *int64
}

// Params is the normalized parameter set sent to the provider.
type Params struct {
	// Model is always a plain model id string after coercion.
	Model       string
	AspectRatio string
	Resolution  string
	// DurationSeconds is the effective clip length after clamping and any
	// resolution-tier override.
	DurationSeconds int
	// RequestedDuration is what the caller asked for, kept for the note.
	RequestedDuration float64
	// Seed is nil when absent or when the model ignores seeds.
	Seed *int64
	// DidClamp reports whether the requested duration fell outside bounds.
	DidClamp bool
	// Note is advisory text for the caller when input was silently adjusted.
	Note string
}

// Normalize coerces arbitrary client parameters into valid provider
// parameters for the given model capabilities. It never fails: malformed
// values are replaced with defaults.
func Normalize(raw RawParams, defaultModel string, capsFor func(string) config.ModelCaps) Params {
	model := coerceModelID(raw.Model, defaultModel)
	caps := capsFor(model)

	aspect := raw.AspectRatio
	if aspect == "" {
		aspect = "16:9"
	}
	resolution := raw.Resolution
	if resolution == "" {
		resolution = "1080p"
	}

	requested := coerceNumber(raw.Duration, float64(caps.MaxDurationSec))
	clamped := math.Max(float64(caps.MinDurationSec), math.Min(float64(caps.MaxDurationSec), requested))
	didClamp := requested != clamped

	effective := int(math.Round(clamped))

	var note string
	if didClamp {
		note = fmt.Sprintf("durationSeconds adjusted from %s to %d (model allows %d-%ds)",
			formatSeconds(requested), effective, caps.MinDurationSec, caps.MaxDurationSec)
	}

	// 1080p clips have a fixed provider-side duration. This is a documented
	// compatibility rule and takes precedence over clamping.
	if isHighResTier(resolution) && caps.FixedHighResDurationSec > 0 && effective != caps.FixedHighResDurationSec {
		effective = caps.FixedHighResDurationSec
		note = fmt.Sprintf("1080p output requires a fixed %ds clip; durationSeconds set to %d (requested %s)",
			caps.FixedHighResDurationSec, effective, formatSeconds(requested))
	}

	seed := raw.Seed
	if !caps.SupportsSeed {
		seed = nil
	}

	return Params{
		Model:             model,
		AspectRatio:       aspect,
		Resolution:        resolution,
		DurationSeconds:   effective,
		RequestedDuration: requested,
		Seed:              seed,
		DidClamp:          didClamp,
		Note:              note,
	}
}

// isHighResTier reports whether the resolution names the highest-fidelity
// tier with a fixed duration requirement.
func isHighResTier(resolution string) bool {
	return strings.EqualFold(resolution, "1080p")
}

// coerceModelID accepts a model id string directly; structured values are
// searched for a name-like field; anything else falls back to the default.
// The provider must never receive a non-string model id.
func coerceModelID(v any, fallback string) string {
	switch t := v.(type) {
	case string:
		if strings.TrimSpace(t) != "" {
			return strings.TrimSpace(t)
		}
	case map[string]any:
		if name, ok := t["name"].(string); ok && name != "" {
			return name
		}
		if nested, ok := t["model"].(map[string]any); ok {
			if name, ok := nested["name"].(string); ok && name != "" {
				return name
			}
		}
	}
	return fallback
}

// coerceNumber converts any value convertible to a finite number; otherwise
// the fallback is substituted. It never fails on malformed input.
func coerceNumber(v any, fallback float64) float64 {
	switch t := v.(type) {
	case float64:
		if !math.IsNaN(t) && !math.IsInf(t, 0) {
			return t
		}
	case float32:
		f := float64(t)
		if !math.IsNaN(f) && !math.IsInf(f, 0) {
			return f
		}
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return f
		}
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return f
		}
	}
	return fallback
}

// formatSeconds renders a duration value without a trailing ".0".
func formatSeconds(f float64) string {
	if f == math.Trunc(f) {
		return strconv.Itoa(int(f)) + "s"
	}
	return strconv.FormatFloat(f, 'f', -1, 64) + "s"
}
