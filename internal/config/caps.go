package config

import "strings"

// ModelCaps describes the provider-side constraints of one model family.
// Bounds differ across model generations (4-8s for the standard Veo models,
// 2-60s for the long-form variant) and some versions ignore seeds entirely,
// so these are configuration, not constants baked into the orchestration.
type ModelCaps struct {
	// MinDurationSec and MaxDurationSec bound the requested clip length.
	MinDurationSec int
	MaxDurationSec int
	// FixedHighResDurationSec, when non-zero, is the only duration the model
	// accepts at the 1080p tier. Overrides any requested or clamped value.
	FixedHighResDurationSec int
	// SupportsSeed indicates whether the model honors a seed parameter.
	// When false the seed is dropped before the start call.
	SupportsSeed bool
}

// capsOverrides maps model id prefixes to non-default capability entries.
var capsOverrides = map[string]ModelCaps{
	"veo-2.0": {
		MinDurationSec: 5,
		MaxDurationSec: 8,
		SupportsSeed:   false,
	},
	"veo-3.0-longform": {
		MinDurationSec: 2,
		MaxDurationSec: 60,
		SupportsSeed:   true,
	},
}

// CapsFor returns the capability entry for a model id. Unknown models inherit
// the configured default bounds with seed support enabled.
func (c *Config) CapsFor(model string) ModelCaps {
	for prefix, caps := range capsOverrides {
		if strings.HasPrefix(model, prefix) {
			if caps.FixedHighResDurationSec == 0 {
				caps.FixedHighResDurationSec = caps.MaxDurationSec
			}
			return caps
		}
	}
	return ModelCaps{
		MinDurationSec:          c.MinDurationSec,
		MaxDurationSec:          c.MaxDurationSec,
		FixedHighResDurationSec: c.MaxDurationSec,
		SupportsSeed:            true,
	}
}
