package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearCredentialEnv(t *testing.T) {
	t.Helper()
	for _, name := range APIKeySources {
		t.Setenv(name, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearCredentialEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "veo-3.0-fast-generate-001", cfg.DefaultModel)
	assert.Equal(t, "https://generativelanguage.googleapis.com/v1beta", cfg.ProviderBaseURL)
	assert.Equal(t, 4, cfg.MinDurationSec)
	assert.Equal(t, 8, cfg.MaxDurationSec)
	assert.Equal(t, 600000, cfg.PollTimeoutMs)
	assert.Equal(t, 2000, cfg.PollMinIntervalMs)
	assert.Equal(t, 15000, cfg.PollMaxIntervalMs)
	assert.Equal(t, 3, cfg.DailyLimit)
	assert.False(t, cfg.RedisEnabled())
	assert.False(t, cfg.S3Enabled())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("VEO_DEFAULT_MODEL", "veo-2.0-generate-001")
	t.Setenv("DAILY_LIMIT", "10")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "veo-2.0-generate-001", cfg.DefaultModel)
	assert.Equal(t, 10, cfg.DailyLimit)
	assert.True(t, cfg.RedisEnabled())
}

func TestResolveAPIKey_Priority(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "primary wins over all",
			cfg:  Config{GeminiAPIKey: "a", GoogleGenAIAPIKey: "b", FallbackGeminiKey: "c"},
			want: "a",
		},
		{
			name: "second source",
			cfg:  Config{GoogleGenAIAPIKey: "b", FallbackGeminiKey: "c"},
			want: "b",
		},
		{
			name: "fallback source",
			cfg:  Config{FallbackGeminiKey: "c"},
			want: "c",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cfg.ResolveAPIKey()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveAPIKey_NoneSet(t *testing.T) {
	cfg := Config{}
	_, err := cfg.ResolveAPIKey()
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestAPIKeysFound(t *testing.T) {
	cfg := Config{GeminiAPIKey: "a", FallbackGeminiKey: "c"}
	assert.Equal(t, []string{"GEMINI_API_KEY", "_GEMINI_API_KEY"}, cfg.APIKeysFound())

	assert.Empty(t, (&Config{}).APIKeysFound())
}

func TestCapsFor(t *testing.T) {
	cfg := &Config{MinDurationSec: 4, MaxDurationSec: 8}

	t.Run("default model family", func(t *testing.T) {
		caps := cfg.CapsFor("veo-3.0-fast-generate-001")
		assert.Equal(t, 4, caps.MinDurationSec)
		assert.Equal(t, 8, caps.MaxDurationSec)
		assert.Equal(t, 8, caps.FixedHighResDurationSec)
		assert.True(t, caps.SupportsSeed)
	})

	t.Run("previous generation ignores seed", func(t *testing.T) {
		caps := cfg.CapsFor("veo-2.0-generate-001")
		assert.Equal(t, 5, caps.MinDurationSec)
		assert.Equal(t, 8, caps.MaxDurationSec)
		assert.False(t, caps.SupportsSeed)
	})

	t.Run("long form bounds", func(t *testing.T) {
		caps := cfg.CapsFor("veo-3.0-longform-generate-001")
		assert.Equal(t, 2, caps.MinDurationSec)
		assert.Equal(t, 60, caps.MaxDurationSec)
		assert.True(t, caps.SupportsSeed)
	})

	t.Run("unknown model inherits config bounds", func(t *testing.T) {
		caps := cfg.CapsFor("experimental-model")
		assert.Equal(t, 4, caps.MinDurationSec)
		assert.Equal(t, 8, caps.MaxDurationSec)
	})
}

func TestString_MasksSecrets(t *testing.T) {
	cfg := &Config{
		Port:               8080,
		GeminiAPIKey:       "super-secret",
		AWSSecretAccessKey: "aws-secret",
	}

	s := cfg.String()
	assert.NotContains(t, s, "super-secret")
	assert.NotContains(t, s, "aws-secret")
}
