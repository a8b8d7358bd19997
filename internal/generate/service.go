// Package generate orchestrates video generation against the provider:
// request validation, parameter normalization, the start call, and wait-mode
// polling of the resulting long-running operation.
package generate

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jblabs/veo-gateway/internal/config"
	"github.com/jblabs/veo-gateway/internal/extract"
	"github.com/jblabs/veo-gateway/internal/veo"
)

// minPromptLen is the minimum prompt length after trimming.
const minPromptLen = 5

// Request is the full input to one generation call.
type Request struct {
	// Prompt is the generation prompt. Required, min 5 characters trimmed.
	Prompt string
	// Model is the requested model id; tolerates object-shaped values.
	Model any
	// AspectRatio is e.g. "16:9", "9:16", "1:1".
	AspectRatio string
	// Resolution is e.g. "720p", "1080p".
	Resolution string
	// Duration is the requested seconds; tolerates any coercible value.
	Duration any
	// Seed is optional; dropped for models that ignore it.
	Seed *int64
	// WaitForResult selects blocking orchestration over fire-and-forget.
	WaitForResult bool
	// TimeoutMs, MinIntervalMs and MaxIntervalMs override the polling policy.
	TimeoutMs     int
	MinIntervalMs int
	MaxIntervalMs int
	// ReferenceImage and ReferenceVideo are opaque media passed through to
	// the provider.
	ReferenceImage *veo.InlineMedia
	ReferenceVideo *veo.InlineMedia
}

// ResultConfig echoes the effective provider configuration back to the caller.
type ResultConfig struct {
	AspectRatio     string `json:"aspectRatio"`
	Resolution      string `json:"resolution"`
	DurationSeconds int    `json:"durationSeconds"`
	Seed            *int64 `json:"seed,omitempty"`
}

// Result is the outcome of a generation call. Done discriminates a queued
// handle (fire-and-forget) from a completed artifact.
type Result struct {
	Done            bool         `json:"done"`
	URI             string       `json:"uri,omitempty"`
	OperationName   string       `json:"operationName,omitempty"`
	Model           string       `json:"model"`
	DurationSeconds int          `json:"durationSeconds"`
	Config          ResultConfig `json:"config"`
	Note            string       `json:"note,omitempty"`
}

// ClientFactory builds a provider client for a resolved credential. Injected
// so tests can supply a fake provider.
type ClientFactory func(apiKey string) (veo.Client, error)

// Service is the generation orchestrator.
type Service struct {
	cfg       *config.Config
	newClient ClientFactory
	logger    *slog.Logger
}

// NewService creates a Service. When factory is nil the real provider client
// is used with the configured base URL.
func NewService(cfg *config.Config, factory ClientFactory, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if factory == nil {
		factory = func(apiKey string) (veo.Client, error) {
			return veo.NewClient(apiKey, veo.WithBaseURL(cfg.ProviderBaseURL))
		}
	}
	return &Service{
		cfg:       cfg,
		newClient: factory,
		logger:    logger,
	}
}

// Generate runs one orchestration call. Validation and credential resolution
// fail fast before any network I/O. In fire-and-forget mode the operation
// handle is returned unpolled; in wait mode the poller drives the call to a
// terminal result.
func (s *Service) Generate(ctx context.Context, req Request) (Result, error) {
	phase := newProgress()

	if strings.TrimSpace(req.Prompt) == "" || len(strings.TrimSpace(req.Prompt)) < minPromptLen {
		phase.fail()
		return Result{}, &ValidationError{Message: "prompt is required (min 5 characters)"}
	}

	apiKey, err := s.cfg.ResolveAPIKey()
	if err != nil {
		phase.fail()
		return Result{}, &ConfigError{Err: err}
	}

	params := Normalize(RawParams{
		Model:       req.Model,
		AspectRatio: req.AspectRatio,
		Resolution:  req.Resolution,
		Duration:    req.Duration,
		Seed:        req.Seed,
	}, s.cfg.DefaultModel, s.cfg.CapsFor)

	resultCfg := ResultConfig{
		AspectRatio:     params.AspectRatio,
		Resolution:      params.Resolution,
		DurationSeconds: params.DurationSeconds,
		Seed:            params.Seed,
	}

	client, err := s.newClient(apiKey)
	if err != nil {
		phase.fail()
		return Result{}, &ConfigError{Err: err}
	}

	phase.advanceTo(PhaseStarting, s.logger)

	payload, err := client.StartGeneration(ctx, params.Model, veo.StartInput{
		Prompt:          strings.TrimSpace(req.Prompt),
		AspectRatio:     params.AspectRatio,
		Resolution:      params.Resolution,
		DurationSeconds: params.DurationSeconds,
		Seed:            params.Seed,
		ReferenceImage:  req.ReferenceImage,
		ReferenceVideo:  req.ReferenceVideo,
	})
	if err != nil {
		phase.fail()
		return Result{}, &ProviderError{Err: err}
	}

	// Some model versions return the finished artifact synchronously with no
	// operation to poll.
	if uri, ok := extract.FindURI(payload); ok {
		phase.advanceTo(PhaseCompleted, s.logger)
		return Result{
			Done:            true,
			URI:             uri,
			Model:           params.Model,
			DurationSeconds: params.DurationSeconds,
			Config:          resultCfg,
			Note:            params.Note,
		}, nil
	}

	opName, ok := extract.FindOperationName(payload)
	if !ok {
		phase.fail()
		return Result{}, &ProviderError{Message: "provider returned no operation name and no artifact"}
	}

	next := PhaseQueued
	if req.WaitForResult {
		next = PhasePolling
	}
	phase.advanceTo(next, s.logger)

	// Observability only: job creation is traced out-of-band by operation
	// name and phase.
	s.logger.Info("video generation started",
		slog.String("operation", opName),
		slog.String("model", params.Model),
		slog.String("aspect_ratio", params.AspectRatio),
		slog.String("resolution", params.Resolution),
		slog.Int("duration_seconds", params.DurationSeconds),
		slog.String("phase", string(phase.current())),
	)

	if !req.WaitForResult {
		return Result{
			Done:            false,
			OperationName:   opName,
			Model:           params.Model,
			DurationSeconds: params.DurationSeconds,
			Config:          resultCfg,
			Note:            params.Note,
		}, nil
	}

	outcome, err := PollUntilDone(ctx, client, opName, s.policy(req), s.logger)
	if err != nil {
		phase.fail()
		s.logger.Warn("video generation failed",
			slog.String("operation", opName),
			slog.String("phase", string(phase.current())),
			slog.String("error", err.Error()),
		)
		return Result{}, err
	}

	phase.advanceTo(PhaseCompleted, s.logger)
	s.logger.Info("video generation finished",
		slog.String("operation", opName),
		slog.Bool("artifact_visible", outcome.URI != ""),
		slog.Int("attempts", outcome.Attempts),
		slog.String("phase", string(phase.current())),
	)

	note := params.Note
	if outcome.URI == "" {
		if note != "" {
			note += "; "
		}
		note += "generation finished but the artifact URI is not yet visible; retry the describe endpoint shortly"
	}

	return Result{
		Done:            true,
		URI:             outcome.URI,
		OperationName:   opName,
		Model:           params.Model,
		DurationSeconds: params.DurationSeconds,
		Config:          resultCfg,
		Note:            note,
	}, nil
}

// policy merges per-request polling overrides with the configured defaults.
func (s *Service) policy(req Request) Policy {
	p := Policy{
		Timeout:     time.Duration(s.cfg.PollTimeoutMs) * time.Millisecond,
		MinInterval: time.Duration(s.cfg.PollMinIntervalMs) * time.Millisecond,
		MaxInterval: time.Duration(s.cfg.PollMaxIntervalMs) * time.Millisecond,
	}
	if req.TimeoutMs > 0 {
		p.Timeout = time.Duration(req.TimeoutMs) * time.Millisecond
	}
	if req.MinIntervalMs > 0 {
		p.MinInterval = time.Duration(req.MinIntervalMs) * time.Millisecond
	}
	if req.MaxIntervalMs > 0 {
		p.MaxInterval = time.Duration(req.MaxIntervalMs) * time.Millisecond
	}
	if p.MaxInterval < p.MinInterval {
		p.MaxInterval = p.MinInterval
	}
	return p
}

// Describe queries an operation by name and augments the raw payload with a
// normalized top-level videoUri when one can be extracted.
func (s *Service) Describe(ctx context.Context, name string) (map[string]any, error) {
	if !strings.HasPrefix(name, "models/") {
		return nil, &ValidationError{Message: "missing or invalid 'name': expected 'models/.../operations/ID'"}
	}

	apiKey, err := s.cfg.ResolveAPIKey()
	if err != nil {
		return nil, &ConfigError{Err: err}
	}

	client, err := s.newClient(apiKey)
	if err != nil {
		return nil, &ConfigError{Err: err}
	}

	op, err := client.GetOperation(ctx, name)
	if err != nil {
		return nil, &ProviderError{Err: err}
	}

	payload := op.Raw
	if payload == nil {
		payload = map[string]any{}
	}
	if uri, ok := extract.FindURI(op.Response); ok {
		payload["videoUri"] = uri
	} else {
		payload["videoUri"] = nil
	}

	return payload, nil
}
