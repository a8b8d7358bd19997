package veo

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Static errors for Veo client operations.
var (
	// ErrAPIKeyRequired is returned when no API key is provided.
	ErrAPIKeyRequired = errors.New("veo: API key is required")
	// ErrModelRequired is returned when the model id is not provided.
	ErrModelRequired = errors.New("veo: model id is required")
	// ErrOperationNameRequired is returned when the operation name is not provided.
	ErrOperationNameRequired = errors.New("veo: operation name is required")
	// ErrServerError is returned when the provider returns a 5xx status code.
	ErrServerError = errors.New("veo: server error")
	// ErrRateLimited is returned when the provider returns a 429 status code.
	ErrRateLimited = errors.New("veo: rate limited")
	// ErrRequestFailed is returned when the request fails with a non-2xx status code.
	ErrRequestFailed = errors.New("veo: request failed")
)

// Client defines the interface for talking to the video generation provider.
type Client interface {
	// StartGeneration submits a generation job and returns the raw decoded
	// response payload. Depending on the model it contains an operation name
	// or, for synchronous models, the finished artifact.
	StartGeneration(ctx context.Context, model string, input StartInput) (map[string]any, error)

	// GetOperation queries a long-running operation by name.
	GetOperation(ctx context.Context, name string) (Operation, error)

	// Download fetches an artifact URI with provider auth attached. The
	// caller owns the returned response body.
	Download(ctx context.Context, uri string) (*http.Response, error)
}

// HTTPClient is the HTTP implementation of Client.
type HTTPClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// ClientOption configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(hc *HTTPClient) {
		hc.httpClient = c
	}
}

// WithBaseURL sets a custom base URL for the provider API.
func WithBaseURL(u string) ClientOption {
	return func(hc *HTTPClient) {
		hc.baseURL = strings.TrimRight(u, "/")
	}
}

// NewClient creates a new provider HTTP client. The API key is required; it
// is sent in the x-goog-api-key request header.
func NewClient(apiKey string, opts ...ClientOption) (*HTTPClient, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyRequired
	}

	c := &HTTPClient{
		apiKey:     apiKey,
		baseURL:    "https://generativelanguage.googleapis.com/v1beta",
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// StartGeneration submits a generation job via models/{model}:predictLongRunning.
func (c *HTTPClient) StartGeneration(ctx context.Context, model string, input StartInput) (map[string]any, error) {
	if model == "" {
		return nil, ErrModelRequired
	}

	inst := instance{Prompt: input.Prompt}
	if input.ReferenceImage != nil {
		inst.Image = &inlineBlob{
			BytesBase64Encoded: base64.StdEncoding.EncodeToString(input.ReferenceImage.Data),
			MIMEType:           input.ReferenceImage.MIMEType,
		}
	}
	if input.ReferenceVideo != nil {
		inst.Video = &inlineBlob{
			BytesBase64Encoded: base64.StdEncoding.EncodeToString(input.ReferenceVideo.Data),
			MIMEType:           input.ReferenceVideo.MIMEType,
		}
	}

	reqBody := startRequest{
		Instances: []instance{inst},
		Parameters: parameters{
			AspectRatio:     input.AspectRatio,
			Resolution:      input.Resolution,
			DurationSeconds: input.DurationSeconds,
			Seed:            input.Seed,
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("veo: marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:predictLongRunning", c.baseURL, url.PathEscape(model))

	var payload map[string]any
	if err := c.doRequest(ctx, http.MethodPost, endpoint, bodyBytes, &payload); err != nil {
		return nil, err
	}

	return payload, nil
}

// GetOperation queries a long-running operation by resource name.
func (c *HTTPClient) GetOperation(ctx context.Context, name string) (Operation, error) {
	if name == "" {
		return Operation{}, ErrOperationNameRequired
	}

	endpoint := fmt.Sprintf("%s/%s", c.baseURL, name)

	var payload map[string]any
	if err := c.doRequest(ctx, http.MethodGet, endpoint, nil, &payload); err != nil {
		return Operation{}, err
	}

	return decodeOperation(payload), nil
}

// Download fetches an artifact URI with the API key header attached.
func (c *HTTPClient) Download(ctx context.Context, uri string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("veo: create download request: %w", err)
	}
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransientError{err: fmt.Errorf("veo: download failed: %w", err)}
	}
	return resp, nil
}

// doRequest performs a single HTTP request and decodes the JSON response.
// 429 and 5xx responses and transport failures are wrapped as TransientError;
// the poller decides whether and how to retry them.
func (c *HTTPClient) doRequest(ctx context.Context, method, endpoint string, body []byte, result *map[string]any) error {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return fmt.Errorf("veo: create request: %w", err)
	}

	req.Header.Set("x-goog-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransientError{err: fmt.Errorf("veo: request failed: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransientError{err: fmt.Errorf("veo: read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := errorMessage(respBody)
		if resp.StatusCode >= 500 {
			return &TransientError{err: fmt.Errorf("%w %d: %s", ErrServerError, resp.StatusCode, msg)}
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			return &TransientError{err: fmt.Errorf("%w: %s", ErrRateLimited, msg)}
		}
		return fmt.Errorf("%w with status %d: %s", ErrRequestFailed, resp.StatusCode, msg)
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("veo: unmarshal response: %w", err)
		}
	}

	return nil
}

// decodeOperation maps a raw operation payload into the normalized Operation.
func decodeOperation(payload map[string]any) Operation {
	op := Operation{Raw: payload}

	if name, ok := payload["name"].(string); ok {
		op.Name = name
	}
	if done, ok := payload["done"].(bool); ok {
		op.Done = done
	}
	op.Response = payload["response"]

	if rawErr, ok := payload["error"].(map[string]any); ok {
		opErr := &OpError{}
		if msg, ok := rawErr["message"].(string); ok {
			opErr.Message = msg
		}
		if status, ok := rawErr["status"].(string); ok {
			opErr.Status = status
		}
		if code, ok := rawErr["code"].(float64); ok {
			opErr.Code = int(code)
		}
		op.Error = opErr
	}

	return op
}

// errorMessage pulls the provider's error message out of an error body,
// falling back to the raw body when it is not the standard envelope.
func errorMessage(body []byte) string {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		if envelope.Error.Status != "" {
			return envelope.Error.Status + ": " + envelope.Error.Message
		}
		return envelope.Error.Message
	}
	return string(body)
}

// TransientError wraps provider failures that are safe to retry: rate limits,
// 5xx responses and transport-level errors.
type TransientError struct {
	err error
}

// NewTransientError marks err as retryable.
func NewTransientError(err error) *TransientError {
	return &TransientError{err: err}
}

func (e *TransientError) Error() string {
	return e.err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.err
}

// IsTransient returns true if the error should be retried on the backoff
// schedule rather than propagated.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// Compile-time check that HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)
