// Package server provides the HTTP surface of the gateway. It includes
// handlers, middleware, routes, and DTOs separated from domain types.
package server

// GenerateRequest is the HTTP request body for starting a generation.
// Model and DurationSeconds are typed any because clients send objects and
// strings where scalars belong; the normalizer owns coercion.
type GenerateRequest struct {
	// Prompt is the generation prompt.
	Prompt string `json:"prompt" validate:"required"`
	// Model is the model id; an object with a nested name field is tolerated.
	Model any `json:"model,omitempty"`
	// AspectRatio is free-form; the provider validates it.
	AspectRatio string `json:"aspectRatio,omitempty" validate:"omitempty,max=8"`
	// Resolution is e.g. "720p" or "1080p".
	Resolution string `json:"resolution,omitempty" validate:"omitempty,max=8"`
	// DurationSeconds is the requested clip length.
	DurationSeconds any `json:"durationSeconds,omitempty"`
	// Seed is optional; ignored by models without seed support.
	Seed *int64 `json:"seed,omitempty"`
	// WaitForResult selects blocking mode over fire-and-forget.
	WaitForResult bool `json:"waitForResult,omitempty"`
	// TimeoutMs, MinIntervalMs, MaxIntervalMs override the polling policy.
	TimeoutMs     int `json:"timeoutMs,omitempty" validate:"omitempty,min=0,max=3600000"`
	MinIntervalMs int `json:"minIntervalMs,omitempty" validate:"omitempty,min=0,max=600000"`
	MaxIntervalMs int `json:"maxIntervalMs,omitempty" validate:"omitempty,min=0,max=600000"`
}

// AuthRequest is the HTTP request body for the Google sign-in exchange.
type AuthRequest struct {
	// Credential is the Google-issued ID token.
	Credential string `json:"credential" validate:"required"`
}

// SessionResponse is the safe subset of the session returned to the browser.
type SessionResponse struct {
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Picture string `json:"picture,omitempty"`
}

// QuotaExceededResponse is returned when the daily limit is spent.
type QuotaExceededResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Remaining int    `json:"remaining"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	// HasKey reports whether any provider credential source is set.
	HasKey bool `json:"hasKey"`
	// KeysFound lists the names of the set credential sources; never values.
	KeysFound []string `json:"keysFound"`
}

// EnvCheckResponse reports credential presence for deploy debugging.
type EnvCheckResponse struct {
	Exists bool `json:"exists"`
	Length int  `json:"length"`
}
