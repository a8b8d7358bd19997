// Package veo provides an HTTP client for the Veo video generation API
// exposed through the Generative Language endpoint.
package veo

// InlineMedia is an opaque binary payload (reference image or base video)
// forwarded to the provider alongside the prompt. The gateway does not
// interpret it.
type InlineMedia struct {
	// MIMEType is the media content type (e.g. "image/png", "video/mp4").
	MIMEType string
	// Data is the raw media bytes.
	Data []byte
}

// StartInput contains the normalized parameters for a start-generation call.
type StartInput struct {
	// Prompt is the validated generation prompt.
	Prompt string
	// AspectRatio is e.g. "16:9", "9:16" or "1:1". The provider validates it.
	AspectRatio string
	// Resolution is e.g. "720p" or "1080p".
	Resolution string
	// DurationSeconds is the clip length after clamping.
	DurationSeconds int
	// Seed is forwarded only when non-nil; models without seed support
	// receive no seed field at all.
	Seed *int64
	// ReferenceImage is an optional first-frame image.
	ReferenceImage *InlineMedia
	// ReferenceVideo is an optional base video.
	ReferenceVideo *InlineMedia
}

// Operation is the normalized view of a get-operation response. Raw keeps the
// full decoded payload because the response shape under "response" varies by
// model version and is consumed by the extract package.
type Operation struct {
	// Name is the operation resource name.
	Name string
	// Done reports whether the provider considers the job terminal.
	Done bool
	// Response is the decoded "response" field, if any.
	Response any
	// Error holds the provider-reported failure, if any.
	Error *OpError
	// Raw is the complete decoded payload.
	Raw map[string]any
}

// OpError is the error object embedded in a failed operation.
type OpError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// instance is one entry of the "instances" array in a predictLongRunning call.
type instance struct {
	Prompt string      `json:"prompt"`
	Image  *inlineBlob `json:"image,omitempty"`
	Video  *inlineBlob `json:"video,omitempty"`
}

// inlineBlob carries base64 media on the wire.
type inlineBlob struct {
	BytesBase64Encoded string `json:"bytesBase64Encoded"`
	MIMEType           string `json:"mimeType"`
}

// parameters is the "parameters" object of a predictLongRunning call.
type parameters struct {
	AspectRatio     string `json:"aspectRatio,omitempty"`
	Resolution      string `json:"resolution,omitempty"`
	DurationSeconds int    `json:"durationSeconds,omitempty"`
	Seed            *int64 `json:"seed,omitempty"`
}

// startRequest is the request body for models/{model}:predictLongRunning.
type startRequest struct {
	Instances  []instance `json:"instances"`
	Parameters parameters `json:"parameters"`
}
