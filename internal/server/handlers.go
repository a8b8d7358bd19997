package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jblabs/veo-gateway/internal/auth"
	"github.com/jblabs/veo-gateway/internal/config"
	"github.com/jblabs/veo-gateway/internal/generate"
	"github.com/jblabs/veo-gateway/internal/quota"
	"github.com/jblabs/veo-gateway/internal/storage"
	"github.com/jblabs/veo-gateway/internal/veo"
)

// maxUploadBytes bounds multipart reference media uploads.
const maxUploadBytes = 64 << 20

// defaultDownloadName is used when the download proxy gets no filename.
const defaultDownloadName = "veo_result.mp4"

// archiveLocationTrailer carries the archive location back to the client. The
// location is only known after the stream has been consumed, so it has to be
// a trailer, not a header.
const archiveLocationTrailer = "X-Archive-Location"

// Handlers contains the HTTP handlers for the gateway.
type Handlers struct {
	cfg       *config.Config
	service   *generate.Service
	counter   quota.Counter
	verifier  *auth.Verifier
	archiver  storage.Archiver
	provider  veo.Client // nil when no provider credential is configured
	validator *validator.Validate
	logger    *slog.Logger
}

// NewHandlers creates a new Handlers instance. provider and archiver may be
// nil; the download proxy then reports a configuration error / skips
// archiving respectively.
func NewHandlers(
	cfg *config.Config,
	service *generate.Service,
	counter quota.Counter,
	verifier *auth.Verifier,
	archiver storage.Archiver,
	provider veo.Client,
	logger *slog.Logger,
) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		cfg:       cfg,
		service:   service,
		counter:   counter,
		verifier:  verifier,
		archiver:  archiver,
		provider:  provider,
		validator: validator.New(),
		logger:    logger,
	}
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	keys := h.cfg.APIKeysFound()
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		HasKey:    len(keys) > 0,
		KeysFound: keys,
	})
}

// EnvCheck handles GET /api/env-check requests. It reports only whether a
// credential resolves and its length, never the value.
func (h *Handlers) EnvCheck(w http.ResponseWriter, r *http.Request) {
	key, err := h.cfg.ResolveAPIKey()
	status := http.StatusOK
	if err != nil {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, EnvCheckResponse{
		Exists: err == nil,
		Length: len(key),
	})
}

// Generate handles POST /api/generate requests carrying either a JSON body or
// a multipart form with optional reference media attached.
func (h *Handlers) Generate(w http.ResponseWriter, r *http.Request) {
	req, media, err := h.decodeGenerateRequest(r)
	if err != nil {
		h.logger.Warn("failed to decode generate request",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_REQUEST")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		h.logger.Warn("generate request validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	// Admission gate: one daily counter slot per request, before any
	// provider work happens.
	userID := h.quotaSubject(r)
	decision, err := h.counter.Consume(r.Context(), userID, h.cfg.DailyLimit)
	if err != nil {
		h.logger.Error("quota check failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "quota check failed", "QUOTA_ERROR")
		return
	}
	if !decision.OK {
		writeJSON(w, http.StatusTooManyRequests, QuotaExceededResponse{
			Error:     "daily generation limit reached",
			Code:      "QUOTA_EXCEEDED",
			Remaining: 0,
		})
		return
	}

	result, err := h.service.Generate(r.Context(), generate.Request{
		Prompt:         req.Prompt,
		Model:          req.Model,
		AspectRatio:    req.AspectRatio,
		Resolution:     req.Resolution,
		Duration:       req.DurationSeconds,
		Seed:           req.Seed,
		WaitForResult:  req.WaitForResult,
		TimeoutMs:      req.TimeoutMs,
		MinIntervalMs:  req.MinIntervalMs,
		MaxIntervalMs:  req.MaxIntervalMs,
		ReferenceImage: media.image,
		ReferenceVideo: media.video,
	})
	if err != nil {
		status, code := errorStatus(err)
		h.logger.Error("video generation failed",
			slog.String("user_id", userID),
			slog.String("code", code),
			slog.String("error", err.Error()),
		)
		writeError(w, status, err.Error(), code)
		return
	}

	status := http.StatusAccepted
	if result.Done && result.URI != "" {
		status = http.StatusOK
	}
	writeJSON(w, status, result)
}

// DescribeOperation handles GET /api/generate?name=models/.../operations/ID.
// The response is the raw operation payload plus a normalized top-level
// videoUri.
func (h *Handlers) DescribeOperation(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")

	payload, err := h.service.Describe(r.Context(), name)
	if err != nil {
		status, code := errorStatus(err)
		writeError(w, status, err.Error(), code)
		return
	}

	writeJSON(w, http.StatusOK, payload)
}

// Download handles GET /api/download?uri=...&name=... requests. It streams
// the provider artifact to the client with an attachment filename, optionally
// teeing a copy into the archive store when archive=1.
func (h *Handlers) Download(w http.ResponseWriter, r *http.Request) {
	uri := r.URL.Query().Get("uri")
	if uri == "" {
		writeError(w, http.StatusBadRequest, "missing 'uri' parameter", "MISSING_URI")
		return
	}
	if !strings.HasPrefix(uri, "http://") && !strings.HasPrefix(uri, "https://") {
		writeError(w, http.StatusBadRequest, "'uri' must be an http(s) URL", "INVALID_URI")
		return
	}

	if h.provider == nil {
		writeError(w, http.StatusInternalServerError, config.ErrNoAPIKey.Error(), "CONFIG_ERROR")
		return
	}

	name := r.URL.Query().Get("name")
	if name == "" {
		name = defaultDownloadName
	}

	resp, err := h.provider.Download(r.Context(), uri)
	if err != nil {
		h.logger.Error("artifact download failed",
			slog.String("uri", uri),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadGateway, "failed to fetch artifact", "DOWNLOAD_FAILED")
		return
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Forward the upstream failure as-is.
		w.Header().Set("Content-Type", resp.Header.Get("Content-Type"))
		w.WriteHeader(resp.StatusCode)
		_, _ = io.Copy(w, resp.Body)
		return
	}

	archiving := r.URL.Query().Get("archive") == "1" && h.archiver != nil

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "video/mp4"
	}
	w.Header().Set("Content-Type", contentType)
	// A declared Content-Length suppresses chunked encoding and with it the
	// archive trailer, so it is only forwarded on plain downloads.
	if length := resp.Header.Get("Content-Length"); length != "" && !archiving {
		w.Header().Set("Content-Length", length)
	}
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))

	if archiving {
		// Declared before the body starts streaming; filled in below once
		// the archiver reports where the copy landed.
		w.Header().Set("Trailer", archiveLocationTrailer)

		// The archiver drives the read; every chunk it consumes is also
		// written out to the client.
		location, err := h.archiver.Archive(r.Context(), name, io.TeeReader(resp.Body, w))
		if err != nil {
			h.logger.Error("artifact archive failed",
				slog.String("name", name),
				slog.String("error", err.Error()),
			)
			return
		}
		w.Header().Set(archiveLocationTrailer, location)
		h.logger.Info("artifact archived",
			slog.String("name", name),
			slog.String("location", location),
		)
		return
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		h.logger.Warn("artifact stream interrupted",
			slog.String("uri", uri),
			slog.String("error", err.Error()),
		)
	}
}

// AuthGoogle handles POST /api/auth/google requests: verifies the Google ID
// token and establishes the session cookie.
func (h *Handlers) AuthGoogle(w http.ResponseWriter, r *http.Request) {
	var req AuthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "missing credential", "VALIDATION_ERROR")
		return
	}

	user, err := h.verifier.Verify(r.Context(), req.Credential)
	if err != nil {
		if errors.Is(err, auth.ErrClientIDRequired) {
			writeError(w, http.StatusInternalServerError, err.Error(), "CONFIG_ERROR")
			return
		}
		h.logger.Warn("identity token verification failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusUnauthorized, "invalid token", "INVALID_TOKEN")
		return
	}

	if err := auth.SetSessionCookie(w, user); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to establish session", "SESSION_ERROR")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// AuthLogout handles POST /api/auth/logout requests by expiring the session
// cookie. Always succeeds, signed in or not.
func (h *Handlers) AuthLogout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// AuthSession handles GET /api/auth/session requests, returning the safe
// session fields or JSON null when no session exists.
func (h *Handlers) AuthSession(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromRequest(r)
	if err != nil {
		writeJSON(w, http.StatusOK, nil)
		return
	}

	writeJSON(w, http.StatusOK, SessionResponse{
		Name:    user.Name,
		Email:   user.Email,
		Picture: user.Picture,
	})
}

// referenceMedia carries the optional uploads of a multipart generate request.
type referenceMedia struct {
	image *veo.InlineMedia
	video *veo.InlineMedia
}

// decodeGenerateRequest reads a GenerateRequest from either a JSON body or a
// multipart form. Multipart carries the same fields as form values plus
// optional "image" and "video" file parts.
func (h *Handlers) decodeGenerateRequest(r *http.Request) (GenerateRequest, referenceMedia, error) {
	contentType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if contentType != "multipart/form-data" {
		var req GenerateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return GenerateRequest{}, referenceMedia{}, errors.New("invalid JSON body")
		}
		return req, referenceMedia{}, nil
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return GenerateRequest{}, referenceMedia{}, errors.New("invalid multipart form")
	}

	req := GenerateRequest{
		Prompt:      r.FormValue("prompt"),
		AspectRatio: r.FormValue("aspectRatio"),
		Resolution:  r.FormValue("resolution"),
	}
	if model := r.FormValue("model"); model != "" {
		req.Model = model
	}
	if duration := r.FormValue("durationSeconds"); duration != "" {
		req.DurationSeconds = duration
	}
	if seed := r.FormValue("seed"); seed != "" {
		if parsed, err := strconv.ParseInt(seed, 10, 64); err == nil {
			req.Seed = &parsed
		}
	}
	if wait := r.FormValue("waitForResult"); wait != "" {
		req.WaitForResult, _ = strconv.ParseBool(wait)
	}
	req.TimeoutMs = formInt(r, "timeoutMs")
	req.MinIntervalMs = formInt(r, "minIntervalMs")
	req.MaxIntervalMs = formInt(r, "maxIntervalMs")

	var media referenceMedia
	var err error
	if media.image, err = formFile(r, "image"); err != nil {
		return GenerateRequest{}, referenceMedia{}, err
	}
	if media.video, err = formFile(r, "video"); err != nil {
		return GenerateRequest{}, referenceMedia{}, err
	}

	return req, media, nil
}

// formFile reads one optional multipart file part into an InlineMedia.
func formFile(r *http.Request, field string) (*veo.InlineMedia, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.New("invalid '" + field + "' file part")
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		return nil, errors.New("failed to read '" + field + "' file part")
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}

	return &veo.InlineMedia{MIMEType: mimeType, Data: data}, nil
}

func formInt(r *http.Request, field string) int {
	v, err := strconv.Atoi(r.FormValue(field))
	if err != nil {
		return 0
	}
	return v
}

// quotaSubject keys the admission gate: the session subject when signed in,
// otherwise the client address.
func (h *Handlers) quotaSubject(r *http.Request) string {
	if user, err := auth.UserFromRequest(r); err == nil {
		return user.Sub
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "anon:" + host
}

// errorStatus maps the generation error taxonomy to transport status codes.
func errorStatus(err error) (int, string) {
	var validationErr *generate.ValidationError
	if errors.As(err, &validationErr) {
		return http.StatusBadRequest, "VALIDATION_ERROR"
	}

	var configErr *generate.ConfigError
	if errors.As(err, &configErr) {
		return http.StatusInternalServerError, "CONFIG_ERROR"
	}

	var timeoutErr *generate.TimeoutError
	if errors.As(err, &timeoutErr) {
		return http.StatusGatewayTimeout, "TIMEOUT"
	}

	var providerErr *generate.ProviderError
	if errors.As(err, &providerErr) {
		if providerErr.ClientFault() {
			return http.StatusBadRequest, "PROVIDER_REJECTED"
		}
		return http.StatusBadGateway, "PROVIDER_ERROR"
	}

	return http.StatusInternalServerError, "INTERNAL_ERROR"
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
