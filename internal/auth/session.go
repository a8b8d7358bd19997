// Package auth provides the session cookie codec and Google ID-token
// verification. The gateway only needs a stable subject id to key quota
// records; identity verification itself is delegated to the provider library.
package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/api/idtoken"
)

// SessionCookieName is the cookie carrying the serialized session user.
const SessionCookieName = "jb_session"

// sessionMaxAge is how long a session cookie stays valid.
const sessionMaxAge = 7 * 24 * time.Hour

// Static errors for auth operations.
var (
	// ErrNoSession is returned when no valid session cookie is present.
	ErrNoSession = errors.New("auth: no session")
	// ErrClientIDRequired is returned when token verification is attempted
	// without a configured Google client id.
	ErrClientIDRequired = errors.New("auth: GOOGLE_CLIENT_ID is not configured")
	// ErrInvalidToken is returned when the identity credential fails verification.
	ErrInvalidToken = errors.New("auth: invalid identity token")
)

// SessionUser is the identity stored in the session cookie.
type SessionUser struct {
	// Sub is the provider-issued subject id; the only field the core needs.
	Sub     string `json:"sub"`
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
}

// Verifier validates a Google-issued ID token and produces a SessionUser.
type Verifier struct {
	clientID string
	// validate is injectable for tests.
	validate func(ctx context.Context, token, audience string) (*idtoken.Payload, error)
}

// NewVerifier creates a Verifier for the given OAuth client id.
func NewVerifier(clientID string) *Verifier {
	return &Verifier{
		clientID: clientID,
		validate: idtoken.Validate,
	}
}

// Verify checks the credential against the configured audience and extracts
// the session identity fields.
func (v *Verifier) Verify(ctx context.Context, credential string) (SessionUser, error) {
	if v.clientID == "" {
		return SessionUser{}, ErrClientIDRequired
	}

	payload, err := v.validate(ctx, credential, v.clientID)
	if err != nil {
		return SessionUser{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if payload.Subject == "" {
		return SessionUser{}, ErrInvalidToken
	}

	user := SessionUser{Sub: payload.Subject}
	if email, ok := payload.Claims["email"].(string); ok {
		user.Email = email
	}
	if name, ok := payload.Claims["name"].(string); ok {
		user.Name = name
	}
	if picture, ok := payload.Claims["picture"].(string); ok {
		user.Picture = picture
	}

	return user, nil
}

// SetSessionCookie writes the session cookie for a verified user. The JSON
// payload is base64url-encoded to stay within cookie value grammar.
func SetSessionCookie(w http.ResponseWriter, user SessionUser) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("auth: encode session: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    base64.RawURLEncoding.EncodeToString(raw),
		Path:     "/",
		MaxAge:   int(sessionMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// ClearSessionCookie expires the session cookie.
func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}

// UserFromRequest decodes the session cookie. A cookie without a subject id
// is treated as no session.
func UserFromRequest(r *http.Request) (SessionUser, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return SessionUser{}, ErrNoSession
	}

	raw, err := base64.RawURLEncoding.DecodeString(cookie.Value)
	if err != nil {
		return SessionUser{}, ErrNoSession
	}

	var user SessionUser
	if err := json.Unmarshal(raw, &user); err != nil || user.Sub == "" {
		return SessionUser{}, ErrNoSession
	}

	return user, nil
}
