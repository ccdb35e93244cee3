// Package token exchanges a long-lived service key for a short-lived
// realtime session credential.
//
// The credential-issuing service lives next to the diary store and holds
// the only copy of the long-lived key. A credential is single-use: one
// Acquire per session start, never cached, never retried.
//
// The issuing service's response encoding has changed across versions, so
// unwrapping walks every documented historical shape before giving up.
package token

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
)

// Sentinel errors.
var (
	// ErrUnavailable indicates the issuing service could not be reached or
	// refused the request. Fatal to session start; callers must not retry
	// automatically.
	ErrUnavailable = errors.New("token: credential service unavailable")

	// ErrMalformedResponse indicates the issuing service answered with a
	// payload matching none of the known response shapes.
	ErrMalformedResponse = errors.New("token: malformed credential response")
)

// Credential is a short-lived, single-use session secret.
type Credential struct {
	// Secret is the opaque session secret presented to the remote peer.
	Secret string

	// ExpiresAt is the instant after which the secret is rejected.
	ExpiresAt time.Time
}

// Expired reports whether the credential is past its expiry.
func (c *Credential) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

// Broker issues ephemeral session credentials.
type Broker interface {
	// Acquire requests one fresh credential. The credential must be
	// consumed exactly once and never reused across sessions.
	Acquire(ctx context.Context) (*Credential, error)
}

// HTTPBroker acquires credentials from an HTTP issuing service.
type HTTPBroker struct {
	url    string
	apiKey string
	hint   string
	client *http.Client
}

// Option configures an HTTPBroker.
type Option func(*HTTPBroker)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(b *HTTPBroker) { b.client = c }
}

// WithHint sets the session hint forwarded to the issuing service
// (e.g. a voice or model preference).
func WithHint(hint string) Option {
	return func(b *HTTPBroker) { b.hint = hint }
}

// NewHTTPBroker creates a broker that POSTs to url authenticating with
// apiKey via the X-API-Key header.
func NewHTTPBroker(url, apiKey string, opts ...Option) *HTTPBroker {
	b := &HTTPBroker{
		url:    url,
		apiKey: apiKey,
		client: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Acquire implements Broker.
func (b *HTTPBroker) Acquire(ctx context.Context) (*Credential, error) {
	reqBody := map[string]any{}
	if b.hint != "" {
		reqBody["hint"] = b.hint
	}
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-Key", b.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, truncate(body, 200))
	}

	cred, err := Unwrap(body)
	if err != nil {
		return nil, err
	}
	slog.Debug("acquired session credential", "expires_at", cred.ExpiresAt)
	return cred, nil
}

// secretPaths lists the gjson paths for the secret value, one per
// documented response shape, newest first.
var secretPaths = []struct {
	secret string
	expiry string
}{
	{"client_secret.value", "client_secret.expires_at"}, // current
	{"credential.secret", "credential.expiry"},          // 2025-06 shape
	{"secret", "expires_at"},                            // 2025-01 shape
	{"token", "expires_at"},                             // 2024-11 shape
	{"value", "expires_at"},                             // original flat shape
}

// Unwrap extracts a Credential from an issuing-service payload, trying
// every known historical shape in order.
func Unwrap(body []byte) (*Credential, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: not valid JSON", ErrMalformedResponse)
	}
	for _, p := range secretPaths {
		secret := gjson.GetBytes(body, p.secret)
		if !secret.Exists() || secret.String() == "" {
			continue
		}
		cred := &Credential{Secret: secret.String()}
		if exp := gjson.GetBytes(body, p.expiry); exp.Exists() {
			cred.ExpiresAt = parseExpiry(exp)
		}
		return cred, nil
	}
	return nil, fmt.Errorf("%w: no secret found in any known shape", ErrMalformedResponse)
}

// parseExpiry accepts either a unix-seconds number or an RFC 3339 string.
func parseExpiry(v gjson.Result) time.Time {
	switch v.Type {
	case gjson.Number:
		return time.Unix(v.Int(), 0)
	case gjson.String:
		if t, err := time.Parse(time.RFC3339, v.String()); err == nil {
			return t
		}
	}
	return time.Time{}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
