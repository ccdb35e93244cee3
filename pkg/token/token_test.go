package token_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fieldvoice/fieldvoice/pkg/token"
)

func TestUnwrapShapes(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		secret string
	}{
		{
			name:   "current nested client_secret",
			body:   `{"id":"sess_1","client_secret":{"value":"ek_abc","expires_at":1735689600}}`,
			secret: "ek_abc",
		},
		{
			name:   "credential object",
			body:   `{"credential":{"secret":"ek_def","expiry":"2026-01-01T00:00:00Z"}}`,
			secret: "ek_def",
		},
		{
			name:   "flat secret",
			body:   `{"secret":"ek_ghi","expires_at":1735689600}`,
			secret: "ek_ghi",
		},
		{
			name:   "flat token",
			body:   `{"token":"ek_mno","expires_at":1735689600}`,
			secret: "ek_mno",
		},
		{
			name:   "original flat value",
			body:   `{"value":"ek_jkl","expires_at":"2026-01-01T00:00:00Z"}`,
			secret: "ek_jkl",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cred, err := token.Unwrap([]byte(tt.body))
			if err != nil {
				t.Fatalf("Unwrap: %v", err)
			}
			if cred.Secret != tt.secret {
				t.Fatalf("Secret = %q, want %q", cred.Secret, tt.secret)
			}
			if cred.ExpiresAt.IsZero() {
				t.Fatalf("ExpiresAt not parsed")
			}
		})
	}
}

func TestUnwrapMalformed(t *testing.T) {
	for _, body := range []string{
		`{}`,
		`{"client_secret":{}}`,
		`{"unrelated":"stuff"}`,
		`not json at all`,
	} {
		_, err := token.Unwrap([]byte(body))
		if !errors.Is(err, token.ErrMalformedResponse) {
			t.Fatalf("Unwrap(%q) = %v, want ErrMalformedResponse", body, err)
		}
	}
}

func TestAcquire(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-API-Key")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"client_secret":{"value":"ek_live","expires_at":4102444800}}`))
	}))
	defer srv.Close()

	b := token.NewHTTPBroker(srv.URL, "sk_test", token.WithHint("diary"))
	cred, err := b.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if gotKey != "sk_test" {
		t.Fatalf("X-API-Key = %q, want sk_test", gotKey)
	}
	if cred.Secret != "ek_live" {
		t.Fatalf("Secret = %q", cred.Secret)
	}
	if cred.Expired(time.Now()) {
		t.Fatalf("credential unexpectedly expired")
	}
}

func TestAcquireUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	srv.Close() // closed immediately: connection refused

	b := token.NewHTTPBroker(srv.URL, "sk_test")
	_, err := b.Acquire(context.Background())
	if !errors.Is(err, token.ErrUnavailable) {
		t.Fatalf("Acquire = %v, want ErrUnavailable", err)
	}
}

func TestAcquireBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer srv.Close()

	b := token.NewHTTPBroker(srv.URL, "sk_wrong")
	_, err := b.Acquire(context.Background())
	if !errors.Is(err, token.ErrUnavailable) {
		t.Fatalf("Acquire = %v, want ErrUnavailable", err)
	}
}
