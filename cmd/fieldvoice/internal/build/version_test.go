package build

import (
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	s := String()
	if !strings.Contains(s, "fieldvoice") {
		t.Fatalf("expected binary name, got: %s", s)
	}
	if !strings.Contains(s, Version) {
		t.Fatalf("expected version %q, got: %s", Version, s)
	}
}
