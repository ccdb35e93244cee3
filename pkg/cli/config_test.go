package cli

import (
	"path/filepath"
	"testing"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	cfg, err := LoadConfigWithPath(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatalf("LoadConfigWithPath: %v", err)
	}
	return cfg
}

func TestAddAndUseContext(t *testing.T) {
	cfg := testConfig(t)

	err := cfg.AddContext("work", &Context{
		UserID:      "user-1",
		DiaryURL:    "https://diary.example.com",
		DiaryAPIKey: "dk",
		TokenURL:    "https://token.example.com/issue",
		RealtimeURL: "https://rt.example.com/offer",
	})
	if err != nil {
		t.Fatalf("AddContext: %v", err)
	}

	// First context becomes current automatically.
	if cfg.CurrentContext != "work" {
		t.Fatalf("CurrentContext = %q, want work", cfg.CurrentContext)
	}

	if err := cfg.AddContext("home", &Context{UserID: "user-2"}); err != nil {
		t.Fatalf("AddContext: %v", err)
	}
	if cfg.CurrentContext != "work" {
		t.Fatalf("adding a second context must not steal current, got %q", cfg.CurrentContext)
	}

	if err := cfg.UseContext("home"); err != nil {
		t.Fatalf("UseContext: %v", err)
	}
	ctx, err := cfg.GetCurrentContext()
	if err != nil {
		t.Fatalf("GetCurrentContext: %v", err)
	}
	if ctx.UserID != "user-2" {
		t.Fatalf("UserID = %q, want user-2", ctx.UserID)
	}
}

func TestConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg, err := LoadConfigWithPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	err = cfg.AddContext("site", &Context{
		UserID:      "u",
		DiaryURL:    "https://d",
		Transport:   "websocket",
		SampleRate:  24000,
		DiaryAPIKey: "secret-key-value",
	})
	if err != nil {
		t.Fatalf("AddContext: %v", err)
	}

	reloaded, err := LoadConfigWithPath(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	ctx, err := reloaded.GetContext("site")
	if err != nil {
		t.Fatalf("GetContext: %v", err)
	}
	if ctx.Transport != "websocket" || ctx.SampleRate != 24000 {
		t.Fatalf("context lost fields: %+v", ctx)
	}
	if reloaded.CurrentContext != "site" {
		t.Fatalf("CurrentContext = %q", reloaded.CurrentContext)
	}
}

func TestDeleteContext(t *testing.T) {
	cfg := testConfig(t)
	cfg.AddContext("a", &Context{UserID: "u"})
	if err := cfg.DeleteContext("a"); err != nil {
		t.Fatalf("DeleteContext: %v", err)
	}
	if cfg.CurrentContext != "" {
		t.Fatalf("deleting the current context must clear the pointer")
	}
	if err := cfg.DeleteContext("missing"); err == nil {
		t.Fatal("deleting an unknown context should fail")
	}
}

func TestResolveContext(t *testing.T) {
	cfg := testConfig(t)
	cfg.AddContext("a", &Context{UserID: "ua"})
	cfg.AddContext("b", &Context{UserID: "ub"})

	ctx, err := cfg.ResolveContext("")
	if err != nil {
		t.Fatalf("ResolveContext current: %v", err)
	}
	if ctx.UserID != "ua" {
		t.Fatalf("UserID = %q, want ua", ctx.UserID)
	}
	ctx, err = cfg.ResolveContext("b")
	if err != nil {
		t.Fatalf("ResolveContext named: %v", err)
	}
	if ctx.UserID != "ub" {
		t.Fatalf("UserID = %q, want ub", ctx.UserID)
	}
}

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"short", "*****"},
		{"12345678", "********"},
		{"sk-abcdefghijkl", "sk-a*******ijkl"},
	}
	for _, tt := range tests {
		if got := MaskSecret(tt.in); got != tt.want {
			t.Errorf("MaskSecret(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
