package commands

import (
	"io"
	"os"
	"strings"
	"testing"
)

// runCmd executes the root command with args against an isolated HOME,
// capturing stdout.
func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	globalConfig = nil
	configLoadErr = nil

	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stdout = w

	rootCmd.SetArgs(args)
	execErr := rootCmd.Execute()

	w.Close()
	os.Stdout = old
	out, _ := io.ReadAll(r)
	return string(out), execErr
}

func TestVersion(t *testing.T) {
	stdout, err := runCmd(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(stdout, "fieldvoice") {
		t.Fatalf("expected binary name, got: %s", stdout)
	}
}

func TestConfigAddUseList(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	globalConfig = nil
	configLoadErr = nil

	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	rootCmd.SetArgs([]string{"config", "add", "site",
		"--user-id", "dave",
		"--diary-url", "https://diary.example.com",
		"--diary-api-key", "dk"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("config add: %v", err)
	}
	rootCmd.SetArgs([]string{"config", "list"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("config list: %v", err)
	}

	w.Close()
	os.Stdout = old
	out, _ := io.ReadAll(r)
	if !strings.Contains(string(out), "* site") {
		t.Fatalf("expected current-context marker, got: %s", out)
	}
}

func TestConfigShowMasksSecrets(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	globalConfig = nil
	configLoadErr = nil

	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	rootCmd.SetArgs([]string{"config", "add", "site",
		"--user-id", "dave",
		"--diary-api-key", "super-secret-key-value"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("config add: %v", err)
	}
	rootCmd.SetArgs([]string{"config", "show", "site"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("config show: %v", err)
	}

	w.Close()
	os.Stdout = old
	out, _ := io.ReadAll(r)
	if strings.Contains(string(out), "super-secret-key-value") {
		t.Fatalf("secret leaked in show output: %s", out)
	}
}
