package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

type jobTable struct{}

func (jobTable) Headers() []string { return []string{"NAME", "STATUS"} }
func (jobTable) Rows() [][]string {
	return [][]string{
		{"Smith Kitchen", "in_progress"},
		{"Unit 4 Bathroom", "complete"},
	}
}

func TestOutputJSON(t *testing.T) {
	var buf bytes.Buffer
	err := Output(map[string]any{"name": "test", "value": 123}, OutputOptions{
		Format: FormatJSON,
		Writer: &buf,
	})
	if err != nil {
		t.Fatalf("Output: %v", err)
	}
	var result map[string]any
	if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}
	if result["name"] != "test" {
		t.Errorf("name = %v", result["name"])
	}
}

func TestOutputYAMLDefault(t *testing.T) {
	var buf bytes.Buffer
	err := Output(map[string]string{"key": "value"}, OutputOptions{Writer: &buf})
	if err != nil {
		t.Fatalf("Output: %v", err)
	}
	if !strings.Contains(buf.String(), "key: value") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestOutputTable(t *testing.T) {
	var buf bytes.Buffer
	err := Output(jobTable{}, OutputOptions{Format: FormatTable, Writer: &buf})
	if err != nil {
		t.Fatalf("Output: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "NAME") || !strings.Contains(out, "Smith Kitchen") {
		t.Errorf("table output = %q", out)
	}
}

func TestOutputTableFallsBackToYAML(t *testing.T) {
	var buf bytes.Buffer
	err := Output(map[string]string{"k": "v"}, OutputOptions{Format: FormatTable, Writer: &buf})
	if err != nil {
		t.Fatalf("Output: %v", err)
	}
	if !strings.Contains(buf.String(), "k: v") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestOutputRaw(t *testing.T) {
	var buf bytes.Buffer
	if err := Output("plain text", OutputOptions{Format: FormatRaw, Writer: &buf}); err != nil {
		t.Fatalf("Output: %v", err)
	}
	if buf.String() != "plain text" {
		t.Errorf("output = %q", buf.String())
	}
}

func TestOutputUnsupportedFormat(t *testing.T) {
	if err := Output("x", OutputOptions{Format: "xml", Writer: &bytes.Buffer{}}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestParseRequestByExtension(t *testing.T) {
	var v struct {
		Name string `json:"name" yaml:"name"`
	}
	if err := ParseRequest([]byte(`name: kitchen`), "req.yaml", &v); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if v.Name != "kitchen" {
		t.Errorf("Name = %q", v.Name)
	}
	v.Name = ""
	if err := ParseRequest([]byte(`{"name":"bathroom"}`), "req.json", &v); err != nil {
		t.Fatalf("json: %v", err)
	}
	if v.Name != "bathroom" {
		t.Errorf("Name = %q", v.Name)
	}
}

func TestLogWriter(t *testing.T) {
	w := NewLogWriter(3)
	w.Write([]byte("one\ntwo\n"))
	w.Write([]byte("three\n"))
	w.Write([]byte("four\n"))

	lines := w.Lines()
	if len(lines) != 3 {
		t.Fatalf("len(lines) = %d, want 3", len(lines))
	}
	if lines[0] != "two" || lines[2] != "four" {
		t.Fatalf("lines = %v", lines)
	}
}
