package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "sources.yaml")
	// #nosec G306 -- test fixture.
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoad_DefaultsApplied(t *testing.T) {
	path := writeConfig(t, `
sources:
  - name: A
    port: 10001
    url: https://sub.example.com/a
    snippet: ./a.yaml
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != DefaultListenAddr {
		t.Fatalf("listen=%q", cfg.Listen)
	}
	if cfg.Out != DefaultOutputPath {
		t.Fatalf("out=%q", cfg.Out)
	}
	if !cfg.KeepOriginal {
		t.Fatalf("keep_original should default to true")
	}
	if len(cfg.Sources) != 1 || cfg.Sources[0].Local() {
		t.Fatalf("sources=%+v", cfg.Sources)
	}
}

func TestLoad_KeepOriginalExplicitFalse(t *testing.T) {
	path := writeConfig(t, `
keep_original: false
sources:
  - name: A
    port: 10001
    url: local
    snippet: ./a.yaml
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.KeepOriginal {
		t.Fatalf("explicit keep_original=false lost")
	}
	if !cfg.Sources[0].Local() {
		t.Fatalf("url=local must mark the source local")
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	cases := []struct {
		name    string
		content string
		wantSub string
	}{
		{
			name:    "missing name",
			content: "sources:\n  - port: 1\n    url: local\n    snippet: a.yaml\n",
			wantSub: "name must not be empty",
		},
		{
			name:    "bad port",
			content: "sources:\n  - name: A\n    port: 70000\n    url: local\n    snippet: a.yaml\n",
			wantSub: "out of range",
		},
		{
			name:    "duplicate name",
			content: "sources:\n  - {name: A, port: 1, url: local, snippet: a.yaml}\n  - {name: A, port: 2, url: local, snippet: b.yaml}\n",
			wantSub: "duplicate name",
		},
	}
	for _, tc := range cases {
		path := writeConfig(t, tc.content)
		if _, err := Load(path); err == nil || !strings.Contains(err.Error(), tc.wantSub) {
			t.Fatalf("%s: err=%v", tc.name, err)
		}
	}
}

func TestLoadDocument_RejectsNonMapping(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.yaml")
	// #nosec G306 -- test fixture.
	if err := os.WriteFile(path, []byte("- a\n- b\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := LoadDocument(path); err == nil {
		t.Fatalf("expected error for sequence document")
	}
}

func TestWriteDocument_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "merged.yaml")
	doc := map[string]any{
		"mode":  "rule",
		"rules": []any{"MATCH,DIRECT"},
	}
	if err := WriteDocument(path, doc); err != nil {
		t.Fatalf("WriteDocument: %v", err)
	}
	got, err := LoadDocument(path)
	if err != nil {
		t.Fatalf("LoadDocument: %v", err)
	}
	if got["mode"] != "rule" {
		t.Fatalf("doc=%v", got)
	}
}

func TestBaseDocument_FreshTreePerCall(t *testing.T) {
	a := BaseDocument()
	b := BaseDocument()
	dns, _ := a["dns"].(map[string]any)
	dns["enable"] = false
	bdns, _ := b["dns"].(map[string]any)
	if bdns["enable"] != true {
		t.Fatalf("BaseDocument shares state between calls")
	}
}
