package msgcat

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewLoadsEmbeddedMessages(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for _, key := range []string{"loa.help.title", "loa.error.session_not_found", "loa.reason.path_blocked", "loa.result.white_won"} {
		if !c.Has(key) {
			t.Fatalf("missing key %s", key)
		}
	}
	out, err := c.Render("loa.nav.undo", map[string]any{"Count": 2})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(out, "2수") {
		t.Fatalf("unexpected render: %q", out)
	}
}

func TestRenderMissingFieldFails(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.Render("loa.nav.undo", map[string]any{}); err == nil {
		t.Fatalf("expected missing key error")
	}
	if _, err := c.Render("loa.no.such.key", nil); err == nil {
		t.Fatalf("expected not found error")
	}
	if got := c.RenderOr("loa.no.such.key", nil, "fallback"); got != "fallback" {
		t.Fatalf("RenderOr = %q", got)
	}
	var nilCatalog *Catalog
	if got := nilCatalog.RenderOr("loa.help.title", nil, "x"); got != "x" {
		t.Fatalf("nil RenderOr = %q", got)
	}
}

func TestOverrideDir(t *testing.T) {
	dir := t.TempDir()
	body := "loa:\n  quit: \"bye {{.Name}}\"\n"
	if err := os.WriteFile(filepath.Join(dir, "custom.yaml"), []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	out, err := c.Render("loa.quit", map[string]string{"Name": "kim"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if out != "bye kim" {
		t.Fatalf("override not applied: %q", out)
	}
	if !c.Has("loa.restart") {
		t.Fatalf("embedded keys should survive overrides")
	}
}

func TestOverrideDuplicateKeys(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.yaml", "b.yml"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("loa:\n  quit: x\n"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if _, err := New(dir); err == nil {
		t.Fatalf("expected duplicate key error")
	}
}

func TestOverrideRejectsNonString(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("loa:\n  quit: 3\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := New(dir); err == nil {
		t.Fatalf("expected unsupported value error")
	}
}

func TestKeysSorted(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	keys := c.Keys()
	for i := 1; i < len(keys); i++ {
		if keys[i-1] > keys[i] {
			t.Fatalf("keys not sorted at %d: %s > %s", i, keys[i-1], keys[i])
		}
	}
}
