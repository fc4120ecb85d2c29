package local

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "release"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "release", "main.js"), []byte("bundle"), 0o644); err != nil {
		t.Fatal(err)
	}

	b := New(dir, "http://localhost:3000/files/")

	loc, err := b.Resolve(context.Background(), "release/main.js")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if loc.URL != "http://localhost:3000/files/release/main.js" {
		t.Fatalf("url = %s", loc.URL)
	}
	if loc.Redirect {
		t.Fatalf("local locations are served inline, not redirected")
	}
}

func TestResolveMissingFile(t *testing.T) {
	b := New(t.TempDir(), "http://localhost:3000/files")

	if _, err := b.Resolve(context.Background(), "release/missing.js"); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestResolveRejectsEscape(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "inside.js"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	b := New(filepath.Join(dir, "sub"), "http://localhost:3000/files")

	for _, locator := range []string{"../inside.js", "..", "", "a/../../inside.js"} {
		if _, err := b.Resolve(context.Background(), locator); err == nil {
			t.Fatalf("locator %q escaped the root", locator)
		}
	}
}
