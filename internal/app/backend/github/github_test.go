package github

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

const releaseBody = `{
  "tag_name": "v1.2.0",
  "assets": [
    {"name": "main.bundle.js", "browser_download_url": "https://github.com/acme/app/releases/download/v1.2.0/main.bundle.js"},
    {"name": "types.json", "browser_download_url": "https://github.com/acme/app/releases/download/v1.2.0/types.json"}
  ]
}`

func newTestBackend(t *testing.T, handler http.HandlerFunc) *Backend {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{Owner: "acme", Repo: "app", Token: "tok-123", APIBase: srv.URL}, srv.Client())
}

func TestResolve(t *testing.T) {
	var gotPath, gotAuth string
	b := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(releaseBody))
	})

	loc, err := b.Resolve(context.Background(), "v1.2.0/main.bundle.js")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if loc.URL != "https://github.com/acme/app/releases/download/v1.2.0/main.bundle.js" {
		t.Fatalf("url = %s", loc.URL)
	}
	if !loc.Redirect {
		t.Fatalf("github locations must redirect")
	}
	if gotPath != "/repos/acme/app/releases/tags/v1.2.0" {
		t.Fatalf("request path = %s", gotPath)
	}
	if gotAuth != "Bearer tok-123" {
		t.Fatalf("authorization = %q", gotAuth)
	}
}

func TestResolveAssetMissing(t *testing.T) {
	b := newTestBackend(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(releaseBody))
	})

	if _, err := b.Resolve(context.Background(), "v1.2.0/nope.js"); err == nil {
		t.Fatalf("expected error for unknown asset name")
	}
}

func TestResolveReleaseMissing(t *testing.T) {
	b := newTestBackend(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
	})

	if _, err := b.Resolve(context.Background(), "v9.9.9/main.bundle.js"); err == nil {
		t.Fatalf("expected error for missing release")
	}
}

func TestResolveBadLocator(t *testing.T) {
	b := New(Config{Owner: "acme", Repo: "app"}, nil)

	for _, locator := range []string{"", "v1.2.0", "/main.js", "v1.2.0/"} {
		if _, err := b.Resolve(context.Background(), locator); err == nil {
			t.Fatalf("locator %q accepted", locator)
		}
	}
}
