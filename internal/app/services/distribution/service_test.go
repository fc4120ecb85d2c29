package distribution

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Ablestor/bundle-electron-updates-server/internal/app/domain/asset"
)

type stubBackend struct {
	loc   Location
	err   error
	calls int
	last  string
}

func (b *stubBackend) Resolve(_ context.Context, locator string) (Location, error) {
	b.calls++
	b.last = locator
	if b.err != nil {
		return Location{}, b.err
	}
	return b.loc, nil
}

type hangingBackend struct{}

func (hangingBackend) Resolve(ctx context.Context, _ string) (Location, error) {
	<-ctx.Done()
	return Location{}, ctx.Err()
}

func TestLocateDispatchesByBackendTag(t *testing.T) {
	local := &stubBackend{loc: Location{URL: "http://files.local/bundles/main.js", Redirect: false}}
	github := &stubBackend{loc: Location{URL: "https://github.com/o/r/releases/download/v1/main.js", Redirect: true}}
	svc := New(map[asset.Backend]Backend{
		asset.BackendLocal:  local,
		asset.BackendGitHub: github,
	}, nil)

	loc, err := svc.Locate(context.Background(), asset.Asset{Backend: asset.BackendLocal, Locator: "bundles/main.js"})
	if err != nil {
		t.Fatalf("locate local: %v", err)
	}
	if loc.Redirect || loc.URL != local.loc.URL {
		t.Fatalf("local location = %+v", loc)
	}
	if local.last != "bundles/main.js" {
		t.Fatalf("local backend saw locator %q", local.last)
	}

	loc, err = svc.Locate(context.Background(), asset.Asset{Backend: asset.BackendGitHub, Locator: "v1/main.js"})
	if err != nil {
		t.Fatalf("locate github: %v", err)
	}
	if !loc.Redirect {
		t.Fatalf("github location should redirect: %+v", loc)
	}
	if local.calls != 1 || github.calls != 1 {
		t.Fatalf("calls local=%d github=%d", local.calls, github.calls)
	}
}

func TestLocateUnknownBackend(t *testing.T) {
	svc := New(map[asset.Backend]Backend{}, nil)

	_, err := svc.Locate(context.Background(), asset.Asset{Backend: asset.BackendFTP, Locator: "x"})
	if !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("err = %v, want ErrBackendUnavailable", err)
	}
}

func TestLocateWrapsBackendFailure(t *testing.T) {
	failing := &stubBackend{err: errors.New("connection refused")}
	svc := New(map[asset.Backend]Backend{asset.BackendNAS: failing}, nil)

	_, err := svc.Locate(context.Background(), asset.Asset{Backend: asset.BackendNAS, Locator: "x"})
	if !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("err = %v, want ErrBackendUnavailable", err)
	}
	if failing.calls != 1 {
		t.Fatalf("backend called %d times, want exactly one attempt", failing.calls)
	}
}

func TestLocateTimesOut(t *testing.T) {
	svc := New(map[asset.Backend]Backend{asset.BackendFTP: hangingBackend{}}, nil).
		WithTimeout(25 * time.Millisecond)

	start := time.Now()
	_, err := svc.Locate(context.Background(), asset.Asset{Backend: asset.BackendFTP, Locator: "x"})
	if !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("err = %v, want ErrBackendUnavailable", err)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("resolution was not bounded by the configured timeout")
	}
}
