package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/Ablestor/bundle-electron-updates-server/internal/app/domain/asset"
	"github.com/Ablestor/bundle-electron-updates-server/internal/app/storage"
	"github.com/Ablestor/bundle-electron-updates-server/internal/app/storage/memory"
)

func TestRegisterAndResolve(t *testing.T) {
	svc := New(memory.New(), nil)

	a, err := svc.Register(context.Background(), "release/main.js", asset.BackendLocal, asset.KindBundleChunk, "AB12", 1024)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if a.ID == "" {
		t.Fatalf("asset id not assigned")
	}
	if a.SHA256 != "ab12" {
		t.Fatalf("hash not normalised: %q", a.SHA256)
	}

	got, err := svc.Resolve(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.Locator != "release/main.js" {
		t.Fatalf("unexpected asset: %#v", got)
	}

	if _, err := svc.Resolve(context.Background(), "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestRegisterIsWriteOnce(t *testing.T) {
	svc := New(memory.New(), nil)

	a, err := svc.Register(context.Background(), "release/main.js", asset.BackendGitHub, asset.KindArchive, "aa", 10)
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	// Same content: idempotent, returns the original record.
	again, err := svc.Register(context.Background(), "release/main.js", asset.BackendGitHub, asset.KindArchive, "aa", 10)
	if err != nil {
		t.Fatalf("re-register identical: %v", err)
	}
	if again.ID != a.ID {
		t.Fatalf("idempotent registration returned new id %s", again.ID)
	}

	// Changed content: write-once violation.
	if _, err := svc.Register(context.Background(), "release/main.js", asset.BackendGitHub, asset.KindArchive, "bb", 10); !errors.Is(err, ErrImmutable) {
		t.Fatalf("want ErrImmutable, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := New(memory.New(), nil)

	if _, err := svc.Register(context.Background(), "", asset.BackendLocal, asset.KindBundleChunk, "", 0); err == nil {
		t.Fatalf("empty locator accepted")
	}
	if _, err := svc.Register(context.Background(), "x", asset.Backend("s3"), asset.KindBundleChunk, "", 0); err == nil {
		t.Fatalf("unknown backend accepted")
	}
	if _, err := svc.Register(context.Background(), "x", asset.BackendLocal, asset.Kind("movie"), "", 0); err == nil {
		t.Fatalf("unknown kind accepted")
	}
}
