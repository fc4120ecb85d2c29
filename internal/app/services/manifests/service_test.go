package manifests

import (
	"context"
	"errors"
	"testing"

	"github.com/Ablestor/bundle-electron-updates-server/internal/app/domain/asset"
	"github.com/Ablestor/bundle-electron-updates-server/internal/app/domain/manifest"
	"github.com/Ablestor/bundle-electron-updates-server/internal/app/storage"
	"github.com/Ablestor/bundle-electron-updates-server/internal/app/storage/memory"
)

func newFixture(t *testing.T) (*Service, *memory.Store, []asset.Asset) {
	t.Helper()
	store := memory.New()

	var assets []asset.Asset
	specs := []struct {
		locator string
		kind    asset.Kind
	}{
		{"release/main.abc.js", asset.KindBundleChunk},
		{"release/vendor.def.js", asset.KindBundleChunk},
		{"release/types.json", asset.KindTypeIndex},
	}
	for _, spec := range specs {
		a, err := store.CreateAsset(context.Background(), asset.Asset{
			Locator: spec.locator,
			Backend: asset.BackendLocal,
			Kind:    spec.kind,
		})
		if err != nil {
			t.Fatalf("create asset: %v", err)
		}
		assets = append(assets, a)
	}

	return New(store, store, nil), store, assets
}

func draftFor(assets []asset.Asset, version string) Draft {
	refs := make([]manifest.AssetRef, 0, len(assets))
	for _, a := range assets {
		role := manifest.RoleChunk
		if a.Kind == asset.KindTypeIndex {
			role = manifest.RoleTypeIndex
		}
		refs = append(refs, manifest.AssetRef{AssetID: a.ID, Role: role})
	}
	return Draft{
		Platform:         manifest.PlatformWeb,
		Bundler:          manifest.BundlerWebpack,
		Channel:          "release",
		Version:          version,
		Federation:       manifest.FederationConfig{Webpack: &manifest.WebpackFederation{Name: "shell"}},
		TypeIndexAssetID: assets[2].ID,
		Assets:           refs,
	}
}

func TestCreateAndLookup(t *testing.T) {
	svc, _, assets := newFixture(t)

	m, err := svc.Create(context.Background(), draftFor(assets, "1.0.0"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if m.UUID == "" {
		t.Fatalf("uuid not assigned")
	}

	byID, err := svc.GetByID(context.Background(), m.ID)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	byUUID, err := svc.GetByUUID(context.Background(), m.UUID)
	if err != nil {
		t.Fatalf("get by uuid: %v", err)
	}
	if byID.ID != byUUID.ID {
		t.Fatalf("id and uuid lookups disagree")
	}

	listed, err := svc.Assets(context.Background(), m.ID)
	if err != nil {
		t.Fatalf("assets: %v", err)
	}
	if len(listed) != 3 {
		t.Fatalf("expected 3 assets, got %d", len(listed))
	}
	// Unset positions fall back to declaration order.
	if listed[0].ID != assets[0].ID || listed[2].ID != assets[2].ID {
		t.Fatalf("association order lost: %#v", listed)
	}
}

func TestCreateValidation(t *testing.T) {
	svc, _, assets := newFixture(t)
	ctx := context.Background()

	d := draftFor(assets, "1.0.0")
	d.Platform = manifest.PlatformIOS // webpack does not target ios
	if _, err := svc.Create(ctx, d); err == nil {
		t.Fatalf("bundler/platform mismatch accepted")
	}

	d = draftFor(assets, "not.a.version")
	if _, err := svc.Create(ctx, d); !errors.Is(err, manifest.ErrMalformedVersion) {
		t.Fatalf("want ErrMalformedVersion, got %v", err)
	}

	d = draftFor(assets, "1.0.0")
	d.Federation = manifest.FederationConfig{Metro: &manifest.MetroFederation{Name: "app", EntryFile: "index.js"}}
	if _, err := svc.Create(ctx, d); err == nil {
		t.Fatalf("federation variant mismatch accepted")
	}

	d = draftFor(assets, "1.0.0")
	d.TypeIndexAssetID = assets[0].ID // bundle chunk, not a type index
	if _, err := svc.Create(ctx, d); err == nil {
		t.Fatalf("non-type-index asset accepted as type index")
	}
}

func TestCreateAtomicityOnInvalidReference(t *testing.T) {
	svc, store, assets := newFixture(t)
	ctx := context.Background()

	d := draftFor(assets, "1.0.0")
	d.Assets = append(d.Assets, manifest.AssetRef{AssetID: "ghost", Role: manifest.RoleChunk, Position: 9})

	_, err := svc.Create(ctx, d)
	if !errors.Is(err, ErrInvalidReference) {
		t.Fatalf("want ErrInvalidReference, got %v", err)
	}

	// One bad reference among valid ones persists nothing.
	active, err := store.ListActiveManifests(ctx, manifest.PlatformWeb, "release")
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("expected no manifests persisted, got %d", len(active))
	}
}

func TestTupleConflictAndSoftDelete(t *testing.T) {
	svc, _, assets := newFixture(t)
	ctx := context.Background()

	m, err := svc.Create(ctx, draftFor(assets, "1.0.0"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.Create(ctx, draftFor(assets, "1.0.0")); !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("want ErrConflict, got %v", err)
	}

	if err := svc.SoftDelete(ctx, m.ID); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	if err := svc.SoftDelete(ctx, m.ID); err != nil {
		t.Fatalf("repeat soft delete should be a no-op: %v", err)
	}
	if err := svc.SoftDelete(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("want ErrNotFound for unknown id, got %v", err)
	}

	// The tuple is free again once the original is retired.
	if _, err := svc.Create(ctx, draftFor(assets, "1.0.0")); err != nil {
		t.Fatalf("recreate after soft delete: %v", err)
	}

	// Soft-deleted manifests stay reachable by uuid, and their assets stay
	// resolvable by direct id.
	deleted, err := svc.GetByUUID(ctx, m.UUID)
	if err != nil {
		t.Fatalf("uuid lookup after delete: %v", err)
	}
	if deleted.Active() {
		t.Fatalf("deleted manifest reported active")
	}
}
