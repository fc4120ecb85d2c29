package storage

import (
	"context"
	"errors"

	"github.com/Ablestor/bundle-electron-updates-server/internal/app/domain/asset"
	"github.com/Ablestor/bundle-electron-updates-server/internal/app/domain/manifest"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrConflict is returned when creating a manifest whose
// (platform, bundler, channel, version) tuple collides with an active one.
var ErrConflict = errors.New("manifest tuple already active")

// AssetStore persists write-once asset records.
type AssetStore interface {
	CreateAsset(ctx context.Context, a asset.Asset) (asset.Asset, error)
	GetAsset(ctx context.Context, id string) (asset.Asset, error)
	GetAssetByLocator(ctx context.Context, backend asset.Backend, locator string) (asset.Asset, error)
}

// ManifestStore persists release manifests and their asset associations.
// CreateManifest writes the manifest row and all association rows as one
// atomic unit; a partial failure leaves nothing behind.
type ManifestStore interface {
	CreateManifest(ctx context.Context, m manifest.Manifest) (manifest.Manifest, error)
	GetManifest(ctx context.Context, id string) (manifest.Manifest, error)
	// GetManifestByUUID resolves soft-deleted manifests too; uuid lookup is
	// the rollback/audit path.
	GetManifestByUUID(ctx context.Context, uuid string) (manifest.Manifest, error)
	// SoftDeleteManifest is idempotent: deleting an already-deleted manifest
	// is a no-op.
	SoftDeleteManifest(ctx context.Context, id string) error
	// ListActiveManifests excludes soft-deleted manifests. Ordering is
	// undefined; the resolution engine sorts.
	ListActiveManifests(ctx context.Context, platform manifest.Platform, channel string) ([]manifest.Manifest, error)
	// ListManifestAssets returns the manifest's assets ordered by their
	// association position.
	ListManifestAssets(ctx context.Context, manifestID string) ([]asset.Asset, error)
}
