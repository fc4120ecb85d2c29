// Package registry manages the write-once asset records that manifests
// reference.
package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Ablestor/bundle-electron-updates-server/internal/app/domain/asset"
	"github.com/Ablestor/bundle-electron-updates-server/internal/app/storage"
	"github.com/Ablestor/bundle-electron-updates-server/pkg/logger"
)

// ErrImmutable is returned when a registration would overwrite an existing
// asset with different content. Assets are write-once.
var ErrImmutable = errors.New("asset is immutable")

// Service is the asset registry.
type Service struct {
	store storage.AssetStore
	log   *logger.Logger
}

// New constructs an asset registry service.
func New(store storage.AssetStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("registry")
	}
	return &Service{store: store, log: log}
}

// Register records a build artifact. Registration is content-addressed:
// re-registering the same (backend, locator) with an identical hash returns
// the existing record, while a differing hash fails with ErrImmutable.
func (s *Service) Register(ctx context.Context, locator string, backend asset.Backend, kind asset.Kind, sha256 string, sizeBytes int64) (asset.Asset, error) {
	locator = strings.TrimSpace(locator)
	sha256 = strings.ToLower(strings.TrimSpace(sha256))

	if locator == "" {
		return asset.Asset{}, fmt.Errorf("locator is required")
	}
	if !backend.Valid() {
		return asset.Asset{}, fmt.Errorf("unknown storage backend %q", backend)
	}
	if !kind.Valid() {
		return asset.Asset{}, fmt.Errorf("unknown asset kind %q", kind)
	}
	if sizeBytes < 0 {
		return asset.Asset{}, fmt.Errorf("size_bytes must not be negative")
	}

	existing, err := s.store.GetAssetByLocator(ctx, backend, locator)
	switch {
	case err == nil:
		if existing.SHA256 == sha256 {
			return existing, nil
		}
		return asset.Asset{}, fmt.Errorf("asset %s/%s already registered with hash %s: %w",
			backend, locator, existing.SHA256, ErrImmutable)
	case errors.Is(err, storage.ErrNotFound):
		// first registration
	default:
		return asset.Asset{}, err
	}

	created, err := s.store.CreateAsset(ctx, asset.Asset{
		Locator:   locator,
		Backend:   backend,
		Kind:      kind,
		SHA256:    sha256,
		SizeBytes: sizeBytes,
	})
	if err != nil {
		return asset.Asset{}, err
	}

	s.log.WithField("asset_id", created.ID).Infof("registered %s asset %s", backend, locator)
	return created, nil
}

// Resolve returns the asset for the given id.
func (s *Service) Resolve(ctx context.Context, id string) (asset.Asset, error) {
	return s.store.GetAsset(ctx, id)
}
