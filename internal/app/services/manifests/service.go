// Package manifests manages release manifest creation, lookup and
// soft-deletion.
package manifests

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Ablestor/bundle-electron-updates-server/internal/app/domain/asset"
	"github.com/Ablestor/bundle-electron-updates-server/internal/app/domain/manifest"
	"github.com/Ablestor/bundle-electron-updates-server/internal/app/storage"
	"github.com/Ablestor/bundle-electron-updates-server/pkg/logger"
)

// ErrInvalidReference is returned when a manifest draft references an asset
// the registry does not know.
var ErrInvalidReference = errors.New("invalid asset reference")

// Draft is the ingestion payload for a new manifest.
type Draft struct {
	Platform         manifest.Platform
	Bundler          manifest.Bundler
	Channel          string
	Version          string
	Federation       manifest.FederationConfig
	TypeIndexAssetID string
	Assets           []manifest.AssetRef
}

// Service manages the manifest store.
type Service struct {
	assets storage.AssetStore
	store  storage.ManifestStore
	log    *logger.Logger
}

// New constructs a manifest service.
func New(assets storage.AssetStore, store storage.ManifestStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("manifests")
	}
	return &Service{assets: assets, store: store, log: log}
}

// Create validates a draft and persists it. The manifest row and all asset
// associations commit as one unit; validation failures leave nothing behind.
func (s *Service) Create(ctx context.Context, draft Draft) (manifest.Manifest, error) {
	draft.Channel = strings.TrimSpace(draft.Channel)
	draft.Version = strings.TrimSpace(draft.Version)

	if !draft.Platform.Valid() {
		return manifest.Manifest{}, fmt.Errorf("unknown platform %q", draft.Platform)
	}
	if !draft.Bundler.Valid() {
		return manifest.Manifest{}, fmt.Errorf("unknown bundler %q", draft.Bundler)
	}
	if !draft.Bundler.Supports(draft.Platform) {
		return manifest.Manifest{}, fmt.Errorf("bundler %s does not target platform %s", draft.Bundler, draft.Platform)
	}
	if draft.Channel == "" {
		return manifest.Manifest{}, fmt.Errorf("channel is required")
	}
	if _, err := manifest.ParseVersion(draft.Version); err != nil {
		return manifest.Manifest{}, err
	}
	if err := draft.Federation.Validate(draft.Bundler); err != nil {
		return manifest.Manifest{}, err
	}

	// Every referenced asset must resolve before anything is written.
	seen := make(map[string]asset.Asset, len(draft.Assets))
	for i, ref := range draft.Assets {
		if ref.AssetID == "" {
			return manifest.Manifest{}, fmt.Errorf("asset ref %d: %w: empty id", i, ErrInvalidReference)
		}
		if _, dup := seen[ref.AssetID]; dup {
			return manifest.Manifest{}, fmt.Errorf("asset %s referenced twice", ref.AssetID)
		}
		a, err := s.assets.GetAsset(ctx, ref.AssetID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return manifest.Manifest{}, fmt.Errorf("asset %s: %w", ref.AssetID, ErrInvalidReference)
			}
			return manifest.Manifest{}, err
		}
		seen[ref.AssetID] = a
	}

	// Callers that leave positions unset get declaration order.
	explicit := false
	for _, ref := range draft.Assets {
		if ref.Position != 0 {
			explicit = true
			break
		}
	}
	if !explicit {
		for i := range draft.Assets {
			draft.Assets[i].Position = i
		}
	}

	if draft.TypeIndexAssetID != "" {
		a, ok := seen[draft.TypeIndexAssetID]
		if !ok {
			return manifest.Manifest{}, fmt.Errorf("type index asset %s not among manifest assets: %w",
				draft.TypeIndexAssetID, ErrInvalidReference)
		}
		if a.Kind != asset.KindTypeIndex {
			return manifest.Manifest{}, fmt.Errorf("type index asset %s has kind %s, want %s",
				a.ID, a.Kind, asset.KindTypeIndex)
		}
	}

	created, err := s.store.CreateManifest(ctx, manifest.Manifest{
		Platform:         draft.Platform,
		Bundler:          draft.Bundler,
		Channel:          draft.Channel,
		Version:          draft.Version,
		Federation:       draft.Federation,
		TypeIndexAssetID: draft.TypeIndexAssetID,
		Assets:           draft.Assets,
	})
	if err != nil {
		return manifest.Manifest{}, err
	}

	s.log.WithField("manifest_id", created.ID).
		Infof("created %s/%s manifest %s on channel %s", created.Platform, created.Bundler, created.Version, created.Channel)
	return created, nil
}

// GetByID returns the manifest with the given id, deleted or not.
func (s *Service) GetByID(ctx context.Context, id string) (manifest.Manifest, error) {
	return s.store.GetManifest(ctx, id)
}

// GetByUUID returns the manifest with the given uuid. Soft-deleted manifests
// resolve too; this is the rollback and audit path.
func (s *Service) GetByUUID(ctx context.Context, uuid string) (manifest.Manifest, error) {
	return s.store.GetManifestByUUID(ctx, uuid)
}

// SoftDelete retires a manifest from latest-resolution. Deleting an already
// retired manifest is a no-op.
func (s *Service) SoftDelete(ctx context.Context, id string) error {
	if err := s.store.SoftDeleteManifest(ctx, id); err != nil {
		return err
	}
	s.log.WithField("manifest_id", id).Info("manifest soft-deleted")
	return nil
}

// ListActive returns the non-deleted manifests for a platform and channel.
func (s *Service) ListActive(ctx context.Context, platform manifest.Platform, channel string) ([]manifest.Manifest, error) {
	return s.store.ListActiveManifests(ctx, platform, channel)
}

// Assets returns a manifest's assets ordered by association position.
func (s *Service) Assets(ctx context.Context, manifestID string) ([]asset.Asset, error) {
	return s.store.ListManifestAssets(ctx, manifestID)
}
