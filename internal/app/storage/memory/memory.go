package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Ablestor/bundle-electron-updates-server/internal/app/domain/asset"
	"github.com/Ablestor/bundle-electron-updates-server/internal/app/domain/manifest"
	"github.com/Ablestor/bundle-electron-updates-server/internal/app/storage"
)

// Store is an in-memory implementation of the storage interfaces. It is safe
// for concurrent use and is primarily intended for tests and local
// development.
type Store struct {
	mu              sync.RWMutex
	nextID          int64
	assets          map[string]asset.Asset
	assetsByLocator map[string]string // backend+"\x00"+locator -> asset id
	manifests       map[string]manifest.Manifest
	manifestsByUUID map[string]string
}

var _ storage.AssetStore = (*Store)(nil)
var _ storage.ManifestStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		nextID:          1,
		assets:          make(map[string]asset.Asset),
		assetsByLocator: make(map[string]string),
		manifests:       make(map[string]manifest.Manifest),
		manifestsByUUID: make(map[string]string),
	}
}

func (s *Store) nextIDLocked() string {
	id := s.nextID
	s.nextID++
	return fmt.Sprintf("%d", id)
}

func locatorKey(backend asset.Backend, locator string) string {
	return string(backend) + "\x00" + locator
}

// AssetStore implementation ---------------------------------------------------

func (s *Store) CreateAsset(_ context.Context, a asset.Asset) (asset.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.ID == "" {
		a.ID = s.nextIDLocked()
	} else if _, exists := s.assets[a.ID]; exists {
		return asset.Asset{}, fmt.Errorf("asset %s already exists", a.ID)
	}

	a.CreatedAt = time.Now().UTC()

	s.assets[a.ID] = a
	s.assetsByLocator[locatorKey(a.Backend, a.Locator)] = a.ID
	return a, nil
}

func (s *Store) GetAsset(_ context.Context, id string) (asset.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.assets[id]
	if !ok {
		return asset.Asset{}, fmt.Errorf("asset %s: %w", id, storage.ErrNotFound)
	}
	return a, nil
}

func (s *Store) GetAssetByLocator(_ context.Context, backend asset.Backend, locator string) (asset.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.assetsByLocator[locatorKey(backend, locator)]
	if !ok {
		return asset.Asset{}, fmt.Errorf("asset %s/%s: %w", backend, locator, storage.ErrNotFound)
	}
	return s.assets[id], nil
}

// ManifestStore implementation ------------------------------------------------

func (s *Store) CreateManifest(_ context.Context, m manifest.Manifest) (manifest.Manifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Active-tuple uniqueness: soft-deleted manifests free their tuple.
	for _, existing := range s.manifests {
		if existing.Active() &&
			existing.Platform == m.Platform &&
			existing.Bundler == m.Bundler &&
			existing.Channel == m.Channel &&
			existing.Version == m.Version {
			return manifest.Manifest{}, fmt.Errorf("%s/%s/%s %s: %w",
				m.Platform, m.Bundler, m.Channel, m.Version, storage.ErrConflict)
		}
	}

	// All referenced assets must exist before anything is written; the map
	// updates below are then all-or-nothing under the lock.
	for _, ref := range m.Assets {
		if _, ok := s.assets[ref.AssetID]; !ok {
			return manifest.Manifest{}, fmt.Errorf("asset %s: %w", ref.AssetID, storage.ErrNotFound)
		}
	}

	if m.ID == "" {
		m.ID = s.nextIDLocked()
	} else if _, exists := s.manifests[m.ID]; exists {
		return manifest.Manifest{}, fmt.Errorf("manifest %s already exists", m.ID)
	}
	if m.UUID == "" {
		m.UUID = uuid.NewString()
	}

	m.CreatedAt = time.Now().UTC()
	m.DeletedAt = nil
	m.Assets = cloneRefs(m.Assets)

	s.manifests[m.ID] = m
	s.manifestsByUUID[m.UUID] = m.ID
	return cloneManifest(m), nil
}

func (s *Store) GetManifest(_ context.Context, id string) (manifest.Manifest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.manifests[id]
	if !ok {
		return manifest.Manifest{}, fmt.Errorf("manifest %s: %w", id, storage.ErrNotFound)
	}
	return cloneManifest(m), nil
}

func (s *Store) GetManifestByUUID(_ context.Context, manifestUUID string) (manifest.Manifest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.manifestsByUUID[manifestUUID]
	if !ok {
		return manifest.Manifest{}, fmt.Errorf("manifest uuid %s: %w", manifestUUID, storage.ErrNotFound)
	}
	return cloneManifest(s.manifests[id]), nil
}

func (s *Store) SoftDeleteManifest(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.manifests[id]
	if !ok {
		return fmt.Errorf("manifest %s: %w", id, storage.ErrNotFound)
	}
	if m.DeletedAt != nil {
		return nil
	}

	now := time.Now().UTC()
	m.DeletedAt = &now
	s.manifests[id] = m
	return nil
}

func (s *Store) ListActiveManifests(_ context.Context, platform manifest.Platform, channel string) ([]manifest.Manifest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]manifest.Manifest, 0)
	for _, m := range s.manifests {
		if m.Active() && m.Platform == platform && m.Channel == channel {
			result = append(result, cloneManifest(m))
		}
	}
	return result, nil
}

func (s *Store) ListManifestAssets(_ context.Context, manifestID string) ([]asset.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.manifests[manifestID]
	if !ok {
		return nil, fmt.Errorf("manifest %s: %w", manifestID, storage.ErrNotFound)
	}

	refs := cloneRefs(m.Assets)
	sort.SliceStable(refs, func(i, j int) bool { return refs[i].Position < refs[j].Position })

	result := make([]asset.Asset, 0, len(refs))
	for _, ref := range refs {
		a, ok := s.assets[ref.AssetID]
		if !ok {
			return nil, fmt.Errorf("asset %s: %w", ref.AssetID, storage.ErrNotFound)
		}
		result = append(result, a)
	}
	return result, nil
}

// helpers ---------------------------------------------------------------------

func cloneRefs(refs []manifest.AssetRef) []manifest.AssetRef {
	if refs == nil {
		return nil
	}
	out := make([]manifest.AssetRef, len(refs))
	copy(out, refs)
	return out
}

func cloneManifest(m manifest.Manifest) manifest.Manifest {
	m.Assets = cloneRefs(m.Assets)
	if m.DeletedAt != nil {
		t := *m.DeletedAt
		m.DeletedAt = &t
	}
	return m
}
