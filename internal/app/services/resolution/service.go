// Package resolution selects the correct manifest for a client given its
// release channel, target platform and reported version.
package resolution

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/semver/v3"

	"github.com/Ablestor/bundle-electron-updates-server/internal/app/domain/manifest"
	"github.com/Ablestor/bundle-electron-updates-server/internal/app/metrics"
	"github.com/Ablestor/bundle-electron-updates-server/internal/app/storage"
	"github.com/Ablestor/bundle-electron-updates-server/pkg/logger"
)

// ErrNoManifestAvailable is returned when no active manifest exists for the
// requested platform and channel.
var ErrNoManifestAvailable = errors.New("no manifest available")

// Decision is the outcome of a check-for-update comparison.
type Decision struct {
	// UpToDate is true when the client's version is at or ahead of the
	// latest active manifest. A client ahead of latest is a staged-rollback
	// situation, not an error.
	UpToDate bool `json:"up_to_date"`
	// Manifest is the latest manifest when an update is available.
	Manifest *manifest.Manifest `json:"manifest,omitempty"`
}

// Service is the resolution engine. It only reads; any store snapshot yields
// a deterministic result.
type Service struct {
	store storage.ManifestStore
	log   *logger.Logger
}

// New constructs a resolution service.
func New(store storage.ManifestStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("resolution")
	}
	return &Service{store: store, log: log}
}

// GetLatest returns the active manifest with the highest semantic version
// for the platform/channel pair. Versions that compare equal (possible via
// build metadata, which semver precedence ignores) are broken by creation
// time, newer first.
func (s *Service) GetLatest(ctx context.Context, platform manifest.Platform, channel string) (manifest.Manifest, error) {
	if !platform.Valid() {
		return manifest.Manifest{}, fmt.Errorf("unknown platform %q", platform)
	}
	if channel == "" {
		return manifest.Manifest{}, fmt.Errorf("channel is required")
	}

	active, err := s.store.ListActiveManifests(ctx, platform, channel)
	if err != nil {
		return manifest.Manifest{}, err
	}
	if len(active) == 0 {
		metrics.ObserveResolution("none")
		return manifest.Manifest{}, fmt.Errorf("%s/%s: %w", platform, channel, ErrNoManifestAvailable)
	}

	var (
		best        manifest.Manifest
		bestVersion *semver.Version
	)
	for _, m := range active {
		v, err := manifest.ParseVersion(m.Version)
		if err != nil {
			// A malformed stored version is a data defect; fail loud rather
			// than guessing an ordering.
			s.log.WithError(err).Warnf("manifest %s has malformed version", m.ID)
			return manifest.Manifest{}, err
		}
		if bestVersion == nil {
			best, bestVersion = m, v
			continue
		}
		switch v.Compare(bestVersion) {
		case 1:
			best, bestVersion = m, v
		case 0:
			if m.CreatedAt.After(best.CreatedAt) {
				best, bestVersion = m, v
			}
		}
	}

	metrics.ObserveResolution("latest")
	return best, nil
}

// CheckForUpdate compares the client's version against the latest active
// manifest. A malformed client version surfaces as an error rather than
// silently blocking or forcing updates.
func (s *Service) CheckForUpdate(ctx context.Context, platform manifest.Platform, channel, clientVersion string) (Decision, error) {
	cv, err := manifest.ParseVersion(clientVersion)
	if err != nil {
		return Decision{}, err
	}

	latest, err := s.GetLatest(ctx, platform, channel)
	if err != nil {
		return Decision{}, err
	}

	lv, err := manifest.ParseVersion(latest.Version)
	if err != nil {
		return Decision{}, err
	}

	if cv.Compare(lv) >= 0 {
		metrics.ObserveResolution("up_to_date")
		return Decision{UpToDate: true}, nil
	}

	metrics.ObserveResolution("update_available")
	return Decision{UpToDate: false, Manifest: &latest}, nil
}
