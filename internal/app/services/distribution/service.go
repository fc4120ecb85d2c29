// Package distribution turns registered assets into client-fetchable
// locations by dispatching to the storage backend named on the asset.
package distribution

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Ablestor/bundle-electron-updates-server/internal/app/domain/asset"
	"github.com/Ablestor/bundle-electron-updates-server/internal/app/metrics"
	"github.com/Ablestor/bundle-electron-updates-server/pkg/logger"
)

// ErrBackendUnavailable is returned when the asset's backend is not
// configured or failed to produce a location.
var ErrBackendUnavailable = errors.New("distribution backend unavailable")

// defaultTimeout bounds a single backend resolution.
const defaultTimeout = 10 * time.Second

// Location is where a client can fetch an asset's bytes.
type Location struct {
	// URL points at the asset content.
	URL string `json:"url"`
	// Redirect indicates the server should answer with an HTTP redirect to
	// URL instead of returning it in a response body.
	Redirect bool `json:"redirect"`
}

// Backend resolves an asset locator into a fetchable location. Implementations
// live under internal/app/backend.
type Backend interface {
	// Resolve maps a backend-scoped locator to a Location. It must respect
	// context cancellation.
	Resolve(ctx context.Context, locator string) (Location, error)
}

// Service is the distribution gateway.
type Service struct {
	backends map[asset.Backend]Backend
	timeout  time.Duration
	log      *logger.Logger
}

// New constructs a gateway over the given backend set. Backends may be nil or
// partial; assets pointing at a missing backend fail with
// ErrBackendUnavailable at resolution time.
func New(backends map[asset.Backend]Backend, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("distribution")
	}
	return &Service{
		backends: backends,
		timeout:  defaultTimeout,
		log:      log,
	}
}

// WithTimeout overrides the per-resolution deadline.
func (s *Service) WithTimeout(d time.Duration) *Service {
	if d > 0 {
		s.timeout = d
	}
	return s
}

// Locate resolves the asset into a fetchable location via its backend. Each
// call is a single bounded attempt; retry policy belongs to the caller.
func (s *Service) Locate(ctx context.Context, a asset.Asset) (Location, error) {
	backend, ok := s.backends[a.Backend]
	if !ok {
		metrics.ObserveBackendResolution(string(a.Backend), 0, false)
		return Location{}, fmt.Errorf("backend %q not configured: %w", a.Backend, ErrBackendUnavailable)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	loc, err := backend.Resolve(ctx, a.Locator)
	elapsed := time.Since(start)
	if err != nil {
		metrics.ObserveBackendResolution(string(a.Backend), elapsed, false)
		s.log.WithError(err).Warnf("backend %s failed to resolve %s", a.Backend, a.Locator)
		return Location{}, fmt.Errorf("backend %s: %v: %w", a.Backend, err, ErrBackendUnavailable)
	}

	metrics.ObserveBackendResolution(string(a.Backend), elapsed, true)
	return loc, nil
}
