// Package app wires the bundle server's services over a storage layer and a
// set of distribution backends.
package app

import (
	"github.com/Ablestor/bundle-electron-updates-server/internal/app/domain/asset"
	"github.com/Ablestor/bundle-electron-updates-server/internal/app/services/distribution"
	"github.com/Ablestor/bundle-electron-updates-server/internal/app/services/manifests"
	"github.com/Ablestor/bundle-electron-updates-server/internal/app/services/registry"
	"github.com/Ablestor/bundle-electron-updates-server/internal/app/services/resolution"
	"github.com/Ablestor/bundle-electron-updates-server/internal/app/storage"
	"github.com/Ablestor/bundle-electron-updates-server/internal/app/storage/memory"
	"github.com/Ablestor/bundle-electron-updates-server/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Assets    storage.AssetStore
	Manifests storage.ManifestStore
}

// Application ties the domain services together.
type Application struct {
	log *logger.Logger

	Registry     *registry.Service
	Manifests    *manifests.Service
	Resolution   *resolution.Service
	Distribution *distribution.Service
}

// New builds a fully initialised application with the provided stores and
// distribution backends.
func New(stores Stores, backends map[asset.Backend]distribution.Backend, log *logger.Logger) *Application {
	if log == nil {
		log = logger.NewDefault("app")
	}

	mem := memory.New()
	if stores.Assets == nil {
		stores.Assets = mem
	}
	if stores.Manifests == nil {
		stores.Manifests = mem
	}

	return &Application{
		log:          log,
		Registry:     registry.New(stores.Assets, log.WithComponent("registry")),
		Manifests:    manifests.New(stores.Assets, stores.Manifests, log.WithComponent("manifests")),
		Resolution:   resolution.New(stores.Manifests, log.WithComponent("resolution")),
		Distribution: distribution.New(backends, log.WithComponent("distribution")),
	}
}
