// Package manifest defines release manifest value types: the platform and
// bundler enumerations, the module-federation configuration variants, and
// semantic version handling used by the resolution engine.
package manifest

import "time"

// Platform is a client target platform. The set of platforms a manifest may
// declare depends on its bundler.
type Platform string

const (
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
	PlatformWeb     Platform = "web"
	PlatformWindows Platform = "windows"
	PlatformMacOS   Platform = "macos"
	PlatformLinux   Platform = "linux"
)

// Valid reports whether the platform is one of the known platforms.
func (p Platform) Valid() bool {
	switch p {
	case PlatformIOS, PlatformAndroid, PlatformWeb, PlatformWindows, PlatformMacOS, PlatformLinux:
		return true
	}
	return false
}

// Bundler identifies the build tool that produced a manifest.
type Bundler string

const (
	BundlerWebpack         Bundler = "webpack"
	BundlerMetro           Bundler = "metro"
	BundlerVite            Bundler = "vite"
	BundlerElectronBuilder Bundler = "electron-builder"
)

// bundlerPlatforms is the platform family each bundler can target.
var bundlerPlatforms = map[Bundler][]Platform{
	BundlerWebpack:         {PlatformWeb, PlatformWindows, PlatformMacOS, PlatformLinux},
	BundlerVite:            {PlatformWeb, PlatformWindows, PlatformMacOS, PlatformLinux},
	BundlerMetro:           {PlatformIOS, PlatformAndroid},
	BundlerElectronBuilder: {PlatformWindows, PlatformMacOS, PlatformLinux},
}

// Valid reports whether the bundler is one of the known bundlers.
func (b Bundler) Valid() bool {
	_, ok := bundlerPlatforms[b]
	return ok
}

// Supports reports whether the bundler can target the given platform.
func (b Bundler) Supports(p Platform) bool {
	for _, supported := range bundlerPlatforms[b] {
		if supported == p {
			return true
		}
	}
	return false
}

// Role describes how an asset participates in a manifest.
type Role string

const (
	RoleEntry     Role = "entry"
	RoleChunk     Role = "chunk"
	RoleTypeIndex Role = "type-index"
	RoleSourceMap Role = "source-map"
)

// AssetRef links a manifest to an asset. Position fixes the load order of
// the manifest's assets.
type AssetRef struct {
	AssetID  string `json:"asset_id"`
	Role     Role   `json:"role"`
	Position int    `json:"position"`
}

// Manifest describes one immutable release build for a platform, channel and
// bundler. A non-nil DeletedAt retires the manifest: it is excluded from
// latest-resolution but stays addressable by id and uuid for rollback.
type Manifest struct {
	ID         string           `json:"id"`
	UUID       string           `json:"uuid"`
	Platform   Platform         `json:"platform"`
	Bundler    Bundler          `json:"bundler"`
	Channel    string           `json:"channel"`
	Version    string           `json:"version"`
	Federation FederationConfig `json:"federation"`

	// TypeIndexAssetID points at the canonical type-definition asset, when
	// the build produced one. It must be one of the manifest's asset refs.
	TypeIndexAssetID string `json:"type_index_asset_id,omitempty"`

	Assets []AssetRef `json:"assets"`

	CreatedAt time.Time  `json:"created_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// Active reports whether the manifest has not been soft-deleted.
func (m Manifest) Active() bool {
	return m.DeletedAt == nil
}
