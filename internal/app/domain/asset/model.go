package asset

import "time"

// Kind classifies the content of an asset.
type Kind string

const (
	KindBundleChunk Kind = "bundle-chunk"
	KindTypeIndex   Kind = "type-index"
	KindSourceMap   Kind = "source-map"
	KindArchive     Kind = "archive"
)

// Valid reports whether the kind is one of the known asset kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindBundleChunk, KindTypeIndex, KindSourceMap, KindArchive:
		return true
	}
	return false
}

// Backend tags where an asset's bytes live. The distribution gateway selects
// a backend implementation by this tag.
type Backend string

const (
	BackendLocal  Backend = "local"
	BackendGitHub Backend = "github"
	BackendFTP    Backend = "ftp"
	BackendNAS    Backend = "nas"
)

// Valid reports whether the backend is one of the known storage backends.
func (b Backend) Valid() bool {
	switch b {
	case BackendLocal, BackendGitHub, BackendFTP, BackendNAS:
		return true
	}
	return false
}

// Asset is a write-once content artifact referenced by one or more manifests.
// The locator is a path or remote key interpreted by the asset's backend.
type Asset struct {
	ID        string  `json:"id"`
	Locator   string  `json:"locator"`
	Backend   Backend `json:"backend"`
	Kind      Kind    `json:"kind"`
	SHA256    string  `json:"sha256,omitempty"`
	SizeBytes int64   `json:"size_bytes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
