package manifest

import "fmt"

// FederationConfig is the module-federation section of a manifest, one
// variant per bundler. Exactly one variant may be set, and it must match the
// manifest's bundler. The config is stored serialized and treated as opaque
// by resolution; only its shape is validated at ingest.
type FederationConfig struct {
	Webpack  *WebpackFederation  `json:"webpack,omitempty"`
	Vite     *ViteFederation     `json:"vite,omitempty"`
	Metro    *MetroFederation    `json:"metro,omitempty"`
	Electron *ElectronFederation `json:"electron,omitempty"`
}

// WebpackFederation mirrors webpack's ModuleFederationPlugin options.
type WebpackFederation struct {
	Name     string                  `json:"name"`
	Filename string                  `json:"filename,omitempty"`
	Exposes  map[string]string       `json:"exposes,omitempty"`
	Remotes  map[string]string       `json:"remotes,omitempty"`
	Shared   map[string]SharedModule `json:"shared,omitempty"`
}

// ViteFederation mirrors vite-plugin-federation options.
type ViteFederation struct {
	Name    string                  `json:"name"`
	Exposes map[string]string       `json:"exposes,omitempty"`
	Remotes map[string]string       `json:"remotes,omitempty"`
	Shared  map[string]SharedModule `json:"shared,omitempty"`
}

// MetroFederation carries the federation entry for react-native builds.
type MetroFederation struct {
	Name      string            `json:"name"`
	EntryFile string            `json:"entry_file"`
	Remotes   map[string]string `json:"remotes,omitempty"`
}

// ElectronFederation carries the renderer federation entry plus the release
// name the packaged build was published under.
type ElectronFederation struct {
	Name        string `json:"name"`
	Entry       string `json:"entry,omitempty"`
	ReleaseName string `json:"release_name,omitempty"`
}

// SharedModule is a shared dependency declaration.
type SharedModule struct {
	Singleton       bool   `json:"singleton,omitempty"`
	RequiredVersion string `json:"required_version,omitempty"`
}

// variantFor maps each bundler to a check that its federation variant is set.
func (c FederationConfig) variantCount() int {
	n := 0
	if c.Webpack != nil {
		n++
	}
	if c.Vite != nil {
		n++
	}
	if c.Metro != nil {
		n++
	}
	if c.Electron != nil {
		n++
	}
	return n
}

// Validate checks that at most one variant is set and that it belongs to the
// given bundler. An empty config is allowed; a build without federation
// simply ships its assets.
func (c FederationConfig) Validate(b Bundler) error {
	if n := c.variantCount(); n > 1 {
		return fmt.Errorf("federation config declares %d variants, want at most one", n)
	}

	switch {
	case c.Webpack != nil && b != BundlerWebpack:
		return fmt.Errorf("webpack federation config on %s manifest", b)
	case c.Vite != nil && b != BundlerVite:
		return fmt.Errorf("vite federation config on %s manifest", b)
	case c.Metro != nil && b != BundlerMetro:
		return fmt.Errorf("metro federation config on %s manifest", b)
	case c.Electron != nil && b != BundlerElectronBuilder:
		return fmt.Errorf("electron federation config on %s manifest", b)
	}
	return nil
}
