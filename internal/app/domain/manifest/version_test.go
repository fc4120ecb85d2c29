package manifest

import (
	"errors"
	"testing"
)

func TestParseVersion(t *testing.T) {
	for _, s := range []string{"1.0.0", "v1.2.3", "2.0.0-beta.1", "1.2.0+hotfix"} {
		if _, err := ParseVersion(s); err != nil {
			t.Fatalf("parse %q: %v", s, err)
		}
	}

	for _, s := range []string{"", "latest", "1.x.y", "not-a-version"} {
		_, err := ParseVersion(s)
		if !errors.Is(err, ErrMalformedVersion) {
			t.Fatalf("parse %q: want ErrMalformedVersion, got %v", s, err)
		}
	}
}

func TestCompareVersions(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"1.0.0", "1.2.0", -1},
		{"1.2.0", "1.2.0", 0},
		{"2.0.0", "1.9.9", 1},
		{"v1.0.0", "1.0.0", 0},
		{"1.2.0-beta.1", "1.2.0", -1},
		// build metadata is ignored by semver precedence
		{"1.2.0+hotfix", "1.2.0", 0},
	}
	for _, tc := range cases {
		got, err := CompareVersions(tc.a, tc.b)
		if err != nil {
			t.Fatalf("compare %q %q: %v", tc.a, tc.b, err)
		}
		if got != tc.want {
			t.Fatalf("compare %q %q = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}

	if _, err := CompareVersions("garbage", "1.0.0"); !errors.Is(err, ErrMalformedVersion) {
		t.Fatalf("want ErrMalformedVersion, got %v", err)
	}
}

func TestBundlerSupports(t *testing.T) {
	if !BundlerMetro.Supports(PlatformIOS) || BundlerMetro.Supports(PlatformWindows) {
		t.Fatalf("metro platform set wrong")
	}
	if !BundlerElectronBuilder.Supports(PlatformMacOS) || BundlerElectronBuilder.Supports(PlatformAndroid) {
		t.Fatalf("electron-builder platform set wrong")
	}
	if Bundler("esbuild").Valid() {
		t.Fatalf("unknown bundler reported valid")
	}
}

func TestFederationValidate(t *testing.T) {
	var empty FederationConfig
	if err := empty.Validate(BundlerWebpack); err != nil {
		t.Fatalf("empty config: %v", err)
	}

	cfg := FederationConfig{Webpack: &WebpackFederation{Name: "shell"}}
	if err := cfg.Validate(BundlerWebpack); err != nil {
		t.Fatalf("matching variant: %v", err)
	}
	if err := cfg.Validate(BundlerMetro); err == nil {
		t.Fatalf("webpack variant on metro manifest accepted")
	}

	both := FederationConfig{
		Webpack: &WebpackFederation{Name: "shell"},
		Vite:    &ViteFederation{Name: "shell"},
	}
	if err := both.Validate(BundlerWebpack); err == nil {
		t.Fatalf("two variants accepted")
	}
}
