package manifest

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// ErrMalformedVersion marks a version string that does not parse as a
// semantic version. Malformed versions are surfaced to the caller rather
// than coerced: a garbled client-reported version must not silently block
// or force an update.
var ErrMalformedVersion = errors.New("malformed semantic version")

// ParseVersion parses a semantic version string, tolerating a leading "v".
func ParseVersion(s string) (*semver.Version, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(s), "v")
	v, err := semver.NewVersion(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrMalformedVersion, s, err)
	}
	return v, nil
}

// CompareVersions orders two version strings by semver precedence.
// Returns -1 when a < b, 0 when equal, 1 when a > b.
func CompareVersions(a, b string) (int, error) {
	av, err := ParseVersion(a)
	if err != nil {
		return 0, err
	}
	bv, err := ParseVersion(b)
	if err != nil {
		return 0, err
	}
	return av.Compare(bv), nil
}
