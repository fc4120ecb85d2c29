// Package local serves assets from a directory on the server's own disk.
package local

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/Ablestor/bundle-electron-updates-server/internal/app/services/distribution"
)

// Backend maps locators to files under a root directory and hands out URLs
// under a public base. The server itself (or a fronting file server) is
// expected to serve that base.
type Backend struct {
	root    string
	baseURL string
}

var _ distribution.Backend = (*Backend)(nil)

// New creates a local backend rooted at dir. baseURL is the public prefix
// clients fetch from, e.g. "http://localhost:3000/files".
func New(dir, baseURL string) *Backend {
	return &Backend{
		root:    filepath.Clean(dir),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Resolve checks the file exists and returns its public URL. The location is
// served inline rather than via redirect.
func (b *Backend) Resolve(ctx context.Context, locator string) (distribution.Location, error) {
	if err := ctx.Err(); err != nil {
		return distribution.Location{}, err
	}

	rel, err := safeRelative(locator)
	if err != nil {
		return distribution.Location{}, err
	}

	full := filepath.Join(b.root, filepath.FromSlash(rel))
	info, err := os.Stat(full)
	if err != nil {
		return distribution.Location{}, fmt.Errorf("stat %s: %w", rel, err)
	}
	if info.IsDir() {
		return distribution.Location{}, fmt.Errorf("%s is a directory", rel)
	}

	return distribution.Location{
		URL:      b.baseURL + "/" + rel,
		Redirect: false,
	}, nil
}

// safeRelative normalizes a locator and rejects anything that would escape
// the root directory.
func safeRelative(locator string) (string, error) {
	cleaned := path.Clean("/" + strings.ReplaceAll(locator, "\\", "/"))
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" || cleaned == "." || strings.HasPrefix(cleaned, "..") {
		return "", fmt.Errorf("invalid locator %q", locator)
	}
	return cleaned, nil
}
