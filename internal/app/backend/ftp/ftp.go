// Package ftp resolves assets stored on an FTP server or an FTP-speaking NAS.
package ftp

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"path"
	"strings"

	"github.com/Ablestor/bundle-electron-updates-server/internal/app/services/distribution"
)

// Config describes the FTP endpoint assets live on. For a NAS deployment,
// Host points at the NAS and the rest stays the same.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	// BasePath is prepended to every locator.
	BasePath string
	// Probe enables a TCP reachability check before handing out a URL, so a
	// downed server is reported as a backend failure instead of a broken
	// client download.
	Probe bool
}

// Backend constructs ftp:// URLs for registered locators.
type Backend struct {
	cfg    Config
	dialer *net.Dialer
}

var _ distribution.Backend = (*Backend)(nil)

// New creates an FTP backend.
func New(cfg Config) *Backend {
	if cfg.Port == 0 {
		cfg.Port = 21
	}
	cfg.BasePath = strings.Trim(cfg.BasePath, "/")
	return &Backend{cfg: cfg, dialer: &net.Dialer{}}
}

// Resolve returns a redirecting ftp:// URL for the locator.
func (b *Backend) Resolve(ctx context.Context, locator string) (distribution.Location, error) {
	locator = strings.Trim(locator, "/")
	if locator == "" {
		return distribution.Location{}, fmt.Errorf("empty locator")
	}

	if b.cfg.Probe {
		addr := net.JoinHostPort(b.cfg.Host, fmt.Sprintf("%d", b.cfg.Port))
		conn, err := b.dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			return distribution.Location{}, fmt.Errorf("probe %s: %w", addr, err)
		}
		conn.Close()
	}

	u := url.URL{
		Scheme: "ftp",
		Host:   net.JoinHostPort(b.cfg.Host, fmt.Sprintf("%d", b.cfg.Port)),
		Path:   "/" + path.Join(b.cfg.BasePath, locator),
	}
	if b.cfg.User != "" {
		if b.cfg.Password != "" {
			u.User = url.UserPassword(b.cfg.User, b.cfg.Password)
		} else {
			u.User = url.User(b.cfg.User)
		}
	}

	return distribution.Location{URL: u.String(), Redirect: true}, nil
}
