// Package github resolves assets attached to GitHub release tags.
package github

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/Ablestor/bundle-electron-updates-server/internal/app/services/distribution"
)

const defaultAPIBase = "https://api.github.com"

// Config carries the repository coordinates and credentials for the GitHub
// releases API.
type Config struct {
	Owner string
	Repo  string
	// Token is a personal access token. Required for private repositories
	// and recommended otherwise to avoid the anonymous rate limit.
	Token string
	// APIBase overrides the API endpoint, e.g. for GitHub Enterprise.
	APIBase string
}

// Backend resolves locators of the form "releaseTag/assetName" to the
// asset's browser download URL.
type Backend struct {
	cfg    Config
	client *http.Client
}

var _ distribution.Backend = (*Backend)(nil)

// New creates a GitHub backend. A nil client gets a default with a sane
// timeout.
func New(cfg Config, client *http.Client) *Backend {
	if cfg.APIBase == "" {
		cfg.APIBase = defaultAPIBase
	}
	cfg.APIBase = strings.TrimRight(cfg.APIBase, "/")
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Backend{cfg: cfg, client: client}
}

// Resolve looks the release up by tag and returns the matching asset's
// download URL. Clients are redirected there so release bytes never pass
// through this server.
func (b *Backend) Resolve(ctx context.Context, locator string) (distribution.Location, error) {
	tag, name, ok := strings.Cut(locator, "/")
	if !ok || tag == "" || name == "" {
		return distribution.Location{}, fmt.Errorf("locator %q is not releaseTag/assetName", locator)
	}

	endpoint := fmt.Sprintf("%s/repos/%s/%s/releases/tags/%s",
		b.cfg.APIBase, b.cfg.Owner, b.cfg.Repo, url.PathEscape(tag))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return distribution.Location{}, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if b.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+b.cfg.Token)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return distribution.Location{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return distribution.Location{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return distribution.Location{}, fmt.Errorf("release %s: github responded %d", tag, resp.StatusCode)
	}

	var downloadURL string
	gjson.GetBytes(body, "assets").ForEach(func(_, a gjson.Result) bool {
		if a.Get("name").String() == name {
			downloadURL = a.Get("browser_download_url").String()
			return false
		}
		return true
	})
	if downloadURL == "" {
		return distribution.Location{}, fmt.Errorf("release %s has no asset %q", tag, name)
	}

	return distribution.Location{URL: downloadURL, Redirect: true}, nil
}
