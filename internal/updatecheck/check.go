// Package updatecheck reports whether a newer backlog release exists. The
// latest release is cached in the key-value store for a day.
package updatecheck

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/mod/semver"

	"github.com/colonyops/backlog/internal/core/kv"
	"github.com/colonyops/backlog/internal/core/logging"
)

const (
	// CacheKey is the kv key holding the last fetched release.
	CacheKey = "update-check:latest"
	cacheTTL = 24 * time.Hour

	releaseAPIURL = "https://api.github.com/repos/colonyops/backlog/releases/latest"
)

// Release is the subset of the GitHub release payload that is cached.
type Release struct {
	TagName     string `json:"tag_name"`
	PublishedAt string `json:"published_at"`
}

// Result is returned when a newer version is available.
type Result struct {
	Current string
	Latest  string
}

// FetchFunc returns the latest release.
type FetchFunc func(ctx context.Context) (Release, error)

// Checker compares the running version with the latest release.
type Checker struct {
	cache kv.KV
	fetch FetchFunc
	log   zerolog.Logger
}

// New returns a Checker that queries GitHub and caches in store.
func New(store kv.KV) *Checker {
	return NewWithFetch(store, FetchGitHub(&http.Client{Timeout: 5 * time.Second}, releaseAPIURL))
}

// NewWithFetch returns a Checker using fetch instead of GitHub.
func NewWithFetch(store kv.KV, fetch FetchFunc) *Checker {
	return &Checker{cache: store, fetch: fetch, log: logging.Component("updatecheck")}
}

// Check returns a non-nil Result only when an update is available. Lookup
// failures are logged and reported as "no update".
func (c *Checker) Check(ctx context.Context, currentVersion string) *Result {
	if c.cache == nil || currentVersion == "" || currentVersion == "dev" {
		return nil
	}

	current, ok := normalizeVersion(currentVersion)
	if !ok {
		c.log.Debug().Str("version", currentVersion).Msg("invalid current version")
		return nil
	}

	release, err := c.latest(ctx)
	if err != nil {
		c.log.Debug().Err(err).Msg("failed to get latest release")
		return nil
	}

	latest, ok := normalizeVersion(release.TagName)
	if !ok {
		c.log.Debug().Str("tag", release.TagName).Msg("invalid release tag")
		return nil
	}

	if semver.Compare(current, latest) >= 0 {
		return nil
	}
	return &Result{Current: current, Latest: latest}
}

func (c *Checker) latest(ctx context.Context) (Release, error) {
	var cached Release
	if err := c.cache.Get(ctx, CacheKey, &cached); err == nil {
		return cached, nil
	}

	release, err := c.fetch(ctx)
	if err != nil {
		return Release{}, err
	}
	if release.TagName == "" {
		return Release{}, fmt.Errorf("fetch latest release: missing tag_name")
	}

	if err := c.cache.SetTTL(ctx, CacheKey, release, cacheTTL); err != nil {
		c.log.Debug().Err(err).Msg("failed to cache release")
	}
	return release, nil
}

// FetchGitHub returns a FetchFunc reading the GitHub releases API at url.
func FetchGitHub(client *http.Client, url string) FetchFunc {
	return func(ctx context.Context) (Release, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return Release{}, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/vnd.github+json")
		req.Header.Set("User-Agent", "backlog-update-checker")

		resp, err := client.Do(req)
		if err != nil {
			return Release{}, fmt.Errorf("request latest release: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			return Release{}, fmt.Errorf("request latest release: status %d", resp.StatusCode)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return Release{}, fmt.Errorf("read latest release body: %w", err)
		}

		var release Release
		if err := json.Unmarshal(body, &release); err != nil {
			return Release{}, fmt.Errorf("decode latest release: %w", err)
		}
		return release, nil
	}
}

func normalizeVersion(version string) (string, bool) {
	if semver.IsValid(version) {
		return version, true
	}
	if withPrefix := "v" + version; semver.IsValid(withPrefix) {
		return withPrefix, true
	}
	return "", false
}
