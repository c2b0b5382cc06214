// Package registry resolves npm package specifiers against a package
// registry and yields download coordinates for their tarballs.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Common errors
var (
	ErrPackageNotFound = errors.New("package not found in registry")
	ErrRegistry        = errors.New("registry request failed")
)

// DefaultBaseURL is the public npm registry endpoint.
const DefaultBaseURL = "https://registry.npmjs.org"

// PackageInfo holds the resolved coordinates of one package version.
type PackageInfo struct {
	Name       string `json:"name"`
	Version    string `json:"version"`
	TarballURL string `json:"tarballUrl"`
}

// Client queries a package registry over HTTP.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewClient creates a registry client. An empty baseURL selects the
// public npm registry.
func NewClient(baseURL string, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// SetTimeout sets the timeout for registry requests.
func (c *Client) SetTimeout(timeout time.Duration) {
	c.client.Timeout = timeout
}

// Resolve looks up the specifier's version metadata. A missing version
// resolves the registry's latest dist-tag. The returned info always
// carries a tarball URL.
func (c *Client) Resolve(ctx context.Context, spec Specifier) (*PackageInfo, error) {
	version := spec.Version
	if version == "" {
		version = "latest"
	}

	endpoint := fmt.Sprintf("%s/%s/%s", c.baseURL, url.PathEscape(spec.FullName()), url.PathEscape(version))
	c.logger.Debug("resolving package", "package", spec.FullName(), "version", version)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRegistry, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRegistry, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s@%s", ErrPackageNotFound, spec.FullName(), version)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: unexpected status %s for %s", ErrRegistry, resp.Status, spec.FullName())
	}

	var meta struct {
		Name    string `json:"name"`
		Version string `json:"version"`
		Dist    struct {
			Tarball string `json:"tarball"`
		} `json:"dist"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, fmt.Errorf("%w: malformed metadata for %s: %v", ErrRegistry, spec.FullName(), err)
	}
	if meta.Dist.Tarball == "" {
		return nil, fmt.Errorf("%w: no tarball for %s@%s", ErrRegistry, spec.FullName(), version)
	}

	name := meta.Name
	if name == "" {
		name = spec.FullName()
	}

	info := &PackageInfo{
		Name:       name,
		Version:    meta.Version,
		TarballURL: meta.Dist.Tarball,
	}
	c.logger.Debug("resolved package", "package", info.Name, "version", info.Version)
	return info, nil
}
