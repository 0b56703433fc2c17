package index

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"go.trai.ch/lumenv/internal/core/domain"
	"go.trai.ch/lumenv/internal/core/ports"
	"go.trai.ch/zerr"
)

const (
	// DefaultAnacondaURL is the base URL of the anaconda.org package API.
	DefaultAnacondaURL = "https://api.anaconda.org"

	noarchSubdir = "noarch"
)

// CondaResponse is the subset of the anaconda.org package API used for resolution.
type CondaResponse struct {
	Name  string      `json:"name"`
	Files []CondaFile `json:"files"`
}

// CondaFile is one build of a conda package.
type CondaFile struct {
	Version     string     `json:"version"`
	Basename    string     `json:"basename"`
	DownloadURL string     `json:"download_url"`
	SHA256      string     `json:"sha256"`
	Attrs       CondaAttrs `json:"attrs"`
}

// CondaAttrs holds build attributes of a conda file.
type CondaAttrs struct {
	Subdir      string `json:"subdir"`
	Build       string `json:"build"`
	BuildNumber int    `json:"build_number"`
}

// Conda implements ports.PackageIndex against the anaconda.org API.
type Conda struct {
	fetcher
	baseURL string
}

var _ ports.PackageIndex = (*Conda)(nil)

// NewConda creates a conda index using baseURL, or DefaultAnacondaURL when empty.
func NewConda(baseURL string, client *http.Client, cache *Cache, logger ports.Logger) *Conda {
	if baseURL == "" {
		baseURL = DefaultAnacondaURL
	}
	return &Conda{
		fetcher: fetcher{
			manager: domain.ManagerConda,
			client:  client,
			cache:   cache,
			logger:  logger,
		},
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// Manager returns domain.ManagerConda.
func (c *Conda) Manager() domain.Manager {
	return domain.ManagerConda
}

// Releases searches the channels in order. The first channel with a build for
// the platform wins. A channel pinned on the spec replaces the search list.
func (c *Conda) Releases(ctx context.Context, spec domain.PackageSpec, opts ports.LookupOptions) ([]domain.Release, error) {
	channels := opts.Channels
	if spec.Channel != "" {
		channels = []string{spec.Channel}
	}
	if len(channels) == 0 {
		channels = []string{domain.DefaultCondaChannel}
	}

	for _, channel := range channels {
		releases, err := c.channelReleases(ctx, channel, spec, opts)
		if errors.Is(err, domain.ErrPackageNotFound) {
			continue
		}
		if err != nil {
			return nil, zerr.With(err, "conda_channel", channel)
		}
		if len(releases) > 0 {
			return releases, nil
		}
	}
	return nil, domain.ErrPackageNotFound
}

func (c *Conda) channelReleases(
	ctx context.Context,
	channel string,
	spec domain.PackageSpec,
	opts ports.LookupOptions,
) ([]domain.Release, error) {
	endpoint := c.baseURL + "/package/" + url.PathEscape(channel) + "/" + url.PathEscape(spec.Name)
	body, err := c.get(ctx, endpoint, opts.Refresh)
	if err != nil {
		return nil, err
	}

	var resp CondaResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrIndexParseFailed.Error()), "package", spec.Name)
	}

	// One build per version: platform builds beat noarch, then higher build numbers.
	best := make(map[string]CondaFile)
	order := make([]string, 0)
	for _, f := range resp.Files {
		if f.Attrs.Subdir != opts.Platform && f.Attrs.Subdir != noarchSubdir {
			continue
		}
		if spec.Build != "" && f.Attrs.Build != spec.Build {
			continue
		}
		current, seen := best[f.Version]
		if !seen {
			order = append(order, f.Version)
			best[f.Version] = f
			continue
		}
		if betterBuild(f, current) {
			best[f.Version] = f
		}
	}

	releases := make([]domain.Release, 0, len(order))
	for _, version := range order {
		f := best[version]
		releases = append(releases, domain.Release{
			Version:  f.Version,
			Build:    f.Attrs.Build,
			Channel:  channel,
			Platform: f.Attrs.Subdir,
			URL:      downloadURL(f.DownloadURL),
			SHA256:   f.SHA256,
		})
	}
	return releases, nil
}

func betterBuild(candidate, current CondaFile) bool {
	candidateNative := candidate.Attrs.Subdir != noarchSubdir
	currentNative := current.Attrs.Subdir != noarchSubdir
	if candidateNative != currentNative {
		return candidateNative
	}
	return candidate.Attrs.BuildNumber > current.Attrs.BuildNumber
}

// downloadURL turns the scheme-relative URLs returned by anaconda.org into https URLs.
func downloadURL(raw string) string {
	if strings.HasPrefix(raw, "//") {
		return "https:" + raw
	}
	return raw
}
