package index

import (
	"cmp"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"go.trai.ch/lumenv/internal/core/domain"
	"go.trai.ch/lumenv/internal/core/ports"
	"go.trai.ch/zerr"
)

// DefaultPyPIURL is the base URL of the PyPI JSON API.
const DefaultPyPIURL = "https://pypi.org/pypi"

// PyPIResponse is the subset of the PyPI JSON API used for resolution.
type PyPIResponse struct {
	Info     PyPIInfo              `json:"info"`
	Releases map[string][]PyPIFile `json:"releases"`
}

// PyPIInfo holds project metadata.
type PyPIInfo struct {
	Name string `json:"name"`
}

// PyPIFile is one distribution file of a release.
type PyPIFile struct {
	Filename    string            `json:"filename"`
	URL         string            `json:"url"`
	PackageType string            `json:"packagetype"`
	Yanked      bool              `json:"yanked"`
	Digests     map[string]string `json:"digests"`
}

// PyPI implements ports.PackageIndex against the PyPI JSON API.
type PyPI struct {
	fetcher
	baseURL string
}

var _ ports.PackageIndex = (*PyPI)(nil)

// NewPyPI creates a PyPI index using baseURL, or DefaultPyPIURL when empty.
func NewPyPI(baseURL string, client *http.Client, cache *Cache, logger ports.Logger) *PyPI {
	if baseURL == "" {
		baseURL = DefaultPyPIURL
	}
	return &PyPI{
		fetcher: fetcher{
			manager: domain.ManagerPip,
			client:  client,
			cache:   cache,
			logger:  logger,
		},
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// Manager returns domain.ManagerPip.
func (p *PyPI) Manager() domain.Manager {
	return domain.ManagerPip
}

// Releases returns one release per published version that still has an
// installable file.
func (p *PyPI) Releases(ctx context.Context, spec domain.PackageSpec, opts ports.LookupOptions) ([]domain.Release, error) {
	endpoint := p.baseURL + "/" + url.PathEscape(spec.Name) + "/json"
	body, err := p.get(ctx, endpoint, opts.Refresh)
	if err != nil {
		return nil, err
	}

	var resp PyPIResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrIndexParseFailed.Error()), "package", spec.Name)
	}

	releases := make([]domain.Release, 0, len(resp.Releases))
	for version, files := range resp.Releases {
		file, yanked, ok := chooseFile(files)
		if !ok {
			continue
		}
		releases = append(releases, domain.Release{
			Version: version,
			URL:     file.URL,
			SHA256:  file.Digests["sha256"],
			Yanked:  yanked,
		})
	}
	// Map iteration order is random; sort so equal versions resolve the same way.
	slices.SortFunc(releases, func(a, b domain.Release) int {
		return cmp.Or(
			domain.ParseVersion(a.Version).Compare(domain.ParseVersion(b.Version)),
			strings.Compare(a.Version, b.Version),
		)
	})
	return releases, nil
}

// chooseFile picks the file installed for a release. The second result
// reports that every file of the release is yanked.
func chooseFile(files []PyPIFile) (PyPIFile, bool, bool) {
	if f, ok := pickFile(files, false); ok {
		return f, false, true
	}
	f, ok := pickFile(files, true)
	return f, ok, ok
}

// pickFile picks a universal wheel, else the sdist, else the first file,
// among the files whose yanked flag equals yanked.
func pickFile(files []PyPIFile, yanked bool) (PyPIFile, bool) {
	var sdist, first *PyPIFile
	for i := range files {
		f := &files[i]
		if f.Yanked != yanked {
			continue
		}
		if strings.HasSuffix(f.Filename, "-none-any.whl") {
			return *f, true
		}
		if f.PackageType == "sdist" && sdist == nil {
			sdist = f
		}
		if first == nil {
			first = f
		}
	}
	switch {
	case sdist != nil:
		return *sdist, true
	case first != nil:
		return *first, true
	default:
		return PyPIFile{}, false
	}
}
