package index

import (
	"context"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.trai.ch/lumenv/internal/core/domain"
	"go.trai.ch/lumenv/internal/core/ports"
	"go.trai.ch/zerr"
)

const httpClientTimeout = 30 * time.Second

// NewHTTPClient returns the client used for index requests. Requests are traced.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Timeout:   httpClientTimeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

// fetcher performs cached GET requests against one index.
type fetcher struct {
	manager domain.Manager
	client  *http.Client
	cache   *Cache
	logger  ports.Logger
}

// get returns the body of url, served from cache unless refresh is set.
// A 404 returns domain.ErrPackageNotFound unwrapped.
func (f *fetcher) get(ctx context.Context, url string, refresh bool) ([]byte, error) {
	key := Key(string(f.manager), url)
	if !refresh {
		if data, err := f.cache.Get(f.manager, key); err == nil {
			return data, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, zerr.Wrap(err, domain.ErrIndexRequestFailed.Error())
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrIndexRequestFailed.Error()), "url", url)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.ErrPackageNotFound
	}
	if resp.StatusCode != http.StatusOK {
		apiErr := zerr.With(domain.ErrIndexRequestFailed, "status_code", resp.StatusCode)
		return nil, zerr.With(apiErr, "url", url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, zerr.Wrap(err, domain.ErrIndexRequestFailed.Error())
	}

	if err := f.cache.Put(f.manager, key, body); err != nil && f.logger != nil {
		f.logger.Warn("failed to cache index response for " + url)
	}
	return body, nil
}
