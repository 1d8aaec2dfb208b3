package jwks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/boogy/aws-cognito-warden/pkg/cache"
	"github.com/boogy/aws-cognito-warden/pkg/types"
)

// ErrFetch is wrapped by every failure to obtain the provider key set
var ErrFetch = errors.New("failed to fetch JWKS")

const (
	// DefaultTimeout is used when the configured fetch timeout is zero
	DefaultTimeout = 5 * time.Second

	// maxBodySize caps the key set document read from the provider
	maxBodySize = 1 << 20
)

// Fetcher retrieves the current key set of a provider
type Fetcher interface {
	Fetch(ctx context.Context, provider types.Provider) (*cache.Snapshot, error)
}

// HTTPFetcher downloads the key set from the provider well-known endpoint.
// It never retries; the caller decides what a failure means.
type HTTPFetcher struct {
	Client *http.Client
}

func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPFetcher{
		Client: &http.Client{Timeout: timeout},
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, provider types.Provider) (*cache.Snapshot, error) {
	url := provider.JWKSURL()
	log := slog.With("url", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	req.Header.Set("Accept", "application/json")

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		log.Error("Failed to fetch JWKS", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Error("Failed to close JWKS response body", "error", err)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Error("Received non-2xx status code when fetching JWKS", "status", resp.StatusCode)
		return nil, fmt.Errorf("%w: unexpected status code %d", ErrFetch, resp.StatusCode)
	}

	var set types.JWKS
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(&set); err != nil {
		log.Error("Failed to parse JWKS", "error", err)
		return nil, fmt.Errorf("%w: failed to parse JWKS: %w", ErrFetch, err)
	}

	snapshot := cache.NewSnapshot(set.Keys)
	log.Debug("Fetched JWKS",
		"keys", snapshot.Len(),
		"duration", time.Since(start).String(),
	)
	return snapshot, nil
}
