// Package fetch retrieves form definitions and templates by resource path.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/kris-hansen/runa/utils/config"
	"github.com/kris-hansen/runa/utils/retry"
)

// Fetcher returns the raw text of a named resource.
type Fetcher interface {
	Fetch(ctx context.Context, resource string) (string, error)
}

// FailedError reports an unavailable resource. Status follows HTTP codes;
// zero means the request never produced a response.
type FailedError struct {
	Resource   string
	Status     int
	Err        error
	retryAfter time.Duration
}

func (e *FailedError) Error() string {
	switch {
	case e.Status != 0 && e.Err != nil:
		return fmt.Sprintf("fetch %s: status %d: %v", e.Resource, e.Status, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("fetch %s: status %d", e.Resource, e.Status)
	default:
		return fmt.Sprintf("fetch %s: %v", e.Resource, e.Err)
	}
}

func (e *FailedError) Unwrap() error { return e.Err }

// RetryAfter returns the delay requested by the server, if any.
func (e *FailedError) RetryAfter() time.Duration { return e.retryAfter }

// Temporary reports whether retrying the request may succeed.
func (e *FailedError) Temporary() bool {
	return e.Status == 0 || e.Status == http.StatusTooManyRequests || e.Status >= 500
}

func shouldRetry(err error) bool {
	var failed *FailedError
	if errors.As(err, &failed) {
		return failed.Temporary()
	}
	return retry.IsTransient(err)
}

// HTTPFetcher fetches resources relative to a base URL.
type HTTPFetcher struct {
	BaseURL string
	Client  *http.Client
	Retry   retry.RetryConfig
}

// NewHTTPFetcher creates a fetcher with the default retry policy.
func NewHTTPFetcher(baseURL string) *HTTPFetcher {
	return &HTTPFetcher{
		BaseURL: baseURL,
		Client:  http.DefaultClient,
		Retry:   retry.DefaultRetryConfig,
	}
}

// Fetch downloads resource, retrying rate limits and server errors.
func (f *HTTPFetcher) Fetch(ctx context.Context, resource string) (string, error) {
	target, err := f.resolve(resource)
	if err != nil {
		return "", &FailedError{Resource: resource, Err: err}
	}
	return retry.Do(ctx, f.Retry, shouldRetry, func() (string, error) {
		return f.get(ctx, resource, target)
	})
}

func (f *HTTPFetcher) resolve(resource string) (string, error) {
	base, err := url.Parse(f.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid template url %q: %w", f.BaseURL, err)
	}
	base.Path = path.Join(base.Path, resource)
	return base.String(), nil
}

func (f *HTTPFetcher) get(ctx context.Context, resource, target string) (string, error) {
	config.DebugLog("[Fetch] GET %s", target)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", &FailedError{Resource: resource, Err: err}
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", &FailedError{Resource: resource, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", &FailedError{
			Resource:   resource,
			Status:     resp.StatusCode,
			retryAfter: retry.ParseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}
	if err != nil {
		return "", &FailedError{Resource: resource, Status: resp.StatusCode, Err: err}
	}
	return string(body), nil
}

// DirFetcher reads resources from a local directory tree.
type DirFetcher struct {
	Root string
}

// Fetch reads resource below Root. Missing files report status 404.
func (f DirFetcher) Fetch(ctx context.Context, resource string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	clean := filepath.Clean("/" + filepath.FromSlash(resource))
	full := filepath.Join(f.Root, clean)
	config.DebugLog("[Fetch] read %s", full)

	data, err := os.ReadFile(full)
	switch {
	case err == nil:
		return string(data), nil
	case errors.Is(err, os.ErrNotExist):
		return "", &FailedError{Resource: resource, Status: http.StatusNotFound}
	case errors.Is(err, os.ErrPermission):
		return "", &FailedError{Resource: resource, Status: http.StatusForbidden, Err: err}
	default:
		return "", &FailedError{Resource: resource, Err: err}
	}
}

// New picks an HTTP fetcher for http(s) sources and a directory fetcher
// otherwise.
func New(source string) Fetcher {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return NewHTTPFetcher(source)
	}
	return DirFetcher{Root: source}
}
