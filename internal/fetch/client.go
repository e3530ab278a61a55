// Package fetch retrieves graph payloads over HTTP or from local files.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"forcegraph/internal/codec"
	"forcegraph/internal/domain"
)

const (
	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultRateLimit is the default number of fetches per second.
	DefaultRateLimit = 2.0

	// DefaultMaxBytes bounds the payload size.
	DefaultMaxBytes = 64 << 20
)

// Client is a rate-limited payload client. Absolute http(s) URLs are
// fetched over the network; everything else is resolved as a file path
// relative to the base directory.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	baseDir    string
	maxBytes   int64
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithRateLimit sets the fetch rate in requests per second and the burst
// size. A non-positive rate disables limiting.
func WithRateLimit(perSecond float64, burst int) ClientOption {
	return func(c *Client) {
		if burst < 1 {
			burst = 1
		}
		if perSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, burst)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithBaseURL resolves relative references against an HTTP base URL
// instead of the local filesystem.
func WithBaseURL(base string) ClientOption {
	return func(c *Client) {
		c.baseURL = base
	}
}

// WithBaseDir sets the directory relative file references resolve against.
func WithBaseDir(dir string) ClientOption {
	return func(c *Client) {
		c.baseDir = dir
	}
}

// WithMaxBytes sets the payload size limit.
func WithMaxBytes(n int64) ClientOption {
	return func(c *Client) {
		c.maxBytes = n
	}
}

// NewClient creates a payload client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), 1),
		baseDir:    ".",
		maxBytes:   DefaultMaxBytes,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Fetch retrieves and decodes the payload at ref. The format is chosen by
// Content-Type when the server sends a recognized one, otherwise by
// extension.
func (c *Client) Fetch(ctx context.Context, ref string) (*domain.GraphData, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	target, remote, err := c.resolve(ref)
	if err != nil {
		return nil, err
	}
	if remote {
		return c.fetchHTTP(ctx, target)
	}
	return c.fetchFile(target)
}

// resolve turns ref into an absolute URL or a file path.
func (c *Client) resolve(ref string) (string, bool, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", false, fmt.Errorf("invalid reference %q: %w", ref, err)
	}

	switch u.Scheme {
	case "http", "https":
		return ref, true, nil
	case "file":
		return u.Path, false, nil
	case "":
		if c.baseURL != "" {
			base, err := url.Parse(c.baseURL)
			if err != nil {
				return "", false, fmt.Errorf("invalid base URL %q: %w", c.baseURL, err)
			}
			return base.ResolveReference(u).String(), true, nil
		}
		if filepath.IsAbs(ref) {
			return ref, false, nil
		}
		return filepath.Join(c.baseDir, filepath.FromSlash(ref)), false, nil
	default:
		return "", false, fmt.Errorf("unsupported scheme %q in %s", u.Scheme, ref)
	}
}

func (c *Client) fetchHTTP(ctx context.Context, target string) (*domain.GraphData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json, application/yaml;q=0.9, */*;q=0.5")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", target, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, target)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: %s", ErrRateLimited, target)
	case resp.StatusCode >= 400:
		return nil, &StatusError{URL: target, StatusCode: resp.StatusCode}
	}

	dec := codec.ForContentType(resp.Header.Get("Content-Type"), target)
	return c.decode(dec, resp.Body, target)
}

func (c *Client) fetchFile(path string) (*domain.GraphData, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	return c.decode(codec.ForPath(path), f, path)
}

func (c *Client) decode(dec codec.Importer, r io.Reader, source string) (*domain.GraphData, error) {
	limited := &io.LimitedReader{R: r, N: c.maxBytes + 1}
	data, err := dec.Parse(limited)
	if limited.N <= 0 {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrTooLarge, source, c.maxBytes)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", source, err)
	}
	return data, nil
}

// IsRemote reports whether ref is an absolute http(s) URL.
func IsRemote(ref string) bool {
	lower := strings.ToLower(ref)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
