package esologs

import (
	"net/http"

	"golang.org/x/time/rate"

	"github.com/tamrielmeta/buildscry/pkg/logger"
)

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. It bypasses the
// OAuth2 token source, so it is mainly useful for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.httpClient = c
		}
	}
}

// WithEndpoint sets the GraphQL endpoint URL.
func WithEndpoint(url string) Option {
	return func(cl *Client) {
		if url != "" {
			cl.endpoint = url
		}
	}
}

// WithTokenURL sets the OAuth2 token URL.
func WithTokenURL(url string) Option {
	return func(cl *Client) {
		if url != "" {
			cl.tokenURL = url
		}
	}
}

// WithRateLimit sets the request pacing in requests per second plus an
// allowed burst.
func WithRateLimit(rps float64, burst int) Option {
	return func(cl *Client) {
		if rps > 0 && burst > 0 {
			cl.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// WithCacheSize sets the number of responses held in memory.
func WithCacheSize(size int) Option {
	return func(cl *Client) {
		if size > 0 {
			cl.cacheSize = size
		}
	}
}

// WithCacheDir sets the directory for the disk cache tier. An empty
// directory disables the disk tier.
func WithCacheDir(dir string) Option {
	return func(cl *Client) {
		cl.cacheDir = dir
	}
}

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(cl *Client) {
		if log != nil {
			cl.log = log
		}
	}
}
