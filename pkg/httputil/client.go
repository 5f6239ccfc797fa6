// Package httputil provides HTTP client utilities with standard configurations.
package httputil

import (
	"net/http"
	"time"
)

const (
	// Default timeout for metadata API requests
	defaultTimeout = 10 * time.Second

	// Transport configuration constants
	maxIdleConns        = 10
	maxIdleConnsPerHost = 4
	idleConnTimeout     = 30 * time.Second
)

// NewHTTPClient creates a new HTTP client with the specified timeout.
// The client is configured with connection pooling and idle connection management.
// A non-positive timeout falls back to the default. When userAgent is not
// empty it is sent on every request that does not set its own.
func NewHTTPClient(timeout time.Duration, userAgent string) *http.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	var transport http.RoundTripper = &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        maxIdleConns,
		MaxIdleConnsPerHost: maxIdleConnsPerHost,
		IdleConnTimeout:     idleConnTimeout,
	}
	if userAgent != "" {
		transport = &userAgentTransport{base: transport, userAgent: userAgent}
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

type userAgentTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") != "" {
		return t.base.RoundTrip(req)
	}
	// RoundTrippers must not modify the caller's request
	r := req.Clone(req.Context())
	r.Header.Set("User-Agent", t.userAgent)
	return t.base.RoundTrip(r)
}
