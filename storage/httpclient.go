package storage

import (
	"fmt"
	"net/http"
	"time"

	"golang.org/x/net/http2"
)

// newHTTPClient creates the HTTP client shared by every worker of a session.
// Connection limits are sized for many concurrent part uploads against a
// single endpoint, and HTTP/2 is enabled on the transport.
func newHTTPClient() (*http.Client, error) {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          200,
		MaxIdleConnsPerHost:   50,
		MaxConnsPerHost:       100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	if err := http2.ConfigureTransport(transport); err != nil {
		return nil, fmt.Errorf("configure HTTP/2: %w", err)
	}

	// No overall timeout: a single part of a large block size can take
	// minutes on a throttled link. Cancellation comes from the request context.
	return &http.Client{Transport: transport}, nil
}
