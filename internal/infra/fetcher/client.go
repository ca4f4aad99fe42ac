package fetcher

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"time"

	"deltawatch/internal/domain/entity"
	"deltawatch/internal/observability/tracing"

	"golang.org/x/oauth2"
)

// ErrTooManyRedirects is returned when a redirect chain exceeds MaxRedirects.
var ErrTooManyRedirects = errors.New("too many redirects")

// NewHTTPClient creates the HTTP client used for fetching.
//
// The client enforces TLS 1.2+, pools connections, traces every request
// and validates each redirect target against cfg before following it.
// It has no overall timeout: every attempt carries its own deadline.
func NewHTTPClient(cfg Config) *http.Client {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	}

	return &http.Client{
		Transport: tracing.NewTransport(transport),
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= cfg.MaxRedirects {
				return fmt.Errorf("%w: stopped after %d", ErrTooManyRedirects, len(via))
			}
			if err := entity.ValidateRequestURL(req.URL.String(), cfg.DenyPrivateIPs); err != nil {
				return fmt.Errorf("redirect target validation failed: %w", err)
			}
			return nil
		},
	}
}

// NewTokenClient returns a copy of base that authenticates every request with
// a static bearer token. An empty token returns base unchanged.
func NewTokenClient(base *http.Client, token string) *http.Client {
	if token == "" {
		return base
	}
	return &http.Client{
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}),
			Base:   base.Transport,
		},
		CheckRedirect: base.CheckRedirect,
		Jar:           base.Jar,
		Timeout:       base.Timeout,
	}
}
