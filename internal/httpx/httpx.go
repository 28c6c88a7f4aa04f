// Package httpx provides the shared http.Client used by upstream clients
// that are not built on resty. Every request carries the process user agent
// and inherits the tuned transport below; the overall per-request timeout is
// the caller's hard cancellation bound.
package httpx

import (
	"net"
	"net/http"
	"time"
)

// New returns an http.Client with a tuned transport and the given overall
// timeout.
func New(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   3 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
		ForceAttemptHTTP2:     true,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   3 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
	}
	return &http.Client{Timeout: timeout, Transport: &uaTransport{base: transport}}
}

const userAgent = "marketdata/1.0"

// uaTransport stamps the default user agent on requests that lack one.
type uaTransport struct {
	base http.RoundTripper
}

func (t *uaTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", userAgent)
	}
	return t.base.RoundTrip(req)
}
