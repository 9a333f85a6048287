// Package httpclient builds the HTTP client used for AI service calls.
package httpclient

import (
	"context"
	"net"
	"net/http"
	"time"
)

// Options tunes the client. Image generation is slow, so the default
// timeout is generous.
type Options struct {
	PreferIPv4 bool
	Timeout    time.Duration
}

// New returns a client with pooled connections and dial/TLS/header timeouts.
func New(opts Options) *http.Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 180 * time.Second
	}

	dialer := &net.Dialer{
		Timeout:   15 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialContext(dialer, opts.PreferIPv4),
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          32,
		MaxIdleConnsPerHost:   8,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   15 * time.Second,
		ResponseHeaderTimeout: 120 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// dialContext forces tcp4 when preferIPv4 is set. Some networks advertise
// IPv6 routes that never connect.
func dialContext(d *net.Dialer, preferIPv4 bool) func(ctx context.Context, network, addr string) (net.Conn, error) {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		if preferIPv4 && (network == "tcp" || network == "tcp6") {
			network = "tcp4"
		}
		return d.DialContext(ctx, network, addr)
	}
}
