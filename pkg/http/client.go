package http

import (
	"net"
	"net/http"
	"net/url"
	"time"
)

type TransportFunc func(http.RoundTripper) http.RoundTripper

type httpConfig struct {
	dialTimeout           time.Duration
	keepAlive             time.Duration
	requestTimeout        time.Duration
	responseHeaderTimeout time.Duration
	idleConnTimeout       time.Duration
	proxyURL              *url.URL
	wrappers              []TransportFunc
}

func defaultHTTPConfig() *httpConfig {
	return &httpConfig{
		dialTimeout:           30 * time.Second,
		keepAlive:             90 * time.Second,
		requestTimeout:        30 * time.Second,
		responseHeaderTimeout: 10 * time.Second,
		idleConnTimeout:       90 * time.Second,
	}
}

// NewClient builds an *http.Client from options. It is shared by the
// Connector and by SDK clients that accept a custom http.Client.
func NewClient(opts ...HttpOpts) *http.Client {
	cfg := defaultHTTPConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	dialer := &net.Dialer{
		Timeout:   cfg.dialTimeout,
		KeepAlive: cfg.keepAlive,
	}

	proxy := http.ProxyFromEnvironment
	if cfg.proxyURL != nil {
		proxy = http.ProxyURL(cfg.proxyURL)
	}

	var transport http.RoundTripper = &http.Transport{
		Proxy:                 proxy,
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.responseHeaderTimeout,
		IdleConnTimeout:       cfg.idleConnTimeout,
		// streamed answers are read as they arrive
		DisableCompression: true,
	}
	for _, wrap := range cfg.wrappers {
		transport = wrap(transport)
	}

	return &http.Client{
		Timeout:   cfg.requestTimeout,
		Transport: transport,
	}
}
