package http

import (
	"net/url"
	"time"
)

type HttpOpts func(*httpConfig)

func WithConnClientTimeout(timeout time.Duration) HttpOpts {
	return func(c *httpConfig) {
		c.dialTimeout = timeout
	}
}

// WithRequestTimeout bounds a whole exchange, body included. Zero disables
// it, which streaming clients need.
func WithRequestTimeout(timeout time.Duration) HttpOpts {
	return func(c *httpConfig) {
		c.requestTimeout = timeout
	}
}

func WithClientKeepAlive(keepAlive time.Duration) HttpOpts {
	return func(c *httpConfig) {
		c.keepAlive = keepAlive
	}
}

// WithResponseHeaderTimeout bounds the wait for response headers. For the
// chat endpoint that is the time to the first answer fragment.
func WithResponseHeaderTimeout(timeout time.Duration) HttpOpts {
	return func(c *httpConfig) {
		c.responseHeaderTimeout = timeout
	}
}

func WithIdleConnTimeout(timeout time.Duration) HttpOpts {
	return func(c *httpConfig) {
		c.idleConnTimeout = timeout
	}
}

// WithTransport wraps the transport. Wrappers apply in the order given, so
// the last one sees the request first.
func WithTransport(transport TransportFunc) HttpOpts {
	return func(c *httpConfig) {
		c.wrappers = append(c.wrappers, transport)
	}
}

// WithProxy routes requests through the given proxy. An empty or
// unparsable URL leaves the environment proxy settings in place.
func WithProxy(rawURL string) HttpOpts {
	return func(c *httpConfig) {
		if rawURL == "" {
			return
		}
		u, err := url.Parse(rawURL)
		if err != nil || u.Host == "" {
			return
		}
		c.proxyURL = u
	}
}
