package http

import "net/http"

// bearerTransport adds a bearer token to requests that carry no
// Authorization header yet. SDK clients that authenticate themselves are
// left untouched.
type bearerTransport struct {
	token string
	next  http.RoundTripper
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("Authorization") != "" {
		return t.next.RoundTrip(req)
	}

	authed := req.Clone(req.Context())
	authed.Header.Set("Authorization", "Bearer "+t.token)
	return t.next.RoundTrip(authed)
}

// WithAuthToken authenticates requests with token. An empty token is a no-op,
// so callers can pass optional configuration straight through.
func WithAuthToken(token string) HttpOpts {
	if token == "" {
		return func(*httpConfig) {}
	}
	return WithTransport(func(rt http.RoundTripper) http.RoundTripper {
		return &bearerTransport{token: token, next: rt}
	})
}
