package common

import (
	"net/http"

	"github.com/futig/rag-chat/internal/config"
	pkgHTTP "github.com/futig/rag-chat/pkg/http"
)

func clientOptions(cfg config.HTTPClientConfig, proxyURL string) []pkgHTTP.HttpOpts {
	return []pkgHTTP.HttpOpts{
		pkgHTTP.WithRequestTimeout(cfg.RequestTimeout),
		pkgHTTP.WithConnClientTimeout(cfg.ConnTimeout),
		pkgHTTP.WithClientKeepAlive(cfg.KeepAlive),
		pkgHTTP.WithIdleConnTimeout(cfg.IdleConnTimeout),
		pkgHTTP.WithResponseHeaderTimeout(cfg.ResponseHeaderTimeout),
		pkgHTTP.WithProxy(proxyURL),
		pkgHTTP.WithAuthToken(cfg.Token),
		pkgHTTP.WithRequestLogging(),
	}
}

// NewHTTPClient builds the http.Client handed to model SDK clients. The
// OpenAI SDK sets its own Authorization header; the token transport covers
// Ollama servers behind an authenticating proxy.
func NewHTTPClient(cfg config.HTTPClientConfig, proxyURL string) *http.Client {
	return pkgHTTP.NewClient(clientOptions(cfg, proxyURL)...)
}
