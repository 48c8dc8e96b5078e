package common

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"
)

const defaultOllamaURL = "http://localhost:11434"

// NewOllamaClient builds an API client for rawURL, defaulting to the local daemon.
func NewOllamaClient(rawURL string, httpClient *http.Client) (*api.Client, error) {
	if rawURL == "" {
		rawURL = defaultOllamaURL
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse ollama url: %w", err)
	}

	return api.NewClient(u, httpClient), nil
}
