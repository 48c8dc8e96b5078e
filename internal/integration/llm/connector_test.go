package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/futig/rag-chat/internal/config"
	"github.com/futig/rag-chat/internal/entity"
	"go.uber.org/zap"
)

func testLLMConfig(url string) config.LLMConfig {
	return config.LLMConfig{
		HTTPClientConfig: config.HTTPClientConfig{
			RequestTimeout:        5 * time.Second,
			ConnTimeout:           time.Second,
			KeepAlive:             time.Second,
			IdleConnTimeout:       time.Second,
			ResponseHeaderTimeout: 5 * time.Second,
			Token:                 "test-key",
			Url:                   url,
		},
		Model: "test-model",
	}
}

func testRequest() *entity.LLMRequest {
	return &entity.LLMRequest{
		System:      "system prompt",
		Messages:    []entity.Message{{Role: entity.RoleUser, Content: "hello"}},
		Temperature: 0.2,
	}
}

func TestOpenAIComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("missing api key")
		}

		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		if body.Model != "test-model" || len(body.Messages) != 2 || body.Messages[0].Role != "system" {
			t.Errorf("unexpected request %+v", body)
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"standalone?"},"finish_reason":"stop"}]}`)
	}))
	defer srv.Close()

	c := NewOpenAIConnector(testLLMConfig(srv.URL+"/v1"), "", zap.NewNop())

	out, err := c.Complete(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != "standalone?" {
		t.Fatalf("unexpected completion %q", out)
	}
}

func TestOpenAIStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, part := range []string{"", "Hel", "lo"} {
			fmt.Fprintf(w, "data: {\"id\":\"1\",\"object\":\"chat.completion.chunk\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", part)
			flusher.Flush()
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	c := NewOpenAIConnector(testLLMConfig(srv.URL+"/v1"), "", zap.NewNop())

	stream, err := c.Stream(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	defer stream.Close()

	var parts []string
	for {
		text, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Recv: %v", err)
		}
		parts = append(parts, text)
	}
	if strings.Join(parts, "|") != "Hel|lo" {
		t.Fatalf("unexpected fragments %v", parts)
	}
}

func TestOllamaStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/x-ndjson")
		flusher := w.(http.Flusher)
		for _, part := range []string{"Ball ", "lightning"} {
			fmt.Fprintf(w, "{\"model\":\"test-model\",\"message\":{\"role\":\"assistant\",\"content\":%q},\"done\":false}\n", part)
			flusher.Flush()
		}
		fmt.Fprint(w, "{\"model\":\"test-model\",\"message\":{\"role\":\"assistant\",\"content\":\"\"},\"done\":true}\n")
	}))
	defer srv.Close()

	c, err := NewOllamaConnector(testLLMConfig(srv.URL), "", zap.NewNop())
	if err != nil {
		t.Fatalf("NewOllamaConnector: %v", err)
	}

	stream, err := c.Stream(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	defer stream.Close()

	var sb strings.Builder
	for {
		text, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Recv: %v", err)
		}
		sb.WriteString(text)
	}
	if sb.String() != "Ball lightning" {
		t.Fatalf("unexpected answer %q", sb.String())
	}
}

func TestOllamaStreamCloseStopsProducer(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		fmt.Fprint(w, "{\"message\":{\"role\":\"assistant\",\"content\":\"partial\"},\"done\":false}\n")
		flusher.Flush()
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	c, _ := NewOllamaConnector(testLLMConfig(srv.URL), "", zap.NewNop())
	stream, err := c.Stream(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}

	if text, err := stream.Recv(); err != nil || text != "partial" {
		t.Fatalf("first Recv = %q, %v", text, err)
	}
	stream.Close()

	done := make(chan error, 1)
	go func() {
		_, err := stream.Recv()
		done <- err
	}()
	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected an error after Close")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Recv blocked after Close")
	}
}
