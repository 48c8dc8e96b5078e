package tui

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	chatapi "github.com/futig/rag-chat/internal/api/chat"
	"github.com/futig/rag-chat/internal/entity"
	pkgHTTP "github.com/futig/rag-chat/pkg/http"
	"go.uber.org/zap"
)

// ErrIncomplete means the server closed the answer stream without marking
// it complete. The partial answer was not saved.
var ErrIncomplete = errors.New("answer stream ended before completion")

const readBufferSize = 1024

// Client talks to the chat HTTP API.
type Client struct {
	conn *pkgHTTP.Connector
}

// NewClient creates a client for the server at baseURL. Streams have no
// overall deadline; headerTimeout bounds the wait for the first fragment.
func NewClient(baseURL string, headerTimeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		conn: pkgHTTP.NewConnector(
			&pkgHTTP.ConnectorConfig{BaseURL: baseURL, Logger: logger},
			pkgHTTP.WithRequestTimeout(0),
			pkgHTTP.WithResponseHeaderTimeout(headerTimeout),
		),
	}
}

// Ask streams the answer to question, calling onChunk for every piece of
// text as it arrives.
func (c *Client) Ask(ctx context.Context, sessionID, question string, onChunk func(string)) error {
	resp, err := c.conn.DoStream(ctx, http.MethodPost, "/api/chat", &entity.ChatRequest{
		Question:  question,
		SessionID: sessionID,
	}, pkgHTTP.WithHeader("Accept", "text/plain"))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	buf := make([]byte, readBufferSize)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			onChunk(string(buf[:n]))
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return errors.Join(ErrIncomplete, err)
		}
	}

	// trailers are only populated once the body has been read to EOF
	if resp.Trailer.Get(chatapi.StreamStatusHeader) != chatapi.StreamStatusComplete {
		return ErrIncomplete
	}
	return nil
}

// History returns the stored turns of a session.
func (c *Client) History(ctx context.Context, sessionID string) ([]entity.TurnDTO, error) {
	var resp entity.HistoryResponse
	endpoint := "/api/sessions/" + url.PathEscape(sessionID) + "/history"
	if err := c.conn.DoRequest(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Turns, nil
}
