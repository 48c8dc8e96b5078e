package chat

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/futig/rag-chat/internal/entity"
	"github.com/futig/rag-chat/internal/index"
	"github.com/futig/rag-chat/internal/integration/embedding"
	"github.com/futig/rag-chat/internal/integration/llm"
	"github.com/futig/rag-chat/internal/pkg/formatter"
	"github.com/futig/rag-chat/internal/pkg/validator"
	"github.com/futig/rag-chat/internal/repository"
	chatuc "github.com/futig/rag-chat/internal/usecase/chat"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// brokenModel streams a few fragments and then fails.
type brokenModel struct{}

func (brokenModel) Complete(ctx context.Context, req *entity.LLMRequest) (string, error) {
	return "", nil
}

func (brokenModel) Stream(ctx context.Context, req *entity.LLMRequest) (entity.TokenStream, error) {
	return &failingStream{fragments: []string{"partial ", "answer "}}, nil
}

type failingStream struct {
	fragments []string
}

func (s *failingStream) Recv() (string, error) {
	if len(s.fragments) == 0 {
		return "", errors.New("upstream reset")
	}
	next := s.fragments[0]
	s.fragments = s.fragments[1:]
	return next, nil
}

func (s *failingStream) Close() error { return nil }

func newTestServer(t *testing.T, model chatuc.ChatModel) (*httptest.Server, repository.HistoryRepository) {
	t.Helper()

	history, err := repository.NewHistoryFile(t.TempDir())
	if err != nil {
		t.Fatalf("NewHistoryFile: %v", err)
	}
	if model == nil {
		model = llm.NewMockConnector(entity.NoContextReply, zap.NewNop())
	}

	uc := chatuc.NewUsecase(
		history,
		model,
		embedding.NewMockConnector(32),
		index.NewMemory(),
		formatter.NewFactory(),
		validator.NewValidator(0),
		chatuc.Options{},
		zap.NewNop(),
	)

	r := chi.NewRouter()
	RegisterRoutes(r, NewHandler(uc, 1<<16))

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, history
}

func postChat(t *testing.T, srv *httptest.Server, body string, accept string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/chat", strings.NewReader(body))
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("POST /api/chat: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestChatStreamsPlainText(t *testing.T) {
	srv, history := newTestServer(t, nil)

	resp := postChat(t, srv, `{"question":"What is a spherical lightning?","session_id":"s1"}`, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("content type = %q", ct)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if string(body) != entity.NoContextReply {
		t.Fatalf("body = %q", body)
	}
	if got := resp.Trailer.Get(StreamStatusHeader); got != StreamStatusComplete {
		t.Fatalf("trailer %s = %q", StreamStatusHeader, got)
	}

	turns, err := history.Load(context.Background(), "s1")
	if err != nil || len(turns) != 2 {
		t.Fatalf("history = %d turns, %v", len(turns), err)
	}
}

func TestChatRootAlias(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	resp, err := srv.Client().Post(srv.URL+"/", "application/json",
		strings.NewReader(`{"question":"hello","session_id":"s2"}`))
	if err != nil {
		t.Fatalf("POST /: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestChatMidStreamFailureAbortsConnection(t *testing.T) {
	srv, history := newTestServer(t, brokenModel{})

	resp := postChat(t, srv, `{"question":"q","session_id":"s1"}`, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err == nil {
		t.Fatalf("expected an abnormal end of stream, got clean body %q", body)
	}
	if !strings.HasPrefix("partial answer ", string(body)) {
		t.Fatalf("partial body = %q", body)
	}
	if got := resp.Trailer.Get(StreamStatusHeader); got != "" {
		t.Fatalf("failed stream carries trailer %q", got)
	}

	turns, err := history.Load(context.Background(), "s1")
	if err != nil || len(turns) != 0 {
		t.Fatalf("history = %d turns, %v", len(turns), err)
	}
}

func TestChatServerSentEvents(t *testing.T) {
	srv, _ := newTestServer(t, brokenModel{})

	resp := postChat(t, srv, `{"question":"q","session_id":"s1"}`, "text/event-stream")
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}

	var events []entity.StreamEvent
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev entity.StreamEvent
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev); err != nil {
			t.Fatalf("decode event %q: %v", line, err)
		}
		events = append(events, ev)
	}

	if len(events) != 3 {
		t.Fatalf("got %d events: %+v", len(events), events)
	}
	if events[0].Type != entity.StreamEventChunk || events[0].Content != "partial " {
		t.Fatalf("first event = %+v", events[0])
	}
	last := events[len(events)-1]
	if last.Type != entity.StreamEventError || last.Error != entity.ErrGenerationUnavailable.Error() {
		t.Fatalf("last event = %+v", last)
	}
}

func TestChatRejectsBadRequests(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	tests := []struct {
		name string
		body string
	}{
		{name: "malformed json", body: `{"question":`},
		{name: "empty question", body: `{"question":"   ","session_id":"s1"}`},
		{name: "missing session", body: `{"question":"q"}`},
		{name: "bad session id", body: `{"question":"q","session_id":"../etc"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postChat(t, srv, tt.body, "")
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", resp.StatusCode)
			}
			var errResp entity.ErrorResponse
			if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if errResp.Error == "" {
				t.Fatalf("empty error body")
			}
		})
	}
}

func TestGetHistory(t *testing.T) {
	srv, history := newTestServer(t, nil)
	if err := history.Append(context.Background(), "s1",
		entity.Turn{Role: entity.RoleUser, Content: "question"},
		entity.Turn{Role: entity.RoleAssistant, Content: "answer"},
	); err != nil {
		t.Fatalf("Append: %v", err)
	}

	resp, err := srv.Client().Get(srv.URL + "/api/sessions/s1/history")
	if err != nil {
		t.Fatalf("GET history: %v", err)
	}
	defer resp.Body.Close()

	var got entity.HistoryResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.SessionID != "s1" || len(got.Turns) != 2 {
		t.Fatalf("history = %+v", got)
	}
	if got.Turns[0].Seq != 1 || got.Turns[1].Role != entity.RoleAssistant {
		t.Fatalf("turns = %+v", got.Turns)
	}

	resp, err = srv.Client().Get(srv.URL + "/api/sessions/unknown/history")
	if err != nil {
		t.Fatalf("GET unknown history: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unknown session status = %d", resp.StatusCode)
	}
}

func TestGetTranscript(t *testing.T) {
	srv, history := newTestServer(t, nil)
	if err := history.Append(context.Background(), "s1",
		entity.Turn{Role: entity.RoleUser, Content: "question"},
		entity.Turn{Role: entity.RoleAssistant, Content: "answer"},
	); err != nil {
		t.Fatalf("Append: %v", err)
	}

	resp, err := srv.Client().Get(srv.URL + "/api/sessions/s1/transcript?format=markdown")
	if err != nil {
		t.Fatalf("GET transcript: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, `filename="s1.md"`) {
		t.Fatalf("content disposition = %q", cd)
	}

	resp, err = srv.Client().Get(srv.URL + "/api/sessions/s1/transcript?format=odt")
	if err != nil {
		t.Fatalf("GET transcript: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unsupported format status = %d", resp.StatusCode)
	}
}
