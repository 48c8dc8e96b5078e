package bot

import (
	"sync"
	"testing"

	"github.com/futig/rag-chat/internal/config"
	"github.com/futig/rag-chat/internal/telegram/handlers"
	"github.com/futig/rag-chat/internal/telegram/render"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

type fakeAPI struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, m.Text)
	}
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return make(chan tgbotapi.Update)
}

func (f *fakeAPI) StopReceivingUpdates() {}

func update(text string, command bool) tgbotapi.Update {
	msg := &tgbotapi.Message{
		MessageID: 1,
		Text:      text,
		From:      &tgbotapi.User{ID: 7},
		Chat:      &tgbotapi.Chat{ID: 7},
	}
	if command {
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(text)}}
	}
	return tgbotapi.Update{UpdateID: 1, Message: msg}
}

func newTestBot(api *fakeAPI) *Bot {
	cfg := &config.TelegramConfig{RateLimitPerMinute: 60, RateLimitBurst: 10, ShutdownTimeout: 1}
	b := New(api, cfg, zap.NewNop())
	b.RegisterHandler(handlers.NewStartHandler(api, zap.NewNop()))
	b.RegisterHandler(handlers.NewHelpHandler(api, zap.NewNop()))
	return b
}

func TestHandleUpdateRoutesCommands(t *testing.T) {
	tests := []struct {
		name string
		upd  tgbotapi.Update
		want string
	}{
		{name: "start", upd: update("/start", true), want: render.MsgWelcome},
		{name: "help", upd: update("/help", true), want: render.MsgHelp},
		{name: "unknown", upd: update("/nope", true), want: render.MsgUnknownCommand},
		{name: "no text", upd: update("", false), want: render.MsgTextOnly},
		{name: "no plain handler", upd: update("question", false), want: render.MsgUnknownCommand},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{}
			b := newTestBot(api)
			defer b.rateLimitMW.Close()

			b.HandleUpdate(tt.upd)

			if len(api.sent) != 1 || api.sent[0] != tt.want {
				t.Fatalf("sent %q, want %q", api.sent, tt.want)
			}
		})
	}
}

func TestStartRequiresPlainHandler(t *testing.T) {
	api := &fakeAPI{}
	b := newTestBot(api)
	defer b.rateLimitMW.Close()

	if err := b.Start(t.Context()); err == nil {
		t.Fatalf("Start succeeded without a handler for plain messages")
	}
}
