package render

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/futig/rag-chat/internal/entity"
)

// MaxMessageRunes is the Telegram limit for a single text message.
const MaxMessageRunes = 4096

const (
	MsgWelcome = `👋 Hi! Ask me anything about the documents I was given.

I answer strictly from those documents and remember the conversation, so follow-up questions like "and why is that?" work too.`

	MsgHelp = `🤖 Commands:

/start - Show the welcome message
/help - Show this help
/history - Show the last messages of this chat
/transcript [markdown|docx|pdf] - Download the whole conversation

Any other text is treated as a question.`

	MsgThinking         = "⏳ Looking through the documents..."
	MsgHistoryEmpty     = "📭 No messages yet. Ask a question to start."
	MsgTextOnly         = "✍️ I can only answer text questions."
	MsgUnknownCommand   = "❌ Unknown command. Use /help"
	MsgAnswerPartial    = "\n\n⚠️ The answer was interrupted and was not saved. Please ask again."
	MsgAnswerNotSaved   = "\n\n⚠️ This answer could not be saved to the conversation history."
	MsgStreamingCursor  = " ▌"
	MsgEmptyAnswer      = "🤷 (empty answer)"
	MsgRateLimited      = "⚠️ Too many questions. Please wait a little."
	MsgRateLimitedAgain = "🛑 You are sending questions too often. Please wait a minute."

	ErrGeneric            = "❌ Something went wrong. Please try again."
	ErrInvalidQuestion    = "❌ The question is empty or too long."
	ErrUnsupportedFormat  = "❌ Unknown format. Use markdown, docx or pdf."
	ErrHistoryUnavailable = "❌ The conversation history is unavailable right now. Please try again later."
	ErrSearchUnavailable  = "❌ The document search is unavailable right now. Please try again later."
	ErrModelUnavailable   = "❌ The language model is unavailable right now. Please try again later."
	ErrTimeout            = "⏱ The request took too long. Please try again."
)

// SessionID maps a Telegram chat to a pipeline session.
func SessionID(chatID int64) string {
	return "tg-" + strconv.FormatInt(chatID, 10)
}

// History renders the last turns of a chat, oldest first.
func History(turns []entity.Turn, limit int) string {
	if len(turns) == 0 {
		return MsgHistoryEmpty
	}
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}

	var b strings.Builder
	for i, t := range turns {
		if i > 0 {
			b.WriteString("\n\n")
		}
		icon, content := "🙋", t.Content
		if t.Role == entity.RoleAssistant {
			icon, content = "🤖", Answer(t.Content)
		}
		fmt.Fprintf(&b, "%s %s", icon, Truncate(content, 600))
	}
	return Truncate(b.String(), MaxMessageRunes)
}

// Answer is how an assistant reply is shown. Telegram rejects empty
// messages, so a blank answer gets a marker, both live and in /history.
func Answer(text string) string {
	if strings.TrimSpace(text) == "" {
		return MsgEmptyAnswer
	}
	return text
}

// Truncate cuts s to at most n runes, marking the cut with an ellipsis.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}

// Split breaks a long answer into Telegram-sized messages, preferring line
// breaks as cut points.
func Split(s string, n int) []string {
	var parts []string
	for utf8.RuneCountInString(s) > n {
		r := []rune(s)
		cut := n
		if i := strings.LastIndex(string(r[:n]), "\n"); i > 0 {
			cut = utf8.RuneCountInString(string(r[:n])[:i]) + 1
		}
		parts = append(parts, string(r[:cut]))
		s = string(r[cut:])
	}
	if s != "" || len(parts) == 0 {
		parts = append(parts, s)
	}
	return parts
}
