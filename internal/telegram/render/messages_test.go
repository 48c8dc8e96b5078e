package render

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/futig/rag-chat/internal/entity"
)

func TestSessionID(t *testing.T) {
	if got := SessionID(-100123); got != "tg--100123" {
		t.Fatalf("SessionID = %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 10); got != "short" {
		t.Fatalf("Truncate = %q", got)
	}
	if got := Truncate("абвгдеж", 4); got != "абв…" {
		t.Fatalf("Truncate = %q", got)
	}
}

func TestSplitPrefersLineBreaks(t *testing.T) {
	text := strings.Repeat("a", 6) + "\n" + strings.Repeat("b", 6)
	parts := Split(text, 10)
	if len(parts) != 2 || parts[0] != "aaaaaa\n" || parts[1] != "bbbbbb" {
		t.Fatalf("Split = %q", parts)
	}

	for _, p := range Split(strings.Repeat("я", 25), 10) {
		if utf8.RuneCountInString(p) > 10 {
			t.Fatalf("part %q is too long", p)
		}
	}

	if parts := Split("", 10); len(parts) != 1 {
		t.Fatalf("Split empty = %q", parts)
	}
}

func TestHistoryKeepsLastTurns(t *testing.T) {
	turns := []entity.Turn{
		{Role: entity.RoleUser, Content: "first"},
		{Role: entity.RoleAssistant, Content: "second"},
		{Role: entity.RoleUser, Content: "third"},
	}

	got := History(turns, 2)
	if strings.Contains(got, "first") || !strings.Contains(got, "second") || !strings.Contains(got, "third") {
		t.Fatalf("History = %q", got)
	}
	if History(nil, 2) != MsgHistoryEmpty {
		t.Fatalf("empty history not reported")
	}
}

func TestHistoryMarksEmptyAnswer(t *testing.T) {
	turns := []entity.Turn{
		{Role: entity.RoleUser, Content: "anything?"},
		{Role: entity.RoleAssistant, Content: ""},
	}

	got := History(turns, 0)
	if !strings.HasSuffix(got, MsgEmptyAnswer) {
		t.Fatalf("History = %q", got)
	}
	if Answer(" \n") != MsgEmptyAnswer || Answer("yes") != "yes" {
		t.Fatalf("Answer marker not applied")
	}
}
