package formatter

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/futig/rag-chat/internal/entity"
)

func sampleTurns() []entity.Turn {
	ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	return []entity.Turn{
		{Seq: 1, Role: entity.RoleUser, Content: "What is a spherical lightning?", CreatedAt: ts},
		{Seq: 2, Role: entity.RoleAssistant, Content: "A glowing sphere.\nIt floats.", CreatedAt: ts.Add(time.Second)},
	}
}

func TestFactoryCreate(t *testing.T) {
	f := NewFactory()

	for _, format := range []entity.TranscriptFormat{entity.FormatMarkdown, entity.FormatDOCX, entity.FormatPDF} {
		if _, err := f.Create(format); err != nil {
			t.Errorf("Create(%s): %v", format, err)
		}
	}

	if _, err := f.Create("html"); !errors.Is(err, entity.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestMarkdownKeepsTurnOrder(t *testing.T) {
	out, err := NewMarkdownFormatter().Format("s1", sampleTurns())
	if err != nil {
		t.Fatalf("Format: %v", err)
	}

	text := string(out)
	first := strings.Index(text, "1. User")
	second := strings.Index(text, "2. Assistant")
	if first < 0 || second < 0 || first > second {
		t.Fatalf("turns missing or out of order:\n%s", text)
	}
	if !strings.Contains(text, "Conversation transcript: s1") {
		t.Errorf("missing title:\n%s", text)
	}
}

func TestMarkdownEmptyHistory(t *testing.T) {
	out, err := NewMarkdownFormatter().Format("s1", nil)
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	if !strings.Contains(string(out), "No messages yet.") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestPDFProducesDocument(t *testing.T) {
	out, err := NewPDFFormatter().Format("s1", sampleTurns())
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Fatalf("output is not a PDF")
	}
}

func TestDOCXProducesArchive(t *testing.T) {
	out, err := NewDOCXFormatter().Format("s1", sampleTurns())
	if err != nil {
		t.Skipf("docx rendering unavailable: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("PK")) {
		t.Fatalf("output is not a zip archive")
	}
}
