package validator

import (
	"errors"
	"strings"
	"testing"

	"github.com/futig/rag-chat/internal/entity"
)

func TestValidatePipelineRequest(t *testing.T) {
	v := NewValidator(10)

	tests := []struct {
		name    string
		req     *entity.PipelineRequest
		wantErr error
	}{
		{"nil", nil, entity.ErrInvalidRequest},
		{"empty question", &entity.PipelineRequest{Question: "   ", SessionID: "s1"}, entity.ErrEmptyQuestion},
		{"too long", &entity.PipelineRequest{Question: strings.Repeat("я", 11), SessionID: "s1"}, entity.ErrQuestionTooLong},
		{"missing session", &entity.PipelineRequest{Question: "hi"}, entity.ErrInvalidSessionID},
		{"bad session", &entity.PipelineRequest{Question: "hi", SessionID: "../etc"}, entity.ErrInvalidSessionID},
		{"ok", &entity.PipelineRequest{Question: "hi", SessionID: "tg-42"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidatePipelineRequest(tt.req)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateTranscriptFormat(t *testing.T) {
	v := NewValidator(0)

	f, err := v.ValidateTranscriptFormat("")
	if err != nil || f != entity.FormatMarkdown {
		t.Fatalf("expected markdown default, got %q, %v", f, err)
	}

	f, err = v.ValidateTranscriptFormat("PDF")
	if err != nil || f != entity.FormatPDF {
		t.Fatalf("expected pdf, got %q, %v", f, err)
	}

	if _, err := v.ValidateTranscriptFormat("html"); !errors.Is(err, entity.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}
