package entity

import (
	"time"
)

type TranscriptFormat string

const (
	FormatMarkdown TranscriptFormat = "markdown"
	FormatDOCX     TranscriptFormat = "docx"
	FormatPDF      TranscriptFormat = "pdf"
)

func (f TranscriptFormat) IsValid() bool {
	switch f {
	case FormatMarkdown, FormatDOCX, FormatPDF:
		return true
	default:
		return false
	}
}

// Transcript is a rendered session history ready to be downloaded.
type Transcript struct {
	Data        []byte
	ContentType string
	FileName    string
}

type ChatRequest struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type TurnDTO struct {
	ID        string    `json:"id"`
	Seq       int64     `json:"seq"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type HistoryResponse struct {
	SessionID string    `json:"session_id"`
	Turns     []TurnDTO `json:"turns"`
}

// StreamEvent is the payload of a server-sent event on the chat endpoint.
type StreamEvent struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
}

const (
	StreamEventChunk = "chunk"
	StreamEventDone  = "done"
	StreamEventError = "error"
)
