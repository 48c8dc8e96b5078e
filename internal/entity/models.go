package entity

import (
	"fmt"
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

func (r Role) Validate() error {
	switch r {
	case RoleUser, RoleAssistant:
		return nil
	default:
		return fmt.Errorf("unknown turn role: %s", r)
	}
}

// Turn is one persisted message of a session. Seq is assigned by the history
// store on append and strictly increases within a session.
type Turn struct {
	ID        string    `json:"id"`
	Seq       int64     `json:"seq"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Message is a single entry of a model conversation.
type Message struct {
	Role    Role
	Content string
}

// TurnsToMessages converts stored history into model messages, oldest first.
func TurnsToMessages(turns []Turn) []Message {
	messages := make([]Message, 0, len(turns))
	for _, t := range turns {
		messages = append(messages, Message{Role: t.Role, Content: t.Content})
	}
	return messages
}

// PipelineRequest is the only input of the chat pipeline.
type PipelineRequest struct {
	Question  string
	SessionID string
}
