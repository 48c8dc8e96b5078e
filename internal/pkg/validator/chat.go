package validator

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/futig/rag-chat/internal/entity"
)

const (
	DefaultMaxQuestionRunes = 4000
	MaxSessionIDLength      = 128
)

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_.:-]+$`)

// Validator checks requests at the transport boundary
type Validator struct {
	maxQuestionRunes int
}

func NewValidator(maxQuestionRunes int) *Validator {
	if maxQuestionRunes <= 0 {
		maxQuestionRunes = DefaultMaxQuestionRunes
	}
	return &Validator{maxQuestionRunes: maxQuestionRunes}
}

// ValidatePipelineRequest validates the question and session id of a chat call
func (v *Validator) ValidatePipelineRequest(req *entity.PipelineRequest) error {
	if req == nil {
		return entity.ErrInvalidRequest
	}

	if strings.TrimSpace(req.Question) == "" {
		return entity.ErrEmptyQuestion
	}

	if n := utf8.RuneCountInString(req.Question); n > v.maxQuestionRunes {
		return fmt.Errorf("%w: %d characters, limit %d", entity.ErrQuestionTooLong, n, v.maxQuestionRunes)
	}

	return v.ValidateSessionID(req.SessionID)
}

// ValidateSessionID accepts 1..128 characters of [A-Za-z0-9_.:-]
func (v *Validator) ValidateSessionID(sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("%w: session_id is required", entity.ErrInvalidSessionID)
	}
	if len(sessionID) > MaxSessionIDLength {
		return fmt.Errorf("%w: longer than %d characters", entity.ErrInvalidSessionID, MaxSessionIDLength)
	}
	if !sessionIDPattern.MatchString(sessionID) {
		return fmt.Errorf("%w: %q contains unsupported characters", entity.ErrInvalidSessionID, sessionID)
	}
	return nil
}

// ValidateTranscriptFormat defaults an empty format to markdown
func (v *Validator) ValidateTranscriptFormat(format string) (entity.TranscriptFormat, error) {
	if format == "" {
		return entity.FormatMarkdown, nil
	}
	f := entity.TranscriptFormat(strings.ToLower(format))
	if !f.IsValid() {
		return "", fmt.Errorf("%w: %s", entity.ErrUnsupportedFormat, format)
	}
	return f, nil
}
