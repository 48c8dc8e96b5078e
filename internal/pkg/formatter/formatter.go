package formatter

import (
	"fmt"
	"time"

	"github.com/futig/rag-chat/internal/entity"
)

const (
	baseTitle  = "Conversation transcript"
	timeLayout = "2006-01-02 15:04:05"
)

// Formatter renders a session history into a downloadable document
type Formatter interface {
	Format(sessionID string, turns []entity.Turn) ([]byte, error)
	ContentType() string
	FileExtension() string
}

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Create(format entity.TranscriptFormat) (Formatter, error) {
	switch format {
	case entity.FormatMarkdown:
		return NewMarkdownFormatter(), nil
	case entity.FormatDOCX:
		return NewDOCXFormatter(), nil
	case entity.FormatPDF:
		return NewPDFFormatter(), nil
	default:
		return nil, fmt.Errorf("%w: %s", entity.ErrUnsupportedFormat, format)
	}
}

func roleLabel(role entity.Role) string {
	switch role {
	case entity.RoleUser:
		return "User"
	case entity.RoleAssistant:
		return "Assistant"
	default:
		return string(role)
	}
}

func turnHeading(t entity.Turn) string {
	if t.CreatedAt.IsZero() {
		return fmt.Sprintf("%d. %s", t.Seq, roleLabel(t.Role))
	}
	return fmt.Sprintf("%d. %s (%s)", t.Seq, roleLabel(t.Role), t.CreatedAt.UTC().Format(timeLayout))
}

func title(sessionID string) string {
	return fmt.Sprintf("%s: %s", baseTitle, sessionID)
}

func generatedAt() string {
	return "Generated " + time.Now().UTC().Format(timeLayout) + " UTC"
}
