package formatter

import (
	"bytes"
	"fmt"

	"github.com/futig/rag-chat/internal/entity"
)

const (
	markdownContentType   = "text/markdown; charset=utf-8"
	markdownFileExtension = ".md"
)

type MarkdownFormatter struct{}

func NewMarkdownFormatter() *MarkdownFormatter {
	return &MarkdownFormatter{}
}

func (mf *MarkdownFormatter) Format(sessionID string, turns []entity.Turn) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# %s\n\n_%s_\n", title(sessionID), generatedAt())

	if len(turns) == 0 {
		buf.WriteString("\nNo messages yet.\n")
		return buf.Bytes(), nil
	}

	for _, t := range turns {
		fmt.Fprintf(&buf, "\n## %s\n\n%s\n", turnHeading(t), t.Content)
	}
	return buf.Bytes(), nil
}

func (mf *MarkdownFormatter) ContentType() string {
	return markdownContentType
}

func (mf *MarkdownFormatter) FileExtension() string {
	return markdownFileExtension
}
