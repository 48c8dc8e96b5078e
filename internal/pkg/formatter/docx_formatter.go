package formatter

import (
	"bytes"
	"strings"

	"github.com/futig/rag-chat/internal/entity"
	"github.com/unidoc/unioffice/document"
)

const (
	docxContentType   = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	docxFileExtension = ".docx"
)

type DOCXFormatter struct{}

func NewDOCXFormatter() *DOCXFormatter {
	return &DOCXFormatter{}
}

func (mf *DOCXFormatter) Format(sessionID string, turns []entity.Turn) ([]byte, error) {
	doc := document.New()
	defer doc.Close()

	titlePar := doc.AddParagraph()
	titlePar.SetStyle("Heading1")
	titlePar.AddRun().AddText(title(sessionID))

	doc.AddParagraph().AddRun().AddText(generatedAt())

	for _, t := range turns {
		heading := doc.AddParagraph()
		heading.SetStyle("Heading2")
		heading.AddRun().AddText(turnHeading(t))

		// one run per line, docx does not honour "\n" inside a text node
		body := doc.AddParagraph()
		run := body.AddRun()
		for i, line := range strings.Split(t.Content, "\n") {
			if i > 0 {
				run.AddBreak()
			}
			run.AddText(line)
		}
	}

	var buf bytes.Buffer
	if err := doc.Save(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (mf *DOCXFormatter) ContentType() string {
	return docxContentType
}

func (mf *DOCXFormatter) FileExtension() string {
	return docxFileExtension
}
