package formatter

import (
	"bytes"
	"os"

	"github.com/futig/rag-chat/internal/entity"
	"github.com/jung-kurt/gofpdf"
)

const (
	pdfContentType   = "application/pdf"
	pdfFileExtension = ".pdf"

	// pdfFontName is the internal name used by gofpdf
	// for the UTF-8 capable font.
	pdfFontName = "DejaVuSans"

	// Runtime layout: fonts are copied next to the binary.
	pdfFontRuntimePath = "ttf/DejaVuSans.ttf"

	// Source layout, when running from the repo root.
	pdfFontSourcePath = "internal/pkg/formatter/ttf/DejaVuSans.ttf"
)

type PDFFormatter struct {
	fontPath string
}

func NewPDFFormatter() *PDFFormatter {
	return &PDFFormatter{fontPath: resolveFontPath()}
}

// resolveFontPath looks for DejaVuSans in the runtime layout first,
// then in the source layout.
func resolveFontPath() string {
	for _, p := range []string{pdfFontRuntimePath, pdfFontSourcePath} {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func (mf *PDFFormatter) Format(sessionID string, turns []entity.Turn) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	// Core fonts are latin-1 only, so Cyrillic/CJK text needs the bundled TTF.
	fontName := "Arial"
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	if mf.fontPath != "" {
		pdf.AddUTF8Font(pdfFontName, "", mf.fontPath)
		pdf.AddUTF8Font(pdfFontName, "B", mf.fontPath)
		fontName = pdfFontName
		tr = func(s string) string { return s }
	}

	pdf.SetFont(fontName, "B", 18)
	pdf.MultiCell(0, 9, tr(title(sessionID)), "", "", false)
	pdf.SetFont(fontName, "", 9)
	pdf.Cell(0, 6, tr(generatedAt()))
	pdf.Ln(10)

	for _, t := range turns {
		pdf.SetFont(fontName, "B", 12)
		pdf.Cell(0, 7, tr(turnHeading(t)))
		pdf.Ln(8)

		pdf.SetFont(fontName, "", 11)
		_, lineHeight := pdf.GetFontSize()
		pdf.MultiCell(0, lineHeight*1.5, tr(t.Content), "", "", false)
		pdf.Ln(3)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (mf *PDFFormatter) ContentType() string {
	return pdfContentType
}

func (mf *PDFFormatter) FileExtension() string {
	return pdfFileExtension
}
