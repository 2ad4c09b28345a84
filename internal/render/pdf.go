package render

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/go-pdf/fpdf"

	"github.com/taqrir/reportbot/internal/model/report"
)

// ErrRendering signals a malformed spec reaching the renderer. The
// assembler's output contract makes this an internal invariant violation.
var ErrRendering = errors.New("malformed report spec")

const (
	documentTitle  = "التقرير الأكاديمي"
	embeddedFamily = "report"
)

// PDFRenderer turns a report spec into a PDF document. When a TTF path
// is configured the font is embedded so Arabic text renders; the core
// fonts cover only Latin scripts.
type PDFRenderer struct {
	fontPath string
}

// NewPDF returns a renderer. An empty font path falls back to the
// built-in Helvetica.
func NewPDF(fontPath string) *PDFRenderer {
	return &PDFRenderer{fontPath: fontPath}
}

// Render lays out the cover block and body text, padding the document so
// it holds at least the derived page count.
func (r *PDFRenderer) Render(spec report.Spec) ([]byte, error) {
	if spec.PageCount < 1 {
		return nil, fmt.Errorf("%w: page count %d", ErrRendering, spec.PageCount)
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(documentTitle, true)

	family := "Helvetica"
	if r.fontPath != "" {
		pdf.AddUTF8Font(embeddedFamily, "", r.fontPath)
		pdf.AddUTF8Font(embeddedFamily, "B", r.fontPath)
		family = embeddedFamily
	}

	pdf.AddPage()

	pdf.SetFont(family, "B", 18)
	pdf.CellFormat(0, 12, documentTitle, "", 1, "C", false, 0, "")
	pdf.Ln(10)

	pdf.SetFont(family, "", 12)
	for _, field := range spec.CoverFields {
		pdf.CellFormat(0, 8, fmt.Sprintf("%s: %s", field.Label, field.Value), "", 1, "R", false, 0, "")
	}
	pdf.Ln(10)

	pdf.SetFont(family, "B", 14)
	pdf.CellFormat(0, 10, "وصف التقرير:", "", 1, "R", false, 0, "")
	pdf.SetFont(family, "", 12)
	pdf.MultiCell(0, 6, spec.BodyText, "", "R", false)

	for pdf.PageCount() < spec.PageCount {
		pdf.AddPage()
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRendering, err)
	}
	return buf.Bytes(), nil
}
