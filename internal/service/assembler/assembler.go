package assembler

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/taqrir/reportbot/internal/model/report"
)

// ErrContentGeneration signals that body-text enrichment failed. The
// dialogue is not resumed; the user must start over.
var ErrContentGeneration = errors.New("report body generation failed")

// Generator produces enriched body text for a topic and a desired page
// count. Implemented by the ai service; nil disables enrichment.
type Generator interface {
	GenerateBody(ctx context.Context, topic string, pages int) (string, error)
}

// Assembler converts a completed session's answers into a renderer-ready
// document spec.
type Assembler struct {
	schema report.Schema
	gen    Generator
}

// New builds an assembler for the given schema. Pass a nil generator to
// use the raw description answer as the document body.
func New(schema report.Schema, gen Generator) *Assembler {
	return &Assembler{schema: schema, gen: gen}
}

// Assemble derives the cover fields, page count and body text from a
// completed session.
func (a *Assembler) Assemble(ctx context.Context, session report.Session) (report.Spec, error) {
	last := a.schema.FieldAt(a.schema.LastIndex())
	rawBody := session.Answers[last.Key]
	pages := DerivePageCount(rawBody)

	cover := make([]report.CoverField, 0, a.schema.LastIndex())
	for i := 0; i < a.schema.LastIndex(); i++ {
		field := a.schema.FieldAt(i)
		value := session.Answers[field.Key]
		if field.Optional && strings.TrimSpace(value) == "" {
			continue
		}
		cover = append(cover, report.CoverField{
			Label: labelFromPrompt(field.Prompt),
			Value: value,
		})
	}

	body := rawBody
	if a.gen != nil {
		generated, err := a.gen.GenerateBody(ctx, rawBody, pages)
		if err != nil {
			return report.Spec{}, fmt.Errorf("%w: %v", ErrContentGeneration, err)
		}
		if strings.TrimSpace(generated) == "" {
			return report.Spec{}, fmt.Errorf("%w: empty response", ErrContentGeneration)
		}
		body = generated
	}

	return report.Spec{
		CoverFields: cover,
		BodyText:    body,
		PageCount:   pages,
	}, nil
}

// DerivePageCount scans the description answer for decimal digits of any
// script in encounter order and folds their concatenation into a number.
// "3 pages", "page3" and "٣ صفحات" all yield 3. No digits, a non-positive
// value or a run of digits too long to hold all fall back to a single
// page; the user is never surfaced an error for a malformed page count.
func DerivePageCount(answer string) int {
	pages := 0
	found := false
	for _, r := range answer {
		if !unicode.IsDigit(r) {
			continue
		}
		found = true
		if pages > (math.MaxInt-9)/10 {
			return 1
		}
		pages = pages*10 + digitValue(r)
	}
	if !found || pages < 1 {
		return 1
	}
	return pages
}

// digitValue folds a decimal digit from any script to its numeric value.
// Decimal digits occupy contiguous runs of ten code points, so the zero
// of a digit's run sits at most nine code points back.
func digitValue(r rune) int {
	zero := r
	for i := 0; i < 9 && unicode.IsDigit(zero-1); i++ {
		zero--
	}
	return int(r - zero)
}

// labelFromPrompt turns a question into a cover label: everything before
// the first delimiter, shorn of the leading marker and trailing
// punctuation. "📌 اسم الجامعة (اختياري):" becomes "اسم الجامعة".
func labelFromPrompt(prompt string) string {
	label := prompt
	if i := strings.IndexAny(label, ":：(（"); i >= 0 {
		label = label[:i]
	}
	return strings.TrimFunc(label, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
