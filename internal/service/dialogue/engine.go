package dialogue

import (
	"github.com/taqrir/reportbot/internal/model/report"
)

// NextStep is the engine's verdict after consuming one answer: either the
// prompt for the next field, or a completed session snapshot.
type NextStep struct {
	Prompt  string
	Done    bool
	Session report.Session
}

// Engine drives a session through the field schema one answer at a time.
type Engine struct {
	schema report.Schema
}

// NewEngine binds the state machine to a schema.
func NewEngine(schema report.Schema) Engine {
	return Engine{schema: schema}
}

// Schema exposes the bound field schema.
func (e Engine) Schema() report.Schema {
	return e.schema
}

// FirstPrompt returns the question that opens a fresh dialogue.
func (e Engine) FirstPrompt() string {
	return e.schema.FieldAt(0).Prompt
}

// Advance records the answer for the field under the cursor verbatim and
// moves the cursor forward. Empty answers are accepted; optional fields
// treat them as blank later, at assembly time.
func (e Engine) Advance(session *report.Session, answer string) NextStep {
	field := e.schema.FieldAt(session.Cursor)
	session.Answers[field.Key] = answer
	session.Cursor++

	if session.Cursor == e.schema.Count() {
		return NextStep{Done: true, Session: session.Clone()}
	}
	return NextStep{Prompt: e.schema.FieldAt(session.Cursor).Prompt}
}
