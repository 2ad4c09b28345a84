package report

import "fmt"

// FieldDefinition describes a single question of the dialogue.
type FieldDefinition struct {
	Key      string `json:"key"`
	Prompt   string `json:"prompt"`
	Optional bool   `json:"optional"`
}

// Schema is the fixed ordered list of fields a dialogue collects.
// The order defines both the question order and the cover layout order.
type Schema struct {
	fields []FieldDefinition
}

// NewSchema validates field keys and returns an immutable schema.
func NewSchema(fields []FieldDefinition) (Schema, error) {
	if len(fields) == 0 {
		return Schema{}, fmt.Errorf("schema requires at least one field")
	}

	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if f.Key == "" {
			return Schema{}, fmt.Errorf("schema field with empty key")
		}
		if _, ok := seen[f.Key]; ok {
			return Schema{}, fmt.Errorf("duplicate schema key %q", f.Key)
		}
		seen[f.Key] = struct{}{}
	}

	return Schema{fields: append([]FieldDefinition(nil), fields...)}, nil
}

// FieldAt returns the field definition at the given index.
func (s Schema) FieldAt(index int) FieldDefinition {
	return s.fields[index]
}

// Count returns the number of fields in the schema.
func (s Schema) Count() int {
	return len(s.fields)
}

// LastIndex returns the index of the final field.
func (s Schema) LastIndex() int {
	return len(s.fields) - 1
}

// DefaultSchema provides the built-in academic report questionnaire.
func DefaultSchema() Schema {
	schema, err := NewSchema([]FieldDefinition{
		{Key: "student", Prompt: "📌 اسم الطالب الكامل:"},
		{Key: "project", Prompt: "📌 عنوان المشروع:"},
		{Key: "university", Prompt: "📌 اسم الجامعة (اختياري):", Optional: true},
		{Key: "college", Prompt: "📌 الكلية:"},
		{Key: "department", Prompt: "📌 القسم:"},
		{Key: "level", Prompt: "📌 المرحلة الدراسية:"},
		{Key: "course", Prompt: "📌 اسم المادة:"},
		{Key: "professor", Prompt: "📌 اسم الدكتور المشرف (اختياري):", Optional: true},
		{Key: "description", Prompt: "📌 وصف التقرير وعدد الصفحات المطلوبة:"},
	})
	if err != nil {
		panic(err)
	}
	return schema
}
