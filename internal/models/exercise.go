package models

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Difficulty grades an exercise.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// Column is one column of a table descriptor. Columns arrive either as bare
// names or as {name, type} objects.
type Column struct {
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

// UnmarshalJSON accepts "name" or {"name": ..., "type": ...}.
func (c *Column) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		*c = Column{Name: strings.TrimSpace(name)}
		return nil
	}
	var raw struct {
		Name string `json:"name"`
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = Column{Name: strings.TrimSpace(raw.Name), Type: strings.TrimSpace(raw.Type)}
	return nil
}

// TableDescriptor describes one table an exercise runs against.
type TableDescriptor struct {
	TableName string   `json:"tableName"`
	Columns   []Column `json:"columns"`
}

// UnmarshalJSON also accepts the snake_case table_name key.
func (t *TableDescriptor) UnmarshalJSON(data []byte) error {
	var raw struct {
		TableName  string   `json:"tableName"`
		TableName2 string   `json:"table_name"`
		Columns    []Column `json:"columns"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	name := raw.TableName
	if name == "" {
		name = raw.TableName2
	}
	*t = TableDescriptor{TableName: strings.TrimSpace(name), Columns: raw.Columns}
	return nil
}

// TableSchema is the ordered table list of an exercise. Decoding never fails:
// a JSON-encoded string is parsed, and anything unparseable or not an array
// degrades to an empty schema.
type TableSchema []TableDescriptor

// UnmarshalJSON implements the parse-if-string rule.
func (s *TableSchema) UnmarshalJSON(data []byte) error {
	*s = NormalizeSchema(json.RawMessage(data))
	return nil
}

// MarshalJSON always emits an array.
func (s TableSchema) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]TableDescriptor(s))
}

// NormalizeSchema resolves raw schema input (JSON text, a JSON string holding
// JSON text, or already-decoded values) into an ordered table list. It never
// panics and returns an empty, non-nil schema when nothing usable is found.
func NormalizeSchema(v interface{}) TableSchema {
	var raw []byte
	switch val := v.(type) {
	case nil:
		return TableSchema{}
	case TableSchema:
		if val == nil {
			return TableSchema{}
		}
		return val
	case []TableDescriptor:
		return TableSchema(val)
	case json.RawMessage:
		raw = val
	case []byte:
		raw = val
	case string:
		raw = []byte(val)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return TableSchema{}
		}
		raw = b
	}
	return normalizeRaw(bytes.TrimSpace(raw), 0)
}

func normalizeRaw(raw []byte, depth int) TableSchema {
	if len(raw) == 0 || depth > 2 {
		return TableSchema{}
	}
	switch raw[0] {
	case '"':
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return TableSchema{}
		}
		return normalizeRaw(bytes.TrimSpace([]byte(inner)), depth+1)
	case '[':
		var tables []TableDescriptor
		if err := json.Unmarshal(raw, &tables); err != nil {
			return TableSchema{}
		}
		if tables == nil {
			return TableSchema{}
		}
		return TableSchema(tables)
	default:
		return TableSchema{}
	}
}

// ParseSchemaText parses schema text authored in an edit form. Unlike
// NormalizeSchema it reports failure so the form can reject the submission.
func ParseSchemaText(text string) (TableSchema, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return TableSchema{}, nil
	}
	var tables []TableDescriptor
	if err := json.Unmarshal([]byte(trimmed), &tables); err != nil {
		return nil, err
	}
	if tables == nil {
		tables = []TableDescriptor{}
	}
	return TableSchema(tables), nil
}

// Text renders the schema as indented JSON for editing.
func (s TableSchema) Text() string {
	if len(s) == 0 {
		return ""
	}
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return ""
	}
	return string(b)
}

// Summary renders one "table(col type, ...)" line per table for display.
func (s TableSchema) Summary() []string {
	lines := make([]string, 0, len(s))
	for _, t := range s {
		cols := make([]string, 0, len(t.Columns))
		for _, c := range t.Columns {
			if c.Type != "" {
				cols = append(cols, c.Name+" "+c.Type)
				continue
			}
			cols = append(cols, c.Name)
		}
		lines = append(lines, t.TableName+"("+strings.Join(cols, ", ")+")")
	}
	return lines
}

// Exercise is a SQL question inside a module.
type Exercise struct {
	ExerciseID     ID          `json:"exercise_id,omitempty"`
	ModuleID       ID          `json:"module_id" validate:"required"`
	Title          string      `json:"title" validate:"required,max=200"`
	Description    string      `json:"description" validate:"required"`
	Hint           string      `json:"hint,omitempty"`
	ExpectedAnswer string      `json:"expected_answer,omitempty" validate:"required"`
	Difficulty     Difficulty  `json:"difficulty" validate:"required,oneof=Easy Medium Hard"`
	TableSchema    TableSchema `json:"table_schema"`
}

// ExerciseForm is the edit-form shape of an exercise: the schema is raw text.
type ExerciseForm struct {
	ExerciseID      ID         `json:"exercise_id,omitempty"`
	ModuleID        ID         `json:"module_id" validate:"required"`
	Title           string     `json:"title" validate:"required,max=200"`
	Description     string     `json:"description" validate:"required"`
	Hint            string     `json:"hint" validate:"max=1000"`
	ExpectedAnswer  string     `json:"expected_answer" validate:"required"`
	Difficulty      Difficulty `json:"difficulty" validate:"required,oneof=Easy Medium Hard"`
	TableSchemaText string     `json:"table_schema"`
}

// ExerciseDetail is the student view of one exercise.
type ExerciseDetail struct {
	Exercise
	CourseID       ID                `json:"course_id,omitempty"`
	CourseName     string            `json:"course_name,omitempty"`
	ModuleName     string            `json:"module_name,omitempty"`
	Completed      Flag              `json:"completed"`
	LastSubmission *SubmissionResult `json:"last_submission,omitempty"`
}

// SubmissionRequest is the body of an answer submission.
type SubmissionRequest struct {
	Answer string `json:"answer" validate:"required"`
}

// SubmissionResult is the grading outcome of one submission.
type SubmissionResult struct {
	Answer     string  `json:"answer,omitempty"`
	IsCorrect  bool    `json:"is_correct"`
	Score      float64 `json:"score"`
	Message    string  `json:"message,omitempty"`
	AIFeedback string  `json:"ai_feedback,omitempty"`
}

// Verdict renders the correctness label.
func (r SubmissionResult) Verdict() string {
	if r.IsCorrect {
		return "Correct"
	}
	return "Incorrect"
}
