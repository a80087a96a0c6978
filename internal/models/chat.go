package models

// ChatRole is the speaker of a chat turn.
type ChatRole string

const (
	ChatSystem    ChatRole = "system"
	ChatUser      ChatRole = "user"
	ChatAssistant ChatRole = "assistant"
)

// ChatTurn is one entry of the in-memory transcript. Marker turns note a
// context switch for the reader and are never sent to the chat endpoint.
type ChatTurn struct {
	Role    ChatRole `json:"role"`
	Content string   `json:"content"`
	Marker  bool     `json:"-"`
	IsError bool     `json:"-"`
}

// ThoughtProcess is the optional reasoning trace of the assistant.
type ThoughtProcess struct {
	GeneratedSQL string      `json:"generated_sql,omitempty"`
	ExecutedSQL  string      `json:"executed_sql,omitempty"`
	ParamsUsed   interface{} `json:"params_used,omitempty"`
	ResultsCount int         `json:"results_count,omitempty"`
}

// ChatReply is the normalized answer of the chat endpoint.
type ChatReply struct {
	Content        string
	ThoughtProcess *ThoughtProcess
}

// ProgressSummary is per-course progress of a student.
type ProgressSummary struct {
	CourseName           string  `json:"course_name"`
	CompletedQuestions   int     `json:"completed_questions"`
	TotalExercises       int     `json:"total_exercises"`
	CompletionPercentage float64 `json:"completion_percentage"`
	AccuracyRate         float64 `json:"accuracy_rate"`
	LearningGoals        string  `json:"learning_goals,omitempty"`
}

// KnowledgeGraph summarises a student's weak areas.
type KnowledgeGraph struct {
	WeakAreas   []string `json:"weak_areas"`
	Suggestions string   `json:"suggestions,omitempty"`
}

// ErrorLog is one recorded mistake.
type ErrorLog struct {
	QuestionText string `json:"question_text"`
	ErrorType    string `json:"error_type"`
	Feedback     string `json:"feedback"`
}

// StudentContext aggregates what the assistant is told about a learner.
type StudentContext struct {
	Student         *StudentRecord
	Courses         []Course
	Enrollments     []Enrollment
	Progress        []ProgressSummary
	KnowledgeGraphs []KnowledgeGraph
	ErrorLogs       []ErrorLog
	ErrorSummary    map[string]int
}
