package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/noah-isme/smartsql-client/internal/gateway"
	"github.com/noah-isme/smartsql-client/internal/models"
	appErrors "github.com/noah-isme/smartsql-client/pkg/errors"
)

const (
	studentPreamble    = "You are an AI assistant specialized in teaching SQL, helping a student. Provide clear, concise answers to SQL questions."
	instructorPreamble = "You are an AI assistant specialized in teaching SQL, helping an instructor. Provide clear, concise answers to SQL questions."

	defaultHistoryWindow = 10
	recentErrorLimit     = 2
)

// ContextLoader fetches what the assistant is told about a learner.
type ContextLoader interface {
	LoadSelf(ctx context.Context) (models.StudentContext, error)
	LoadStudent(ctx context.Context, studentID models.ID) (models.StudentContext, error)
}

type chatAPI interface {
	Chat(ctx context.Context, req gateway.ChatRequest) (models.ChatReply, error)
}

// ChatRecorder counts assistant round trips.
type ChatRecorder interface {
	RecordChatReply(ok bool)
}

// ChatOptions tunes a ChatService.
type ChatOptions struct {
	HistoryWindow  int
	IncludeContext bool
	Metrics        ChatRecorder
	Logger         *zap.Logger
}

// ChatService keeps the in-memory assistant transcript and assembles each
// request from a fresh system turn and a bounded history window.
type ChatService struct {
	api      chatAPI
	loader   ContextLoader
	identity models.Identity
	window   int
	metrics  ChatRecorder
	logger   *zap.Logger

	sendMu sync.Mutex

	mu             sync.Mutex
	transcript     []models.ChatTurn
	includeContext bool
	showThoughts   bool
	selected       models.ID
	cached         *models.StudentContext
	lastThought    *models.ThoughtProcess
	subscribers    map[int]func([]models.ChatTurn)
	nextSubID      int
}

// NewChatService constructs the assistant for identity.
func NewChatService(api chatAPI, loader ContextLoader, identity models.Identity, opts ChatOptions) *ChatService {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	window := opts.HistoryWindow
	if window <= 0 {
		window = defaultHistoryWindow
	}
	return &ChatService{
		api:            api,
		loader:         loader,
		identity:       identity,
		window:         window,
		metrics:        opts.Metrics,
		logger:         logger,
		includeContext: opts.IncludeContext,
		subscribers:    make(map[int]func([]models.ChatTurn)),
	}
}

// Transcript returns a copy of every turn so far.
func (s *ChatService) Transcript() []models.ChatTurn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ChatTurn(nil), s.transcript...)
}

// OnChange registers fn to receive the transcript after every append.
func (s *ChatService) OnChange(fn func([]models.ChatTurn)) func() {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

// SetContextEnabled toggles the learner summary in the system turn.
func (s *ChatService) SetContextEnabled(enabled bool) {
	s.mu.Lock()
	s.includeContext = enabled
	s.mu.Unlock()
}

// ShowThoughtProcess asks the assistant to return its reasoning trace.
func (s *ChatService) ShowThoughtProcess(enabled bool) {
	s.mu.Lock()
	s.showThoughts = enabled
	s.mu.Unlock()
}

// LastThoughtProcess returns the trace of the latest reply, if any.
func (s *ChatService) LastThoughtProcess() *models.ThoughtProcess {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastThought
}

// SelectStudent points an instructor's assistant at one student, or back at
// the instructor when id is empty. The transcript is kept and a marker turn
// records the switch.
func (s *ChatService) SelectStudent(ctx context.Context, id models.ID) error {
	if _, ok := s.identity.(models.Instructor); !ok {
		return appErrors.Clone(appErrors.ErrForbidden, "only instructors can select a student")
	}
	marker := "Context switched to Instructor General"
	if !id.Empty() {
		marker = "Context switched to student " + id.String()
	}
	s.mu.Lock()
	if s.selected == id {
		s.mu.Unlock()
		return nil
	}
	s.selected = id
	s.cached = nil
	s.transcript = append(s.transcript, models.ChatTurn{Role: models.ChatSystem, Content: marker, Marker: true})
	s.mu.Unlock()
	s.notify()
	return nil
}

// Send appends the user turn, asks the assistant and appends its reply. On
// failure a synthesized assistant turn carrying the error is appended and
// the error is returned alongside it.
func (s *ChatService) Send(ctx context.Context, text string) (models.ChatTurn, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.ChatTurn{}, appErrors.Validation("please type a question", map[string]string{"message": "is required"})
	}
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	user := models.ChatTurn{Role: models.ChatUser, Content: text}
	s.mu.Lock()
	history := s.historyLocked()
	s.transcript = append(s.transcript, user)
	include := s.includeContext
	showThoughts := s.showThoughts
	selected := s.selected
	s.mu.Unlock()
	s.notify()

	system := s.preamble()
	if include {
		if summary := s.contextSummary(ctx, selected); summary != "" {
			system += " " + summary
		}
	}

	messages := make([]models.ChatTurn, 0, len(history)+2)
	messages = append(messages, models.ChatTurn{Role: models.ChatSystem, Content: system})
	messages = append(messages, history...)
	messages = append(messages, user)
	req := gateway.ChatRequest{Messages: messages, ShowThoughtProcess: showThoughts}
	if !selected.Empty() {
		id := selected
		req.SelectedStudentID = &id
	}

	reply, err := s.api.Chat(ctx, req)
	if s.metrics != nil {
		s.metrics.RecordChatReply(err == nil)
	}
	var turn models.ChatTurn
	if err != nil {
		s.logger.Warn("assistant request failed", zap.Error(err))
		turn = models.ChatTurn{Role: models.ChatAssistant, Content: "Sorry, something went wrong: " + appErrors.UserMessage(err), IsError: true}
	} else {
		turn = models.ChatTurn{Role: models.ChatAssistant, Content: reply.Content}
	}

	s.mu.Lock()
	s.transcript = append(s.transcript, turn)
	if err == nil {
		s.lastThought = reply.ThoughtProcess
	}
	s.mu.Unlock()
	s.notify()
	return turn, err
}

// historyLocked returns the last window turns that were actually exchanged.
// Marker turns are local. A failed exchange is dropped as a pair so user and
// assistant turns keep alternating.
func (s *ChatService) historyLocked() []models.ChatTurn {
	sent := make([]models.ChatTurn, 0, len(s.transcript))
	for _, t := range s.transcript {
		if t.Marker {
			continue
		}
		if t.IsError {
			if n := len(sent); n > 0 && sent[n-1].Role == models.ChatUser {
				sent = sent[:n-1]
			}
			continue
		}
		sent = append(sent, t)
	}
	if len(sent) > s.window {
		sent = sent[len(sent)-s.window:]
	}
	return sent
}

func (s *ChatService) preamble() string {
	switch s.identity.(type) {
	case models.Instructor:
		return instructorPreamble
	default:
		return studentPreamble
	}
}

func (s *ChatService) contextSummary(ctx context.Context, selected models.ID) string {
	s.mu.Lock()
	cached := s.cached
	s.mu.Unlock()

	if cached == nil {
		var (
			loaded models.StudentContext
			err    error
		)
		if selected.Empty() {
			loaded, err = s.loader.LoadSelf(ctx)
		} else {
			loaded, err = s.loader.LoadStudent(ctx, selected)
		}
		if err != nil {
			s.logger.Warn("assistant context unavailable", zap.Error(err))
			return ""
		}
		cached = &loaded
		s.mu.Lock()
		if s.selected == selected {
			s.cached = cached
		}
		s.mu.Unlock()
	}

	switch s.identity.(type) {
	case models.Instructor:
		if selected.Empty() {
			return InstructorContextText(*cached)
		}
		return SelectedStudentContextText(*cached)
	default:
		return StudentContextText(*cached)
	}
}

func (s *ChatService) notify() {
	s.mu.Lock()
	transcript := append([]models.ChatTurn(nil), s.transcript...)
	subs := make([]func([]models.ChatTurn), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.mu.Unlock()
	for _, fn := range subs {
		fn(transcript)
	}
}

// StudentContextText summarises a student's own courses and progress.
func StudentContextText(c models.StudentContext) string {
	if len(c.Courses) == 0 {
		return "The student is not enrolled in any courses."
	}
	var b strings.Builder
	names := make([]string, 0, len(c.Courses))
	for _, course := range c.Courses {
		status := course.Status
		if status == "" {
			status = string(models.EnrollmentEnrolled)
		}
		names = append(names, fmt.Sprintf("%s (%s)", course.CourseName, status))
	}
	fmt.Fprintf(&b, "Student's enrolled courses: %s. ", strings.Join(names, ", "))
	if len(c.Progress) == 0 {
		b.WriteString("No detailed progress data is available yet.")
		return strings.TrimSpace(b.String())
	}
	writeProgress(&b, c.Progress)
	writeKnowledge(&b, c.KnowledgeGraphs)
	if len(c.ErrorLogs) > 0 {
		b.WriteString("Recent errors: ")
		writeErrorCounts(&b, errorCounts(c))
		writeRecentErrors(&b, "Most recent error: ", c.ErrorLogs)
	}
	return strings.TrimSpace(b.String())
}

// SelectedStudentContextText summarises a student for their instructor.
func SelectedStudentContextText(c models.StudentContext) string {
	var b strings.Builder
	if c.Student != nil {
		fmt.Fprintf(&b, "You are helping %s (%s) as an instructor. ", c.Student.DisplayName(), c.Student.Email)
	}
	enrollments := c.Enrollments
	if len(enrollments) == 0 && c.Student != nil {
		enrollments = c.Student.Courses
	}
	if len(enrollments) == 0 {
		b.WriteString("The student is not enrolled in any courses. ")
	} else {
		parts := make([]string, 0, len(enrollments))
		for _, e := range enrollments {
			grade := "Not graded yet"
			if e.Grade != nil {
				grade = formatNumber(*e.Grade)
			}
			parts = append(parts, fmt.Sprintf("%s (Status: %s, Grade: %s)", e.CourseName, e.Status, grade))
		}
		fmt.Fprintf(&b, "Student's enrolled courses: %s. ", strings.Join(parts, ", "))
	}
	writeProgress(&b, c.Progress)
	writeKnowledge(&b, c.KnowledgeGraphs)
	if len(c.ErrorLogs) > 0 {
		b.WriteString("Error analysis: ")
		writeErrorCounts(&b, errorCounts(c))
		writeRecentErrors(&b, "Recent errors: ", c.ErrorLogs)
	}
	return strings.TrimSpace(b.String())
}

// InstructorContextText lists an instructor's own courses.
func InstructorContextText(c models.StudentContext) string {
	if len(c.Courses) == 0 {
		return "The instructor has no courses yet."
	}
	names := make([]string, 0, len(c.Courses))
	for _, course := range c.Courses {
		name := course.CourseName
		if course.CourseCode != "" {
			name += " (" + course.CourseCode + ")"
		}
		names = append(names, name)
	}
	return fmt.Sprintf("Instructor's courses: %s.", strings.Join(names, ", "))
}

func writeProgress(b *strings.Builder, progress []models.ProgressSummary) {
	if len(progress) == 0 {
		return
	}
	b.WriteString("Progress details: ")
	for _, p := range progress {
		total := "unknown"
		if p.TotalExercises > 0 {
			total = strconv.Itoa(p.TotalExercises)
		}
		fmt.Fprintf(b, "%s: %d/%s exercises completed (%s%% complete), accuracy rate: %s%%. ",
			p.CourseName, p.CompletedQuestions, total, formatNumber(p.CompletionPercentage), formatNumber(p.AccuracyRate))
		if p.LearningGoals != "" {
			fmt.Fprintf(b, "Learning goals: %s. ", p.LearningGoals)
		}
	}
}

func writeKnowledge(b *strings.Builder, graphs []models.KnowledgeGraph) {
	if len(graphs) == 0 {
		return
	}
	b.WriteString("Knowledge assessment: ")
	for _, kg := range graphs {
		if len(kg.WeakAreas) > 0 {
			fmt.Fprintf(b, "Weak areas: %s. ", strings.Join(kg.WeakAreas, ", "))
		}
		if kg.Suggestions != "" {
			fmt.Fprintf(b, "Suggestions: %s. ", kg.Suggestions)
		}
	}
}

func errorCounts(c models.StudentContext) map[string]int {
	if len(c.ErrorSummary) > 0 {
		return c.ErrorSummary
	}
	counts := make(map[string]int)
	for _, e := range c.ErrorLogs {
		counts[e.ErrorType]++
	}
	return counts
}

func writeErrorCounts(b *strings.Builder, counts map[string]int) {
	types := make([]string, 0, len(counts))
	for t := range counts {
		types = append(types, t)
	}
	sort.Strings(types)
	parts := make([]string, 0, len(types))
	for _, t := range types {
		parts = append(parts, fmt.Sprintf("%d %s errors", counts[t], t))
	}
	fmt.Fprintf(b, "%s. ", strings.Join(parts, ", "))
}

func writeRecentErrors(b *strings.Builder, label string, logs []models.ErrorLog) {
	if len(logs) > recentErrorLimit {
		logs = logs[:recentErrorLimit]
	}
	b.WriteString(label)
	for _, e := range logs {
		fmt.Fprintf(b, "%q - %s: %s. ", e.QuestionText, e.ErrorType, e.Feedback)
	}
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// APIContextLoader reads learner context from the backend. A failed
// sub-fetch leaves its section empty instead of failing the whole load.
type APIContextLoader struct {
	api    listAPI
	scope  Scope
	logger *zap.Logger
}

// NewAPIContextLoader constructs a loader for scope.
func NewAPIContextLoader(api listAPI, scope Scope, logger *zap.Logger) *APIContextLoader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &APIContextLoader{api: api, scope: scope, logger: logger}
}

// LoadSelf loads the acting user's context: a student's courses and
// progress, or an instructor's courses.
func (l *APIContextLoader) LoadSelf(ctx context.Context) (models.StudentContext, error) {
	var out models.StudentContext
	if l.scope == ScopeInstructor {
		l.collection(ctx, "/instructor/courses/", nil, "courses", &out.Courses)
		return out, ctx.Err()
	}
	l.collection(ctx, "/student/courses/", nil, "courses", &out.Courses)
	l.details(ctx, "/student/", &out)
	return out, ctx.Err()
}

// LoadStudent loads one student's context for an instructor.
func (l *APIContextLoader) LoadStudent(ctx context.Context, studentID models.ID) (models.StudentContext, error) {
	if l.scope != ScopeInstructor {
		return models.StudentContext{}, appErrors.Clone(appErrors.ErrForbidden, "only instructors can load another student's context")
	}
	var out models.StudentContext
	var students []models.StudentRecord
	l.collection(ctx, "/instructor/students/", url.Values{"student_id": {studentID.String()}}, "students", &students)
	for i := range students {
		if students[i].UserID == studentID {
			record := students[i]
			out.Student = &record
			out.Enrollments = record.Courses
			break
		}
	}
	l.details(ctx, "/instructor/students/"+url.PathEscape(studentID.String())+"/", &out)
	return out, ctx.Err()
}

func (l *APIContextLoader) details(ctx context.Context, prefix string, out *models.StudentContext) {
	l.collection(ctx, prefix+"progress/", nil, "progress", &out.Progress)
	l.collection(ctx, prefix+"knowledge-graph/", nil, "knowledge_graphs", &out.KnowledgeGraphs)

	var raw json.RawMessage
	if err := l.api.Get(ctx, prefix+"error-logs/", nil, &raw); err != nil {
		l.logger.Debug("error logs unavailable", zap.Error(err))
		return
	}
	if err := gateway.DecodeCollection(raw, "error_logs", &out.ErrorLogs); err != nil {
		l.logger.Debug("error logs unreadable", zap.Error(err))
	}
	var summary struct {
		ErrorSummary map[string]int `json:"error_summary"`
	}
	if err := json.Unmarshal(raw, &summary); err == nil {
		out.ErrorSummary = summary.ErrorSummary
	}
}

func (l *APIContextLoader) collection(ctx context.Context, path string, query url.Values, key string, out interface{}) {
	var raw json.RawMessage
	if err := l.api.Get(ctx, path, query, &raw); err != nil {
		l.logger.Debug("context section unavailable", zap.String("path", path), zap.Error(err))
		return
	}
	if err := gateway.DecodeCollection(raw, key, out); err != nil {
		l.logger.Debug("context section unreadable", zap.String("path", path), zap.Error(err))
	}
}
