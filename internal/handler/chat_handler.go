package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/smartsql-client/internal/models"
	"github.com/noah-isme/smartsql-client/internal/repository"
	appErrors "github.com/noah-isme/smartsql-client/pkg/errors"
)

// ChatRecorder counts assistant replies.
type ChatRecorder interface {
	RecordChatReply(ok bool)
}

type chatTurnPayload struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatPayload struct {
	Messages           []chatTurnPayload `json:"messages"`
	SelectedStudentID  *models.ID        `json:"selected_student_id"`
	ShowThoughtProcess bool              `json:"show_thought_process"`
}

// ChatHandler is a deterministic stand-in for the AI assistant. It answers
// with a canned SQL tip chosen from keywords of the last user turn.
type ChatHandler struct {
	store    *repository.LMSStore
	recorder ChatRecorder
	logger   *zap.Logger
}

// NewChatHandler constructs a chat handler. recorder may be nil.
func NewChatHandler(store *repository.LMSStore, recorder ChatRecorder, logger *zap.Logger) *ChatHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatHandler{store: store, recorder: recorder, logger: logger}
}

var chatTips = []struct {
	keyword string
	tip     string
}{
	{"having", "Use WHERE to filter rows before grouping and HAVING to filter groups after GROUP BY."},
	{"group", "Every selected column that is not aggregated must appear in the GROUP BY clause."},
	{"join", "Join tables on their key columns, for example JOIN enrollments e ON e.student_id = s.id."},
	{"where", "WHERE keeps only the rows whose condition is true; combine conditions with AND and OR."},
	{"order", "ORDER BY sorts the result; add DESC for descending order."},
	{"subquery", "A subquery in WHERE must return a single column; use IN when it can return several rows."},
}

func chatTip(question string) string {
	lower := strings.ToLower(question)
	for _, t := range chatTips {
		if strings.Contains(lower, t.keyword) {
			return t.tip
		}
	}
	return "Start from the columns you need in SELECT, then name the table in FROM and narrow the rows with WHERE."
}

// Chat godoc
// @Summary Ask the SQL assistant
// @Description Replies {role, content}, or {reply, thought_process} when show_thought_process is set
// @Tags AI
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /ai/chat/ [post]
func (h *ChatHandler) Chat(c *gin.Context) {
	var req chatPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Messages) == 0 {
		h.fail(c, http.StatusBadRequest, "No messages provided")
		return
	}
	question := ""
	for _, m := range req.Messages {
		if strings.TrimSpace(m.Role) == "" || strings.TrimSpace(m.Content) == "" {
			h.fail(c, http.StatusBadRequest, "Invalid message format")
			return
		}
		if m.Role == string(models.ChatUser) {
			question = m.Content
		}
	}

	content := chatTip(question)
	var subject models.ID
	if req.SelectedStudentID != nil && !req.SelectedStudentID.Empty() {
		if currentRole(c) != models.RoleInstructor {
			h.fail(c, http.StatusForbidden, "Only instructors can select a student.")
			return
		}
		if err := h.store.EnsureTeaches(currentUserID(c), *req.SelectedStudentID); err != nil {
			appErr := appErrors.FromError(err)
			h.fail(c, appErr.Status, appErr.Message)
			return
		}
		subject = *req.SelectedStudentID
		if profile, err := h.store.Profile(subject); err == nil {
			content = fmt.Sprintf("For %s: %s", profile.Username, content)
		}
	} else if currentRole(c) == models.RoleStudent {
		subject = currentUserID(c)
	}

	if h.recorder != nil {
		h.recorder.RecordChatReply(true)
	}
	if !req.ShowThoughtProcess {
		c.JSON(http.StatusOK, gin.H{"role": models.ChatAssistant, "content": content})
		return
	}
	count := 0
	if !subject.Empty() {
		logs, _ := h.store.ErrorLogs(subject)
		count = len(logs)
	}
	query := "SELECT question_text, error_type FROM error_logs WHERE student_id = %s"
	c.JSON(http.StatusOK, gin.H{
		"reply": content,
		"thought_process": models.ThoughtProcess{
			GeneratedSQL: query,
			ExecutedSQL:  fmt.Sprintf(query, subject.String()),
			ParamsUsed:   []string{subject.String()},
			ResultsCount: count,
		},
	})
}

func (h *ChatHandler) fail(c *gin.Context, status int, message string) {
	if h.recorder != nil {
		h.recorder.RecordChatReply(false)
	}
	h.logger.Debug("chat rejected", zap.Int("status", status), zap.String("message", message))
	c.JSON(status, gin.H{"error": message})
}
