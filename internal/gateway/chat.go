package gateway

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/noah-isme/smartsql-client/internal/models"
	appErrors "github.com/noah-isme/smartsql-client/pkg/errors"
)

// ChatPath is the AI assistant endpoint.
const ChatPath = "/ai/chat/"

// ChatRequest is the body sent to the assistant.
type ChatRequest struct {
	Messages           []models.ChatTurn `json:"messages"`
	SelectedStudentID  *models.ID        `json:"selected_student_id,omitempty"`
	ShowThoughtProcess bool              `json:"show_thought_process,omitempty"`
}

type chatResponse struct {
	Content        string                 `json:"content"`
	Reply          string                 `json:"reply"`
	Error          json.RawMessage        `json:"error"`
	ThoughtProcess *models.ThoughtProcess `json:"thought_process"`
}

// Chat posts a conversation and returns the normalized reply.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (models.ChatReply, error) {
	var raw json.RawMessage
	if err := c.Post(ctx, ChatPath, req, &raw); err != nil {
		return models.ChatReply{}, err
	}
	return NormalizeChatReply(raw)
}

// NormalizeChatReply folds the {content} and {reply, thought_process} response
// shapes into one ChatReply. A body carrying only an error is a rejection.
func NormalizeChatReply(raw []byte) (models.ChatReply, error) {
	var resp chatResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return models.ChatReply{}, appErrors.Wrap(err, appErrors.CodeHTTP, 0, "unexpected response format from the assistant")
	}
	content := strings.TrimSpace(resp.Content)
	if content == "" {
		content = strings.TrimSpace(resp.Reply)
	}
	if content == "" {
		if msg := errorText(resp.Error); msg != "" {
			return models.ChatReply{}, appErrors.Rejection(msg)
		}
		return models.ChatReply{}, appErrors.Clone(appErrors.ErrHTTP, "unexpected response format from the assistant")
	}
	return models.ChatReply{Content: content, ThoughtProcess: resp.ThoughtProcess}, nil
}
