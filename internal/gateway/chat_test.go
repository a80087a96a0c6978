package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/smartsql-client/internal/models"
	appErrors "github.com/noah-isme/smartsql-client/pkg/errors"
)

func TestNormalizeChatReplyContentShape(t *testing.T) {
	reply, err := NormalizeChatReply([]byte(`{"content":"A JOIN combines rows."}`))
	require.NoError(t, err)
	assert.Equal(t, "A JOIN combines rows.", reply.Content)
	assert.Nil(t, reply.ThoughtProcess)
}

func TestNormalizeChatReplyReplyShape(t *testing.T) {
	reply, err := NormalizeChatReply([]byte(`{"reply":"Use GROUP BY.","thought_process":{"generated_sql":"SELECT 1","results_count":3}}`))
	require.NoError(t, err)
	assert.Equal(t, "Use GROUP BY.", reply.Content)
	require.NotNil(t, reply.ThoughtProcess)
	assert.Equal(t, "SELECT 1", reply.ThoughtProcess.GeneratedSQL)
	assert.Equal(t, 3, reply.ThoughtProcess.ResultsCount)
}

func TestNormalizeChatReplyErrorShape(t *testing.T) {
	_, err := NormalizeChatReply([]byte(`{"error":"model unavailable"}`))
	assert.True(t, appErrors.IsDomainRejection(err))
	assert.Equal(t, "model unavailable", appErrors.UserMessage(err))
}

func TestNormalizeChatReplyUnexpectedShape(t *testing.T) {
	_, err := NormalizeChatReply([]byte(`{"foo":"bar"}`))
	assert.Error(t, err)
}

func TestClientChatSendsMessages(t *testing.T) {
	var got ChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ai/chat/", r.URL.Path)
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"reply":"hi"}`))
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv, "tok", time.Second)
	sid := models.ID("9")
	reply, err := c.Chat(context.Background(), ChatRequest{
		Messages:          []models.ChatTurn{{Role: models.ChatSystem, Content: "sys"}, {Role: models.ChatUser, Content: "hello"}},
		SelectedStudentID: &sid,
	})
	require.NoError(t, err)
	assert.Equal(t, "hi", reply.Content)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, models.ChatUser, got.Messages[1].Role)
	require.NotNil(t, got.SelectedStudentID)
	assert.Equal(t, models.ID("9"), *got.SelectedStudentID)
}
