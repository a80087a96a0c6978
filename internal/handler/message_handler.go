package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/smartsql-client/internal/models"
	"github.com/noah-isme/smartsql-client/internal/repository"
	"github.com/noah-isme/smartsql-client/pkg/response"
)

// MessageHandler serves instructor messaging and direct messages.
type MessageHandler struct {
	store     *repository.LMSStore
	validator *validator.Validate
}

// NewMessageHandler constructs a message handler.
func NewMessageHandler(store *repository.LMSStore, validate *validator.Validate) *MessageHandler {
	return &MessageHandler{store: store, validator: validate}
}

// Recipients godoc
// @Summary Students and courses the instructor can address
// @Tags Messages
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /instructor/recipients/ [get]
func (h *MessageHandler) Recipients(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.store.Recipients(currentUserID(c)))
}

// List godoc
// @Summary Messages sent or received by the instructor
// @Tags Messages
// @Produce json
// @Param search query string false "Search content or sender"
// @Success 200 {object} response.Envelope
// @Router /instructor/messages/ [get]
func (h *MessageHandler) List(c *gin.Context) {
	response.Keyed(c, "messages", h.store.InstructorMessages(currentUserID(c), c.Query("search")))
}

// Send godoc
// @Summary Send a private message or an announcement
// @Tags Messages
// @Accept json
// @Produce json
// @Param payload body models.MessageDraft true "Message payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /instructor/messages/ [post]
func (h *MessageHandler) Send(c *gin.Context) {
	var req models.MessageDraft
	if !bindAndValidate(c, h.validator, &req, "Message could not be sent.") {
		return
	}
	msg, err := h.store.SendMessage(currentUserID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, msg, "Message sent successfully.")
}

// Direct godoc
// @Summary Send a direct message to any user
// @Tags Messages
// @Accept json
// @Produce json
// @Param payload body models.DirectMessage true "Message payload"
// @Success 201 {object} response.Envelope
// @Router /messages/ [post]
func (h *MessageHandler) Direct(c *gin.Context) {
	var req models.DirectMessage
	if !bindAndValidate(c, h.validator, &req, "Message could not be sent.") {
		return
	}
	msg, err := h.store.DirectMessage(currentUserID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, msg, "Message sent successfully.")
}
