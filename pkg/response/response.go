package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/smartsql-client/pkg/errors"
)

// Envelope represents the common response contract of the SmartSQL backend.
type Envelope struct {
	Status  string              `json:"status"`
	Data    interface{}         `json:"data,omitempty"`
	Message string              `json:"message,omitempty"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

// Status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

func noStore(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
}

// JSON sends a success response with an optional message.
func JSON(c *gin.Context, status int, data interface{}, message ...string) {
	noStore(c)
	envelope := Envelope{Status: StatusSuccess, Data: data}
	if len(message) > 0 {
		envelope.Message = message[0]
	}
	c.JSON(status, envelope)
}

// Created responds with HTTP 201 Created.
func Created(c *gin.Context, data interface{}, message string) {
	JSON(c, http.StatusCreated, data, message)
}

// Keyed sends a collection under its resource key, e.g. {"courses": [...]}.
func Keyed(c *gin.Context, key string, list interface{}) {
	noStore(c)
	c.JSON(http.StatusOK, gin.H{"status": StatusSuccess, key: list})
}

// Payload sends a success body made of several top-level keys.
func Payload(c *gin.Context, body gin.H) {
	noStore(c)
	out := gin.H{"status": StatusSuccess}
	for k, v := range body {
		out[k] = v
	}
	c.JSON(http.StatusOK, out)
}

// Error sends an error response converting the error to the common
// structure. Field errors are rendered as lists keyed by field name.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	status := appErr.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}
	noStore(c)
	c.JSON(status, Envelope{Status: StatusError, Message: appErr.Message, Errors: fieldLists(appErr.Fields)})
}

// Reject answers 200 with an error status: the request was understood but
// the domain refused it.
func Reject(c *gin.Context, message string) {
	noStore(c)
	c.JSON(http.StatusOK, Envelope{Status: StatusError, Message: message})
}

// NoContent sends a 204 response.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

func fieldLists(fields map[string]string) map[string][]string {
	if len(fields) == 0 {
		return nil
	}
	out := make(map[string][]string, len(fields))
	for k, msg := range fields {
		out[k] = []string{msg}
	}
	return out
}
