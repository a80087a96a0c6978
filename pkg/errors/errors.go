package errors

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Error represents a typed client error with HTTP awareness.
type Error struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Status  int               `json:"status"`
	Fields  map[string]string `json:"fields,omitempty"`
	Err     error             `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches errors by code so clones compare equal to their template.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Error codes. The first four map onto the error taxonomy surfaced to users.
const (
	CodeValidation      = "VALIDATION_ERROR"
	CodeHTTP            = "HTTP_ERROR"
	CodeDomainRejection = "DOMAIN_REJECTION"
	CodeParse           = "PARSE_ERROR"
	CodeNetwork         = "NETWORK_ERROR"
	CodeTimeout         = "NETWORK_TIMEOUT"
)

// Predefined errors for common scenarios.
var (
	ErrValidation         = New(CodeValidation, http.StatusBadRequest, "validation failed")
	ErrHTTP               = New(CodeHTTP, http.StatusBadGateway, "request failed")
	ErrDomainRejection    = New(CodeDomainRejection, http.StatusUnprocessableEntity, "request rejected")
	ErrParse              = New(CodeParse, http.StatusUnprocessableEntity, "malformed payload")
	ErrNetwork            = New(CodeNetwork, 0, "network error, please check your connection")
	ErrTimeout            = New(CodeTimeout, 0, "the server took too long to respond")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid username or password")
	ErrNotAuthenticated   = New("NOT_AUTHENTICATED", http.StatusUnauthorized, "please log in first")
	ErrSubmissionInFlight = New("SUBMISSION_IN_FLIGHT", http.StatusConflict, "a submission is already in progress")
	ErrClosed             = New("VIEW_CLOSED", 0, "view closed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal error")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	if err.Fields != nil {
		clone.Fields = make(map[string]string, len(err.Fields))
		for k, v := range err.Fields {
			clone.Fields[k] = v
		}
	}
	return &clone
}

// Validation builds a field-scoped validation error.
func Validation(message string, fields map[string]string) *Error {
	e := Clone(ErrValidation, message)
	e.Fields = fields
	return e
}

// HTTPStatus builds an HttpError for a non-2xx response.
func HTTPStatus(status int, serverMessage string) *Error {
	if strings.TrimSpace(serverMessage) == "" {
		serverMessage = http.StatusText(status)
	}
	if serverMessage == "" {
		serverMessage = ErrHTTP.Message
	}
	e := Clone(ErrHTTP, serverMessage)
	e.Status = status
	return e
}

// Rejection builds a DomainRejection carrying the server message verbatim.
func Rejection(serverMessage string) *Error {
	return Clone(ErrDomainRejection, serverMessage)
}

func hasCode(err error, codes ...string) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	for _, code := range codes {
		if e.Code == code {
			return true
		}
	}
	return false
}

// IsValidation reports whether err is a local validation failure.
func IsValidation(err error) bool { return hasCode(err, CodeValidation) }

// IsDomainRejection reports whether err is a 2xx response carrying an error status.
func IsDomainRejection(err error) bool { return hasCode(err, CodeDomainRejection) }

// IsHTTP reports whether err came from the transport or a non-2xx response.
func IsHTTP(err error) bool {
	return hasCode(err, CodeHTTP, CodeNetwork, CodeTimeout) || StatusOf(err) >= 400 && !IsValidation(err) && !IsDomainRejection(err)
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}

// UserMessage renders err for display; validation errors list their fields.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if !errors.As(err, &e) {
		return err.Error()
	}
	if len(e.Fields) == 0 {
		return e.Message
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return fmt.Sprintf("%s (%s)", e.Message, strings.Join(parts, "; "))
}
