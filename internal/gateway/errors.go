package gateway

import (
	"bytes"
	"encoding/json"
	"strings"
)

type statusEnvelope struct {
	Status  json.RawMessage `json:"status"`
	Message string          `json:"message"`
	Error   json.RawMessage `json:"error"`
	Detail  string          `json:"detail"`
}

// serverMessage extracts the human-readable message of an error body. The
// backend uses message, error (string or {message}) and detail
// interchangeably.
func serverMessage(raw []byte) string {
	var env statusEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return ""
	}
	if msg := strings.TrimSpace(env.Message); msg != "" {
		return msg
	}
	if msg := errorText(env.Error); msg != "" {
		return msg
	}
	return strings.TrimSpace(env.Detail)
}

func errorText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return strings.TrimSpace(obj.Message)
	}
	return ""
}

// rejection reports whether a 2xx body carries status "error" or false.
func rejection(raw []byte) (string, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return "", false
	}
	var env statusEnvelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return "", false
	}
	status := strings.ToLower(strings.Trim(strings.TrimSpace(string(env.Status)), `"`))
	if status != "error" && status != "false" && status != "fail" {
		return "", false
	}
	msg := serverMessage(trimmed)
	if msg == "" {
		msg = "request rejected"
	}
	return msg, true
}

// fieldErrors extracts the per-field map some endpoints return under
// "errors", where each value is a string or a list of strings.
func fieldErrors(raw []byte) map[string]string {
	var env struct {
		Errors map[string]json.RawMessage `json:"errors"`
	}
	if err := json.Unmarshal(raw, &env); err != nil || len(env.Errors) == 0 {
		return nil
	}
	fields := make(map[string]string, len(env.Errors))
	for field, value := range env.Errors {
		var list []string
		if err := json.Unmarshal(value, &list); err == nil {
			if len(list) > 0 {
				fields[field] = strings.Join(list, " ")
			}
			continue
		}
		if msg := errorText(value); msg != "" {
			fields[field] = msg
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}
