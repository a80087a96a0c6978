package gateway

import (
	"bytes"
	"encoding/json"

	appErrors "github.com/noah-isme/smartsql-client/pkg/errors"
)

// DecodeData decodes the data block of a {status, data} envelope, or the whole
// body when no data block is present.
func DecodeData(raw json.RawMessage, out interface{}) error {
	var env map[string]json.RawMessage
	if err := json.Unmarshal(raw, &env); err == nil {
		if data, ok := env["data"]; ok && !isNull(data) {
			raw = data
		}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return appErrors.Wrap(err, appErrors.CodeHTTP, 0, "unexpected response from server")
	}
	return nil
}

// DecodeCollection extracts a list from {key: [...]}, {data: [...]} or a bare
// array. A body with none of these decodes to an empty list.
func DecodeCollection(raw json.RawMessage, key string, out interface{}) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return decodeList(trimmed, out)
	}
	var env map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return appErrors.Wrap(err, appErrors.CodeHTTP, 0, "unexpected response from server")
	}
	for _, k := range []string{key, "data"} {
		if k == "" {
			continue
		}
		if list, ok := env[k]; ok && !isNull(list) {
			list = bytes.TrimSpace(list)
			if len(list) > 0 && list[0] == '{' && key != "" {
				// {data: {key: [...]}}
				var inner map[string]json.RawMessage
				if err := json.Unmarshal(list, &inner); err == nil {
					if nested, ok := inner[key]; ok {
						return decodeList(nested, out)
					}
				}
			}
			return decodeList(list, out)
		}
	}
	return decodeList([]byte("[]"), out)
}

func decodeList(raw []byte, out interface{}) error {
	if isNull(raw) {
		raw = []byte("[]")
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return appErrors.Wrap(err, appErrors.CodeHTTP, 0, "unexpected response from server")
	}
	return nil
}

func isNull(raw []byte) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}
