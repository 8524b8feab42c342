package api

import (
	"bytes"
	"encoding/json"
)

// Unwrap peels the backend's inconsistent response envelope: the payload may
// sit under any of the given keys or arrive bare. The first matching
// non-null key wins; otherwise the input is returned unchanged.
func Unwrap(data []byte, keys ...string) []byte {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return data
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return data
	}

	for _, key := range keys {
		value, ok := envelope[key]
		if !ok {
			continue
		}
		v := bytes.TrimSpace(value)
		if len(v) == 0 || bytes.Equal(v, []byte("null")) {
			continue
		}
		return value
	}

	return data
}

// DecodeWrapped unwraps and decodes in one step. Empty, null or
// shape-mismatched payloads yield the zero value, not an error: once every
// known envelope key has been tried there is nothing better to return.
func DecodeWrapped[T any](data []byte, keys ...string) (T, error) {
	var out T

	payload := bytes.TrimSpace(Unwrap(data, keys...))
	if len(payload) == 0 || bytes.Equal(payload, []byte("null")) {
		return out, nil
	}

	if err := json.Unmarshal(payload, &out); err != nil {
		var zero T
		return zero, nil
	}

	return out, nil
}
