package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
)

// Error is the normalized form of a non-2xx response. Fields is populated
// from validation bodies (422) and holds per-field messages.
type Error struct {
	Status  int
	Message string
	Fields  map[string][]string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api: %d %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api: %d %s", e.Status, http.StatusText(e.Status))
}

func (e *Error) IsValidation() bool {
	return e.Status == http.StatusUnprocessableEntity || len(e.Fields) > 0
}

// FieldMessages expands the validation map field by field, in stable order.
func (e *Error) FieldMessages() []string {
	fields := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	var out []string
	for _, f := range fields {
		for _, msg := range e.Fields[f] {
			out = append(out, f+": "+msg)
		}
	}
	return out
}

// IsStatus reports whether err is an *Error with the given HTTP status.
func IsStatus(err error, status int) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == status
}

type errorBody struct {
	Message string                     `json:"message"`
	Err     string                     `json:"error"`
	Errors  map[string]json.RawMessage `json:"errors"`
}

func parseError(status int, data []byte) *Error {
	apiErr := &Error{Status: status}

	var body errorBody
	if err := json.Unmarshal(data, &body); err != nil {
		return apiErr
	}

	apiErr.Message = body.Message
	if apiErr.Message == "" {
		apiErr.Message = body.Err
	}

	// The backend emits both {"field": "msg"} and {"field": ["msg", ...]}.
	if len(body.Errors) > 0 {
		apiErr.Fields = make(map[string][]string, len(body.Errors))
		for field, raw := range body.Errors {
			var single string
			if err := json.Unmarshal(raw, &single); err == nil {
				apiErr.Fields[field] = []string{single}
				continue
			}
			var many []string
			if err := json.Unmarshal(raw, &many); err == nil {
				apiErr.Fields[field] = many
			}
		}
	}

	return apiErr
}
