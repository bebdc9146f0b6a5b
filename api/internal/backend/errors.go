package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedResponse is returned when a 2xx body cannot be decoded or
// lacks the expected field.
var ErrMalformedResponse = errors.New("backend: malformed response")

// HTTPError is a non-2xx answer. Detail is the server-supplied message,
// empty when the body had none.
type HTTPError struct {
	Op         string
	StatusCode int
	Detail     string
}

func (e *HTTPError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s %d: %s", e.Op, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("%s %d", e.Op, e.StatusCode)
}

// parseDetail extracts "detail" from an error body. FastAPI returns either
// a string or, for request validation, a list of {"msg": ...} objects.
func parseDetail(body []byte) string {
	var env struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &env); err != nil || len(env.Detail) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(env.Detail, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var list []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(env.Detail, &list); err == nil {
		msgs := make([]string, 0, len(list))
		for _, it := range list {
			if m := strings.TrimSpace(it.Msg); m != "" {
				msgs = append(msgs, m)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}
