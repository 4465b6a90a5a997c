package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

var (
	// ErrUnauthorized means the server rejected the credential (HTTP 401).
	ErrUnauthorized = errors.New("authentication required")
	// ErrInvalidCredentials is a 401 from the login endpoint itself.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrUnavailable means the circuit breaker is open and the call was not attempted.
	ErrUnavailable = errors.New("api temporarily unavailable")
	// ErrProtocol means the server answered with a shape the client does not understand.
	ErrProtocol = errors.New("unexpected response shape")
)

// APIError is any non-2xx response other than 401.
type APIError struct {
	Status int
	Method string
	Path   string
	Detail string
	Fields map[string][]string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, e.Message())
}

// Message is the server's explanation, flattened for display.
func (e *APIError) Message() string {
	if e.Detail != "" {
		return e.Detail
	}
	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			msg := strings.Join(e.Fields[k], " ")
			if k == "non_field_errors" {
				parts = append(parts, msg)
				continue
			}
			parts = append(parts, k+": "+msg)
		}
		return strings.Join(parts, "; ")
	}
	return strings.ToLower(http.StatusText(e.Status))
}

// newAPIError reads a DRF-style error body: {"detail": "..."} or
// {"field": ["msg", ...], "non_field_errors": [...]}.
func newAPIError(status int, method, path string, body []byte) *APIError {
	e := &APIError{Status: status, Method: method, Path: path}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		if text := strings.TrimSpace(string(body)); text != "" && len(text) <= 200 && !strings.HasPrefix(text, "<") {
			e.Detail = text
		}
		return e
	}

	for k, v := range raw {
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			if k == "detail" {
				e.Detail = s
				continue
			}
			e.addField(k, s)
			continue
		}
		var list []string
		if err := json.Unmarshal(v, &list); err == nil {
			for _, s := range list {
				e.addField(k, s)
			}
		}
	}
	return e
}

func (e *APIError) addField(k, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[k] = append(e.Fields[k], msg)
}

// Kind groups errors by how the UI must react to them.
type Kind int

const (
	// KindUnexpected covers network failures, 5xx and malformed responses.
	KindUnexpected Kind = iota
	// KindAuth means the session is no longer valid.
	KindAuth
	// KindRejected is a 4xx validation or permission failure.
	KindRejected
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindRejected:
		return "rejected"
	default:
		return "unexpected"
	}
}

func Classify(err error) Kind {
	if errors.Is(err, ErrInvalidCredentials) {
		return KindRejected
	}
	if errors.Is(err, ErrUnauthorized) {
		return KindAuth
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500 {
		return KindRejected
	}
	return KindUnexpected
}

// Describe returns a short explanation suitable for a notice.
func Describe(err error) string {
	switch Classify(err) {
	case KindAuth:
		return "your session has expired, please log in again"
	case KindRejected:
		if errors.Is(err, ErrInvalidCredentials) {
			return ErrInvalidCredentials.Error()
		}
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return apiErr.Message()
		}
	}
	if errors.Is(err, ErrUnavailable) {
		return "the server is not responding, try again in a moment"
	}
	return "something went wrong, please try again"
}
