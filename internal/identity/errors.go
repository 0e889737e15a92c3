package identity

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrNoSession is returned when an operation needs a session and none was given
	ErrNoSession = errors.New("identity: no active session")
	// ErrTokenExpired is returned by the claims parser for expired access tokens
	ErrTokenExpired = errors.New("identity: access token expired")
)

// Error is a failure reported by the identity provider itself.
// Message is the provider's human-readable reason.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("identity provider error %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("identity provider error %d: %s", e.Status, e.Message)
}

// Reason extracts the provider-reported message from err, if any
func Reason(err error) (string, bool) {
	var providerErr *Error
	if errors.As(err, &providerErr) {
		return providerErr.Message, true
	}
	return "", false
}

// errorBody covers the error shapes GoTrue has used across versions
type errorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	ErrorCode        string `json:"error_code"`
	Code             any    `json:"code"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
}

func decodeError(status int, raw []byte) *Error {
	out := &Error{Status: status}

	var body errorBody
	if err := json.Unmarshal(raw, &body); err == nil {
		out.Message = firstNonEmpty(body.ErrorDescription, body.Msg, body.Message, body.Error)
		out.Code = body.ErrorCode
		if out.Code == "" {
			if code, ok := body.Code.(string); ok {
				out.Code = code
			}
		}
		if out.Code == "" && body.Error != "" && body.Error != out.Message {
			out.Code = body.Error
		}
	}

	if out.Message == "" {
		if text := strings.TrimSpace(string(raw)); text != "" && len(text) <= 200 {
			out.Message = text
		} else {
			out.Message = http.StatusText(status)
		}
	}

	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
