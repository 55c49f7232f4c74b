package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sort"
	"strings"
)

// HTTPError is a response with status >= 400. Payload holds the decoded
// JSON error body, the only source of user-facing detail. Callers can
// extract it with errors.As:
//
//	var httpErr *transport.HTTPError
//	if errors.As(err, &httpErr) && httpErr.IsClientError() { ... }
type HTTPError struct {
	StatusCode int
	Method     string
	Path       string
	Payload    map[string]any
}

// NewHTTPError builds an HTTPError from a failed response. A JSON object body
// becomes the payload as is; any other JSON value or raw text is kept under
// "detail".
func NewHTTPError(method, path string, resp *Response) *HTTPError {
	e := &HTTPError{StatusCode: resp.StatusCode, Method: method, Path: path, Payload: map[string]any{}}

	body := resp.Body()
	if len(strings.TrimSpace(string(body))) == 0 {
		return e
	}
	if m, err := resp.Map(); err == nil && m != nil {
		e.Payload = m
		return e
	}
	var v any
	if err := json.Unmarshal(body, &v); err == nil {
		e.Payload["detail"] = v
		return e
	}
	e.Payload["detail"] = string(body)
	return e
}

func (e *HTTPError) Error() string {
	if detail := e.Detail(); detail != "" {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, detail)
	}
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.StatusCode)
}

func (e *HTTPError) IsClientError() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

func (e *HTTPError) IsServerError() bool {
	return e.StatusCode >= 500
}

// Detail returns the payload's "detail" message, or a compact rendering of
// the field errors when there is none.
func (e *HTTPError) Detail() string {
	if d, ok := e.Payload["detail"].(string); ok {
		return d
	}
	fields := e.FieldErrors()
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(fields[k], "; "))
	}
	return strings.Join(parts, ", ")
}

// FieldErrors flattens the payload into field -> messages. Scalar values
// become single-element lists; nested objects are skipped.
func (e *HTTPError) FieldErrors() map[string][]string {
	out := make(map[string][]string, len(e.Payload))
	for field, v := range e.Payload {
		switch val := v.(type) {
		case string:
			out[field] = []string{val}
		case []any:
			msgs := make([]string, 0, len(val))
			for _, item := range val {
				if s, ok := item.(string); ok {
					msgs = append(msgs, s)
				} else {
					msgs = append(msgs, fmt.Sprint(item))
				}
			}
			out[field] = msgs
		case nil, map[string]any:
		default:
			out[field] = []string{fmt.Sprint(val)}
		}
	}
	return out
}

// TransportError is a failure to complete the round-trip: DNS, refused or
// reset connections, timeouts and cancelled contexts.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: transport failure: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the failure was a deadline or client timeout.
func (e *TransportError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}
