package transport

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
)

var ErrEmptyBody = errors.New("empty response body")

// Response is one completed round-trip. The body is held raw and only
// decoded when JSON or Map is called.
type Response struct {
	StatusCode int
	Header     http.Header

	body []byte

	once    sync.Once
	decoded map[string]any
	err     error
}

// NewResponse builds a Response from a status and raw body.
func NewResponse(status int, body []byte) *Response {
	return &Response{StatusCode: status, Header: http.Header{}, body: body}
}

func (r *Response) Body() []byte {
	return r.body
}

// JSON decodes the body into v.
func (r *Response) JSON(v any) error {
	if len(r.body) == 0 {
		return ErrEmptyBody
	}
	return json.Unmarshal(r.body, v)
}

// Map decodes the body as a JSON object once and caches the result.
func (r *Response) Map() (map[string]any, error) {
	r.once.Do(func() {
		var m map[string]any
		r.err = r.JSON(&m)
		r.decoded = m
	})
	return r.decoded, r.err
}
