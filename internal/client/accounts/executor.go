package accounts

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/calyxlabs/accountkit/internal/client/transport"
)

// endpoint configures one operation of the uniform request protocol.
// A nil mapSuccess discards any success body.
type endpoint[T any] struct {
	method       string
	path         string
	requiresAuth bool
	mapSuccess   func(*transport.Response) (T, error)
}

// execute runs the protocol shared by every credential operation:
//
//  1. encode input into a key-value body (nulls are stripped by the transport)
//  2. send it
//  3. status >= 400: fail with the decoded payload as *transport.HTTPError
//  4. status 204: succeed with the zero value, body untouched
//  5. otherwise: succeed with mapSuccess(response)
func execute[T any](ctx context.Context, s *Service, ep endpoint[T], input any) (T, error) {
	var zero T

	body, err := toBody(input)
	if err != nil {
		return zero, fmt.Errorf("encode %s %s request: %w", ep.method, ep.path, err)
	}

	resp, err := s.sender.SendRequest(ctx, ep.method, ep.path, body, ep.requiresAuth)
	if err != nil {
		return zero, err
	}

	if resp.StatusCode >= 400 {
		return zero, transport.NewHTTPError(ep.method, ep.path, resp)
	}
	if resp.StatusCode == http.StatusNoContent || ep.mapSuccess == nil {
		return zero, nil
	}

	v, err := ep.mapSuccess(resp)
	if err != nil {
		return zero, fmt.Errorf("decode %s %s response: %w", ep.method, ep.path, err)
	}
	return v, nil
}

// decodeJSON is the default mapSuccess. An empty body yields the zero value.
func decodeJSON[T any](resp *transport.Response) (T, error) {
	var v T
	if len(bytes.TrimSpace(resp.Body())) == 0 {
		return v, nil
	}
	err := resp.JSON(&v)
	return v, err
}

// toBody turns a JSON-tagged struct into a generic key-value tree.
func toBody(input any) (map[string]any, error) {
	return transport.Normalize(input)
}
