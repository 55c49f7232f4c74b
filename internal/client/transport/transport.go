// Package transport issues JSON requests against the account server with a
// uniform request/response envelope.
//
// SendRequest performs exactly one round-trip per call and never retries.
// Network failures surface as *TransportError; HTTP statuses are returned
// unchanged in Response so callers decide what counts as failure.
// NewHTTPError turns a non-2xx Response into a structured *HTTPError.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/calyxlabs/accountkit/internal/logging"
	"github.com/google/uuid"
)

const (
	// MaxResponseSize bounds how much of a response body is read.
	MaxResponseSize = 1 << 20

	// DefaultTimeout applies when Config.HTTPClient is nil and Config.Timeout is zero.
	DefaultTimeout = 15 * time.Second

	// DefaultAuthScheme is the Authorization header type the server accepts.
	DefaultAuthScheme = "JWT"

	RequestIDHeader = "X-Request-ID"
)

var (
	ErrUnsupportedMethod = errors.New("unsupported method")
	ErrResponseTooLarge  = errors.New("response body exceeds size limit")
)

// Credentials supplies the access token attached to authenticated requests.
// An empty token means no Authorization header is sent.
type Credentials interface {
	AccessToken() string
}

// Config holds configuration for creating a Transport.
type Config struct {
	// BaseURL is the server root, e.g. "http://localhost:8000/api".
	BaseURL string
	// HTTPClient is used for all requests. If nil, a client with Timeout is created.
	HTTPClient *http.Client
	// Timeout bounds each round-trip when HTTPClient is nil.
	Timeout time.Duration
	// AuthScheme prefixes the access token in the Authorization header.
	AuthScheme string
	// Credentials is consulted for requests with requiresAuth set. May be nil.
	Credentials Credentials
	// Logger receives one debug record per round-trip. If nil, logging is discarded.
	Logger logging.Logger
}

type Transport struct {
	baseURL     string
	httpClient  *http.Client
	authScheme  string
	credentials Credentials
	logger      logging.Logger
}

func New(cfg Config) (*Transport, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("transport: BaseURL is required")
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("transport: invalid BaseURL %q: %w", cfg.BaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("transport: BaseURL %q must be http or https", cfg.BaseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	scheme := cfg.AuthScheme
	if scheme == "" {
		scheme = DefaultAuthScheme
	}

	var logger logging.Logger = logging.Nop()
	if cfg.Logger != nil {
		logger = cfg.Logger
	}

	return &Transport{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:  httpClient,
		authScheme:  scheme,
		credentials: cfg.Credentials,
		logger:      logger,
	}, nil
}

// SendRequest sends body as JSON with null fields stripped at any depth to path and returns the
// response with its body read but not decoded. GET requests carry no body.
func (t *Transport) SendRequest(ctx context.Context, method, path string, body map[string]any, requiresAuth bool) (*Response, error) {
	if method != http.MethodGet && method != http.MethodPost {
		return nil, fmt.Errorf("transport: %w: %s", ErrUnsupportedMethod, method)
	}

	var bodyReader io.Reader
	if method == http.MethodPost {
		normalized, err := Normalize(body)
		if err != nil {
			return nil, fmt.Errorf("transport: failed to encode request body: %w", err)
		}
		stripped := StripNulls(normalized)
		if stripped == nil {
			stripped = map[string]any{}
		}
		encoded, err := json.Marshal(stripped)
		if err != nil {
			return nil, fmt.Errorf("transport: failed to encode request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, t.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("transport: failed to create request: %w", err)
	}

	requestID := uuid.NewString()
	request.Header.Set("Accept", "application/json")
	request.Header.Set(RequestIDHeader, requestID)
	if bodyReader != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if requiresAuth && t.credentials != nil {
		if token := t.credentials.AccessToken(); token != "" {
			request.Header.Set("Authorization", t.authScheme+" "+token)
		}
	}

	started := time.Now()
	response, err := t.httpClient.Do(request)
	if err != nil {
		t.logger.Debug(ctx, "request failed",
			"method", method, "path", path, "request_id", requestID,
			"duration", time.Since(started), "error", err)
		return nil, &TransportError{Method: method, Path: path, Err: err}
	}
	defer response.Body.Close()

	data, err := io.ReadAll(io.LimitReader(response.Body, MaxResponseSize+1))
	if err != nil {
		return nil, &TransportError{Method: method, Path: path, Err: fmt.Errorf("reading response body: %w", err)}
	}
	if len(data) > MaxResponseSize {
		t.logger.Debug(ctx, "response too large",
			"method", method, "path", path, "request_id", requestID, "status", response.StatusCode)
		return nil, &TransportError{Method: method, Path: path, Err: ErrResponseTooLarge}
	}

	t.logger.Debug(ctx, "request completed",
		"method", method, "path", path, "request_id", requestID,
		"status", response.StatusCode, "duration", time.Since(started))

	return &Response{
		StatusCode: response.StatusCode,
		Header:     response.Header.Clone(),
		body:       data,
	}, nil
}

// CloseIdleConnections releases pooled connections of the underlying client.
func (t *Transport) CloseIdleConnections() {
	t.httpClient.CloseIdleConnections()
}
