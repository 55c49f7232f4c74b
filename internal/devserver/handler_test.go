package devserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	t       *testing.T
	handler http.Handler
	outbox  *Outbox
}

func newTestServer(t *testing.T, mutate func(*Config)) *testServer {
	t.Helper()
	cfg := testConfig()
	if mutate != nil {
		mutate(cfg)
	}
	app := NewApp(cfg, nil)
	return &testServer{t: t, handler: app.Handler(), outbox: app.Outbox()}
}

func (ts *testServer) do(method, path string, body any, token string) (int, map[string]any) {
	ts.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(ts.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "JWT "+token)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(ts.t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec.Code, out
}

func (ts *testServer) activeUser(username, password string) string {
	ts.t.Helper()
	code, _ := ts.do(http.MethodPost, "/users/create/", map[string]any{"username": username, "password": password}, "")
	require.Equal(ts.t, http.StatusCreated, code)
	msg, ok := ts.outbox.Last(MessageActivation, username+"@example.ac.jp")
	require.True(ts.t, ok)
	code, _ = ts.do(http.MethodPost, "/users/activate/", map[string]any{"uid": msg.UID, "token": msg.Token}, "")
	require.Equal(ts.t, http.StatusNoContent, code)

	code, body := ts.do(http.MethodPost, "/jwt/create/", map[string]any{"username": username, "password": password}, "")
	require.Equal(ts.t, http.StatusOK, code)
	return body["access"].(string)
}

func TestHandler_CreateUser(t *testing.T) {
	ts := newTestServer(t, nil)

	code, body := ts.do(http.MethodPost, "/users/create/", map[string]any{
		"username": "b1234567", "password": "Secret123", "screenName": "Bee", "gpa": 3.2,
	}, "")
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "b1234567", body["username"])
	assert.Equal(t, "b1234567@example.ac.jp", body["email"])
	assert.Equal(t, "Bee", body["screenName"])
	assert.InDelta(t, 3.2, body["gpa"], 1e-9)
	assert.NotContains(t, body, "password")
}

func TestHandler_CreateUserValidation(t *testing.T) {
	ts := newTestServer(t, nil)

	code, body := ts.do(http.MethodPost, "/users/create/", map[string]any{"username": "", "password": "short"}, "")
	require.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, []any{"This field is required."}, body["username"])
	assert.Equal(t, []any{"Ensure this field has at least 8 characters."}, body["password"])

	code, body = ts.do(http.MethodPost, "/users/create/", map[string]any{"username": "b1111111", "password": "Secret123", "gpa": -1}, "")
	require.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body, "gpa")
	assert.NotContains(t, body, "username")
}

func TestHandler_CreateUserFieldRules(t *testing.T) {
	ts := newTestServer(t, nil)
	tests := []struct {
		name  string
		body  map[string]any
		field string
		want  string
	}{
		{
			name:  "username must be a student number",
			body:  map[string]any{"username": "alice", "password": "Secret123"},
			field: "username",
			want:  "Enter a valid student number. For example, b1234567 or m7654321.",
		},
		{
			name:  "username prefix is lower case b, m or d",
			body:  map[string]any{"username": "x1234567", "password": "Secret123"},
			field: "username",
			want:  "Enter a valid student number. For example, b1234567 or m7654321.",
		},
		{
			name:  "username longer than 64 characters",
			body:  map[string]any{"username": strings.Repeat("b", 65), "password": "Secret123"},
			field: "username",
			want:  "Ensure this field has no more than 64 characters.",
		},
		{
			name:  "gpa above 4",
			body:  map[string]any{"username": "m1234567", "password": "Secret123", "gpa": 7.5},
			field: "gpa",
			want:  "Ensure this value is less than or equal to 4.",
		},
		{
			name:  "screen name longer than 255 characters",
			body:  map[string]any{"username": "d1234567", "password": "Secret123", "screenName": strings.Repeat("x", 256)},
			field: "screenName",
			want:  "Ensure this field has no more than 255 characters.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := ts.do(http.MethodPost, "/users/create/", tt.body, "")
			require.Equal(t, http.StatusBadRequest, code)
			assert.Equal(t, []any{tt.want}, body[tt.field])
		})
	}

	code, body := ts.do(http.MethodPost, "/users/create/", map[string]any{
		"username": "d1234567", "password": "Secret123", "screenName": strings.Repeat("x", 255), "gpa": 4,
	}, "")
	require.Equal(t, http.StatusCreated, code)
	assert.EqualValues(t, 4, body["gpa"])
}

func TestHandler_MalformedJSON(t *testing.T) {
	ts := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/users/create/", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "detail")
}

func TestHandler_ActivateTwiceIsStale(t *testing.T) {
	ts := newTestServer(t, nil)
	code, _ := ts.do(http.MethodPost, "/users/create/", map[string]any{"username": "b7654321", "password": "Secret123"}, "")
	require.Equal(t, http.StatusCreated, code)
	msg, _ := ts.outbox.Last(MessageActivation, "b7654321@example.ac.jp")

	code, _ = ts.do(http.MethodPost, "/users/activate/", map[string]any{"uid": msg.UID, "token": msg.Token}, "")
	require.Equal(t, http.StatusNoContent, code)

	code, body := ts.do(http.MethodPost, "/users/activate/", map[string]any{"uid": msg.UID, "token": msg.Token}, "")
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "Stale token for given user.", body["detail"])

	code, body = ts.do(http.MethodPost, "/users/activate/", map[string]any{"uid": msg.UID, "token": "forged"}, "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body, "token")
}

func TestHandler_ActivationSendsConfirmation(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.activeUser("m7654321", "Secret123")

	msg, ok := ts.outbox.Last(MessageConfirmation, "m7654321@example.ac.jp")
	require.True(t, ok)
	assert.Empty(t, msg.Token)
}

func TestHandler_LoginFailure(t *testing.T) {
	ts := newTestServer(t, nil)
	code, body := ts.do(http.MethodPost, "/jwt/create/", map[string]any{"username": "ghost", "password": "x"}, "")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "No active account found with the given credentials", body["detail"])
}

func TestHandler_MeRequiresAuth(t *testing.T) {
	ts := newTestServer(t, nil)

	code, body := ts.do(http.MethodGet, "/users/me/", nil, "")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Authentication credentials were not provided.", body["detail"])

	code, body = ts.do(http.MethodGet, "/users/me/", nil, "garbage")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "token_not_valid", body["code"])

	access := ts.activeUser("b7654321", "Secret123")
	code, body = ts.do(http.MethodGet, "/users/me/", nil, access)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "b7654321", body["username"])
	assert.EqualValues(t, 1, body["pk"])
}

func TestHandler_BearerSchemeRejected(t *testing.T) {
	ts := newTestServer(t, nil)
	access := ts.activeUser("b7654321", "Secret123")

	req := httptest.NewRequest(http.MethodGet, "/users/me/", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandler_ChangePassword(t *testing.T) {
	ts := newTestServer(t, nil)
	access := ts.activeUser("b7654321", "Secret123")

	code, body := ts.do(http.MethodPost, "/password/", map[string]any{"current_password": "wrong", "new_password": "Changed123"}, access)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body, "current_password")

	code, _ = ts.do(http.MethodPost, "/password/", map[string]any{"current_password": "Secret123", "new_password": "Changed123"}, access)
	assert.Equal(t, http.StatusNoContent, code)

	code, _ = ts.do(http.MethodPost, "/jwt/create/", map[string]any{"username": "b7654321", "password": "Changed123"}, "")
	assert.Equal(t, http.StatusOK, code)
}

func TestHandler_ResetFlow(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.activeUser("b7654321", "Secret123")

	code, _ := ts.do(http.MethodPost, "/password/reset/", map[string]any{"email": "b7654321@example.ac.jp"}, "")
	require.Equal(t, http.StatusNoContent, code)
	msg, ok := ts.outbox.Last(MessagePasswordReset, "b7654321@example.ac.jp")
	require.True(t, ok)

	confirm := map[string]any{"uid": msg.UID, "token": msg.Token, "new_password": "Reset1234"}
	code, _ = ts.do(http.MethodPost, "/password/reset/confirm/", confirm, "")
	require.Equal(t, http.StatusNoContent, code)

	code, body := ts.do(http.MethodPost, "/password/reset/confirm/", confirm, "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body, "token")

	code, body = ts.do(http.MethodPost, "/password/reset/", map[string]any{"email": "not-an-email"}, "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, []any{"Enter a valid email address."}, body["email"])
}

func TestHandler_ResetUnknownEmail(t *testing.T) {
	ts := newTestServer(t, nil)
	code, _ := ts.do(http.MethodPost, "/password/reset/", map[string]any{"email": "nobody@x.com"}, "")
	assert.Equal(t, http.StatusNoContent, code)

	strict := newTestServer(t, func(c *Config) { c.ShowEmailNotFound = true })
	code, body := strict.do(http.MethodPost, "/password/reset/", map[string]any{"email": "nobody@x.com"}, "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body, "email")
}

func TestHandler_RateLimit(t *testing.T) {
	ts := newTestServer(t, func(c *Config) { c.RateLimit = 2 })
	creds := map[string]any{"username": "ghost", "password": "x"}

	for range 2 {
		code, _ := ts.do(http.MethodPost, "/jwt/create/", creds, "")
		require.Equal(t, http.StatusUnauthorized, code)
	}

	req := httptest.NewRequest(http.MethodPost, "/jwt/create/", bytes.NewBufferString(`{"username":"ghost","password":"x"}`))
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestHandler_RateLimitIsPerRoute(t *testing.T) {
	ts := newTestServer(t, func(c *Config) { c.RateLimit = 2 })
	creds := map[string]any{"username": "ghost", "password": "x"}

	for range 2 {
		code, _ := ts.do(http.MethodPost, "/jwt/create/", creds, "")
		require.Equal(t, http.StatusUnauthorized, code)
	}

	// the login budget is spent, the reset budget is not
	code, _ := ts.do(http.MethodPost, "/password/reset/", map[string]any{"email": "nobody@x.com"}, "")
	assert.Equal(t, http.StatusNoContent, code)

	req := httptest.NewRequest(http.MethodPost, "/jwt/create/", bytes.NewBufferString(`{"username":"ghost","password":"x"}`))
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	ts := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/users/create/", nil)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
