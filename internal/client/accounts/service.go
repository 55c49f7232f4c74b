// Package accounts implements the client side of the account lifecycle:
// registration, activation, login/logout, password change and password reset.
//
// Every operation follows one protocol (see execute) and returns a plain Go
// error that keeps the server's failure payload: *transport.HTTPError for
// status >= 400, *transport.TransportError for network failures and
// *ValidationError for input rejected before sending. Use Kind and
// FieldErrors to inspect them, or BoolClient for a true/false contract.
//
// Only Login and Logout change the Session. Preconditions such as "must be
// authenticated" are left to the server: the request is always attempted.
package accounts

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/calyxlabs/accountkit/internal/client/session"
	"github.com/calyxlabs/accountkit/internal/client/transport"
	"github.com/calyxlabs/accountkit/internal/logging"
	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
)

// Sender is the transport contract the operations run on.
type Sender interface {
	SendRequest(ctx context.Context, method, path string, body map[string]any, requiresAuth bool) (*transport.Response, error)
}

// AccountService is the full set of credential operations.
type AccountService interface {
	CreateUser(ctx context.Context, u NewUser) (*CreatedUser, error)
	ActivateUser(ctx context.Context, t ActivationToken) error
	Login(ctx context.Context, c Credentials) error
	Logout(ctx context.Context)
	ChangePassword(ctx context.Context, r PasswordChangeRequest) error
	RequestPasswordReset(ctx context.Context, email string) error
	ConfirmPasswordReset(ctx context.Context, t ResetToken, newPassword string) error
	GetCurrentUser(ctx context.Context) (*Profile, error)
}

var (
	createUserEndpoint = endpoint[*CreatedUser]{
		method: http.MethodPost, path: "/users/create/",
		mapSuccess: decodeJSON[*CreatedUser],
	}
	activateEndpoint = endpoint[struct{}]{
		method: http.MethodPost, path: "/users/activate/",
	}
	loginEndpoint = endpoint[TokenPair]{
		method: http.MethodPost, path: "/jwt/create/",
		mapSuccess: decodeJSON[TokenPair],
	}
	meEndpoint = endpoint[*Profile]{
		method: http.MethodGet, path: "/users/me/", requiresAuth: true,
		mapSuccess: decodeProfile,
	}
	changePasswordEndpoint = endpoint[struct{}]{
		method: http.MethodPost, path: "/password/", requiresAuth: true,
	}
	resetEndpoint = endpoint[struct{}]{
		method: http.MethodPost, path: "/password/reset/",
	}
	resetConfirmEndpoint = endpoint[struct{}]{
		method: http.MethodPost, path: "/password/reset/confirm/",
	}
)

// Service is the concrete AccountService. It is safe for concurrent use;
// overlapping logins resolve last-response-wins.
type Service struct {
	sender   Sender
	session  *session.Session
	validate *validator.Validate
	logger   logging.Logger
}

// NewService binds the operations to a transport and the process Session.
func NewService(sender Sender, sess *session.Session, logger logging.Logger) *Service {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Service{
		sender:   sender,
		session:  sess,
		validate: newValidator(),
		logger:   logger.With("component", "accounts"),
	}
}

// Session returns the session this service writes on login and logout.
func (s *Service) Session() *session.Session {
	return s.session
}

// CreateUser registers a new, not yet activated account.
func (s *Service) CreateUser(ctx context.Context, u NewUser) (*CreatedUser, error) {
	if err := s.validate.Struct(u); err != nil {
		return nil, toValidationError(err, "")
	}
	created, err := execute(ctx, s, createUserEndpoint, u)
	if err != nil {
		return nil, err
	}
	if created == nil {
		created = &CreatedUser{Username: u.Username}
	}
	s.logger.Info(ctx, "account created", "username", u.Username)
	return created, nil
}

// ActivateUser consumes an activation token. A token that was already used
// fails like any other rejected token.
func (s *Service) ActivateUser(ctx context.Context, t ActivationToken) error {
	if err := s.validate.Struct(t); err != nil {
		return toValidationError(err, "")
	}
	_, err := execute(ctx, s, activateEndpoint, activateRequest(t))
	return err
}

// Login authenticates and, on success only, signs the Session in with the
// issued tokens. The access token's claims are read without verification;
// the server remains the authority on their validity.
func (s *Service) Login(ctx context.Context, c Credentials) error {
	if err := s.validate.Struct(c); err != nil {
		return toValidationError(err, "")
	}
	pair, err := execute(ctx, s, loginEndpoint, c)
	if err != nil {
		return err
	}
	if pair.Access == "" {
		return ErrNoAccessToken
	}

	claims, err := parseAccessClaims(pair.Access)
	if err != nil {
		s.logger.Warn(ctx, "access token claims unreadable", "error", err)
	}

	s.session.SignIn(session.State{
		Username:     c.Username,
		UserID:       claims.UserID,
		AccessToken:  pair.Access,
		RefreshToken: pair.Refresh,
		ExpiresAt:    claims.ExpiresAt,
	})
	s.logger.Info(ctx, "logged in", "username", c.Username)
	return nil
}

// Logout signs the Session out locally. It cannot fail and is idempotent.
func (s *Service) Logout(ctx context.Context) {
	was := s.session.IsAuthenticated()
	s.session.SignOut()
	if was {
		s.logger.Info(ctx, "logged out")
	}
}

// ChangePassword updates the password of the authenticated user.
func (s *Service) ChangePassword(ctx context.Context, r PasswordChangeRequest) error {
	if err := s.validate.Struct(r); err != nil {
		return toValidationError(err, "")
	}
	_, err := execute(ctx, s, changePasswordEndpoint, r)
	return err
}

// RequestPasswordReset asks the server to mail a reset token to email. The
// server answers the same way for unknown addresses.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if err := s.validate.Var(email, "required,email"); err != nil {
		return toValidationError(err, "email")
	}
	_, err := execute(ctx, s, resetEndpoint, resetRequest{Email: email})
	return err
}

// ConfirmPasswordReset consumes a reset token and sets newPassword.
func (s *Service) ConfirmPasswordReset(ctx context.Context, t ResetToken, newPassword string) error {
	if err := s.validate.Struct(t); err != nil {
		return toValidationError(err, "")
	}
	if err := s.validate.Var(newPassword, "required"); err != nil {
		return toValidationError(err, "new_password")
	}
	_, err := execute(ctx, s, resetConfirmEndpoint, resetConfirmRequest{
		UID: t.UID, Token: t.Token, NewPassword: newPassword,
	})
	return err
}

// GetCurrentUser fetches the authenticated user's profile. Failures keep
// their payload.
func (s *Service) GetCurrentUser(ctx context.Context) (*Profile, error) {
	return execute(ctx, s, meEndpoint, nil)
}

func decodeProfile(resp *transport.Response) (*Profile, error) {
	raw, err := resp.Map()
	if err != nil {
		return nil, err
	}
	p := &Profile{Raw: raw}
	if err := resp.JSON(p); err != nil {
		return nil, err
	}
	return p, nil
}

func parseAccessClaims(token string) (accessClaims, error) {
	var out accessClaims

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser(jwt.WithJSONNumber()).ParseUnverified(token, claims); err != nil {
		return out, fmt.Errorf("parse access token: %w", err)
	}

	if id, ok := claims["user_id"]; ok && id != nil {
		out.UserID = fmt.Sprint(id)
	} else if sub, err := claims.GetSubject(); err == nil {
		out.UserID = sub
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	return out, nil
}
