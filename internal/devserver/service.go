package devserver

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/calyxlabs/accountkit/internal/logging"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("no active account found with the given credentials")
	ErrStaleToken         = errors.New("stale token for given user")
	ErrUserNotFound       = errors.New("user not found")
)

// FieldErrors maps request fields to messages. It is served as a 400 body.
type FieldErrors map[string][]string

func (f FieldErrors) Error() string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(f[k], " "))
	}
	return strings.Join(parts, "; ")
}

const (
	msgInvalidUID      = "Invalid user id or user doesn't exist."
	msgInvalidToken    = "Invalid token for given user."
	msgUsernameTaken   = "A user with that username already exists."
	msgInvalidPassword = "Invalid password."
	msgEmailNotFound   = "User with given email does not exist."
	msgStudentNumber   = "Enter a valid student number. For example, b1234567 or m7654321."
)

// TokenPair is the login response body.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// RegisterInput is the create-user request.
type RegisterInput struct {
	Username   string   `json:"username" validate:"required,max=64,student_number"`
	Password   string   `json:"password" validate:"required,min=8"`
	ScreenName *string  `json:"screenName" validate:"omitempty,max=255"`
	GPA        *float64 `json:"gpa" validate:"omitempty,gte=0,lte=4"`
}

// Service holds the account rules of the dev server: inactive accounts until
// activation, single-use activation and reset tokens in separate namespaces,
// JWT sessions.
type Service struct {
	cfg    *Config
	store  *store
	mailer Mailer
	logger logging.Logger
	now    func() time.Time
}

func NewService(cfg *Config, mailer Mailer, logger logging.Logger) *Service {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Service{cfg: cfg, store: newStore(), mailer: mailer, logger: logger, now: time.Now}
}

// Register creates an inactive account and mails its activation token.
// The email address is derived from the username.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	s.store.mu.Lock()
	if _, taken := s.store.userByUsername(in.Username); taken {
		s.store.mu.Unlock()
		return nil, FieldErrors{"username": {msgUsernameTaken}}
	}
	u := &User{
		Username:     in.Username,
		Email:        in.Username + "@" + s.cfg.EmailDomain,
		GPA:          in.GPA,
		PasswordHash: hash,
		Joined:       s.now(),
	}
	if in.ScreenName != nil {
		u.ScreenName = *in.ScreenName
	}
	s.store.insert(u)
	token, err := s.store.issueToken(activationTokens, u.ID, s.now().Add(s.cfg.TokenValidity))
	created := *u
	if err != nil {
		s.store.remove(u.ID)
	}
	s.store.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("issue activation token: %w", err)
	}

	uid := encodeUID(created.ID)
	if err := s.mailer.Send(ctx, Message{
		Kind: MessageActivation, To: created.Email, UID: uid, Token: token,
		Link: s.link("activate/#/%s/%s", uid, token),
	}); err != nil {
		// an account nobody can activate would only block the username
		s.store.mu.Lock()
		s.store.remove(created.ID)
		s.store.mu.Unlock()
		return nil, fmt.Errorf("send activation mail: %w", err)
	}
	s.logger.Info(ctx, "user registered", "user_id", created.ID, "username", created.Username)
	return &created, nil
}

// Activate checks an activation token and activates its account, then
// mails a confirmation. Tokens stay valid after use, so presenting one for
// an account that is already active is rejected as stale.
func (s *Service) Activate(ctx context.Context, uid, token string) error {
	s.store.mu.Lock()
	u, err := s.userByUID(uid)
	if err != nil {
		s.store.mu.Unlock()
		return err
	}
	if !s.store.validToken(activationTokens, token, u.ID, s.now()) {
		s.store.mu.Unlock()
		return FieldErrors{"token": {msgInvalidToken}}
	}
	if u.Active {
		s.store.mu.Unlock()
		return ErrStaleToken
	}
	u.Active = true
	activated := *u
	s.store.mu.Unlock()

	s.logger.Info(ctx, "user activated", "user_id", activated.ID)
	if err := s.mailer.Send(ctx, Message{Kind: MessageConfirmation, To: activated.Email, UID: uid}); err != nil {
		s.logger.Warn(ctx, "confirmation mail not sent", "user_id", activated.ID, "error", err)
	}
	return nil
}

// Login checks credentials of an active account and mints a token pair.
func (s *Service) Login(ctx context.Context, username, password string) (*TokenPair, error) {
	s.store.mu.Lock()
	u, ok := s.store.userByUsername(username)
	var (
		hash   []byte
		active bool
		id     int64
	)
	if ok {
		hash, active, id = u.PasswordHash, u.Active, u.ID
	}
	s.store.mu.Unlock()

	if !ok || !active || bcrypt.CompareHashAndPassword(hash, []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	now := s.now()
	access, err := generateToken(id, tokenTypeAccess, []byte(s.cfg.SecretKey), s.cfg.AccessTokenValidity, now)
	if err != nil {
		return nil, err
	}
	refresh, err := generateToken(id, tokenTypeRefresh, []byte(s.cfg.SecretKey), s.cfg.RefreshValidity, now)
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "user logged in", "user_id", id)
	return &TokenPair{Access: access, Refresh: refresh}, nil
}

// Authenticate resolves an access token to a copy of its active user.
func (s *Service) Authenticate(accessToken string) (*User, error) {
	id, err := userIDFromToken(accessToken, tokenTypeAccess, []byte(s.cfg.SecretKey), s.now())
	if err != nil {
		return nil, err
	}

	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	u, ok := s.store.users[id]
	if !ok || !u.Active {
		return nil, ErrInvalidToken
	}
	cp := *u
	return &cp, nil
}

// ChangePassword replaces the password after checking the current one.
// Outstanding reset tokens of the user are revoked.
func (s *Service) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	u, ok := s.store.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	if bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(current)) != nil {
		return FieldErrors{"current_password": {msgInvalidPassword}}
	}
	if err := s.setPassword(u, next); err != nil {
		return err
	}
	s.logger.Info(ctx, "password changed", "user_id", u.ID)
	return nil
}

// RequestReset mails a reset token to the active account owning email.
// Unknown addresses succeed silently unless ShowEmailNotFound is set.
func (s *Service) RequestReset(ctx context.Context, email string) error {
	s.store.mu.Lock()
	u, ok := s.store.userByEmail(email)
	if !ok || !u.Active {
		s.store.mu.Unlock()
		if s.cfg.ShowEmailNotFound {
			return FieldErrors{"email": {msgEmailNotFound}}
		}
		s.logger.Info(ctx, "reset requested for unknown email")
		return nil
	}
	id := u.ID
	token, err := s.store.issueToken(resetTokens, id, s.now().Add(s.cfg.TokenValidity))
	s.store.mu.Unlock()
	if err != nil {
		return fmt.Errorf("issue reset token: %w", err)
	}

	uid := encodeUID(id)
	if err := s.mailer.Send(ctx, Message{
		Kind: MessagePasswordReset, To: email, UID: uid, Token: token,
		Link: s.link("password/reset/confirm/#/%s/%s", uid, token),
	}); err != nil {
		return fmt.Errorf("send reset mail: %w", err)
	}
	return nil
}

// ConfirmReset consumes a reset token and sets newPassword.
func (s *Service) ConfirmReset(ctx context.Context, uid, token, newPassword string) error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	u, err := s.userByUID(uid)
	if err != nil {
		return err
	}
	if !s.store.consumeToken(resetTokens, token, u.ID, s.now()) {
		return FieldErrors{"token": {msgInvalidToken}}
	}
	if err := s.setPassword(u, newPassword); err != nil {
		return err
	}
	s.logger.Info(ctx, "password reset", "user_id", u.ID)
	return nil
}

// userByUID decodes uid and loads its user. Callers hold store.mu.
func (s *Service) userByUID(uid string) (*User, error) {
	id, ok := decodeUID(uid)
	if !ok {
		return nil, FieldErrors{"uid": {msgInvalidUID}}
	}
	u, ok := s.store.users[id]
	if !ok {
		return nil, FieldErrors{"uid": {msgInvalidUID}}
	}
	return u, nil
}

// setPassword hashes and stores next, revoking reset tokens. Callers hold store.mu.
func (s *Service) setPassword(u *User, next string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(next), s.cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = hash
	s.store.revokeTokens(resetTokens, u.ID)
	return nil
}

func (s *Service) link(format, uid, token string) string {
	return strings.TrimRight(s.cfg.FrontendURL, "/") + "/" + fmt.Sprintf(format, uid, token)
}
