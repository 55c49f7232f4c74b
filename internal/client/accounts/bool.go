package accounts

import (
	"context"

	"github.com/calyxlabs/accountkit/internal/logging"
)

// BoolClient exposes the operations with a success/failure boolean, for
// callers that only offer a generic retry. Failure detail is logged and
// otherwise dropped; use Service directly to keep it.
type BoolClient struct {
	svc    AccountService
	logger logging.Logger
}

func NewBoolClient(svc AccountService, logger logging.Logger) *BoolClient {
	if logger == nil {
		logger = logging.Nop()
	}
	return &BoolClient{svc: svc, logger: logger}
}

func (b *BoolClient) CreateUser(ctx context.Context, username, password string) bool {
	_, err := b.svc.CreateUser(ctx, NewUser{Username: username, Password: password})
	return b.ok(ctx, "create user", err)
}

func (b *BoolClient) ActivateUser(ctx context.Context, uid, token string) bool {
	return b.ok(ctx, "activate user", b.svc.ActivateUser(ctx, ActivationToken{UID: uid, Token: token}))
}

func (b *BoolClient) Login(ctx context.Context, username, password string) bool {
	return b.ok(ctx, "login", b.svc.Login(ctx, Credentials{Username: username, Password: password}))
}

func (b *BoolClient) Logout(ctx context.Context) {
	b.svc.Logout(ctx)
}

func (b *BoolClient) ChangePassword(ctx context.Context, currentPassword, newPassword string) bool {
	err := b.svc.ChangePassword(ctx, PasswordChangeRequest{CurrentPassword: currentPassword, NewPassword: newPassword})
	return b.ok(ctx, "change password", err)
}

func (b *BoolClient) RequestPasswordReset(ctx context.Context, email string) bool {
	return b.ok(ctx, "request password reset", b.svc.RequestPasswordReset(ctx, email))
}

func (b *BoolClient) ConfirmPasswordReset(ctx context.Context, uid, token, newPassword string) bool {
	err := b.svc.ConfirmPasswordReset(ctx, ResetToken{UID: uid, Token: token}, newPassword)
	return b.ok(ctx, "confirm password reset", err)
}

// GetCurrentUser keeps the structured failure.
func (b *BoolClient) GetCurrentUser(ctx context.Context) (*Profile, error) {
	return b.svc.GetCurrentUser(ctx)
}

func (b *BoolClient) ok(ctx context.Context, op string, err error) bool {
	if err == nil {
		return true
	}
	b.logger.Warn(ctx, op+" failed", "kind", string(Kind(err)), "error", err)
	return false
}
