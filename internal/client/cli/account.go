package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/calyxlabs/accountkit/internal/client/accounts"
	"github.com/calyxlabs/accountkit/internal/client/transport"
)

// getSimpleText and getPassword point at the interactive input helpers and
// are swapped in tests.
var (
	getSimpleText = GetSimpleText
	getPassword   = GetPassword
)

var errPasswordMismatch = errors.New("passwords do not match")

// Register prompts for a username, a password and the optional profile
// fields, then creates an inactive account.
func (a *App) Register(ctx context.Context) error {
	username, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}
	password, err := a.newPassword("Enter password: ")
	if err != nil {
		return a.report("register", err)
	}
	defer wipe(password)

	in := accounts.NewUser{Username: username, Password: string(password)}
	if in.ScreenName, err = a.optionalText("Screen name (optional)"); err != nil {
		return err
	}
	gpa, err := a.optionalText("GPA (optional)")
	if err != nil {
		return err
	}
	if gpa != nil {
		v, err := strconv.ParseFloat(*gpa, 64)
		if err != nil {
			return a.report("register", fmt.Errorf("invalid GPA %q", *gpa))
		}
		in.GPA = &v
	}

	created, err := a.accounts.CreateUser(ctx, in)
	if err != nil {
		return a.report("register", err)
	}
	fmt.Fprintf(a.out, "Account %s created. Follow the activation link sent to %s.\n", created.Username, created.Email)
	return nil
}

// Activate consumes an activation token given as "uid token", as the mailed
// link, or entered at the prompts.
func (a *App) Activate(ctx context.Context, args []string) error {
	uid, token, err := a.tokenPair(args)
	if err != nil {
		return err
	}
	if err := a.accounts.ActivateUser(ctx, accounts.ActivationToken{UID: uid, Token: token}); err != nil {
		return a.report("activate", err)
	}
	fmt.Fprintln(a.out, "Account activated. You can log in now.")
	return nil
}

func (a *App) Login(ctx context.Context) error {
	username, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out, "Enter password: ")
	if err != nil {
		return err
	}
	defer wipe(password)

	if err := a.accounts.Login(ctx, accounts.Credentials{Username: username, Password: string(password)}); err != nil {
		return a.report("login", err)
	}
	fmt.Fprintf(a.out, "Logged in as %s.\n", username)
	return nil
}

// Logout forgets the local session. The server is not contacted.
func (a *App) Logout(ctx context.Context) error {
	a.accounts.Logout(ctx)
	fmt.Fprintln(a.out, "Logged out.")
	return nil
}

func (a *App) Me(ctx context.Context) error {
	p, err := a.accounts.GetCurrentUser(ctx)
	if err != nil {
		return a.report("me", err)
	}
	fmt.Fprintf(a.out, "id:          %d\n", p.PK)
	fmt.Fprintf(a.out, "username:    %s\n", p.Username)
	fmt.Fprintf(a.out, "email:       %s\n", p.Email)
	if p.ScreenName != "" {
		fmt.Fprintf(a.out, "screen name: %s\n", p.ScreenName)
	}
	if p.GPA != nil {
		fmt.Fprintf(a.out, "gpa:         %.2f\n", *p.GPA)
	}
	return nil
}

func (a *App) ChangePassword(ctx context.Context) error {
	current, err := getPassword(a.out, "Current password: ")
	if err != nil {
		return err
	}
	defer wipe(current)
	next, err := a.newPassword("New password: ")
	if err != nil {
		return a.report("change password", err)
	}
	defer wipe(next)

	err = a.accounts.ChangePassword(ctx, accounts.PasswordChangeRequest{
		CurrentPassword: string(current),
		NewPassword:     string(next),
	})
	if err != nil {
		return a.report("change password", err)
	}
	fmt.Fprintln(a.out, "Password changed.")
	return nil
}

// RequestReset asks for a reset mail. The server answers the same way
// whether or not the address is known.
func (a *App) RequestReset(ctx context.Context, args []string) error {
	var email string
	if len(args) > 0 {
		email = args[0]
	} else {
		var err error
		if email, err = getSimpleText(a.reader, "Enter email", a.out); err != nil {
			return err
		}
	}
	if err := a.accounts.RequestPasswordReset(ctx, email); err != nil {
		return a.report("reset", err)
	}
	fmt.Fprintln(a.out, "If the address belongs to an account, a reset link is on its way.")
	return nil
}

func (a *App) ConfirmReset(ctx context.Context, args []string) error {
	uid, token, err := a.tokenPair(args)
	if err != nil {
		return err
	}
	password, err := a.newPassword("New password: ")
	if err != nil {
		return a.report("reset confirm", err)
	}
	defer wipe(password)

	if err := a.accounts.ConfirmPasswordReset(ctx, accounts.ResetToken{UID: uid, Token: token}, string(password)); err != nil {
		return a.report("reset confirm", err)
	}
	fmt.Fprintln(a.out, "Password reset. You can log in with the new password.")
	return nil
}

func (a *App) Status(context.Context) error {
	st := a.session.Snapshot()
	if !st.Authenticated {
		fmt.Fprintln(a.out, "Not logged in.")
		return nil
	}
	fmt.Fprintf(a.out, "Logged in as %s", st.Username)
	if st.UserID != "" {
		fmt.Fprintf(a.out, " (id %s)", st.UserID)
	}
	if !st.ExpiresAt.IsZero() {
		if a.session.Expired(a.now()) {
			fmt.Fprintf(a.out, ", token expired at %s", st.ExpiresAt.Local().Format("2006-01-02 15:04"))
		} else {
			fmt.Fprintf(a.out, ", token valid until %s", st.ExpiresAt.Local().Format("2006-01-02 15:04"))
		}
	}
	fmt.Fprintln(a.out, ".")
	return nil
}

// newPassword reads a password twice and returns it if both entries match.
func (a *App) newPassword(prompt string) ([]byte, error) {
	first, err := getPassword(a.out, prompt)
	if err != nil {
		return nil, err
	}
	again, err := getPassword(a.out, "Repeat password: ")
	if err != nil {
		wipe(first)
		return nil, err
	}
	defer wipe(again)
	if string(first) != string(again) {
		wipe(first)
		return nil, errPasswordMismatch
	}
	return first, nil
}

func (a *App) optionalText(prompt string) (*string, error) {
	s, err := getSimpleText(a.reader, prompt, a.out)
	if err != nil || s == "" {
		return nil, err
	}
	return &s, nil
}

// tokenPair takes uid and token from args ("uid token" or a link) or
// prompts for them.
func (a *App) tokenPair(args []string) (string, string, error) {
	switch len(args) {
	case 1:
		if uid, token, ok := parseTokenLink(args[0]); ok {
			return uid, token, nil
		}
		return "", "", a.report("parse link", fmt.Errorf("no uid/token in %q", args[0]))
	case 2:
		return args[0], args[1], nil
	}

	uid, err := getSimpleText(a.reader, "Enter uid (or paste the link)", a.out)
	if err != nil {
		return "", "", err
	}
	if u, t, ok := parseTokenLink(uid); ok {
		return u, t, nil
	}
	token, err := getSimpleText(a.reader, "Enter token", a.out)
	if err != nil {
		return "", "", err
	}
	return uid, token, nil
}

// report prints a failure with its server message and field errors, and
// returns err unchanged.
func (a *App) report(op string, err error) error {
	kind := accounts.Kind(err)
	a.logger.Debug(context.Background(), "command failed", "op", op, "kind", string(kind), "error", err)

	var (
		valErr  *accounts.ValidationError
		httpErr *transport.HTTPError
		netErr  *transport.TransportError
		msg     string
	)
	switch {
	case errors.As(err, &valErr):
		msg = "invalid input"
	case errors.As(err, &netErr) && netErr.Timeout():
		msg = "the server did not answer in time"
	case errors.As(err, &netErr):
		msg = "the server is unreachable"
	case errors.As(err, &httpErr):
		msg = httpErr.Detail()
		if msg == "" {
			msg = fmt.Sprintf("server answered %d", httpErr.StatusCode)
		}
	default:
		msg = err.Error()
	}
	fmt.Fprintf(a.out, "%s failed: %s\n", op, msg)

	fields := accounts.FieldErrors(err)
	if httpErr != nil && httpErr.Payload["detail"] == nil {
		// Detail already rendered the fields.
		fields = nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if k != "detail" && k != "code" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(a.out, "  %s: %s\n", k, strings.Join(fields[k], " "))
	}
	return err
}
