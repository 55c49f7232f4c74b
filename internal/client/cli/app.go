package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/calyxlabs/accountkit/internal/client/accounts"
	"github.com/calyxlabs/accountkit/internal/client/session"
	"github.com/calyxlabs/accountkit/internal/logging"
)

type App struct {
	accounts accounts.AccountService
	session  *session.Session
	logger   logging.Logger
	reader   *bufio.Reader
	out      io.Writer
	now      func() time.Time
}

// NewApp builds the REPL around svc. sess must be the session svc writes
// to; the prompt reads it.
func NewApp(svc accounts.AccountService, sess *session.Session, logger logging.Logger, in io.Reader, out io.Writer) *App {
	if logger == nil {
		logger = logging.Nop()
	}
	return &App{
		accounts: svc,
		session:  sess,
		logger:   logger,
		reader:   bufio.NewReader(in),
		out:      out,
		now:      time.Now,
	}
}

// Run blocks in the REPL until the user exits or input ends.
func (a *App) Run(ctx context.Context) {
	fmt.Fprintln(a.out, "Accounts CLI (type 'help' for commands)")
	runREPL(ctx, a, a.status, a.reader)
}

func (a *App) isLoggedIn() bool {
	return a.session.IsAuthenticated()
}

func (a *App) status() string {
	st := a.session.Snapshot()
	switch {
	case !st.Authenticated:
		return "anonymous"
	case a.session.Expired(a.now()):
		return st.Username + ", expired"
	}
	return st.Username
}
