package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printFn and printlnFn are test seams for REPL output.
var (
	printFn   = fmt.Print
	printlnFn = fmt.Println
)

// execIface is the command surface the REPL dispatches to. App satisfies
// it; tests provide a stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Activate(ctx context.Context, args []string) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Me(ctx context.Context) error
	ChangePassword(ctx context.Context) error
	RequestReset(ctx context.Context, args []string) error
	ConfirmReset(ctx context.Context, args []string) error
	Status(ctx context.Context) error
}

// runREPL reads one command per line from reader and dispatches it to a.
// The loop ends on EOF or "exit"/"quit".
//
//	Not logged in:
//	  register                 create an account
//	  activate [uid token|link] activate with the mailed token
//	  login                    authenticate
//	  reset [email]            request a password reset mail
//	  reset-confirm [uid token|link] set a new password with the reset token
//
//	Logged in, additionally:
//	  me                       show the current profile
//	  passwd                   change the password
//	  logout                   forget the session
//
//	Always: help, status, exit | quit
//
// Handler errors are reported by the handlers themselves and ignored here.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printFn(fmt.Sprintf("accounts (%s)> ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			printlnFn()
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: me, passwd, logout, status, register, activate, login, reset, reset-confirm, exit")
			} else {
				printlnFn("Available commands: register, activate, login, reset, reset-confirm, status, exit")
			}

		case "register":
			_ = a.Register(ctx)

		case "activate":
			_ = a.Activate(ctx, args)

		case "login":
			_ = a.Login(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "me":
			_ = a.Me(ctx)

		case "passwd":
			_ = a.ChangePassword(ctx)

		case "reset":
			_ = a.RequestReset(ctx, args)

		case "reset-confirm":
			_ = a.ConfirmReset(ctx, args)

		case "status":
			_ = a.Status(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
