// Package cli provides the interactive accounts command-line client.
//
// It drives the account lifecycle against a server from a REPL: register,
// activate with the mailed token (or the whole link), log in and out, show
// the current profile, change the password, and run the password reset
// flow. Failures print the server's message and any per-field errors.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits
// or input ends. See runREPL for the command table.
package cli
