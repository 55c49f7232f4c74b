// Package flagx picks individual flags out of an argument list before the
// full flag set is known, so a config file can be loaded ahead of the flags
// that override it.
package flagx

import (
	"io"
	"strings"

	"github.com/spf13/pflag"
)

// FilterArgs returns the arguments of args that set one of the named flags,
// together with their values. Names are given without dashes; one-letter
// names match "-n", longer ones match "--name". Both "--name value" and
// "--name=value" forms are kept. Scanning stops at "--".
func FilterArgs(args []string, names ...string) []string {
	allowed := make(map[string]struct{}, len(names))
	for _, n := range names {
		if len(n) == 1 {
			allowed["-"+n] = struct{}{}
		} else {
			allowed["--"+n] = struct{}{}
		}
	}

	filtered := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			break
		}
		if name, _, found := strings.Cut(arg, "="); found && strings.HasPrefix(arg, "-") {
			if _, ok := allowed[name]; ok {
				filtered = append(filtered, arg)
			}
			continue
		}
		if _, ok := allowed[arg]; !ok {
			continue
		}
		filtered = append(filtered, arg)
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			filtered = append(filtered, args[i+1])
			i++
		}
	}
	return filtered
}

// ConfigPath returns the value of -c/--config in args, or "" when neither
// is present. When repeated, the last one wins.
func ConfigPath(args []string) string {
	fs := pflag.NewFlagSet("config", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	path := fs.StringP("config", "c", "", "path to config file")
	_ = fs.Parse(FilterArgs(args, "c", "config"))
	return *path
}
