package config

import (
	"github.com/spf13/pflag"
)

// parseFlags overlays cfg with command-line flags. -c/--config is accepted
// here only so it does not fail parsing; the file is read earlier.
func parseFlags(cfg *Config, args []string) error {
	fs := pflag.NewFlagSet("accounts", pflag.ContinueOnError)

	fs.StringP("config", "c", "", "path to config file")
	fs.StringVarP(&cfg.BaseURL, "server", "s", cfg.BaseURL, "account server base URL")
	fs.DurationVar(&cfg.RequestTimeout, "timeout", cfg.RequestTimeout, "per-request timeout")
	fs.StringVar(&cfg.AuthScheme, "auth-scheme", cfg.AuthScheme, "Authorization header type")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "text or json")

	return fs.Parse(args)
}
