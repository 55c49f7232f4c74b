// Package config loads runtime configuration for the accounts CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSONC file selected with -c or --config.
//  3. ACCOUNTS_* environment variables.
//  4. Command-line flags, which override everything above.
//
// Supported flags
//
//	-c, --config string    path to a JSON (comments allowed) config file
//	-s, --server string    account server base URL
//	    --timeout duration per-request timeout, e.g. 15s
//	    --auth-scheme string Authorization header type (default JWT)
//	    --log-level string debug, info, warn or error
//	    --log-format string text or json
//
// # File schema
//
// Durations are strings like "15s" or integer nanoseconds. Absent keys keep
// the value from the previous layer:
//
//	{
//	  // local dev server
//	  "base_url": "http://127.0.0.1:8000",
//	  "request_timeout": "15s",
//	  "auth_scheme": "JWT",
//	  "log_level": "info",
//	  "log_format": "text"
//	}
package config
