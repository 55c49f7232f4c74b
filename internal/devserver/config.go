package devserver

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/pflag"
	"golang.org/x/crypto/bcrypt"
)

// Config holds runtime settings for the development account server.
//
// SecretKey signs JWTs (HS256); the default is for local use only.
// TokenValidity bounds how long activation and reset tokens stay usable.
// ShowEmailNotFound makes reset requests for unknown addresses fail with 400
// instead of answering 204.
type Config struct {
	Addr                string        `envconfig:"ADDR" default:"127.0.0.1:8000"`
	SecretKey           string        `envconfig:"SECRET_KEY" default:"dev-secret-key"`
	AccessTokenValidity time.Duration `envconfig:"ACCESS_TOKEN_VALIDITY" default:"24h"`
	RefreshValidity     time.Duration `envconfig:"REFRESH_TOKEN_VALIDITY" default:"168h"`
	TokenValidity       time.Duration `envconfig:"ONE_TIME_TOKEN_VALIDITY" default:"72h"`
	EmailDomain         string        `envconfig:"EMAIL_DOMAIN" default:"example.ac.jp"`
	FrontendURL         string        `envconfig:"FRONTEND_URL" default:"http://localhost:3000"`
	ShowEmailNotFound   bool          `envconfig:"SHOW_EMAIL_NOT_FOUND" default:"false"`
	BcryptCost          int           `envconfig:"BCRYPT_COST" default:"10"`
	RateLimit           int           `envconfig:"RATE_LIMIT" default:"20"`
	LogLevel            string        `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat           string        `envconfig:"LOG_FORMAT" default:"text"`
}

// LoadConfig reads DEVSERVER_* environment variables, then overlays flags
// from args (usually os.Args[1:]).
func LoadConfig(args []string) (*Config, error) {
	var cfg Config
	if err := envconfig.Process("devserver", &cfg); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	fs := pflag.NewFlagSet("devserver", pflag.ContinueOnError)
	fs.StringVarP(&cfg.Addr, "addr", "a", cfg.Addr, "listen address")
	fs.StringVar(&cfg.EmailDomain, "email-domain", cfg.EmailDomain, "domain appended to usernames to form email addresses")
	fs.StringVar(&cfg.FrontendURL, "frontend-url", cfg.FrontendURL, "base URL used in activation and reset links")
	fs.BoolVar(&cfg.ShowEmailNotFound, "show-email-not-found", cfg.ShowEmailNotFound, "reject reset requests for unknown emails")
	fs.IntVar(&cfg.RateLimit, "rate-limit", cfg.RateLimit, "login and reset requests per minute per IP")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "text or json")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.SecretKey == "" {
		return errors.New("secret key must be provided")
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("bcrypt cost %d out of range", c.BcryptCost)
	}
	if c.RateLimit <= 0 {
		return errors.New("rate limit must be positive")
	}
	if c.EmailDomain == "" {
		return errors.New("email domain must be provided")
	}
	return nil
}
