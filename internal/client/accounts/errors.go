package accounts

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/calyxlabs/accountkit/internal/client/transport"
	"github.com/go-playground/validator/v10"
)

var (
	// ErrNoAccessToken is returned by Login when the server answered with a
	// success status but no access token.
	ErrNoAccessToken = errors.New("login response carried no access token")
)

// ValidationError reports input rejected before any request was sent.
// Fields maps the wire field name to the failed rule.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid input: " + strings.Join(parts, ", ")
}

// ErrorKind classifies an operation failure.
type ErrorKind string

const (
	KindNone       ErrorKind = ""
	KindValidation ErrorKind = "validation"
	KindClient     ErrorKind = "client"
	KindServer     ErrorKind = "server"
	KindTransport  ErrorKind = "transport"
	KindUnknown    ErrorKind = "unknown"
)

// Kind maps err onto the failure taxonomy. Server errors are reported
// separately but callers are expected to treat them like client errors.
func Kind(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	var (
		valErr  *ValidationError
		httpErr *transport.HTTPError
		netErr  *transport.TransportError
	)
	switch {
	case errors.As(err, &valErr):
		return KindValidation
	case errors.As(err, &httpErr):
		if httpErr.IsServerError() {
			return KindServer
		}
		return KindClient
	case errors.As(err, &netErr):
		return KindTransport
	}
	return KindUnknown
}

// FieldErrors returns field-level detail for validation and HTTP failures,
// nil otherwise.
func FieldErrors(err error) map[string][]string {
	var valErr *ValidationError
	if errors.As(err, &valErr) {
		out := make(map[string][]string, len(valErr.Fields))
		for k, v := range valErr.Fields {
			out[k] = []string{v}
		}
		return out
	}
	var httpErr *transport.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.FieldErrors()
	}
	return nil
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// toValidationError converts validator output. field names the value for
// single-variable checks, where the validator has no struct field to report.
func toValidationError(err error, field string) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate input: %w", err)
	}
	out := &ValidationError{Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		name := fe.Field()
		if name == "" {
			name = field
		}
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		out.Fields[name] = rule
	}
	return out
}
