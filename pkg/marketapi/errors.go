package marketapi

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingCredentials is matched by errors.Is on every *ConfigError raised for absent keys.
var ErrMissingCredentials = errors.New("missing credentials")

// ConfigError reports credentials that are missing or incomplete when a signed call is attempted.
type ConfigError struct {
	Reason  string
	Missing []string // names of the absent values, e.g. "public key"
}

func (e *ConfigError) Error() string {
	if len(e.Missing) == 0 {
		return "marketapi: config error: " + e.Reason
	}
	return fmt.Sprintf("marketapi: config error: %s (%s)", e.Reason, strings.Join(e.Missing, ", "))
}

// Is makes errors.Is(err, ErrMissingCredentials) hold for missing-credential errors.
func (e *ConfigError) Is(target error) bool {
	return target == ErrMissingCredentials && e.Reason == ErrMissingCredentials.Error()
}

// APIError is returned when the remote service answers with a non-2xx status.
// It never carries header values, only their names.
type APIError struct {
	StatusCode  int
	Status      string // status text, e.g. "Forbidden"
	Endpoint    string
	Method      string
	HeaderNames []string
	Detail      string // remote error message, if the body carried one
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("marketapi: %s %s: %d %s", e.Method, e.Endpoint, e.StatusCode, e.Status)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// ProtocolKind distinguishes the ways a call can fail without a usable remote verdict.
type ProtocolKind string

const (
	ProtocolNetwork ProtocolKind = "network" // DNS, connection reset, timeout, cancellation
	ProtocolDecode  ProtocolKind = "decode"  // 2xx body that is not the expected JSON
)

// ProtocolError covers transport failures and malformed 2xx responses.
type ProtocolError struct {
	Kind     ProtocolKind
	Endpoint string
	Method   string
	Err      error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("marketapi: %s %s: %s error: %v", e.Method, e.Endpoint, e.Kind, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }
