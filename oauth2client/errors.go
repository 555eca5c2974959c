package oauth2client

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies token lifecycle failures.
type ErrorKind int

const (
	// ErrorKindInternal marks malformed local state, such as forcing a
	// refresh when no recognized token exists.
	ErrorKindInternal ErrorKind = iota + 1
	// ErrorKindClient marks a grant endpoint that rejected the request or
	// returned an unparsable body. Body and status are retained.
	ErrorKindClient
	// ErrorKindConfiguration marks a request that could not be built from
	// the given strategy and configuration.
	ErrorKindConfiguration
)

// String returns the kind name used in error messages.
func (k ErrorKind) String() string {
	switch k {
	case ErrorKindInternal:
		return "internal failure"
	case ErrorKindClient:
		return "client failure"
	case ErrorKindConfiguration:
		return "configuration error"
	default:
		return "unknown failure"
	}
}

// Error is the failure type produced by grant strategies, the token manager
// and the migrate package. Match it with errors.As.
type Error struct {
	Kind ErrorKind

	// Op names the operation that failed, e.g. "issue_token".
	Op string

	// StatusCode and Body retain the grant endpoint response for
	// ErrorKindClient failures; zero/nil otherwise.
	StatusCode int
	Body       []byte

	// Err is the underlying cause, if any.
	Err error

	msg string
}

// Error implements the error interface.
func (e *Error) Error() string {
	s := fmt.Sprintf("oauth2client: %s: %s", e.Op, e.Kind)
	if e.msg != "" {
		s += ": " + e.msg
	}
	if e.StatusCode != 0 {
		s += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// IsInternalFailure reports whether err is an ErrorKindInternal failure.
func IsInternalFailure(err error) bool { return hasKind(err, ErrorKindInternal) }

// IsClientFailure reports whether err is an ErrorKindClient failure.
func IsClientFailure(err error) bool { return hasKind(err, ErrorKindClient) }

// IsConfigurationError reports whether err is an ErrorKindConfiguration failure.
func IsConfigurationError(err error) bool { return hasKind(err, ErrorKindConfiguration) }

func hasKind(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// NewError builds an Error for companion packages that participate in the
// lifecycle, such as migrate.
func NewError(kind ErrorKind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, msg: msg}
}

func configErr(op, msg string) *Error {
	return &Error{Kind: ErrorKindConfiguration, Op: op, msg: msg}
}

func clientErr(op, msg string, resp *http.Response, body []byte, err error) *Error {
	e := &Error{Kind: ErrorKindClient, Op: op, msg: msg, Body: body, Err: err}
	if resp != nil {
		e.StatusCode = resp.StatusCode
	}
	return e
}
