// Package failure defines the error kinds a sync run can stop with. Every kind
// carries a remediation hint since it is what an operator reads after a failed
// run.
package failure

import (
	"errors"
	"fmt"
)

type Kind string

const (
	CredentialMissing       Kind = "CredentialMissing"
	CredentialMalformed     Kind = "CredentialMalformed"
	AuthExpired             Kind = "AuthExpired"
	Forbidden               Kind = "Forbidden"
	EndpointMissing         Kind = "EndpointMissing"
	MalformedPayload        Kind = "MalformedPayload"
	TransientTransportError Kind = "TransientTransportError"
	MissingRequiredField    Kind = "MissingRequiredField"
	WriteError              Kind = "WriteError"
)

var hints = map[Kind]string{
	CredentialMissing:       "no credential found, run the interactive login and import its output",
	CredentialMalformed:     "credential content is not in a recognized scheme, re-import it from the login output",
	AuthExpired:             "credential expired, reacquire it through the interactive login",
	Forbidden:               "the platform refused the credential, reacquire it and check that the auth scheme matches what the platform expects",
	EndpointMissing:         "the activity endpoint was not found, re-verify the api url",
	MalformedPayload:        "the platform returned an unexpected response body, re-verify the api url and the schema variant",
	TransientTransportError: "the platform could not be reached reliably, retry the run later",
	MissingRequiredField:    "an activity entry has no date, check that the schema variant matches the platform's field names",
	WriteError:              "could not write to disk, check the path and its permissions",
}

// Hint returns the default remediation for the kind.
func (k Kind) Hint() string {
	return hints[k]
}

// Retryable reports whether a caller may retry a full run after this kind of failure.
func (k Kind) Retryable() bool {
	return k == TransientTransportError
}

type Error struct {
	Kind Kind
	// Hint overrides Kind.Hint() when set.
	Hint string
	Err  error
}

// New creates an Error, err may be nil.
func New(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// Newf creates an Error wrapping a formatted error.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Err.Error())
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Remediation returns the hint to show an operator.
func (e *Error) Remediation() string {
	if e.Hint != "" {
		return e.Hint
	}
	return e.Kind.Hint()
}

// Is matches any *Error with the same kind so callers can write
// errors.Is(err, failure.New(failure.AuthExpired, nil)).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var out *Error
	if errors.As(err, &out) {
		return out, true
	}
	return nil, false
}

// KindOf returns the kind of the first *Error in err's chain, or "" if there is none.
func KindOf(err error) Kind {
	e, ok := As(err)
	if !ok {
		return ""
	}
	return e.Kind
}
