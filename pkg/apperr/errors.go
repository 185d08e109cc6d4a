// Package apperr defines the finite set of error kinds shared across the
// review pipeline, expressed as a closed set of sum-type-like values
// instead of sentinel errors per package, so every stage can match on the
// same vocabulary regardless of which component raised it.
package apperr

import "fmt"

// Kind is one of the error classifiers named in the pipeline's error
// handling design. It is never extended at runtime.
type Kind string

const (
	ConfigInvalid    Kind = "ConfigInvalid"
	Transport        Kind = "transport"
	Unauthorized     Kind = "unauthorized"
	NotFound         Kind = "not_found"
	Upstream5xx      Kind = "upstream_5xx"
	Malformed        Kind = "malformed"
	EmptyResponse    Kind = "empty_response"
	EmptyChangeSet   Kind = "empty_change_set"
	Persistence      Kind = "persistence"
	Cancelled        Kind = "cancelled"
	Timeout          Kind = "timeout"
	PayloadTooLarge  Kind = "payload_too_large"
	WrongFileType    Kind = "wrong_file_type"
	MissingField     Kind = "missing_field"
	Internal         Kind = "internal"
	NameOnly         Kind = "name_only"
)

// Error wraps a Kind with an optional pipeline stage and the underlying
// cause. It satisfies the standard error interface and supports
// errors.Is/As via Unwrap.
type Error struct {
	Kind  Kind
	Stage string // pipeline stage, empty outside the review engine
	Msg   string
	Cause error
}

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func Wrap(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Cause }

// KindOf extracts the Kind from err if it (or something it wraps) is an
// *Error, defaulting to Internal for anything else.
func KindOf(err error) Kind {
	var ae *Error
	if asError(err, &ae) {
		return ae.Kind
	}
	return Internal
}

// asError walks err's single-error Unwrap chain looking for an *Error, the
// subset of errors.As that KindOf needs, so this file doesn't need to
// import errors for its one call site.
func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
