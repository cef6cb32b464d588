// Package coreerr provides the tagged error taxonomy shared by every core
// package (instance, storage, bus, retry, config). Callers distinguish error
// kinds with Is rather than sentinel values, so a single concrete type can
// carry structured details alongside the tag.
package coreerr

import "errors"

// Kind tags an Error with one of the core's known failure modes.
type Kind string

const (
	KindNotFound        Kind = "not_found"
	KindScopeDisposed   Kind = "scope_disposed"
	KindSessionUnknown  Kind = "session_unknown"
	KindJSON            Kind = "json_error"
	KindConfigDirTypo   Kind = "config_directory_typo"
	KindInvalid         Kind = "invalid"
	KindAborted         Kind = "aborted"
	KindIO              Kind = "io"
)

// Error is the concrete type behind every tagged error the core returns.
type Error struct {
	Kind    Kind
	Message string
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WithDetail attaches a structured field and returns the same error for chaining.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// Is reports whether err carries the given Kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// As extracts the *Error from err's chain, if present.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

func NotFound(resource, key string) *Error {
	return (&Error{Kind: KindNotFound, Message: "not found"}).
		WithDetail("resource", resource).WithDetail("key", key)
}

func ScopeDisposed() *Error {
	return &Error{Kind: KindScopeDisposed, Message: "instance scope has been disposed"}
}

func SessionUnknown(messageID string) *Error {
	return (&Error{Kind: KindSessionUnknown, Message: "no session known for message"}).
		WithDetail("message_id", messageID)
}

func JSON(err error) *Error {
	return &Error{Kind: KindJSON, Message: "config file is not valid JSON", Err: err}
}

func ConfigDirTypo(found string) *Error {
	return (&Error{Kind: KindConfigDirTypo, Message: "config file name looks like a typo"}).
		WithDetail("found", found)
}

func Invalid(message string, violations ...string) *Error {
	e := &Error{Kind: KindInvalid, Message: message}
	if len(violations) > 0 {
		e.WithDetail("violations", violations)
	}
	return e
}

func Aborted() *Error {
	return &Error{Kind: KindAborted, Message: "operation aborted"}
}

func IO(op string, err error) *Error {
	return (&Error{Kind: KindIO, Message: "i/o failure", Err: err}).WithDetail("op", op)
}
