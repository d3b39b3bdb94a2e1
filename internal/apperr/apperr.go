package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for propagation and HTTP mapping.
type Kind int

const (
	// Authorization: the viewer type itself is not allowed to see or act
	// on a collection. Distinct from a stale-record no-op, which is not
	// an error at all.
	Authorization Kind = iota
	// Validation: malformed input (empty rejection reason, bad percent).
	Validation
	// InvalidCredentials: auth failure, deliberately undifferentiated
	// between wrong password and wrong role.
	InvalidCredentials
	// InvalidState: illegal state-machine transition.
	InvalidState
	// NotFound: record does not exist.
	NotFound
)

// Error carries a kind alongside the message.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying error.
func Wrap(kind Kind, err error, msg string) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// IsKind reports whether err (or anything it wraps) has the given kind.
func IsKind(err error, kind Kind) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind == kind
	}
	return false
}

// HTTPStatus maps an error to a response code for the API layer.
func HTTPStatus(err error) int {
	var ae *Error
	if !errors.As(err, &ae) {
		return http.StatusInternalServerError
	}
	switch ae.Kind {
	case Authorization:
		return http.StatusForbidden
	case Validation:
		return http.StatusBadRequest
	case InvalidCredentials:
		return http.StatusUnauthorized
	case InvalidState:
		return http.StatusConflict
	case NotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
