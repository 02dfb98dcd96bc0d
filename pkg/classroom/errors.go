package classroom

import (
	"errors"
	"fmt"
)

// ErrorKind identifies one of the failure classes the gateway reports.
type ErrorKind string

const (
	// KindInvalidCredentials means the access token was rejected.
	KindInvalidCredentials ErrorKind = "invalid_credentials"

	// KindInsufficientScope means the token lacks a required OAuth scope.
	KindInsufficientScope ErrorKind = "insufficient_scope"

	// KindNotLinked means the user is not a Google Workspace for Education user.
	KindNotLinked ErrorKind = "not_linked"

	// KindClassroomDisabled means Classroom is disabled for the user's domain.
	KindClassroomDisabled ErrorKind = "classroom_disabled"

	// KindClassroomAPIDisabled means Classroom API access is disabled for the user's domain.
	KindClassroomAPIDisabled ErrorKind = "classroom_api_disabled"

	// KindResourceExhausted means Google throttled the request (HTTP 429).
	KindResourceExhausted ErrorKind = "resource_exhausted"

	// KindResultSetTooLarge means a listing kept paginating past the page limit.
	KindResultSetTooLarge ErrorKind = "result_set_too_large"
)

// Sentinel errors for use with errors.Is. Every *ClassroomError matches the
// sentinel of its Kind.
var (
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrInsufficientScope    = errors.New("insufficient authentication scopes")
	ErrNotLinked            = errors.New("user is not linked to Google Apps for Education")
	ErrClassroomDisabled    = errors.New("google classroom is disabled")
	ErrClassroomAPIDisabled = errors.New("google classroom api is disabled")
	ErrResourceExhausted    = errors.New("resource exhausted")
	ErrResultSetTooLarge    = errors.New("result set too large")
)

var kindSentinels = map[ErrorKind]error{
	KindInvalidCredentials:   ErrInvalidCredentials,
	KindInsufficientScope:    ErrInsufficientScope,
	KindNotLinked:            ErrNotLinked,
	KindClassroomDisabled:    ErrClassroomDisabled,
	KindClassroomAPIDisabled: ErrClassroomAPIDisabled,
	KindResourceExhausted:    ErrResourceExhausted,
	KindResultSetTooLarge:    ErrResultSetTooLarge,
}

// ClassroomError is a classified gateway failure.
type ClassroomError struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
	// Details carries the raw upstream payload, when there is one.
	Details string
	Err     error
}

// Error implements the error interface.
func (e *ClassroomError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("classroom %s error (status %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("classroom %s error: %s", e.Kind, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *ClassroomError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e's kind.
func (e *ClassroomError) Is(target error) bool {
	sentinel, ok := kindSentinels[e.Kind]
	return ok && target == sentinel
}

// KindOf returns the kind of a classified error, or "" when err was not classified.
func KindOf(err error) ErrorKind {
	var ce *ClassroomError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}
