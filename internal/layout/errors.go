package layout

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("layout not found")
	ErrInvalid       = errors.New("invalid layout")
	ErrRequirements  = errors.New("screen requirements not met")
	ErrAlreadyActive = errors.New("a layout is already active")
	ErrNotActive     = errors.New("no active layout")
	ErrExists        = errors.New("layout already exists")
	ErrActiveLayout  = errors.New("layout is active")
	ErrRuleNotFound  = errors.New("rule not found")
)

// Error carries a human-readable reason alongside one of the sentinel errors.
type Error struct {
	Reason string
	Err    error
}

func (e *Error) Error() string { return e.Reason }

func (e *Error) Unwrap() error { return e.Err }

func newError(kind error, format string, args ...any) *Error {
	return &Error{Reason: fmt.Sprintf(format, args...), Err: kind}
}

// prefixed rewraps err with a reason prefix, keeping its kind.
func prefixed(prefix string, err error) *Error {
	var le *Error
	if errors.As(err, &le) {
		return &Error{Reason: prefix + le.Reason, Err: le.Err}
	}
	return &Error{Reason: prefix + err.Error(), Err: err}
}
