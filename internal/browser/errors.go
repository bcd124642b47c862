package browser

import (
	"errors"
	"fmt"
)

var (
	ErrUnavailable      = errors.New("browser runtime unavailable")
	ErrPageClosed       = errors.New("browser page closed")
	ErrNoLocation       = errors.New("console message has no source location")
	ErrNavigationFailed = errors.New("navigation failed")
)

// Error wraps a failed browser operation with the operation name.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("browser %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WrapError attaches op to err. A nil err stays nil.
func WrapError(op string, err error) error {
	if err == nil {
		return nil
	}

	return &Error{Op: op, Err: err}
}

// IsUnavailable reports whether err means the browser backend could not be reached.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
