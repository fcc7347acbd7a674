package engine

import (
	"errors"
	"fmt"
)

// UserError is a failure the user is expected to fix (bad configuration,
// missing input). Anything else reaching main is treated as a bug.
type UserError struct {
	Err error
}

func (e *UserError) Error() string { return e.Err.Error() }
func (e *UserError) Unwrap() error { return e.Err }

func userErrorf(format string, args ...any) error {
	return &UserError{Err: fmt.Errorf(format, args...)}
}

// IsUserError reports whether err carries a UserError anywhere in its chain.
func IsUserError(err error) bool {
	var ue *UserError
	return errors.As(err, &ue)
}
