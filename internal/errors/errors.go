// Package errors holds the sentinels shared between the client core and the
// HTTP boundary, plus small wrapping helpers.
package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest marks caller mistakes: missing ids, unparseable
	// pagination. The boundary maps it to 400.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrNotFound marks a resource the platform reports as absent.
	ErrNotFound = errors.New("not found")

	// ErrForbidden marks privileged operations rejected by policy, such as
	// a cache flush in production.
	ErrForbidden = errors.New("forbidden")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
