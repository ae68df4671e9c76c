package errors

import (
	"errors"
	"fmt"
)

// Common error types for the session server
var (
	ErrInvalidRequest     = errors.New("invalid request")
	ErrUnsupportedBackend = errors.New("unsupported directory backend")
	ErrInvalidSealKey     = errors.New("invalid seal key")
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
