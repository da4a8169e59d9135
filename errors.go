package confscript

import (
	"errors"
	"fmt"
)

// Errors returned by store operations.
var (
	// ErrNotFound indicates the configuration file doesn't exist.
	ErrNotFound = errors.New("confscript: file not found")

	// ErrDecrypt indicates the file could not be decrypted.
	ErrDecrypt = errors.New("confscript: decryption failed")

	// ErrIO indicates a read or write failure.
	ErrIO = errors.New("confscript: io failure")

	// ErrValidation indicates a Set was rejected by a registered rule.
	ErrValidation = errors.New("confscript: validation failed")

	// ErrInvalidPath indicates a dotted path that cannot be traversed,
	// e.g. an intermediate segment that holds a scalar.
	ErrInvalidPath = errors.New("confscript: invalid path")
)

// ValidationError reports a value rejected by a registered validation
// rule. It matches ErrValidation under errors.Is.
type ValidationError struct {
	// Key is the key the Set targeted.
	Key string
	// Message is the rule's descriptive message.
	Message string
	// Value is the rejected value.
	Value any
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("confscript: validation failed for %q: %s (value: %v)", e.Key, e.Message, e.Value)
}

// Is implements error matching for ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
