package domain

import (
	"errors"
	"fmt"
)

// InputValidationError marks a fatal precondition failure: missing or
// malformed table entries, non-positive sum assured, negative derived
// unit costs. Runs abort immediately with no partial output.
type InputValidationError struct {
	msg string
}

func (e *InputValidationError) Error() string { return e.msg }

// Invalidf builds an InputValidationError from a format string.
func Invalidf(format string, args ...any) error {
	return &InputValidationError{msg: fmt.Sprintf(format, args...)}
}

// IsInputValidation reports whether err wraps an InputValidationError.
func IsInputValidation(err error) bool {
	var target *InputValidationError
	return errors.As(err, &target)
}
