package config

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalid is the sentinel wrapped by every validation failure returned
// from Load, so callers can distinguish "config is invalid" from other
// startup errors with errors.Is.
var ErrInvalid = errors.New("invalid configuration")

// ValidationError aggregates every missing or malformed field found during
// Load, rather than failing fast on the first one — mirrors the teacher's
// pkg/config/validator.go style of reporting the whole list of problems at
// once so an operator can fix them in one pass.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("configuration invalid: %s", strings.Join(e.Problems, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalid
}

func (e *ValidationError) add(format string, args ...any) {
	e.Problems = append(e.Problems, fmt.Sprintf(format, args...))
}
