package spec

import (
	"errors"
	"fmt"
)

// InvalidSpecError reports a spec file that cannot be turned into a TestSpec.
type InvalidSpecError struct {
	// Path is the spec file.
	Path string

	// Field is the offending key, empty when the problem is the whole file.
	Field string

	// Message is a human-readable description.
	Message string
}

func (e *InvalidSpecError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid spec: %s", e.Message)
	}
	return fmt.Sprintf("invalid spec %s: %s", e.Path, e.Message)
}

// IsInvalidSpec reports whether err is, or wraps, an *InvalidSpecError.
func IsInvalidSpec(err error) bool {
	var ise *InvalidSpecError
	return errors.As(err, &ise)
}

func invalid(path, field, format string, args ...any) *InvalidSpecError {
	return &InvalidSpecError{
		Path:    path,
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	}
}
