package terms

import (
	"errors"
	"fmt"
	"strings"

	cueerrors "cuelang.org/go/cue/errors"
)

// ErrInvalid is the sentinel every ValidationError matches with errors.Is.
var ErrInvalid = errors.New("invalid payload")

// Issue is one problem found in a payload.
type Issue struct {
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	if i.Path == "" {
		return i.Message
	}
	return i.Path + ": " + i.Message
}

// ValidationError lists every issue found while validating one payload.
type ValidationError struct {
	Schema string  `json:"schema"`
	Issues []Issue `json:"issues"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Issues))
	for i, is := range e.Issues {
		parts[i] = is.String()
	}
	return fmt.Sprintf("%s: %s", e.Schema, strings.Join(parts, "; "))
}

// Unwrap returns ErrInvalid.
func (e *ValidationError) Unwrap() error {
	return ErrInvalid
}

// IsValidationError returns true if err is or wraps a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// fromCUE converts a CUE error (possibly a list) into a ValidationError.
func fromCUE(schema string, err error) *ValidationError {
	ve := &ValidationError{Schema: schema}
	for _, e := range cueerrors.Errors(err) {
		format, args := e.Msg()
		ve.Issues = append(ve.Issues, Issue{
			Path:    strings.Join(e.Path(), "."),
			Message: fmt.Sprintf(format, args...),
		})
	}
	if len(ve.Issues) == 0 {
		ve.Issues = []Issue{{Message: err.Error()}}
	}
	return ve
}
