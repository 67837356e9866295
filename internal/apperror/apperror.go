package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidID  = errors.New("invalid identifier")
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("Validation Error")
)

// FieldError is a single schema violation reported back to the client.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type AppError struct {
	Err     error        // actual error
	Message string       // Human-readable error message
	Field   string       // Optional: field causing the error
	Fields  []FieldError // Optional: every field that failed validation
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// InvalidIdentifier reports a path id that is not a positive integer.
// HTTP handlers map this to 400 Bad Request.
func InvalidIdentifier(resource, raw string) *AppError {
	return &AppError{
		Err:     ErrInvalidID,
		Message: fmt.Sprintf("Invalid %s ID", resource),
		Field:   "id",
		Fields:  []FieldError{{Field: "id", Message: fmt.Sprintf("%q is not a valid identifier", raw)}},
	}
}

func NotFound(resource string, id int64) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %d", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
		Fields:  []FieldError{{Field: field, Message: message}},
	}
}

// Validation wraps every failed field into one error. The first field's
// message doubles as the summary message.
func Validation(fields []FieldError) *AppError {
	if len(fields) == 0 {
		return &AppError{Err: ErrValidation, Message: "validation failed"}
	}
	return &AppError{
		Err:     ErrValidation,
		Message: fields[0].Message,
		Field:   fields[0].Field,
		Fields:  fields,
	}
}
