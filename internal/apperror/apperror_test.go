package apperror

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorsIs(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		target    error
		wantMatch bool
	}{
		{
			name:      "NotFound wraps ErrNotFound",
			err:       NotFound("artist", 7),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "ValidationFailed wraps ErrValidation",
			err:       ValidationFailed("first_name", "First Name is required"),
			target:    ErrValidation,
			wantMatch: true,
		},
		{
			name:      "InvalidIdentifier wraps ErrInvalidID",
			err:       InvalidIdentifier("artist", "abc"),
			target:    ErrInvalidID,
			wantMatch: true,
		},
		{
			name:      "wrapped NotFound still matches",
			err:       fmt.Errorf("deleting artist: %w", NotFound("artist", 7)),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "NotFound does NOT match ErrValidation",
			err:       NotFound("artist", 7),
			target:    ErrValidation,
			wantMatch: false,
		},
		{
			name:      "InvalidIdentifier does NOT match ErrNotFound",
			err:       InvalidIdentifier("artist", "abc"),
			target:    ErrNotFound,
			wantMatch: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := errors.Is(tt.err, tt.target)
			if got != tt.wantMatch {
				t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, tt.target, got, tt.wantMatch)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name        string
		err         *AppError
		wantMessage string
	}{
		{
			name:        "NotFound message includes resource and id",
			err:         NotFound("Record label", 12),
			wantMessage: "Record label not found with id 12",
		},
		{
			name:        "ValidationFailed uses custom message",
			err:         ValidationFailed("password", "Password is required"),
			wantMessage: "Password is required",
		},
		{
			name:        "InvalidIdentifier names the resource",
			err:         InvalidIdentifier("record label", "xyz"),
			wantMessage: "Invalid record label ID",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMessage {
				t.Errorf("Error() = %q, want %q", got, tt.wantMessage)
			}
		})
	}
}

func TestUnwrap(t *testing.T) {
	err := NotFound("artist", 1)
	if unwrapped := err.Unwrap(); unwrapped != ErrNotFound {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, ErrNotFound)
	}
}

func TestValidationFailedField(t *testing.T) {
	err := ValidationFailed("email", "Email must be a valid email address")

	if err.Field != "email" {
		t.Errorf("Field = %q, want %q", err.Field, "email")
	}
	if len(err.Fields) != 1 || err.Fields[0].Field != "email" {
		t.Errorf("Fields = %+v, want one entry for email", err.Fields)
	}
}

func TestValidation_KeepsEveryField(t *testing.T) {
	err := Validation([]FieldError{
		{Field: "first_name", Message: "First Name is required"},
		{Field: "password", Message: "Password is required"},
	})

	if !errors.Is(err, ErrValidation) {
		t.Fatalf("Validation() does not wrap ErrValidation")
	}
	if len(err.Fields) != 2 {
		t.Fatalf("Fields = %d entries, want 2", len(err.Fields))
	}
	if err.Message != "First Name is required" {
		t.Errorf("Message = %q, want first field's message", err.Message)
	}
}

func TestValidation_Empty(t *testing.T) {
	err := Validation(nil)
	if err.Message != "validation failed" {
		t.Errorf("Message = %q, want %q", err.Message, "validation failed")
	}
}
