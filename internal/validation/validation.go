// Package validation is the schema registry's rule engine: it checks an
// inbound JSON payload against a resource descriptor and returns either the
// cleaned data or one error per offending field.
//
// Type checks are done here; length, format and range rules are the
// descriptor's validator tags, run through a shared go-playground/validator
// instance. Unknown keys are dropped, never reported.
package validation

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/artist-manager/internal/apperror"
	"github.com/sakif/artist-manager/internal/model"
	"github.com/sakif/artist-manager/internal/resource"
)

// Mode selects which required-field rules apply.
type Mode int

const (
	// Create enforces every required field.
	Create Mode = iota
	// Update only checks the fields actually supplied.
	Update
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// GetValidator returns the shared validator instance.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// jsonNumber is satisfied by the json.Number produced when decoding with
// UseNumber.
type jsonNumber interface {
	Int64() (int64, error)
	Float64() (float64, error)
	String() string
}

// Validate checks payload against the descriptor. On success the returned
// record holds only known fields, with strings trimmed, integers as int64,
// numbers as float64 and relation fields as []int64.
func Validate(d *resource.Descriptor, payload map[string]any, mode Mode) (model.Record, []apperror.FieldError) {
	cleaned := make(model.Record, len(payload))
	var errs []apperror.FieldError

	fail := func(name, message string) {
		errs = append(errs, apperror.FieldError{Field: name, Message: message})
	}

	for _, f := range d.Fields {
		raw, present := payload[f.Name]
		if !present {
			if mode == Create && f.Required {
				fail(f.Name, f.Label+" is required")
			}
			continue
		}

		if raw == nil {
			switch {
			case f.Nullable:
				cleaned[f.Name] = nil
			case f.Required:
				fail(f.Name, f.Label+" is required")
			default:
				fail(f.Name, f.Label+" must not be null")
			}
			continue
		}

		value, msg := coerce(f.Type, raw)
		if msg != "" {
			fail(f.Name, f.Label+" "+msg)
			continue
		}

		if s, ok := value.(string); ok {
			if !f.WriteOnly {
				s = strings.TrimSpace(s)
				value = s
			}
			if f.Required && strings.TrimSpace(s) == "" {
				fail(f.Name, f.Label+" is required")
				continue
			}
		}

		if f.Rules != "" {
			if err := GetValidator().Var(value, f.Rules); err != nil {
				fail(f.Name, translate(f.Label, err))
				continue
			}
		}

		cleaned[f.Name] = value
	}

	for _, rel := range d.Relations {
		raw, present := payload[rel.Field]
		// A null relation is treated like an absent one: nothing is connected.
		if !present || raw == nil {
			continue
		}
		ids, ok := intArray(raw)
		if !ok {
			fail(rel.Field, rel.Label+" must be an array of integers")
			continue
		}
		cleaned[rel.Field] = ids
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return cleaned, nil
}

// coerce converts a decoded JSON value to the Go type stored for t, or
// returns the message fragment describing the mismatch.
func coerce(t resource.Type, raw any) (any, string) {
	switch t {
	case resource.String:
		s, ok := raw.(string)
		if !ok {
			return nil, "must be a string"
		}
		return s, ""
	case resource.Integer:
		n, ok := toInt(raw)
		if !ok {
			return nil, "must be an integer"
		}
		return n, ""
	case resource.Number:
		f, ok := toFloat(raw)
		if !ok {
			return nil, "must be a number"
		}
		return f, ""
	}
	return nil, fmt.Sprintf("has unsupported type %s", t)
}

func toInt(raw any) (int64, bool) {
	switch v := raw.(type) {
	case jsonNumber:
		n, err := strconv.ParseInt(v.String(), 10, 64)
		return n, err == nil
	case int:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) || v > math.MaxInt64 || v < math.MinInt64 {
			return 0, false
		}
		return int64(v), true
	}
	return 0, false
}

func toFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case jsonNumber:
		f, err := v.Float64()
		return f, err == nil
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// intArray accepts a JSON array whose every element is an integer. One bad
// element fails the whole array.
func intArray(raw any) ([]int64, bool) {
	switch v := raw.(type) {
	case []int64:
		return append([]int64{}, v...), true
	case []int:
		out := make([]int64, len(v))
		for i, n := range v {
			out[i] = int64(n)
		}
		return out, true
	case []any:
		out := make([]int64, 0, len(v))
		for _, elem := range v {
			n, ok := toInt(elem)
			if !ok {
				return nil, false
			}
			out = append(out, n)
		}
		return out, true
	}
	return nil, false
}

// simpleMessages maps validator tags to message templates taking the label.
var simpleMessages = map[string]string{
	"required": "%s is required",
	"email":    "%s must be a valid email address",
	"url":      "%s must be a valid URL",
	"alpha":    "%s must contain only letters",
}

// translate turns the first validator failure into a message for label.
func translate(label string, err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Sprintf("%s is invalid", label)
	}
	fe := verrs[0]
	tag, param := fe.Tag(), fe.Param()

	if tmpl, ok := simpleMessages[tag]; ok {
		return fmt.Sprintf(tmpl, label)
	}

	isString := fe.Kind().String() == "string"
	switch tag {
	case "datetime":
		if param == "2006-01-02" {
			return fmt.Sprintf("%s must be a date in YYYY-MM-DD format", label)
		}
		return fmt.Sprintf("%s must match the layout %s", label, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", label, strings.Join(strings.Fields(param), ", "))
	case "len":
		if isString {
			return fmt.Sprintf("%s must be exactly %s characters long", label, param)
		}
		return fmt.Sprintf("%s must have length %s", label, param)
	case "min":
		if isString {
			return fmt.Sprintf("%s must be at least %s characters long", label, param)
		}
		return fmt.Sprintf("%s must be at least %s", label, param)
	case "max":
		if isString {
			return fmt.Sprintf("%s must be at most %s characters long", label, param)
		}
		return fmt.Sprintf("%s must be at most %s", label, param)
	}
	return fmt.Sprintf("%s failed %s validation", label, tag)
}
