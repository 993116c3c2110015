// Package schema checks entity fields against explicit rules: required values,
// compiled patterns, enumerations and numeric bounds.
//
// Entities describe their schema in a Validate method by combining checks:
//
//	return schema.Check("Peers",
//		schema.Required("name", p.Name),
//		schema.Pattern("ip_address", p.IPAddress, IPAddressPattern),
//	)
package schema

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// FieldError describes a single failed field check.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) String() string {
	return e.Field + ": " + e.Message
}

// ValidationError reports every field of one entity that failed its checks.
type ValidationError struct {
	Entity string
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.String()
	}
	return fmt.Sprintf("validation failed for %s: %s", e.Entity, strings.Join(parts, "; "))
}

// Has reports whether field failed validation.
func (e *ValidationError) Has(field string) bool {
	return slices.ContainsFunc(e.Fields, func(f FieldError) bool { return f.Field == field })
}

// Result is the outcome of a single check; nil means the field passed.
type Result []FieldError

// Check gathers the results of the given checks into a *ValidationError, or
// returns nil when every check passed.
func Check(entity string, results ...Result) error {
	var failed []FieldError
	for _, r := range results {
		failed = append(failed, r...)
	}
	if len(failed) == 0 {
		return nil
	}
	return &ValidationError{Entity: entity, Fields: failed}
}

// Nested prefixes the failures of an embedded entity's check with its path,
// e.g. "instructions.0.cover_instructions".
func Nested(path string, err error) Result {
	if err == nil {
		return nil
	}
	verr, ok := err.(*ValidationError)
	if !ok {
		return fail(path, "%s", err.Error())
	}
	out := make(Result, len(verr.Fields))
	for i, f := range verr.Fields {
		out[i] = FieldError{Field: path + "." + f.Field, Message: f.Message}
	}
	return out
}

func fail(field, format string, args ...any) Result {
	return Result{{Field: field, Message: fmt.Sprintf(format, args...)}}
}

// Required fails when value is the empty string.
func Required(field, value string) Result {
	if value == "" {
		return fail(field, "field is required")
	}
	return nil
}

// RequiredID fails when id is the zero ObjectID.
func RequiredID(field string, id bson.ObjectID) Result {
	if id.IsZero() {
		return fail(field, "field is required")
	}
	return nil
}

// RequiredPtr fails when v is nil. It marks numeric fields where zero is a
// valid value.
func RequiredPtr[T any](field string, v *T) Result {
	if v == nil {
		return fail(field, "field is required")
	}
	return nil
}

// RequiredMap fails when m is nil or empty.
func RequiredMap[V any](field string, m map[string]V) Result {
	if len(m) == 0 {
		return fail(field, "field is required and cannot be empty")
	}
	return nil
}

// Pattern fails when a non-empty value does not match re.
func Pattern(field, value string, re *regexp.Regexp) Result {
	if value != "" && !re.MatchString(value) {
		return fail(field, "string value did not match validation regex")
	}
	return nil
}

// MaxLength fails when value is longer than limit runes.
func MaxLength(field, value string, limit int) Result {
	if len([]rune(value)) > limit {
		return fail(field, "string value is too long")
	}
	return nil
}

// OneOf fails when a non-empty value is not one of choices.
func OneOf[T comparable](field string, value T, choices ...T) Result {
	var zero T
	if value != zero && !slices.Contains(choices, value) {
		return fail(field, "value must be one of %v", choices)
	}
	return nil
}

// IntsInRange fails when any element of values lies outside [lo, hi].
func IntsInRange(field string, values []int, lo, hi int) Result {
	for _, v := range values {
		if v < lo || v > hi {
			return fail(field, "integer value %d out of range [%d, %d]", v, lo, hi)
		}
	}
	return nil
}

// Min fails when value is lower than lo.
func Min(field string, value, lo int) Result {
	if value < lo {
		return fail(field, "integer value %d is less than %d", value, lo)
	}
	return nil
}
