package core

import (
	"sort"
	"strings"
)

// ValidationError collects field-level problems for a single request.
type ValidationError struct {
	Fields map[string]error
}

func (v *ValidationError) Add(field string, err error) {
	if v.Fields == nil {
		v.Fields = make(map[string]error)
	}
	if _, exists := v.Fields[field]; !exists {
		v.Fields[field] = err
	}
}

func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.Fields) > 0
}

// Messages returns field -> message, suitable for inline form errors.
func (v *ValidationError) Messages() map[string]string {
	out := make(map[string]string, len(v.Fields))
	for field, err := range v.Fields {
		out[field] = err.Error()
	}
	return out
}

func (v *ValidationError) Error() string {
	fields := make([]string, 0, len(v.Fields))
	for field := range v.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, len(fields))
	for i, field := range fields {
		parts[i] = field + ": " + v.Fields[field].Error()
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

// Unwrap exposes the individual field errors to errors.Is.
func (v *ValidationError) Unwrap() []error {
	errs := make([]error, 0, len(v.Fields))
	for _, err := range v.Fields {
		errs = append(errs, err)
	}
	return errs
}
