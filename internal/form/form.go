// Package form validates raw user input before it reaches a store.
//
// Every entity has an input struct holding the fields as typed by the user.
// Parse checks each field, collecting one message per field, and either
// returns a typed record or a *ValidationError that blocks submission.
package form

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"fintrack/internal/core"
)

// ErrValidation matches every *ValidationError.
var ErrValidation = errors.New("validation failed")

// ValidationError maps field names to the message shown next to the field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var b strings.Builder
	b.WriteString(ErrValidation.Error())
	for i, k := range keys {
		if i == 0 {
			b.WriteString(": ")
		} else {
			b.WriteString("; ")
		}
		fmt.Fprintf(&b, "%s: %s", k, e.Fields[k])
	}
	return b.String()
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Field returns the message for field, "" when it passed.
func (e *ValidationError) Field(field string) string { return e.Fields[field] }

// errs collects the first message reported for each field.
type errs map[string]string

func (m errs) add(field, msg string) {
	if _, ok := m[field]; !ok {
		m[field] = msg
	}
}

func (m errs) err() error {
	if len(m) == 0 {
		return nil
	}
	return &ValidationError{Fields: map[string]string(m)}
}

// sanitize trims and drops control characters except tab, newline and carriage return.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}

const maxTextLength = 200

func requireText(m errs, field, value, msg string) string {
	v := sanitize(value)
	switch {
	case v == "":
		m.add(field, msg)
	case len(v) > maxTextLength:
		m.add(field, fmt.Sprintf("%s must be at most %d characters", label(field), maxTextLength))
	}
	return v
}

func requireAmount(m errs, field, value, msg string) core.Amount {
	a, err := core.ParseAmount(sanitize(value))
	if err != nil || a.Validate() != nil {
		m.add(field, msg)
		return core.ZeroAmount
	}
	return a
}

// requireDate checks presence with msg, and that the value is a calendar date.
func requireDate(m errs, field, value, msg string) core.Date {
	v := sanitize(value)
	if v == "" {
		m.add(field, msg)
		return core.Date{}
	}
	d, err := core.ParseDate(v)
	if err != nil {
		m.add(field, label(field)+" must be a date (YYYY-MM-DD)")
		return core.Date{}
	}
	return d
}

func optionalBool(m errs, field, value string) bool {
	v := sanitize(value)
	if v == "" {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		switch strings.ToLower(v) {
		case "yes", "y", "on":
			return true
		case "no", "n", "off":
			return false
		}
		m.add(field, label(field)+" must be true or false")
	}
	return b
}

func oneOf[T ~string](m errs, field, value string, valid []T, fallback T) T {
	v := strings.ToLower(sanitize(value))
	if v == "" {
		return fallback
	}
	if slices.Contains(valid, T(v)) {
		return T(v)
	}
	names := make([]string, len(valid))
	for i, t := range valid {
		names[i] = string(t)
	}
	m.add(field, fmt.Sprintf("%s must be one of %s", label(field), strings.Join(names, ", ")))
	return ""
}

// label turns a field key into the leading word of a message.
func label(field string) string {
	s := strings.ReplaceAll(field, "_", " ")
	return strings.ToUpper(s[:1]) + s[1:]
}
