// Package errs holds the error kinds shared by the store, service and HTTP
// layers so handlers can map any failure to a status code with errors.Is.
package errs

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrNotFound marks a reference to an id that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidOperation marks an operation the record's type or state does not support.
	ErrInvalidOperation = errors.New("invalid operation")
	// ErrConflict marks a write that lost a race with another writer.
	ErrConflict = errors.New("conflict")
	// ErrUnauthorized marks failed authentication.
	ErrUnauthorized = errors.New("unauthorized")
)

type kindError struct {
	msg  string
	kind error
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

// NotFound returns a sentinel that matches both itself and ErrNotFound.
func NotFound(msg string) error {
	return &kindError{msg: msg, kind: ErrNotFound}
}

// InvalidOperation returns a sentinel that matches both itself and ErrInvalidOperation.
func InvalidOperation(msg string) error {
	return &kindError{msg: msg, kind: ErrInvalidOperation}
}

// ValidationError reports caller input that failed field checks.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Validation collects field errors; Err returns nil when none were added.
type Validation struct {
	fields map[string]string
}

func (v *Validation) Add(field, msg string) {
	if v.fields == nil {
		v.fields = make(map[string]string)
	}
	if _, exists := v.fields[field]; !exists {
		v.fields[field] = msg
	}
}

func (v *Validation) Err() error {
	if len(v.fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: v.fields}
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
