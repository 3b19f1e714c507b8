// Package util provides logging, the error taxonomy, and address helpers
// shared by the netedit packages.
package util

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Sentinel errors
var (
	ErrNotFound           = errors.New("resource not found")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrPreconditionFailed = errors.New("precondition not met")
	ErrValidationFailed   = errors.New("validation failed")
	ErrInvalidTransition  = errors.New("invalid transition")
	ErrMutationRejected   = errors.New("mutation rejected")
)

// GeneralField is the field key used for errors not tied to a single field.
const GeneralField = "__all__"

// PreconditionError represents a failed precondition check with context
type PreconditionError struct {
	Operation    string
	Resource     string
	Precondition string
	Details      string
}

func (e *PreconditionError) Error() string {
	msg := fmt.Sprintf("precondition failed for %s on %s: %s", e.Operation, e.Resource, e.Precondition)
	if e.Details != "" {
		msg += " (" + e.Details + ")"
	}
	return msg
}

func (e *PreconditionError) Unwrap() error {
	return ErrPreconditionFailed
}

// NewPreconditionError creates a new precondition error
func NewPreconditionError(operation, resource, precondition, details string) *PreconditionError {
	return &PreconditionError{
		Operation:    operation,
		Resource:     resource,
		Precondition: precondition,
		Details:      details,
	}
}

// FieldError is a single invalid field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError represents one or more validation failures
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return "validation failed: " + e.Errors[0].String()
	}
	msgs := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		msgs[i] = fe.String()
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

// Fields returns the invalid fields as a field -> message map.
func (e *ValidationError) Fields() map[string]string {
	out := make(map[string]string, len(e.Errors))
	for _, fe := range e.Errors {
		if _, ok := out[fe.Field]; !ok {
			out[fe.Field] = fe.Message
		}
	}
	return out
}

func (fe FieldError) String() string {
	if fe.Field == "" || fe.Field == GeneralField {
		return fe.Message
	}
	return fe.Field + ": " + fe.Message
}

// NewValidationError creates a validation error for a single field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Errors: []FieldError{{Field: field, Message: message}}}
}

// ValidationBuilder helps accumulate validation errors
type ValidationBuilder struct {
	errors []FieldError
}

// Add adds an error for field if condition is false
func (v *ValidationBuilder) Add(condition bool, field, message string) *ValidationBuilder {
	if !condition {
		v.errors = append(v.errors, FieldError{Field: field, Message: message})
	}
	return v
}

// AddErrorf adds a formatted error message for field
func (v *ValidationBuilder) AddErrorf(field, format string, args ...interface{}) *ValidationBuilder {
	v.errors = append(v.errors, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
	return v
}

// HasErrors returns true if there are validation errors
func (v *ValidationBuilder) HasErrors() bool {
	return len(v.errors) > 0
}

// Build returns the validation error or nil if no errors
func (v *ValidationBuilder) Build() error {
	if len(v.errors) == 0 {
		return nil
	}
	return &ValidationError{Errors: v.errors}
}

// MutationError is a rejection reported by the mutation layer. Fields maps
// the rejected field names to the messages returned for them.
type MutationError struct {
	Operation string
	Fields    map[string][]string
}

func (e *MutationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		msg := strings.Join(e.Fields[k], " ")
		if k == GeneralField {
			parts = append(parts, msg)
		} else {
			parts = append(parts, k+": "+msg)
		}
	}
	return fmt.Sprintf("%s rejected: %s", e.Operation, strings.Join(parts, "; "))
}

func (e *MutationError) Unwrap() error {
	return ErrMutationRejected
}

// NewMutationError creates a rejection for a single field
func NewMutationError(operation, field, message string) *MutationError {
	return &MutationError{
		Operation: operation,
		Fields:    map[string][]string{field: {message}},
	}
}

// FieldMessages extracts a field -> message map from err. Mutation and
// validation errors keep their field names; anything else lands under
// GeneralField.
func FieldMessages(err error) map[string]string {
	if err == nil {
		return nil
	}
	var me *MutationError
	if errors.As(err, &me) {
		out := make(map[string]string, len(me.Fields))
		for k, msgs := range me.Fields {
			out[k] = strings.Join(msgs, " ")
		}
		return out
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Fields()
	}
	return map[string]string{GeneralField: err.Error()}
}
