// Package errors provides the shared error taxonomy for the tool registry,
// the route table and the upstream API clients.
package errors

import (
	stderrors "errors"
	"fmt"
)

// UnknownToolError indicates a tool name that is not registered.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool: %s", e.Name)
}

// NewUnknownToolError creates an UnknownToolError.
func NewUnknownToolError(name string) *UnknownToolError {
	return &UnknownToolError{Name: name}
}

// DuplicateNameError indicates a second registration under an existing key.
type DuplicateNameError struct {
	Kind string // "tool" or "route"
	Name string // tool name or "METHOD /path"
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("%s already registered: %s", e.Kind, e.Name)
}

// NewDuplicateNameError creates a DuplicateNameError.
func NewDuplicateNameError(kind, name string) *DuplicateNameError {
	return &DuplicateNameError{Kind: kind, Name: name}
}

// ValidationError indicates arguments that do not satisfy a tool's input schema.
type ValidationError struct {
	Field      string // property name; empty when the payload as a whole is invalid
	Value      string // offending value, rendered for humans (may be empty)
	Constraint string // constraint that was violated, e.g. "required" or "maximum: 100"
}

func (e *ValidationError) Error() string {
	if e.Field != "" && e.Value != "" {
		return fmt.Sprintf("validation failed for %s=%s: %s", e.Field, e.Value, e.Constraint)
	}
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Constraint)
	}
	return fmt.Sprintf("validation failed: %s", e.Constraint)
}

// NewValidationError creates a ValidationError.
func NewValidationError(field, value, constraint string) *ValidationError {
	return &ValidationError{
		Field:      field,
		Value:      value,
		Constraint: constraint,
	}
}

// UpstreamError indicates a failed call to a third-party API.
// Tools hand it back to the registry, which stringifies it by default.
type UpstreamError struct {
	Service    string // "github", "zipcloud"
	Op         string // human-readable operation, e.g. "fetching pull requests"
	StatusCode int    // 0 when the request never got a response
	Detail     string // upstream message or transport error text
	Err        error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("error while %s: %s", e.Op, e.Detail)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// NewUpstreamError creates an UpstreamError from a transport or decoding failure.
func NewUpstreamError(service, op string, err error) *UpstreamError {
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	return &UpstreamError{
		Service: service,
		Op:      op,
		Detail:  detail,
		Err:     err,
	}
}

// NotFoundError indicates a request with no matching route.
type NotFoundError struct {
	Method string
	Path   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no route for %s %s", e.Method, e.Path)
}

// IsUnknownTool returns true if err is or wraps an UnknownToolError.
func IsUnknownTool(err error) bool {
	var target *UnknownToolError
	return stderrors.As(err, &target)
}

// IsDuplicateName returns true if err is or wraps a DuplicateNameError.
func IsDuplicateName(err error) bool {
	var target *DuplicateNameError
	return stderrors.As(err, &target)
}

// IsValidation returns true if err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return stderrors.As(err, &target)
}

// IsUpstream returns true if err is or wraps an UpstreamError.
func IsUpstream(err error) bool {
	var target *UpstreamError
	return stderrors.As(err, &target)
}

// IsNotFound returns true if err is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return stderrors.As(err, &target)
}
