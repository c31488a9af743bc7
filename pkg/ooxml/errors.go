package ooxml

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// MalformedPackageError reports input bytes that are not a usable OOXML
// container.
type MalformedPackageError struct {
	Part    string
	Message string
	Cause   error
}

func (e *MalformedPackageError) Error() string {
	msg := "malformed package"
	if e.Part != "" {
		msg += fmt.Sprintf(" (%s)", e.Part)
	}
	msg += ": " + e.Message
	if e.Cause != nil {
		msg += fmt.Sprintf(": %v", e.Cause)
	}
	return msg
}

func (e *MalformedPackageError) Unwrap() error {
	return e.Cause
}

// NewMalformedPackageError creates a new malformed package error
func NewMalformedPackageError(part, message string, cause error) error {
	return &MalformedPackageError{Part: part, Message: message, Cause: cause}
}

// IndexOutOfRangeError reports an ordinal outside [0, Count-1].
type IndexOutOfRangeError struct {
	What  string
	Index int
	Count int
}

func (e *IndexOutOfRangeError) Error() string {
	if e.Count == 0 {
		return fmt.Sprintf("%s index %d out of range: there are no %ss", e.What, e.Index, e.What)
	}
	return fmt.Sprintf("%s index %d out of range: valid range is [0, %d]", e.What, e.Index, e.Count-1)
}

// NewIndexOutOfRangeError creates a new index error
func NewIndexOutOfRangeError(what string, index, count int) error {
	return &IndexOutOfRangeError{What: what, Index: index, Count: count}
}

// UnsupportedImportTypeError reports a content type the importer cannot handle.
type UnsupportedImportTypeError struct {
	Type      string
	Supported []string
}

func (e *UnsupportedImportTypeError) Error() string {
	return fmt.Sprintf("unsupported import type %q: supported types are %s", e.Type, strings.Join(e.Supported, ", "))
}

// MissingTargetShapeError reports a slide with no shape to edit.
type MissingTargetShapeError struct {
	Slide int
}

func (e *MissingTargetShapeError) Error() string {
	return fmt.Sprintf("slide %d has no placeholder or shape to target", e.Slide)
}

// InvalidArgumentError reports a caller supplied value that cannot be used.
type InvalidArgumentError struct {
	Argument string
	Message  string
}

func (e *InvalidArgumentError) Error() string {
	if e.Argument == "" {
		return "invalid argument: " + e.Message
	}
	return fmt.Sprintf("invalid argument %s: %s", e.Argument, e.Message)
}

// NewInvalidArgumentError creates a new invalid argument error
func NewInvalidArgumentError(argument, message string) error {
	return &InvalidArgumentError{Argument: argument, Message: message}
}

// InternalInconsistencyError reports a broken invariant found after a
// mutation. It is never the caller's fault.
type InternalInconsistencyError struct {
	Message string
	Cause   error
}

func (e *InternalInconsistencyError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("internal inconsistency: %s: %v", e.Message, e.Cause)
	}
	return "internal inconsistency: " + e.Message
}

func (e *InternalInconsistencyError) Unwrap() error {
	return e.Cause
}

// MultiError collects multiple errors
type MultiError struct {
	errors []error
}

// NewMultiError creates a new multi-error collector
func NewMultiError() *MultiError {
	return &MultiError{errors: make([]error, 0)}
}

// Add adds an error to the collection (ignores nil errors)
func (m *MultiError) Add(err error) {
	if err != nil {
		m.errors = append(m.errors, err)
	}
}

// Addf adds a formatted error to the collection
func (m *MultiError) Addf(format string, args ...interface{}) {
	m.errors = append(m.errors, fmt.Errorf(format, args...))
}

// Len returns the number of errors
func (m *MultiError) Len() int {
	return len(m.errors)
}

// Err returns the multi-error or nil if empty
func (m *MultiError) Err() error {
	if len(m.errors) == 0 {
		return nil
	}
	if len(m.errors) == 1 {
		return m.errors[0]
	}
	return m
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (m *MultiError) Unwrap() []error {
	return m.errors
}

func (m *MultiError) Error() string {
	if len(m.errors) == 0 {
		return "no errors"
	}
	if len(m.errors) == 1 {
		return m.errors[0].Error()
	}

	var parts []string
	parts = append(parts, fmt.Sprintf("%d errors occurred:", len(m.errors)))
	for i, err := range m.errors {
		parts = append(parts, fmt.Sprintf("  [%d] %v", i+1, err))
	}
	return strings.Join(parts, "\n")
}

// ContextError adds context to an existing error
type ContextError struct {
	Operation string
	Context   map[string]interface{}
	Cause     error
}

func (e *ContextError) Error() string {
	var contextParts []string
	for k, v := range e.Context {
		contextParts = append(contextParts, fmt.Sprintf("%s=%v", k, v))
	}
	sort.Strings(contextParts)

	if len(contextParts) > 0 {
		return fmt.Sprintf("%s [%s]: %v", e.Operation, strings.Join(contextParts, ", "), e.Cause)
	}
	return fmt.Sprintf("%s: %v", e.Operation, e.Cause)
}

func (e *ContextError) Unwrap() error {
	return e.Cause
}

// WithContext wraps an error with additional context
func WithContext(err error, operation string, context map[string]interface{}) error {
	if err == nil {
		return nil
	}
	return &ContextError{
		Operation: operation,
		Context:   context,
		Cause:     err,
	}
}

// RecoverError converts a panic recovery value into an InternalInconsistencyError.
func RecoverError(r interface{}) error {
	switch v := r.(type) {
	case error:
		return &InternalInconsistencyError{Message: "panic recovered", Cause: v}
	case string:
		return &InternalInconsistencyError{Message: "panic recovered: " + v}
	default:
		return &InternalInconsistencyError{Message: fmt.Sprintf("panic recovered: %v", v)}
	}
}

// IsMalformedPackage checks if an error is a malformed package error
func IsMalformedPackage(err error) bool {
	var target *MalformedPackageError
	return errors.As(err, &target)
}

// IsIndexOutOfRange checks if an error is an index error
func IsIndexOutOfRange(err error) bool {
	var target *IndexOutOfRangeError
	return errors.As(err, &target)
}

// IsUnsupportedImportType checks if an error is an unsupported import type error
func IsUnsupportedImportType(err error) bool {
	var target *UnsupportedImportTypeError
	return errors.As(err, &target)
}

// IsMissingTargetShape checks if an error is a missing target shape error
func IsMissingTargetShape(err error) bool {
	var target *MissingTargetShapeError
	return errors.As(err, &target)
}

// IsInvalidArgument checks if an error is an invalid argument error
func IsInvalidArgument(err error) bool {
	var target *InvalidArgumentError
	return errors.As(err, &target)
}

// IsInternalInconsistency checks if an error is an internal inconsistency
func IsInternalInconsistency(err error) bool {
	var target *InternalInconsistencyError
	return errors.As(err, &target)
}
