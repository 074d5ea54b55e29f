// Package errors provides the structured error types used across bindc,
// along with the diagnostic sink that enforces the one-error-per-document
// reporting rule for compiled binding failures.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeBinding    ErrorType = "binding"
	ErrorTypeMarkup     ErrorType = "markup"
	ErrorTypeIO         ErrorType = "io"
	ErrorTypeBuild      ErrorType = "build"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeInternal   ErrorType = "internal"
)

// BindError is a structured error type with source context.
type BindError struct {
	Type        ErrorType `json:"type"`
	Code        string    `json:"code"`
	Message     string    `json:"message"`
	Cause       error     `json:"-"`
	Document    string    `json:"document,omitempty"`
	FilePath    string    `json:"file,omitempty"`
	Line        int       `json:"line"`
	Column      int       `json:"column"`
	Recoverable bool      `json:"recoverable"`
}

// Error implements the error interface.
func (e *BindError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.Document != "" {
		parts = append(parts, "document:"+e.Document)
	}

	if e.FilePath != "" {
		location := e.FilePath
		if e.Line > 0 {
			location += fmt.Sprintf(":%d", e.Line)
			if e.Column > 0 {
				location += fmt.Sprintf(":%d", e.Column)
			}
		}
		parts = append(parts, location)
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *BindError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison.
func (e *BindError) Is(target error) bool {
	var t *BindError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithLocation adds file location information.
func (e *BindError) WithLocation(filePath string, line, column int) *BindError {
	e.FilePath = filePath
	e.Line = line
	e.Column = column

	return e
}

// WithDocument adds document context.
func (e *BindError) WithDocument(document string) *BindError {
	e.Document = document

	return e
}

// Error creation functions

// NewValidationError creates a validation error.
func NewValidationError(code, message string) *BindError {
	return &BindError{
		Type:        ErrorTypeValidation,
		Code:        code,
		Message:     message,
		Recoverable: true,
	}
}

// NewBindingError creates a compiled-binding resolution error.
func NewBindingError(code, message string) *BindError {
	return &BindError{
		Type:        ErrorTypeBinding,
		Code:        code,
		Message:     message,
		Recoverable: false,
	}
}

// NewMarkupError creates a markup parse error.
func NewMarkupError(code, message string, cause error) *BindError {
	return &BindError{
		Type:        ErrorTypeMarkup,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// NewBuildError creates a build error.
func NewBuildError(code, message string, cause error) *BindError {
	return &BindError{
		Type:        ErrorTypeBuild,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: true,
	}
}

// NewIOError creates an I/O error.
func NewIOError(code, message string, cause error) *BindError {
	return &BindError{
		Type:        ErrorTypeIO,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string) *BindError {
	return &BindError{
		Type:        ErrorTypeConfig,
		Code:        code,
		Message:     message,
		Recoverable: false,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(code, message string, cause error) *BindError {
	return &BindError{
		Type:        ErrorTypeInternal,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// IsRecoverable checks if an error is recoverable.
func IsRecoverable(err error) bool {
	var be *BindError
	if errors.As(err, &be) {
		return be.Recoverable
	}

	return false
}

// IsBindingError checks if an error is a compiled-binding failure.
func IsBindingError(err error) bool {
	var be *BindError
	if errors.As(err, &be) {
		return be.Type == ErrorTypeBinding
	}

	return false
}

// Common error codes.
const (
	ErrCodeInvalidPath      = "ERR_INVALID_PATH"
	ErrCodePathTraversal    = "ERR_PATH_TRAVERSAL"
	ErrCodeUnknownType      = "ERR_UNKNOWN_TYPE"
	ErrCodeUnknownMember    = "ERR_UNKNOWN_MEMBER"
	ErrCodeReadOnlyTarget   = "ERR_READONLY_TARGET"
	ErrCodeNonTerminalLeaf  = "ERR_NON_TERMINAL_LEAF"
	ErrCodeMarkupSyntax     = "ERR_MARKUP_SYNTAX"
	ErrCodeExpressionSyntax = "ERR_EXPRESSION_SYNTAX"
	ErrCodeDocumentNotFound = "ERR_DOCUMENT_NOT_FOUND"
	ErrCodeBuildFailed      = "ERR_BUILD_FAILED"
	ErrCodeConfigInvalid    = "ERR_CONFIG_INVALID"
	ErrCodeFileNotFound     = "ERR_FILE_NOT_FOUND"
	ErrCodeCodegenFailed    = "ERR_CODEGEN_FAILED"

	// ErrCodeValidationSilentFallback flags bindings that silently degrade
	// to runtime resolution because their scope has no declared type.
	ErrCodeValidationSilentFallback = "ERR_SILENT_FALLBACK"
	ErrCodeInternalError            = "ERR_INTERNAL"
)

// Helper functions for common errors

// ErrInvalidPath creates a path validation error.
func ErrInvalidPath(path string) *BindError {
	return NewValidationError(ErrCodeInvalidPath, "invalid path: "+path)
}

// ErrPathTraversal creates a path traversal error.
func ErrPathTraversal(path string) *BindError {
	return NewValidationError(ErrCodePathTraversal, "path traversal attempt: "+path)
}

// ErrUnknownType creates an error for an x:DataType naming a type that the
// type table does not contain.
func ErrUnknownType(typeName string) *BindError {
	return NewBindingError(ErrCodeUnknownType, "unknown binding context type: "+typeName)
}

// ErrUnknownMember creates an error for a path step that does not exist on
// the resolved type.
func ErrUnknownMember(typeName, member string) *BindError {
	return NewBindingError(
		ErrCodeUnknownMember,
		fmt.Sprintf("type %s has no member %q", typeName, member),
	)
}

// ErrReadOnlyTarget creates an error for a writable binding mode targeting an
// unexported field.
func ErrReadOnlyTarget(typeName, member string) *BindError {
	return NewBindingError(
		ErrCodeReadOnlyTarget,
		fmt.Sprintf("field %s.%s is not settable from a two-way binding", typeName, member),
	)
}

// ErrDocumentNotFound creates a document not found error.
func ErrDocumentNotFound(name string) *BindError {
	return NewValidationError(ErrCodeDocumentNotFound, "document not found: "+name)
}

// ErrBuildFailed creates a build failure error.
func ErrBuildFailed(document string, cause error) *BindError {
	return NewBuildError(ErrCodeBuildFailed, "build failed for document: "+document, cause)
}
