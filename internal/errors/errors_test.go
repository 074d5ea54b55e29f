package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *BindError
		expected string
	}{
		{
			name:     "message only",
			err:      &BindError{Message: "something broke"},
			expected: "something broke",
		},
		{
			name:     "with code",
			err:      &BindError{Code: ErrCodeUnknownMember, Message: "no such member"},
			expected: "[ERR_UNKNOWN_MEMBER] no such member",
		},
		{
			name: "with document and location",
			err: &BindError{
				Code:     ErrCodeUnknownMember,
				Message:  "no such member",
				Document: "Login",
				FilePath: "views/login.bxml",
				Line:     12,
				Column:   8,
			},
			expected: "[ERR_UNKNOWN_MEMBER] document:Login views/login.bxml:12:8 no such member",
		},
		{
			name: "line without column",
			err: &BindError{
				Message:  "bad",
				FilePath: "views/login.bxml",
				Line:     3,
			},
			expected: "views/login.bxml:3 bad",
		},
		{
			name: "with cause",
			err: &BindError{
				Message: "read failed",
				Cause:   fmt.Errorf("permission denied"),
			},
			expected: "read failed: permission denied",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestBindError_UnwrapAndIs(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := NewIOError(ErrCodeFileNotFound, "cannot write output", cause)

	assert.Equal(t, cause, stderrors.Unwrap(err))
	assert.True(t, stderrors.Is(err, &BindError{Type: ErrorTypeIO, Code: ErrCodeFileNotFound}))
	assert.False(t, stderrors.Is(err, &BindError{Type: ErrorTypeIO, Code: ErrCodeInvalidPath}))
}

func TestBindError_WithLocationAndDocument(t *testing.T) {
	err := NewBindingError(ErrCodeUnknownMember, "no such member").
		WithDocument("Login").
		WithLocation("views/login.bxml", 4, 17)

	assert.Equal(t, "Login", err.Document)
	assert.Equal(t, "views/login.bxml", err.FilePath)
	assert.Equal(t, 4, err.Line)
	assert.Equal(t, 17, err.Column)
}

func TestErrorConstructors(t *testing.T) {
	assert.Equal(t, ErrorTypeValidation, NewValidationError("C", "m").Type)
	assert.True(t, NewValidationError("C", "m").Recoverable)

	assert.Equal(t, ErrorTypeBinding, NewBindingError("C", "m").Type)
	assert.False(t, NewBindingError("C", "m").Recoverable)

	assert.Equal(t, ErrorTypeBuild, NewBuildError("C", "m", nil).Type)
	assert.True(t, IsRecoverable(NewBuildError("C", "m", nil)))

	assert.True(t, IsBindingError(ErrUnknownType("vm.Missing")))
	assert.False(t, IsBindingError(fmt.Errorf("plain")))
	assert.False(t, IsRecoverable(fmt.Errorf("plain")))
}

func TestErrorHelpers(t *testing.T) {
	err := ErrUnknownMember("vm.Customer", "Nmae")
	assert.Equal(t, ErrCodeUnknownMember, err.Code)
	assert.Contains(t, err.Message, "vm.Customer")
	assert.Contains(t, err.Message, `"Nmae"`)

	err = ErrReadOnlyTarget("vm.Customer", "balance")
	assert.Equal(t, ErrCodeReadOnlyTarget, err.Code)

	err = ErrUnknownType("vm.Missing")
	assert.Equal(t, ErrCodeUnknownType, err.Code)
	assert.Contains(t, err.Message, "vm.Missing")

	err = ErrPathTraversal("../etc")
	assert.Equal(t, ErrCodePathTraversal, err.Code)
}

func TestSink_FirstBindingErrorPerDocument(t *testing.T) {
	sink := NewSink()

	assert.True(t, sink.ReportBinding("Login", ErrUnknownMember("vm.Customer", "Bad1")))
	assert.False(t, sink.ReportBinding("Login", ErrUnknownMember("vm.Customer", "Bad2")))
	assert.False(t, sink.ReportBinding("Login", ErrUnknownMember("vm.Customer", "Bad3")))

	// A different document gets its own first error.
	assert.True(t, sink.ReportBinding("Checkout", ErrUnknownMember("vm.Order", "Bad")))

	diags := sink.Diagnostics()
	require.Len(t, diags, 2)
	assert.Equal(t, 2, sink.Suppressed())
	assert.True(t, sink.DocumentFailed("Login"))
	assert.True(t, sink.DocumentFailed("Checkout"))
	assert.False(t, sink.DocumentFailed("Profile"))
}

func TestSink_ReportSeverities(t *testing.T) {
	sink := NewSink()

	sink.Report(SeverityWarning, "Login", NewValidationError(ErrCodeValidationSilentFallback, "no scope"))
	assert.False(t, sink.HasErrors())
	assert.False(t, sink.DocumentFailed("Login"))

	sink.Report(SeverityError, "Login", NewConfigError(ErrCodeConfigInvalid, "bad config"))
	assert.True(t, sink.HasErrors())
	assert.True(t, sink.DocumentFailed("Login"))
	assert.Equal(t, 1, sink.ErrorCount())
}

func TestSink_DiagnosticsSorted(t *testing.T) {
	sink := NewSink()

	sink.Report(SeverityError, "Zulu", (&BindError{Message: "z"}).WithLocation("z.bxml", 5, 1))
	sink.Report(SeverityError, "Alpha", (&BindError{Message: "a2"}).WithLocation("a.bxml", 9, 1))
	sink.Report(SeverityError, "Alpha", (&BindError{Message: "a1"}).WithLocation("a.bxml", 2, 1))

	diags := sink.Diagnostics()
	require.Len(t, diags, 3)
	assert.Equal(t, "Alpha", diags[0].Document)
	assert.Equal(t, 2, diags[0].Err.Line)
	assert.Equal(t, "Alpha", diags[1].Document)
	assert.Equal(t, 9, diags[1].Err.Line)
	assert.Equal(t, "Zulu", diags[2].Document)
}

func TestSink_Summary(t *testing.T) {
	sink := NewSink()
	assert.Equal(t, "0 error(s), 0 warning(s)", sink.Summary())

	sink.ReportBinding("Login", ErrUnknownMember("vm.Customer", "Bad1"))
	sink.ReportBinding("Login", ErrUnknownMember("vm.Customer", "Bad2"))
	sink.Report(SeverityWarning, "Profile", NewValidationError(ErrCodeValidationSilentFallback, "no scope"))

	assert.Equal(t, "1 error(s), 1 warning(s), 1 suppressed", sink.Summary())
}
