package errors

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Severity ranks a diagnostic.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Diagnostic is a single reportable finding tied to a document.
type Diagnostic struct {
	Severity Severity   `json:"severity"`
	Document string     `json:"document"`
	Err      *BindError `json:"error"`
}

// Sink collects diagnostics across a compilation run. Binding errors follow
// the compiler's reporting rule: only the first binding error per document is
// recorded, later ones in the same document are counted but suppressed.
type Sink struct {
	mu         sync.Mutex
	diags      []Diagnostic
	failedDocs map[string]bool
	suppressed int
}

// NewSink creates an empty diagnostic sink.
func NewSink() *Sink {
	return &Sink{
		failedDocs: make(map[string]bool),
	}
}

// ReportBinding records a binding error for a document. It returns false when
// the document already has a reported binding error and the new one was
// suppressed.
func (s *Sink) ReportBinding(document string, err *BindError) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failedDocs[document] {
		s.suppressed++
		return false
	}

	s.failedDocs[document] = true
	err.Document = document
	s.diags = append(s.diags, Diagnostic{
		Severity: SeverityError,
		Document: document,
		Err:      err,
	})

	return true
}

// Report records a non-binding diagnostic. These are not subject to the
// per-document suppression rule.
func (s *Sink) Report(severity Severity, document string, err *BindError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if document != "" {
		err.Document = document
	}
	s.diags = append(s.diags, Diagnostic{
		Severity: severity,
		Document: document,
		Err:      err,
	})

	if severity == SeverityError {
		s.failedDocs[document] = true
	}
}

// DocumentFailed reports whether a binding error was already recorded for the
// document.
func (s *Sink) DocumentFailed(document string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.failedDocs[document]
}

// Diagnostics returns the recorded diagnostics ordered by document, then by
// source line.
func (s *Sink) Diagnostics() []Diagnostic {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Diagnostic, len(s.diags))
	copy(out, s.diags)

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Document != out[j].Document {
			return out[i].Document < out[j].Document
		}
		return out[i].Err.Line < out[j].Err.Line
	})

	return out
}

// Suppressed returns how many binding errors were hidden by the first-error
// rule.
func (s *Sink) Suppressed() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.suppressed
}

// HasErrors returns true when at least one error-severity diagnostic exists.
func (s *Sink) HasErrors() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, d := range s.diags {
		if d.Severity == SeverityError {
			return true
		}
	}

	return false
}

// ErrorCount returns the number of error-severity diagnostics.
func (s *Sink) ErrorCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, d := range s.diags {
		if d.Severity == SeverityError {
			n++
		}
	}

	return n
}

// Summary renders a one-line human summary of the sink contents.
func (s *Sink) Summary() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	errs, warns := 0, 0
	for _, d := range s.diags {
		switch d.Severity {
		case SeverityError:
			errs++
		case SeverityWarning:
			warns++
		}
	}

	parts := []string{fmt.Sprintf("%d error(s)", errs), fmt.Sprintf("%d warning(s)", warns)}
	if s.suppressed > 0 {
		parts = append(parts, fmt.Sprintf("%d suppressed", s.suppressed))
	}

	return strings.Join(parts, ", ")
}
