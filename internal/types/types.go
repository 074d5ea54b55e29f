// Package types provides common type definitions used throughout the bindc CLI.
// This package contains shared types to avoid circular dependencies between packages.
package types

import "time"

// BindingMode describes the direction a binding propagates values.
type BindingMode string

const (
	ModeDefault        BindingMode = ""
	ModeOneWay         BindingMode = "OneWay"
	ModeTwoWay         BindingMode = "TwoWay"
	ModeOneTime        BindingMode = "OneTime"
	ModeOneWayToSource BindingMode = "OneWayToSource"
)

// BindingKind classifies how a binding will be resolved.
type BindingKind string

const (
	// KindCompiled marks a binding resolved at build time against a declared
	// scope type.
	KindCompiled BindingKind = "compiled"
	// KindClassic marks a binding left to runtime reflection, either because
	// its scope has no declared type or because the expression opted out.
	KindClassic BindingKind = "classic"
)

// ClassicReason explains why a binding fell back to runtime resolution.
type ClassicReason string

const (
	ReasonNone           ClassicReason = ""
	ReasonNoScopeType    ClassicReason = "no-scope-type"
	ReasonNullScope      ClassicReason = "null-scope"
	ReasonExplicitSource ClassicReason = "explicit-source"
	ReasonMultiSource    ClassicReason = "multi-source"
)

// DocumentInfo contains metadata about a discovered markup document, including
// its element tree, declared scopes, and change-detection state used by the
// scanner, registry, and build pipeline.
type DocumentInfo struct {
	// Name is the document identifier derived from the file name (e.g. "MainPage")
	Name string
	// FilePath is the path to the .bxml file containing the document
	FilePath string
	// Root is the root element of the parsed markup tree (nil until parsed)
	Root *Element
	// Bindings lists every binding expression found in the document
	Bindings []*BindingInfo
	// LastMod tracks the last modification time for change detection
	LastMod time.Time
	// Hash provides a CRC32 checksum for efficient change detection
	Hash string
}

// Element is a node in the parsed markup tree.
type Element struct {
	// Name is the element's local name (e.g. "Label", "ListView")
	Name string
	// Attributes holds the element's attributes in document order
	Attributes []Attribute
	// Children holds nested elements in document order
	Children []*Element
	// Parent points at the enclosing element, nil for the root
	Parent *Element
	// Line is the 1-based source line of the element's start tag
	Line int
	// DataType records the raw x:DataType attribute value if present
	DataType string
	// HasDataType distinguishes an absent declaration from an empty one
	HasDataType bool
	// MultiSource marks aggregate binding container elements
	MultiSource bool
}

// Attribute is a single markup attribute with source position.
type Attribute struct {
	Name  string
	Value string
	Line  int
}

// BindingInfo describes one binding expression extracted from markup.
type BindingInfo struct {
	// Document is the name of the document the binding appears in
	Document string
	// FilePath is the path of the containing document
	FilePath string
	// Element is the local name of the element carrying the binding
	Element string
	// TargetProperty is the attribute the binding is assigned to
	TargetProperty string
	// Path is the dot-separated property path of the expression
	Path string
	// Mode is the declared binding mode, empty for the default
	Mode BindingMode
	// HasSource is true when the expression carries an explicit Source=
	HasSource bool
	// MultiSource is true for aggregate bindings over several sources
	MultiSource bool
	// Converter names a value converter, empty when none is declared
	Converter string
	// Line is the 1-based source line of the binding expression
	Line int
	// Owner is the element the binding expression is attached to, used by
	// scope resolution to walk enclosing x:DataType declarations
	Owner *Element

	// Kind and ScopeType are filled in by scope resolution.
	Kind BindingKind
	// ScopeType is the resolved declared type for compiled bindings
	ScopeType string
	// Reason explains classic fallback, empty for compiled bindings
	Reason ClassicReason
}

// TypeInfo describes a view-model type extracted from Go source.
type TypeInfo struct {
	// Name is the unqualified type name (e.g. "Customer")
	Name string
	// Package is the Go package the type is declared in
	Package string
	// FilePath is the file the declaration was found in
	FilePath string
	// Fields lists the struct's fields in declaration order
	Fields []FieldInfo
	// LastMod tracks the last modification time for change detection
	LastMod time.Time
	// Hash provides a CRC32 checksum for efficient change detection
	Hash string
}

// FieldInfo describes a single struct field available to binding paths.
type FieldInfo struct {
	// Name is the field name as declared
	Name string
	// Type is the field's Go type as written (e.g. "string", "*Address", "[]Item")
	Type string
	// Exported reports whether the field is exported and therefore settable
	Exported bool
}

// EventType represents the type of registry change event.
type EventType string

const (
	EventTypeAdded   EventType = "added"
	EventTypeUpdated EventType = "updated"
	EventTypeRemoved EventType = "removed"
)

// DocumentEvent represents a change in the document registry, used for
// real-time notifications to watchers like watch mode and the diagnostics
// server.
type DocumentEvent struct {
	// Type indicates the kind of change (added, updated, removed)
	Type EventType
	// Document contains the document information (may be nil for removed events)
	Document *DocumentInfo
	// Timestamp records when the event occurred for ordering and filtering
	Timestamp time.Time
}
