// Package resolve classifies every binding expression in a document as
// compiled or classic by resolving its enclosing x:DataType scope.
//
// The rules, in order of precedence:
//
//  1. Aggregate (multi-source) bindings are always classic.
//  2. Bindings with an explicit Source= are always classic.
//  3. The innermost enclosing x:DataType declaration determines the scope:
//     {x:Null} reverts the sub-tree to classic, a type name makes the
//     binding compiled against that type.
//  4. Without any declaration the binding stays classic.
//
// Declarations inherit down the element tree; a declaration on an element
// applies to bindings on that element itself.
package resolve

import (
	"github.com/bindc-dev/bindc/internal/errors"
	"github.com/bindc-dev/bindc/internal/markup"
	"github.com/bindc-dev/bindc/internal/types"
)

// Resolver assigns a BindingKind and scope type to every binding of a
// document.
type Resolver struct{}

// NewResolver creates a scope resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve mutates the document's bindings in place. It fails on the first
// malformed x:DataType declaration it encounters.
func (r *Resolver) Resolve(doc *types.DocumentInfo) error {
	for _, binding := range doc.Bindings {
		if err := r.resolveBinding(doc, binding); err != nil {
			return err
		}
	}
	return nil
}

func (r *Resolver) resolveBinding(doc *types.DocumentInfo, binding *types.BindingInfo) error {
	if binding.MultiSource {
		binding.Kind = types.KindClassic
		binding.Reason = types.ReasonMultiSource
		return nil
	}

	if binding.HasSource {
		binding.Kind = types.KindClassic
		binding.Reason = types.ReasonExplicitSource
		return nil
	}

	decl, declLine, err := r.scopeFor(binding.Owner)
	if err != nil {
		if be, ok := err.(*errors.BindError); ok {
			return be.WithLocation(doc.FilePath, declLine, 0).WithDocument(doc.Name)
		}
		return err
	}

	switch {
	case decl == nil:
		binding.Kind = types.KindClassic
		binding.Reason = types.ReasonNoScopeType
	case decl.Null:
		binding.Kind = types.KindClassic
		binding.Reason = types.ReasonNullScope
	default:
		binding.Kind = types.KindCompiled
		binding.ScopeType = decl.TypeName
		binding.Reason = types.ReasonNone
	}

	return nil
}

// scopeFor finds the innermost x:DataType declaration covering an element,
// starting at the element itself.
func (r *Resolver) scopeFor(el *types.Element) (*markup.ScopeDecl, int, error) {
	for e := el; e != nil; e = e.Parent {
		if !e.HasDataType {
			continue
		}
		decl, err := markup.ParseScopeDecl(e.DataType)
		if err != nil {
			return nil, e.Line, err
		}
		return decl, e.Line, nil
	}
	return nil, 0, nil
}

// ScopeTypes returns the distinct scope type names declared anywhere in the
// document, used to pre-validate declarations against the type table before
// path checking.
func ScopeTypes(doc *types.DocumentInfo) map[string]int {
	scopes := make(map[string]int)

	var walk func(el *types.Element)
	walk = func(el *types.Element) {
		if el.HasDataType {
			if decl, err := markup.ParseScopeDecl(el.DataType); err == nil && !decl.Null {
				if _, seen := scopes[decl.TypeName]; !seen {
					scopes[decl.TypeName] = el.Line
				}
			}
		}
		for _, child := range el.Children {
			walk(child)
		}
	}

	if doc.Root != nil {
		walk(doc.Root)
	}

	return scopes
}
