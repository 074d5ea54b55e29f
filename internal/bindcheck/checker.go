// Package bindcheck validates compiled bindings against the view-model type
// table.
//
// Validation follows the compiler's reporting contract: the first invalid
// binding in a document fails that document and suppresses any further
// binding errors from the same document. Classic bindings are never
// validated; in strict mode, bindings that silently degraded to classic
// because their scope has no declared type are reported as errors instead of
// warnings.
package bindcheck

import (
	"strings"

	"github.com/bindc-dev/bindc/internal/errors"
	"github.com/bindc-dev/bindc/internal/registry"
	"github.com/bindc-dev/bindc/internal/resolve"
	"github.com/bindc-dev/bindc/internal/typeres"
	"github.com/bindc-dev/bindc/internal/types"
)

// Checker validates the compiled bindings of resolved documents.
type Checker struct {
	registry *registry.Registry
	strict   bool
}

// NewChecker creates a checker backed by the registry's type table.
func NewChecker(reg *registry.Registry) *Checker {
	return &Checker{registry: reg}
}

// SetStrict upgrades silent classic fallbacks to errors.
func (c *Checker) SetStrict(strict bool) {
	c.strict = strict
}

// Check validates one resolved document, reporting findings into the sink.
// It returns true when the document passed.
func (c *Checker) Check(doc *types.DocumentInfo, sink *errors.Sink) bool {
	// Unknown scope types fail the document before any path checking.
	for typeName, line := range resolve.ScopeTypes(doc) {
		if _, ok := c.registry.LookupType(typeName); !ok {
			sink.ReportBinding(doc.Name, errors.ErrUnknownType(typeName).
				WithLocation(doc.FilePath, line, 0))
		}
	}

	for _, binding := range doc.Bindings {
		switch binding.Kind {
		case types.KindCompiled:
			// The sink reports the first binding error per document and
			// counts the rest as suppressed.
			if err := c.checkCompiled(binding); err != nil {
				sink.ReportBinding(doc.Name, err.WithLocation(doc.FilePath, binding.Line, 0))
			}
		case types.KindClassic:
			if binding.Reason == types.ReasonNoScopeType {
				severity := errors.SeverityWarning
				if c.strict {
					severity = errors.SeverityError
				}
				sink.Report(severity, doc.Name, errors.NewValidationError(
					errors.ErrCodeValidationSilentFallback,
					"binding resolves at runtime: no x:DataType in scope for path "+
						displayPath(binding.Path),
				).WithLocation(doc.FilePath, binding.Line, 0))
			}
		}
	}

	return !sink.DocumentFailed(doc.Name)
}

// checkCompiled validates one compiled binding path against its scope type.
func (c *Checker) checkCompiled(binding *types.BindingInfo) *errors.BindError {
	scope, ok := c.registry.LookupType(binding.ScopeType)
	if !ok {
		return errors.ErrUnknownType(binding.ScopeType)
	}

	path := strings.TrimSpace(binding.Path)
	if path == "" || path == "." {
		// Self binding: valid to read, but there is nothing to assign to.
		if isWritable(binding.Mode) {
			return errors.ErrReadOnlyTarget(scope.Name, "(self)")
		}
		return nil
	}

	current := scope
	steps := strings.Split(path, ".")

	for i, step := range steps {
		if current == nil {
			// The previous step resolved to a non-composite type.
			return errors.NewBindingError(
				errors.ErrCodeNonTerminalLeaf,
				"path continues past scalar member "+strings.Join(steps[:i], "."),
			)
		}

		field, ok := lookupField(current, step)
		if !ok {
			return errors.ErrUnknownMember(current.Name, step)
		}
		if !field.Exported {
			return errors.ErrUnknownMember(current.Name, step)
		}

		terminal := i == len(steps)-1
		if terminal {
			return nil
		}

		// Paths may traverse struct and pointer-to-struct members only;
		// collections require an indexer, which compiled paths do not
		// support.
		if strings.HasPrefix(field.Type, "[]") || strings.HasPrefix(field.Type, "map[") {
			return errors.NewBindingError(
				errors.ErrCodeNonTerminalLeaf,
				"path continues through collection member "+step,
			)
		}

		next, _ := c.registry.LookupType(typeres.ElementType(field.Type))
		current = next
	}

	return nil
}

func lookupField(t *types.TypeInfo, name string) (types.FieldInfo, bool) {
	for _, field := range t.Fields {
		if field.Name == name {
			return field, true
		}
	}
	return types.FieldInfo{}, false
}

func isWritable(mode types.BindingMode) bool {
	return mode == types.ModeTwoWay || mode == types.ModeOneWayToSource
}

func displayPath(path string) string {
	if strings.TrimSpace(path) == "" {
		return "(self)"
	}
	return path
}
