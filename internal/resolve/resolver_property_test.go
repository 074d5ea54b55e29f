//go:build property

package resolve

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/bindc-dev/bindc/internal/types"
)

// buildChain builds an element chain of the given depth with an optional
// x:DataType declaration at declDepth, and one binding on the leaf.
func buildChain(depth, declDepth int, decl string) *types.DocumentInfo {
	root := &types.Element{Name: "Page", Line: 1}
	current := root
	for i := 1; i < depth; i++ {
		child := &types.Element{Name: "Layout", Line: i + 1, Parent: current}
		current.Children = append(current.Children, child)
		current = child
	}

	if decl != "" && declDepth < depth {
		target := root
		for i := 0; i < declDepth; i++ {
			target = target.Children[0]
		}
		target.DataType = decl
		target.HasDataType = true
	}

	binding := &types.BindingInfo{
		Document: "Chain",
		Element:  current.Name,
		Path:     "Name",
		Owner:    current,
	}

	return &types.DocumentInfo{
		Name:     "Chain",
		Root:     root,
		Bindings: []*types.BindingInfo{binding},
	}
}

func TestResolverProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(4242)
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("every binding gets a kind", prop.ForAll(
		func(depth, declDepth int, hasDecl bool) bool {
			if depth < 1 || depth > 10 || declDepth < 0 || declDepth >= depth {
				return true
			}

			decl := ""
			if hasDecl {
				decl = "vm:Customer"
			}
			doc := buildChain(depth, declDepth, decl)
			if err := NewResolver().Resolve(doc); err != nil {
				return false
			}

			kind := doc.Bindings[0].Kind
			return kind == types.KindCompiled || kind == types.KindClassic
		},
		gen.IntRange(1, 10),
		gen.IntRange(0, 9),
		gen.Bool(),
	))

	properties.Property("declaration anywhere on the chain compiles the leaf binding", prop.ForAll(
		func(depth, declDepth int) bool {
			if depth < 1 || depth > 10 || declDepth < 0 || declDepth >= depth {
				return true
			}

			doc := buildChain(depth, declDepth, "vm:Customer")
			if err := NewResolver().Resolve(doc); err != nil {
				return false
			}

			binding := doc.Bindings[0]
			return binding.Kind == types.KindCompiled && binding.ScopeType == "vm.Customer"
		},
		gen.IntRange(1, 10),
		gen.IntRange(0, 9),
	))

	properties.Property("no declaration always falls back to classic", prop.ForAll(
		func(depth int) bool {
			if depth < 1 || depth > 10 {
				return true
			}

			doc := buildChain(depth, 0, "")
			if err := NewResolver().Resolve(doc); err != nil {
				return false
			}

			binding := doc.Bindings[0]
			return binding.Kind == types.KindClassic && binding.Reason == types.ReasonNoScopeType
		},
		gen.IntRange(1, 10),
	))

	properties.Property("explicit source wins over any scope", prop.ForAll(
		func(depth, declDepth int) bool {
			if depth < 1 || depth > 10 || declDepth < 0 || declDepth >= depth {
				return true
			}

			doc := buildChain(depth, declDepth, "vm:Customer")
			doc.Bindings[0].HasSource = true
			if err := NewResolver().Resolve(doc); err != nil {
				return false
			}

			binding := doc.Bindings[0]
			return binding.Kind == types.KindClassic && binding.Reason == types.ReasonExplicitSource
		},
		gen.IntRange(1, 10),
		gen.IntRange(0, 9),
	))

	properties.Property("null declaration reverts the subtree to classic", prop.ForAll(
		func(depth, declDepth int) bool {
			if depth < 1 || depth > 10 || declDepth < 0 || declDepth >= depth {
				return true
			}

			doc := buildChain(depth, declDepth, "{x:Null}")
			if err := NewResolver().Resolve(doc); err != nil {
				return false
			}

			binding := doc.Bindings[0]
			return binding.Kind == types.KindClassic && binding.Reason == types.ReasonNullScope
		},
		gen.IntRange(1, 10),
		gen.IntRange(0, 9),
	))

	properties.TestingRun(t)
}
