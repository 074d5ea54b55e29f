// Package codegen emits Go accessor source for compiled bindings.
//
// For every document with at least one compiled binding the generator writes
// one file containing a typed getter per binding (and a setter for writable
// modes), plus a table describing the document's bindings. Classic bindings
// are listed in the table but get no accessors; they stay on the runtime
// path.
package codegen

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/bindc-dev/bindc/internal/errors"
	"github.com/bindc-dev/bindc/internal/registry"
	"github.com/bindc-dev/bindc/internal/typeres"
	"github.com/bindc-dev/bindc/internal/types"
)

const generatedHeader = "// Code generated by bindc. DO NOT EDIT.\n\n"

// Generator writes accessor source files for compiled bindings.
type Generator struct {
	registry *registry.Registry
	// pkg is the package name of generated files
	pkg string
	// typesImport is the import path of the view-model package; empty when
	// generating into the view-model package itself
	typesImport string
	// qualifier is the package qualifier derived from typesImport
	qualifier string
	caser     cases.Caser
}

// NewGenerator creates a generator emitting into the named package. When
// typesImport is non-empty, generated files import the view-model package
// and qualify type references with its package name.
func NewGenerator(reg *registry.Registry, pkg, typesImport string) *Generator {
	g := &Generator{
		registry:    reg,
		pkg:         pkg,
		typesImport: typesImport,
		caser:       cases.Title(language.English, cases.NoLower),
	}
	if typesImport != "" {
		g.qualifier = filepath.Base(typesImport)
	}
	return g
}

// GenerateDocument renders the accessor source for one resolved, validated
// document. Documents without compiled bindings produce no output and return
// nil content.
func (g *Generator) GenerateDocument(doc *types.DocumentInfo) ([]byte, error) {
	compiled := compiledBindings(doc)
	if len(compiled) == 0 {
		return nil, nil
	}

	var buf bytes.Buffer
	buf.WriteString(generatedHeader)
	fmt.Fprintf(&buf, "package %s\n\n", g.pkg)

	if g.typesImport != "" {
		fmt.Fprintf(&buf, "import %s %q\n\n", g.qualifier, g.typesImport)
	}

	fmt.Fprintf(&buf, "// %sBindings describes the bindings of document %s.\n",
		g.identifier(doc.Name), doc.Name)
	fmt.Fprintf(&buf, "var %sBindings = []Binding{\n", g.identifier(doc.Name))
	for _, binding := range doc.Bindings {
		fmt.Fprintf(&buf, "\t{Target: %q, Path: %q, Mode: %q, Kind: %q},\n",
			binding.Element+"."+binding.TargetProperty,
			binding.Path,
			binding.Mode,
			binding.Kind,
		)
	}
	buf.WriteString("}\n")

	names := make(map[string]int)
	for _, binding := range compiled {
		if err := g.writeAccessors(&buf, doc, binding, names); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

// WriteDocument generates and writes the accessor file for a document into
// outDir. The returned path is empty when the document needed no output.
func (g *Generator) WriteDocument(doc *types.DocumentInfo, outDir string) (string, error) {
	content, err := g.GenerateDocument(doc)
	if err != nil {
		return "", err
	}
	if content == nil {
		return "", nil
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return "", errors.NewIOError(errors.ErrCodeCodegenFailed, "creating output directory", err)
	}

	outPath := g.OutputPath(doc, outDir)
	if err := os.WriteFile(outPath, content, 0644); err != nil {
		return "", errors.NewIOError(errors.ErrCodeCodegenFailed, "writing "+outPath, err)
	}

	return outPath, nil
}

// OutputPath returns the file a document's accessors are written to.
func (g *Generator) OutputPath(doc *types.DocumentInfo, outDir string) string {
	return filepath.Join(outDir, strings.ToLower(doc.Name)+"_bindings.go")
}

// WriteSupport writes the shared Binding table type into outDir. It is
// emitted once per output package.
func (g *Generator) WriteSupport(outDir string) (string, error) {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return "", errors.NewIOError(errors.ErrCodeCodegenFailed, "creating output directory", err)
	}

	var buf bytes.Buffer
	buf.WriteString(generatedHeader)
	fmt.Fprintf(&buf, "package %s\n\n", g.pkg)
	buf.WriteString(`// Binding describes one binding expression of a document.
type Binding struct {
	// Target is the bound control property ("Label.Text")
	Target string
	// Path is the source property path
	Path string
	// Mode is the declared binding mode
	Mode string
	// Kind is "compiled" or "classic"
	Kind string
}
`)

	outPath := filepath.Join(outDir, "binding.go")
	if err := os.WriteFile(outPath, buf.Bytes(), 0644); err != nil {
		return "", errors.NewIOError(errors.ErrCodeCodegenFailed, "writing "+outPath, err)
	}

	return outPath, nil
}

// writeAccessors emits the getter (and setter, for writable modes) of one
// compiled binding.
func (g *Generator) writeAccessors(buf *bytes.Buffer, doc *types.DocumentInfo, binding *types.BindingInfo, names map[string]int) error {
	scope, ok := g.registry.LookupType(binding.ScopeType)
	if !ok {
		return errors.ErrUnknownType(binding.ScopeType).
			WithLocation(doc.FilePath, binding.Line, 0).
			WithDocument(doc.Name)
	}

	base := g.accessorName(doc, binding, names)
	rootType := "*" + g.qualify(scope.Name)

	steps, terminalType, err := g.pathSteps(scope, binding.Path)
	if err != nil {
		return err.WithLocation(doc.FilePath, binding.Line, 0).WithDocument(doc.Name)
	}

	// Getter
	fmt.Fprintf(buf, "\n// Get%s reads %s for %s.%s.\n",
		base, displayPath(binding.Path), binding.Element, binding.TargetProperty)
	fmt.Fprintf(buf, "func Get%s(root %s) (%s, bool) {\n", base, rootType, terminalType)
	fmt.Fprintf(buf, "\tvar zero %s\n", terminalType)
	buf.WriteString("\tif root == nil {\n\t\treturn zero, false\n\t}\n")

	prev := "root"
	for i, step := range steps {
		cur := fmt.Sprintf("v%d", i)
		fmt.Fprintf(buf, "\t%s := %s.%s\n", cur, prev, step.name)
		if step.pointer && i < len(steps)-1 {
			fmt.Fprintf(buf, "\tif %s == nil {\n\t\treturn zero, false\n\t}\n", cur)
		}
		prev = cur
	}
	if len(steps) == 0 {
		buf.WriteString("\treturn *root, true\n")
	} else {
		fmt.Fprintf(buf, "\treturn %s, true\n", prev)
	}
	buf.WriteString("}\n")

	if binding.Mode != types.ModeTwoWay && binding.Mode != types.ModeOneWayToSource {
		return nil
	}
	if len(steps) == 0 {
		// Writable self bindings are rejected during validation.
		return nil
	}

	// Setter
	fmt.Fprintf(buf, "\n// Set%s writes %s for %s.%s.\n",
		base, displayPath(binding.Path), binding.Element, binding.TargetProperty)
	fmt.Fprintf(buf, "func Set%s(root %s, value %s) bool {\n", base, rootType, terminalType)
	buf.WriteString("\tif root == nil {\n\t\treturn false\n\t}\n")

	prev = "root"
	for i, step := range steps[:len(steps)-1] {
		cur := fmt.Sprintf("v%d", i)
		if step.pointer {
			fmt.Fprintf(buf, "\t%s := %s.%s\n", cur, prev, step.name)
			fmt.Fprintf(buf, "\tif %s == nil {\n\t\treturn false\n\t}\n", cur)
		} else {
			// Take the address of value members so the write reaches root.
			fmt.Fprintf(buf, "\t%s := &%s.%s\n", cur, prev, step.name)
		}
		prev = cur
	}
	fmt.Fprintf(buf, "\t%s.%s = value\n", prev, steps[len(steps)-1].name)
	buf.WriteString("\treturn true\n}\n")

	return nil
}

// pathStep is one navigation hop of a compiled path.
type pathStep struct {
	name    string
	pointer bool
}

// pathSteps resolves a validated path against the type table, returning the
// navigation steps and the qualified terminal Go type.
func (g *Generator) pathSteps(scope *types.TypeInfo, path string) ([]pathStep, string, *errors.BindError) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" || trimmed == "." {
		return nil, g.qualify(scope.Name), nil
	}

	var steps []pathStep
	current := scope
	parts := strings.Split(trimmed, ".")

	for i, part := range parts {
		if current == nil {
			return nil, "", errors.NewInternalError(
				errors.ErrCodeCodegenFailed,
				"unvalidated path reached the generator: "+path,
				nil,
			)
		}

		var field *types.FieldInfo
		for j := range current.Fields {
			if current.Fields[j].Name == part {
				field = &current.Fields[j]
				break
			}
		}
		if field == nil {
			return nil, "", errors.ErrUnknownMember(current.Name, part)
		}

		steps = append(steps, pathStep{
			name:    part,
			pointer: strings.HasPrefix(field.Type, "*"),
		})

		if i == len(parts)-1 {
			return steps, g.qualifyFieldType(field.Type), nil
		}

		next, _ := g.registry.LookupType(typeres.ElementType(field.Type))
		current = next
	}

	return steps, "", nil
}

// qualify prefixes a known view-model type with the import qualifier.
func (g *Generator) qualify(typeName string) string {
	if g.qualifier == "" {
		return typeName
	}
	if strings.Contains(typeName, ".") {
		return typeName
	}
	return g.qualifier + "." + typeName
}

// qualifyFieldType qualifies the named component of a field type expression,
// leaving builtins untouched.
func (g *Generator) qualifyFieldType(fieldType string) string {
	prefix := ""
	rest := fieldType
	for {
		switch {
		case strings.HasPrefix(rest, "*"):
			prefix += "*"
			rest = rest[1:]
		case strings.HasPrefix(rest, "[]"):
			prefix += "[]"
			rest = rest[2:]
		default:
			if _, known := g.registry.LookupType(rest); known {
				return prefix + g.qualify(rest)
			}
			return prefix + rest
		}
	}
}

// accessorName derives a unique CamelCase accessor base name for a binding.
func (g *Generator) accessorName(doc *types.DocumentInfo, binding *types.BindingInfo, names map[string]int) string {
	base := g.identifier(doc.Name) + g.identifier(binding.Element) + g.identifier(binding.TargetProperty)

	count := names[base]
	names[base] = count + 1
	if count > 0 {
		base = fmt.Sprintf("%s%d", base, count+1)
	}
	return base
}

// identifier converts an arbitrary markup name into a Go identifier segment.
func (g *Generator) identifier(name string) string {
	var b strings.Builder
	for _, part := range strings.FieldsFunc(name, func(r rune) bool {
		return r == '.' || r == '-' || r == '_' || r == ' ' || r == ':'
	}) {
		b.WriteString(g.caser.String(part))
	}
	return b.String()
}

func compiledBindings(doc *types.DocumentInfo) []*types.BindingInfo {
	var compiled []*types.BindingInfo
	for _, binding := range doc.Bindings {
		if binding.Kind == types.KindCompiled {
			compiled = append(compiled, binding)
		}
	}
	return compiled
}

func displayPath(path string) string {
	if strings.TrimSpace(path) == "" || strings.TrimSpace(path) == "." {
		return "the binding context"
	}
	return path
}
