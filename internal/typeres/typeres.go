// Package typeres extracts view-model types from Go source using the go/ast
// parser. The resulting type table is what compiled binding paths are
// validated against.
package typeres

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"hash/crc32"
	"os"
	"strings"
	"time"

	"github.com/bindc-dev/bindc/internal/registry"
	"github.com/bindc-dev/bindc/internal/types"
)

// TypeScanner discovers struct types in Go source files and registers them
// in the shared registry's type table.
type TypeScanner struct {
	registry *registry.Registry
	fileSet  *token.FileSet
}

// NewTypeScanner creates a type scanner backed by the given registry.
func NewTypeScanner(reg *registry.Registry) *TypeScanner {
	return &TypeScanner{
		registry: reg,
		fileSet:  token.NewFileSet(),
	}
}

// ScanFile parses one Go source file and registers every exported struct
// type it declares.
func (s *TypeScanner) ScanFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	info, statErr := os.Stat(path)
	modTime := time.Now()
	if statErr == nil {
		modTime = info.ModTime()
	}

	astFile, err := parser.ParseFile(s.fileSet, path, data, parser.ParseComments)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	hash := fmt.Sprintf("%x", crc32.ChecksumIEEE(data))

	for _, t := range extractStructs(astFile, path, hash, modTime) {
		s.registry.RegisterType(t)
	}

	return nil
}

// extractStructs walks the AST collecting exported struct declarations.
func extractStructs(astFile *ast.File, path, hash string, modTime time.Time) []*types.TypeInfo {
	var result []*types.TypeInfo

	ast.Inspect(astFile, func(n ast.Node) bool {
		spec, ok := n.(*ast.TypeSpec)
		if !ok || spec.Name == nil || !spec.Name.IsExported() {
			return true
		}

		structType, ok := spec.Type.(*ast.StructType)
		if !ok {
			return true
		}

		result = append(result, &types.TypeInfo{
			Name:     spec.Name.Name,
			Package:  astFile.Name.Name,
			FilePath: path,
			Fields:   extractFields(structType),
			LastMod:  modTime,
			Hash:     hash,
		})

		return true
	})

	return result
}

func extractFields(structType *ast.StructType) []types.FieldInfo {
	var fields []types.FieldInfo

	if structType.Fields == nil {
		return fields
	}

	for _, field := range structType.Fields.List {
		fieldType := typeToString(field.Type)

		if len(field.Names) == 0 {
			// Embedded field: usable as a path step under the embedded
			// type's own name.
			name := baseTypeName(field.Type)
			if name == "" {
				continue
			}
			fields = append(fields, types.FieldInfo{
				Name:     name,
				Type:     fieldType,
				Exported: ast.IsExported(name),
			})
			continue
		}

		for _, name := range field.Names {
			fields = append(fields, types.FieldInfo{
				Name:     name.Name,
				Type:     fieldType,
				Exported: name.IsExported(),
			})
		}
	}

	return fields
}

func typeToString(expr ast.Expr) string {
	switch e := expr.(type) {
	case *ast.Ident:
		return e.Name
	case *ast.SelectorExpr:
		return typeToString(e.X) + "." + e.Sel.Name
	case *ast.StarExpr:
		return "*" + typeToString(e.X)
	case *ast.ArrayType:
		return "[]" + typeToString(e.Elt)
	case *ast.MapType:
		return "map[" + typeToString(e.Key) + "]" + typeToString(e.Value)
	default:
		return "unknown"
	}
}

// baseTypeName strips pointers and qualifiers from a type expression,
// returning the terminal identifier.
func baseTypeName(expr ast.Expr) string {
	switch e := expr.(type) {
	case *ast.Ident:
		return e.Name
	case *ast.StarExpr:
		return baseTypeName(e.X)
	case *ast.SelectorExpr:
		return e.Sel.Name
	default:
		return ""
	}
}

// ElementType reduces a declared field type to the type name used for the
// next path step: pointers and slices are unwrapped, package qualifiers are
// dropped.
func ElementType(fieldType string) string {
	for {
		switch {
		case len(fieldType) > 0 && fieldType[0] == '*':
			fieldType = fieldType[1:]
		case len(fieldType) > 1 && fieldType[:2] == "[]":
			fieldType = fieldType[2:]
		default:
			if idx := strings.LastIndexByte(fieldType, '.'); idx >= 0 {
				fieldType = fieldType[idx+1:]
			}
			return fieldType
		}
	}
}
