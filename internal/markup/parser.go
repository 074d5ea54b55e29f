// Package markup parses .bxml UI markup documents into an element tree and
// extracts the binding expressions and scope type declarations that the
// resolver and validator operate on.
//
// Documents are parsed with the encoding/xml token decoder so that every
// element and binding keeps its source line for error reporting. Binding
// expressions appear either in attribute form ({Binding Path, Mode=TwoWay})
// or in element form (<Label.Text><Binding Path="Name"/></Label.Text>), and
// aggregate bindings use the <MultiBinding> container element or the
// {MultiBinding ...} extension.
package markup

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bindc-dev/bindc/internal/errors"
	"github.com/bindc-dev/bindc/internal/types"
)

// DataTypeAttr is the attribute that declares a scope's binding context type.
const DataTypeAttr = "DataType"

// Parser parses markup documents.
type Parser struct{}

// NewParser creates a markup parser.
func NewParser() *Parser {
	return &Parser{}
}

// ParseFile reads and parses a single markup document from disk.
func (p *Parser) ParseFile(path string) (*types.DocumentInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileNotFound, "reading document", err).
			WithLocation(path, 0, 0)
	}

	info, statErr := os.Stat(path)
	modTime := time.Now()
	if statErr == nil {
		modTime = info.ModTime()
	}

	doc, err := p.Parse(documentName(path), path, data)
	if err != nil {
		return nil, err
	}

	doc.LastMod = modTime
	doc.Hash = fmt.Sprintf("%x", crc32.ChecksumIEEE(data))
	return doc, nil
}

// Parse parses document content into an element tree and extracts its
// binding expressions. The returned document still needs scope resolution.
func (p *Parser) Parse(name, path string, data []byte) (*types.DocumentInfo, error) {
	lines := newLineIndex(data)
	decoder := xml.NewDecoder(bytes.NewReader(data))

	doc := &types.DocumentInfo{
		Name:     name,
		FilePath: path,
	}

	var stack []*types.Element

	for {
		offset := decoder.InputOffset()
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.NewMarkupError(errors.ErrCodeMarkupSyntax, "malformed markup", err).
				WithLocation(path, lines.lineAt(offset), 0).
				WithDocument(name)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			el := &types.Element{
				Name: t.Name.Local,
				Line: lines.lineAt(offset),
			}
			if el.Name == extMultiBinding {
				el.MultiSource = true
			}

			for _, attr := range t.Attr {
				if attr.Name.Space == "xmlns" || attr.Name.Local == "xmlns" {
					continue
				}
				attrName := attr.Name.Local
				if attr.Name.Space != "" {
					attrName = prefixFor(attr.Name.Space) + ":" + attrName
				}
				el.Attributes = append(el.Attributes, types.Attribute{
					Name:  attrName,
					Value: attr.Value,
					Line:  el.Line,
				})

				if attr.Name.Local == DataTypeAttr && attr.Name.Space != "" {
					el.DataType = attr.Value
					el.HasDataType = true
				}
			}

			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				el.Parent = parent
				parent.Children = append(parent.Children, el)
			} else if doc.Root == nil {
				doc.Root = el
			} else {
				return nil, errors.NewMarkupError(
					errors.ErrCodeMarkupSyntax,
					"multiple root elements",
					nil,
				).WithLocation(path, el.Line, 0).WithDocument(name)
			}

			stack = append(stack, el)

		case xml.EndElement:
			if len(stack) == 0 {
				return nil, errors.NewMarkupError(
					errors.ErrCodeMarkupSyntax,
					"unexpected closing tag: "+t.Name.Local,
					nil,
				).WithLocation(path, lines.lineAt(offset), 0).WithDocument(name)
			}
			stack = stack[:len(stack)-1]
		}
	}

	if len(stack) != 0 {
		return nil, errors.NewMarkupError(
			errors.ErrCodeMarkupSyntax,
			"unclosed element: "+stack[len(stack)-1].Name,
			nil,
		).WithLocation(path, stack[len(stack)-1].Line, 0).WithDocument(name)
	}
	if doc.Root == nil {
		return nil, errors.NewMarkupError(errors.ErrCodeMarkupSyntax, "empty document", nil).
			WithLocation(path, 0, 0).
			WithDocument(name)
	}

	bindings, err := p.extractBindings(doc)
	if err != nil {
		return nil, err
	}
	doc.Bindings = bindings

	return doc, nil
}

// extractBindings walks the element tree collecting attribute-form and
// element-form binding expressions.
func (p *Parser) extractBindings(doc *types.DocumentInfo) ([]*types.BindingInfo, error) {
	var bindings []*types.BindingInfo

	var walk func(el *types.Element) error
	walk = func(el *types.Element) error {
		if el.Name == extBinding {
			binding, err := p.elementBinding(doc, el)
			if err != nil {
				return err
			}
			bindings = append(bindings, binding)
		}

		for _, attr := range el.Attributes {
			if !IsBindingExtension(attr.Value) {
				continue
			}

			expr, err := ParseExpression(attr.Value)
			if err != nil {
				if be, ok := err.(*errors.BindError); ok {
					return be.WithLocation(doc.FilePath, attr.Line, 0).WithDocument(doc.Name)
				}
				return err
			}

			bindings = append(bindings, &types.BindingInfo{
				Document:       doc.Name,
				FilePath:       doc.FilePath,
				Element:        el.Name,
				TargetProperty: attr.Name,
				Path:           expr.Path,
				Mode:           expr.Mode,
				HasSource:      expr.HasSource,
				MultiSource:    expr.MultiSource,
				Converter:      expr.Converter,
				Line:           attr.Line,
				Owner:          el,
			})
		}

		for _, child := range el.Children {
			if err := walk(child); err != nil {
				return err
			}
		}
		return nil
	}

	if err := walk(doc.Root); err != nil {
		return nil, err
	}

	sort.SliceStable(bindings, func(i, j int) bool {
		return bindings[i].Line < bindings[j].Line
	})

	return bindings, nil
}

// elementBinding builds a BindingInfo for an element-form <Binding .../>.
func (p *Parser) elementBinding(doc *types.DocumentInfo, el *types.Element) (*types.BindingInfo, error) {
	binding := &types.BindingInfo{
		Document:       doc.Name,
		FilePath:       doc.FilePath,
		Element:        hostElementName(el),
		TargetProperty: targetPropertyFor(el),
		Line:           el.Line,
		Owner:          el,
		MultiSource:    insideMultiBinding(el),
	}

	for _, attr := range el.Attributes {
		switch attr.Name {
		case "Path":
			binding.Path = attr.Value
		case "Mode":
			mode, ok := parseMode(attr.Value)
			if !ok {
				return nil, errors.NewBindingError(
					errors.ErrCodeExpressionSyntax,
					"unknown binding mode: "+attr.Value,
				).WithLocation(doc.FilePath, attr.Line, 0).WithDocument(doc.Name)
			}
			binding.Mode = mode
		case "Source":
			binding.HasSource = true
		case "Converter":
			binding.Converter = attr.Value
		}
	}

	return binding, nil
}

// targetPropertyFor derives the bound property for an element-form binding
// from the nearest property element ("Label.Text" -> "Text").
func targetPropertyFor(el *types.Element) string {
	for p := el.Parent; p != nil; p = p.Parent {
		if idx := strings.LastIndex(p.Name, "."); idx >= 0 {
			return p.Name[idx+1:]
		}
		if p.Name != extMultiBinding {
			break
		}
	}
	return ""
}

// hostElementName finds the owning control for an element-form binding.
func hostElementName(el *types.Element) string {
	for p := el.Parent; p != nil; p = p.Parent {
		if p.Name == extMultiBinding {
			continue
		}
		if idx := strings.LastIndex(p.Name, "."); idx >= 0 {
			return p.Name[:idx]
		}
		return p.Name
	}
	return ""
}

func insideMultiBinding(el *types.Element) bool {
	for p := el.Parent; p != nil; p = p.Parent {
		if p.MultiSource {
			return true
		}
	}
	return false
}

// documentName derives the document identifier from its file name.
func documentName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// prefixFor maps a resolved namespace URI back to a short display prefix.
func prefixFor(space string) string {
	if strings.Contains(space, "xaml") || space == "x" {
		return "x"
	}
	if idx := strings.LastIndexAny(space, "/:"); idx >= 0 && idx+1 < len(space) {
		return space[idx+1:]
	}
	return space
}

// lineIndex maps byte offsets to 1-based line numbers.
type lineIndex struct {
	starts []int64
}

func newLineIndex(data []byte) *lineIndex {
	idx := &lineIndex{starts: []int64{0}}
	for i, b := range data {
		if b == '\n' {
			idx.starts = append(idx.starts, int64(i+1))
		}
	}
	return idx
}

func (li *lineIndex) lineAt(offset int64) int {
	lo, hi := 0, len(li.starts)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if li.starts[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo + 1
}
