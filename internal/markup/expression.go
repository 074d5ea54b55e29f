package markup

import (
	"strings"

	"github.com/bindc-dev/bindc/internal/errors"
	"github.com/bindc-dev/bindc/internal/types"
)

// Markup-extension keywords recognized in attribute values.
const (
	extBinding      = "Binding"
	extMultiBinding = "MultiBinding"
	extTypeRef      = "x:Type"
	extNull         = "x:Null"
)

// Expression is a parsed binding markup extension.
type Expression struct {
	// Path is the dot-separated property path, empty for a self binding
	Path string
	// Mode is the declared binding mode
	Mode types.BindingMode
	// HasSource is true when the expression carries an explicit Source=
	HasSource bool
	// MultiSource is true for {MultiBinding ...} expressions
	MultiSource bool
	// Converter names a declared value converter
	Converter string
	// StringFormat carries a declared format string
	StringFormat string
}

// IsExtension reports whether an attribute value is a markup extension.
// Escaped literals ("{}...") are not extensions.
func IsExtension(value string) bool {
	if strings.HasPrefix(value, "{}") {
		return false
	}
	return strings.HasPrefix(value, "{") && strings.HasSuffix(value, "}")
}

// IsBindingExtension reports whether an attribute value is a binding
// expression (single or multi source).
func IsBindingExtension(value string) bool {
	if !IsExtension(value) {
		return false
	}
	body := strings.TrimSpace(value[1 : len(value)-1])
	return hasKeyword(body, extBinding) || hasKeyword(body, extMultiBinding)
}

// hasKeyword reports whether an extension body starts with the keyword as a
// whole word: followed by whitespace, a comma, or the end of the body.
func hasKeyword(body, keyword string) bool {
	if !strings.HasPrefix(body, keyword) {
		return false
	}
	if len(body) == len(keyword) {
		return true
	}
	switch body[len(keyword)] {
	case ' ', '\t', ',':
		return true
	}
	return false
}

// ParseExpression parses a binding markup extension such as
//
//	{Binding Customer.Name, Mode=TwoWay}
//	{Binding Total, Source={x:Static local:Cart.Shared}}
//	{MultiBinding Converter=SumConverter}
//
// The first positional argument is the path; remaining arguments are
// Key=Value pairs. Nested braces inside values are kept intact.
func ParseExpression(value string) (*Expression, error) {
	if !IsExtension(value) {
		return nil, errors.NewBindingError(
			errors.ErrCodeExpressionSyntax,
			"not a markup extension: "+value,
		)
	}

	body := strings.TrimSpace(value[1 : len(value)-1])

	expr := &Expression{}
	switch {
	case hasKeyword(body, extMultiBinding):
		expr.MultiSource = true
		body = strings.TrimSpace(strings.TrimPrefix(body, extMultiBinding))
	case hasKeyword(body, extBinding):
		body = strings.TrimSpace(strings.TrimPrefix(body, extBinding))
	default:
		return nil, errors.NewBindingError(
			errors.ErrCodeExpressionSyntax,
			"unsupported markup extension: "+value,
		)
	}

	if body == "" {
		return expr, nil
	}

	args, err := splitArguments(body)
	if err != nil {
		return nil, err
	}

	for i, arg := range args {
		key, val, isPair := cutPair(arg)

		if !isPair {
			// Only the first argument may be positional, and it is the path.
			if i != 0 {
				return nil, errors.NewBindingError(
					errors.ErrCodeExpressionSyntax,
					"unexpected positional argument: "+arg,
				)
			}
			expr.Path = arg
			continue
		}

		switch key {
		case "Path":
			expr.Path = val
		case "Mode":
			mode, ok := parseMode(val)
			if !ok {
				return nil, errors.NewBindingError(
					errors.ErrCodeExpressionSyntax,
					"unknown binding mode: "+val,
				)
			}
			expr.Mode = mode
		case "Source":
			expr.HasSource = true
		case "Converter":
			expr.Converter = val
		case "StringFormat":
			expr.StringFormat = strings.Trim(val, "'")
		default:
			// Unrecognized arguments (ElementName, FallbackValue, ...) do not
			// affect compile-time classification.
		}
	}

	return expr, nil
}

// ScopeDecl is a parsed x:DataType attribute value.
type ScopeDecl struct {
	// TypeName is the declared type, normalized to dot-qualified form
	TypeName string
	// Null is true for an explicit {x:Null} declaration
	Null bool
}

// ParseScopeDecl parses an x:DataType attribute value in one of its three
// permitted forms: a literal type name, an {x:Type ...} reference, or an
// explicit {x:Null}.
func ParseScopeDecl(value string) (*ScopeDecl, error) {
	trimmed := strings.TrimSpace(value)

	if !IsExtension(trimmed) {
		if trimmed == "" {
			return nil, errors.NewBindingError(
				errors.ErrCodeExpressionSyntax,
				"empty x:DataType declaration",
			)
		}
		return &ScopeDecl{TypeName: normalizeTypeName(trimmed)}, nil
	}

	body := strings.TrimSpace(trimmed[1 : len(trimmed)-1])

	if body == extNull {
		return &ScopeDecl{Null: true}, nil
	}

	if hasKeyword(body, extTypeRef) {
		name := strings.TrimSpace(strings.TrimPrefix(body, extTypeRef))
		name = strings.TrimPrefix(name, "TypeName=")
		if name == "" {
			return nil, errors.NewBindingError(
				errors.ErrCodeExpressionSyntax,
				"x:Type reference without a type name",
			)
		}
		return &ScopeDecl{TypeName: normalizeTypeName(name)}, nil
	}

	return nil, errors.NewBindingError(
		errors.ErrCodeExpressionSyntax,
		"unsupported x:DataType form: "+value,
	)
}

// parseMode maps a Mode= value to a BindingMode.
func parseMode(val string) (types.BindingMode, bool) {
	switch val {
	case "OneWay":
		return types.ModeOneWay, true
	case "TwoWay":
		return types.ModeTwoWay, true
	case "OneTime":
		return types.ModeOneTime, true
	case "OneWayToSource":
		return types.ModeOneWayToSource, true
	case "Default":
		return types.ModeDefault, true
	default:
		return types.ModeDefault, false
	}
}

// splitArguments splits the body of a markup extension on commas, keeping
// nested {...} groups and quoted strings intact.
func splitArguments(body string) ([]string, error) {
	var args []string
	depth := 0
	quoted := false
	start := 0

	for i := 0; i < len(body); i++ {
		switch body[i] {
		case '\'':
			quoted = !quoted
		case '{':
			if !quoted {
				depth++
			}
		case '}':
			if !quoted {
				depth--
				if depth < 0 {
					return nil, errors.NewBindingError(
						errors.ErrCodeExpressionSyntax,
						"unbalanced braces in expression: "+body,
					)
				}
			}
		case ',':
			if depth == 0 && !quoted {
				args = append(args, strings.TrimSpace(body[start:i]))
				start = i + 1
			}
		}
	}

	if depth != 0 || quoted {
		return nil, errors.NewBindingError(
			errors.ErrCodeExpressionSyntax,
			"unterminated expression: "+body,
		)
	}

	args = append(args, strings.TrimSpace(body[start:]))
	return args, nil
}

// cutPair splits "Key=Value" at the first top-level '='.
func cutPair(arg string) (key, val string, ok bool) {
	depth := 0
	for i := 0; i < len(arg); i++ {
		switch arg[i] {
		case '{':
			depth++
		case '}':
			depth--
		case '=':
			if depth == 0 {
				return strings.TrimSpace(arg[:i]), strings.TrimSpace(arg[i+1:]), true
			}
		}
	}
	return "", "", false
}

// normalizeTypeName converts namespace-prefixed names (vm:Customer) to the
// dot-qualified form used by the type table.
func normalizeTypeName(name string) string {
	return strings.ReplaceAll(strings.TrimSpace(name), ":", ".")
}
