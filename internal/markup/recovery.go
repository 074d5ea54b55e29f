package markup

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
)

// RecoveryReport summarizes what a lenient parse could still extract from a
// document that failed strict XML parsing.
type RecoveryReport struct {
	// Elements is the number of elements the lenient parser recovered
	Elements int
	// BindingExpressions counts attribute values that look like bindings
	BindingExpressions int
	// ScopeDeclarations counts recovered x:DataType attributes
	ScopeDeclarations int
	// SampleBindings holds up to five recovered binding expressions
	SampleBindings []string
}

// RecoverParse runs the tolerant html tokenizer over markup that is not
// well-formed XML. It never fails; the report is best-effort and used only
// for diagnostics, never for compilation.
func RecoverParse(data []byte) *RecoveryReport {
	report := &RecoveryReport{}

	tokenizer := html.NewTokenizer(bytes.NewReader(data))
	for {
		tt := tokenizer.Next()
		if tt == html.ErrorToken {
			return report
		}

		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}

		report.Elements++

		token := tokenizer.Token()
		for _, attr := range token.Attr {
			if strings.EqualFold(attr.Key, "x:datatype") {
				report.ScopeDeclarations++
			}
			if IsBindingExtension(attr.Val) {
				report.BindingExpressions++
				if len(report.SampleBindings) < 5 {
					report.SampleBindings = append(report.SampleBindings, attr.Val)
				}
			}
		}
	}
}
