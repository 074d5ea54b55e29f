package codegen

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bindc-dev/bindc/internal/markup"
	"github.com/bindc-dev/bindc/internal/registry"
	"github.com/bindc-dev/bindc/internal/resolve"
	"github.com/bindc-dev/bindc/internal/types"
)

const xmlnsHeader = `xmlns="http://schemas.example.com/ui" xmlns:x="http://schemas.example.com/xaml"`

func testRegistry() *registry.Registry {
	reg := registry.NewRegistry()

	reg.RegisterType(&types.TypeInfo{
		Name:    "Customer",
		Package: "vm",
		Fields: []types.FieldInfo{
			{Name: "Name", Type: "string", Exported: true},
			{Name: "Address", Type: "*Address", Exported: true},
			{Name: "Orders", Type: "[]Order", Exported: true},
		},
	})
	reg.RegisterType(&types.TypeInfo{
		Name:    "Address",
		Package: "vm",
		Fields: []types.FieldInfo{
			{Name: "City", Type: "string", Exported: true},
		},
	})
	reg.RegisterType(&types.TypeInfo{
		Name:    "Order",
		Package: "vm",
		Fields: []types.FieldInfo{
			{Name: "Total", Type: "float64", Exported: true},
		},
	})

	return reg
}

func resolvedDoc(t *testing.T, name, content string) *types.DocumentInfo {
	t.Helper()
	doc, err := markup.NewParser().Parse(name, strings.ToLower(name)+".bxml", []byte(content))
	require.NoError(t, err)
	require.NoError(t, resolve.NewResolver().Resolve(doc))
	return doc
}

func TestGenerateDocument_Getter(t *testing.T) {
	doc := resolvedDoc(t, "Profile", `<Page `+xmlnsHeader+` x:DataType="vm:Customer">
    <Label Text="{Binding Name}"/>
</Page>`)

	gen := NewGenerator(testRegistry(), "bindings", "")
	content, err := gen.GenerateDocument(doc)
	require.NoError(t, err)
	require.NotNil(t, content)

	source := string(content)
	assert.True(t, strings.HasPrefix(source, "// Code generated by bindc. DO NOT EDIT.\n"))
	assert.Contains(t, source, "package bindings\n")
	assert.Contains(t, source, "var ProfileBindings = []Binding{")
	assert.Contains(t, source, `{Target: "Label.Text", Path: "Name", Mode: "", Kind: "compiled"},`)
	assert.Contains(t, source, "func GetProfileLabelText(root *Customer) (string, bool) {")
	assert.NotContains(t, source, "func SetProfileLabelText")
	assert.NotContains(t, source, "import")
}

func TestGenerateDocument_SetterForTwoWay(t *testing.T) {
	doc := resolvedDoc(t, "Profile", `<Page `+xmlnsHeader+` x:DataType="vm:Customer">
    <Entry Text="{Binding Name, Mode=TwoWay}"/>
</Page>`)

	gen := NewGenerator(testRegistry(), "bindings", "")
	content, err := gen.GenerateDocument(doc)
	require.NoError(t, err)

	source := string(content)
	assert.Contains(t, source, "func GetProfileEntryText(root *Customer) (string, bool) {")
	assert.Contains(t, source, "func SetProfileEntryText(root *Customer, value string) bool {")
	assert.Contains(t, source, "root.Name = value")
}

func TestGenerateDocument_PointerNilGuards(t *testing.T) {
	doc := resolvedDoc(t, "Profile", `<Page `+xmlnsHeader+` x:DataType="vm:Customer">
    <Entry Text="{Binding Address.City, Mode=TwoWay}"/>
</Page>`)

	gen := NewGenerator(testRegistry(), "bindings", "")
	content, err := gen.GenerateDocument(doc)
	require.NoError(t, err)

	source := string(content)
	// Getter guards the intermediate pointer before dereferencing.
	assert.Contains(t, source, "v0 := root.Address")
	assert.Contains(t, source, "if v0 == nil {")
	// Setter refuses to write through a nil intermediate.
	assert.Contains(t, source, "v0.City = value")
}

func TestGenerateDocument_QualifiedTypes(t *testing.T) {
	doc := resolvedDoc(t, "Profile", `<Page `+xmlnsHeader+` x:DataType="vm:Customer">
    <Label Text="{Binding Name}"/>
    <ListView Items="{Binding Orders}"/>
</Page>`)

	gen := NewGenerator(testRegistry(), "bindings", "example.com/shop/viewmodels")
	content, err := gen.GenerateDocument(doc)
	require.NoError(t, err)

	source := string(content)
	assert.Contains(t, source, `import viewmodels "example.com/shop/viewmodels"`)
	assert.Contains(t, source, "root *viewmodels.Customer")
	assert.Contains(t, source, "([]viewmodels.Order, bool)")
}

func TestGenerateDocument_NoCompiledBindings(t *testing.T) {
	doc := resolvedDoc(t, "Profile", `<Page `+xmlnsHeader+`>
    <Label Text="{Binding Name}"/>
</Page>`)

	gen := NewGenerator(testRegistry(), "bindings", "")
	content, err := gen.GenerateDocument(doc)
	require.NoError(t, err)
	assert.Nil(t, content)
}

func TestGenerateDocument_ClassicListedWithoutAccessors(t *testing.T) {
	doc := resolvedDoc(t, "Profile", `<Page `+xmlnsHeader+` x:DataType="vm:Customer">
    <Label Text="{Binding Name}"/>
    <Label Text="{Binding Ignored, Source={x:Static local:Cart.Shared}}"/>
</Page>`)

	gen := NewGenerator(testRegistry(), "bindings", "")
	content, err := gen.GenerateDocument(doc)
	require.NoError(t, err)

	source := string(content)
	assert.Contains(t, source, `Path: "Ignored", Mode: "", Kind: "classic"`)
	assert.NotContains(t, source, "Ignored, bool")
}

func TestGenerateDocument_DuplicateTargetsGetNumberedNames(t *testing.T) {
	doc := resolvedDoc(t, "Profile", `<Page `+xmlnsHeader+` x:DataType="vm:Customer">
    <Label Text="{Binding Name}"/>
    <Label Text="{Binding Address.City}"/>
</Page>`)

	gen := NewGenerator(testRegistry(), "bindings", "")
	content, err := gen.GenerateDocument(doc)
	require.NoError(t, err)

	source := string(content)
	assert.Contains(t, source, "func GetProfileLabelText(")
	assert.Contains(t, source, "func GetProfileLabelText2(")
}

func TestGenerateDocument_UnknownScopeType(t *testing.T) {
	doc := resolvedDoc(t, "Profile", `<Page `+xmlnsHeader+` x:DataType="vm:Missing">
    <Label Text="{Binding Name}"/>
</Page>`)

	gen := NewGenerator(testRegistry(), "bindings", "")
	_, err := gen.GenerateDocument(doc)
	assert.Error(t, err)
}

func TestWriteDocument(t *testing.T) {
	doc := resolvedDoc(t, "Profile", `<Page `+xmlnsHeader+` x:DataType="vm:Customer">
    <Label Text="{Binding Name}"/>
</Page>`)

	outDir := filepath.Join(t.TempDir(), "bindings")
	gen := NewGenerator(testRegistry(), "bindings", "")

	outPath, err := gen.WriteDocument(doc, outDir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(outDir, "profile_bindings.go"), outPath)

	written, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(written), "GetProfileLabelText")
}

func TestWriteDocument_SkipsEmptyDocuments(t *testing.T) {
	doc := resolvedDoc(t, "Plain", `<Page `+xmlnsHeader+`>
    <Label Text="Static"/>
</Page>`)

	outDir := t.TempDir()
	gen := NewGenerator(testRegistry(), "bindings", "")

	outPath, err := gen.WriteDocument(doc, outDir)
	require.NoError(t, err)
	assert.Empty(t, outPath)
}

func TestWriteSupport(t *testing.T) {
	outDir := t.TempDir()
	gen := NewGenerator(testRegistry(), "bindings", "")

	outPath, err := gen.WriteSupport(outDir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(outDir, "binding.go"), outPath)

	written, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(written), "type Binding struct {")
}
