package typeres

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bindc-dev/bindc/internal/registry"
)

func scanSource(t *testing.T, source string) *registry.Registry {
	t.Helper()

	path := filepath.Join(t.TempDir(), "viewmodels.go")
	require.NoError(t, os.WriteFile(path, []byte(source), 0644))

	reg := registry.NewRegistry()
	scanner := NewTypeScanner(reg)
	require.NoError(t, scanner.ScanFile(path))
	return reg
}

func TestScanFile_ExportedStructs(t *testing.T) {
	reg := scanSource(t, `package vm

type Customer struct {
	Name    string
	Email   string
	Address *Address
}

type Address struct {
	City string
	Zip  string
}

type internalState struct {
	dirty bool
}
`)

	customer, ok := reg.LookupType("Customer")
	require.True(t, ok)
	assert.Equal(t, "vm", customer.Package)
	assert.NotEmpty(t, customer.Hash)
	require.Len(t, customer.Fields, 3)
	assert.Equal(t, "Name", customer.Fields[0].Name)
	assert.Equal(t, "string", customer.Fields[0].Type)
	assert.True(t, customer.Fields[0].Exported)
	assert.Equal(t, "*Address", customer.Fields[2].Type)

	_, ok = reg.LookupType("Address")
	assert.True(t, ok)

	// Unexported types are not registered.
	_, ok = reg.LookupType("internalState")
	assert.False(t, ok)
}

func TestScanFile_FieldVariety(t *testing.T) {
	reg := scanSource(t, `package vm

import "time"

type Order struct {
	ID      int
	Items   []Item
	Meta    map[string]string
	Created time.Time
	hidden  bool
}

type Item struct {
	SKU string
}
`)

	order, ok := reg.LookupType("Order")
	require.True(t, ok)
	require.Len(t, order.Fields, 5)

	byName := make(map[string]string)
	for _, f := range order.Fields {
		byName[f.Name] = f.Type
	}
	assert.Equal(t, "int", byName["ID"])
	assert.Equal(t, "[]Item", byName["Items"])
	assert.Equal(t, "map[string]string", byName["Meta"])
	assert.Equal(t, "time.Time", byName["Created"])

	for _, f := range order.Fields {
		if f.Name == "hidden" {
			assert.False(t, f.Exported)
		}
	}
}

func TestScanFile_EmbeddedField(t *testing.T) {
	reg := scanSource(t, `package vm

type Base struct {
	ID int
}

type Derived struct {
	Base
	Name string
}
`)

	derived, ok := reg.LookupType("Derived")
	require.True(t, ok)
	require.Len(t, derived.Fields, 2)
	assert.Equal(t, "Base", derived.Fields[0].Name)
	assert.Equal(t, "Base", derived.Fields[0].Type)
	assert.True(t, derived.Fields[0].Exported)
}

func TestScanFile_NonStructTypesIgnored(t *testing.T) {
	reg := scanSource(t, `package vm

type Status int

type Handler func() error

type Customer struct {
	Name string
}
`)

	_, ok := reg.LookupType("Status")
	assert.False(t, ok)
	_, ok = reg.LookupType("Handler")
	assert.False(t, ok)
	_, ok = reg.LookupType("Customer")
	assert.True(t, ok)
}

func TestScanFile_Errors(t *testing.T) {
	reg := registry.NewRegistry()
	scanner := NewTypeScanner(reg)

	assert.Error(t, scanner.ScanFile("does/not/exist.go"))

	path := filepath.Join(t.TempDir(), "broken.go")
	require.NoError(t, os.WriteFile(path, []byte("package vm\n\ntype Broken struct {"), 0644))
	assert.Error(t, scanner.ScanFile(path))
}

func TestElementType(t *testing.T) {
	tests := []struct {
		fieldType string
		expected  string
	}{
		{"string", "string"},
		{"*Address", "Address"},
		{"[]Order", "Order"},
		{"[]*Order", "Order"},
		{"time.Time", "Time"},
		{"*vm.Customer", "Customer"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, ElementType(tt.fieldType), "type: %s", tt.fieldType)
	}
}
