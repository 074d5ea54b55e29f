package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bindc-dev/bindc/internal/registry"
)

const documentTemplate = `<Page xmlns="http://schemas.example.com/ui" xmlns:x="http://schemas.example.com/xaml" x:DataType="vm:Customer">
    <Label Text="{Binding Name}"/>
</Page>`

const viewModelSource = `package vm

type Customer struct {
	Name  string
	Email string
}
`

// chdir switches to dir for the duration of the test, equivalent to
// t.Chdir, which requires Go 1.24.
func chdir(t *testing.T, dir string) {
	t.Helper()

	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		require.NoError(t, os.Chdir(prev))
	})
}

// newTestScanner runs the scanner inside a temp working directory, since
// scan paths outside the working directory are rejected.
func newTestScanner(t *testing.T) (*ProjectScanner, string) {
	t.Helper()

	dir := t.TempDir()
	chdir(t, dir)

	scanner := NewProjectScanner(registry.NewRegistry())
	t.Cleanup(func() {
		require.NoError(t, scanner.Close())
	})

	return scanner, dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestScanDocuments(t *testing.T) {
	scanner, dir := newTestScanner(t)

	writeFile(t, filepath.Join(dir, "views", "login.bxml"), documentTemplate)
	writeFile(t, filepath.Join(dir, "views", "nested", "profile.bxml"), documentTemplate)
	writeFile(t, filepath.Join(dir, "views", "readme.md"), "not markup")

	require.NoError(t, scanner.ScanDocuments("views"))

	reg := scanner.GetRegistry()
	assert.Equal(t, 2, reg.DocumentCount())

	doc, exists := reg.GetDocument("login")
	require.True(t, exists)
	assert.NotEmpty(t, doc.Hash)
	require.Len(t, doc.Bindings, 1)
	assert.Equal(t, "Name", doc.Bindings[0].Path)
}

func TestScanDocuments_LargeBatchUsesWorkerPool(t *testing.T) {
	scanner, dir := newTestScanner(t)

	for i := 0; i < 12; i++ {
		writeFile(t, filepath.Join(dir, "views", fmt.Sprintf("page%02d.bxml", i)), documentTemplate)
	}

	require.NoError(t, scanner.ScanDocuments("views"))
	assert.Equal(t, 12, scanner.GetRegistry().DocumentCount())
}

func TestScanTypes(t *testing.T) {
	scanner, dir := newTestScanner(t)

	writeFile(t, filepath.Join(dir, "viewmodels", "customer.go"), viewModelSource)
	writeFile(t, filepath.Join(dir, "viewmodels", "customer_test.go"), "package vm\n\ntype TestOnly struct{ X int }\n")

	require.NoError(t, scanner.ScanTypes("viewmodels"))

	reg := scanner.GetRegistry()
	_, ok := reg.LookupType("Customer")
	assert.True(t, ok)

	// Test files are skipped.
	_, ok = reg.LookupType("TestOnly")
	assert.False(t, ok)
}

func TestScanFile(t *testing.T) {
	scanner, dir := newTestScanner(t)

	docPath := filepath.Join(dir, "login.bxml")
	writeFile(t, docPath, documentTemplate)

	require.NoError(t, scanner.ScanFile("login.bxml"))

	_, exists := scanner.GetRegistry().GetDocument("login")
	assert.True(t, exists)

	// Unknown extensions are ignored, not errors.
	writeFile(t, filepath.Join(dir, "notes.txt"), "hello")
	assert.NoError(t, scanner.ScanFile("notes.txt"))
}

func TestScanDocuments_ExcludePatterns(t *testing.T) {
	scanner, dir := newTestScanner(t)
	scanner.SetExcludePatterns([]string{"*.bak", "node_modules"})

	writeFile(t, filepath.Join(dir, "views", "login.bxml"), documentTemplate)
	writeFile(t, filepath.Join(dir, "views", "login.bxml.bak"), documentTemplate)
	writeFile(t, filepath.Join(dir, "views", "node_modules", "vendor.bxml"), documentTemplate)

	require.NoError(t, scanner.ScanDocuments("views"))
	assert.Equal(t, 1, scanner.GetRegistry().DocumentCount())
}

func TestScanDocuments_RejectsOutsidePaths(t *testing.T) {
	scanner, _ := newTestScanner(t)

	assert.Error(t, scanner.ScanDocuments("../outside"))
	assert.Error(t, scanner.ScanDocuments("/etc"))
}

func TestScanDocuments_ParseErrorSurfaces(t *testing.T) {
	scanner, dir := newTestScanner(t)

	writeFile(t, filepath.Join(dir, "views", "broken.bxml"), "<Page><Label></Page>")

	err := scanner.ScanDocuments("views")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.bxml")
}
