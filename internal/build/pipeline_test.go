package build

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bindc-dev/bindc/internal/codegen"
	"github.com/bindc-dev/bindc/internal/errors"
	"github.com/bindc-dev/bindc/internal/markup"
	"github.com/bindc-dev/bindc/internal/registry"
	"github.com/bindc-dev/bindc/internal/types"
)

const xmlnsHeader = `xmlns="http://schemas.example.com/ui" xmlns:x="http://schemas.example.com/xaml"`

func testRegistry() *registry.Registry {
	reg := registry.NewRegistry()
	reg.RegisterType(&types.TypeInfo{
		Name:    "Customer",
		Package: "vm",
		Hash:    "abc123",
		Fields: []types.FieldInfo{
			{Name: "Name", Type: "string", Exported: true},
			{Name: "Email", Type: "string", Exported: true},
		},
	})
	return reg
}

// parseTempDoc writes content to a temp .bxml file and parses it, so the
// pipeline's content hashing has a real file to read.
func parseTempDoc(t *testing.T, name, content string) *types.DocumentInfo {
	t.Helper()

	path := filepath.Join(t.TempDir(), strings.ToLower(name)+".bxml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	doc, err := markup.NewParser().Parse(name, path, []byte(content))
	require.NoError(t, err)
	return doc
}

func newTestCompiler(reg *registry.Registry, strict bool) *DocumentCompiler {
	return NewDocumentCompiler(reg, codegen.NewGenerator(reg, "bindings", ""), strict)
}

func TestDocumentCompiler_Compile(t *testing.T) {
	doc := parseTempDoc(t, "Profile", `<Page `+xmlnsHeader+` x:DataType="vm:Customer">
    <Label Text="{Binding Name}"/>
</Page>`)

	sink := errors.NewSink()
	output, err := newTestCompiler(testRegistry(), false).Compile(doc, sink)

	require.NoError(t, err)
	require.NotNil(t, output)
	assert.Contains(t, string(output), "GetProfileLabelText")
	assert.False(t, sink.HasErrors())
}

func TestDocumentCompiler_CompileInvalidPath(t *testing.T) {
	doc := parseTempDoc(t, "Profile", `<Page `+xmlnsHeader+` x:DataType="vm:Customer">
    <Label Text="{Binding Nmae}"/>
</Page>`)

	sink := errors.NewSink()
	output, err := newTestCompiler(testRegistry(), false).Compile(doc, sink)

	require.NoError(t, err)
	assert.Nil(t, output)
	assert.True(t, sink.HasErrors())
	assert.True(t, sink.DocumentFailed("Profile"))
}

func TestDocumentCompiler_MalformedScopeDeclaration(t *testing.T) {
	doc := parseTempDoc(t, "Profile", `<Page `+xmlnsHeader+` x:DataType="{x:Type}">
    <Label Text="{Binding Name}"/>
</Page>`)

	sink := errors.NewSink()
	output, err := newTestCompiler(testRegistry(), false).Compile(doc, sink)

	require.NoError(t, err)
	assert.Nil(t, output)
	assert.True(t, sink.HasErrors())
}

func TestDocumentCompiler_StrictFailsSilentFallback(t *testing.T) {
	doc := parseTempDoc(t, "Profile", `<Page `+xmlnsHeader+`>
    <Label Text="{Binding Name}"/>
</Page>`)

	sink := errors.NewSink()
	output, err := newTestCompiler(testRegistry(), true).Compile(doc, sink)

	require.NoError(t, err)
	assert.Nil(t, output)
	assert.True(t, sink.HasErrors())
}

func TestPipeline_BuildWritesOutput(t *testing.T) {
	reg := testRegistry()
	outDir := filepath.Join(t.TempDir(), "bindings")
	pipeline := NewPipeline(2, reg, newTestCompiler(reg, false), outDir)

	results := make(chan BuildResult, 10)
	pipeline.AddCallback(func(result BuildResult) {
		results <- result
	})

	pipeline.Start(context.Background())
	defer pipeline.Stop()

	doc := parseTempDoc(t, "Profile", `<Page `+xmlnsHeader+` x:DataType="vm:Customer">
    <Label Text="{Binding Name}"/>
    <Label Text="{Binding Missing, Source={x:Static local:Cart.Shared}}"/>
</Page>`)
	pipeline.Build(doc)

	select {
	case result := <-results:
		assert.False(t, result.Failed())
		assert.False(t, result.CacheHit)
		assert.Equal(t, 1, result.CompiledCount)
		assert.Equal(t, 1, result.ClassicCount)
		require.NotEmpty(t, result.OutputPath)

		written, err := os.ReadFile(result.OutputPath)
		require.NoError(t, err)
		assert.Contains(t, string(written), "GetProfileLabelText")
	case <-time.After(5 * time.Second):
		t.Fatal("build did not complete")
	}
}

func TestPipeline_SecondBuildHitsCache(t *testing.T) {
	reg := testRegistry()
	pipeline := NewPipeline(1, reg, newTestCompiler(reg, false), "")

	results := make(chan BuildResult, 10)
	pipeline.AddCallback(func(result BuildResult) {
		results <- result
	})

	pipeline.Start(context.Background())
	defer pipeline.Stop()

	doc := parseTempDoc(t, "Profile", `<Page `+xmlnsHeader+` x:DataType="vm:Customer">
    <Label Text="{Binding Name}"/>
</Page>`)

	pipeline.Build(doc)
	first := waitForResult(t, results)
	assert.False(t, first.CacheHit)

	pipeline.BuildWithPriority(doc)
	second := waitForResult(t, results)
	assert.True(t, second.CacheHit)
	assert.Equal(t, first.Output, second.Output)

	metrics := pipeline.GetMetrics()
	assert.Equal(t, int64(2), metrics.TotalBuilds)
	assert.Equal(t, int64(1), metrics.CacheHits)
}

func TestPipeline_FailedBuildReportsDiagnostics(t *testing.T) {
	reg := testRegistry()
	pipeline := NewPipeline(1, reg, newTestCompiler(reg, false), "")

	results := make(chan BuildResult, 10)
	pipeline.AddCallback(func(result BuildResult) {
		results <- result
	})

	pipeline.Start(context.Background())
	defer pipeline.Stop()

	doc := parseTempDoc(t, "Broken", `<Page `+xmlnsHeader+` x:DataType="vm:Customer">
    <Label Text="{Binding Nmae}"/>
</Page>`)
	pipeline.Build(doc)

	result := waitForResult(t, results)
	assert.True(t, result.Failed())
	require.Len(t, result.Diagnostics, 1)
	assert.Equal(t, errors.ErrCodeUnknownMember, result.Diagnostics[0].Err.Code)

	metrics := pipeline.GetMetrics()
	assert.Equal(t, int64(1), metrics.FailedBuilds)
}

func TestPipeline_TypeChangeInvalidatesCache(t *testing.T) {
	reg := testRegistry()
	pipeline := NewPipeline(1, reg, newTestCompiler(reg, false), "")

	results := make(chan BuildResult, 10)
	pipeline.AddCallback(func(result BuildResult) {
		results <- result
	})

	pipeline.Start(context.Background())
	defer pipeline.Stop()

	doc := parseTempDoc(t, "Profile", `<Page `+xmlnsHeader+` x:DataType="vm:Customer">
    <Label Text="{Binding Name}"/>
</Page>`)

	pipeline.Build(doc)
	first := waitForResult(t, results)
	assert.False(t, first.CacheHit)

	// A new type hash changes the fingerprint, so the cache key changes.
	reg.RegisterType(&types.TypeInfo{
		Name:    "Customer",
		Package: "vm",
		Hash:    "def456",
		Fields: []types.FieldInfo{
			{Name: "Name", Type: "string", Exported: true},
		},
	})

	pipeline.Build(doc)
	second := waitForResult(t, results)
	assert.False(t, second.CacheHit)
}

func waitForResult(t *testing.T, results chan BuildResult) BuildResult {
	t.Helper()
	select {
	case result := <-results:
		return result
	case <-time.After(5 * time.Second):
		t.Fatal("build did not complete")
		return BuildResult{}
	}
}

func TestBuildMetrics_Record(t *testing.T) {
	metrics := &BuildMetrics{}

	metrics.record(BuildResult{Duration: 10 * time.Millisecond, CompiledCount: 3, ClassicCount: 1})
	metrics.record(BuildResult{Duration: 20 * time.Millisecond, CacheHit: true})
	metrics.record(BuildResult{
		Duration: 30 * time.Millisecond,
		Diagnostics: []errors.Diagnostic{
			{Severity: errors.SeverityError, Err: &errors.BindError{Message: "bad"}},
		},
	})

	snapshot := metrics.Snapshot()
	assert.Equal(t, int64(3), snapshot.TotalBuilds)
	assert.Equal(t, int64(2), snapshot.SuccessfulBuilds)
	assert.Equal(t, int64(1), snapshot.FailedBuilds)
	assert.Equal(t, int64(1), snapshot.CacheHits)
	assert.Equal(t, int64(3), snapshot.CompiledBindings)
	assert.Equal(t, int64(1), snapshot.ClassicBindings)
	assert.Equal(t, 60*time.Millisecond, snapshot.TotalDuration)
	assert.Equal(t, 20*time.Millisecond, snapshot.AverageDuration)
}
