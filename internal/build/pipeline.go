// Package build runs documents through the compile stages (scope resolution,
// binding validation, code generation) on a worker pool, with content-hash
// caching and build metrics.
package build

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/bindc-dev/bindc/internal/bindcheck"
	"github.com/bindc-dev/bindc/internal/codegen"
	"github.com/bindc-dev/bindc/internal/errors"
	"github.com/bindc-dev/bindc/internal/logging"
	"github.com/bindc-dev/bindc/internal/registry"
	"github.com/bindc-dev/bindc/internal/resolve"
	"github.com/bindc-dev/bindc/internal/types"
)

// Pipeline manages the compile process for markup documents.
type Pipeline struct {
	compiler  *DocumentCompiler
	cache     *BuildCache
	queue     *buildQueue
	workers   int
	registry  *registry.Registry
	metrics   *BuildMetrics
	callbacks []BuildCallback
	outDir    string
	logger    logging.Logger
	workerWg  sync.WaitGroup
	resultWg  sync.WaitGroup
	cancel    context.CancelFunc
}

// BuildTask represents a queued document compile.
type BuildTask struct {
	Document  *types.DocumentInfo
	Priority  int
	Timestamp time.Time
}

// BuildResult represents the result of compiling one document.
type BuildResult struct {
	Document      *types.DocumentInfo
	Output        []byte
	OutputPath    string
	Diagnostics   []errors.Diagnostic
	Err           error
	Duration      time.Duration
	CacheHit      bool
	Hash          string
	CompiledCount int
	ClassicCount  int
}

// Failed reports whether the document failed to compile.
func (r BuildResult) Failed() bool {
	if r.Err != nil {
		return true
	}
	for _, d := range r.Diagnostics {
		if d.Severity == errors.SeverityError {
			return true
		}
	}
	return false
}

// BuildCallback is called when a document compile completes.
type BuildCallback func(result BuildResult)

// buildQueue manages build tasks.
type buildQueue struct {
	tasks    chan BuildTask
	results  chan BuildResult
	priority chan BuildTask
}

// DocumentCompiler runs the in-process compile stages for one document.
type DocumentCompiler struct {
	resolver  *resolve.Resolver
	checker   *bindcheck.Checker
	generator *codegen.Generator
}

// NewDocumentCompiler wires the compile stages against a registry.
func NewDocumentCompiler(reg *registry.Registry, gen *codegen.Generator, strict bool) *DocumentCompiler {
	checker := bindcheck.NewChecker(reg)
	checker.SetStrict(strict)
	return &DocumentCompiler{
		resolver:  resolve.NewResolver(),
		checker:   checker,
		generator: gen,
	}
}

// Compile resolves, validates, and generates one document. Diagnostics are
// reported into the sink; generated source is returned on success.
func (c *DocumentCompiler) Compile(doc *types.DocumentInfo, sink *errors.Sink) ([]byte, error) {
	if err := c.resolver.Resolve(doc); err != nil {
		if be, ok := err.(*errors.BindError); ok {
			sink.ReportBinding(doc.Name, be)
			return nil, nil
		}
		return nil, err
	}

	if !c.checker.Check(doc, sink) {
		return nil, nil
	}

	output, err := c.generator.GenerateDocument(doc)
	if err != nil {
		if be, ok := err.(*errors.BindError); ok {
			sink.ReportBinding(doc.Name, be)
			return nil, nil
		}
		return nil, err
	}

	return output, nil
}

// NewPipeline creates a build pipeline. When outDir is non-empty, generated
// accessor files are written there.
func NewPipeline(workers int, reg *registry.Registry, compiler *DocumentCompiler, outDir string) *Pipeline {
	return &Pipeline{
		compiler: compiler,
		cache:    NewBuildCache(100*1024*1024, time.Hour),
		queue: &buildQueue{
			tasks:    make(chan BuildTask, 100),
			results:  make(chan BuildResult, 100),
			priority: make(chan BuildTask, 10),
		},
		workers:   workers,
		registry:  reg,
		metrics:   &BuildMetrics{},
		callbacks: make([]BuildCallback, 0),
		outDir:    outDir,
	}
}

// SetLogger attaches a structured logger; nil disables pipeline logging.
func (p *Pipeline) SetLogger(logger logging.Logger) {
	if logger != nil {
		logger = logger.WithComponent("build")
	}
	p.logger = logger
}

// Start starts the pipeline workers and result processor.
func (p *Pipeline) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)

	for i := 0; i < p.workers; i++ {
		p.workerWg.Add(1)
		go p.worker(ctx)
	}

	p.resultWg.Add(1)
	go p.processResults(ctx)
}

// Stop stops the pipeline and waits for all goroutines to finish.
func (p *Pipeline) Stop() {
	if p.cancel != nil {
		p.cancel()
	}

	p.workerWg.Wait()
	p.resultWg.Wait()
}

// Build queues a document for compilation.
func (p *Pipeline) Build(doc *types.DocumentInfo) {
	task := BuildTask{
		Document:  doc,
		Priority:  1,
		Timestamp: time.Now(),
	}

	select {
	case p.queue.tasks <- task:
	default:
		// Queue full, skip
	}
}

// BuildWithPriority queues a document ahead of regular tasks, used by watch
// mode for just-changed files.
func (p *Pipeline) BuildWithPriority(doc *types.DocumentInfo) {
	task := BuildTask{
		Document:  doc,
		Priority:  10,
		Timestamp: time.Now(),
	}

	select {
	case p.queue.priority <- task:
	default:
		// Queue full, skip
	}
}

// AddCallback adds a callback invoked for every completed build.
func (p *Pipeline) AddCallback(callback BuildCallback) {
	p.callbacks = append(p.callbacks, callback)
}

// GetMetrics returns a snapshot of the current build metrics.
func (p *Pipeline) GetMetrics() BuildMetrics {
	return p.metrics.Snapshot()
}

// ClearCache clears the build cache.
func (p *Pipeline) ClearCache() {
	p.cache.Clear()
}

// GetCacheStats returns cache statistics.
func (p *Pipeline) GetCacheStats() (int, int64, int64) {
	return p.cache.GetStats()
}

func (p *Pipeline) worker(ctx context.Context) {
	defer p.workerWg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case task := <-p.queue.priority:
			p.processBuildTask(task)
		case task := <-p.queue.tasks:
			p.processBuildTask(task)
		}
	}
}

func (p *Pipeline) processBuildTask(task BuildTask) {
	start := time.Now()

	contentHash := p.contentHash(task.Document)

	if cached, found := p.cache.Get(contentHash); found {
		result := BuildResult{
			Document: task.Document,
			Output:   cached,
			Duration: time.Since(start),
			CacheHit: true,
			Hash:     contentHash,
		}
		result.CompiledCount, result.ClassicCount = countKinds(task.Document)
		p.queue.results <- result
		return
	}

	sink := errors.NewSink()
	output, err := p.compiler.Compile(task.Document, sink)

	result := BuildResult{
		Document:    task.Document,
		Output:      output,
		Diagnostics: sink.Diagnostics(),
		Err:         err,
		Duration:    time.Since(start),
		Hash:        contentHash,
	}
	result.CompiledCount, result.ClassicCount = countKinds(task.Document)

	if !result.Failed() {
		if output != nil {
			p.cache.Set(contentHash, output)
		}
		if p.outDir != "" && output != nil {
			outPath := p.writeOutput(task.Document, output, &result)
			result.OutputPath = outPath
		}
	}

	p.queue.results <- result
}

func (p *Pipeline) writeOutput(doc *types.DocumentInfo, output []byte, result *BuildResult) string {
	if err := os.MkdirAll(p.outDir, 0755); err != nil {
		result.Err = errors.NewIOError(errors.ErrCodeCodegenFailed, "creating output directory", err)
		return ""
	}

	outPath := p.compiler.generator.OutputPath(doc, p.outDir)
	if err := os.WriteFile(outPath, output, 0644); err != nil {
		result.Err = errors.NewIOError(errors.ErrCodeCodegenFailed, "writing "+outPath, err)
		return ""
	}
	return outPath
}

func (p *Pipeline) processResults(ctx context.Context) {
	defer p.resultWg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case result := <-p.queue.results:
			p.handleBuildResult(result)
		}
	}
}

func (p *Pipeline) handleBuildResult(result BuildResult) {
	p.metrics.record(result)

	if p.logger != nil {
		ctx := context.Background()
		if result.Failed() {
			p.logger.Error(ctx, result.Err, "document build failed",
				"document", result.Document.Name,
				"diagnostics", len(result.Diagnostics),
				"duration", result.Duration)
		} else {
			p.logger.Debug(ctx, "document built",
				"document", result.Document.Name,
				"compiled", result.CompiledCount,
				"classic", result.ClassicCount,
				"cache_hit", result.CacheHit,
				"duration", result.Duration)
		}
	}

	for _, callback := range p.callbacks {
		callback(result)
	}
}

// contentHash derives a cache key from the document content and the current
// type table, so that view-model edits invalidate document results.
func (p *Pipeline) contentHash(doc *types.DocumentInfo) string {
	stat, err := os.Stat(doc.FilePath)
	if err != nil {
		return doc.FilePath + ":" + p.typeFingerprint()
	}

	content, err := os.ReadFile(doc.FilePath)
	if err != nil {
		return fmt.Sprintf("%s:%d:%s", doc.FilePath, stat.ModTime().Unix(), p.typeFingerprint())
	}

	hash := sha256.New()
	hash.Write(content)
	hash.Write([]byte(p.typeFingerprint()))
	return hex.EncodeToString(hash.Sum(nil))
}

// typeFingerprint folds the hashes of every registered view-model type into
// a stable string.
func (p *Pipeline) typeFingerprint() string {
	typeInfos := p.registry.Types()

	parts := make([]string, 0, len(typeInfos))
	for _, t := range typeInfos {
		parts = append(parts, t.Name+"@"+t.Hash)
	}
	sort.Strings(parts)

	hash := sha256.New()
	for _, part := range parts {
		hash.Write([]byte(part))
	}
	return hex.EncodeToString(hash.Sum(nil))[:16]
}

func countKinds(doc *types.DocumentInfo) (compiled, classic int) {
	for _, binding := range doc.Bindings {
		switch binding.Kind {
		case types.KindCompiled:
			compiled++
		case types.KindClassic:
			classic++
		}
	}
	return compiled, classic
}
