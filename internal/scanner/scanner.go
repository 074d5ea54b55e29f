// Package scanner provides project discovery for bindc.
//
// The scanner traverses the configured scan paths to find .bxml markup
// documents and .go view-model sources, parses them, and registers the
// results in the shared registry. It maintains CRC32 hashes for change
// detection and distributes parsing across a persistent worker pool.
package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/bindc-dev/bindc/internal/markup"
	"github.com/bindc-dev/bindc/internal/registry"
	"github.com/bindc-dev/bindc/internal/typeres"
)

// MarkupExt is the file extension of binding markup documents.
const MarkupExt = ".bxml"

// ScanJob represents a scanning job for the worker pool containing the file
// path to scan and a result channel for asynchronous communication.
type ScanJob struct {
	// filePath is the path to the file to be scanned
	filePath string
	// result channel receives the scan result asynchronously
	result chan<- ScanResult
}

// ScanResult represents the result of a scanning operation.
type ScanResult struct {
	filePath string
	err      error
}

// ProjectScanner discovers markup documents and view-model types.
type ProjectScanner struct {
	registry    *registry.Registry
	parser      *markup.Parser
	typeScanner *typeres.TypeScanner
	workerPool  *WorkerPool
	pathCache   *pathValidationCache
	exclude     []string
}

// pathValidationCache caches the working directory to avoid repeated syscalls
type pathValidationCache struct {
	mu                sync.RWMutex
	currentWorkingDir string
	initialized       bool
}

// NewProjectScanner creates a project scanner with a worker pool sized to the
// host CPU count (capped at 8).
func NewProjectScanner(reg *registry.Registry) *ProjectScanner {
	s := &ProjectScanner{
		registry:    reg,
		parser:      markup.NewParser(),
		typeScanner: typeres.NewTypeScanner(reg),
		pathCache:   &pathValidationCache{},
	}

	workerCount := runtime.NumCPU()
	if workerCount > 8 {
		workerCount = 8
	}
	s.workerPool = NewWorkerPool(workerCount, s)

	return s
}

// SetExcludePatterns configures glob patterns matched against base names that
// should be skipped during scanning.
func (s *ProjectScanner) SetExcludePatterns(patterns []string) {
	s.exclude = patterns
}

// GetRegistry returns the backing registry.
func (s *ProjectScanner) GetRegistry() *registry.Registry {
	return s.registry
}

// Close gracefully shuts down the scanner and its worker pool.
func (s *ProjectScanner) Close() error {
	if s.workerPool != nil {
		s.workerPool.Stop()
	}
	return nil
}

// ScanDocuments scans a directory tree for markup documents.
func (s *ProjectScanner) ScanDocuments(dir string) error {
	return s.scanTree(dir, func(path string) bool {
		return strings.HasSuffix(path, MarkupExt)
	})
}

// ScanTypes scans a directory tree for Go view-model sources.
func (s *ProjectScanner) ScanTypes(dir string) error {
	return s.scanTree(dir, func(path string) bool {
		return strings.HasSuffix(path, ".go") && !strings.HasSuffix(path, "_test.go")
	})
}

func (s *ProjectScanner) scanTree(dir string, match func(string) bool) error {
	if _, err := s.validatePath(dir); err != nil {
		return fmt.Errorf("invalid directory path: %w", err)
	}

	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if s.excluded(d.Name()) && path != dir {
				return filepath.SkipDir
			}
			return nil
		}

		if !match(path) || s.excluded(d.Name()) {
			return nil
		}

		if _, err := s.validatePath(path); err != nil {
			// Skip paths that escape the project root
			return nil
		}

		files = append(files, path)
		return nil
	})

	if err != nil {
		return err
	}

	return s.processBatch(files)
}

// ScanFile scans a single markup or Go file.
func (s *ProjectScanner) ScanFile(path string) error {
	return s.scanFileInternal(path)
}

// processBatch distributes files over the persistent worker pool. Small
// batches are processed synchronously to avoid scheduling overhead.
func (s *ProjectScanner) processBatch(files []string) error {
	if len(files) == 0 {
		return nil
	}

	if len(files) <= 5 {
		return s.processBatchSynchronous(files)
	}

	resultChan := make(chan ScanResult, len(files))

	for _, file := range files {
		job := ScanJob{filePath: file, result: resultChan}

		select {
		case s.workerPool.jobQueue <- job:
		default:
			// Worker pool is full, process synchronously as fallback
			err := s.scanFileInternal(file)
			resultChan <- ScanResult{filePath: file, err: err}
		}
	}

	var errs []error
	for i := 0; i < len(files); i++ {
		result := <-resultChan
		if result.err != nil {
			errs = append(errs, fmt.Errorf("scanning %s: %w", result.filePath, result.err))
		}
	}

	close(resultChan)

	if len(errs) > 0 {
		return fmt.Errorf("scan completed with %d errors: %v", len(errs), errs[0])
	}

	return nil
}

func (s *ProjectScanner) processBatchSynchronous(files []string) error {
	var errs []error

	for _, file := range files {
		if err := s.scanFileInternal(file); err != nil {
			errs = append(errs, fmt.Errorf("scanning %s: %w", file, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("scan completed with %d errors: %v", len(errs), errs[0])
	}

	return nil
}

func (s *ProjectScanner) scanFileInternal(path string) error {
	cleanPath, err := s.validatePath(path)
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}

	switch {
	case strings.HasSuffix(cleanPath, MarkupExt):
		doc, err := s.parser.ParseFile(cleanPath)
		if err != nil {
			return err
		}
		s.registry.RegisterDocument(doc)
		return nil
	case strings.HasSuffix(cleanPath, ".go"):
		return s.typeScanner.ScanFile(cleanPath)
	default:
		return nil
	}
}

func (s *ProjectScanner) excluded(name string) bool {
	for _, pattern := range s.exclude {
		if matched, _ := filepath.Match(pattern, name); matched {
			return true
		}
		if pattern == name {
			return true
		}
	}
	return false
}

// validatePath validates and cleans a file path to prevent directory
// traversal, caching the working directory to avoid repeated syscalls.
func (s *ProjectScanner) validatePath(path string) (string, error) {
	cleanPath := filepath.Clean(path)

	absPath, err := filepath.Abs(cleanPath)
	if err != nil {
		return "", fmt.Errorf("getting absolute path: %w", err)
	}

	cwd, err := s.getCachedWorkingDir()
	if err != nil {
		return "", fmt.Errorf("getting current directory: %w", err)
	}

	if !strings.HasPrefix(absPath, cwd) {
		return "", fmt.Errorf("path %s is outside current working directory", path)
	}

	if strings.Contains(cleanPath, "..") {
		return "", fmt.Errorf("path contains directory traversal: %s", path)
	}

	return cleanPath, nil
}

func (s *ProjectScanner) getCachedWorkingDir() (string, error) {
	s.pathCache.mu.RLock()
	if s.pathCache.initialized {
		cwd := s.pathCache.currentWorkingDir
		s.pathCache.mu.RUnlock()
		return cwd, nil
	}
	s.pathCache.mu.RUnlock()

	s.pathCache.mu.Lock()
	defer s.pathCache.mu.Unlock()

	if s.pathCache.initialized {
		return s.pathCache.currentWorkingDir, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}

	absCwd, err := filepath.Abs(cwd)
	if err != nil {
		return "", fmt.Errorf("getting absolute working directory: %w", err)
	}

	s.pathCache.currentWorkingDir = absCwd
	s.pathCache.initialized = true

	return absCwd, nil
}

// InvalidatePathCache clears the cached working directory. This should be
// called if the working directory changes during execution.
func (s *ProjectScanner) InvalidatePathCache() {
	s.pathCache.mu.Lock()
	defer s.pathCache.mu.Unlock()
	s.pathCache.initialized = false
	s.pathCache.currentWorkingDir = ""
}
