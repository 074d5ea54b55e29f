// Package server runs the diagnostics server: it watches documents and
// view-models, recompiles on change, and pushes build results to connected
// clients over WebSocket.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/bindc-dev/bindc/internal/build"
	"github.com/bindc-dev/bindc/internal/codegen"
	"github.com/bindc-dev/bindc/internal/config"
	"github.com/bindc-dev/bindc/internal/errors"
	"github.com/bindc-dev/bindc/internal/logging"
	"github.com/bindc-dev/bindc/internal/registry"
	"github.com/bindc-dev/bindc/internal/scanner"
	"github.com/bindc-dev/bindc/internal/watcher"
)

// Client represents a WebSocket client
type Client struct {
	conn   *websocket.Conn
	send   chan []byte
	server *DiagnosticsServer
}

// DiagnosticsServer serves live build diagnostics for binding documents.
type DiagnosticsServer struct {
	config       *config.Config
	httpServer   *http.Server
	serverMutex  sync.RWMutex
	clients      map[*websocket.Conn]*Client
	clientsMutex sync.RWMutex
	broadcast    chan []byte
	register     chan *Client
	unregister   chan *websocket.Conn

	registry *registry.Registry
	watcher  *watcher.FileWatcher
	scanner  *scanner.ProjectScanner
	pipeline *build.Pipeline

	results      map[string]build.BuildResult
	resultsMutex sync.RWMutex

	shutdownOnce sync.Once
}

// UpdateMessage is pushed to clients whenever a document finishes building.
type UpdateMessage struct {
	Type        string              `json:"type"`
	Document    string              `json:"document,omitempty"`
	Failed      bool                `json:"failed"`
	Compiled    int                 `json:"compiled"`
	Classic     int                 `json:"classic"`
	Diagnostics []errors.Diagnostic `json:"diagnostics,omitempty"`
	Timestamp   time.Time           `json:"timestamp"`
}

// New creates a diagnostics server.
func New(cfg *config.Config) (*DiagnosticsServer, error) {
	reg := registry.NewRegistry()

	debounce := time.Duration(cfg.Development.DebounceMs) * time.Millisecond
	fileWatcher, err := watcher.NewFileWatcher(debounce)
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	projectScanner := scanner.NewProjectScanner(reg)
	projectScanner.SetExcludePatterns(cfg.Documents.ExcludePatterns)

	generator := codegen.NewGenerator(reg, cfg.Generate.Package, cfg.Generate.TypesImport)
	compiler := build.NewDocumentCompiler(reg, generator, cfg.Build.Strict)
	pipeline := build.NewPipeline(cfg.Build.Workers, reg, compiler, cfg.Generate.OutputDir)

	logCfg := logging.DefaultConfig()
	if cfg.Development.Verbose {
		logCfg.Level = logging.LevelDebug
	}
	pipeline.SetLogger(logging.NewLogger(logCfg))

	return &DiagnosticsServer{
		config:     cfg,
		clients:    make(map[*websocket.Conn]*Client),
		broadcast:  make(chan []byte),
		register:   make(chan *Client),
		unregister: make(chan *websocket.Conn),
		registry:   reg,
		watcher:    fileWatcher,
		scanner:    projectScanner,
		pipeline:   pipeline,
		results:    make(map[string]build.BuildResult),
	}, nil
}

// Start starts the server and blocks until it shuts down.
func (s *DiagnosticsServer) Start(ctx context.Context) error {
	s.setupFileWatcher(ctx)

	s.pipeline.Start(ctx)
	s.pipeline.AddCallback(s.handleBuildResult)

	if err := s.initialScan(); err != nil {
		log.Printf("Initial scan failed: %v", err)
	}

	for _, doc := range s.registry.Documents() {
		s.pipeline.Build(doc)
	}

	go s.runWebSocketHub(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/documents", s.handleDocuments)
	mux.HandleFunc("/document/", s.handleDocument)
	mux.HandleFunc("/api/diagnostics", s.handleDiagnostics)
	mux.HandleFunc("/api/build/metrics", s.handleBuildMetrics)
	mux.HandleFunc("/api/build/cache", s.handleBuildCache)
	mux.HandleFunc("/", s.handleIndex)

	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)

	s.serverMutex.Lock()
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	server := s.httpServer
	s.serverMutex.Unlock()

	log.Printf("Diagnostics server listening on http://%s", addr)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown stops the server, the watcher, and the build pipeline.
func (s *DiagnosticsServer) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.serverMutex.RLock()
		server := s.httpServer
		s.serverMutex.RUnlock()

		if server != nil {
			err = server.Shutdown(ctx)
		}

		if werr := s.watcher.Stop(); werr != nil && err == nil {
			err = werr
		}
		s.pipeline.Stop()
		if serr := s.scanner.Close(); serr != nil && err == nil {
			err = serr
		}
	})
	return err
}

func (s *DiagnosticsServer) setupFileWatcher(ctx context.Context) {
	s.watcher.AddFilter(func(path string) bool {
		return watcher.MarkupFilter(path) || watcher.GoFilter(path)
	})
	s.watcher.AddFilter(watcher.NoTestFilter)
	s.watcher.AddFilter(watcher.NoVendorFilter)
	s.watcher.AddFilter(watcher.NoGitFilter)

	s.watcher.AddHandler(s.handleFileChange)

	paths := append([]string{}, s.config.Documents.ScanPaths...)
	paths = append(paths, s.config.Types.ScanPaths...)
	for _, path := range paths {
		if err := s.watcher.AddRecursive(path); err != nil {
			log.Printf("Failed to watch path %s: %v", path, err)
		}
	}

	if err := s.watcher.Start(ctx); err != nil {
		log.Printf("Failed to start file watcher: %v", err)
	}
}

func (s *DiagnosticsServer) initialScan() error {
	for _, path := range s.config.Types.ScanPaths {
		if err := s.scanner.ScanTypes(path); err != nil {
			log.Printf("Error scanning types in %s: %v", path, err)
		}
	}
	for _, path := range s.config.Documents.ScanPaths {
		if err := s.scanner.ScanDocuments(path); err != nil {
			log.Printf("Error scanning documents in %s: %v", path, err)
		}
	}

	log.Printf("Found %d documents, %d view-model types",
		s.registry.DocumentCount(), s.registry.TypeCount())
	return nil
}

func (s *DiagnosticsServer) handleFileChange(events []watcher.ChangeEvent) error {
	typesChanged := false

	for _, event := range events {
		if event.Type == watcher.EventTypeDeleted {
			continue
		}
		if err := s.scanner.ScanFile(event.Path); err != nil {
			log.Printf("Error rescanning %s: %v", event.Path, err)
			continue
		}
		if watcher.GoFilter(event.Path) {
			typesChanged = true
		}
	}

	if typesChanged {
		// A view-model edit can change the validity of any document.
		for _, doc := range s.registry.Documents() {
			s.pipeline.Build(doc)
		}
		return nil
	}

	for _, event := range events {
		if !watcher.MarkupFilter(event.Path) {
			continue
		}
		name := documentNameFromPath(event.Path)
		if doc, ok := s.registry.GetDocument(name); ok {
			s.pipeline.BuildWithPriority(doc)
		}
	}

	return nil
}

func (s *DiagnosticsServer) handleBuildResult(result build.BuildResult) {
	s.resultsMutex.Lock()
	s.results[result.Document.Name] = result
	s.resultsMutex.Unlock()

	msg := UpdateMessage{
		Type:        "build_complete",
		Document:    result.Document.Name,
		Failed:      result.Failed(),
		Compiled:    result.CompiledCount,
		Classic:     result.ClassicCount,
		Diagnostics: result.Diagnostics,
		Timestamp:   time.Now(),
	}
	s.broadcastMessage(msg)
}

func documentNameFromPath(path string) string {
	base := path
	if idx := strings.LastIndexByte(base, '/'); idx >= 0 {
		base = base[idx+1:]
	}
	return strings.TrimSuffix(base, scanner.MarkupExt)
}
