package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bindc-dev/bindc/internal/build"
	"github.com/bindc-dev/bindc/internal/codegen"
	"github.com/bindc-dev/bindc/internal/config"
	"github.com/bindc-dev/bindc/internal/registry"
	"github.com/bindc-dev/bindc/internal/scanner"
	"github.com/bindc-dev/bindc/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	Aliases: []string{"w"},
	Short:   "Watch for file changes and recompile documents",
	Long: `Watch for changes to markup documents and view-model types and
automatically recompile affected documents. A view-model edit recompiles
every document; a document edit recompiles just that document.

Examples:
  bindc watch                     # Watch all configured paths
  bindc watch --verbose           # Watch with verbose output
  bindc watch --strict            # Fail builds on silent classic fallbacks`,
	RunE: runWatch,
}

var watchFlags *StandardFlags

func init() {
	rootCmd.AddCommand(watchCmd)
	watchFlags = AddStandardFlags(watchCmd, "build", "output")
}

func runWatch(cmd *cobra.Command, args []string) error {
	if err := watchFlags.ValidateFlags(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	applyBuildFlags(cmd, cfg, watchFlags)

	reg := registry.NewRegistry()
	projectScanner := scanner.NewProjectScanner(reg)
	projectScanner.SetExcludePatterns(cfg.Documents.ExcludePatterns)
	defer projectScanner.Close()

	generator := codegen.NewGenerator(reg, cfg.Generate.Package, cfg.Generate.TypesImport)
	compiler := build.NewDocumentCompiler(reg, generator, cfg.Build.Strict)
	pipeline := build.NewPipeline(cfg.Build.Workers, reg, compiler, cfg.Generate.OutputDir)
	pipeline.SetLogger(newLogger())
	pipeline.AddCallback(printBuildResult)

	debounce := time.Duration(cfg.Development.DebounceMs) * time.Millisecond
	fileWatcher, err := watcher.NewFileWatcher(debounce)
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fileWatcher.Stop()

	fileWatcher.AddFilter(func(path string) bool {
		return watcher.MarkupFilter(path) || watcher.GoFilter(path)
	})
	fileWatcher.AddFilter(watcher.NoTestFilter)
	fileWatcher.AddFilter(watcher.NoVendorFilter)
	fileWatcher.AddFilter(watcher.NoGitFilter)

	fileWatcher.AddHandler(func(events []watcher.ChangeEvent) error {
		if watchFlags.Verbose {
			fmt.Println("File changes detected:")
			for _, event := range events {
				fmt.Printf("   %s: %s\n", event.Type, event.Path)
			}
		} else if !watchFlags.Quiet {
			fmt.Printf("%d file(s) changed\n", len(events))
		}

		typesChanged := false
		for _, event := range events {
			if event.Type == watcher.EventTypeDeleted {
				continue
			}
			if err := projectScanner.ScanFile(event.Path); err != nil {
				fmt.Fprintf(os.Stderr, "Failed to rescan %s: %v\n", event.Path, err)
				continue
			}
			if watcher.GoFilter(event.Path) {
				typesChanged = true
			}
		}

		if typesChanged {
			for _, doc := range reg.Documents() {
				pipeline.Build(doc)
			}
			return nil
		}

		for _, event := range events {
			if !watcher.MarkupFilter(event.Path) {
				continue
			}
			name := strings.TrimSuffix(event.Path[strings.LastIndexByte(event.Path, '/')+1:], scanner.MarkupExt)
			if doc, ok := reg.GetDocument(name); ok {
				pipeline.BuildWithPriority(doc)
			}
		}

		return nil
	})

	fmt.Println("Setting up file watching...")
	paths := append([]string{}, cfg.Documents.ScanPaths...)
	paths = append(paths, cfg.Types.ScanPaths...)
	for _, path := range paths {
		if err := fileWatcher.AddRecursive(path); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to watch path %s: %v\n", path, err)
		} else {
			fmt.Printf("   - Watching: %s\n", path)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pipeline.Start(ctx)
	defer pipeline.Stop()

	fmt.Println("Performing initial scan...")
	for _, path := range cfg.Types.ScanPaths {
		if err := projectScanner.ScanTypes(path); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to scan types in %s: %v\n", path, err)
		}
	}
	for _, path := range cfg.Documents.ScanPaths {
		if err := projectScanner.ScanDocuments(path); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to scan documents in %s: %v\n", path, err)
		}
	}

	docs := reg.Documents()
	fmt.Printf("Found %d documents, %d view-model types\n", len(docs), reg.TypeCount())
	for _, doc := range docs {
		pipeline.Build(doc)
	}

	if err := fileWatcher.Start(ctx); err != nil {
		return fmt.Errorf("failed to start file watcher: %w", err)
	}

	fmt.Println("Watching for changes... (Press Ctrl+C to stop)")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	fmt.Println("\nStopping file watcher...")
	cancel()

	return nil
}

func printBuildResult(result build.BuildResult) {
	if result.Failed() {
		fmt.Fprintf(os.Stderr, "✗ %s failed\n", result.Document.Name)
		for _, diag := range result.Diagnostics {
			fmt.Fprintf(os.Stderr, "  %s: %s\n", diag.Severity, diag.Err.Error())
		}
		return
	}

	if watchFlags != nil && watchFlags.Quiet {
		return
	}

	suffix := ""
	if result.CacheHit {
		suffix = " (cached)"
	}
	fmt.Printf("✓ %s: %d compiled, %d classic in %v%s\n",
		result.Document.Name, result.CompiledCount, result.ClassicCount,
		result.Duration.Round(time.Millisecond), suffix)
}
