package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bindc-dev/bindc/internal/build"
	"github.com/bindc-dev/bindc/internal/codegen"
	"github.com/bindc-dev/bindc/internal/config"
	"github.com/bindc-dev/bindc/internal/errors"
	"github.com/bindc-dev/bindc/internal/registry"
	"github.com/bindc-dev/bindc/internal/scanner"
	"github.com/bindc-dev/bindc/internal/types"
)

var compileCmd = &cobra.Command{
	Use:     "compile [documents...]",
	Aliases: []string{"c"},
	Short:   "Compile binding documents into typed accessors",
	Long: `Compile scans view-model types and markup documents, validates every
binding expression against its declared scope type, and generates typed
accessor code for compiled bindings. Bindings without a scope type, with an
explicit Source, or inside MultiBindings stay on the classic runtime path.

The first invalid binding in a document fails that document; later errors in
the same document are suppressed. Other documents still compile.

Examples:
  bindc compile                   # Compile all configured documents
  bindc compile views/login.bxml  # Compile specific documents
  bindc compile --strict          # Fail on silent classic fallbacks
  bindc compile --out ./bindings  # Override output directory`,
	RunE: runCompile,
}

var compileFlags *StandardFlags

func init() {
	rootCmd.AddCommand(compileCmd)
	compileFlags = AddStandardFlags(compileCmd, "build", "output")
}

func runCompile(cmd *cobra.Command, args []string) error {
	if err := compileFlags.ValidateFlags(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	applyBuildFlags(cmd, cfg, compileFlags)
	cfg.TargetFiles = args

	reg := registry.NewRegistry()
	docs, err := scanProject(reg, cfg)
	if err != nil {
		return err
	}

	if len(docs) == 0 {
		if !compileFlags.Quiet {
			fmt.Println("No documents found.")
		}
		return nil
	}

	generator := codegen.NewGenerator(reg, cfg.Generate.Package, cfg.Generate.TypesImport)
	compiler := build.NewDocumentCompiler(reg, generator, cfg.Build.Strict)

	sink := errors.NewSink()
	generated := 0

	for _, doc := range docs {
		output, err := compiler.Compile(doc, sink)
		if err != nil {
			return err
		}
		if output == nil || sink.DocumentFailed(doc.Name) {
			continue
		}

		outPath, err := writeGenerated(generator, doc, output, cfg.Generate.OutputDir)
		if err != nil {
			return err
		}
		generated++
		if compileFlags.Verbose {
			fmt.Printf("  %s -> %s\n", doc.Name, outPath)
		}
	}

	if generated > 0 {
		if _, err := generator.WriteSupport(cfg.Generate.OutputDir); err != nil {
			return err
		}
	}

	printDiagnostics(sink)

	if !compileFlags.Quiet {
		compiled, classic := countBindings(docs)
		fmt.Printf("Compiled %d documents: %d compiled bindings, %d classic, %d generated files\n",
			len(docs), compiled, classic, generated)
	}

	if sink.HasErrors() {
		return fmt.Errorf("compilation failed: %s", sink.Summary())
	}

	return nil
}

// scanProject scans view-model types first, then documents, returning the
// documents to build. When cfg.TargetFiles is set only those documents are
// returned.
func scanProject(reg *registry.Registry, cfg *config.Config) ([]*types.DocumentInfo, error) {
	projectScanner := scanner.NewProjectScanner(reg)
	projectScanner.SetExcludePatterns(cfg.Documents.ExcludePatterns)
	defer projectScanner.Close()

	for _, path := range cfg.Types.ScanPaths {
		if err := projectScanner.ScanTypes(path); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to scan types in %s: %v\n", path, err)
		}
	}

	if len(cfg.TargetFiles) > 0 {
		for _, file := range cfg.TargetFiles {
			if err := projectScanner.ScanFile(file); err != nil {
				return nil, fmt.Errorf("failed to scan %s: %w", file, err)
			}
		}
	} else {
		for _, path := range cfg.Documents.ScanPaths {
			if err := projectScanner.ScanDocuments(path); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to scan documents in %s: %v\n", path, err)
			}
		}
	}

	return reg.Documents(), nil
}

func writeGenerated(generator *codegen.Generator, doc *types.DocumentInfo, output []byte, outDir string) (string, error) {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}
	outPath := generator.OutputPath(doc, outDir)
	if err := os.WriteFile(outPath, output, 0644); err != nil {
		return "", fmt.Errorf("writing %s: %w", outPath, err)
	}
	return outPath, nil
}

func applyBuildFlags(cmd *cobra.Command, cfg *config.Config, flags *StandardFlags) {
	if cmd.Flags().Changed("strict") {
		cfg.Build.Strict = flags.Strict
	}
	if cmd.Flags().Changed("out") {
		cfg.Generate.OutputDir = flags.OutputDir
	}
	if cmd.Flags().Changed("workers") {
		cfg.Build.Workers = flags.Workers
	}
}

func printDiagnostics(sink *errors.Sink) {
	for _, diag := range sink.Diagnostics() {
		fmt.Fprintf(os.Stderr, "%s: %s\n", diag.Severity, diag.Err.Error())
	}
	if suppressed := sink.Suppressed(); suppressed > 0 {
		fmt.Fprintf(os.Stderr, "(%d further binding errors suppressed)\n", suppressed)
	}
}

func countBindings(docs []*types.DocumentInfo) (compiled, classic int) {
	for _, doc := range docs {
		for _, binding := range doc.Bindings {
			switch binding.Kind {
			case types.KindCompiled:
				compiled++
			case types.KindClassic:
				classic++
			}
		}
	}
	return compiled, classic
}
