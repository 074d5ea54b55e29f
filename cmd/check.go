package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bindc-dev/bindc/internal/bindcheck"
	"github.com/bindc-dev/bindc/internal/config"
	"github.com/bindc-dev/bindc/internal/errors"
	"github.com/bindc-dev/bindc/internal/registry"
	"github.com/bindc-dev/bindc/internal/resolve"
)

var checkCmd = &cobra.Command{
	Use:     "check [documents...]",
	Aliases: []string{"k"},
	Short:   "Validate binding paths without generating code",
	Long: `Check resolves binding scopes and validates every binding path against
the view-model type table, reporting errors without writing any output.

With --strict, bindings that silently fall back to the classic runtime path
because no scope type is declared are reported as errors instead of warnings.

Examples:
  bindc check                     # Check all configured documents
  bindc check views/login.bxml    # Check specific documents
  bindc check --strict            # Fail on silent classic fallbacks`,
	RunE: runCheck,
}

var checkFlags *StandardFlags

func init() {
	rootCmd.AddCommand(checkCmd)
	checkFlags = AddStandardFlags(checkCmd, "build", "output")
}

func runCheck(cmd *cobra.Command, args []string) error {
	if err := checkFlags.ValidateFlags(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	applyBuildFlags(cmd, cfg, checkFlags)
	cfg.TargetFiles = args

	reg := registry.NewRegistry()
	docs, err := scanProject(reg, cfg)
	if err != nil {
		return err
	}

	if len(docs) == 0 {
		if !checkFlags.Quiet {
			fmt.Println("No documents found.")
		}
		return nil
	}

	resolver := resolve.NewResolver()
	checker := bindcheck.NewChecker(reg)
	checker.SetStrict(cfg.Build.Strict)

	sink := errors.NewSink()
	failed := 0

	for _, doc := range docs {
		if err := resolver.Resolve(doc); err != nil {
			if be, ok := err.(*errors.BindError); ok {
				sink.ReportBinding(doc.Name, be)
				failed++
				continue
			}
			return err
		}

		if !checker.Check(doc, sink) {
			failed++
		}
	}

	printDiagnostics(sink)

	compiled, classic := countBindings(docs)
	if !checkFlags.Quiet {
		fmt.Printf("Checked %d documents: %d compiled bindings, %d classic, %d failed\n",
			len(docs), compiled, classic, failed)
	}

	if sink.HasErrors() {
		return fmt.Errorf("check failed: %s", sink.Summary())
	}

	return nil
}
