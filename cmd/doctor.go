package cmd

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"encoding/json"

	"github.com/spf13/cobra"
	yamlv2 "gopkg.in/yaml.v2"
	"gopkg.in/yaml.v3"

	"github.com/bindc-dev/bindc/internal/config"
	"github.com/bindc-dev/bindc/internal/markup"
	"github.com/bindc-dev/bindc/internal/registry"
	"github.com/bindc-dev/bindc/internal/resolve"
	"github.com/bindc-dev/bindc/internal/scanner"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose project setup and binding configuration",
	Long: `Diagnose your project setup and check for binding compilation issues.

The doctor command analyzes the project and reports problems before they turn
into build failures. It checks for:

- Configuration file syntax and values
- Document and type scan path existence
- Unparseable documents (with lenient recovery to show what was found)
- Documents whose scope types are not in the type table
- Output directory writability
- Diagnostics server port availability

Examples:
  bindc doctor                    # Full project diagnosis
  bindc doctor --verbose          # Detailed diagnostic output
  bindc doctor --format json      # Output as JSON for tooling`,
	RunE: runDoctor,
}

var (
	doctorVerbose bool
	doctorFormat  string
)

// DiagnosticResult represents the result of a diagnostic check
type DiagnosticResult struct {
	Name       string `json:"name" yaml:"name"`
	Status     string `json:"status" yaml:"status"` // "ok", "warning", "error", "info"
	Message    string `json:"message" yaml:"message"`
	Suggestion string `json:"suggestion,omitempty" yaml:"suggestion,omitempty"`
}

// DoctorReport represents the complete diagnostic report
type DoctorReport struct {
	Timestamp   time.Time          `json:"timestamp" yaml:"timestamp"`
	Environment map[string]string  `json:"environment" yaml:"environment"`
	Results     []DiagnosticResult `json:"results" yaml:"results"`
}

func init() {
	rootCmd.AddCommand(doctorCmd)

	doctorCmd.Flags().BoolVarP(&doctorVerbose, "verbose", "v", false, "Show verbose diagnostic information")
	doctorCmd.Flags().StringVarP(&doctorFormat, "format", "f", "table", "Output format (table|json|yaml)")
}

func runDoctor(cmd *cobra.Command, args []string) error {
	fmt.Println("bindc project doctor")
	fmt.Println("====================")
	fmt.Println()

	report := &DoctorReport{
		Timestamp: time.Now(),
		Environment: map[string]string{
			"os":         runtime.GOOS,
			"arch":       runtime.GOARCH,
			"go_version": runtime.Version(),
		},
	}

	cfg, cfgResult := checkConfiguration()
	report.Results = append(report.Results, cfgResult)

	if cfg != nil {
		report.Results = append(report.Results, checkScanPaths(cfg)...)
		report.Results = append(report.Results, checkDocuments(cfg)...)
		report.Results = append(report.Results, checkOutputDir(cfg))
		report.Results = append(report.Results, checkPort(cfg))
	}

	errorsFound := 0
	for _, result := range report.Results {
		if result.Status == "error" {
			errorsFound++
		}
		if !doctorVerbose && result.Status == "info" {
			continue
		}
		displayResult(result)
	}

	if doctorFormat != "table" {
		fmt.Println()
		if err := outputReport(report, doctorFormat); err != nil {
			return fmt.Errorf("failed to output report: %w", err)
		}
	}

	fmt.Printf("\n%d checks, %d problems\n", len(report.Results), errorsFound)

	if errorsFound > 0 {
		return fmt.Errorf("doctor found %d problems", errorsFound)
	}
	return nil
}

// checkConfiguration parses the config file directly so syntax errors are
// reported with their cause rather than swallowed by graceful fallback.
func checkConfiguration() (*config.Config, DiagnosticResult) {
	result := DiagnosticResult{Name: "configuration"}

	if raw, err := os.ReadFile(".bindc.yml"); err == nil {
		var probe map[string]interface{}
		if yerr := yamlv2.Unmarshal(raw, &probe); yerr != nil {
			result.Status = "error"
			result.Message = fmt.Sprintf(".bindc.yml is not valid YAML: %v", yerr)
			result.Suggestion = "Fix the YAML syntax; bindc otherwise silently falls back to defaults"
			return nil, result
		}
	}

	cfg, err := config.Load()
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("configuration is invalid: %v", err)
		return nil, result
	}

	result.Status = "ok"
	result.Message = "configuration loaded"
	return cfg, result
}

func checkScanPaths(cfg *config.Config) []DiagnosticResult {
	var results []DiagnosticResult

	check := func(kind string, paths []string) {
		for _, path := range paths {
			result := DiagnosticResult{Name: kind + " scan path " + path}
			if info, err := os.Stat(path); err != nil {
				result.Status = "warning"
				result.Message = fmt.Sprintf("%s does not exist", path)
				result.Suggestion = "Create the directory or remove it from " + kind + ".scan_paths"
			} else if !info.IsDir() {
				result.Status = "warning"
				result.Message = fmt.Sprintf("%s is not a directory", path)
			} else {
				result.Status = "ok"
				result.Message = "exists"
			}
			results = append(results, result)
		}
	}

	check("documents", cfg.Documents.ScanPaths)
	check("types", cfg.Types.ScanPaths)

	return results
}

// checkDocuments parses every document; for files the strict parser rejects
// it runs a lenient recovery pass to report what the document contains.
func checkDocuments(cfg *config.Config) []DiagnosticResult {
	var results []DiagnosticResult

	reg := registry.NewRegistry()
	projectScanner := scanner.NewProjectScanner(reg)
	projectScanner.SetExcludePatterns(cfg.Documents.ExcludePatterns)
	defer projectScanner.Close()

	for _, path := range cfg.Types.ScanPaths {
		_ = projectScanner.ScanTypes(path)
	}

	parser := markup.NewParser()

	for _, scanPath := range cfg.Documents.ScanPaths {
		_ = filepath.WalkDir(scanPath, func(path string, d os.DirEntry, err error) error {
			if err != nil || d.IsDir() || filepath.Ext(path) != scanner.MarkupExt {
				return nil
			}

			result := DiagnosticResult{Name: "document " + path}
			doc, perr := parser.ParseFile(path)
			if perr != nil {
				result.Status = "error"
				result.Message = fmt.Sprintf("does not parse: %v", perr)
				if raw, rerr := os.ReadFile(path); rerr == nil {
					report := markup.RecoverParse(raw)
					result.Suggestion = fmt.Sprintf(
						"lenient recovery found %d elements, %d binding expressions, %d scope declarations",
						report.Elements, report.BindingExpressions, report.ScopeDeclarations)
				}
				results = append(results, result)
				return nil
			}

			reg.RegisterDocument(doc)
			unknown := 0
			for typeName := range resolve.ScopeTypes(doc) {
				if _, ok := reg.LookupType(typeName); !ok {
					unknown++
					result.Suggestion = fmt.Sprintf("scope type %q is not in the type table", typeName)
				}
			}
			if unknown > 0 {
				result.Status = "error"
				result.Message = fmt.Sprintf("%d unknown scope types", unknown)
			} else {
				result.Status = "ok"
				result.Message = fmt.Sprintf("%d bindings", len(doc.Bindings))
			}
			results = append(results, result)
			return nil
		})
	}

	return results
}

func checkOutputDir(cfg *config.Config) DiagnosticResult {
	result := DiagnosticResult{Name: "output directory " + cfg.Generate.OutputDir}

	if err := os.MkdirAll(cfg.Generate.OutputDir, 0755); err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("cannot create: %v", err)
		return result
	}

	probe := filepath.Join(cfg.Generate.OutputDir, ".bindc-doctor")
	if err := os.WriteFile(probe, []byte("ok"), 0644); err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("not writable: %v", err)
		return result
	}
	_ = os.Remove(probe)

	result.Status = "ok"
	result.Message = "writable"
	return result
}

func checkPort(cfg *config.Config) DiagnosticResult {
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	result := DiagnosticResult{Name: "server port " + addr}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		result.Status = "warning"
		result.Message = "port is already in use"
		result.Suggestion = "Stop the conflicting process or change server.port"
		return result
	}
	_ = listener.Close()

	result.Status = "ok"
	result.Message = "available"
	return result
}

func displayResult(result DiagnosticResult) {
	icon := map[string]string{
		"ok":      "✓",
		"warning": "!",
		"error":   "✗",
		"info":    "·",
	}[result.Status]

	fmt.Printf("%s %s: %s\n", icon, result.Name, result.Message)
	if result.Suggestion != "" {
		fmt.Printf("    %s\n", result.Suggestion)
	}
}

func outputReport(report *DoctorReport, format string) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(report)
	case "yaml":
		encoder := yaml.NewEncoder(os.Stdout)
		defer encoder.Close()
		return encoder.Encode(report)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}
