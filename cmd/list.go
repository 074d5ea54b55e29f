package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/bindc-dev/bindc/internal/config"
	"github.com/bindc-dev/bindc/internal/registry"
	"github.com/bindc-dev/bindc/internal/resolve"
	"github.com/bindc-dev/bindc/internal/types"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"l"},
	Short:   "List all discovered documents and their bindings",
	Long: `List all discovered markup documents with their binding expressions.
Shows document names, file paths, and how each binding resolved (compiled or
classic) after scope resolution.

Examples:
  bindc list                      # List all documents in table format
  bindc list -f json              # Output as JSON (short flag)
  bindc list --format csv         # Output as CSV
  bindc list -b                   # Include individual bindings
  bindc list -b -f yaml           # Include bindings, output as YAML`,
	RunE: runList,
}

var (
	listFlags        *StandardFlags
	listWithBindings bool
)

func init() {
	rootCmd.AddCommand(listCmd)

	listFlags = AddStandardFlags(listCmd, "output")

	listCmd.Flags().
		BoolVarP(&listWithBindings, "bindings", "b", false, "Include individual binding expressions")

	AddFlagValidation(listCmd, "format", func(format string) error {
		return ValidateFormat(format, []string{"table", "json", "yaml", "csv"})
	})
}

// listedBinding is the output shape of one binding expression.
type listedBinding struct {
	Target string `json:"target" yaml:"target"`
	Path   string `json:"path" yaml:"path"`
	Mode   string `json:"mode" yaml:"mode"`
	Kind   string `json:"kind" yaml:"kind"`
	Scope  string `json:"scope,omitempty" yaml:"scope,omitempty"`
	Line   int    `json:"line" yaml:"line"`
}

// listedDocument is the output shape of one document.
type listedDocument struct {
	Name     string          `json:"name" yaml:"name"`
	FilePath string          `json:"file_path" yaml:"file_path"`
	Compiled int             `json:"compiled" yaml:"compiled"`
	Classic  int             `json:"classic" yaml:"classic"`
	Bindings []listedBinding `json:"bindings,omitempty" yaml:"bindings,omitempty"`
}

func runList(cmd *cobra.Command, args []string) error {
	if err := listFlags.ValidateFlags(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	reg := registry.NewRegistry()
	docs, err := scanProject(reg, cfg)
	if err != nil {
		return err
	}

	if len(docs) == 0 {
		fmt.Println("No documents found.")
		return nil
	}

	resolver := resolve.NewResolver()
	listed := make([]listedDocument, 0, len(docs))
	for _, doc := range docs {
		// Resolution errors still leave kinds usable for display.
		_ = resolver.Resolve(doc)
		listed = append(listed, listDocument(doc))
	}

	switch strings.ToLower(listFlags.Format) {
	case "json":
		return outputListJSON(listed)
	case "yaml":
		return outputListYAML(listed)
	case "table":
		return outputListTable(listed)
	case "csv":
		return outputListCSV(listed)
	default:
		return fmt.Errorf("unsupported format: %s", listFlags.Format)
	}
}

func listDocument(doc *types.DocumentInfo) listedDocument {
	out := listedDocument{
		Name:     doc.Name,
		FilePath: doc.FilePath,
	}

	for _, binding := range doc.Bindings {
		switch binding.Kind {
		case types.KindCompiled:
			out.Compiled++
		case types.KindClassic:
			out.Classic++
		}

		if !listWithBindings {
			continue
		}
		out.Bindings = append(out.Bindings, listedBinding{
			Target: binding.Element + "." + binding.TargetProperty,
			Path:   binding.Path,
			Mode:   string(binding.Mode),
			Kind:   string(binding.Kind),
			Scope:  binding.ScopeType,
			Line:   binding.Line,
		})
	}

	return out
}

func outputListJSON(docs []listedDocument) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(docs)
}

func outputListYAML(docs []listedDocument) error {
	encoder := yaml.NewEncoder(os.Stdout)
	defer encoder.Close()
	return encoder.Encode(docs)
}

func outputListTable(docs []listedDocument) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "DOCUMENT\tFILE\tCOMPILED\tCLASSIC")
	fmt.Fprintln(w, "--------\t----\t--------\t-------")

	totalBindings := 0
	for _, doc := range docs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", doc.Name, doc.FilePath, doc.Compiled, doc.Classic)
		totalBindings += doc.Compiled + doc.Classic

		if listWithBindings {
			for _, b := range doc.Bindings {
				scope := b.Scope
				if scope == "" {
					scope = "-"
				}
				fmt.Fprintf(w, "  %s\t{Binding %s, Mode=%s}\t%s\t%s\n", b.Target, b.Path, b.Mode, b.Kind, scope)
			}
		}
	}

	fmt.Fprintf(w, "\nTotal: %d documents, %d bindings\n", len(docs), totalBindings)

	return nil
}

func outputListCSV(docs []listedDocument) error {
	if listWithBindings {
		fmt.Println("document,target,path,mode,kind,scope,line")
		for _, doc := range docs {
			for _, b := range doc.Bindings {
				fmt.Printf("%s,%s,%s,%s,%s,%s,%d\n",
					doc.Name, b.Target, b.Path, b.Mode, b.Kind, b.Scope, b.Line)
			}
		}
		return nil
	}

	fmt.Println("name,file_path,compiled,classic")
	for _, doc := range docs {
		fmt.Printf("%s,%s,%d,%d\n", doc.Name, doc.FilePath, doc.Compiled, doc.Classic)
	}

	return nil
}
