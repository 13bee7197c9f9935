package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/inkeep/agents-sync/internal/config"
	"github.com/inkeep/agents-sync/internal/index"
)

var (
	inspectTarget string
	inspectJSON   bool
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Show declarations discovered in a source tree",
	Long: `Inspect scans a TypeScript source tree and prints every recognized
builder declaration: kind, id, identifier, file and export status.
Declarations whose id is not a literal string are listed as manual.`,
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().StringVar(&inspectTarget, "target", "", `Source tree root (default ".")`)
	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "Output in JSON format")
	rootCmd.AddCommand(inspectCmd)
}

// inspectEntry represents one discovered declaration for display.
type inspectEntry struct {
	Kind     string `json:"kind"`
	ID       string `json:"id,omitempty"`
	Name     string `json:"identifier"`
	File     string `json:"file"`
	Line     int    `json:"line,omitempty"`
	Exported bool   `json:"exported"`
	Manual   bool   `json:"manual,omitempty"`
}

func runInspect(cmd *cobra.Command, args []string) error {
	config.Load()
	target := stringSetting(inspectTarget, config.KeyTarget, ".")

	x, err := index.Scan(cmd.Context(), target)
	if err != nil {
		return fmt.Errorf("scanning %s: %w", target, err)
	}
	defer x.Close()

	var entries []inspectEntry
	for _, b := range x.Bindings() {
		entries = append(entries, inspectEntry{
			Kind:     string(b.Kind),
			ID:       b.ID,
			Name:     b.Name,
			File:     b.File,
			Exported: b.Exported,
		})
	}
	for _, md := range x.Manual {
		entries = append(entries, inspectEntry{
			Kind:   string(md.Kind),
			Name:   md.Name,
			File:   md.File,
			Line:   md.Line,
			Manual: true,
		})
	}

	if inspectJSON {
		return printJSON(cmd, entries)
	}

	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No declarations found.")
	} else {
		if err := printInspectTable(cmd, entries); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	for _, amb := range x.Ambiguous {
		fmt.Fprintf(out, "  ⚠️  %s\n", amb.Error())
	}
	for _, pe := range x.ParseErrors {
		fmt.Fprintf(out, "  ⚠️  %s\n", pe.Error())
	}
	return nil
}

func printInspectTable(cmd *cobra.Command, entries []inspectEntry) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "KIND\tID\tIDENTIFIER\tFILE\tEXPORT")
	for _, e := range entries {
		id, export := e.ID, "no"
		switch {
		case e.Manual:
			id, export = "-", "manual"
		case e.Exported:
			export = "yes"
		}
		file := e.File
		if e.Line > 0 {
			file = fmt.Sprintf("%s:%d", e.File, e.Line)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", e.Kind, id, e.Name, file, export)
	}
	return w.Flush()
}
