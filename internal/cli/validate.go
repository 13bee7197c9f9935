package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/inkeep/agents-sync/internal/config"
	"github.com/inkeep/agents-sync/internal/graph"
	"github.com/inkeep/agents-sync/internal/model"
)

var (
	validateProject string
	validateJSON    bool
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a canonical project export",
	Long: `Validate checks a project export structurally (JSON Schema, supported
schemaVersion) and referentially (duplicate ids, colliding target paths,
references to missing entities) without touching any source tree.`,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringVar(&validateProject, "project", "", "Path to the canonical project export (JSON)")
	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "Print the validation report as JSON")
	rootCmd.AddCommand(validateCmd)
}

// validateIssue is one finding. Errors make the project invalid, warnings
// do not.
type validateIssue struct {
	Severity string `json:"severity"`
	Kind     string `json:"kind,omitempty"`
	ID       string `json:"id,omitempty"`
	Message  string `json:"message"`
}

type validateReport struct {
	Project  string          `json:"project"`
	Valid    bool            `json:"valid"`
	Entities int             `json:"entities"`
	Issues   []validateIssue `json:"issues,omitempty"`
}

func runValidate(cmd *cobra.Command, args []string) error {
	config.Load()
	projectPath := stringSetting(validateProject, config.KeyProject, "")
	if projectPath == "" {
		return errors.New("--project is required (or set a default: agents-sync config set project <path>)")
	}

	loaded, err := model.LoadProject(projectPath)
	if err != nil {
		return err
	}

	rep := validateReport{Project: projectPath, Valid: true}

	for _, inv := range loaded.Invalid {
		for _, issue := range inv.Err.Issues {
			msg := issue.Message
			if issue.Path != "" {
				msg = issue.Path + ": " + msg
			}
			rep.Issues = append(rep.Issues, validateIssue{
				Severity: "error", Kind: string(inv.Kind), ID: inv.ID, Message: msg,
			})
		}
	}

	g := graph.Build(loaded.Project)
	rep.Entities = len(g.Entities())
	for _, f := range g.Failed {
		rep.Issues = append(rep.Issues, validateIssue{
			Severity: "error", Kind: string(f.Kind), ID: f.ID, Message: f.Err.Error(),
		})
	}
	for _, u := range g.Unresolved {
		rep.Issues = append(rep.Issues, validateIssue{
			Severity: "warning", Kind: string(u.Kind), ID: u.ID,
			Message: fmt.Sprintf("%s references unknown %s %q", u.Field, u.TargetKind, u.TargetID),
		})
	}

	for _, issue := range rep.Issues {
		if issue.Severity == "error" {
			rep.Valid = false
			break
		}
	}

	if validateJSON {
		if err := printJSON(cmd, rep); err != nil {
			return err
		}
	} else {
		printValidateReport(cmd, &rep, loaded.Project)
	}

	if !rep.Valid {
		return fmt.Errorf("project %s failed validation", projectPath)
	}
	return nil
}

func printValidateReport(cmd *cobra.Command, rep *validateReport, p *model.Project) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Project validation: %s\n", rep.Project)

	var errs, warns []validateIssue
	for _, issue := range rep.Issues {
		if issue.Severity == "error" {
			errs = append(errs, issue)
		} else {
			warns = append(warns, issue)
		}
	}

	if len(errs) == 0 {
		name := p.Name
		if name == "" {
			name = p.ID
		}
		fmt.Fprintf(out, "  [ OK ] Valid project: %s (schema %s), %d entities\n", name, p.SchemaVersion, rep.Entities)
	} else {
		fmt.Fprintf(out, "  [FAIL] %d validation issue(s):\n", len(errs))
		for _, issue := range errs {
			if issue.ID != "" {
				fmt.Fprintf(out, "    - %s %q: %s\n", issue.Kind, issue.ID, issue.Message)
			} else {
				fmt.Fprintf(out, "    - %s\n", issue.Message)
			}
		}
	}

	for _, issue := range warns {
		if issue.ID != "" {
			fmt.Fprintf(out, "  [WARN] %s %q: %s\n", issue.Kind, issue.ID, issue.Message)
		} else {
			fmt.Fprintf(out, "  [WARN] %s\n", issue.Message)
		}
	}
}
