package cli

import (
	"github.com/spf13/cobra"

	"github.com/inkeep/agents-sync/internal/branding"
)

var (
	buildVersion string
	buildCommit  string
	buildDate    string
)

var rootCmd = &cobra.Command{
	Use:   branding.CLIName(),
	Short: branding.Description(),
	Long: branding.DisplayName() + ` keeps a hand-editable TypeScript agent project in step
with its canonical project graph. Managed fields are merged into the
source tree in place; everything a human wrote (extra keys, comments,
formatting, file layout) is preserved.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command with build info injected via ldflags.
func Execute(version, commit, date string) error {
	buildVersion = version
	buildCommit = commit
	buildDate = date
	return rootCmd.Execute()
}
