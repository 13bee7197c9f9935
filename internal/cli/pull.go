package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/inkeep/agents-sync/internal/config"
	"github.com/inkeep/agents-sync/internal/emit"
	"github.com/inkeep/agents-sync/internal/graph"
	"github.com/inkeep/agents-sync/internal/index"
	"github.com/inkeep/agents-sync/internal/merge"
	"github.com/inkeep/agents-sync/internal/model"
)

var (
	pullProject string
	pullTarget  string
	pullMode    string
	pullJSON    bool
	pullWatch   bool
)

var pullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Sync the canonical project graph into a source tree",
	Long: `Pull merges a canonical project export (JSON) into a TypeScript source
tree. Managed fields are updated in place, missing declarations are
created, and human edits are preserved. Files are only rewritten when
their content actually changes.`,
	RunE: runPull,
}

func init() {
	pullCmd.Flags().StringVar(&pullProject, "project", "", "Path to the canonical project export (JSON)")
	pullCmd.Flags().StringVar(&pullTarget, "target", "", `Source tree root (default ".")`)
	pullCmd.Flags().StringVar(&pullMode, "mode", "", `Sync mode: merge, overwrite or dry-run (default "merge")`)
	pullCmd.Flags().BoolVar(&pullJSON, "json", false, "Print the run report as JSON")
	pullCmd.Flags().BoolVar(&pullWatch, "watch", false, "Keep running and re-sync when the project export changes")
	rootCmd.AddCommand(pullCmd)
}

// pullSettings are the fully resolved inputs of one sync run.
type pullSettings struct {
	project string
	target  string
	mode    merge.Mode
	modeStr string
	write   bool
}

func runPull(cmd *cobra.Command, args []string) error {
	config.Load()

	s := pullSettings{
		project: stringSetting(pullProject, config.KeyProject, ""),
		target:  stringSetting(pullTarget, config.KeyTarget, "."),
		modeStr: stringSetting(pullMode, config.KeyMode, "merge"),
	}
	if s.project == "" {
		return errors.New("--project is required (or set a default: agents-sync config set project <path>)")
	}
	var err error
	s.mode, s.write, err = parseMode(s.modeStr)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if pullWatch {
		return watchPull(ctx, cmd, s)
	}
	return pullOnce(ctx, cmd, s)
}

// stringSetting resolves a value from its flag, then user config, then the
// built-in default.
func stringSetting(flag, key, def string) string {
	if flag != "" {
		return flag
	}
	if v := config.Get(key); v != "" {
		return v
	}
	return def
}

func parseMode(s string) (mode merge.Mode, write bool, err error) {
	switch s {
	case "merge":
		return merge.ModeMerge, true, nil
	case "overwrite":
		return merge.ModeOverwrite, true, nil
	case "dry-run":
		return merge.ModeMerge, false, nil
	}
	return 0, false, fmt.Errorf("unknown mode %q (expected merge, overwrite or dry-run)", s)
}

// pullOnce loads, merges and (outside dry-run) writes, then prints the run
// report.
func pullOnce(ctx context.Context, cmd *cobra.Command, s pullSettings) error {
	loaded, err := model.LoadProject(s.project)
	if err != nil {
		return err
	}

	x, err := index.Scan(ctx, s.target)
	if err != nil {
		return fmt.Errorf("scanning %s: %w", s.target, err)
	}
	defer x.Close()

	sum, err := merge.New(graph.Build(loaded.Project), x, s.mode).Run()
	if err != nil {
		return err
	}

	var written []string
	if s.write {
		rep, err := emit.Write(ctx, s.target, sum.Files)
		if err != nil {
			return err
		}
		written = rep.Written
	}

	report := buildPullReport(s, loaded, sum, written)
	if pullJSON {
		return printJSON(cmd, report)
	}
	return printPullReport(cmd, report)
}

// pullEntity is one per-entity outcome row of the run report.
type pullEntity struct {
	Kind    string `json:"kind"`
	ID      string `json:"id"`
	Outcome string `json:"outcome"`
	File    string `json:"file,omitempty"`
	Error   string `json:"error,omitempty"`
}

type pullOrphan struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
	Name string `json:"identifier"`
	File string `json:"file"`
}

type pullCounts struct {
	Created       int `json:"created"`
	Updated       int `json:"updated"`
	Unchanged     int `json:"unchanged"`
	SkippedManual int `json:"skippedManual"`
	Failed        int `json:"failed"`
}

// pullReport is the stable run report printed by pull, as a table or JSON.
type pullReport struct {
	Project  string       `json:"project"`
	Target   string       `json:"target"`
	Mode     string       `json:"mode"`
	DryRun   bool         `json:"dryRun"`
	Counts   pullCounts   `json:"counts"`
	Entities []pullEntity `json:"entities"`
	Orphaned []pullOrphan `json:"orphaned,omitempty"`
	Warnings []string     `json:"warnings,omitempty"`
	Changed  []string     `json:"changedFiles"`
	Written  []string     `json:"writtenFiles,omitempty"`
}

func buildPullReport(s pullSettings, loaded *model.LoadResult, sum *merge.Summary, written []string) *pullReport {
	rep := &pullReport{
		Project: s.project,
		Target:  s.target,
		Mode:    s.modeStr,
		DryRun:  !s.write,
		Written: written,
	}

	for _, inv := range loaded.Invalid {
		rep.Entities = append(rep.Entities, pullEntity{
			Kind:    string(inv.Kind),
			ID:      inv.ID,
			Outcome: string(merge.OutcomeFailed),
			Error:   inv.Err.Error(),
		})
		rep.Counts.Failed++
	}

	for _, e := range sum.Entities {
		pe := pullEntity{Kind: string(e.Kind), ID: e.ID, Outcome: string(e.Outcome), File: e.File}
		if e.Err != nil {
			pe.Error = e.Err.Error()
		}
		rep.Entities = append(rep.Entities, pe)

		switch e.Outcome {
		case merge.OutcomeCreated:
			rep.Counts.Created++
		case merge.OutcomeUpdated:
			rep.Counts.Updated++
		case merge.OutcomeUnchanged:
			rep.Counts.Unchanged++
		case merge.OutcomeSkippedManual:
			rep.Counts.SkippedManual++
		case merge.OutcomeFailed:
			rep.Counts.Failed++
		}
	}

	for _, o := range sum.Orphaned {
		rep.Orphaned = append(rep.Orphaned, pullOrphan{
			Kind: string(o.Kind), ID: o.ID, Name: o.Name, File: o.File,
		})
	}
	rep.Warnings = sum.Warnings

	rep.Changed = make([]string, 0, len(sum.Files))
	for _, f := range sum.Files {
		rep.Changed = append(rep.Changed, f.Rel)
	}
	return rep
}

func printPullReport(cmd *cobra.Command, rep *pullReport) error {
	out := cmd.OutOrStdout()

	if rep.DryRun {
		fmt.Fprintf(out, "Dry run: %s into %s\n", rep.Project, rep.Target)
	} else {
		fmt.Fprintf(out, "Syncing %s into %s (%s mode)\n", rep.Project, rep.Target, rep.Mode)
	}

	for _, e := range rep.Entities {
		switch e.Outcome {
		case string(merge.OutcomeCreated), string(merge.OutcomeUpdated):
			fmt.Fprintf(out, "  ✓ %s: %s (%s %s)\n", e.Kind, e.ID, e.Outcome, e.File)
		case string(merge.OutcomeSkippedManual):
			fmt.Fprintf(out, "  ⚠️  %s: %s (manual declaration, skipped)\n", e.Kind, e.ID)
		case string(merge.OutcomeFailed):
			fmt.Fprintf(out, "  ✗ %s: %s (%s)\n", e.Kind, e.ID, e.Error)
		}
	}

	for _, w := range rep.Warnings {
		fmt.Fprintf(out, "  ⚠️  %s\n", w)
	}

	if len(rep.Orphaned) > 0 {
		fmt.Fprintf(out, "  %d declaration(s) no longer in the project (left in place):\n", len(rep.Orphaned))
		for _, o := range rep.Orphaned {
			fmt.Fprintf(out, "    - %s: %s (%s)\n", o.Kind, o.ID, o.File)
		}
	}

	fmt.Fprintln(out)
	glyph := "✓"
	if rep.Counts.Failed > 0 {
		glyph = "✗"
	}
	fmt.Fprintf(out, "%s %d created, %d updated, %d unchanged, %d skipped, %d failed.\n",
		glyph, rep.Counts.Created, rep.Counts.Updated, rep.Counts.Unchanged,
		rep.Counts.SkippedManual, rep.Counts.Failed)

	if rep.DryRun {
		if len(rep.Changed) > 0 {
			fmt.Fprintf(out, "Would write %d file(s):\n", len(rep.Changed))
			for _, f := range rep.Changed {
				fmt.Fprintf(out, "  - %s\n", f)
			}
		} else {
			fmt.Fprintln(out, "Nothing to write.")
		}
		return nil
	}

	fmt.Fprintf(out, "%d file(s) written.\n", len(rep.Written))
	return nil
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}

// watchDebounce coalesces the event bursts editors produce on save.
const watchDebounce = 250 * time.Millisecond

// watchPull re-syncs whenever the project export changes. Editors replace
// files on save, so the parent directory is watched and events filtered by
// name.
func watchPull(ctx context.Context, cmd *cobra.Command, s pullSettings) error {
	abs, err := filepath.Abs(s.project)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}

	out := cmd.OutOrStdout()
	if err := pullOnce(ctx, cmd, s); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "✗ sync failed: %v\n", err)
	}
	fmt.Fprintf(out, "Watching %s (Ctrl-C to stop)\n", s.project)

	debounce := time.NewTimer(watchDebounce)
	if !debounce.Stop() {
		<-debounce.C
	}
	pending := false

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(out, "Stopped.")
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if pending && !debounce.Stop() {
				<-debounce.C
			}
			debounce.Reset(watchDebounce)
			pending = true

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "  ⚠️  watch error: %v\n", err)

		case <-debounce.C:
			pending = false
			fmt.Fprintln(out)
			fmt.Fprintf(out, "Change detected, syncing %s\n", s.project)
			if err := pullOnce(ctx, cmd, s); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "✗ sync failed: %v\n", err)
			}
		}
	}
}
