package emit

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/inkeep/agents-sync/internal/merge"
	"github.com/inkeep/agents-sync/internal/platform"
)

// Report lists what a write pass did, in the order the files were given.
type Report struct {
	Written   []string
	Unchanged []string
}

const (
	stateWritten = iota + 1
	stateUnchanged
)

// Write persists files under root. Each file is byte-compared against the
// copy on disk and rewritten atomically only when it differs. Files are
// written concurrently; after a failure or a context cancellation the
// remaining files are left untouched.
func Write(ctx context.Context, root string, files []*merge.OutFile) (*Report, error) {
	rep := &Report{}
	if len(files) == 0 {
		return rep, nil
	}

	states := make([]int, len(files))

	workers := runtime.NumCPU()
	if workers > len(files) {
		workers = len(files)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, f := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			abs := filepath.Join(root, filepath.FromSlash(f.Rel))
			existing, err := os.ReadFile(abs)
			if err == nil && bytes.Equal(existing, f.Content) {
				states[i] = stateUnchanged
				return nil
			}
			if err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("reading %s: %w", f.Rel, err)
			}
			if err := platform.WriteFileAtomic(abs, f.Content); err != nil {
				return err
			}
			states[i] = stateWritten
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, f := range files {
		switch states[i] {
		case stateWritten:
			rep.Written = append(rep.Written, f.Rel)
		case stateUnchanged:
			rep.Unchanged = append(rep.Unchanged, f.Rel)
		}
	}
	return rep, nil
}
