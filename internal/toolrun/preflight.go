package toolrun

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"golang.org/x/sync/errgroup"

	"pestcal/internal/failure"
	"pestcal/internal/logging"
)

// lookPath is swapped in tests.
var lookPath = exec.LookPath

const preflightWorkers = 8

// Preflight resolves every executable on PATH and stats every input file
// concurrently. It only reads; the first problem found is returned as a
// configuration error. Empty entries and duplicates are skipped.
func Preflight(ctx context.Context, tools, files []string) error {
	logger := logging.New("preflight")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(preflightWorkers)

	for _, tool := range dedupe(tools) {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			resolved, err := lookPath(tool)
			if err != nil {
				return failure.Configuration("preflight", fmt.Errorf("executable %q: %w", tool, err))
			}
			logger.Debug("resolved executable", "tool", tool, "path", resolved)
			return nil
		})
	}
	for _, file := range dedupe(files) {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			info, err := os.Stat(file)
			if err != nil {
				return failure.Configuration("preflight", fmt.Errorf("input file: %w", err))
			}
			if info.IsDir() {
				return failure.Configurationf("preflight", "input file %s is a directory", file)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("preflight passed", "executables", len(dedupe(tools)), "files", len(dedupe(files)))
	return nil
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
