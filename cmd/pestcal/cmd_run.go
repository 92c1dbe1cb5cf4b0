package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"pestcal/internal/artifacts"
	"pestcal/internal/config"
	"pestcal/internal/display"
	"pestcal/internal/failure"
	"pestcal/internal/format"
	"pestcal/internal/ledger"
	"pestcal/internal/logging"
	"pestcal/internal/pipeline"
	"pestcal/internal/toolrun"
)

var runFlags struct {
	calPath       string
	configFile    string
	ledgerPath    string
	noLedger      bool
	skipPreflight bool
	markdown      bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Calibrate every configured treatment in order",
	Long: `Run walks each treatment/cultivar pair through artifact generation,
validation, the baseline run, weight rebalancing and the final estimation.
The batch stops at the first failure and exits non-zero.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runBatch(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), batchOptions{
			calPath:       runFlags.calPath,
			configFile:    runFlags.configFile,
			ledgerPath:    runFlags.ledgerPath,
			noLedger:      runFlags.noLedger,
			skipPreflight: runFlags.skipPreflight,
			markdown:      runFlags.markdown,
		})
	},
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runFlags.calPath, "cal-path", ".", "Calibration directory")
	f.StringVar(&runFlags.configFile, "config", "", "Configuration file (default <cal-path>/config.yaml)")
	f.StringVar(&runFlags.ledgerPath, "ledger", "", "Run ledger path (default <cal-path>/"+ledger.DefaultPath+")")
	f.BoolVar(&runFlags.noLedger, "no-ledger", false, "Do not record the batch in the run ledger")
	f.BoolVar(&runFlags.skipPreflight, "skip-preflight", false, "Skip executable and input file checks")
	f.BoolVar(&runFlags.markdown, "markdown", false, "Print the summary as a Markdown table")
}

type batchOptions struct {
	calPath       string
	configFile    string
	ledgerPath    string
	noLedger      bool
	skipPreflight bool
	markdown      bool
}

// newRunner is swapped in tests.
var newRunner = func(toolOutput io.Writer) toolrun.Runner {
	return toolrun.NewExecRunner(toolOutput)
}

func runBatch(ctx context.Context, out, toolOutput io.Writer, opts batchOptions) error {
	logger := logging.New("run")

	cfg, err := config.Load(opts.calPath, opts.configFile)
	if err != nil {
		return err
	}
	names := toolrun.Names(cfg.Tools)
	if !opts.skipPreflight {
		if err := toolrun.Preflight(ctx, requiredTools(cfg, names), cfg.InputFiles()); err != nil {
			return err
		}
	}

	runner := newRunner(toolOutput)
	tools := toolrun.NewToolset(runner, names)
	gen := artifacts.NewCommandGenerator(runner, names.Generator)

	var pipelineOpts []pipeline.Option
	var rec *ledgerRecorder
	if !opts.noLedger {
		rec = openRecorder(ledgerPath(cfg.CalPath, opts.ledgerPath), cfg.CalPath)
		if rec != nil {
			defer rec.Close()
			pipelineOpts = append(pipelineOpts, pipeline.WithRecorder(rec))
		}
	}

	logger.Info("starting batch", "cal_path", cfg.CalPath, "config", cfg.Path, "treatments", len(cfg.Treatments))
	runs, runErr := pipeline.New(cfg, tools, gen, pipelineOpts...).RunBatch(ctx)
	if rec != nil {
		rec.Finish(runErr)
	}

	mode := format.ASCII
	if opts.markdown {
		mode = format.Markdown
	}
	if len(runs) > 0 {
		fmt.Fprint(out, format.Summary(mode, cfg.CalPath, runs))
		fmt.Fprintln(out)
	}
	if runErr != nil {
		if kind := failure.KindOf(runErr); kind != nil {
			logger.Error("batch failed", "kind", display.FailureKind(kind.Error()), "treatments", len(runs))
		}
		return runErr
	}
	logger.Info("batch complete", "treatments", len(runs))
	return nil
}

// requiredTools drops the simulation line filler when no treatment needs it.
func requiredTools(cfg *config.Config, names toolrun.Names) []string {
	if cfg.HasPlantGrowth() {
		return names.All()
	}
	var out []string
	for _, n := range names.All() {
		if n != names.FillSimulationLines {
			out = append(out, n)
		}
	}
	return out
}

func ledgerPath(calPath, flag string) string {
	if flag != "" {
		return flag
	}
	return filepath.Join(calPath, ledger.DefaultPath)
}

// openRecorder opens the ledger and begins a batch. The ledger is auxiliary:
// on any error it logs a warning and returns nil.
func openRecorder(path, calPath string) *ledgerRecorder {
	logger := logging.New("ledger")
	l, err := ledger.Open(path)
	if err != nil {
		logger.Warn("run ledger unavailable", "path", path, "error", err)
		return nil
	}
	rec, err := newLedgerRecorder(l, calPath, time.Now)
	if err != nil {
		logger.Warn("begin batch failed", "path", path, "error", err)
		l.Close()
		return nil
	}
	return rec
}
