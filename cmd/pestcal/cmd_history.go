package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"pestcal/internal/format"
	"pestcal/internal/ledger"
)

var historyFlags struct {
	calPath    string
	ledgerPath string
	batch      string
	markdown   bool
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded batches, or the transitions of one batch",
	RunE: func(cmd *cobra.Command, _ []string) error {
		path := ledgerPath(historyFlags.calPath, historyFlags.ledgerPath)
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("run ledger %s: %w", path, err)
		}
		l, err := ledger.Open(path)
		if err != nil {
			return err
		}
		defer l.Close()
		mode := format.ASCII
		if historyFlags.markdown {
			mode = format.Markdown
		}
		return printHistory(cmd.OutOrStdout(), l, historyFlags.batch, mode)
	},
}

func init() {
	f := historyCmd.Flags()
	f.StringVar(&historyFlags.calPath, "cal-path", ".", "Calibration directory")
	f.StringVar(&historyFlags.ledgerPath, "ledger", "", "Run ledger path (default <cal-path>/"+ledger.DefaultPath+")")
	f.StringVar(&historyFlags.batch, "batch", "", "Show the transitions of this batch id")
	f.BoolVar(&historyFlags.markdown, "markdown", false, "Render Markdown tables")
}

func printHistory(out io.Writer, l ledger.Ledger, batchID string, mode format.Mode) error {
	if batchID != "" {
		ts, err := l.ListTransitions(batchID)
		if err != nil {
			return fmt.Errorf("batch %s: %w", batchID, err)
		}
		fmt.Fprintln(out, format.Transitions(mode, ts))
		return nil
	}
	batches, err := l.ListBatches()
	if err != nil {
		return err
	}
	if len(batches) == 0 {
		fmt.Fprintln(out, "No batches recorded.")
		return nil
	}
	fmt.Fprintln(out, format.Batches(mode, batches))
	return nil
}
