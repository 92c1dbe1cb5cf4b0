// pestcal calibrates DSSAT cultivar coefficients with PEST.
//
// Usage:
//
//	pestcal run --cal-path=<dir> [--config=<file>] [--ledger=<path>]
//	pestcal check --cal-path=<dir> [--config=<file>]
//	pestcal history --cal-path=<dir> [--ledger=<path>] [--batch=<id>] [--markdown]
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"pestcal/internal/logging"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	logLevel  string
	logFormat string
	logFile   string
}

var rootCmd = &cobra.Command{
	Use:   "pestcal",
	Short: "Batch PEST calibration of DSSAT cultivar coefficients",
	Long: "pestcal builds PEST control files for each configured treatment and cultivar,\n" +
		"validates them, runs a baseline, rebalances weights and runs the final estimation.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initLogging,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rootFlags.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	pf.StringVar(&rootFlags.logFormat, "log-format", "text", "Log format (text, json)")
	pf.StringVar(&rootFlags.logFile, "log-file", "", "Also append logs to this file")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.Version = version
}

// logFile is closed by main after the command returns.
var logFile *os.File

func initLogging(cmd *cobra.Command, _ []string) error {
	level, err := logging.ParseLevel(rootFlags.logLevel)
	if err != nil {
		return err
	}
	format, err := logging.ParseFormat(rootFlags.logFormat)
	if err != nil {
		return err
	}
	if rootFlags.logFile != "" {
		f, err := logging.OpenFile(rootFlags.logFile)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		logFile = f
		logging.Init(level, format, cmd.ErrOrStderr(), f)
		return nil
	}
	logging.Init(level, format, cmd.ErrOrStderr())
	return nil
}

func main() {
	err := rootCmd.Execute()
	if logFile != nil {
		logFile.Close()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "pestcal:", err)
		os.Exit(1)
	}
}
