package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"pestcal/internal/config"
	"pestcal/internal/display"
	"pestcal/internal/pipeline"
	"pestcal/internal/toolrun"
)

var checkFlags struct {
	calPath    string
	configFile string
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the configuration and resolve tools and input files",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runCheck(cmd.Context(), cmd.OutOrStdout(), checkFlags.calPath, checkFlags.configFile)
	},
}

func init() {
	f := checkCmd.Flags()
	f.StringVar(&checkFlags.calPath, "cal-path", ".", "Calibration directory")
	f.StringVar(&checkFlags.configFile, "config", "", "Configuration file (default <cal-path>/config.yaml)")
}

func runCheck(ctx context.Context, out io.Writer, calPath, configFile string) error {
	cfg, err := config.Load(calPath, configFile)
	if err != nil {
		return err
	}
	names := toolrun.Names(cfg.Tools)
	if err := toolrun.Preflight(ctx, requiredTools(cfg, names), cfg.InputFiles()); err != nil {
		return err
	}
	fmt.Fprintf(out, "Config:     %s\n", cfg.Path)
	fmt.Fprintf(out, "Treatments: %d\n", len(cfg.Treatments))
	for _, t := range cfg.Treatments {
		fmt.Fprintf(out, "  %s -> %s (%s)\n", t.ID, t.Cultivar, cfg.OutputDir(t.Cultivar))
	}
	fmt.Fprintln(out, "Tools:")
	for _, tool := range []struct{ key, name string }{
		{"generator", names.Generator},
		{"syntaxCheck", names.SyntaxCheck},
		{"instructionCheck", names.InstructionCheck},
		{"fillSimulationLines", names.FillSimulationLines},
		{"fullDocumentCheck", names.FullDocumentCheck},
		{"engine", names.Engine},
		{"rebalance", names.Rebalance},
	} {
		fmt.Fprintf(out, "  %-24s %s\n", display.ToolRole(tool.key)+":", tool.name)
	}
	fmt.Fprintf(out, "Stages:     %s\n", display.StatePath(stateCodes()))
	fmt.Fprintln(out, "OK")
	return nil
}

// stateCodes lists the successful path from INIT to DONE.
func stateCodes() []string {
	var codes []string
	for s := pipeline.StateInit; s != ""; s = s.Next() {
		codes = append(codes, string(s))
	}
	return codes
}
