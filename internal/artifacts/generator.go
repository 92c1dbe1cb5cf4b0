// Package artifacts produces the per-cultivar PEST input files: the cultivar
// parameter template, the observation instruction files and the control
// document that ties them to the model's data files.
package artifacts

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"pestcal/internal/config"
	"pestcal/internal/failure"
	"pestcal/internal/logging"
	"pestcal/internal/toolrun"
)

// Fixed file names inside a cultivar output directory.
const (
	TemplateFile            = "CULTIVAR.TPL"
	PrimaryInstructionFile  = "OVERVIEW.INS"
	PlantGrowthInstructions = "PlantGro.INS"
	ControlFile             = "PEST_CONTROL.pst"
	BalancedControlFile     = "PEST_CONTROL_bal.pst"
)

// Request describes one (treatment, cultivar) pair to generate for.
type Request struct {
	Treatment string
	Cultivar  string
	OutputDir string

	CultivarFile    string
	OverviewFile    string
	PlantGrowthFile string

	CultivarParameters   []config.ParameterGroup
	OverviewVariables    []string
	PlantGrowthVariables []string

	ModelCommandLine string
}

// HasPlantGrowth reports whether a secondary instruction file is wanted.
func (r Request) HasPlantGrowth() bool { return len(r.PlantGrowthVariables) > 0 }

// Pair links a template or instruction file to the model file it writes or reads.
type Pair struct {
	Artifact string
	DataFile string
}

// Set is what Build produced. PlantGrowthInstructions is empty when the
// request has no plant-growth variables.
type Set struct {
	Template                string
	OverviewInstructions    string
	PlantGrowthInstructions string
	Control                 string
	Pairs                   []Pair
}

// Files lists the generated paths.
func (s Set) Files() []string {
	out := []string{s.Template, s.OverviewInstructions}
	if s.PlantGrowthInstructions != "" {
		out = append(out, s.PlantGrowthInstructions)
	}
	return append(out, s.Control)
}

// Generator creates individual artifacts and returns their paths.
type Generator interface {
	CultivarTemplate(ctx context.Context, req Request) (string, error)
	OverviewInstructions(ctx context.Context, req Request) (string, error)
	PlantGrowthInstructions(ctx context.Context, req Request) (string, error)
	ControlDocument(ctx context.Context, req Request, pairs []Pair) (string, error)
}

// Build runs g in dependency order: template, primary instructions,
// secondary instructions when configured, then the control document.
func Build(ctx context.Context, g Generator, req Request) (Set, error) {
	var set Set
	var err error

	if set.Template, err = g.CultivarTemplate(ctx, req); err != nil {
		return Set{}, err
	}
	if set.OverviewInstructions, err = g.OverviewInstructions(ctx, req); err != nil {
		return Set{}, err
	}
	set.Pairs = []Pair{
		{Artifact: set.Template, DataFile: req.CultivarFile},
		{Artifact: set.OverviewInstructions, DataFile: req.OverviewFile},
	}
	if req.HasPlantGrowth() {
		if set.PlantGrowthInstructions, err = g.PlantGrowthInstructions(ctx, req); err != nil {
			return Set{}, err
		}
		set.Pairs = append(set.Pairs, Pair{Artifact: set.PlantGrowthInstructions, DataFile: req.PlantGrowthFile})
	}
	if set.Control, err = g.ControlDocument(ctx, req, set.Pairs); err != nil {
		return Set{}, err
	}
	return set, nil
}

// CommandGenerator drives the external generator executable, one subcommand
// per artifact:
//
//	<tool> cultivar --cultivar C --cultivar-file F --output DIR --group P=P1V,P1D ...
//	<tool> overview --treatment T --data-file F --output DIR --variable V ...
//	<tool> plantgro --treatment T --data-file F --output DIR --variable V ...
//	<tool> pst --output DIR --model-command-line CMD --pair TPL=DATA ...
type CommandGenerator struct {
	Runner toolrun.Runner
	Tool   string
}

func NewCommandGenerator(r toolrun.Runner, tool string) *CommandGenerator {
	return &CommandGenerator{Runner: r, Tool: tool}
}

func (g *CommandGenerator) CultivarTemplate(ctx context.Context, req Request) (string, error) {
	args := []string{"cultivar",
		"--cultivar", req.Cultivar,
		"--cultivar-file", req.CultivarFile,
		"--output", req.OutputDir,
	}
	for _, grp := range req.CultivarParameters {
		args = append(args, "--group", grp.Name+"="+strings.Join(grp.Parameters, ","))
	}
	return g.generate(ctx, "generate cultivar template", filepath.Join(req.OutputDir, TemplateFile), args)
}

func (g *CommandGenerator) OverviewInstructions(ctx context.Context, req Request) (string, error) {
	args := observationArgs("overview", req.Treatment, req.OverviewFile, req.OutputDir, req.OverviewVariables)
	return g.generate(ctx, "generate overview instructions", filepath.Join(req.OutputDir, PrimaryInstructionFile), args)
}

func (g *CommandGenerator) PlantGrowthInstructions(ctx context.Context, req Request) (string, error) {
	args := observationArgs("plantgro", req.Treatment, req.PlantGrowthFile, req.OutputDir, req.PlantGrowthVariables)
	return g.generate(ctx, "generate plant growth instructions", filepath.Join(req.OutputDir, PlantGrowthInstructions), args)
}

func (g *CommandGenerator) ControlDocument(ctx context.Context, req Request, pairs []Pair) (string, error) {
	args := []string{"pst",
		"--output", req.OutputDir,
		"--model-command-line", req.ModelCommandLine,
	}
	for _, p := range pairs {
		args = append(args, "--pair", p.Artifact+"="+p.DataFile)
	}
	return g.generate(ctx, "assemble control document", filepath.Join(req.OutputDir, ControlFile), args)
}

func observationArgs(sub, treatment, dataFile, outDir string, variables []string) []string {
	args := []string{sub,
		"--treatment", treatment,
		"--data-file", dataFile,
		"--output", outDir,
	}
	for _, v := range variables {
		args = append(args, "--variable", v)
	}
	return args
}

func (g *CommandGenerator) generate(ctx context.Context, op, want string, args []string) (string, error) {
	if err := toolrun.Run(ctx, g.Runner, failure.ErrArtifactGeneration, op, g.Tool, args...); err != nil {
		return "", err
	}
	if _, err := os.Stat(want); err != nil {
		return "", &failure.Error{
			Kind: failure.ErrArtifactGeneration,
			Op:   op,
			Path: want,
			Err:  fmt.Errorf("%s reported success but produced no output: %w", g.Tool, err),
		}
	}
	logging.New("artifacts").Debug("artifact generated", "path", want)
	return want, nil
}
