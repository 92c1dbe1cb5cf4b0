package toolrun

import (
	"context"

	"pestcal/internal/failure"
	"pestcal/internal/pst"
)

// Names are the configured executable names.
type Names struct {
	SyntaxCheck         string
	InstructionCheck    string
	FullDocumentCheck   string
	Engine              string
	Rebalance           string
	FillSimulationLines string
	Generator           string
}

// DefaultNames are the PEST utilities and helpers as they are usually installed.
var DefaultNames = Names{
	SyntaxCheck:         "tempchek",
	InstructionCheck:    "inschek",
	FullDocumentCheck:   "pestchek",
	Engine:              "PEST",
	Rebalance:           "pwtadj1",
	FillSimulationLines: "uplantgro",
	Generator:           "dpest",
}

// All lists every name, in invocation order.
func (n Names) All() []string {
	return []string{n.Generator, n.SyntaxCheck, n.InstructionCheck, n.FillSimulationLines,
		n.FullDocumentCheck, n.Engine, n.Rebalance}
}

// Run invokes tool through r and maps a spawn failure or a nonzero exit to an
// error of the given kind.
func Run(ctx context.Context, r Runner, kind error, op, tool string, args ...string) error {
	status, err := r.Invoke(ctx, tool, args)
	if err != nil {
		return failure.ToolStart(kind, op, tool, err)
	}
	if status != 0 {
		return failure.ToolExit(kind, op, tool, args, status)
	}
	return nil
}

// Toolset binds the configured executables to the operations the pipeline needs.
// Checker and filler failures are validation failures; engine and rebalancer
// failures are external tool failures.
type Toolset struct {
	runner Runner
	names  Names
}

func NewToolset(r Runner, names Names) *Toolset {
	return &Toolset{runner: r, names: names}
}

// Names returns the bound executable names.
func (t *Toolset) Names() Names { return t.names }

// Runner returns the underlying runner.
func (t *Toolset) Runner() Runner { return t.runner }

// SyntaxCheck validates a parameter template.
func (t *Toolset) SyntaxCheck(ctx context.Context, template string) error {
	return Run(ctx, t.runner, failure.ErrValidation, "syntax check", t.names.SyntaxCheck, template)
}

// InstructionCheck validates an instruction file against the model output it reads.
func (t *Toolset) InstructionCheck(ctx context.Context, instructions, dataFile string) error {
	return Run(ctx, t.runner, failure.ErrValidation, "instruction check", t.names.InstructionCheck, instructions, dataFile)
}

// FullDocumentCheck validates the assembled control document.
func (t *Toolset) FullDocumentCheck(ctx context.Context, control string) error {
	return Run(ctx, t.runner, failure.ErrValidation, "full document check", t.names.FullDocumentCheck, control)
}

// FillSimulationLines completes the simulation rows of dataFile for treatment
// so the plant-growth instruction file can read every variable.
func (t *Toolset) FillSimulationLines(ctx context.Context, dataFile, treatment string, variables []string) error {
	args := append([]string{dataFile, treatment}, variables...)
	return Run(ctx, t.runner, failure.ErrValidation, "fill simulation lines", t.names.FillSimulationLines, args...)
}

// RunEngine runs the optimizer on a control document.
func (t *Toolset) RunEngine(ctx context.Context, control string) error {
	return Run(ctx, t.runner, failure.ErrExternalTool, "run engine", t.names.Engine, control)
}

// RebalanceWeights writes a copy of control to out with observation-group
// weights adjusted so each group contributes factor to the objective.
func (t *Toolset) RebalanceWeights(ctx context.Context, control, out string, factor float64) error {
	return Run(ctx, t.runner, failure.ErrExternalTool, "rebalance weights", t.names.Rebalance, control, out, pst.FormatFloat(factor))
}
