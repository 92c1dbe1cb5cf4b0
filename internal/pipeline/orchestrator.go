// Package pipeline drives each (treatment, cultivar) pair through artifact
// generation, validation, a baseline model run, weight rebalancing and the
// final optimizer run.
//
// Treatments run strictly one after another in configuration order. The
// first failing stage marks its run FAILED and stops the batch.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"pestcal/internal/artifacts"
	"pestcal/internal/cmdscript"
	"pestcal/internal/config"
	"pestcal/internal/failure"
	"pestcal/internal/logging"
	"pestcal/internal/pst"
)

// Tools are the external checks and runs the pipeline needs.
// *toolrun.Toolset implements it.
type Tools interface {
	SyntaxCheck(ctx context.Context, template string) error
	InstructionCheck(ctx context.Context, instructions, dataFile string) error
	FullDocumentCheck(ctx context.Context, control string) error
	FillSimulationLines(ctx context.Context, dataFile, treatment string, variables []string) error
	RunEngine(ctx context.Context, control string) error
	RebalanceWeights(ctx context.Context, control, out string, factor float64) error
}

// Recorder observes every state transition. Implementations must not block
// the pipeline on their own failures.
type Recorder interface {
	RecordTransition(ctx context.Context, run *TreatmentRun, tr Transition)
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithRecorder attaches a transition recorder.
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// Orchestrator runs calibration batches.
type Orchestrator struct {
	cfg       *config.Config
	tools     Tools
	generator artifacts.Generator
	recorder  Recorder
	now       func() time.Time
	logger    *slog.Logger
}

func New(cfg *config.Config, tools Tools, gen artifacts.Generator, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:       cfg,
		tools:     tools,
		generator: gen,
		now:       time.Now,
		logger:    logging.New("pipeline"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// RunBatch calibrates every configured treatment in order. It returns the
// runs attempted so far; on failure the last run is the failed one.
func (o *Orchestrator) RunBatch(ctx context.Context) ([]*TreatmentRun, error) {
	var runs []*TreatmentRun
	for _, t := range o.cfg.Treatments {
		run, err := o.RunTreatment(ctx, t)
		runs = append(runs, run)
		if err != nil {
			return runs, err
		}
	}
	return runs, nil
}

type stage struct {
	to State
	fn func(ctx context.Context, run *TreatmentRun) (string, error)
}

// RunTreatment takes one treatment from INIT to DONE or FAILED.
func (o *Orchestrator) RunTreatment(ctx context.Context, t config.Treatment) (*TreatmentRun, error) {
	run := InitRun(t, o.cfg.OutputDir(t.Cultivar), o.now())
	o.logger.Info("calibrating treatment", "treatment", run.Treatment, "cultivar", run.Cultivar, "output_dir", run.OutputDir)

	stages := []stage{
		{StateArtifactsBuilt, o.buildArtifacts},
		{StateValidated, o.validate},
		{StateBaselineAdjusted, o.adjustBaseline},
		{StateBaselineRun, o.runBaseline},
		{StateRebalanced, o.rebalance},
		{StateFinalAdjusted, o.adjustFinal},
		{StateFinalRun, o.runFinal},
		{StateDone, func(context.Context, *TreatmentRun) (string, error) { return "", nil }},
	}
	for _, s := range stages {
		detail, err := s.fn(ctx, run)
		if err != nil {
			run.Err = err
			o.transition(ctx, run, StateFailed, err.Error())
			o.logger.Error("treatment failed", "treatment", run.Treatment, "cultivar", run.Cultivar,
				"stage", s.to, "error", err)
			return run, fmt.Errorf("treatment %s (cultivar %s): %w", run.Treatment, run.Cultivar, err)
		}
		if err := o.transition(ctx, run, s.to, detail); err != nil {
			return run, err
		}
	}
	o.logger.Info("treatment calibrated", "treatment", run.Treatment, "cultivar", run.Cultivar,
		"balanced", run.Balanced, "duration", run.Duration())
	return run, nil
}

func (o *Orchestrator) transition(ctx context.Context, run *TreatmentRun, to State, detail string) error {
	from := run.State
	tr, err := run.Advance(to, detail, o.now())
	if err != nil {
		return err
	}
	o.logger.Info("stage transition", "treatment", run.Treatment, "cultivar", run.Cultivar, "from", from, "to", to)
	if o.recorder != nil {
		o.recorder.RecordTransition(ctx, run, tr)
	}
	return nil
}

func (o *Orchestrator) request(run *TreatmentRun) artifacts.Request {
	return artifacts.Request{
		Treatment:            run.Treatment,
		Cultivar:             run.Cultivar,
		OutputDir:            run.OutputDir,
		CultivarFile:         o.cfg.FilePaths.CultivarFile,
		OverviewFile:         o.cfg.FilePaths.OverviewFile,
		PlantGrowthFile:      o.cfg.FilePaths.PlantGrowthFile,
		CultivarParameters:   o.cfg.CultivarParameters,
		OverviewVariables:    o.cfg.OverviewVariables,
		PlantGrowthVariables: o.cfg.PlantGrowthVariables,
		ModelCommandLine:     o.cfg.Commands.ModelCommandLine,
	}
}

func (o *Orchestrator) buildArtifacts(ctx context.Context, run *TreatmentRun) (string, error) {
	if err := os.MkdirAll(run.OutputDir, 0o755); err != nil {
		return "", failure.IO("create output directory", run.OutputDir, err)
	}
	set, err := artifacts.Build(ctx, o.generator, o.request(run))
	if err != nil {
		return "", err
	}
	run.Artifacts = set
	run.Control = set.Control
	run.Balanced = filepath.Join(run.OutputDir, artifacts.BalancedControlFile)
	return fmt.Sprintf("%d artifacts", len(set.Files())), nil
}

func (o *Orchestrator) validate(ctx context.Context, run *TreatmentRun) (string, error) {
	set := run.Artifacts
	if err := o.tools.SyntaxCheck(ctx, set.Template); err != nil {
		return "", err
	}
	if err := o.tools.InstructionCheck(ctx, set.OverviewInstructions, o.cfg.FilePaths.OverviewFile); err != nil {
		return "", err
	}
	if set.PlantGrowthInstructions != "" {
		plantGro := o.cfg.FilePaths.PlantGrowthFile
		if err := o.tools.FillSimulationLines(ctx, plantGro, run.Treatment, o.cfg.PlantGrowthVariables); err != nil {
			return "", err
		}
		if err := o.tools.InstructionCheck(ctx, set.PlantGrowthInstructions, plantGro); err != nil {
			return "", err
		}
	}
	if err := o.tools.FullDocumentCheck(ctx, run.Control); err != nil {
		return "", err
	}
	return "", nil
}

func (o *Orchestrator) adjustBaseline(_ context.Context, run *TreatmentRun) (string, error) {
	cal := o.cfg.Calibration
	err := cmdscript.SyncDirective(o.cfg.Commands.AuxiliaryScriptPath, run.Treatment,
		o.cfg.FilePaths.PlantGrowthFile, o.cfg.PlantGrowthVariables)
	if err != nil {
		return "", err
	}
	if err := pst.SetIterationBudget(run.Control, cal.BaselineIterationBudget); err != nil {
		return "", err
	}
	if err := pst.RemoveOptionalColumns(run.Control); err != nil {
		return "", err
	}
	scalars := []struct {
		name  pst.Scalar
		value float64
	}{
		{pst.DampingInit, cal.DampingInit},
		{pst.DampingFactor, cal.DampingFactor},
		{pst.RelativeImprovementThreshold, cal.RelativeImprovementThreshold},
		{pst.LambdaReductionFactor, cal.LambdaReductionFactor},
	}
	for _, s := range scalars {
		if err := pst.SetTuningScalar(run.Control, s.name, s.value); err != nil {
			return "", err
		}
	}
	return fmt.Sprintf("NOPTMAX=%d", cal.BaselineIterationBudget), nil
}

func (o *Orchestrator) runBaseline(ctx context.Context, run *TreatmentRun) (string, error) {
	return "", o.tools.RunEngine(ctx, run.Control)
}

func (o *Orchestrator) rebalance(ctx context.Context, run *TreatmentRun) (string, error) {
	if err := o.tools.RebalanceWeights(ctx, run.Control, run.Balanced, o.cfg.Calibration.RebalanceFactor); err != nil {
		return "", err
	}
	return run.Balanced, nil
}

func (o *Orchestrator) adjustFinal(_ context.Context, run *TreatmentRun) (string, error) {
	cal := o.cfg.Calibration
	if err := pst.SetIterationBudget(run.Balanced, cal.FinalIterationBudget); err != nil {
		return "", err
	}
	target := run.Balanced
	if cal.FinalColumnRemovalTarget == config.RemoveFromPrimary {
		target = run.Control
	}
	if err := pst.RemoveOptionalColumns(target); err != nil {
		return "", err
	}
	return fmt.Sprintf("NOPTMAX=%d", cal.FinalIterationBudget), nil
}

func (o *Orchestrator) runFinal(ctx context.Context, run *TreatmentRun) (string, error) {
	return "", o.tools.RunEngine(ctx, run.Balanced)
}
