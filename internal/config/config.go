// Package config loads the calibration directory's config.yaml.
//
// Unset keys keep their defaults: the file is decoded on top of Default().
// The treatment map and the cultivar parameter groups are decoded from the
// YAML node tree so their document order is kept.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"pestcal/internal/failure"
)

// DefaultFileName is looked up inside the calibration directory.
const DefaultFileName = "config.yaml"

// RemovalTarget selects which control document loses the optional
// parameter-group columns after rebalancing.
type RemovalTarget string

const (
	RemoveFromBalanced RemovalTarget = "balanced"
	RemoveFromPrimary  RemovalTarget = "primary"
)

// Treatment is one entry of treatmentCultivarMap.
type Treatment struct {
	ID       string
	Cultivar string
}

// ParameterGroup is one entry of cultivarParameters, e.g. P: [P1V, P1D].
type ParameterGroup struct {
	Name       string
	Parameters []string
}

type FilePaths struct {
	CultivarFile    string `yaml:"cultivarFile"`
	OverviewFile    string `yaml:"overviewFile"`
	PlantGrowthFile string `yaml:"plantGrowthFile"`
}

type Commands struct {
	ModelCommandLine    string `yaml:"modelCommandLine"`
	AuxiliaryScriptPath string `yaml:"auxiliaryScriptPath"`
}

// Tools holds executable names. Field order matches toolrun.Names so the two
// convert directly.
type Tools struct {
	SyntaxCheck         string `yaml:"syntaxCheck"`
	InstructionCheck    string `yaml:"instructionCheck"`
	FullDocumentCheck   string `yaml:"fullDocumentCheck"`
	Engine              string `yaml:"engine"`
	Rebalance           string `yaml:"rebalance"`
	FillSimulationLines string `yaml:"fillSimulationLines"`
	Generator           string `yaml:"generator"`
}

// Calibration holds the values written into the control documents.
type Calibration struct {
	BaselineIterationBudget      int           `yaml:"baselineIterationBudget"`
	FinalIterationBudget         int           `yaml:"finalIterationBudget"`
	DampingInit                  float64       `yaml:"dampingInit"`
	DampingFactor                float64       `yaml:"dampingFactor"`
	RelativeImprovementThreshold float64       `yaml:"relativeImprovementThreshold"`
	LambdaReductionFactor        float64       `yaml:"lambdaReductionFactor"`
	RebalanceFactor              float64       `yaml:"rebalanceFactor"`
	FinalColumnRemovalTarget     RemovalTarget `yaml:"finalColumnRemovalTarget"`
}

// Config models config.yaml.
type Config struct {
	Treatments           Treatments      `yaml:"treatmentCultivarMap"`
	PlantGrowthVariables []string        `yaml:"plantGrowthVariables"`
	OverviewVariables    []string        `yaml:"overviewVariables"`
	FilePaths            FilePaths       `yaml:"filePaths"`
	Commands             Commands        `yaml:"commands"`
	CultivarParameters   ParameterGroups `yaml:"cultivarParameters"`
	Tools                Tools           `yaml:"tools"`
	Calibration          Calibration     `yaml:"calibration"`

	// CalPath is the calibration directory; Path is the file that was read.
	CalPath string `yaml:"-"`
	Path    string `yaml:"-"`
}

// Default returns a config with every optional key at its default.
func Default() Config {
	return Config{
		CultivarParameters: ParameterGroups{
			{Name: "P", Parameters: []string{"P1V", "P1D"}},
			{Name: "P5", Parameters: []string{"P5"}},
			{Name: "G", Parameters: []string{"G1", "G2", "G3"}},
			{Name: "PHINT", Parameters: []string{"PHINT"}},
		},
		Tools: Tools{
			SyntaxCheck:         "tempchek",
			InstructionCheck:    "inschek",
			FullDocumentCheck:   "pestchek",
			Engine:              "PEST",
			Rebalance:           "pwtadj1",
			FillSimulationLines: "uplantgro",
			Generator:           "dpest",
		},
		Calibration: Calibration{
			BaselineIterationBudget:      0,
			FinalIterationBudget:         1000,
			DampingInit:                  5.0,
			DampingFactor:                2.0,
			RelativeImprovementThreshold: 0.3,
			LambdaReductionFactor:        0.03,
			RebalanceFactor:              1.0,
			FinalColumnRemovalTarget:     RemoveFromBalanced,
		},
	}
}

// Load reads file, or <calPath>/config.yaml when file is empty.
func Load(calPath, file string) (*Config, error) {
	path := file
	if path == "" {
		path = filepath.Join(calPath, DefaultFileName)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, failure.Configurationf("load config", "configuration file %s not found", path)
		}
		return nil, failure.Configuration("load config", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	cfg.CalPath = calPath
	cfg.Path = path
	return cfg, nil
}

// Parse decodes, normalizes and validates a config document.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, failure.Configuration("parse config", err)
	}
	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, failure.Configuration("validate config", err)
	}
	return &cfg, nil
}

// OutputDir is where the artifacts for cultivar live: the cultivar id with
// all whitespace removed, under the calibration directory.
func (c *Config) OutputDir(cultivar string) string {
	return filepath.Join(c.CalPath, FolderName(cultivar))
}

// HasPlantGrowth reports whether plant-growth observations are configured.
func (c *Config) HasPlantGrowth() bool { return len(c.PlantGrowthVariables) > 0 }

// InputFiles lists the files that must exist before the batch starts.
func (c *Config) InputFiles() []string {
	files := []string{c.FilePaths.CultivarFile, c.FilePaths.OverviewFile, c.Commands.AuxiliaryScriptPath}
	if c.HasPlantGrowth() {
		files = append(files, c.FilePaths.PlantGrowthFile)
	}
	return files
}

// FolderName removes every whitespace rune from a cultivar id.
func FolderName(cultivar string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, cultivar)
}

func (c *Config) normalize() {
	c.PlantGrowthVariables = cleanList(c.PlantGrowthVariables)
	c.OverviewVariables = cleanList(c.OverviewVariables)
	for i := range c.Treatments {
		c.Treatments[i].ID = strings.TrimSpace(c.Treatments[i].ID)
		c.Treatments[i].Cultivar = strings.TrimSpace(c.Treatments[i].Cultivar)
	}
	c.FilePaths.CultivarFile = strings.TrimSpace(c.FilePaths.CultivarFile)
	c.FilePaths.OverviewFile = strings.TrimSpace(c.FilePaths.OverviewFile)
	c.FilePaths.PlantGrowthFile = strings.TrimSpace(c.FilePaths.PlantGrowthFile)
	c.Commands.AuxiliaryScriptPath = strings.TrimSpace(c.Commands.AuxiliaryScriptPath)
	c.Commands.ModelCommandLine = strings.TrimSpace(c.Commands.ModelCommandLine)
	if c.Calibration.FinalColumnRemovalTarget == "" {
		c.Calibration.FinalColumnRemovalTarget = RemoveFromBalanced
	}
	c.Calibration.FinalColumnRemovalTarget = RemovalTarget(strings.ToLower(strings.TrimSpace(string(c.Calibration.FinalColumnRemovalTarget))))
}

func (c *Config) validate() error {
	var errs []error
	missing := func(key string) { errs = append(errs, fmt.Errorf("%s is required", key)) }

	if len(c.Treatments) == 0 {
		missing("treatmentCultivarMap")
	}
	seen := map[string]bool{}
	for _, t := range c.Treatments {
		if t.ID == "" {
			errs = append(errs, errors.New("treatmentCultivarMap: empty treatment id"))
			continue
		}
		if seen[t.ID] {
			errs = append(errs, fmt.Errorf("treatmentCultivarMap: duplicate treatment %q", t.ID))
		}
		seen[t.ID] = true
		if FolderName(t.Cultivar) == "" {
			errs = append(errs, fmt.Errorf("treatmentCultivarMap: treatment %q has no cultivar", t.ID))
		}
	}
	if len(c.OverviewVariables) == 0 {
		missing("overviewVariables")
	}
	if c.FilePaths.CultivarFile == "" {
		missing("filePaths.cultivarFile")
	}
	if c.FilePaths.OverviewFile == "" {
		missing("filePaths.overviewFile")
	}
	if c.HasPlantGrowth() && c.FilePaths.PlantGrowthFile == "" {
		missing("filePaths.plantGrowthFile")
	}
	if c.Commands.ModelCommandLine == "" {
		missing("commands.modelCommandLine")
	}
	if c.Commands.AuxiliaryScriptPath == "" {
		missing("commands.auxiliaryScriptPath")
	}
	if len(c.CultivarParameters) == 0 {
		missing("cultivarParameters")
	}
	for _, g := range c.CultivarParameters {
		if len(g.Parameters) == 0 {
			errs = append(errs, fmt.Errorf("cultivarParameters.%s: no parameters", g.Name))
		}
	}

	for _, tool := range []struct{ key, name string }{
		{"syntaxCheck", c.Tools.SyntaxCheck},
		{"instructionCheck", c.Tools.InstructionCheck},
		{"fullDocumentCheck", c.Tools.FullDocumentCheck},
		{"engine", c.Tools.Engine},
		{"rebalance", c.Tools.Rebalance},
		{"fillSimulationLines", c.Tools.FillSimulationLines},
		{"generator", c.Tools.Generator},
	} {
		if strings.TrimSpace(tool.name) == "" {
			errs = append(errs, fmt.Errorf("tools.%s must not be empty", tool.key))
		}
	}

	cal := c.Calibration
	if cal.BaselineIterationBudget < 0 {
		errs = append(errs, fmt.Errorf("calibration.baselineIterationBudget must be >= 0, got %d", cal.BaselineIterationBudget))
	}
	if cal.FinalIterationBudget < 0 {
		errs = append(errs, fmt.Errorf("calibration.finalIterationBudget must be >= 0, got %d", cal.FinalIterationBudget))
	}
	for _, scalar := range []struct {
		key string
		v   float64
	}{
		{"dampingInit", cal.DampingInit},
		{"dampingFactor", cal.DampingFactor},
		{"relativeImprovementThreshold", cal.RelativeImprovementThreshold},
		{"lambdaReductionFactor", cal.LambdaReductionFactor},
	} {
		if math.IsNaN(scalar.v) || math.IsInf(scalar.v, 0) {
			errs = append(errs, fmt.Errorf("calibration.%s must be finite", scalar.key))
		}
	}
	if !(cal.RebalanceFactor > 0) || math.IsInf(cal.RebalanceFactor, 0) {
		errs = append(errs, fmt.Errorf("calibration.rebalanceFactor must be > 0, got %v", cal.RebalanceFactor))
	}
	switch cal.FinalColumnRemovalTarget {
	case RemoveFromBalanced, RemoveFromPrimary:
	default:
		errs = append(errs, fmt.Errorf("calibration.finalColumnRemovalTarget must be %q or %q, got %q",
			RemoveFromBalanced, RemoveFromPrimary, cal.FinalColumnRemovalTarget))
	}

	return errors.Join(errs...)
}

func cleanList(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
