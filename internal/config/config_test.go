package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"pestcal/internal/failure"
)

const sampleConfig = `
treatmentCultivarMap:
  "164": IB1500 MANITOU
  "162": IB0488 NEWTON
  165: IB1500 MANITOU
plantGrowthVariables: [LAID, CWAD, T#AD]
overviewVariables:
  - Anthesis (DAP)
  - Maturity (DAP)
  - Product wt (kg dm/ha;no loss)
filePaths:
  cultivarFile: C:\DSSAT48\Genotype\WHCER048.CUL
  overviewFile: C:\DSSAT48\Wheat\OVERVIEW.OUT
  plantGrowthFile: C:\DSSAT48\Wheat\PlantGro.OUT
commands:
  modelCommandLine: py "C:\pest18\run_dssat.py"
  auxiliaryScriptPath: C:\pest18\run_dssat.py
`

func TestParse_KeepsTreatmentOrder(t *testing.T) {
	cfg, err := Parse([]byte(sampleConfig))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := Treatments{
		{ID: "164", Cultivar: "IB1500 MANITOU"},
		{ID: "162", Cultivar: "IB0488 NEWTON"},
		{ID: "165", Cultivar: "IB1500 MANITOU"},
	}
	if diff := cmp.Diff(want, cfg.Treatments); diff != "" {
		t.Errorf("treatments (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"LAID", "CWAD", "T#AD"}, cfg.PlantGrowthVariables); diff != "" {
		t.Errorf("plant growth variables (-want +got):\n%s", diff)
	}
	if cfg.FilePaths.CultivarFile != `C:\DSSAT48\Genotype\WHCER048.CUL` {
		t.Errorf("cultivar file = %q", cfg.FilePaths.CultivarFile)
	}
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(sampleConfig))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	def := Default()
	if diff := cmp.Diff(def.Calibration, cfg.Calibration); diff != "" {
		t.Errorf("calibration (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(def.Tools, cfg.Tools); diff != "" {
		t.Errorf("tools (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(def.CultivarParameters, cfg.CultivarParameters); diff != "" {
		t.Errorf("cultivar parameters (-want +got):\n%s", diff)
	}
	if cfg.Calibration.FinalColumnRemovalTarget != RemoveFromBalanced {
		t.Errorf("removal target = %q", cfg.Calibration.FinalColumnRemovalTarget)
	}
}

func TestParse_Overrides(t *testing.T) {
	doc := sampleConfig + `
cultivarParameters:
  G: G1, G2
  P: [P1V]
tools:
  engine: pest_hp
calibration:
  finalIterationBudget: 50
  dampingInit: 10
  finalColumnRemovalTarget: Primary
`
	cfg, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	wantGroups := ParameterGroups{
		{Name: "G", Parameters: []string{"G1", "G2"}},
		{Name: "P", Parameters: []string{"P1V"}},
	}
	if diff := cmp.Diff(wantGroups, cfg.CultivarParameters); diff != "" {
		t.Errorf("cultivar parameters (-want +got):\n%s", diff)
	}
	if cfg.Tools.Engine != "pest_hp" || cfg.Tools.Rebalance != "pwtadj1" {
		t.Errorf("tools = %+v", cfg.Tools)
	}
	if cfg.Calibration.FinalIterationBudget != 50 || cfg.Calibration.DampingInit != 10 {
		t.Errorf("calibration = %+v", cfg.Calibration)
	}
	if cfg.Calibration.DampingFactor != 2.0 {
		t.Errorf("unset damping factor lost its default: %v", cfg.Calibration.DampingFactor)
	}
	if cfg.Calibration.FinalColumnRemovalTarget != RemoveFromPrimary {
		t.Errorf("removal target = %q", cfg.Calibration.FinalColumnRemovalTarget)
	}
}

func TestParse_NullPlantGrowthVariables(t *testing.T) {
	doc := strings.Replace(sampleConfig, "plantGrowthVariables: [LAID, CWAD, T#AD]", "plantGrowthVariables:", 1)
	doc = strings.Replace(doc, `  plantGrowthFile: C:\DSSAT48\Wheat\PlantGro.OUT`+"\n", "", 1)
	cfg, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.HasPlantGrowth() {
		t.Errorf("HasPlantGrowth = true, variables %v", cfg.PlantGrowthVariables)
	}
	for _, f := range cfg.InputFiles() {
		if strings.Contains(f, "PlantGro") {
			t.Errorf("InputFiles includes %s without plant growth variables", f)
		}
	}
}

func TestParse_Invalid(t *testing.T) {
	cases := []struct {
		name    string
		doc     string
		wantMsg string
	}{
		{"empty", "", "treatmentCultivarMap is required"},
		{"treatments not a map", "treatmentCultivarMap: [a, b]\n", "must be a mapping"},
		{"duplicate treatment", strings.Replace(sampleConfig, `  165: IB1500 MANITOU`, `  164: IB0488 NEWTON`, 1), "duplicate treatment"},
		{"blank cultivar", strings.Replace(sampleConfig, `"162": IB0488 NEWTON`, `"162": "  "`, 1), "has no cultivar"},
		{"no overview variables", strings.Replace(sampleConfig, "overviewVariables:", "overviewVariables: []\nunused:", 1), "overviewVariables is required"},
		{"plant growth without file", strings.Replace(sampleConfig, `  plantGrowthFile: C:\DSSAT48\Wheat\PlantGro.OUT`, "", 1), "filePaths.plantGrowthFile is required"},
		{"no script", strings.Replace(sampleConfig, `  auxiliaryScriptPath: C:\pest18\run_dssat.py`, "", 1), "commands.auxiliaryScriptPath is required"},
		{"negative budget", sampleConfig + "calibration:\n  finalIterationBudget: -1\n", "finalIterationBudget must be >= 0"},
		{"zero rebalance", sampleConfig + "calibration:\n  rebalanceFactor: 0\n", "rebalanceFactor must be > 0"},
		{"bad target", sampleConfig + "calibration:\n  finalColumnRemovalTarget: both\n", "finalColumnRemovalTarget must be"},
		{"empty tool", sampleConfig + "tools:\n  engine: \"\"\n", "tools.engine must not be empty"},
		{"bad yaml", "treatmentCultivarMap: {a: [\n", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.doc))
			if !errors.Is(err, failure.ErrConfiguration) {
				t.Fatalf("err = %v, want configuration error", err)
			}
			if tc.wantMsg != "" && !strings.Contains(err.Error(), tc.wantMsg) {
				t.Errorf("err = %q, want it to mention %q", err, tc.wantMsg)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	calPath := t.TempDir()
	if err := os.WriteFile(filepath.Join(calPath, DefaultFileName), []byte(sampleConfig), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(calPath, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.CalPath != calPath || cfg.Path != filepath.Join(calPath, DefaultFileName) {
		t.Errorf("paths = %q, %q", cfg.CalPath, cfg.Path)
	}
	if got, want := cfg.OutputDir("IB1500 MANITOU"), filepath.Join(calPath, "IB1500MANITOU"); got != want {
		t.Errorf("OutputDir = %q, want %q", got, want)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(t.TempDir(), "")
	if !errors.Is(err, failure.ErrConfiguration) {
		t.Fatalf("err = %v, want configuration error", err)
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("err = %q", err)
	}
}

func TestFolderName(t *testing.T) {
	cases := map[string]string{
		"IB1500 MANITOU":   "IB1500MANITOU",
		" IB0488\tNEWTON ": "IB0488NEWTON",
		"IB0488":           "IB0488",
		"A \u00a0B\n":      "AB",
	}
	for in, want := range cases {
		if got := FolderName(in); got != want {
			t.Errorf("FolderName(%q) = %q, want %q", in, got, want)
		}
	}
}
