// Package display provides human-readable names for machine codes.
//
// Rule: code is for machines, words are for humans.
// Use these functions in CLI output, markdown reports and logs.
// Keep raw codes in the ledger, map keys and equality comparisons.
package display

import "strings"

// --- Pipeline States ---

var states = map[string]string{
	"INIT":              "Init",
	"ARTIFACTS_BUILT":   "Artifacts built",
	"VALIDATED":         "Validated",
	"BASELINE_ADJUSTED": "Baseline adjusted",
	"BASELINE_RUN":      "Baseline run",
	"REBALANCED":        "Weights rebalanced",
	"FINAL_ADJUSTED":    "Final adjusted",
	"FINAL_RUN":         "Final run",
	"DONE":              "Done",
	"FAILED":            "Failed",
}

// State returns the human-readable name for a treatment state.
// "BASELINE_RUN" -> "Baseline run". Unknown codes are returned as-is.
func State(code string) string {
	if name, ok := states[code]; ok {
		return name
	}
	return code
}

// StateWithCode returns "Baseline run (BASELINE_RUN)" format.
func StateWithCode(code string) string {
	if name, ok := states[code]; ok {
		return name + " (" + code + ")"
	}
	return code
}

// StatePath converts a slice of state codes to a human-readable path.
// ["INIT", "ARTIFACTS_BUILT"] -> "Init → Artifacts built"
func StatePath(codes []string) string {
	names := make([]string, len(codes))
	for i, c := range codes {
		names[i] = State(c)
	}
	return strings.Join(names, " → ")
}

// --- Tool Roles ---

var toolRoles = map[string]string{
	"syntaxCheck":         "Template syntax check",
	"instructionCheck":    "Instruction file check",
	"fullDocumentCheck":   "Control file check",
	"engine":              "Estimation engine",
	"rebalance":           "Weight rebalancer",
	"fillSimulationLines": "Simulation line filler",
	"generator":           "Artifact generator",
}

// ToolRole returns the human-readable name for a tools config key.
// "rebalance" -> "Weight rebalancer".
func ToolRole(key string) string {
	if name, ok := toolRoles[key]; ok {
		return name
	}
	return key
}

// --- Failure Kinds ---

var failureKinds = map[string]string{
	"configuration error":       "Configuration",
	"artifact generation error": "Artifact generation",
	"validation failure":        "Validation",
	"external tool failure":     "External tool",
	"malformed document":        "Malformed document",
	"io failure":                "File I/O",
}

// FailureKind returns a short label for a failure kind message, or "" when
// the message names no known kind.
func FailureKind(kind string) string {
	return failureKinds[kind]
}
