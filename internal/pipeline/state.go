package pipeline

import (
	"fmt"
	"time"

	"pestcal/internal/artifacts"
	"pestcal/internal/config"
)

// State is a stage of one treatment's calibration.
type State string

const (
	StateInit             State = "INIT"
	StateArtifactsBuilt   State = "ARTIFACTS_BUILT"
	StateValidated        State = "VALIDATED"
	StateBaselineAdjusted State = "BASELINE_ADJUSTED"
	StateBaselineRun      State = "BASELINE_RUN"
	StateRebalanced       State = "REBALANCED"
	StateFinalAdjusted    State = "FINAL_ADJUSTED"
	StateFinalRun         State = "FINAL_RUN"
	StateDone             State = "DONE"
	StateFailed           State = "FAILED"
)

var stateOrder = []State{
	StateInit,
	StateArtifactsBuilt,
	StateValidated,
	StateBaselineAdjusted,
	StateBaselineRun,
	StateRebalanced,
	StateFinalAdjusted,
	StateFinalRun,
	StateDone,
}

// Next returns the state that follows s on the success path, or "" for
// terminal states.
func (s State) Next() State {
	for i, st := range stateOrder[:len(stateOrder)-1] {
		if st == s {
			return stateOrder[i+1]
		}
	}
	return ""
}

// Terminal reports whether no further transition is allowed.
func (s State) Terminal() bool { return s == StateDone || s == StateFailed }

// Transition is one entry of a run's history.
type Transition struct {
	From   State
	To     State
	At     time.Time
	Detail string
}

// TreatmentRun is the in-memory state of one (treatment, cultivar) pair.
type TreatmentRun struct {
	Treatment string
	Cultivar  string
	OutputDir string

	// Control is the primary control document; Balanced is the rebalancer's output.
	Control   string
	Balanced  string
	Artifacts artifacts.Set

	State   State
	History []Transition
	Err     error

	Started  time.Time
	Finished time.Time
}

// InitRun creates a run starting at INIT.
func InitRun(t config.Treatment, outputDir string, now time.Time) *TreatmentRun {
	return &TreatmentRun{
		Treatment: t.ID,
		Cultivar:  t.Cultivar,
		OutputDir: outputDir,
		State:     StateInit,
		Started:   now,
	}
}

// Advance moves the run to next and records the transition. Only the next
// success-path state or FAILED may follow a non-terminal state.
func (r *TreatmentRun) Advance(next State, detail string, now time.Time) (Transition, error) {
	if r.State.Terminal() {
		return Transition{}, fmt.Errorf("treatment %s: no transition out of %s", r.Treatment, r.State)
	}
	if next != StateFailed && next != r.State.Next() {
		return Transition{}, fmt.Errorf("treatment %s: invalid transition %s -> %s", r.Treatment, r.State, next)
	}
	tr := Transition{From: r.State, To: next, At: now, Detail: detail}
	r.History = append(r.History, tr)
	r.State = next
	if next.Terminal() {
		r.Finished = now
	}
	return tr, nil
}

// Duration is the wall time from start to the terminal state, or zero while running.
func (r *TreatmentRun) Duration() time.Duration {
	if r.Finished.IsZero() {
		return 0
	}
	return r.Finished.Sub(r.Started)
}
