package display

import "testing"

func TestState(t *testing.T) {
	cases := []struct {
		code, want string
	}{
		{"INIT", "Init"},
		{"ARTIFACTS_BUILT", "Artifacts built"},
		{"REBALANCED", "Weights rebalanced"},
		{"FAILED", "Failed"},
		{"UNKNOWN", "UNKNOWN"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := State(tc.code); got != tc.want {
			t.Errorf("State(%q) = %q, want %q", tc.code, got, tc.want)
		}
	}
}

func TestStateWithCode(t *testing.T) {
	if got := StateWithCode("BASELINE_RUN"); got != "Baseline run (BASELINE_RUN)" {
		t.Errorf("got %q", got)
	}
	if got := StateWithCode("X"); got != "X" {
		t.Errorf("got %q", got)
	}
}

func TestStatePath(t *testing.T) {
	got := StatePath([]string{"INIT", "ARTIFACTS_BUILT", "VALIDATED"})
	want := "Init → Artifacts built → Validated"
	if got != want {
		t.Errorf("StatePath = %q, want %q", got, want)
	}
	if got := StatePath(nil); got != "" {
		t.Errorf("StatePath(nil) = %q", got)
	}
}

func TestToolRole(t *testing.T) {
	if got := ToolRole("engine"); got != "Estimation engine" {
		t.Errorf("got %q", got)
	}
	if got := ToolRole("other"); got != "other" {
		t.Errorf("got %q", got)
	}
}

func TestFailureKind(t *testing.T) {
	if got := FailureKind("validation failure"); got != "Validation" {
		t.Errorf("got %q", got)
	}
	if got := FailureKind("boom"); got != "" {
		t.Errorf("got %q", got)
	}
}
