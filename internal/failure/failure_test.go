package failure

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_IsMatchesKindThroughWrapping(t *testing.T) {
	err := ToolExit(ErrValidation, "syntax check", "tempchek", []string{"CULTIVAR.TPL"}, 2)
	wrapped := fmt.Errorf("treatment 164: %w", err)

	if !errors.Is(wrapped, ErrValidation) {
		t.Fatalf("errors.Is(wrapped, ErrValidation) = false")
	}
	if errors.Is(wrapped, ErrExternalTool) {
		t.Fatalf("validation failure must not match ErrExternalTool")
	}
	if got := KindOf(wrapped); got != ErrValidation {
		t.Fatalf("KindOf = %v, want %v", got, ErrValidation)
	}
}

func TestError_MessageNamesCommandAndStatus(t *testing.T) {
	err := ToolExit(ErrExternalTool, "baseline run", "PEST", []string{"out/PEST_CONTROL.pst"}, 1)
	msg := err.Error()
	for _, want := range []string{"external tool failure", "baseline run", `"PEST out/PEST_CONTROL.pst"`, "status 1"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q missing %q", msg, want)
		}
	}
}

func TestError_UnwrapReachesCause(t *testing.T) {
	cause := errors.New("disk full")
	err := IO("write control document", "/tmp/x.pst", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("cause not reachable via errors.Is")
	}
	if !errors.Is(err, ErrIO) {
		t.Fatalf("kind not reachable via errors.Is")
	}
	if !strings.Contains(err.Error(), "/tmp/x.pst") {
		t.Errorf("path missing from %q", err.Error())
	}
}

func TestKindOf_PlainError(t *testing.T) {
	if got := KindOf(errors.New("plain")); got != nil {
		t.Fatalf("KindOf(plain) = %v, want nil", got)
	}
}
