package cmdscript

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"pestcal/internal/failure"
)

const baseScript = `import os
from dpest.wheat.utils import uplantgro

os.chdir(r"C:\DSSAT48\Wheat")
os.system("DSCSM048.EXE A SWSW7501.WHX")
`

func writeScript(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "command.py")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func directiveLines(s string) []string {
	var out []string
	for _, l := range strings.Split(s, "\n") {
		if IsDirective(l) {
			out = append(out, strings.TrimRight(l, "\r"))
		}
	}
	return out
}

func TestDirective_Format(t *testing.T) {
	got := Directive("PlantGro.OUT", "164", []string{"LAID", "CWAD", "T#AD"})
	want := "uplantgro('PlantGro.OUT', '164', ['LAID', 'CWAD', 'T#AD'])"
	if got != want {
		t.Errorf("Directive = %q, want %q", got, want)
	}
}

func TestDirective_EscapesPythonLiterals(t *testing.T) {
	got := Directive(`C:\DSSAT48\Wheat\PlantGro.OUT`, "it's", []string{"LAID"})
	want := `uplantgro('C:\\DSSAT48\\Wheat\\PlantGro.OUT', 'it\'s', ['LAID'])`
	if got != want {
		t.Errorf("Directive = %q, want %q", got, want)
	}
}

// Two stale directives for T1; one sync for T2 leaves exactly one, for T2.
func TestSyncDirective_ReplacesStaleDirectives(t *testing.T) {
	script := baseScript +
		"uplantgro('PlantGro.OUT', 'T1', ['LAID'])\n" +
		"  uplantgro('PlantGro.OUT', 'T1', ['CWAD'])\n"
	path := writeScript(t, script)

	if err := SyncDirective(path, "T2", "PlantGro.OUT", []string{"LAID", "CWAD"}); err != nil {
		t.Fatalf("SyncDirective: %v", err)
	}
	got, _ := os.ReadFile(path)

	want := []string{"uplantgro('PlantGro.OUT', 'T2', ['LAID', 'CWAD'])"}
	if diff := cmp.Diff(want, directiveLines(string(got))); diff != "" {
		t.Errorf("directives (-want +got):\n%s", diff)
	}
	if !strings.HasPrefix(string(got), baseScript) {
		t.Errorf("non-directive lines changed:\n%s", got)
	}
}

func TestSyncDirective_SequenceKeepsAtMostOne(t *testing.T) {
	path := writeScript(t, baseScript)
	calls := []struct {
		treatment string
		vars      []string
	}{
		{"164", []string{"LAID"}},
		{"165", []string{"LAID", "CWAD"}},
		{"166", nil},
		{"167", []string{"T#AD"}},
		{"167", []string{"T#AD"}},
	}
	for _, c := range calls {
		if err := SyncDirective(path, c.treatment, "PlantGro.OUT", c.vars); err != nil {
			t.Fatalf("SyncDirective(%s): %v", c.treatment, err)
		}
		got, _ := os.ReadFile(path)
		dirs := directiveLines(string(got))
		if len(c.vars) == 0 {
			if len(dirs) != 0 {
				t.Errorf("after %s: directives = %v, want none", c.treatment, dirs)
			}
			continue
		}
		want := []string{Directive("PlantGro.OUT", c.treatment, c.vars)}
		if diff := cmp.Diff(want, dirs); diff != "" {
			t.Errorf("after %s (-want +got):\n%s", c.treatment, diff)
		}
	}
}

func TestPatch_NeverEndsWithBlankLine(t *testing.T) {
	inputs := map[string]string{
		"clean":             baseScript,
		"trailing blanks":   baseScript + "\n\n   \n",
		"no final newline":  strings.TrimSuffix(baseScript, "\n"),
		"crlf with blanks":  strings.ReplaceAll(baseScript, "\n", "\r\n") + "\r\n\r\n",
		"directive at tail": baseScript + "uplantgro('x', '1', ['LAID'])\n\n",
		"empty":             "",
		"only blanks":       "\n\n\n",
	}
	for name, in := range inputs {
		for _, vars := range [][]string{nil, {"LAID"}} {
			out := Patch(in, "164", "PlantGro.OUT", vars)
			trimmed := strings.TrimSuffix(strings.TrimSuffix(out, "\n"), "\r")
			if out != "" && strings.HasSuffix(trimmed, "\n") {
				t.Errorf("%s vars=%v: output ends with blank line: %q", name, vars, out)
			}
			if lines := strings.Split(trimmed, "\n"); out != "" && strings.TrimSpace(lines[len(lines)-1]) == "" {
				t.Errorf("%s vars=%v: last line blank: %q", name, vars, out)
			}
		}
	}
}

func TestPatch_TerminatesLastLineBeforeAppending(t *testing.T) {
	out := Patch("print('done')", "164", "PlantGro.OUT", []string{"LAID"})
	want := "print('done')\nuplantgro('PlantGro.OUT', '164', ['LAID'])\n"
	if out != want {
		t.Errorf("Patch = %q, want %q", out, want)
	}
}

func TestPatch_KeepsCRLF(t *testing.T) {
	in := "import os\r\nos.system('run')\r\n"
	out := Patch(in, "164", "PlantGro.OUT", []string{"LAID"})
	want := in + "uplantgro('PlantGro.OUT', '164', ['LAID'])\r\n"
	if out != want {
		t.Errorf("Patch = %q, want %q", out, want)
	}
}

func TestPatch_RemovalOnlyWithoutVariables(t *testing.T) {
	in := baseScript + "uplantgro('PlantGro.OUT', '164', ['LAID'])\n"
	out := Patch(in, "165", "PlantGro.OUT", nil)
	if out != baseScript {
		t.Errorf("Patch = %q, want %q", out, baseScript)
	}
}

func TestSyncDirective_MissingScript(t *testing.T) {
	err := SyncDirective(filepath.Join(t.TempDir(), "absent.py"), "164", "PlantGro.OUT", []string{"LAID"})
	if !errors.Is(err, failure.ErrIO) {
		t.Fatalf("err = %v, want io failure", err)
	}
}
