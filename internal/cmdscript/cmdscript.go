// Package cmdscript keeps the model's post-processing command script in step
// with the treatment being calibrated.
//
// The script is shared by every treatment and holds at most one generated
// directive line. Each sync removes whatever directive is there and, when the
// treatment has plant-growth variables, appends a fresh one: last writer wins.
package cmdscript

import (
	"fmt"
	"os"
	"strings"

	"pestcal/internal/failure"
	"pestcal/internal/fileutil"
)

// DirectiveMarker starts every generated directive line.
const DirectiveMarker = "uplantgro("

// Directive renders the line that fills incomplete simulation rows of dataFile
// for treatment, e.g. uplantgro('PlantGro.OUT', '164', ['LAID', 'CWAD']).
func Directive(dataFile, treatment string, variables []string) string {
	quoted := make([]string, len(variables))
	for i, v := range variables {
		quoted[i] = pyQuote(v)
	}
	return fmt.Sprintf("%s%s, %s, [%s])", DirectiveMarker, pyQuote(dataFile), pyQuote(treatment), strings.Join(quoted, ", "))
}

// IsDirective reports whether a script line is a generated directive.
func IsDirective(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), DirectiveMarker)
}

// SyncDirective rewrites scriptPath so it holds exactly one directive for
// treatment when variables is non-empty, and none otherwise. Trailing blank
// lines are dropped. The file is rewritten in a single atomic write.
func SyncDirective(scriptPath, treatment, dataFile string, variables []string) error {
	const op = "sync command script directive"
	data, err := os.ReadFile(scriptPath)
	if err != nil {
		return failure.IO(op, scriptPath, err)
	}
	out := Patch(string(data), treatment, dataFile, variables)
	if err := fileutil.WriteAtomic(scriptPath, []byte(out)); err != nil {
		return failure.IO(op, scriptPath, err)
	}
	return nil
}

// Patch is the pure text transform behind SyncDirective.
func Patch(script, treatment, dataFile string, variables []string) string {
	eol := "\n"
	if strings.Contains(script, "\r\n") {
		eol = "\r\n"
	}

	lines := splitKeepEOL(script)
	kept := lines[:0]
	for _, l := range lines {
		if !IsDirective(l) {
			kept = append(kept, l)
		}
	}
	for len(kept) > 0 && strings.TrimSpace(kept[len(kept)-1]) == "" {
		kept = kept[:len(kept)-1]
	}

	if len(variables) > 0 {
		if n := len(kept); n > 0 && !strings.HasSuffix(kept[n-1], "\n") {
			kept[n-1] += eol
		}
		kept = append(kept, Directive(dataFile, treatment, variables)+eol)
	}
	return strings.Join(kept, "")
}

// splitKeepEOL splits s after every "\n", keeping the terminators.
func splitKeepEOL(s string) []string {
	var out []string
	for len(s) > 0 {
		i := strings.IndexByte(s, '\n')
		if i < 0 {
			out = append(out, s)
			break
		}
		out = append(out, s[:i+1])
		s = s[i+1:]
	}
	return out
}

// pyQuote renders s as a single-quoted Python string literal.
func pyQuote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`, "\n", `\n`, "\r", `\r`)
	return "'" + r.Replace(s) + "'"
}
