package pst

import "strings"

// fields is a whitespace-tokenized line that remembers its separators:
// seps[i] precedes toks[i] and tail follows the last token, so join is the
// exact inverse of splitFields.
type fields struct {
	seps []string
	toks []string
	tail string
}

func splitFields(text string) *fields {
	f := &fields{}
	i := 0
	for i < len(text) {
		j := i
		for j < len(text) && isSpace(text[j]) {
			j++
		}
		if j == len(text) {
			f.tail = text[i:]
			break
		}
		k := j
		for k < len(text) && !isSpace(text[k]) {
			k++
		}
		f.seps = append(f.seps, text[i:j])
		f.toks = append(f.toks, text[j:k])
		i = k
	}
	return f
}

func (f *fields) join() string {
	var b strings.Builder
	for i, t := range f.toks {
		b.WriteString(f.seps[i])
		b.WriteString(t)
	}
	b.WriteString(f.tail)
	return b.String()
}

// set replaces token i. When the following separator is made of spaces only,
// it is widened or narrowed (never below one space) so the next column keeps
// its offset. Reports whether anything changed.
func (f *fields) set(i int, value string) bool {
	old := f.toks[i]
	if old == value {
		return false
	}
	f.toks[i] = value
	if i+1 < len(f.toks) && isSpaces(f.seps[i+1]) {
		width := len(f.seps[i+1]) + len(old) - len(value)
		if width < 1 {
			width = 1
		}
		f.seps[i+1] = strings.Repeat(" ", width)
	}
	return true
}

// drop removes token i together with its leading separator.
func (f *fields) drop(i int) {
	f.seps = append(f.seps[:i], f.seps[i+1:]...)
	f.toks = append(f.toks[:i], f.toks[i+1:]...)
}

func isSpace(c byte) bool { return c == ' ' || c == '\t' }

func isSpaces(s string) bool {
	return s != "" && strings.Trim(s, " ") == ""
}
