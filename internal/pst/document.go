// Package pst parses and edits PEST control files in place.
//
// A control file has no key=value syntax: every value is located by its
// section, its data-line index within that section and its field index on
// that line. Document keeps every byte of the original (separators, line
// endings, comments, blank lines) so that Bytes reproduces the input exactly
// when nothing was edited, and an edit touches only the targeted field.
package pst

import (
	"bytes"
	"fmt"
	"strings"
)

// Section names as they appear after the leading "*".
const (
	SectionControlData      = "control data"
	SectionParameterGroups  = "parameter groups"
	SectionParameterData    = "parameter data"
	SectionObservationGroup = "observation groups"
	SectionObservationData  = "observation data"
	SectionModelCommandLine = "model command line"
	SectionModelInputOutput = "model input/output"
)

// line is one physical line; eol is "\n", "\r\n" or "" for an unterminated last line.
type line struct {
	text string
	eol  string
}

// Section is a "* name" header and the body lines that follow it up to the next header.
type Section struct {
	Name   string
	header int // index of the "* name" line
	start  int // first body line
	end    int // one past the last body line
}

// Document is a parsed control file.
type Document struct {
	lines    []line
	sections []Section
}

// Parse splits data into lines and sections. It fails when the file does not
// start with the "pcf" marker.
func Parse(data []byte) (*Document, error) {
	doc := &Document{lines: splitLines(data)}

	first := -1
	for i, l := range doc.lines {
		if strings.TrimSpace(l.text) != "" {
			first = i
			break
		}
	}
	if first < 0 || !strings.EqualFold(strings.TrimSpace(doc.lines[first].text), "pcf") {
		return nil, fmt.Errorf("missing pcf header line")
	}

	for i, l := range doc.lines {
		name, ok := sectionName(l.text)
		if !ok {
			continue
		}
		if n := len(doc.sections); n > 0 {
			doc.sections[n-1].end = i
		}
		doc.sections = append(doc.sections, Section{Name: name, header: i, start: i + 1, end: len(doc.lines)})
	}
	return doc, nil
}

// Bytes serializes the document. An unedited document round-trips byte for byte.
func (d *Document) Bytes() []byte {
	var buf bytes.Buffer
	for _, l := range d.lines {
		buf.WriteString(l.text)
		buf.WriteString(l.eol)
	}
	return buf.Bytes()
}

// Sections returns the section names in file order.
func (d *Document) Sections() []string {
	names := make([]string, len(d.sections))
	for i, s := range d.sections {
		names[i] = s.Name
	}
	return names
}

// Section returns the first section with the given name.
func (d *Document) Section(name string) (Section, bool) {
	for _, s := range d.sections {
		if s.Name == name {
			return s, true
		}
	}
	return Section{}, false
}

// dataLines returns the indexes of the section's data lines: body lines that
// are neither blank nor "#" comments.
func (d *Document) dataLines(s Section) []int {
	var out []int
	for i := s.start; i < s.end; i++ {
		if isDataLine(d.lines[i].text) {
			out = append(out, i)
		}
	}
	return out
}

// DataLines returns the text of the section's data lines.
func (d *Document) DataLines(section string) ([]string, error) {
	s, ok := d.Section(section)
	if !ok {
		return nil, fmt.Errorf("section %q not found", section)
	}
	var out []string
	for _, i := range d.dataLines(s) {
		out = append(out, d.lines[i].text)
	}
	return out, nil
}

// FieldRef addresses one positional value: the field-th token on the
// dataLine-th data line of a section. MinFields is the number of tokens the
// line must carry for the position to be trusted.
type FieldRef struct {
	Section   string
	DataLine  int
	Field     int
	MinFields int
	Label     string // PEST variable name, used in error messages
}

// locate resolves ref to a line index and its tokenized fields.
func (d *Document) locate(ref FieldRef) (int, *fields, error) {
	s, ok := d.Section(ref.Section)
	if !ok {
		return 0, nil, fmt.Errorf("section %q not found", ref.Section)
	}
	data := d.dataLines(s)
	if ref.DataLine >= len(data) {
		return 0, nil, fmt.Errorf("section %q has %d data lines, %s expected on line %d",
			ref.Section, len(data), ref.Label, ref.DataLine+1)
	}
	idx := data[ref.DataLine]
	f := splitFields(d.lines[idx].text)
	if len(f.toks) < ref.MinFields || ref.Field >= len(f.toks) {
		return 0, nil, fmt.Errorf("section %q line %d: %s needs at least %d fields, found %d",
			ref.Section, ref.DataLine+1, ref.Label, ref.MinFields, len(f.toks))
	}
	return idx, f, nil
}

// Field returns the current text of the referenced value.
func (d *Document) Field(ref FieldRef) (string, error) {
	_, f, err := d.locate(ref)
	if err != nil {
		return "", err
	}
	return f.toks[ref.Field], nil
}

// SetField replaces the referenced value and reports whether the line changed.
// Sibling fields keep their text; the next column keeps its start offset when
// the separator allows it.
func (d *Document) SetField(ref FieldRef, value string) (bool, error) {
	if value == "" || strings.ContainsAny(value, " \t\r\n") {
		return false, fmt.Errorf("%s: invalid field value %q", ref.Label, value)
	}
	idx, f, err := d.locate(ref)
	if err != nil {
		return false, err
	}
	if !f.set(ref.Field, value) {
		return false, nil
	}
	d.lines[idx].text = f.join()
	return true, nil
}

func splitLines(data []byte) []line {
	var out []line
	s := string(data)
	for len(s) > 0 {
		i := strings.IndexByte(s, '\n')
		if i < 0 {
			out = append(out, line{text: s})
			break
		}
		text, eol := s[:i], "\n"
		if strings.HasSuffix(text, "\r") {
			text, eol = text[:len(text)-1], "\r\n"
		}
		out = append(out, line{text: text, eol: eol})
		s = s[i+1:]
	}
	return out
}

func sectionName(text string) (string, bool) {
	t := strings.TrimSpace(text)
	if !strings.HasPrefix(t, "*") {
		return "", false
	}
	return strings.ToLower(strings.Join(strings.Fields(t[1:]), " ")), true
}

func isDataLine(text string) bool {
	t := strings.TrimSpace(text)
	return t != "" && !strings.HasPrefix(t, "#")
}
