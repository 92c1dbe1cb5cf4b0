// Package failure defines the error taxonomy shared by every calibration stage.
//
// None of these errors is recovered locally: a failing stage aborts its
// treatment, and a failing treatment aborts the batch.
package failure

import (
	"errors"
	"fmt"
	"strings"
)

// Kind sentinels. Match with errors.Is.
var (
	ErrConfiguration      = errors.New("configuration error")
	ErrArtifactGeneration = errors.New("artifact generation error")
	ErrValidation         = errors.New("validation failure")
	ErrExternalTool       = errors.New("external tool failure")
	ErrMalformedDocument  = errors.New("malformed document")
	ErrIO                 = errors.New("io failure")
)

// Error is the structured failure carried up to the batch entry point.
type Error struct {
	Kind error
	Op   string // operation, e.g. "set iteration budget" or "syntax check"
	Path string // file the operation targeted, when there is one

	// Tool fields are set when an external process exited nonzero.
	Tool       string
	Args       []string
	ExitStatus int

	Err error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Op != "" {
		b.WriteString(": ")
		b.WriteString(e.Op)
	}
	if e.Tool != "" {
		fmt.Fprintf(&b, ": command %q exited with status %d", commandLine(e.Tool, e.Args), e.ExitStatus)
	}
	if e.Path != "" {
		fmt.Fprintf(&b, " (%s)", e.Path)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Is reports kind equality so errors.Is(err, ErrValidation) works through wrapping.
func (e *Error) Is(target error) bool { return e.Kind == target }

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind sentinel of the first *Error in the chain, or nil.
func KindOf(err error) error {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return nil
}

// Configuration reports a missing file or required key.
func Configuration(op string, err error) error {
	return &Error{Kind: ErrConfiguration, Op: op, Err: err}
}

// Configurationf is Configuration with a formatted cause.
func Configurationf(op, format string, args ...any) error {
	return Configuration(op, fmt.Errorf(format, args...))
}

// Malformed reports a control document whose structure is not what the mutator expects.
func Malformed(op, path string, format string, args ...any) error {
	return &Error{Kind: ErrMalformedDocument, Op: op, Path: path, Err: fmt.Errorf(format, args...)}
}

// IO reports a read or write error on path.
func IO(op, path string, err error) error {
	return &Error{Kind: ErrIO, Op: op, Path: path, Err: err}
}

// ToolExit reports an external process that ran to completion with a nonzero status.
// kind is one of ErrArtifactGeneration, ErrValidation or ErrExternalTool.
func ToolExit(kind error, op, tool string, args []string, status int) error {
	return &Error{Kind: kind, Op: op, Tool: tool, Args: append([]string(nil), args...), ExitStatus: status}
}

// ToolStart reports an external process that could not be started or waited on.
func ToolStart(kind error, op, tool string, err error) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf("%s: %w", tool, err)}
}

func commandLine(tool string, args []string) string {
	if len(args) == 0 {
		return tool
	}
	return tool + " " + strings.Join(args, " ")
}
