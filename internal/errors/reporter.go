package errors

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// Reporter renders CompilerErrors against a source buffer as Rust-style caret-pointing excerpts, grounded in the
// teacher's ErrorReporter.
type Reporter struct {
	filename string
	lines    []string
}

// NewReporter builds a Reporter bound to one source file's text.
func NewReporter(filename, source string) *Reporter {
	return &Reporter{
		filename: filename,
		lines:    strings.Split(source, "\n"),
	}
}

// Render formats one CompilerError as a colorized, multi-line message.
func (r *Reporter) Render(err *CompilerError) string {
	var b strings.Builder

	header := color.New(color.FgRed, color.Bold)
	header.Fprintf(&b, "error[%s]: %s\n", err.Code, err.Message)
	fmt.Fprintf(&b, "  --> %s:%d:%d\n", r.displayName(), err.Pos.Line, err.Pos.Column)

	if err.Pos.Line >= 1 && err.Pos.Line <= len(r.lines) {
		line := r.lines[err.Pos.Line-1]
		fmt.Fprintf(&b, "   |\n")
		fmt.Fprintf(&b, "%3d| %s\n", err.Pos.Line, line)
		caretCol := err.Pos.Column
		if caretCol < 1 {
			caretCol = 1
		}
		caret := strings.Repeat(" ", caretCol-1) + "^"
		color.New(color.FgHiRed).Fprintf(&b, "   | %s %s\n", caret, err.Kind)
	}

	return b.String()
}

func (r *Reporter) displayName() string {
	if r.filename == "" {
		return "<input>"
	}
	return r.filename
}

// RenderFatal returns err as a one-line red string (via color.RedString),
// used by the CLI driver for errors with no source-excerpt context (e.g. an
// interpreter error discovered with no live position, like InvalidTerminator
// against a resolved program).
func RenderFatal(err error) string {
	return color.RedString("error: %s", err.Error())
}
