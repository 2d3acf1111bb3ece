package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"blocklang/internal/ast"
)

func TestReporterRendersCaretAtPosition(t *testing.T) {
	source := "field x = 1\nreturn y\n"
	r := NewReporter("test.blk", source)

	err := UndefinedBeforeUse(ast.Position{Filename: "test.blk", Line: 2, Column: 8}, "y")
	out := r.Render(err)

	require.Contains(t, out, "E1002")
	require.Contains(t, out, "UndefinedBeforeUse")
	require.Contains(t, out, "return y")
}

func TestCompilerErrorMessage(t *testing.T) {
	err := TypeMismatch(ast.Position{Line: 1, Column: 1}, "expected %s got %s", "field", "bool")
	require.Equal(t, "E1003: TypeMismatch: expected field got bool", err.Error())
}

func TestCompilerErrorVerboseFormatIncludesStack(t *testing.T) {
	err := Unsupported(ast.Position{Line: 3, Column: 4}, "generics are not supported")
	out := fmt.Sprintf("%+v", err)
	require.Contains(t, out, "E1001")
	require.Contains(t, out, "TestCompilerErrorVerboseFormatIncludesStack")
}
