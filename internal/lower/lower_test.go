package lower

import (
	"testing"

	"github.com/stretchr/testify/require"

	"blocklang/internal/ast"
	"blocklang/internal/cfg"
	"blocklang/internal/interp"
	"blocklang/internal/parser"
	"blocklang/internal/types"
)

// compileAndRun parses, lowers, builds the CFG, eliminates dead blocks, and
// interprets src end to end, returning the interpreter's result.
func compileAndRun(t *testing.T, src string, opts Options, inputs []types.Value) *interp.Result {
	t.Helper()
	prog, perrs, serrs := parser.ParseSource("t.blk", src)
	require.Empty(t, serrs)
	require.Empty(t, perrs)

	raw, err := LowerProgram(prog, opts)
	require.NoError(t, err)

	mainEntry := raw.Entries[raw.Main]
	graph, err := cfg.Build(raw.Blocks, mainEntry)
	require.NoError(t, err)

	relabeled := cfg.Relabel(raw.Blocks, mainEntry, graph.Reachable, raw.EntryParams)
	res, err := interp.Run(relabeled, inputs)
	require.NoError(t, err)
	return res
}

func TestTrivialMainReturnsLiteral(t *testing.T) {
	res := compileAndRun(t, "def main() -> field: return 0field", Options{}, nil)
	require.Equal(t, uint64(0), res.ReturnValue.Int)
}

func TestTwoArgumentCallAdds(t *testing.T) {
	src := `def foo(field a, field b) -> field: return a + b
def main() -> field: return foo(2field, 5field)`
	res := compileAndRun(t, src, Options{}, nil)
	require.Equal(t, uint64(7), res.ReturnValue.Int)
}

func TestMainEntryIsAlwaysGlobalLabelZeroRegardlessOfDeclarationOrder(t *testing.T) {
	src := `def foo(field a, field b) -> field: return a + b
def main() -> field: return foo(2field, 5field)`
	prog, perrs, serrs := parser.ParseSource("t.blk", src)
	require.Empty(t, serrs)
	require.Empty(t, perrs)

	raw, err := LowerProgram(prog, Options{})
	require.NoError(t, err)
	require.Equal(t, 0, raw.Entries[raw.Main])
}

func TestMainParametersBindToExternalInputs(t *testing.T) {
	src := "def main(field a, field b) -> field: return a + b"
	res := compileAndRun(t, src, Options{}, []types.Value{
		{Kind: types.KindField, Int: 10},
		{Kind: types.KindField, Int: 32},
	})
	require.Equal(t, uint64(42), res.ReturnValue.Int)
}

func TestIteratorSumOverRange(t *testing.T) {
	src := "def main() -> field: field s = 0field for field i in 0field..4field do s = s + i endfor return s"
	res := compileAndRun(t, src, Options{}, nil)
	require.Equal(t, uint64(0+1+2+3), res.ReturnValue.Int)
}

func TestConditionalShadowingTrueBranchRestoresOuterBinding(t *testing.T) {
	src := "def main() -> field: field x = 1field if true then field x = 2field endif return x"
	res := compileAndRun(t, src, Options{}, nil)
	require.Equal(t, uint64(1), res.ReturnValue.Int)
}

func TestConditionalShadowingFalseBranchKeepsOuterBinding(t *testing.T) {
	src := "def main() -> field: field x = 1field if false then field x = 2field endif return x"
	res := compileAndRun(t, src, Options{}, nil)
	require.Equal(t, uint64(1), res.ReturnValue.Int)
}

func TestCallInsideExpression(t *testing.T) {
	src := `def inc(field a) -> field: return a + 1field
def main() -> field: return inc(inc(1field))`
	res := compileAndRun(t, src, Options{}, nil)
	require.Equal(t, uint64(3), res.ReturnValue.Int)
}

func TestUnreachableAfterReturnIsEliminated(t *testing.T) {
	prog, perrs, serrs := parser.ParseSource("t.blk", "def main() -> field: return 1field")
	require.Empty(t, serrs)
	require.Empty(t, perrs)
	raw, err := LowerProgram(prog, Options{})
	require.NoError(t, err)

	mainEntry := raw.Entries[raw.Main]
	graph, err := cfg.Build(raw.Blocks, mainEntry)
	require.NoError(t, err)
	relabeled := cfg.Relabel(raw.Blocks, mainEntry, graph.Reachable, raw.EntryParams)

	// Dead-block elimination must have dropped at least the unreachable
	// blocks a naive lowering of a bare "return" leaves behind, and the
	// surviving program must still execute to the same answer.
	require.Less(t, len(relabeled.Blocks), len(raw.Blocks))

	res, err := interp.Run(relabeled, nil)
	require.NoError(t, err)
	require.Equal(t, uint64(1), res.ReturnValue.Int)
}

func TestParallelLoweringMatchesSequentialOutput(t *testing.T) {
	src := `def foo(field a, field b) -> field: return a + b
def bar(field a) -> field: return a * 2field
def main() -> field: return foo(bar(3field), 1field)`
	seq := compileAndRun(t, src, Options{Parallel: false}, nil)
	par := compileAndRun(t, src, Options{Parallel: true}, nil)
	require.Equal(t, seq.ReturnValue, par.ReturnValue)
}

func TestLowerProgramRejectsGenerics(t *testing.T) {
	prog := &ast.Program{Functions: []*ast.Function{
		{Name: "main", Generics: []string{"T"}, Return: ast.TypeField, Body: []ast.Stmt{
			&ast.ReturnStmt{Value: &ast.Literal{Kind: ast.LitDecimal, Decimal: "0", Suffix: ast.TypeField}},
		}},
	}}
	_, err := LowerProgram(prog, Options{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "Unsupported")
}

func TestLowerProgramRejectsMissingMain(t *testing.T) {
	prog := &ast.Program{Functions: []*ast.Function{
		{Name: "helper", Return: ast.TypeField, Body: []ast.Stmt{
			&ast.ReturnStmt{Value: &ast.Literal{Kind: ast.LitDecimal, Decimal: "0", Suffix: ast.TypeField}},
		}},
	}}
	_, err := LowerProgram(prog, Options{})
	require.Error(t, err)
}
