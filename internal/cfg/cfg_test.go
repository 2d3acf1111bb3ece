package cfg

import (
	"testing"

	"github.com/stretchr/testify/require"

	"blocklang/internal/ast"
	"blocklang/internal/blockir"
)

func labelLit(n int) *ast.Literal {
	return &ast.Literal{Kind: ast.LitDecimal, Decimal: itoaHelper(n), Suffix: ast.TypeU32}
}

func itoaHelper(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

func TestBuildWalksLinearChain(t *testing.T) {
	blocks := []*blockir.Block{
		{Name: 0, Terminator: blockir.Transition{Expr: labelLit(1)}},
		{Name: 1, Terminator: blockir.ProgTerm{}},
	}
	g, err := Build(blocks, 0)
	require.NoError(t, err)
	require.True(t, g.Successor[0][1])
	require.True(t, g.Predecessor[1][0])
	require.Equal(t, []int{1}, g.Exits)
	require.True(t, g.Reachable[0])
	require.True(t, g.Reachable[1])
}

func TestBuildFollowsBothTernaryArms(t *testing.T) {
	blocks := []*blockir.Block{
		{Name: 0, Terminator: blockir.Transition{Expr: &ast.TernaryExpr{
			Cond: &ast.Literal{Kind: ast.LitBool, Bool: true},
			Then: labelLit(1),
			Else: labelLit(2),
		}}},
		{Name: 1, Terminator: blockir.ProgTerm{}},
		{Name: 2, Terminator: blockir.ProgTerm{}},
	}
	g, err := Build(blocks, 0)
	require.NoError(t, err)
	require.True(t, g.Successor[0][1])
	require.True(t, g.Successor[0][2])
	require.ElementsMatch(t, []int{1, 2}, g.Exits)
}

func TestBuildRejectsUnresolvedFuncCall(t *testing.T) {
	blocks := []*blockir.Block{
		{Name: 0, Terminator: blockir.FuncCall{Name: "f"}},
	}
	_, err := Build(blocks, 0)
	require.Error(t, err)
	require.Contains(t, err.Error(), "InvalidTerminator")
}

func TestBuildPropagatesRPSuccessorThroughCallReturn(t *testing.T) {
	// block 0 sets %RP := 2 then calls into block 1; block 1 returns via
	// %RP, which must resolve to block 2.
	setRP := blockir.StmtContent{S: &ast.DefStmt{Declares: false, Name: blockir.RegRP, Rhs: labelLit(2)}}
	blocks := []*blockir.Block{
		{Name: 0, Instructions: []blockir.BlockContent{setRP}, Terminator: blockir.Transition{Expr: labelLit(1)}},
		{Name: 1, Terminator: blockir.Transition{Expr: &ast.Ident{Value: blockir.RegRP}}},
		{Name: 2, Terminator: blockir.ProgTerm{}},
	}
	g, err := Build(blocks, 0)
	require.NoError(t, err)
	require.True(t, g.Successor[1][2])
	require.True(t, g.Reachable[2])
}

func TestBuildMarksRPContinuationBlockReachableBeforeRPSuccessorProvesIt(t *testing.T) {
	// block 0 sets %RP := 2 (the call's continuation) and transitions into
	// the callee at block 1. Block 2 is only ever reached through a later
	// Transition(%RP) inside block 1, so at the point block 0 is visited
	// nothing has proven block 2 reachable via RPSuccessor propagation yet;
	// the literal %RP assignment alone must mark it reachable per spec.md
	// §4.6, or Relabel would discard the continuation block entirely.
	setRP := blockir.StmtContent{S: &ast.DefStmt{Declares: false, Name: blockir.RegRP, Rhs: labelLit(2)}}
	blocks := []*blockir.Block{
		{Name: 0, Instructions: []blockir.BlockContent{setRP}, Terminator: blockir.Transition{Expr: labelLit(1)}},
		{Name: 1, Terminator: blockir.Transition{Expr: &ast.Ident{Value: blockir.RegRP}}},
		{Name: 2, Terminator: blockir.ProgTerm{}},
	}
	g, err := Build(blocks, 0)
	require.NoError(t, err)
	require.True(t, g.Reachable[2])

	prog := Relabel(blocks, 0, g.Reachable, nil)
	require.Len(t, prog.Blocks, 3)
}

func TestRelabelDropsUnreachableBlocksAndCompacts(t *testing.T) {
	blocks := []*blockir.Block{
		{Name: 0, Terminator: blockir.Transition{Expr: labelLit(2)}},
		{Name: 1, Terminator: blockir.ProgTerm{}}, // unreachable
		{Name: 2, Terminator: blockir.ProgTerm{}},
	}
	g, err := Build(blocks, 0)
	require.NoError(t, err)
	require.False(t, g.Reachable[1])

	prog := Relabel(blocks, 0, g.Reachable, []string{"a@0"})
	require.Len(t, prog.Blocks, 2)
	require.Equal(t, 0, prog.Entry)
	require.Equal(t, []string{"a@0"}, prog.EntryParams)

	term, ok := prog.Blocks[0].Terminator.(blockir.Transition)
	require.True(t, ok)
	lit, ok := term.Expr.(*ast.Literal)
	require.True(t, ok)
	require.Equal(t, "1", lit.Decimal)
}
