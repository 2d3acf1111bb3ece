package textfmt

import (
	"testing"

	"github.com/stretchr/testify/require"

	"blocklang/internal/ast"
	"blocklang/internal/blockir"
)

func TestParseRoundTripsSimpleProgram(t *testing.T) {
	prog := &blockir.Program{
		Entry: 0,
		Blocks: []*blockir.Block{
			{
				Name: 0,
				Instructions: []blockir.BlockContent{
					blockir.MemPush{Reg: "%RP", Offset: 0},
					blockir.StmtContent{S: &ast.DefStmt{
						Declares: true,
						Type:     ast.TypeU32,
						Name:     "a@0",
						Rhs:      &ast.Literal{Kind: ast.LitDecimal, Decimal: "1", Suffix: ast.TypeU32},
					}},
				},
				Terminator: blockir.ProgTerm{},
			},
		},
	}

	dump := blockir.Print(prog)
	reparsed, err := Parse("test.blkir", dump)
	require.NoError(t, err)
	require.Equal(t, 0, reparsed.Entry)
	require.Len(t, reparsed.Blocks, 1)
	require.Equal(t, dump, blockir.Print(reparsed))
}

func TestParseRoundTripsBinaryAndTernaryExpressions(t *testing.T) {
	prog := &blockir.Program{
		Entry: 0,
		Blocks: []*blockir.Block{
			{
				Name: 0,
				Terminator: blockir.Transition{Expr: &ast.TernaryExpr{
					Cond: &ast.BinaryExpr{Op: "<", Left: &ast.Ident{Value: "a@0"}, Right: &ast.Literal{Kind: ast.LitDecimal, Decimal: "2", Suffix: ast.TypeU32}},
					Then: &ast.Literal{Kind: ast.LitDecimal, Decimal: "1", Suffix: ast.TypeU32},
					Else: &ast.Literal{Kind: ast.LitDecimal, Decimal: "0", Suffix: ast.TypeU32},
				}},
			},
		},
	}

	dump := blockir.Print(prog)
	reparsed, err := Parse("test.blkir", dump)
	require.NoError(t, err)
	require.Equal(t, dump, blockir.Print(reparsed))
}

func TestParseRoundTripsUnaryExpression(t *testing.T) {
	prog := &blockir.Program{
		Entry: 0,
		Blocks: []*blockir.Block{
			{
				Name: 0,
				Instructions: []blockir.BlockContent{
					blockir.StmtContent{S: &ast.AssertStmt{Value: &ast.UnaryExpr{Op: "!", Operand: &ast.Ident{Value: "flag@0"}}}},
				},
				Terminator: blockir.ProgTerm{},
			},
		},
	}

	dump := blockir.Print(prog)
	reparsed, err := Parse("test.blkir", dump)
	require.NoError(t, err)
	require.Equal(t, dump, blockir.Print(reparsed))
}

func TestParseRejectsMalformedInput(t *testing.T) {
	_, err := Parse("test.blkir", "not a block program")
	require.Error(t, err)
}
