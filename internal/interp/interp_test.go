package interp

import (
	"testing"

	"github.com/stretchr/testify/require"

	"blocklang/internal/ast"
	"blocklang/internal/blockir"
	"blocklang/internal/types"
)

func u32(n uint64) *ast.Literal {
	return &ast.Literal{Kind: ast.LitDecimal, Decimal: itoa(n), Suffix: ast.TypeU32}
}

func itoa(n uint64) string {
	if n == 0 {
		return "0"
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

func assignRet(rhs ast.Expr) blockir.BlockContent {
	return blockir.StmtContent{S: &ast.DefStmt{Name: blockir.RegRET, Type: ast.TypeU32, Rhs: rhs}}
}

func TestRunTrivialReturnsLiteral(t *testing.T) {
	prog := &blockir.Program{
		Entry: 0,
		Blocks: []*blockir.Block{
			{Name: 0, Instructions: []blockir.BlockContent{assignRet(u32(7))}, Terminator: blockir.ProgTerm{}},
		},
	}
	res, err := Run(prog, nil)
	require.NoError(t, err)
	require.Equal(t, uint64(7), res.ReturnValue.Int)
	require.Equal(t, 1, res.BlockCounts[0])
}

func TestRunBindsEntryParamsToInputRegisters(t *testing.T) {
	prog := &blockir.Program{
		Entry:       0,
		EntryParams: []string{"a@0", "b@0"},
		Blocks: []*blockir.Block{
			{
				Name: 0,
				Instructions: []blockir.BlockContent{
					assignRet(&ast.BinaryExpr{Op: "+", Left: &ast.Ident{Value: "a@0"}, Right: &ast.Ident{Value: "b@0"}}),
				},
				Terminator: blockir.ProgTerm{},
			},
		},
	}
	res, err := Run(prog, []types.Value{
		{Kind: types.KindU32, Int: 3},
		{Kind: types.KindU32, Int: 4},
	})
	require.NoError(t, err)
	require.Equal(t, uint64(7), res.ReturnValue.Int)
}

func TestRunRejectsWrongInputCount(t *testing.T) {
	prog := &blockir.Program{Entry: 0, EntryParams: []string{"a@0"}, Blocks: []*blockir.Block{
		{Name: 0, Terminator: blockir.ProgTerm{}},
	}}
	_, err := Run(prog, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "TypeMismatch")
}

func TestRunFollowsTransitionBetweenBlocks(t *testing.T) {
	prog := &blockir.Program{
		Entry: 0,
		Blocks: []*blockir.Block{
			{Name: 0, Terminator: blockir.Transition{Expr: u32(1)}},
			{Name: 1, Instructions: []blockir.BlockContent{assignRet(u32(42))}, Terminator: blockir.ProgTerm{}},
		},
	}
	res, err := Run(prog, nil)
	require.NoError(t, err)
	require.Equal(t, uint64(42), res.ReturnValue.Int)
	require.Equal(t, 1, res.BlockCounts[0])
	require.Equal(t, 1, res.BlockCounts[1])
}

func TestRunStoreThenLoadRoundTripsThroughVirtualHeap(t *testing.T) {
	prog := &blockir.Program{
		Entry: 0,
		Blocks: []*blockir.Block{
			{
				Name: 0,
				Instructions: []blockir.BlockContent{
					blockir.ArrayInit{Arr: "arr@0", LenExpr: u32(4)},
					blockir.Store{Arr: "arr@0", IdxExpr: u32(0), ValExpr: u32(9), Init: true},
					blockir.Load{Var: "x@0", Ty: types.KindU32, Arr: "arr@0", IdxExpr: u32(0)},
					assignRet(&ast.Ident{Value: "x@0"}),
				},
				Terminator: blockir.ProgTerm{},
			},
		},
	}
	res, err := Run(prog, nil)
	require.NoError(t, err)
	require.Equal(t, uint64(9), res.ReturnValue.Int)
	require.Len(t, res.Virtual, 2)
	require.True(t, res.Virtual[0].IsStore)
	require.False(t, res.Virtual[1].IsStore)
}

func TestRunLoadFromUninitializedMemoryFails(t *testing.T) {
	prog := &blockir.Program{
		Entry: 0,
		Blocks: []*blockir.Block{
			{
				Name: 0,
				Instructions: []blockir.BlockContent{
					blockir.ArrayInit{Arr: "arr@0", LenExpr: u32(4)},
					blockir.Load{Var: "x@0", Ty: types.KindU32, Arr: "arr@0", IdxExpr: u32(0)},
				},
				Terminator: blockir.ProgTerm{},
			},
		},
	}
	_, err := Run(prog, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "UninitializedMemory")
}

func TestRunPushPopRoundTripsThroughPhysicalStack(t *testing.T) {
	prog := &blockir.Program{
		Entry: 0,
		Blocks: []*blockir.Block{
			{
				Name: 0,
				Instructions: []blockir.BlockContent{
					assignRet(u32(0)), // declares %RET so MemPush can read it
					blockir.MemPush{Reg: blockir.RegRET, Offset: 0},
					blockir.MemPop{Reg: "saved@0", Offset: 0},
					assignRet(&ast.Ident{Value: "saved@0"}),
				},
				Terminator: blockir.ProgTerm{},
			},
		},
	}
	res, err := Run(prog, nil)
	require.NoError(t, err)
	require.Len(t, res.Physical, 2)
	require.True(t, res.Physical[0].IsStore)
	require.False(t, res.Physical[1].IsStore)
}

func TestRunMisalignedPushTripsStackInvariant(t *testing.T) {
	prog := &blockir.Program{
		Entry: 0,
		Blocks: []*blockir.Block{
			{
				Name: 0,
				Instructions: []blockir.BlockContent{
					assignRet(u32(0)),
					blockir.MemPush{Reg: blockir.RegRET, Offset: 5},
				},
				Terminator: blockir.ProgTerm{},
			},
		},
	}
	_, err := Run(prog, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "StackInvariant")
}

func TestRunAssertFailureProducesConstFoldFailure(t *testing.T) {
	prog := &blockir.Program{
		Entry: 0,
		Blocks: []*blockir.Block{
			{
				Name:         0,
				Instructions: []blockir.BlockContent{blockir.StmtContent{S: &ast.AssertStmt{Value: &ast.Literal{Kind: ast.LitBool, Bool: false}}}},
				Terminator:   blockir.ProgTerm{},
			},
		},
	}
	_, err := Run(prog, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "ConstFoldFailure")
}

func TestRunDummyLoadReadsAddressZero(t *testing.T) {
	prog := &blockir.Program{
		Entry: 0,
		Blocks: []*blockir.Block{
			{
				Name:         0,
				Instructions: []blockir.BlockContent{blockir.DummyLoad{}},
				Terminator:   blockir.ProgTerm{},
			},
		},
	}
	res, err := Run(prog, nil)
	require.NoError(t, err)
	require.Len(t, res.Virtual, 1)
	require.Equal(t, uint64(0), res.Virtual[0].Addr)
}
