package constir

import (
	"testing"

	"github.com/stretchr/testify/require"

	"blocklang/internal/ast"
	"blocklang/internal/blockir"
	"blocklang/internal/types"
)

func lit(decimal string, suffix ast.TypeName) *ast.Literal {
	return &ast.Literal{Kind: ast.LitDecimal, Decimal: decimal, Suffix: suffix}
}

func TestEvalLiteralMasksToDeclaredWidth(t *testing.T) {
	regs := blockir.NewRegisterFile()
	ev := New()

	v, err := ev.Eval(regs, lit("300", ast.TypeU8))
	require.NoError(t, err)
	require.Equal(t, types.KindU8, v.Kind)
	require.Equal(t, uint64(300&0xFF), v.Int)
}

func TestEvalIdentUndefinedBeforeUse(t *testing.T) {
	regs := blockir.NewRegisterFile()
	ev := New()

	_, err := ev.Eval(regs, &ast.Ident{Value: "a@0"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "UndefinedBeforeUse")
}

func TestEvalBinaryArithWraps(t *testing.T) {
	regs := blockir.NewRegisterFile()
	regs.Set("a@0", types.Value{Kind: types.KindU8, Int: 250})
	ev := New()

	expr := &ast.BinaryExpr{Op: "+", Left: &ast.Ident{Value: "a@0"}, Right: lit("10", ast.TypeU8)}
	v, err := ev.Eval(regs, expr)
	require.NoError(t, err)
	require.Equal(t, uint64(4), v.Int)
}

func TestEvalBinaryTypeMismatch(t *testing.T) {
	regs := blockir.NewRegisterFile()
	regs.Set("a@0", types.Value{Kind: types.KindU8, Int: 1})
	ev := New()

	expr := &ast.BinaryExpr{Op: "+", Left: &ast.Ident{Value: "a@0"}, Right: lit("1", ast.TypeU32)}
	_, err := ev.Eval(regs, expr)
	require.Error(t, err)
	require.Contains(t, err.Error(), "TypeMismatch")
}

func TestEvalDivisionByZero(t *testing.T) {
	regs := blockir.NewRegisterFile()
	ev := New()

	expr := &ast.BinaryExpr{Op: "/", Left: lit("4", ast.TypeU32), Right: lit("0", ast.TypeU32)}
	_, err := ev.Eval(regs, expr)
	require.Error(t, err)
	require.Contains(t, err.Error(), "ConstFoldFailure")
}

func TestEvalTernarySelectsBranch(t *testing.T) {
	regs := blockir.NewRegisterFile()
	ev := New()

	expr := &ast.TernaryExpr{
		Cond: &ast.Literal{Kind: ast.LitBool, Bool: true},
		Then: lit("1", ast.TypeU32),
		Else: lit("2", ast.TypeU32),
	}
	v, err := ev.Eval(regs, expr)
	require.NoError(t, err)
	require.Equal(t, uint64(1), v.Int)
}

func TestEvalTernaryNonBoolGuardFails(t *testing.T) {
	regs := blockir.NewRegisterFile()
	ev := New()

	expr := &ast.TernaryExpr{Cond: lit("1", ast.TypeU32), Then: lit("1", ast.TypeU32), Else: lit("2", ast.TypeU32)}
	_, err := ev.Eval(regs, expr)
	require.Error(t, err)
	require.Contains(t, err.Error(), "TypeMismatch")
}

func TestAssignBoolLiteralToBoolRegister(t *testing.T) {
	regs := blockir.NewRegisterFile()
	ev := New()

	err := ev.Assign(regs, "b@0", types.KindBool, &ast.Literal{Kind: ast.LitBool, Bool: true})
	require.NoError(t, err)
	v, ok := regs.Get("b@0")
	require.True(t, ok)
	require.Equal(t, types.KindBool, v.Kind)
	require.True(t, v.Bool)
}

func TestEvalUnaryNegationWraps(t *testing.T) {
	regs := blockir.NewRegisterFile()
	ev := New()

	expr := &ast.UnaryExpr{Op: "-", Operand: lit("1", ast.TypeU8)}
	v, err := ev.Eval(regs, expr)
	require.NoError(t, err)
	require.Equal(t, uint64(255), v.Int)
}

func TestEvalCallExprPanics(t *testing.T) {
	regs := blockir.NewRegisterFile()
	ev := New()

	require.Panics(t, func() {
		_, _ = ev.Eval(regs, &ast.CallExpr{Callee: "f"})
	})
}
