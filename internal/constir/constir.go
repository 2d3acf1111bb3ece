// Package constir models the boundary to the downstream constraint-system
// IR: the opaque value/type algebra that block content and terminator
// expressions ultimately get compiled into. This package does not attempt
// to reproduce an actual proving system; it exposes just enough of an
// Evaluator interface that internal/interp can execute a block program
// without caring how the real downstream IR represents field elements,
// booleans, and bounded-width integers.
package constir

import (
	"blocklang/internal/ast"
	"blocklang/internal/blockir"
	"blocklang/internal/errors"
	"blocklang/internal/types"
)

// Evaluator reduces block-level expressions against a register file. It
// is the seam a real constraint-IR backend would implement; Reference is
// the implementation used by internal/interp.
type Evaluator interface {
	// Eval reduces e to a value, reading registers from regs. Calls are
	// never legal here (they are eliminated by lowering); an *ast.CallExpr
	// reaching Eval is a lowering defect, not a user error, and panics.
	Eval(regs *blockir.RegisterFile, e ast.Expr) (types.Value, error)

	// Assign evaluates rhs and declares/overwrites the named register.
	Assign(regs *blockir.RegisterFile, name string, ty types.Kind, rhs ast.Expr) error
}

// Reference is the default Evaluator: plain Go arithmetic over
// types.Value, with integer and field results masked to the declared
// width. Assign does not map a bool value to 0/1.
type Reference struct{}

func New() Evaluator { return Reference{} }

func (Reference) Eval(regs *blockir.RegisterFile, e ast.Expr) (types.Value, error) {
	return eval(regs, e)
}

func (Reference) Assign(regs *blockir.RegisterFile, name string, ty types.Kind, rhs ast.Expr) error {
	v, err := eval(regs, rhs)
	if err != nil {
		return err
	}
	if ty != v.Kind {
		v = coerce(ty, v)
	}
	regs.Set(name, v)
	return nil
}

func coerce(target types.Kind, v types.Value) types.Value {
	if target == types.KindBool {
		b, ok := v.Truthy()
		if ok {
			return types.Value{Kind: types.KindBool, Bool: b}
		}
		return v
	}
	if types.IsIntegerType(target) || target == types.KindField {
		return types.Value{Kind: target, Int: types.Mask(target, v.Int)}
	}
	return v
}

func eval(regs *blockir.RegisterFile, e ast.Expr) (types.Value, error) {
	switch v := e.(type) {
	case *ast.Ident:
		val, ok := regs.Get(v.Value)
		if !ok {
			return types.Value{}, errors.UndefinedBeforeUse(v.Pos, v.Value)
		}
		return val, nil
	case *ast.Literal:
		if v.Kind == ast.LitBool {
			return types.Value{Kind: types.KindBool, Bool: v.Bool}, nil
		}
		kind, _ := types.FromAST(v.Suffix)
		n, ok := parseDecimal(v.Decimal)
		if !ok {
			return types.Value{}, errors.ConstFoldFailure(v.Pos, "malformed integer literal %q", v.Decimal)
		}
		return types.Value{Kind: kind, Int: types.Mask(kind, n)}, nil
	case *ast.UnaryExpr:
		operand, err := eval(regs, v.Operand)
		if err != nil {
			return types.Value{}, err
		}
		return evalUnary(v, operand)
	case *ast.BinaryExpr:
		left, err := eval(regs, v.Left)
		if err != nil {
			return types.Value{}, err
		}
		right, err := eval(regs, v.Right)
		if err != nil {
			return types.Value{}, err
		}
		return evalBinary(v, left, right)
	case *ast.TernaryExpr:
		cond, err := eval(regs, v.Cond)
		if err != nil {
			return types.Value{}, err
		}
		b, ok := cond.Truthy()
		if !ok {
			return types.Value{}, errors.TypeMismatch(v.Pos, "ternary guard must be bool, got %s", kindName(cond.Kind))
		}
		if b {
			return eval(regs, v.Then)
		}
		return eval(regs, v.Else)
	case *ast.CallExpr:
		panic("constir: Eval reached an unlowered call expression " + v.Callee)
	default:
		return types.Value{}, errors.Unsupported(e.NodePos(), "expression kind not supported by the constraint evaluator")
	}
}

func kindName(k types.Kind) string { return k.String() }

func evalUnary(v *ast.UnaryExpr, operand types.Value) (types.Value, error) {
	switch v.Op {
	case "-":
		return types.Value{Kind: operand.Kind, Int: types.Mask(operand.Kind, -operand.Int)}, nil
	case "!":
		b, ok := operand.Truthy()
		if !ok {
			return types.Value{}, errors.TypeMismatch(v.Pos, "unary ! requires bool, got %s", kindName(operand.Kind))
		}
		return types.Value{Kind: types.KindBool, Bool: !b}, nil
	default:
		return types.Value{}, errors.Unsupported(v.Pos, "unary operator %q", v.Op)
	}
}

func evalBinary(v *ast.BinaryExpr, left, right types.Value) (types.Value, error) {
	switch v.Op {
	case "&&", "||":
		lb, ok1 := left.Truthy()
		rb, ok2 := right.Truthy()
		if !ok1 || !ok2 {
			return types.Value{}, errors.TypeMismatch(v.Pos, "operator %q requires bool operands", v.Op)
		}
		if v.Op == "&&" {
			return types.Value{Kind: types.KindBool, Bool: lb && rb}, nil
		}
		return types.Value{Kind: types.KindBool, Bool: lb || rb}, nil
	case "==", "!=", "<", "<=", ">", ">=":
		if left.Kind != right.Kind {
			return types.Value{}, errors.TypeMismatch(v.Pos, "comparison operand type mismatch: %s vs %s", kindName(left.Kind), kindName(right.Kind))
		}
		return compareValues(v.Op, left, right), nil
	case "+", "-", "*", "/", "%":
		if left.Kind != right.Kind {
			return types.Value{}, errors.TypeMismatch(v.Pos, "arithmetic operand type mismatch: %s vs %s", kindName(left.Kind), kindName(right.Kind))
		}
		return arith(v, left, right)
	default:
		return types.Value{}, errors.Unsupported(v.Pos, "binary operator %q", v.Op)
	}
}

func compareValues(op string, l, r types.Value) types.Value {
	var cmp int
	switch {
	case l.Int < r.Int:
		cmp = -1
	case l.Int > r.Int:
		cmp = 1
	}
	var b bool
	switch op {
	case "==":
		b = l.Equal(r)
	case "!=":
		b = !l.Equal(r)
	case "<":
		b = cmp < 0
	case "<=":
		b = cmp <= 0
	case ">":
		b = cmp > 0
	case ">=":
		b = cmp >= 0
	}
	return types.Value{Kind: types.KindBool, Bool: b}
}

func arith(v *ast.BinaryExpr, l, r types.Value) (types.Value, error) {
	var out uint64
	switch v.Op {
	case "+":
		out = l.Int + r.Int
	case "-":
		out = l.Int - r.Int
	case "*":
		out = l.Int * r.Int
	case "/":
		if r.Int == 0 {
			return types.Value{}, errors.ConstFoldFailure(v.Pos, "division by zero")
		}
		out = l.Int / r.Int
	case "%":
		if r.Int == 0 {
			return types.Value{}, errors.ConstFoldFailure(v.Pos, "modulo by zero")
		}
		out = l.Int % r.Int
	}
	return types.Value{Kind: l.Kind, Int: types.Mask(l.Kind, out)}, nil
}

func parseDecimal(s string) (uint64, bool) {
	if s == "" {
		return 0, false
	}
	var n uint64
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + uint64(c-'0')
	}
	return n, true
}
