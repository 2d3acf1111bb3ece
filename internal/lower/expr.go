package lower

import (
	"blocklang/internal/ast"
	"blocklang/internal/blockir"
	"blocklang/internal/builtins"
	"blocklang/internal/errors"
)

// normalize is the expression normalizer (spec.md §2 stage 1): it renames
// free identifiers to their scope-qualified form and hoists every embedded
// call into a fresh scratch register. allowCalls is false inside a
// position the source forbids calls from (array index, loop/conditional
// guard), per the Non-goals list.
func (fl *FuncLowerer) normalize(e ast.Expr, allowCalls bool) (ast.Expr, error) {
	switch v := e.(type) {
	case *ast.Ident:
		name, err := fl.table.Reference(v.Pos, v.Value)
		if err != nil {
			return nil, err
		}
		return &ast.Ident{Pos: v.Pos, Value: name}, nil

	case *ast.Literal:
		return v, nil

	case *ast.UnaryExpr:
		operand, err := fl.normalize(v.Operand, allowCalls)
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{Pos: v.Pos, Op: v.Op, Operand: operand}, nil

	case *ast.BinaryExpr:
		left, err := fl.normalize(v.Left, allowCalls)
		if err != nil {
			return nil, err
		}
		right, err := fl.normalize(v.Right, allowCalls)
		if err != nil {
			return nil, err
		}
		return &ast.BinaryExpr{Pos: v.Pos, Op: v.Op, Left: left, Right: right}, nil

	case *ast.TernaryExpr:
		cond, err := fl.normalize(v.Cond, allowCalls)
		if err != nil {
			return nil, err
		}
		then, err := fl.normalize(v.Then, allowCalls)
		if err != nil {
			return nil, err
		}
		els, err := fl.normalize(v.Else, allowCalls)
		if err != nil {
			return nil, err
		}
		return &ast.TernaryExpr{Pos: v.Pos, Cond: cond, Then: then, Else: els}, nil

	case *ast.CallExpr:
		if !allowCalls {
			return nil, errors.Unsupported(v.Pos, "function call is not permitted in this position")
		}
		return fl.lowerCall(v)

	case *ast.IndexExpr:
		return nil, errors.Unsupported(v.Pos, "array indexing is not supported outside explicit load/store content")

	case *ast.ArrayLit:
		return nil, errors.Unsupported(v.Pos, "array literals are not supported in the lowering path")

	case *ast.StructLit:
		return nil, errors.Unsupported(v.Pos, "struct literals are not supported in the lowering path")

	default:
		return nil, errors.Unsupported(e.NodePos(), "unrecognized expression node")
	}
}

// lowerCall implements call-site lowering, spec.md §4.4. Embedded
// intrinsics bypass the whole protocol and are left as an opaque,
// normalized CallExpr for the downstream IR to interpret.
func (fl *FuncLowerer) lowerCall(c *ast.CallExpr) (ast.Expr, error) {
	normArgs := make([]ast.Expr, len(c.Args))
	for i, a := range c.Args {
		na, err := fl.normalize(a, true)
		if err != nil {
			return nil, err
		}
		normArgs[i] = na
	}

	if builtins.IsEmbed(c.Callee) {
		return &ast.CallExpr{Pos: c.Pos, Callee: c.Callee, Args: normArgs}, nil
	}

	sig, ok := fl.pr.functions[c.Callee]
	if !ok {
		return nil, errors.UndefinedBeforeUse(c.Pos, c.Callee)
	}
	if len(sig.Generics) > 0 {
		return nil, errors.Unsupported(c.Pos, "call to generic function %q", c.Callee)
	}
	if len(normArgs) != len(sig.Params) {
		return nil, errors.TypeMismatch(c.Pos, "call to %q expects %d argument(s), got %d", c.Callee, len(sig.Params), len(normArgs))
	}

	// Step 2: enter a new scope/frame for the call.
	fl.pushFrame(c.Pos)

	// Step 3: spill every live named variable plus every RET<k> scratch
	// already produced earlier in this statement.
	for _, base := range fl.liveBases() {
		fl.spill(c.Pos, base)
	}
	for _, ret := range fl.liveRet {
		fl.spillReserved(c.Pos, ret)
	}

	// Step 4: non-main callers must also preserve their own RP.
	if !fl.isMain {
		fl.spillReserved(c.Pos, blockir.RegRP)
	}

	// Step 5: flush any remaining outstanding SP advance before the
	// argument handoff.
	if fl.spOutstanding > 0 {
		fl.flushSP(c.Pos)
	}

	// Step 6: two-phase argument handoff (ARG<k> then p_k@0), required
	// because arguments and parameters can alias.
	for i, arg := range normArgs {
		argReg := blockir.ArgReg(i)
		fl.emit(blockir.StmtContent{S: &ast.DefStmt{
			Pos: c.Pos, Declares: true, Type: sig.Params[i].Type, Name: argReg, Rhs: arg,
		}})
	}
	for i, p := range sig.Params {
		fl.emit(blockir.StmtContent{S: &ast.DefStmt{
			Pos: c.Pos, Declares: true, Type: p.Type, Name: p.Name + "@0", Rhs: regIdent(c.Pos, blockir.ArgReg(i)),
		}})
	}

	// Step 7/8: assign RP to the block following the call, then
	// terminate with the (as-yet-unresolved) call edge. The following
	// block is pre-allocated now so its label literal is known.
	next := fl.newBlock()
	fl.emit(blockir.StmtContent{S: &ast.DefStmt{
		Pos: c.Pos, Declares: true, Type: ast.TypeField, Name: blockir.RegRP, Rhs: intLit(c.Pos, next),
	}})
	fl.terminate(blockir.FuncCall{Name: c.Callee})

	// Step 9: open the continuation block and capture the result.
	fl.setCurrent(next)
	result := fl.nextRetScratch()
	fl.emit(blockir.StmtContent{S: &ast.DefStmt{
		Pos: c.Pos, Declares: true, Type: sig.Return, Name: result, Rhs: regIdent(c.Pos, blockir.RegRET),
	}})
	fl.liveRet = append(fl.liveRet, result)

	// Step 10: exit the scope, restoring everything spilled in step 3/4.
	fl.popFrame(c.Pos)

	return regIdent(c.Pos, result), nil
}

// spillReserved spills a reserved-sigil register (RP, or a live RET<k>
// scratch) using the same ledger discipline as a named variable spill,
// since scope.Table treats reserved names as passthrough and never tracks
// them itself.
func (fl *FuncLowerer) spillReserved(pos ast.Position, reg string) {
	fl.pushBPIfNeeded(pos)
	off := fl.spOutstanding
	fl.emit(blockir.MemPush{Reg: reg, Offset: off})
	fl.spOutstanding++
	fl.pushMeta(spillMeta{Offset: off, Reg: reg})
}
