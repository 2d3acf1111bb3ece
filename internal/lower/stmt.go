package lower

import (
	"blocklang/internal/ast"
	"blocklang/internal/blockir"
	"blocklang/internal/errors"
)

// lowerBody lowers a statement sequence into the current block(s), per
// spec.md §4.3.
func (fl *FuncLowerer) lowerBody(stmts []ast.Stmt) error {
	for _, s := range stmts {
		fl.liveRet = nil
		if err := fl.lowerStmt(s); err != nil {
			return err
		}
	}
	return nil
}

func (fl *FuncLowerer) lowerStmt(s ast.Stmt) error {
	switch v := s.(type) {
	case *ast.ReturnStmt:
		return fl.lowerReturn(v)
	case *ast.AssertStmt:
		return fl.lowerAssert(v)
	case *ast.ForInStmt:
		return fl.lowerForIn(v)
	case *ast.IfStmt:
		return fl.lowerIf(v)
	case *ast.DefStmt:
		return fl.lowerDef(v)
	default:
		return errors.Unsupported(s.NodePos(), "unrecognized statement kind")
	}
}

func (fl *FuncLowerer) lowerReturn(v *ast.ReturnStmt) error {
	val, err := fl.normalize(v.Value, true)
	if err != nil {
		return err
	}
	fl.emit(blockir.StmtContent{S: &ast.DefStmt{
		Pos: v.Pos, Declares: true, Type: ast.TypeField, Name: blockir.RegRET, Rhs: val,
	}})

	if !fl.isMain {
		fl.unwindBPChainForReturn(v.Pos)
		fl.terminate(blockir.Transition{Expr: regIdent(v.Pos, blockir.RegRP)})
	} else {
		fl.terminate(blockir.ProgTerm{})
	}
	fl.setCurrent(fl.newBlock())
	return nil
}

// unwindBPChainForReturn restores BP to the value it held on function
// entry without touching the scope table: a return statement abandons
// every currently-open scope's named-variable data (nothing will ever
// reference it again), but BP threads through to the caller's own frame
// bookkeeping and must come back regardless of how deep the return is
// nested (spec.md §4.3 "unwind the full per-function spill ledger for BP
// only").
func (fl *FuncLowerer) unwindBPChainForReturn(pos ast.Position) {
	for i := len(fl.metaFrames) - 1; i >= 0; i-- {
		frame := fl.metaFrames[i]
		for j := len(frame) - 1; j >= 0; j-- {
			m := frame[j]
			if m.Reg == blockir.RegBP {
				fl.emit(blockir.MemPop{Reg: blockir.RegBP, Offset: m.Offset})
			}
		}
	}
}

func (fl *FuncLowerer) lowerAssert(v *ast.AssertStmt) error {
	val, err := fl.normalize(v.Value, true)
	if err != nil {
		return err
	}
	fl.emit(blockir.StmtContent{S: &ast.AssertStmt{Pos: v.Pos, Value: val}})
	return nil
}

// lowerForIn implements bounded iteration, spec.md §4.3. The outer scope
// owns the iterator variable; the inner scope owns the body.
func (fl *FuncLowerer) lowerForIn(v *ast.ForInStmt) error {
	kind := v.VarType
	from, err := fl.normalize(v.From, false)
	if err != nil {
		return err
	}
	to, err := fl.normalize(v.To, false)
	if err != nil {
		return err
	}

	fl.pushFrame(v.Pos)
	iterWasLive := fl.isLive(v.VarName)
	if iterWasLive {
		fl.spill(v.Pos, v.VarName)
	}
	iterName := fl.table.Declare(v.VarName)
	if !iterWasLive {
		fl.markLive(v.VarName)
	}
	fl.emit(blockir.StmtContent{S: &ast.DefStmt{Pos: v.Pos, Declares: true, Type: kind, Name: iterName, Rhs: from}})

	compareBlock := fl.newBlock()
	fl.terminate(blockir.Transition{Expr: labelLiteral(compareBlock)})
	fl.setCurrent(compareBlock)

	bodyBlock := fl.newBlock()
	postBlock := fl.newBlock()
	iterRef, err := fl.table.Reference(v.Pos, v.VarName)
	if err != nil {
		return err
	}
	guard := &ast.BinaryExpr{Pos: v.Pos, Op: "<", Left: regIdent(v.Pos, iterRef), Right: to}
	fl.terminate(blockir.Transition{Expr: &ast.TernaryExpr{
		Pos: v.Pos, Cond: guard,
		Then: labelLiteral(bodyBlock), Else: labelLiteral(postBlock),
	}})

	fl.setCurrent(bodyBlock)
	fl.pushFrame(v.Pos)
	if err := fl.lowerBody(v.Body); err != nil {
		return err
	}
	iterRef, err = fl.table.Reference(v.Pos, v.VarName)
	if err != nil {
		return err
	}
	fl.emit(blockir.StmtContent{S: &ast.DefStmt{
		Pos: v.Pos, Declares: false, Type: kind, Name: iterRef,
		Rhs: &ast.BinaryExpr{Pos: v.Pos, Op: "+", Left: regIdent(v.Pos, iterRef), Right: intLit(v.Pos, 1)},
	}})
	fl.popFrame(v.Pos)
	fl.terminate(blockir.Transition{Expr: labelLiteral(compareBlock)})

	fl.setCurrent(postBlock)
	fl.popFrame(v.Pos)
	return nil
}

// lowerIf implements conditional lowering, spec.md §4.3.
func (fl *FuncLowerer) lowerIf(v *ast.IfStmt) error {
	cond, err := fl.normalize(v.Cond, false)
	if err != nil {
		return err
	}
	headBlock := fl.cur

	thenEntry := fl.newBlock()
	fl.setCurrent(thenEntry)
	fl.pushFrame(v.Pos)
	if err := fl.lowerBody(v.Then); err != nil {
		return err
	}
	fl.popFrame(v.Pos)
	thenExit := fl.cur

	elseEntry := fl.newBlock()
	fl.setCurrent(elseEntry)
	if len(v.Else) > 0 {
		fl.pushFrame(v.Pos)
		if err := fl.lowerBody(v.Else); err != nil {
			return err
		}
		fl.popFrame(v.Pos)
	}
	elseExit := fl.cur

	fl.setCurrent(headBlock)
	fl.terminate(blockir.Transition{Expr: &ast.TernaryExpr{
		Pos: v.Pos, Cond: cond, Then: labelLiteral(thenEntry), Else: labelLiteral(elseEntry),
	}})

	join := fl.newBlock()
	fl.setCurrent(thenExit)
	fl.terminate(blockir.Transition{Expr: labelLiteral(join)})
	fl.setCurrent(elseExit)
	fl.terminate(blockir.Transition{Expr: labelLiteral(join)})

	fl.setCurrent(join)
	return nil
}

func (fl *FuncLowerer) lowerDef(v *ast.DefStmt) error {
	if len(v.MultiNames) > 1 {
		return errors.Unsupported(v.Pos, "multi-target assignment is not supported")
	}
	rhs, err := fl.normalize(v.Rhs, true)
	if err != nil {
		return err
	}

	if !v.Declares {
		if !fl.isLive(v.Name) {
			return errors.UndefinedBeforeUse(v.Pos, v.Name)
		}
		qualified, err := fl.table.Reference(v.Pos, v.Name)
		if err != nil {
			return err
		}
		fl.emit(blockir.StmtContent{S: &ast.DefStmt{Pos: v.Pos, Declares: false, Type: v.Type, Name: qualified, Rhs: rhs}})
		return nil
	}

	wasLive := fl.isLive(v.Name)
	if wasLive {
		fl.spill(v.Pos, v.Name)
	}
	qualified := fl.table.Declare(v.Name)
	if !wasLive {
		fl.markLive(v.Name)
	}
	fl.emit(blockir.StmtContent{S: &ast.DefStmt{Pos: v.Pos, Declares: true, Type: v.Type, Name: qualified, Rhs: rhs}})
	return nil
}
