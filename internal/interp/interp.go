// Package interp is the block interpreter, spec.md §4.7: it executes a
// dead-block-eliminated, densely relabeled blockir.Program against an
// input vector, producing a return value, a per-block execution count,
// the ExecState sequence, and the two sorted memory-op traces.
package interp

import (
	"sort"

	"blocklang/internal/ast"
	"blocklang/internal/blockir"
	"blocklang/internal/constir"
	"blocklang/internal/errors"
	"blocklang/internal/types"
)

// Result is the interpreter's full output tuple (spec.md §6 "Interpreter
// outputs").
type Result struct {
	ReturnValue types.Value
	BlockCounts map[int]int
	States      []blockir.ExecState
	Physical    []blockir.PhysicalMemOp
	Virtual     []blockir.VirtualMemOp
}

// Interpreter owns the register file, physical stack, and virtual heap for
// one execution (spec.md §5 "single-owner").
type Interpreter struct {
	regs      *blockir.RegisterFile
	physStack []types.Value
	virtMem   []types.Value
	virtInit  []bool
	eval      constir.Evaluator
	seq       uint64
}

func newInterpreter() *Interpreter {
	return &Interpreter{regs: blockir.NewRegisterFile(), eval: constir.New()}
}

func (it *Interpreter) nextSeq() uint64 {
	s := it.seq
	it.seq++
	return s
}

// Run executes prog from its entry block until ProgTerm fires.
func Run(prog *blockir.Program, inputs []types.Value) (*Result, error) {
	if len(inputs) != len(prog.EntryParams) {
		return nil, errors.TypeMismatch(ast.Position{}, "program expects %d input(s), got %d", len(prog.EntryParams), len(inputs))
	}

	it := newInterpreter()
	zero := types.Value{Kind: types.KindField}
	it.regs.Set(blockir.RegSP, zero)
	it.regs.Set(blockir.RegBP, zero)
	it.regs.Set(blockir.RegTS, zero)
	it.regs.Set(blockir.RegAS, zero)
	it.regs.Set(blockir.RegRP, zero)
	it.regs.Set(blockir.InputReg(0), zero) // version-number sentinel

	for k, v := range inputs {
		it.regs.Set(prog.EntryParams[k], v)
		it.regs.Set(blockir.InputReg(k+1), v)
	}

	res := &Result{BlockCounts: map[int]int{}}
	cur := prog.Entry
	for {
		blk := prog.Block(cur)
		if blk == nil {
			return nil, errors.InvalidTerminator(ast.Position{}, "execution reached nonexistent block %d", cur)
		}
		res.BlockCounts[cur]++

		phys, virt, err := it.execBlock(blk.Instructions)
		if err != nil {
			return nil, err
		}
		res.Physical = append(res.Physical, phys...)
		res.Virtual = append(res.Virtual, virt...)

		next, halted, err := it.resolveTerminator(blk.Terminator)
		if err != nil {
			return nil, err
		}
		es := blockir.ExecState{BlockName: cur, Physical: phys, Virtual: virt, Halted: halted}
		if !halted {
			es.Next = next
		}
		res.States = append(res.States, es)
		if halted {
			break
		}
		cur = next.Label
	}

	sortMemOps(res)
	if v, ok := it.regs.Get(blockir.RegRET); ok {
		res.ReturnValue = v
	}
	return res, nil
}

// sortMemOps implements spec.md §4.7.2: concatenate per-block lists in
// execution order (already done above), then sort by (addr, timestamp)
// with a stable tie-break preserving insertion order. Physical ops carry
// no real timestamp, so Seq — assigned in strict append order — serves as
// that tie-break directly (spec.md §9's open question).
func sortMemOps(res *Result) {
	sort.SliceStable(res.Physical, func(i, j int) bool {
		if res.Physical[i].Addr != res.Physical[j].Addr {
			return res.Physical[i].Addr < res.Physical[j].Addr
		}
		return res.Physical[i].Seq < res.Physical[j].Seq
	})
	sort.SliceStable(res.Virtual, func(i, j int) bool {
		if res.Virtual[i].Addr != res.Virtual[j].Addr {
			return res.Virtual[i].Addr < res.Virtual[j].Addr
		}
		return res.Virtual[i].Timestamp < res.Virtual[j].Timestamp
	})
}

// execBlock runs a straight-line instruction list (a block's own, or a
// Branch arm's) and returns the memory ops it produced.
func (it *Interpreter) execBlock(instructions []blockir.BlockContent) ([]blockir.PhysicalMemOp, []blockir.VirtualMemOp, error) {
	var phys []blockir.PhysicalMemOp
	var virt []blockir.VirtualMemOp
	for _, inst := range instructions {
		p, v, err := it.execOne(inst)
		if err != nil {
			return nil, nil, err
		}
		phys = append(phys, p...)
		virt = append(virt, v...)
	}
	return phys, virt, nil
}

// execOne executes a single instruction per spec.md §4.7.1.
func (it *Interpreter) execOne(inst blockir.BlockContent) ([]blockir.PhysicalMemOp, []blockir.VirtualMemOp, error) {
	switch v := inst.(type) {
	case blockir.MemPush:
		sp := it.regs.MustGet(blockir.RegSP).Int
		addr := sp + uint64(v.Offset)
		if addr != uint64(len(it.physStack)) {
			return nil, nil, errors.StackInvariant(ast.Position{}, "push offset %d does not match physical stack length %d", v.Offset, len(it.physStack))
		}
		val := it.regs.MustGet(v.Reg)
		it.physStack = append(it.physStack, val)
		return []blockir.PhysicalMemOp{{Addr: addr, Data: val, IsStore: true, Seq: it.nextSeq()}}, nil, nil

	case blockir.MemPop:
		bp := it.regs.MustGet(blockir.RegBP).Int
		addr := bp + uint64(v.Offset)
		if addr >= uint64(len(it.physStack)) {
			return nil, nil, errors.StackInvariant(ast.Position{}, "pop address %d is out of bounds for physical stack length %d", addr, len(it.physStack))
		}
		val := it.physStack[addr]
		it.regs.Set(v.Reg, val)
		return []blockir.PhysicalMemOp{{Addr: addr, Data: val, IsStore: false, Seq: it.nextSeq()}}, nil, nil

	case blockir.ArrayInit:
		as := it.regs.MustGet(blockir.RegAS)
		it.regs.Set(v.Arr, as)
		lenVal, err := it.eval.Eval(it.regs, v.LenExpr)
		if err != nil {
			return nil, nil, err
		}
		it.regs.Set(blockir.RegAS, types.Value{Kind: types.KindField, Int: as.Int + lenVal.Int})
		return nil, nil, nil

	case blockir.Store:
		addr, err := it.addrOf(v.Arr, v.IdxExpr)
		if err != nil {
			return nil, nil, err
		}
		val, err := it.eval.Eval(it.regs, v.ValExpr)
		if err != nil {
			return nil, nil, err
		}
		if !v.Init {
			ts := it.regs.MustGet(blockir.RegTS)
			it.regs.Set(blockir.RegTS, types.Value{Kind: types.KindField, Int: ts.Int + 1})
		}
		it.growVirtual(addr)
		it.virtMem[addr] = val
		it.virtInit[addr] = true
		ts := it.regs.MustGet(blockir.RegTS)
		return nil, []blockir.VirtualMemOp{{Addr: addr, Data: val, IsStore: true, Timestamp: ts.Int}}, nil

	case blockir.Load:
		addr, err := it.addrOf(v.Arr, v.IdxExpr)
		if err != nil {
			return nil, nil, err
		}
		if addr >= uint64(len(it.virtMem)) || !it.virtInit[addr] {
			return nil, nil, errors.UninitializedMemory(ast.Position{}, addr)
		}
		val := it.virtMem[addr]
		if val.Kind != v.Ty {
			return nil, nil, errors.TypeMismatch(ast.Position{}, "load into %s expected type %s, stored value has type %s", v.Var, v.Ty, val.Kind)
		}
		it.regs.Set(v.Var, val)
		ts := it.regs.MustGet(blockir.RegTS)
		return nil, []blockir.VirtualMemOp{{Addr: addr, Data: val, IsStore: false, Timestamp: ts.Int}}, nil

	case blockir.DummyLoad:
		it.growVirtual(0)
		val := it.virtMem[0]
		ts := it.regs.MustGet(blockir.RegTS)
		return nil, []blockir.VirtualMemOp{{Addr: 0, Data: val, IsStore: false, Timestamp: ts.Int}}, nil

	case blockir.Branch:
		cond, err := it.eval.Eval(it.regs, v.Cond)
		if err != nil {
			return nil, nil, err
		}
		b, ok := cond.Truthy()
		if !ok {
			return nil, nil, errors.ConstFoldFailure(ast.Position{}, "branch guard did not const-fold to bool")
		}
		if b {
			return it.execBlock(v.Then)
		}
		return it.execBlock(v.Else)

	case blockir.StmtContent:
		return it.execStmt(v.S)

	default:
		return nil, nil, errors.Unsupported(ast.Position{}, "unrecognized block content kind")
	}
}

// execStmt evaluates the opaque assertion/assignment statements the
// lowerer leaves untouched inside block content.
func (it *Interpreter) execStmt(s ast.Stmt) ([]blockir.PhysicalMemOp, []blockir.VirtualMemOp, error) {
	switch v := s.(type) {
	case *ast.AssertStmt:
		val, err := it.eval.Eval(it.regs, v.Value)
		if err != nil {
			return nil, nil, err
		}
		b, ok := val.Truthy()
		if !ok || !b {
			return nil, nil, errors.ConstFoldFailure(v.Pos, "assertion did not const-fold to true")
		}
		return nil, nil, nil

	case *ast.DefStmt:
		ty, ok := types.FromAST(v.Type)
		if !ok && !v.Declares {
			// An assignee form carries no type of its own; it keeps the
			// kind of the register it overwrites.
			prev, found := it.regs.Get(v.Name)
			if !found {
				return nil, nil, errors.UndefinedBeforeUse(v.Pos, v.Name)
			}
			ty, ok = prev.Kind, true
		}
		if !ok {
			return nil, nil, errors.TypeMismatch(v.Pos, "unrecognized declared type for %s", v.Name)
		}
		if err := it.eval.Assign(it.regs, v.Name, ty, v.Rhs); err != nil {
			return nil, nil, err
		}
		return nil, nil, nil

	default:
		return nil, nil, errors.Unsupported(s.NodePos(), "unrecognized statement inside block content")
	}
}

// addrOf resolves a virtual address as the base array register plus the
// evaluated index expression.
func (it *Interpreter) addrOf(arr string, idxExpr ast.Expr) (uint64, error) {
	base := it.regs.MustGet(arr)
	idx, err := it.eval.Eval(it.regs, idxExpr)
	if err != nil {
		return 0, err
	}
	return base.Int + idx.Int, nil
}

// growVirtual extends the virtual heap so addr is addressable, leaving new
// cells uninitialized.
func (it *Interpreter) growVirtual(addr uint64) {
	for uint64(len(it.virtMem)) <= addr {
		it.virtMem = append(it.virtMem, types.Value{})
		it.virtInit = append(it.virtInit, false)
	}
}

func (it *Interpreter) resolveTerminator(t blockir.BlockTerminator) (blockir.NextBlock, bool, error) {
	switch v := t.(type) {
	case blockir.ProgTerm:
		return blockir.NextBlock{}, true, nil
	case blockir.FuncCall:
		return blockir.NextBlock{}, false, errors.InvalidTerminator(ast.Position{}, "unresolved call terminator %q reached the interpreter", v.Name)
	case blockir.Transition:
		val, err := it.eval.Eval(it.regs, v.Expr)
		if err != nil {
			return blockir.NextBlock{}, false, err
		}
		if val.Kind == types.KindBool {
			return blockir.NextBlock{}, false, errors.InvalidTerminator(ast.Position{}, "transition evaluated to a non-label bool value")
		}
		return blockir.Label(int(val.Int)), false, nil
	default:
		return blockir.NextBlock{}, false, errors.InvalidTerminator(ast.Position{}, "unrecognized terminator kind")
	}
}
