// Package lower implements the expression normalizer, statement lowerer,
// function lowerer, and call-site lowerer: the pipeline stages that turn a
// parsed source program into a flat, pre-CFG block program whose
// FuncCall(name) terminators still need resolving to literal labels.
package lower

import (
	"sort"
	"strconv"

	"blocklang/internal/ast"
	"blocklang/internal/blockir"
	"blocklang/internal/errors"
	"blocklang/internal/scope"
)

// Raw is the output of LowerProgram: blocks with unresolved FuncCall
// terminators, a function-name to entry-label map, and the name of the
// function acting as the program entry point ("main").
type Raw struct {
	Blocks      []*blockir.Block
	Entries     map[string]int
	Main        string
	EntryParams []string
}

// Options controls optional, invisible-output optimizations.
type Options struct {
	// Parallel enables goroutine-based parallel lowering of independent
	// functions (spec.md §5: "Implementations may parallelize independent
	// function lowerings... output block ordering must be equivalent to
	// sequential lowering in source-declaration order").
	Parallel bool
}

type funcSig struct {
	Generics []string
	Params   []*ast.Param
	Return   ast.TypeName
}

// program carries whole-program context (the function signature table)
// shared read-only across all per-function lowerers.
type program struct {
	functions map[string]funcSig
}

// LowerProgram runs stages 1-4 of the pipeline (expression normalizer,
// statement lowerer, function lowerer, call-site lowerer) over every
// function in prog.
func LowerProgram(prog *ast.Program, opts Options) (*Raw, error) {
	if len(prog.Functions) == 0 {
		return nil, errors.Unsupported(ast.Position{}, "program declares no functions")
	}
	pr := &program{functions: make(map[string]funcSig, len(prog.Functions))}
	var mainName string
	for _, fn := range prog.Functions {
		pr.functions[fn.Name] = funcSig{Generics: fn.Generics, Params: fn.Params, Return: fn.Return}
		if fn.IsMain() {
			mainName = fn.Name
		}
	}
	if mainName == "" {
		return nil, errors.Unsupported(ast.Position{}, "program declares no main function")
	}

	var results []*FuncLowerer
	var err error
	if opts.Parallel {
		results, err = lowerFunctionsParallel(pr, prog.Functions)
	} else {
		results, err = lowerFunctionsSequential(pr, prog.Functions)
	}
	if err != nil {
		return nil, err
	}

	raw, err := mergeResults(results, mainName)
	if err != nil {
		return nil, err
	}
	for _, fn := range prog.Functions {
		if fn.IsMain() {
			for _, p := range fn.Params {
				raw.EntryParams = append(raw.EntryParams, p.Name+"@0")
			}
			break
		}
	}
	return raw, nil
}

func lowerFunctionsSequential(pr *program, fns []*ast.Function) ([]*FuncLowerer, error) {
	out := make([]*FuncLowerer, len(fns))
	for i, fn := range fns {
		fl, err := lowerOneFunction(pr, fn)
		if err != nil {
			return nil, err
		}
		out[i] = fl
	}
	return out, nil
}

func lowerOneFunction(pr *program, fn *ast.Function) (*FuncLowerer, error) {
	if len(fn.Generics) > 0 {
		return nil, errors.Unsupported(fn.Pos, "function %q declares generic parameters", fn.Name)
	}
	fl := newFuncLowerer(pr, fn.Name, fn.IsMain())
	if err := fl.lowerFunctionEntry(fn); err != nil {
		return nil, err
	}
	return fl, nil
}

// mergeResults splices each function's locally-0-based block array into a
// single global array, shifting every block-label literal it contains and
// recording each function's global entry label. main is always spliced
// first regardless of source-declaration order, so its entry always lands
// on global label 0 (spec.md §4.6: "entry label is 0" after relabeling,
// since relabeling numbers reachable blocks in ascending old-label order
// and 0 is always the smallest label there is).
func mergeResults(results []*FuncLowerer, mainName string) (*Raw, error) {
	results = mainFirst(results, mainName)
	raw := &Raw{Entries: make(map[string]int, len(results))}
	cursor := 0
	for _, fl := range results {
		shift := cursor
		for _, blk := range fl.blocks {
			shiftBlockLabels(blk, shift)
			blk.Name += shift
			raw.Blocks = append(raw.Blocks, blk)
		}
		raw.Entries[fl.name] = fl.entryBlock + shift
		cursor += len(fl.blocks)
	}
	raw.Main = mainName

	// Resolve FuncCall placeholders now that every function's entry label
	// is known globally (spec.md §4.5's precondition for CFG construction).
	for _, blk := range raw.Blocks {
		if fc, ok := blk.Terminator.(blockir.FuncCall); ok {
			entry, ok := raw.Entries[fc.Name]
			if !ok {
				return nil, errors.UndefinedBeforeUse(ast.Position{}, fc.Name)
			}
			blk.Terminator = blockir.Transition{Expr: labelLiteral(entry)}
		}
	}
	return raw, nil
}

// mainFirst reorders results so the function named mainName comes first,
// preserving the relative order of every other function.
func mainFirst(results []*FuncLowerer, mainName string) []*FuncLowerer {
	ordered := make([]*FuncLowerer, 0, len(results))
	var main *FuncLowerer
	for _, fl := range results {
		if fl.name == mainName {
			main = fl
			continue
		}
		ordered = append(ordered, fl)
	}
	if main == nil {
		return ordered
	}
	return append([]*FuncLowerer{main}, ordered...)
}

// shiftBlockLabels rewrites every block-label literal embedded in blk: its
// Transition terminator expression, and any %RP assignment statement's
// literal right-hand side.
func shiftBlockLabels(blk *blockir.Block, shift int) {
	if shift == 0 {
		return
	}
	if t, ok := blk.Terminator.(blockir.Transition); ok {
		blk.Terminator = blockir.Transition{Expr: shiftLabelExpr(t.Expr, shift)}
	}
	for i, inst := range blk.Instructions {
		if sc, ok := inst.(blockir.StmtContent); ok {
			if def, ok := sc.S.(*ast.DefStmt); ok && def.Name == blockir.RegRP {
				blk.Instructions[i] = blockir.StmtContent{S: &ast.DefStmt{
					Pos: def.Pos, Declares: def.Declares, Type: def.Type,
					Name: def.Name, Rhs: shiftLabelExpr(def.Rhs, shift),
				}}
			}
		}
	}
}

func shiftLabelExpr(e ast.Expr, shift int) ast.Expr {
	switch v := e.(type) {
	case *ast.Literal:
		n, err := strconv.Atoi(v.Decimal)
		if err != nil {
			return v
		}
		return &ast.Literal{Pos: v.Pos, Kind: ast.LitDecimal, Decimal: strconv.Itoa(n + shift), Suffix: v.Suffix}
	case *ast.TernaryExpr:
		return &ast.TernaryExpr{Pos: v.Pos, Cond: v.Cond, Then: shiftLabelExpr(v.Then, shift), Else: shiftLabelExpr(v.Else, shift)}
	default:
		return v
	}
}

func labelLiteral(n int) *ast.Literal {
	return &ast.Literal{Kind: ast.LitDecimal, Decimal: strconv.Itoa(n), Suffix: ast.TypeField}
}

// FuncLowerer lowers the body of a single function into a local, 0-based
// block array. The scope table and spill ledger it owns are never shared
// across functions (spec.md §5).
type FuncLowerer struct {
	pr     *program
	name   string
	isMain bool

	table      *scope.Table
	blocks     []*blockir.Block
	cur        int
	entryBlock int

	spOutstanding int
	retSeq        int
	liveStack     [][]string
	liveRet       []string
	metaFrames    [][]spillMeta
}

func newFuncLowerer(pr *program, name string, isMain bool) *FuncLowerer {
	fl := &FuncLowerer{pr: pr, name: name, isMain: isMain, table: scope.NewTable()}
	fl.liveStack = [][]string{nil}
	fl.metaFrames = [][]spillMeta{nil}
	fl.entryBlock = fl.newBlock()
	fl.cur = fl.entryBlock
	return fl
}

func (fl *FuncLowerer) newBlock() int {
	n := len(fl.blocks)
	fl.blocks = append(fl.blocks, &blockir.Block{Name: n})
	return n
}

func (fl *FuncLowerer) setCurrent(n int) { fl.cur = n }

func (fl *FuncLowerer) emit(c blockir.BlockContent) {
	fl.blocks[fl.cur].Instructions = append(fl.blocks[fl.cur].Instructions, c)
}

func (fl *FuncLowerer) terminate(t blockir.BlockTerminator) {
	fl.blocks[fl.cur].Terminator = t
}

func (fl *FuncLowerer) nextRetScratch() string {
	name := blockir.RetScratch(fl.retSeq)
	fl.retSeq++
	return name
}

func (fl *FuncLowerer) isLive(base string) bool {
	for _, frame := range fl.liveStack {
		for _, b := range frame {
			if b == base {
				return true
			}
		}
	}
	return false
}

func (fl *FuncLowerer) markLive(base string) {
	n := len(fl.liveStack)
	fl.liveStack[n-1] = append(fl.liveStack[n-1], base)
}

// liveBases returns every currently-declared base name across all open
// scopes, in deterministic (sorted by name) order,
// for call-site live-variable spilling (spec.md §4.4 step 3).
func (fl *FuncLowerer) liveBases() []string {
	var out []string
	for _, frame := range fl.liveStack {
		out = append(out, frame...)
	}
	sort.Strings(out)
	return out
}

// pushFrame is enter-scope (spec.md §4.2): flush any outstanding SP
// advance from the enclosing frame, then open a new scope/ledger frame.
func (fl *FuncLowerer) pushFrame(pos ast.Position) {
	if fl.spOutstanding > 0 {
		fl.flushSP(pos)
	}
	fl.table.PushFrame()
	fl.liveStack = append(fl.liveStack, nil)
	fl.metaFrames = append(fl.metaFrames, nil)
}

func (fl *FuncLowerer) flushSP(pos ast.Position) {
	fl.emit(blockir.StmtContent{S: &ast.DefStmt{
		Pos: pos, Declares: true, Type: ast.TypeField, Name: blockir.RegSP,
		Rhs: &ast.BinaryExpr{Pos: pos, Op: "+", Left: regIdent(pos, blockir.RegSP), Right: intLit(pos, fl.spOutstanding)},
	}})
	fl.spOutstanding = 0
}

// spillMeta is the lowerer's own spill ledger entry. scope.Table's own
// SpillRecord only carries (offset, base); reserved-register spills (RP,
// RET<k> scratch) never touch scope.Table at all, so the lowerer keeps a
// complete, self-sufficient ledger here and drives restoration from it
// exclusively, using scope.Table.PopFrame only to keep Table's own ledger
// balanced in lockstep.
type spillMeta struct {
	Offset      int
	Reg         string
	IsNamed     bool
	Base        string
	PrevIndex   int
	PrevPending bool
}

func (fl *FuncLowerer) spill(pos ast.Position, base string) {
	qualified := fl.table.CurrentQualified(base)
	prevIndex, prevPending := fl.table.Snapshot(base)

	fl.pushBPIfNeeded(pos)

	off := fl.spOutstanding
	fl.emit(blockir.MemPush{Reg: qualified, Offset: off})
	fl.spOutstanding++
	fl.table.RecordSpill(off, base)
	fl.pushMeta(spillMeta{Offset: off, Reg: qualified, IsNamed: true, Base: base, PrevIndex: prevIndex, PrevPending: prevPending})
	fl.table.MarkPending(base)
}

func (fl *FuncLowerer) pushBPIfNeeded(pos ast.Position) {
	if !fl.table.NeedsBPPush() {
		return
	}
	off := fl.spOutstanding
	fl.emit(blockir.MemPush{Reg: blockir.RegBP, Offset: off})
	fl.spOutstanding++
	fl.emit(blockir.StmtContent{S: &ast.DefStmt{
		Pos: pos, Declares: true, Type: ast.TypeField, Name: blockir.RegBP,
		Rhs: regIdent(pos, blockir.RegSP),
	}})
	fl.table.MarkBPPushed()
	fl.pushMeta(spillMeta{Offset: off, Reg: blockir.RegBP})
}

// metaFrames parallels scope.Table's internal frame stack; pushFrame and
// popFrame keep the two in lockstep.
func (fl *FuncLowerer) pushMeta(m spillMeta) {
	n := len(fl.metaFrames)
	fl.metaFrames[n-1] = append(fl.metaFrames[n-1], m)
}

// popFrame is exit-scope (spec.md §4.2).
func (fl *FuncLowerer) popFrame(pos ast.Position) {
	if fl.spOutstanding > 0 {
		fl.flushSP(pos)
	}
	fl.table.PopFrame()
	n := len(fl.metaFrames)
	metas := fl.metaFrames[n-1]
	fl.metaFrames = fl.metaFrames[:n-1]
	for i := len(metas) - 1; i >= 0; i-- {
		m := metas[i]
		fl.emit(blockir.MemPop{Reg: m.Reg, Offset: m.Offset})
		if m.IsNamed {
			fl.table.RestoreDeclare(m.Base, m.PrevIndex, m.PrevPending)
		}
	}
	fl.liveStack = fl.liveStack[:len(fl.liveStack)-1]
}

func regIdent(pos ast.Position, name string) *ast.Ident { return &ast.Ident{Pos: pos, Value: name} }

func intLit(pos ast.Position, n int) *ast.Literal {
	return &ast.Literal{Pos: pos, Kind: ast.LitDecimal, Decimal: strconv.Itoa(n), Suffix: ast.TypeField}
}
