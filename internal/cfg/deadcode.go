package cfg

import (
	"strconv"

	"blocklang/internal/ast"
	"blocklang/internal/blockir"
)

// Relabel performs dead-block elimination and dense relabeling (spec.md
// §4.6), consuming the Reachable set Build already computed. The result's
// label space is exactly [0, |kept|), and the entry block is always 0:
// internal/lower always splices main's blocks first, so its entry is
// global label 0, and 0 is always the smallest old label among the
// reachable set (labels are non-negative), so it is the first one
// assigned a dense index.
func Relabel(blocks []*blockir.Block, entry int, reachable map[int]bool, entryParams []string) *blockir.Program {
	n := len(blocks)
	relabelMap := make(map[int]int, len(reachable))
	next := 0
	for old := 0; old < n; old++ {
		if reachable[old] {
			relabelMap[old] = next
			next++
		}
	}

	out := make([]*blockir.Block, next)
	for old := 0; old < n; old++ {
		if !reachable[old] {
			continue
		}
		out[relabelMap[old]] = relabelBlock(blocks[old], relabelMap)
	}
	return &blockir.Program{Blocks: out, Entry: relabelMap[entry], EntryParams: entryParams}
}

func relabelBlock(blk *blockir.Block, relabelMap map[int]int) *blockir.Block {
	out := &blockir.Block{Name: relabelMap[blk.Name]}
	out.Instructions = make([]blockir.BlockContent, len(blk.Instructions))
	for i, inst := range blk.Instructions {
		out.Instructions[i] = relabelContent(inst, relabelMap)
	}
	if t, ok := blk.Terminator.(blockir.Transition); ok {
		out.Terminator = blockir.Transition{Expr: relabelExpr(t.Expr, relabelMap)}
	} else {
		out.Terminator = blk.Terminator
	}
	return out
}

func relabelContent(c blockir.BlockContent, relabelMap map[int]int) blockir.BlockContent {
	sc, ok := c.(blockir.StmtContent)
	if !ok {
		return c
	}
	def, ok := sc.S.(*ast.DefStmt)
	if !ok || def.Name != blockir.RegRP {
		return c
	}
	return blockir.StmtContent{S: &ast.DefStmt{
		Pos: def.Pos, Declares: def.Declares, Type: def.Type, Name: def.Name,
		Rhs: relabelExpr(def.Rhs, relabelMap),
	}}
}

func relabelExpr(e ast.Expr, relabelMap map[int]int) ast.Expr {
	switch v := e.(type) {
	case *ast.Literal:
		n, err := strconv.Atoi(v.Decimal)
		if err != nil {
			return v
		}
		nl, ok := relabelMap[n]
		if !ok {
			return v
		}
		return &ast.Literal{Pos: v.Pos, Kind: ast.LitDecimal, Decimal: strconv.Itoa(nl), Suffix: v.Suffix}
	case *ast.TernaryExpr:
		return &ast.TernaryExpr{Pos: v.Pos, Cond: v.Cond, Then: relabelExpr(v.Then, relabelMap), Else: relabelExpr(v.Else, relabelMap)}
	default:
		return v
	}
}
