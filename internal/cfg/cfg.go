// Package cfg builds the control-flow graph over a lowered block array and
// performs dead-block elimination + dense relabeling (spec.md §4.5-§4.6).
package cfg

import (
	"strconv"

	"blocklang/internal/ast"
	"blocklang/internal/blockir"
	"blocklang/internal/errors"
)

// Graph is the materialized CFG: index-parallel successor/predecessor sets
// plus the exit-block list (spec.md §6 "Emitted program").
type Graph struct {
	Successor   []map[int]bool
	Predecessor []map[int]bool
	RPSuccessor []map[int]bool
	Exits       []int
	// Reachable is the set of blocks the BFS actually visited, conservatively
	// widened per spec.md §4.6: any block named by a literal "%RP := N"
	// assignment is treated as reachable even before the rp_successor
	// fixed point proves a live Transition(RP) actually lands on it, since
	// that continuation block is exactly what a later call return resolves
	// to. dead-block elimination (internal/cfg/deadcode.go) consumes this
	// set directly instead of re-deriving it.
	Reachable map[int]bool
}

// Build runs the BFS + rp_successor fixed-point algorithm of spec.md §4.5,
// widened with the §4.6 RP-literal reachability rule above. Every FuncCall
// terminator must already be resolved to Transition(Label(entry_of(name)))
// before calling Build.
func Build(blocks []*blockir.Block, entry int) (*Graph, error) {
	n := len(blocks)
	g := &Graph{
		Successor:   make([]map[int]bool, n),
		Predecessor: make([]map[int]bool, n),
		RPSuccessor: make([]map[int]bool, n),
		Reachable:   map[int]bool{entry: true},
	}
	for i := 0; i < n; i++ {
		g.Successor[i] = map[int]bool{}
		g.Predecessor[i] = map[int]bool{}
		g.RPSuccessor[i] = map[int]bool{}
	}

	queue := []int{entry}
	for len(queue) > 0 {
		b := queue[0]
		queue = queue[1:]
		if b < 0 || b >= n || blocks[b] == nil {
			return nil, errors.InvalidTerminator(ast.Position{}, "block %d does not exist", b)
		}
		blk := blocks[b]
		rpSlot := lastRPLiteral(blk)
		if rpSlot != 0 {
			if rpSlot < 0 || rpSlot >= n || blocks[rpSlot] == nil {
				return nil, errors.InvalidTerminator(ast.Position{}, "%%RP literal targets nonexistent block %d", rpSlot)
			}
			if !g.Reachable[rpSlot] {
				g.Reachable[rpSlot] = true
				queue = append(queue, rpSlot)
			}
		}

		switch t := blk.Terminator.(type) {
		case blockir.Transition:
			isRp, labels := terminalKind(t.Expr)
			if isRp {
				for r := range g.RPSuccessor[b] {
					addEdge(g, b, r)
				}
				continue
			}
			for _, l := range labels {
				if l < 0 || l >= n || blocks[l] == nil {
					return nil, errors.InvalidTerminator(ast.Position{}, "transition targets nonexistent block %d", l)
				}
				var src map[int]bool
				if rpSlot != 0 {
					src = map[int]bool{rpSlot: true}
				} else {
					src = g.RPSuccessor[b]
				}
				grew := unionInto(g.RPSuccessor[l], src)
				addEdge(g, b, l)
				if !g.Reachable[l] {
					g.Reachable[l] = true
					queue = append(queue, l)
				} else if grew {
					queue = append(queue, l)
				}
			}
		case blockir.ProgTerm:
			g.Exits = append(g.Exits, b)
		case blockir.FuncCall:
			return nil, errors.InvalidTerminator(ast.Position{}, "unresolved call terminator reached CFG construction in block %d", b)
		default:
			return nil, errors.InvalidTerminator(ast.Position{}, "unrecognized terminator kind in block %d", b)
		}
	}
	return g, nil
}

func addEdge(g *Graph, from, to int) {
	g.Successor[from][to] = true
	g.Predecessor[to][from] = true
}

func unionInto(dst, src map[int]bool) bool {
	grew := false
	for k := range src {
		if !dst[k] {
			dst[k] = true
			grew = true
		}
	}
	return grew
}

// terminalKind classifies a Transition's expression: either it reads RP
// (isRp), or it reduces to one or more literal block labels (the leaves
// of a possibly-nested ternary, since both arms are statically reachable
// regardless of which the runtime guard picks).
func terminalKind(e ast.Expr) (isRp bool, labels []int) {
	switch v := e.(type) {
	case *ast.Ident:
		if v.Value == blockir.RegRP {
			return true, nil
		}
		return false, nil
	case *ast.Literal:
		n, err := strconv.Atoi(v.Decimal)
		if err != nil {
			return false, nil
		}
		return false, []int{n}
	case *ast.TernaryExpr:
		_, thenLabels := terminalKind(v.Then)
		_, elseLabels := terminalKind(v.Else)
		return false, append(thenLabels, elseLabels...)
	default:
		return false, nil
	}
}

// lastRPLiteral returns the block-label value of the last "%RP := <literal>"
// assignment in blk, or 0 if there is none (0 is never a legitimate call
// continuation label since the program entry, block 0, is never itself a
// call's return site).
func lastRPLiteral(blk *blockir.Block) int {
	slot := 0
	for _, inst := range blk.Instructions {
		sc, ok := inst.(blockir.StmtContent)
		if !ok {
			continue
		}
		def, ok := sc.S.(*ast.DefStmt)
		if !ok || def.Name != blockir.RegRP {
			continue
		}
		lit, ok := def.Rhs.(*ast.Literal)
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(lit.Decimal); err == nil {
			slot = n
		}
	}
	return slot
}
