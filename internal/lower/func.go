package lower

import (
	"blocklang/internal/ast"
	"blocklang/internal/blockir"
)

// lowerFunctionEntry implements spec.md §4.4's "Function-entry lowering":
// declare each formal parameter at scope index 0, lower the body, and
// terminate the final block appropriately.
func (fl *FuncLowerer) lowerFunctionEntry(fn *ast.Function) error {
	// Parameters are fresh in a brand-new scope table, so Declare always
	// yields "<name>@0"; call-site lowering writes that name directly
	// (spec.md §4.4 step 6), so no instruction is needed here.
	for _, p := range fn.Params {
		fl.table.Declare(p.Name)
		fl.markLive(p.Name)
	}

	if err := fl.lowerBody(fn.Body); err != nil {
		return err
	}

	last := fl.blocks[fl.cur]
	if last.Terminator == nil {
		if fl.isMain {
			last.Terminator = blockir.ProgTerm{}
		} else {
			last.Terminator = blockir.Transition{Expr: regIdent(fn.Pos, blockir.RegRP)}
		}
	}
	return nil
}
