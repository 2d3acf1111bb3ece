package textfmt

import (
	"fmt"

	"github.com/alecthomas/participle/v2"

	"blocklang/internal/ast"
	"blocklang/internal/blockir"
)

var blockParser = participle.MustBuild[File](
	participle.Lexer(BlockLexer),
	participle.Elide("Whitespace"),
	participle.UseLookahead(4),
)

// Parse re-parses the text internal/blockir.Print produced back into a
// *blockir.Program.
func Parse(filename, source string) (*blockir.Program, error) {
	f, err := blockParser.ParseString(filename, source)
	if err != nil {
		return nil, fmt.Errorf("textfmt: %w", err)
	}
	blocks := make([]*blockir.Block, 0, len(f.Blocks))
	for _, b := range f.Blocks {
		blk, err := convertBlock(b)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, blk)
	}
	return &blockir.Program{Blocks: blocks, Entry: f.Entry}, nil
}

func convertBlock(b *Block) (*blockir.Block, error) {
	content := make([]blockir.BlockContent, 0, len(b.Instructions))
	for _, inst := range b.Instructions {
		c, err := convertInstruction(inst)
		if err != nil {
			return nil, err
		}
		content = append(content, c)
	}
	term, err := convertTerminator(b.Terminator)
	if err != nil {
		return nil, err
	}
	return &blockir.Block{Name: b.Name, Instructions: content, Terminator: term}, nil
}

func convertInstruction(inst *Instruction) (blockir.BlockContent, error) {
	switch {
	case inst.Push != nil:
		return blockir.MemPush{Reg: inst.Push.Reg, Offset: inst.Push.Offset}, nil
	case inst.Pop != nil:
		return blockir.MemPop{Reg: inst.Pop.Reg, Offset: inst.Pop.Offset}, nil
	case inst.Array != nil:
		lenExpr, err := convertExpr(inst.Array.Len)
		if err != nil {
			return nil, err
		}
		return blockir.ArrayInit{Arr: inst.Array.Arr, LenExpr: lenExpr}, nil
	case inst.Store != nil:
		idx, err := convertExpr(inst.Store.Idx)
		if err != nil {
			return nil, err
		}
		val, err := convertExpr(inst.Store.Val)
		if err != nil {
			return nil, err
		}
		return blockir.Store{ValExpr: val, Arr: inst.Store.Arr, IdxExpr: idx, Init: inst.Store.Init}, nil
	case inst.Load != nil:
		idx, err := convertExpr(inst.Load.Idx)
		if err != nil {
			return nil, err
		}
		return blockir.Load{Var: inst.Load.Var, Arr: inst.Load.Arr, IdxExpr: idx}, nil
	case inst.Dummy != nil:
		return blockir.DummyLoad{}, nil
	case inst.Branch != nil:
		cond, err := convertExpr(inst.Branch.Cond)
		if err != nil {
			return nil, err
		}
		then, err := convertInstructions(inst.Branch.Then)
		if err != nil {
			return nil, err
		}
		els, err := convertInstructions(inst.Branch.Else)
		if err != nil {
			return nil, err
		}
		return blockir.Branch{Cond: cond, Then: then, Else: els}, nil
	case inst.Stmt != nil:
		stmt, err := convertStmt(inst.Stmt)
		if err != nil {
			return nil, err
		}
		return blockir.StmtContent{S: stmt}, nil
	default:
		return nil, fmt.Errorf("textfmt: empty instruction alternative")
	}
}

func convertInstructions(insts []*Instruction) ([]blockir.BlockContent, error) {
	out := make([]blockir.BlockContent, 0, len(insts))
	for _, inst := range insts {
		c, err := convertInstruction(inst)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func convertStmt(s *StmtInst) (ast.Stmt, error) {
	switch {
	case s.Assert != nil:
		e, err := convertExpr(s.Assert.Expr)
		if err != nil {
			return nil, err
		}
		return &ast.AssertStmt{Value: e}, nil
	case s.Return != nil:
		e, err := convertExpr(s.Return.Expr)
		if err != nil {
			return nil, err
		}
		return &ast.ReturnStmt{Value: e}, nil
	case s.Def != nil:
		rhs, err := convertExpr(s.Def.Rhs)
		if err != nil {
			return nil, err
		}
		return &ast.DefStmt{
			Declares: s.Def.Type != "",
			Type:     ast.TypeName(s.Def.Type),
			Name:     s.Def.Name,
			Rhs:      rhs,
		}, nil
	default:
		return nil, fmt.Errorf("textfmt: empty statement alternative")
	}
}

func convertTerminator(t *Terminator) (blockir.BlockTerminator, error) {
	switch {
	case t.Transition != nil:
		e, err := convertExpr(t.Transition.Expr)
		if err != nil {
			return nil, err
		}
		return blockir.Transition{Expr: e}, nil
	case t.Call != nil:
		return blockir.FuncCall{Name: t.Call.Name}, nil
	case t.Halt != nil:
		return blockir.ProgTerm{}, nil
	default:
		return nil, fmt.Errorf("textfmt: empty terminator alternative")
	}
}

func convertExpr(e *Expr) (ast.Expr, error) {
	switch {
	case e.Literal != nil:
		return convertLiteral(e.Literal)
	case e.Ref != nil:
		return convertReference(e.Ref)
	case e.Compound != nil:
		return convertCompound(e.Compound)
	default:
		return nil, fmt.Errorf("textfmt: empty expression alternative")
	}
}

func convertLiteral(l *Literal) (ast.Expr, error) {
	if l.Int != nil {
		return &ast.Literal{Kind: ast.LitDecimal, Decimal: l.Int.Digits, Suffix: ast.TypeName(l.Int.Suffix)}, nil
	}
	return &ast.Literal{Kind: ast.LitBool, Bool: l.BoolText == "true"}, nil
}

func convertReference(r *Reference) (ast.Expr, error) {
	base := ast.Expr(&ast.Ident{Value: r.Name})
	switch {
	case r.Index != nil:
		idx, err := convertExpr(r.Index)
		if err != nil {
			return nil, err
		}
		return &ast.IndexExpr{Base: base, Index: idx}, nil
	case r.Call != nil:
		args := make([]ast.Expr, 0, len(r.Call.Args))
		for _, a := range r.Call.Args {
			ae, err := convertExpr(a)
			if err != nil {
				return nil, err
			}
			args = append(args, ae)
		}
		return &ast.CallExpr{Callee: r.Name, Args: args}, nil
	default:
		return base, nil
	}
}

func convertCompound(c *Compound) (ast.Expr, error) {
	if c.Unary != nil {
		operand, err := convertExpr(c.Unary.Operand)
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{Op: c.Unary.Op, Operand: operand}, nil
	}
	left, err := convertExpr(c.Rest.Left)
	if err != nil {
		return nil, err
	}
	if c.Rest.Tail.Ternary != nil {
		then, err := convertExpr(c.Rest.Tail.Ternary.Then)
		if err != nil {
			return nil, err
		}
		els, err := convertExpr(c.Rest.Tail.Ternary.Else)
		if err != nil {
			return nil, err
		}
		return &ast.TernaryExpr{Cond: left, Then: then, Else: els}, nil
	}
	right, err := convertExpr(c.Rest.Tail.Binary.Right)
	if err != nil {
		return nil, err
	}
	return &ast.BinaryExpr{Op: c.Rest.Tail.Binary.Op, Left: left, Right: right}, nil
}
