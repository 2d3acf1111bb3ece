package blockir

import (
	"fmt"
	"strings"

	"blocklang/internal/ast"
)

// Print renders a Program to the textual block-dump format consumed by
// internal/blockir/textfmt. It exists primarily for -dump-blocks output
// and for round-trip testing of the textfmt grammar, not as part of the
// compilation pipeline proper.
func Print(p *Program) string {
	var b strings.Builder
	fmt.Fprintf(&b, "entry %d\n", p.Entry)
	for _, blk := range p.Blocks {
		if blk == nil {
			continue
		}
		printBlock(&b, blk)
	}
	return b.String()
}

func printBlock(b *strings.Builder, blk *Block) {
	fmt.Fprintf(b, "block %d {\n", blk.Name)
	for _, inst := range blk.Instructions {
		printContent(b, inst, 1)
	}
	printTerminator(b, blk.Terminator)
	b.WriteString("}\n")
}

func indent(b *strings.Builder, depth int) {
	for i := 0; i < depth; i++ {
		b.WriteString("  ")
	}
}

func printContent(b *strings.Builder, c BlockContent, depth int) {
	indent(b, depth)
	switch v := c.(type) {
	case MemPush:
		fmt.Fprintf(b, "push %s, %d\n", v.Reg, v.Offset)
	case MemPop:
		fmt.Fprintf(b, "pop %s, %d\n", v.Reg, v.Offset)
	case ArrayInit:
		fmt.Fprintf(b, "array_init %s, %s\n", v.Arr, exprString(v.LenExpr))
	case Store:
		init := ""
		if v.Init {
			init = " init"
		}
		fmt.Fprintf(b, "store %s[%s] = %s%s\n", v.Arr, exprString(v.IdxExpr), exprString(v.ValExpr), init)
	case Load:
		fmt.Fprintf(b, "load %s = %s[%s]\n", v.Var, v.Arr, exprString(v.IdxExpr))
	case DummyLoad:
		b.WriteString("dummy_load\n")
	case Branch:
		fmt.Fprintf(b, "branch %s {\n", exprString(v.Cond))
		for _, inner := range v.Then {
			printContent(b, inner, depth+1)
		}
		indent(b, depth)
		b.WriteString("} else {\n")
		for _, inner := range v.Else {
			printContent(b, inner, depth+1)
		}
		indent(b, depth)
		b.WriteString("}\n")
	case StmtContent:
		fmt.Fprintf(b, "stmt %s\n", stmtString(v.S))
	default:
		fmt.Fprintf(b, "??? %T\n", v)
	}
}

func printTerminator(b *strings.Builder, t BlockTerminator) {
	switch v := t.(type) {
	case Transition:
		fmt.Fprintf(b, "  transition %s\n", exprString(v.Expr))
	case FuncCall:
		fmt.Fprintf(b, "  call %s\n", v.Name)
	case ProgTerm:
		b.WriteString("  halt\n")
	default:
		fmt.Fprintf(b, "  ??? %T\n", v)
	}
}

// exprString renders an ast.Expr in the flat infix form the textfmt
// grammar re-parses; it intentionally does not reuse the parser's own
// token vocabulary so the two stay independently grounded.
func exprString(e ast.Expr) string {
	if e == nil {
		return "<nil>"
	}
	switch v := e.(type) {
	case *ast.Ident:
		return v.Value
	case *ast.Literal:
		if v.Kind == ast.LitBool {
			if v.Bool {
				return "true"
			}
			return "false"
		}
		return v.Decimal + ":" + string(v.Suffix)
	case *ast.BinaryExpr:
		return "(" + exprString(v.Left) + " " + v.Op + " " + exprString(v.Right) + ")"
	case *ast.UnaryExpr:
		return "(" + v.Op + exprString(v.Operand) + ")"
	case *ast.TernaryExpr:
		return "(" + exprString(v.Cond) + " ? " + exprString(v.Then) + " : " + exprString(v.Else) + ")"
	case *ast.IndexExpr:
		return exprString(v.Base) + "[" + exprString(v.Index) + "]"
	case *ast.CallExpr:
		parts := make([]string, len(v.Args))
		for i, a := range v.Args {
			parts[i] = exprString(a)
		}
		return v.Callee + "(" + strings.Join(parts, ", ") + ")"
	default:
		return fmt.Sprintf("<%T>", v)
	}
}

func stmtString(s ast.Stmt) string {
	switch v := s.(type) {
	case *ast.AssertStmt:
		return "assert " + exprString(v.Value)
	case *ast.DefStmt:
		if v.Declares {
			return string(v.Type) + " " + v.Name + " = " + exprString(v.Rhs)
		}
		return v.Name + " = " + exprString(v.Rhs)
	case *ast.ReturnStmt:
		return "return " + exprString(v.Value)
	default:
		return fmt.Sprintf("<%T>", v)
	}
}
