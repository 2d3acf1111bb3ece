package textfmt

// File is the grammar root: one "entry N" line followed by a flat list of
// blocks, mirroring blockir.Print's output shape exactly.
type File struct {
	Entry  int      `"entry" @Number`
	Blocks []*Block `@@*`
}

// Block mirrors printBlock: a numbered brace-delimited body of
// instructions and exactly one terminator line.
type Block struct {
	Name         int            `"block" @Number "{"`
	Instructions []*Instruction `@@*`
	Terminator   *Terminator    `@@ "}"`
}

// Instruction is the union of every BlockContent printer line. Each
// alternative starts with a distinct keyword, so no lookahead is needed
// to pick among them.
type Instruction struct {
	Push   *PushInst  `  @@`
	Pop    *PopInst   `| @@`
	Array  *ArrayInst `| @@`
	Store  *StoreInst `| @@`
	Load   *LoadInst  `| @@`
	Dummy  *DummyInst `| @@`
	Branch *BranchInst `| @@`
	Stmt   *StmtInst  `| @@`
}

type PushInst struct {
	Reg    string `"push" @(Ident|Reg) ","`
	Offset int    `@Number`
}

type PopInst struct {
	Reg    string `"pop" @(Ident|Reg) ","`
	Offset int    `@Number`
}

type ArrayInst struct {
	Arr string `"array_init" @(Ident|Reg) ","`
	Len *Expr  `@@`
}

type StoreInst struct {
	Arr  string `"store" @(Ident|Reg) "["`
	Idx  *Expr  `@@ "]" "="`
	Val  *Expr  `@@`
	Init bool   `[ @"init" ]`
}

type LoadInst struct {
	Var string `"load" @(Ident|Reg) "="`
	Arr string `@(Ident|Reg) "["`
	Idx *Expr  `@@ "]"`
}

type DummyInst struct {
	Present bool `@"dummy_load"`
}

// BranchInst mirrors printContent's nested "branch cond { ... } else {
// ... }" block, recursing into the same Instruction grammar for both arms.
type BranchInst struct {
	Cond *Expr          `"branch" @@ "{"`
	Then []*Instruction `@@* "}"`
	Else []*Instruction `"else" "{" @@* "}"`
}

// StmtInst wraps the three stmtString shapes: assert, declaring/plain
// assignment, and (for robustness, though the lowerer never emits it
// inside block content) a bare return.
type StmtInst struct {
	Assert *AssertForm `"stmt" (   @@`
	Return *ReturnForm `         | @@`
	Def    *DefForm    `         | @@ )`
}

type AssertForm struct {
	Expr *Expr `"assert" @@`
}

type ReturnForm struct {
	Expr *Expr `"return" @@`
}

// DefForm covers both "<type> <name> = <rhs>" and "<name> = <rhs>"; the
// leading type word is only present when two identifier-shaped tokens
// precede "=", which participle resolves by lookahead/backtracking.
type DefForm struct {
	Type string `[ @Ident ]`
	Name string `@(Ident|Reg) "="`
	Rhs  *Expr  `@@`
}

// Terminator is the union of printTerminator's three lines.
type Terminator struct {
	Transition *TransitionForm `  @@`
	Call       *CallForm       `| @@`
	Halt       *HaltForm       `| @@`
}

type TransitionForm struct {
	Expr *Expr `"transition" @@`
}

type CallForm struct {
	Name string `"call" @Ident`
}

type HaltForm struct {
	Present bool `@"halt"`
}

// Expr mirrors exprString's three productions: a register/name reference
// (with its dead-in-practice index/call suffixes kept for completeness), a
// literal, or a fully parenthesized compound (unary, binary, or ternary --
// printer output always wraps those three in their own parens, so no
// operator-precedence climbing is needed here).
type Expr struct {
	Compound *Compound  `  "(" @@ ")"`
	Literal  *Literal   `| @@`
	Ref      *Reference `| @@`
}

// Reference is a bare identifier, optionally followed by an index or call
// suffix. This module's own lowering never produces an index suffix
// (IndexExpr never survives normalization) and produces a call suffix only
// for embedded intrinsics; exprString renders both and a hand-written dump
// could use them, so the grammar accepts them.
type Reference struct {
	Name  string    `@(Ident|Reg)`
	Index *Expr     `(   "[" @@ "]"`
	Call  *CallArgs `    | @@ )?`
}

type CallArgs struct {
	Args []*Expr `"(" [ @@ { "," @@ } ] ")"`
}

// Literal mirrors exprString's Literal case: "true"/"false", or
// "<digits>:<suffix>".
type Literal struct {
	BoolText string  `(   @("true"|"false")`
	Int      *IntLit `    | @@ )`
}

type IntLit struct {
	Digits string `@Number ":"`
	Suffix string `@Ident`
}

// Compound is the content of a parenthesized compound expression: unary
// forms start with the raw operator token, so they are tried first and
// never collide with the binary/ternary forms, which always start with a
// full sub-expression.
type Compound struct {
	Unary *UnaryForm `  @@`
	Rest  *RestForm  `| @@`
}

type UnaryForm struct {
	Op      string `@("-"|"!")`
	Operand *Expr  `@@`
}

// RestForm parses the shared "<expr> ..." prefix of binary and ternary
// forms, then dispatches on whichever continuation follows.
type RestForm struct {
	Left *Expr `@@`
	Tail *Tail `@@`
}

type Tail struct {
	Ternary *TernaryTail `  @@`
	Binary  *BinaryTail  `| @@`
}

type TernaryTail struct {
	Then *Expr `"?" @@`
	Else *Expr `":" @@`
}

type BinaryTail struct {
	Op    string `@("=="|"!="|"<="|">="|"&&"|"||"|"<"|">"|"+"|"-"|"*"|"/"|"%")`
	Right *Expr  `@@`
}
