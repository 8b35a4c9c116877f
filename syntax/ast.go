/*
Package syntax defines the abstract syntax tree of the ferro language and
the ferro grammar itself, i.e. the production set together with the
reducers that build AST nodes during LR reductions.

The node taxonomy is a closed set of families: declarations, statements,
expressions and type annotations. Passes over the AST dispatch with an
exhaustive type switch. Nodes are immutable after parsing; semantic
decoration lives in side tables keyed by node identity (see package sema).

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.
*/
package syntax

import (
	"fmt"
	"strings"
)

// Node is implemented by every AST node. Positions are 1-based source
// coordinates of the token that started the construct.
type Node interface {
	Pos() (line, col int)
}

// Stmt is the statement family.
type Stmt interface {
	Node
	stmtNode()
}

// Expr is the expression family. Block, IfStmt and LoopStmt are members
// of both families: they may appear in expression position and then carry
// a result value.
type Expr interface {
	Node
	exprNode()
}

// TypeExpr is a type annotation as written in the source.
type TypeExpr interface {
	Node
	typeExprNode()
	String() string
}

// base carries the source position shared by all nodes.
type base struct {
	Line, Col int
}

func (b base) Pos() (int, int) {
	return b.Line, b.Col
}

func at(line, col int) base {
	return base{Line: line, Col: col}
}

// --- Items ------------------------------------------------------------------

// Program is the AST root: a list of function declarations.
type Program struct {
	base
	Items []*FuncDecl
}

// FuncDecl is a function declaration. RetType is nil for functions
// without a declared return type.
type FuncDecl struct {
	base
	Name    string
	Params  []*Param
	RetType TypeExpr
	Body    *Block
}

// Param is a single function parameter.
type Param struct {
	base
	Name    string
	Mutable bool
	Typ     TypeExpr
}

// VarBinding is the product of the VariableInternal production: the
// `[mut] IDENT` core shared by parameter, variable and loop bindings.
// It never appears in a finished tree.
type VarBinding struct {
	base
	Name    string
	Mutable bool
}

// FnHeadInfo is the product of the FnHead production. It never appears in
// a finished tree.
type FnHeadInfo struct {
	base
	Name    string
	Params  []*Param
	RetType TypeExpr
}

// --- Statements -------------------------------------------------------------

// VarDecl is a `let` declaration. Typ and Init may each be nil, but not
// both (the checker rejects a binding without any type information).
type VarDecl struct {
	base
	Name    string
	Mutable bool
	Typ     TypeExpr
	Init    Expr
}

// AssignStmt assigns to an identifier, an array element or a tuple
// member.
type AssignStmt struct {
	base
	Target Expr
	Expr   Expr
}

// ReturnStmt returns from a function. Implicit returns are synthesized
// for the trailing bare expression of an expression block and carry the
// block's value instead of being checked against the function signature.
type ReturnStmt struct {
	base
	Expr     Expr
	Implicit bool
}

// IfStmt is both a statement and (with both branches present and equally
// typed) an expression.
type IfStmt struct {
	base
	Cond Expr
	Then *Block
	Else *Block
}

// WhileStmt loops while the condition is non-zero.
type WhileStmt struct {
	base
	Cond Expr
	Body *Block
}

// ForStmt iterates a range `for i in a..b` (End non-nil) or an array
// value (End nil).
type ForStmt struct {
	base
	Name    string
	Mutable bool
	Start   Expr
	End     Expr
	Body    *Block
}

// LoopStmt is an unconditional loop; used as an expression its type is
// fixed by the `break <expr>` statements in its body.
type LoopStmt struct {
	base
	Body *Block
}

// BreakStmt exits the innermost loop, optionally carrying a value.
type BreakStmt struct {
	base
	Expr Expr
}

// ContinueStmt re-enters the innermost loop.
type ContinueStmt struct {
	base
}

// ExprStmt is an expression in statement position. bare marks a trailing
// expression without a semicolon inside an expression block; the marker
// only exists transiently during reduction.
type ExprStmt struct {
	base
	Expr Expr
	bare bool
}

// EmptyStmt is a lone semicolon.
type EmptyStmt struct {
	base
}

// Block is a braced statement list; in expression position its value is
// the trailing implicit return.
type Block struct {
	base
	Stmts []Stmt
}

func (*VarDecl) stmtNode()      {}
func (*AssignStmt) stmtNode()   {}
func (*ReturnStmt) stmtNode()   {}
func (*IfStmt) stmtNode()       {}
func (*WhileStmt) stmtNode()    {}
func (*ForStmt) stmtNode()      {}
func (*LoopStmt) stmtNode()     {}
func (*BreakStmt) stmtNode()    {}
func (*ContinueStmt) stmtNode() {}
func (*ExprStmt) stmtNode()     {}
func (*EmptyStmt) stmtNode()    {}
func (*Block) stmtNode()        {}

// --- Expressions ------------------------------------------------------------

// NumberLit is an integer literal; Value holds the parsed number, Text
// the lexeme as written.
type NumberLit struct {
	base
	Value int
	Text  string
}

// Ident names a variable, parameter or function.
type Ident struct {
	base
	Name string
}

// BinaryOp is an arithmetic or relational operation.
type BinaryOp struct {
	base
	Op    string
	Left  Expr
	Right Expr
}

// FuncCall calls a named function. The checker requires Fn to be an
// Ident.
type FuncCall struct {
	base
	Fn   Expr
	Args []Expr
}

// ArrayLiteral is `[e1, …, en]`.
type ArrayLiteral struct {
	base
	Elems []Expr
}

// TupleLiteral is `()`, `(e,)` or `(e1, …, en)`.
type TupleLiteral struct {
	base
	Elems []Expr
}

// IndexExpr is `base[index]`.
type IndexExpr struct {
	base
	Base  Expr
	Index Expr
}

// MemberExpr is tuple member access `base.k` with a literal field index.
type MemberExpr struct {
	base
	Base  Expr
	Field int
}

// BorrowExpr is `&e` or `&mut e`.
type BorrowExpr struct {
	base
	Target  Expr
	Mutable bool
}

// DerefExpr is `*e`.
type DerefExpr struct {
	base
	Target Expr
}

func (*NumberLit) exprNode()    {}
func (*Ident) exprNode()        {}
func (*BinaryOp) exprNode()     {}
func (*FuncCall) exprNode()     {}
func (*ArrayLiteral) exprNode() {}
func (*TupleLiteral) exprNode() {}
func (*IndexExpr) exprNode()    {}
func (*MemberExpr) exprNode()   {}
func (*BorrowExpr) exprNode()   {}
func (*DerefExpr) exprNode()    {}
func (*IfStmt) exprNode()       {}
func (*LoopStmt) exprNode()     {}
func (*Block) exprNode()        {}

// --- Type annotations -------------------------------------------------------

// NamedType is a primitive type name; only `i32` exists in this dialect.
type NamedType struct {
	base
	Name string
}

// RefType is `&T` or `&mut T`.
type RefType struct {
	base
	Elem    TypeExpr
	Mutable bool
}

// ArrayType is `[T; N]`.
type ArrayType struct {
	base
	Elem TypeExpr
	Size int
}

// TupleType is `()` or `(T1, …, Tn)`.
type TupleType struct {
	base
	Elems []TypeExpr
}

func (*NamedType) typeExprNode() {}
func (*RefType) typeExprNode()   {}
func (*ArrayType) typeExprNode() {}
func (*TupleType) typeExprNode() {}

func (t *NamedType) String() string {
	return t.Name
}

func (t *RefType) String() string {
	if t.Mutable {
		return "&mut " + t.Elem.String()
	}
	return "&" + t.Elem.String()
}

func (t *ArrayType) String() string {
	return fmt.Sprintf("[%s; %d]", t.Elem.String(), t.Size)
}

func (t *TupleType) String() string {
	parts := make([]string, len(t.Elems))
	for i, e := range t.Elems {
		parts[i] = e.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// NodeName returns the bare type name of a node, used in parse traces and
// diagnostics.
func NodeName(n Node) string {
	name := fmt.Sprintf("%T", n)
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return name
}
