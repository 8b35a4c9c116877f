package syntax

import (
	"strconv"
	"strings"
	"sync"

	"github.com/npillmayer/schuko/tracing"

	"github.com/ferrolang/ferro"
	"github.com/ferrolang/ferro/lr"
)

// tracer traces with key 'ferro.syntax'.
func tracer() tracing.Trace {
	return tracing.Select("ferro.syntax")
}

// Reducer builds the semantic value for one production from the popped
// right-hand-side values: tokens for terminals, previously built values
// for non-terminals. Reducers are indexed by production serial, so the
// parser driver never compares production names.
type Reducer func(c []interface{}) interface{}

// prodSpec couples one production with its reducer. Symbols that appear
// as a LHS anywhere are non-terminals; every other RHS symbol is a
// terminal.
type prodSpec struct {
	lhs string
	rhs []string
	fn  Reducer
}

func pr(lhs string, rhs string, fn Reducer) prodSpec {
	return prodSpec{lhs: lhs, rhs: strings.Fields(rhs), fn: fn}
}

var (
	buildOnce   sync.Once
	theGrammar  *lr.Grammar
	theReducers []Reducer
	buildErr    error
)

// Grammar returns the ferro grammar, augmented and validated, together
// with the reducer table indexed by production serial. The grammar is
// built once and shared; it is read-only afterwards.
func Grammar() (*lr.Grammar, []Reducer, error) {
	buildOnce.Do(build)
	return theGrammar, theReducers, buildErr
}

func build() {
	specs := productions()
	isNonterm := map[string]bool{}
	for _, p := range specs {
		isNonterm[p.lhs] = true
	}
	b := lr.NewGrammarBuilder("ferro")
	reducers := make([]Reducer, len(specs)+1) // serial 0 is the augmentation
	for i, p := range specs {
		rb := b.LHS(p.lhs)
		for _, sym := range p.rhs {
			if isNonterm[sym] {
				rb.N(sym)
			} else {
				rb.T(sym)
			}
		}
		if len(p.rhs) == 0 {
			rb.Epsilon()
		} else {
			rb.End()
		}
		reducers[i+1] = p.fn
	}
	g, err := b.Grammar()
	if err != nil {
		buildErr = err
		return
	}
	for i, p := range specs { // augmentation shifts every serial by one
		if g.Rule(i+1).LHS.Name != p.lhs {
			buildErr = &lr.TableError{Msg: "reducer table out of step with production serials"}
			return
		}
	}
	tracer().Infof("ferro grammar has %d productions", g.Size())
	theGrammar, theReducers = g, reducers
}

// BuildTables runs grammar analysis and LR(1) table generation for the
// ferro grammar. The grammar derives simple lvalues both through
// Assignable and through Primary; the twin reductions land on the same
// table cells and either order yields the same parse, so the generator is
// told to keep the first one instead of failing.
func BuildTables() (*lr.Grammar, []Reducer, *lr.TableGenerator, error) {
	g, reducers, err := Grammar()
	if err != nil {
		return nil, nil, nil, err
	}
	lrgen := lr.NewTableGenerator(lr.Analysis(g))
	lrgen.AllowReduceReduce = true
	if err := lrgen.CreateTables(); err != nil {
		return nil, nil, nil, err
	}
	tracer().Infof("ferro tables: %d states, %d shift/reduce resolved, %d reduce/reduce resolved",
		lrgen.CFSM().Size(), lrgen.ShiftReduceCount, lrgen.ReduceReduceCount)
	return g, reducers, lrgen, nil
}

// --- Reducer helpers --------------------------------------------------------

func pos(v interface{}) (int, int) {
	switch x := v.(type) {
	case ferro.Token:
		return x.Line, x.Col
	case Node:
		return x.Pos()
	}
	return 0, 0
}

func posBase(v interface{}) base {
	line, col := pos(v)
	return base{Line: line, Col: col}
}

func tk(v interface{}) ferro.Token { return v.(ferro.Token) }

func ex(v interface{}) Expr { return v.(Expr) }

func st(v interface{}) Stmt { return v.(Stmt) }

func blk(v interface{}) *Block { return v.(*Block) }

func ty(v interface{}) TypeExpr { return v.(TypeExpr) }

func binding(v interface{}) *VarBinding { return v.(*VarBinding) }

func blkOrNil(v interface{}) *Block {
	if v == nil {
		return nil
	}
	return v.(*Block)
}

func stmts(v interface{}) []Stmt {
	if v == nil {
		return nil
	}
	return v.([]Stmt)
}

func exprs(v interface{}) []Expr {
	if v == nil {
		return nil
	}
	return v.([]Expr)
}

func params(v interface{}) []*Param {
	if v == nil {
		return nil
	}
	return v.([]*Param)
}

func typeList(v interface{}) []TypeExpr {
	if v == nil {
		return nil
	}
	return v.([]TypeExpr)
}

func funcs(v interface{}) []*FuncDecl {
	if v == nil {
		return nil
	}
	return v.([]*FuncDecl)
}

func numValue(t ferro.Token) int {
	n, err := strconv.ParseInt(t.Value, 0, 64)
	if err != nil {
		tracer().Errorf("number literal %q out of range", t.Value)
	}
	return int(n)
}

// wrapBlock lifts a statement into a block of its own, keeping blocks
// as they are. Used for un-braced if-arms.
func wrapBlock(s Stmt) *Block {
	if b, ok := s.(*Block); ok {
		return b
	}
	line, col := s.Pos()
	return &Block{base: at(line, col), Stmts: []Stmt{s}}
}

// binOp builds a BinaryOp from the usual `left op right` child layout.
func binOp(c []interface{}) interface{} {
	return &BinaryOp{base: posBase(c[0]), Op: tk(c[1]).Value, Left: ex(c[0]), Right: ex(c[2])}
}

// passthrough returns the single interesting child unchanged.
func passthrough(i int) Reducer {
	return func(c []interface{}) interface{} { return c[i] }
}

// --- The ferro productions --------------------------------------------------

// productions returns the ferro grammar as an ordered production list.
// The order is load-bearing twice over: the first production's LHS is the
// start symbol, and on a reduce/reduce collision the production appearing
// earlier wins the table cell.
func productions() []prodSpec {
	return []prodSpec{
		// the first production's LHS is the grammar's start symbol
		pr("Program", "DeclList", func(c []interface{}) interface{} {
			return &Program{Items: funcs(c[0])}
		}),
		pr("VariableInternal", "mut IDENT", func(c []interface{}) interface{} {
			return &VarBinding{base: posBase(c[0]), Name: tk(c[1]).Value, Mutable: true}
		}),
		pr("VariableInternal", "IDENT", func(c []interface{}) interface{} {
			return &VarBinding{base: posBase(c[0]), Name: tk(c[0]).Value}
		}),
		pr("Type", "i32", func(c []interface{}) interface{} {
			return &NamedType{base: posBase(c[0]), Name: "i32"}
		}),
		pr("Assignable", "IDENT", func(c []interface{}) interface{} {
			return &Ident{base: posBase(c[0]), Name: tk(c[0]).Value}
		}),

		pr("DeclList", "", func(c []interface{}) interface{} {
			return []*FuncDecl(nil)
		}),
		pr("DeclList", "Decl DeclList", func(c []interface{}) interface{} {
			return append([]*FuncDecl{c[0].(*FuncDecl)}, funcs(c[1])...)
		}),
		pr("Decl", "FnDecl", passthrough(0)),
		pr("FnDecl", "FnHead Block", fnDecl),
		pr("FnDecl", "FnHead FuncExprBlock", fnDecl),
		pr("FnHead", "fn IDENT ( ParamList )", func(c []interface{}) interface{} {
			return &FnHeadInfo{base: posBase(c[0]), Name: tk(c[1]).Value, Params: params(c[3])}
		}),
		pr("FnHead", "fn IDENT ( ParamList ) -> Type", func(c []interface{}) interface{} {
			return &FnHeadInfo{base: posBase(c[0]), Name: tk(c[1]).Value, Params: params(c[3]), RetType: ty(c[6])}
		}),
		pr("ParamList", "", func(c []interface{}) interface{} {
			return []*Param(nil)
		}),
		pr("ParamList", "Param", func(c []interface{}) interface{} {
			return []*Param{c[0].(*Param)}
		}),
		pr("ParamList", "Param , ParamList", func(c []interface{}) interface{} {
			return append([]*Param{c[0].(*Param)}, params(c[2])...)
		}),
		pr("Param", "VariableInternal : Type", func(c []interface{}) interface{} {
			v := binding(c[0])
			return &Param{base: v.base, Name: v.Name, Mutable: v.Mutable, Typ: ty(c[2])}
		}),

		pr("Block", "{ }", func(c []interface{}) interface{} {
			return &Block{base: posBase(c[0])}
		}),
		pr("Block", "{ Stmt StmtList }", func(c []interface{}) interface{} {
			return &Block{base: posBase(c[0]), Stmts: append([]Stmt{st(c[1])}, stmts(c[2])...)}
		}),
		pr("StmtList", "", func(c []interface{}) interface{} {
			return []Stmt(nil)
		}),
		pr("StmtList", "Stmt", func(c []interface{}) interface{} {
			return []Stmt{st(c[0])}
		}),
		pr("StmtList", "Stmt StmtList", func(c []interface{}) interface{} {
			return append([]Stmt{st(c[0])}, stmts(c[1])...)
		}),

		pr("Stmt", ";", func(c []interface{}) interface{} {
			return &EmptyStmt{base: posBase(c[0])}
		}),
		pr("Stmt", "Expr ;", func(c []interface{}) interface{} {
			return &ExprStmt{base: posBase(c[0]), Expr: ex(c[0])}
		}),
		pr("Stmt", "return ;", func(c []interface{}) interface{} {
			return &ReturnStmt{base: posBase(c[0])}
		}),
		pr("Stmt", "return Expr ;", func(c []interface{}) interface{} {
			return &ReturnStmt{base: posBase(c[0]), Expr: ex(c[1])}
		}),

		pr("Stmt", "let VariableInternal : Type ;", func(c []interface{}) interface{} {
			v := binding(c[1])
			return &VarDecl{base: posBase(c[0]), Name: v.Name, Mutable: v.Mutable, Typ: ty(c[3])}
		}),
		pr("Stmt", "let VariableInternal ;", func(c []interface{}) interface{} {
			v := binding(c[1])
			return &VarDecl{base: posBase(c[0]), Name: v.Name, Mutable: v.Mutable}
		}),
		pr("Stmt", "Assignable = Expr ;", func(c []interface{}) interface{} {
			return &AssignStmt{base: posBase(c[0]), Target: ex(c[0]), Expr: ex(c[2])}
		}),
		pr("Stmt", "let VariableInternal : Type = Expr ;", func(c []interface{}) interface{} {
			v := binding(c[1])
			return &VarDecl{base: posBase(c[0]), Name: v.Name, Mutable: v.Mutable, Typ: ty(c[3]), Init: ex(c[5])}
		}),
		pr("Stmt", "let VariableInternal = Expr ;", func(c []interface{}) interface{} {
			v := binding(c[1])
			return &VarDecl{base: posBase(c[0]), Name: v.Name, Mutable: v.Mutable, Init: ex(c[3])}
		}),

		pr("Primary", "Assignable", passthrough(0)),
		pr("Assignable", "* Primary", func(c []interface{}) interface{} {
			return &DerefExpr{base: posBase(c[0]), Target: ex(c[1])}
		}),

		pr("Expr", "AddExpr", passthrough(0)),
		pr("Expr", "Expr == Expr", binOp),
		pr("Expr", "Expr != Expr", binOp),
		pr("Expr", "Expr < Expr", binOp),
		pr("Expr", "Expr <= Expr", binOp),
		pr("Expr", "Expr > Expr", binOp),
		pr("Expr", "Expr >= Expr", binOp),
		pr("AddExpr", "AddExpr + MulExpr", binOp),
		pr("AddExpr", "AddExpr - MulExpr", binOp),
		pr("AddExpr", "MulExpr", passthrough(0)),
		pr("MulExpr", "MulExpr * Primary", binOp),
		pr("MulExpr", "MulExpr / Primary", binOp),
		pr("MulExpr", "Primary", passthrough(0)),

		pr("Primary", "IDENT", func(c []interface{}) interface{} {
			return &Ident{base: posBase(c[0]), Name: tk(c[0]).Value}
		}),
		pr("Primary", "IDENT ( ArgList )", func(c []interface{}) interface{} {
			fn := &Ident{base: posBase(c[0]), Name: tk(c[0]).Value}
			return &FuncCall{base: posBase(c[0]), Fn: fn, Args: exprs(c[2])}
		}),
		pr("Primary", "( Expr )", passthrough(1)),
		pr("Primary", "NUMBER", func(c []interface{}) interface{} {
			t := tk(c[0])
			return &NumberLit{base: posBase(c[0]), Value: numValue(t), Text: t.Value}
		}),
		pr("ArgList", "", func(c []interface{}) interface{} {
			return []Expr(nil)
		}),
		pr("ArgList", "Expr", func(c []interface{}) interface{} {
			return []Expr{ex(c[0])}
		}),
		pr("ArgList", "Expr , ArgList", func(c []interface{}) interface{} {
			return append([]Expr{ex(c[0])}, exprs(c[2])...)
		}),

		pr("Stmt", "if Expr Block ElsePart", func(c []interface{}) interface{} {
			return &IfStmt{base: posBase(c[0]), Cond: ex(c[1]), Then: blk(c[2]), Else: blkOrNil(c[3])}
		}),
		pr("Stmt", "if Expr Stmt", func(c []interface{}) interface{} {
			return &IfStmt{base: posBase(c[0]), Cond: ex(c[1]), Then: wrapBlock(st(c[2]))}
		}),
		pr("Stmt", "if Expr Stmt else Stmt", func(c []interface{}) interface{} {
			return &IfStmt{base: posBase(c[0]), Cond: ex(c[1]), Then: wrapBlock(st(c[2])), Else: wrapBlock(st(c[4]))}
		}),
		pr("ElsePart", "", func(c []interface{}) interface{} {
			return nil
		}),
		pr("ElsePart", "else if Expr Block ElsePart", func(c []interface{}) interface{} {
			inner := &IfStmt{base: posBase(c[1]), Cond: ex(c[2]), Then: blk(c[3]), Else: blkOrNil(c[4])}
			return &Block{base: posBase(c[0]), Stmts: []Stmt{inner}}
		}),
		pr("ElsePart", "else Block", passthrough(1)),

		pr("Stmt", "while Expr Block", func(c []interface{}) interface{} {
			return &WhileStmt{base: posBase(c[0]), Cond: ex(c[1]), Body: blk(c[2])}
		}),
		pr("Stmt", "for VariableInternal in Expr .. Expr Block", func(c []interface{}) interface{} {
			v := binding(c[1])
			return &ForStmt{base: posBase(c[0]), Name: v.Name, Mutable: v.Mutable,
				Start: ex(c[3]), End: ex(c[5]), Body: blk(c[6])}
		}),
		pr("Stmt", "loop Block", func(c []interface{}) interface{} {
			return &LoopStmt{base: posBase(c[0]), Body: blk(c[1])}
		}),
		pr("Stmt", "break ;", func(c []interface{}) interface{} {
			return &BreakStmt{base: posBase(c[0])}
		}),
		pr("Stmt", "continue ;", func(c []interface{}) interface{} {
			return &ContinueStmt{base: posBase(c[0])}
		}),

		pr("Primary", "* Primary", func(c []interface{}) interface{} {
			return &DerefExpr{base: posBase(c[0]), Target: ex(c[1])}
		}),
		pr("Primary", "& Primary", func(c []interface{}) interface{} {
			return &BorrowExpr{base: posBase(c[0]), Target: ex(c[1])}
		}),
		pr("Primary", "& mut Primary", func(c []interface{}) interface{} {
			return &BorrowExpr{base: posBase(c[0]), Target: ex(c[2]), Mutable: true}
		}),

		pr("FuncExprBlock", "{ FuncStmtList }", func(c []interface{}) interface{} {
			list := stmts(c[1])
			if n := len(list); n > 0 {
				if es, ok := list[n-1].(*ExprStmt); ok && es.bare {
					list[n-1] = &ReturnStmt{base: es.base, Expr: es.Expr, Implicit: true}
				}
			}
			return &Block{base: posBase(c[0]), Stmts: list}
		}),
		pr("FuncStmtList", "Stmt FuncStmtList", func(c []interface{}) interface{} {
			return append([]Stmt{st(c[0])}, stmts(c[1])...)
		}),
		pr("FuncStmtList", "Stmt", func(c []interface{}) interface{} {
			return []Stmt{st(c[0])}
		}),
		pr("FuncStmtList", "Expr", func(c []interface{}) interface{} {
			e := ex(c[0])
			return []Stmt{&ExprStmt{base: posBase(c[0]), Expr: e, bare: true}}
		}),
		pr("Primary", "FuncExprBlock", passthrough(0)),

		pr("Expr", "SelectExpr", passthrough(0)),
		pr("SelectExpr", "if Expr FuncExprBlock else FuncExprBlock", func(c []interface{}) interface{} {
			return &IfStmt{base: posBase(c[0]), Cond: ex(c[1]), Then: blk(c[2]), Else: blk(c[4])}
		}),
		pr("Expr", "LoopExpr", passthrough(0)),
		pr("LoopExpr", "loop FuncExprBlock", func(c []interface{}) interface{} {
			return &LoopStmt{base: posBase(c[0]), Body: blk(c[1])}
		}),
		pr("Stmt", "break Expr ;", func(c []interface{}) interface{} {
			return &BreakStmt{base: posBase(c[0]), Expr: ex(c[1])}
		}),

		pr("Type", "[ Type ; NUMBER ]", func(c []interface{}) interface{} {
			return &ArrayType{base: posBase(c[0]), Elem: ty(c[1]), Size: numValue(tk(c[3]))}
		}),
		pr("Primary", "[ ExprList ]", func(c []interface{}) interface{} {
			return &ArrayLiteral{base: posBase(c[0]), Elems: exprs(c[1])}
		}),
		pr("ExprList", "", func(c []interface{}) interface{} {
			return []Expr(nil)
		}),
		pr("ExprList", "Expr", func(c []interface{}) interface{} {
			return []Expr{ex(c[0])}
		}),
		pr("ExprList", "Expr , ExprList", func(c []interface{}) interface{} {
			return append([]Expr{ex(c[0])}, exprs(c[2])...)
		}),
		pr("Assignable", "Primary [ Expr ]", func(c []interface{}) interface{} {
			return &IndexExpr{base: posBase(c[0]), Base: ex(c[0]), Index: ex(c[2])}
		}),

		pr("Type", "( )", func(c []interface{}) interface{} {
			return &TupleType{base: posBase(c[0])}
		}),
		pr("Type", "( TypeList )", func(c []interface{}) interface{} {
			return &TupleType{base: posBase(c[0]), Elems: typeList(c[1])}
		}),
		pr("TypeList", "Type", func(c []interface{}) interface{} {
			return []TypeExpr{ty(c[0])}
		}),
		pr("TypeList", "Type , TypeList", func(c []interface{}) interface{} {
			return append([]TypeExpr{ty(c[0])}, typeList(c[2])...)
		}),
		pr("Primary", "( )", func(c []interface{}) interface{} {
			return &TupleLiteral{base: posBase(c[0])}
		}),
		pr("Primary", "( Expr , )", func(c []interface{}) interface{} {
			return &TupleLiteral{base: posBase(c[0]), Elems: []Expr{ex(c[1])}}
		}),
		pr("Primary", "( Expr , ExprList )", func(c []interface{}) interface{} {
			return &TupleLiteral{base: posBase(c[0]), Elems: append([]Expr{ex(c[1])}, exprs(c[3])...)}
		}),
		pr("Assignable", "Primary . NUMBER", func(c []interface{}) interface{} {
			return &MemberExpr{base: posBase(c[0]), Base: ex(c[0]), Field: numValue(tk(c[2]))}
		}),

		pr("Type", "& Type", func(c []interface{}) interface{} {
			return &RefType{base: posBase(c[0]), Elem: ty(c[1])}
		}),
		pr("Type", "& mut Type", func(c []interface{}) interface{} {
			return &RefType{base: posBase(c[0]), Elem: ty(c[2]), Mutable: true}
		}),
	}
}

// fnDecl joins a function head with its body; shared by the block-body
// and expression-block-body variants.
func fnDecl(c []interface{}) interface{} {
	head := c[0].(*FnHeadInfo)
	return &FuncDecl{base: head.base, Name: head.Name, Params: head.Params,
		RetType: head.RetType, Body: blk(c[1])}
}
