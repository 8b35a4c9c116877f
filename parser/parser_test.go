package parser

import (
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"

	"github.com/ferrolang/ferro/lexer"
	"github.com/ferrolang/ferro/syntax"
)

func parseString(t *testing.T, input string, trace func(TraceRow)) (*syntax.Program, error) {
	t.Helper()
	p, err := New()
	assert.NoError(t, err)
	return p.Parse(lexer.New(input).All(), trace)
}

func TestParseDeclaration(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ferro.parser", "ferro.lr")
	defer teardown()
	//
	prog, err := parseString(t, "fn main() { let x: i32 = 1 + 2 * 3; }", nil)
	assert.NoError(t, err)
	assert.Len(t, prog.Items, 1)
	fn := prog.Items[0]
	assert.Equal(t, "main", fn.Name)
	assert.Len(t, fn.Body.Stmts, 1)
	decl := fn.Body.Stmts[0].(*syntax.VarDecl)
	assert.Equal(t, "x", decl.Name)
	assert.False(t, decl.Mutable)
	assert.Equal(t, "i32", decl.Typ.String())
	// precedence: 1 + (2 * 3)
	sum := decl.Init.(*syntax.BinaryOp)
	assert.Equal(t, "+", sum.Op)
	prod := sum.Right.(*syntax.BinaryOp)
	assert.Equal(t, "*", prod.Op)
}

func TestParseFunctionSignature(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ferro.parser")
	defer teardown()
	//
	prog, err := parseString(t, "fn f(x: i32, mut y: &mut i32) -> i32 { return x; }", nil)
	assert.NoError(t, err)
	fn := prog.Items[0]
	assert.Len(t, fn.Params, 2)
	assert.Equal(t, "x", fn.Params[0].Name)
	assert.False(t, fn.Params[0].Mutable)
	assert.True(t, fn.Params[1].Mutable)
	assert.Equal(t, "&mut i32", fn.Params[1].Typ.String())
	assert.Equal(t, "i32", fn.RetType.String())
}

// `if A if B s1 else s2` parses as `if A { if B s1 else s2 }`: the else
// binds to the nearest if.
func TestParseDanglingElse(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ferro.parser")
	defer teardown()
	//
	prog, err := parseString(t, "fn main() { if 1 if 0 { } else { } }", nil)
	assert.NoError(t, err)
	outer := prog.Items[0].Body.Stmts[0].(*syntax.IfStmt)
	assert.Nil(t, outer.Else)
	inner := outer.Then.Stmts[0].(*syntax.IfStmt)
	assert.NotNil(t, inner.Else)
}

func TestParseExpressionBlockBody(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ferro.parser")
	defer teardown()
	//
	prog, err := parseString(t, "fn f(x: i32) -> i32 { x + 1 }", nil)
	assert.NoError(t, err)
	body := prog.Items[0].Body
	assert.Len(t, body.Stmts, 1)
	ret := body.Stmts[0].(*syntax.ReturnStmt)
	assert.True(t, ret.Implicit)
	assert.IsType(t, &syntax.BinaryOp{}, ret.Expr)
}

func TestParseLoopExpression(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ferro.parser")
	defer teardown()
	//
	prog, err := parseString(t, "fn main() { let v: i32 = loop { break 7; }; }", nil)
	assert.NoError(t, err)
	decl := prog.Items[0].Body.Stmts[0].(*syntax.VarDecl)
	loop := decl.Init.(*syntax.LoopStmt)
	brk := loop.Body.Stmts[0].(*syntax.BreakStmt)
	assert.NotNil(t, brk.Expr)
}

func TestParseTupleForms(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ferro.parser")
	defer teardown()
	//
	prog, err := parseString(t, `fn main() {
		let a: i32 = (1);
		let b = (1,);
		let c: (i32, i32) = (1, 2);
		let d: () = ();
	}`, nil)
	assert.NoError(t, err)
	body := prog.Items[0].Body.Stmts
	// (1) is parenthesization, not a tuple
	assert.IsType(t, &syntax.NumberLit{}, body[0].(*syntax.VarDecl).Init)
	assert.Len(t, body[1].(*syntax.VarDecl).Init.(*syntax.TupleLiteral).Elems, 1)
	assert.Len(t, body[2].(*syntax.VarDecl).Init.(*syntax.TupleLiteral).Elems, 2)
	assert.Len(t, body[3].(*syntax.VarDecl).Init.(*syntax.TupleLiteral).Elems, 0)
}

func TestParseArraysAndProjections(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ferro.parser")
	defer teardown()
	//
	prog, err := parseString(t, `fn main() {
		let mut a: [i32; 3] = [1, 2, 3];
		a[0] = 9;
		let t: (i32, i32) = (1, 2);
		let x: i32 = t.1;
	}`, nil)
	assert.NoError(t, err)
	body := prog.Items[0].Body.Stmts
	decl := body[0].(*syntax.VarDecl)
	assert.True(t, decl.Mutable)
	assert.Equal(t, "[i32; 3]", decl.Typ.String())
	assert.Len(t, decl.Init.(*syntax.ArrayLiteral).Elems, 3)
	assign := body[1].(*syntax.AssignStmt)
	assert.IsType(t, &syntax.IndexExpr{}, assign.Target)
	member := body[3].(*syntax.VarDecl).Init.(*syntax.MemberExpr)
	assert.Equal(t, 1, member.Field)
}

func TestParseTrace(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ferro.parser")
	defer teardown()
	//
	var rows []TraceRow
	_, err := parseString(t, "fn main() { }", func(row TraceRow) { rows = append(rows, row) })
	assert.NoError(t, err)
	assert.NotEmpty(t, rows)
	assert.Equal(t, []int{0}, rows[0].States)
	assert.Equal(t, "shift", rows[0].Action[:5])
	assert.Equal(t, "accept", rows[len(rows)-1].Action)
	// after every row the stack invariant |states| = |symbols| + 1 holds
	for _, row := range rows {
		assert.Equal(t, len(row.States), len(row.Symbols)+1)
	}
}

func TestParseSyntaxError(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ferro.parser")
	defer teardown()
	//
	_, err := parseString(t, "fn main() { let = 1; }", nil)
	assert.Error(t, err)
	var serr *SyntaxError
	assert.ErrorAs(t, err, &serr)
	assert.Contains(t, err.Error(), "error (line 1, col")
	assert.Contains(t, err.Error(), "state")
}

func TestParseRejectsErrorTokens(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ferro.parser")
	defer teardown()
	//
	_, err := parseString(t, "fn main() { let x: i32 = 12abc; }", nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "12abc")
}

// Parser totality: every well-formed program reaches accept with a
// Program root.
func TestParseTotality(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ferro.parser")
	defer teardown()
	//
	inputs := []string{
		"",
		"fn main() { }",
		"fn main() { ; }",
		"fn main() { while 1 { continue; } }",
		"fn main() { for i in 0..10 { } }",
		"fn main() { let x: &i32 = &y; }",
		"fn main() { let x: i32 = *p; }",
		"fn f() -> i32 { if 1 { 2 } else { 3 } }",
		"fn main() { g(); g(1); g(1, 2); }",
	}
	for _, input := range inputs {
		prog, err := parseString(t, input, nil)
		assert.NoError(t, err, "input %q", input)
		assert.NotNil(t, prog, "input %q", input)
	}
}
