package sema

import (
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"

	"github.com/ferrolang/ferro/lexer"
	"github.com/ferrolang/ferro/parser"
	"github.com/ferrolang/ferro/syntax"
)

func checkString(t *testing.T, input string) (*syntax.Program, *Info, error) {
	t.Helper()
	p, err := parser.New()
	assert.NoError(t, err)
	prog, err := p.Parse(lexer.New(input).All(), nil)
	assert.NoError(t, err, "parse of %q", input)
	info, err := Check(prog)
	return prog, info, err
}

func assertRejected(t *testing.T, input, wantMsg string) {
	t.Helper()
	_, _, err := checkString(t, input)
	assert.Error(t, err, "input %q", input)
	if err != nil {
		assert.Contains(t, err.Error(), wantMsg, "input %q", input)
		assert.Contains(t, err.Error(), "error (line ", "input %q", input)
	}
}

func TestCheckSimpleDeclaration(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ferro.sema")
	defer teardown()
	//
	prog, info, err := checkString(t, "fn main() { let x: i32 = 1 + 2 * 3; }")
	assert.NoError(t, err)
	decl := prog.Items[0].Body.Stmts[0].(*syntax.VarDecl)
	assert.True(t, info.TypeOf(decl.Init).Equals(I32))
}

func TestCheckFunctionCall(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ferro.sema")
	defer teardown()
	//
	prog, info, err := checkString(t,
		"fn f(x: i32) -> i32 { return x + 1; } fn main() { let y: i32 = f(41); }")
	assert.NoError(t, err)
	call := prog.Items[1].Body.Stmts[0].(*syntax.VarDecl).Init.(*syntax.FuncCall)
	assert.True(t, info.TypeOf(call).Equals(I32))
	callee := call.Fn.(*syntax.Ident)
	// every checked identifier has a symbol binding
	assert.NotNil(t, info.SymbolOf(callee))
	assert.Equal(t, SymFunction, info.SymbolOf(callee).Kind)
}

func TestCheckCallDiagnostics(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ferro.sema")
	defer teardown()
	//
	assertRejected(t, "fn main() { g(); }", "undeclared function 'g'")
	assertRejected(t, "fn f(x: i32) { } fn main() { f(); }", "expects 1 argument(s), got 0")
	assertRejected(t, "fn f(x: i32) { } fn main() { f(()); }", "argument 1 of 'f'")
	assertRejected(t, "fn main() { let x: i32 = 1; x(); }", "'x' is not a function")
}

func TestCheckRecursionResolves(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ferro.sema")
	defer teardown()
	//
	_, _, err := checkString(t,
		"fn f(n: i32) -> i32 { if n { return f(n - 1); } return 0; }")
	assert.NoError(t, err)
}

func TestCheckMutabilityDiscipline(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ferro.sema")
	defer teardown()
	//
	// the first write to an uninitialized immutable binding is accepted
	_, _, err := checkString(t, "fn main() { let x: i32; x = 1; }")
	assert.NoError(t, err)
	// any later write is rejected
	assertRejected(t, "fn main() { let x: i32; x = 1; x = 2; }",
		"immutable variable 'x'")
	assertRejected(t, "fn main() { let x: i32 = 1; x = 2; }",
		"immutable variable 'x'")
	// mut permits re-assignment
	_, _, err = checkString(t, "fn main() { let mut x: i32 = 1; x = 2; x = 3; }")
	assert.NoError(t, err)
}

func TestCheckUninitializedUse(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ferro.sema")
	defer teardown()
	//
	assertRejected(t, "fn main() { let x: i32; let y: i32 = x; }",
		"uninitialized variable 'x'")
	assertRejected(t, "fn main() { let y: i32 = x; }", "undeclared identifier 'x'")
	assertRejected(t, "fn main() { let x; }", "no type information")
}

func TestCheckTypeEqualityStrictness(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ferro.sema")
	defer teardown()
	//
	assertRejected(t, "fn main() { let y: i32 = 1; let x: i32 = &y; }", "type mismatch")
	assertRejected(t, "fn main() { let t: (i32, i32) = (1, 2, 3); }", "type mismatch")
	assertRejected(t, "fn main() { let a: [i32; 3] = [1, 2]; }", "type mismatch")
	_, _, err := checkString(t, "fn main() { let y: i32 = 1; let x: &i32 = &y; }")
	assert.NoError(t, err)
}

func TestCheckArrays(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ferro.sema")
	defer teardown()
	//
	prog, info, err := checkString(t,
		"fn main() { let mut a: [i32; 3] = [1, 2, 3]; a[0] = 9; let x: i32 = a[2]; }")
	assert.NoError(t, err)
	decl := prog.Items[0].Body.Stmts[0].(*syntax.VarDecl)
	arr, ok := info.TypeOf(decl.Init).(*Array)
	assert.True(t, ok)
	assert.Equal(t, 3, arr.Size)
	assert.True(t, arr.Elem.Equals(I32))
	//
	assertRejected(t, "fn main() { let a: [i32; 2] = [1, 2]; let x: i32 = a[2]; }",
		"out of bounds")
	assertRejected(t, "fn main() { let a: [i32; 2] = [1, 2]; a[0] = 9; }",
		"immutable array 'a'")
	assertRejected(t, "fn main() { let a: [i32; 2] = [1, ()]; }", "mixed types")
	assertRejected(t, "fn main() { let x: i32 = 1; let y: i32 = x[0]; }",
		"indexing requires an array")
}

func TestCheckTuples(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ferro.sema")
	defer teardown()
	//
	_, _, err := checkString(t,
		"fn main() { let mut t: (i32, i32) = (1, 2); t.0 = 5; let x: i32 = t.1; }")
	assert.NoError(t, err)
	assertRejected(t, "fn main() { let t: (i32, i32) = (1, 2); let x: i32 = t.2; }",
		"out of bounds")
	assertRejected(t, "fn main() { let t: (i32, i32) = (1, 2); t.0 = 5; }",
		"immutable tuple 't'")
	assertRejected(t, "fn main() { let x: i32 = 1; let y: i32 = x.0; }",
		"member access requires a tuple")
}

func TestCheckBorrowDiscipline(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ferro.sema")
	defer teardown()
	//
	// multiple immutable borrows are fine
	_, _, err := checkString(t,
		"fn main() { let x: i32 = 1; let r1: &i32 = &x; let r2: &i32 = &x; }")
	assert.NoError(t, err)
	// a mutable borrow is exclusive
	assertRejected(t,
		"fn main() { let mut x: i32 = 1; let r1: &mut i32 = &mut x; let r2: &i32 = &x; }",
		"already mutably borrowed")
	assertRejected(t,
		"fn main() { let mut x: i32 = 1; let r1: &mut i32 = &mut x; let r2: &mut i32 = &mut x; }",
		"already borrowed")
	// an immutable borrow still in scope blocks a mutable one
	assertRejected(t,
		"fn main() { let x: i32 = 1; let r: &i32 = &x; let r2: &mut i32 = &mut x; }",
		"already borrowed")
	// a mutable borrow requires a mut binding
	assertRejected(t,
		"fn main() { let x: i32 = 1; let r: &mut i32 = &mut x; }",
		"not mutable")
	// scope exit releases borrows
	_, _, err = checkString(t, `fn main() {
		let mut x: i32 = 1;
		if 1 { let r: &i32 = &x; } else { }
		let m: &mut i32 = &mut x;
	}`)
	assert.NoError(t, err)
	assertRejected(t, "fn main() { let x: i32 = 1; let r: &i32 = &(x + 1); }",
		"named variable")
}

func TestCheckDeref(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ferro.sema")
	defer teardown()
	//
	_, _, err := checkString(t,
		"fn main() { let x: i32 = 1; let r: &i32 = &x; let y: i32 = *r; }")
	assert.NoError(t, err)
	assertRejected(t, "fn main() { let x: i32 = 1; let y: i32 = *x; }",
		"cannot dereference")
}

func TestCheckConditionTyping(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ferro.sema")
	defer teardown()
	//
	assertRejected(t, "fn main() { if () { } }", "if condition")
	assertRejected(t, "fn main() { while () { } }", "while condition")
	assertRejected(t, "fn main() { let t: () = (); for i in t..3 { } }", "range bounds")
	// relational operators yield i32, so they nest as conditions
	_, _, err := checkString(t, "fn main() { if 1 < 2 { } }")
	assert.NoError(t, err)
}

func TestCheckLoopBreakTyping(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ferro.sema")
	defer teardown()
	//
	// S5: the loop expression takes the break value's type
	prog, info, err := checkString(t, "fn main() { let v: i32 = loop { break 7; }; }")
	assert.NoError(t, err)
	loop := prog.Items[0].Body.Stmts[0].(*syntax.VarDecl).Init.(*syntax.LoopStmt)
	assert.True(t, info.TypeOf(loop).Equals(I32))
	// agreeing breaks in both arms fix the same type
	_, _, err = checkString(t,
		"fn main() { let v: i32 = loop { if 1 { break 1; } else { break 2; } }; }")
	assert.NoError(t, err)
	// a bare break after break-with-value disagrees
	assertRejected(t, "fn main() { let v: i32 = loop { if 1 { break 1; } else { break; } }; }",
		"break value")
	assertRejected(t, "fn main() { let v: i32 = loop { if 1 { break 1; } else { break (); } }; }",
		"inconsistent break value types")
}

func TestCheckBreakContinueDiscipline(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ferro.sema")
	defer teardown()
	//
	assertRejected(t, "fn main() { break; }", "break outside of a loop")
	assertRejected(t, "fn main() { continue; }", "continue outside of a loop")
	assertRejected(t, "fn main() { while 1 { break 1; } }", "outside of a loop expression")
	_, _, err := checkString(t, "fn main() { while 1 { break; } for i in 0..3 { continue; } }")
	assert.NoError(t, err)
}

func TestCheckReturnConformance(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ferro.sema")
	defer teardown()
	//
	assertRejected(t, "fn f() -> i32 { return (); }", "return type mismatch")
	assertRejected(t, "fn f() -> i32 { return; }", "none was provided")
	assertRejected(t, "fn f() { return 1; }", "return type mismatch")
	_, _, err := checkString(t, "fn f() { return; } fn g() -> i32 { return 1; }")
	assert.NoError(t, err)
}

func TestCheckIfExpressionTyping(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ferro.sema")
	defer teardown()
	//
	prog, info, err := checkString(t, "fn main() { let v: i32 = if 1 { 2 } else { 3 }; }")
	assert.NoError(t, err)
	ifx := prog.Items[0].Body.Stmts[0].(*syntax.VarDecl).Init.(*syntax.IfStmt)
	assert.True(t, info.TypeOf(ifx).Equals(I32))
	// disagreeing arms make the if void, which cannot be bound
	assertRejected(t, "fn main() { let v: i32 = if 1 { 2 } else { () }; }", "void")
}

func TestCheckVoidBinding(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ferro.sema")
	defer teardown()
	//
	assertRejected(t, "fn f() { } fn main() { let x = f(); }", "void")
}

func TestCheckShadowing(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ferro.sema")
	defer teardown()
	//
	_, _, err := checkString(t, `fn main() {
		let x: i32 = 1;
		if 1 { let x: () = (); let y: () = x; } else { }
		let z: i32 = x;
	}`)
	assert.NoError(t, err)
}
