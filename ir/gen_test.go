package ir

import (
	"strings"
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"

	"github.com/ferrolang/ferro/lexer"
	"github.com/ferrolang/ferro/parser"
	"github.com/ferrolang/ferro/sema"
)

func generateString(t *testing.T, input string) []Quad {
	t.Helper()
	p, err := parser.New()
	assert.NoError(t, err)
	prog, err := p.Parse(lexer.New(input).All(), nil)
	assert.NoError(t, err)
	info, err := sema.Check(prog)
	assert.NoError(t, err)
	quads, err := Generate(prog, info)
	assert.NoError(t, err)
	return quads
}

func containsQuad(quads []Quad, q Quad) bool {
	for _, have := range quads {
		if have == q {
			return true
		}
	}
	return false
}

func TestGenArithmetic(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ferro.ir")
	defer teardown()
	//
	quads := generateString(t, "fn main() { let x: i32 = 1 + 2 * 3; }")
	assert.True(t, containsQuad(quads, Quad{Op: "*", Arg1: "2", Arg2: "3", Result: "t1"}))
	assert.True(t, containsQuad(quads, Quad{Op: "+", Arg1: "1", Arg2: "t1", Result: "t2"}))
	assert.True(t, containsQuad(quads, Quad{Op: "decl", Arg1: "x", Arg2: "i32"}))
	assert.True(t, containsQuad(quads, Quad{Op: "assign", Arg1: "t2", Result: "x"}))
	assert.Equal(t, "func_start\tmain\t_\t_", quads[0].String())
	assert.Equal(t, "func_end\tmain\t_\t_", quads[len(quads)-1].String())
}

func TestGenCall(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ferro.ir")
	defer teardown()
	//
	quads := generateString(t,
		"fn f(x: i32) -> i32 { return x + 1; } fn main() { let y: i32 = f(41); }")
	assert.True(t, containsQuad(quads, Quad{Op: "param", Arg1: "x", Arg2: "i32"}))
	var call *Quad
	for i := range quads {
		if quads[i].Op == "call" {
			call = &quads[i]
		}
	}
	assert.NotNil(t, call)
	assert.Equal(t, "f", call.Arg1)
	assert.Equal(t, "[41]", call.Arg2)
	assert.True(t, containsQuad(quads, Quad{Op: "assign", Arg1: call.Result, Result: "y"}))
}

func TestGenArrays(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ferro.ir")
	defer teardown()
	//
	quads := generateString(t,
		"fn main() { let mut a: [i32; 3] = [1, 2, 3]; a[0] = 9; let x: i32 = a[1]; }")
	assert.True(t, containsQuad(quads, Quad{Op: "decl", Arg1: "a", Arg2: "[i32; 3]"}))
	assert.True(t, containsQuad(quads, Quad{Op: "array_literal", Arg1: "[1, 2, 3]", Result: "t1"}))
	// the element store assigns into the index temporary
	assert.True(t, containsQuad(quads, Quad{Op: "index", Arg1: "a", Arg2: "0", Result: "t2"}))
	assert.True(t, containsQuad(quads, Quad{Op: "assign", Arg1: "9", Result: "t2"}))
	assert.True(t, containsQuad(quads, Quad{Op: "index", Arg1: "a", Arg2: "1", Result: "t3"}))
}

func TestGenLoopExpression(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ferro.ir")
	defer teardown()
	//
	quads := generateString(t, "fn main() { let v: i32 = loop { break 7; }; }")
	// the break assigns its value to the loop result before jumping out
	var resultTemp, breakTarget string
	for i, q := range quads {
		if q.Op == "assign" && q.Arg1 == "7" {
			resultTemp = q.Result
			assert.True(t, i+1 < len(quads))
			assert.Equal(t, "goto", quads[i+1].Op)
			breakTarget = quads[i+1].Result
		}
	}
	assert.NotEmpty(t, resultTemp)
	assert.True(t, containsQuad(quads, Quad{Op: "label", Result: breakTarget}))
	assert.True(t, containsQuad(quads, Quad{Op: "assign", Arg1: resultTemp, Result: "v"}))
}

func TestGenWhile(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ferro.ir")
	defer teardown()
	//
	quads := generateString(t, "fn main() { let mut i: i32 = 0; while i < 3 { i = i + 1; } }")
	var ifFalse *Quad
	for i := range quads {
		if quads[i].Op == "if_false_goto" {
			ifFalse = &quads[i]
		}
	}
	assert.NotNil(t, ifFalse)
	assert.True(t, containsQuad(quads, Quad{Op: "label", Result: ifFalse.Result}))
	// the body jumps back to the condition label
	assert.True(t, containsQuad(quads, Quad{Op: "label", Result: "L1"}))
	assert.True(t, containsQuad(quads, Quad{Op: "goto", Result: "L1"}))
}

func TestGenFor(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ferro.ir")
	defer teardown()
	//
	quads := generateString(t, "fn main() { for i in 0..10 { } }")
	assert.True(t, containsQuad(quads, Quad{Op: "assign", Arg1: "0", Result: "i"}))
	assert.True(t, containsQuad(quads, Quad{Op: "+", Arg1: "i", Arg2: "1", Result: "t1"}))
	assert.True(t, containsQuad(quads, Quad{Op: "assign", Arg1: "t1", Result: "i"}))
	assert.True(t, containsQuad(quads, Quad{Op: "<", Arg1: "i", Arg2: "10", Result: "t2"}))
}

func TestGenIfExpression(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ferro.ir")
	defer teardown()
	//
	quads := generateString(t, "fn main() { let v: i32 = if 1 { 2 } else { 3 }; }")
	// both arms assign to the same result temporary
	var results []string
	for _, q := range quads {
		if q.Op == "assign" && (q.Arg1 == "2" || q.Arg1 == "3") {
			results = append(results, q.Result)
		}
	}
	assert.Len(t, results, 2)
	assert.Equal(t, results[0], results[1])
}

func TestGenImplicitReturn(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ferro.ir")
	defer teardown()
	//
	quads := generateString(t, "fn f(x: i32) -> i32 { x + 1 }")
	assert.True(t, containsQuad(quads, Quad{Op: "+", Arg1: "x", Arg2: "1", Result: "t1"}))
	assert.True(t, containsQuad(quads, Quad{Op: "return", Arg1: "t1"}))
}

func TestGenEval(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ferro.ir")
	defer teardown()
	//
	quads := generateString(t, "fn f() { } fn main() { f(); }")
	found := false
	for _, q := range quads {
		if q.Op == "eval" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestGenBorrowAndDeref(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ferro.ir")
	defer teardown()
	//
	quads := generateString(t, `fn main() {
		let mut x: i32 = 1;
		let r: &mut i32 = &mut x;
		let y: i32 = *r;
	}`)
	assert.True(t, containsQuad(quads, Quad{Op: "borrow_mut", Arg1: "x", Result: "t1"}))
	assert.True(t, containsQuad(quads, Quad{Op: "deref", Arg1: "r", Result: "t2"}))
}

// Every goto / if_false_goto target is defined by exactly one label quad
// within the same function.
func TestGenLabelsWellFormed(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ferro.ir")
	defer teardown()
	//
	input := `
	fn f(n: i32) -> i32 {
		let mut acc: i32 = 0;
		for i in 0..n {
			if i == 3 { continue; }
			while acc < 100 { acc = acc + i; }
		}
		let v: i32 = loop { if acc > 10 { break 1; } else { break 0; } };
		return v;
	}
	fn main() { let r: i32 = f(7); }
	`
	quads := generateString(t, input)
	perFunction := [][]Quad{}
	var current []Quad
	for _, q := range quads {
		current = append(current, q)
		if q.Op == "func_end" {
			perFunction = append(perFunction, current)
			current = nil
		}
	}
	assert.Len(t, perFunction, 2)
	for _, fn := range perFunction {
		labels := map[string]int{}
		for _, q := range fn {
			if q.Op == "label" {
				labels[q.Result]++
			}
		}
		for _, q := range fn {
			if q.Op == "goto" || q.Op == "if_false_goto" {
				assert.Equal(t, 1, labels[q.Result], "jump target %s in %s", q.Result, fn[0].Arg1)
			}
		}
	}
}

// Every temporary is written before it is read.
func TestGenTempsWrittenBeforeRead(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ferro.ir")
	defer teardown()
	//
	quads := generateString(t, "fn main() { let x: i32 = (1 + 2) * (3 - 4); }")
	written := map[string]bool{}
	isTemp := func(s string) bool { return strings.HasPrefix(s, "t") && len(s) > 1 }
	for _, q := range quads {
		if isTemp(q.Arg1) {
			assert.True(t, written[q.Arg1], "temp %s read before write", q.Arg1)
		}
		if isTemp(q.Arg2) {
			assert.True(t, written[q.Arg2], "temp %s read before write", q.Arg2)
		}
		if isTemp(q.Result) {
			written[q.Result] = true
		}
	}
}
