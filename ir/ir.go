/*
Package ir lowers a type-checked ferro AST to a linear three-address
intermediate representation of quadruples (op, arg1, arg2, result).

Temporaries are named t1, t2, …; labels are L1, L2, …; both counters are
per-generator and monotonically increasing within one generation run.
A loop context stack carries the break/continue labels (and, for loop
expressions, the result temporary) of the enclosing loops.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.
*/
package ir

import (
	"strings"

	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'ferro.ir'.
func tracer() tracing.Trace {
	return tracing.Select("ferro.ir")
}

// Quad is one three-address instruction. Unused slots are empty strings
// and render as "_".
type Quad struct {
	Op     string
	Arg1   string
	Arg2   string
	Result string
}

// The closed opcode set, besides the binary operators, which appear as
// their literal operator text.
const (
	OpFuncStart    = "func_start"
	OpFuncEnd      = "func_end"
	OpParam        = "param"
	OpDecl         = "decl"
	OpAssign       = "assign"
	OpReturn       = "return"
	OpEval         = "eval"
	OpLabel        = "label"
	OpGoto         = "goto"
	OpIfFalseGoto  = "if_false_goto"
	OpCall         = "call"
	OpArrayLit     = "array_literal"
	OpTupleLit     = "tuple_literal"
	OpDeref        = "deref"
	OpBorrow       = "borrow"
	OpBorrowMut    = "borrow_mut"
	OpIndex        = "index"
	OpMemberAccess = "member_access"
)

func slot(s string) string {
	if s == "" {
		return "_"
	}
	return s
}

// String renders the quad as one tab-separated line.
func (q Quad) String() string {
	return strings.Join([]string{q.Op, slot(q.Arg1), slot(q.Arg2), slot(q.Result)}, "\t")
}

// bracketList renders computed values as a literal-list argument.
func bracketList(vals []string) string {
	return "[" + strings.Join(vals, ", ") + "]"
}
