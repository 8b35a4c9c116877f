package ir

import (
	"fmt"
	"strconv"

	"github.com/ferrolang/ferro"
	"github.com/ferrolang/ferro/sema"
	"github.com/ferrolang/ferro/syntax"
)

// Generator holds the state of one AST-to-quadruple translation run.
type Generator struct {
	code       []Quad
	tempCount  int
	labelCount int
	loops      []loopFrame
	info       *sema.Info
}

// loopFrame carries the jump targets of one enclosing loop; result is the
// temporary receiving break values of a loop expression, or empty.
type loopFrame struct {
	breakLabel    string
	continueLabel string
	result        string
}

// Generate translates a checked program into its quadruple list. The
// sema.Info is consulted for the declared or computed type printed in
// decl quads.
func Generate(prog *syntax.Program, info *sema.Info) ([]Quad, error) {
	g := &Generator{info: info}
	for _, fn := range prog.Items {
		if err := g.genFuncDecl(fn); err != nil {
			return nil, err
		}
	}
	tracer().Debugf("generated %d quadruples for %d functions", len(g.code), len(prog.Items))
	return g.code, nil
}

func (g *Generator) emit(op, arg1, arg2, result string) {
	g.code = append(g.code, Quad{Op: op, Arg1: arg1, Arg2: arg2, Result: result})
}

func (g *Generator) newTemp() string {
	g.tempCount++
	return fmt.Sprintf("t%d", g.tempCount)
}

func (g *Generator) newLabel() string {
	g.labelCount++
	return fmt.Sprintf("L%d", g.labelCount)
}

// lastQuadJumps reports whether the most recent quad unconditionally
// left the current position, so a loop back-edge would be dead.
func (g *Generator) lastQuadJumps() bool {
	if len(g.code) == 0 {
		return false
	}
	op := g.code[len(g.code)-1].Op
	return op == OpGoto || op == OpReturn
}

// --- Declarations -----------------------------------------------------------

func (g *Generator) genFuncDecl(fn *syntax.FuncDecl) error {
	g.emit(OpFuncStart, fn.Name, "", "")
	for _, p := range fn.Params {
		g.emit(OpParam, p.Name, p.Typ.String(), "")
	}
	val, err := g.genBlockStmts(fn.Body)
	if err != nil {
		return err
	}
	if val != "" {
		g.emit(OpReturn, val, "", "")
	}
	g.emit(OpFuncEnd, fn.Name, "", "")
	return nil
}

// declType picks the printed type of a decl quad: the annotation as
// written, or the computed initializer type.
func (g *Generator) declType(d *syntax.VarDecl) string {
	if d.Typ != nil {
		return d.Typ.String()
	}
	if d.Init != nil && g.info != nil {
		if t := g.info.TypeOf(d.Init); t != nil {
			return t.String()
		}
	}
	return ""
}

// --- Statements -------------------------------------------------------------

// genStmt translates one statement. The returned value is empty for most
// statements; a loop expression in statement position yields its result
// temporary, which a function body may turn into an implicit return.
func (g *Generator) genStmt(s syntax.Stmt) (string, error) {
	switch x := s.(type) {
	case *syntax.VarDecl:
		g.emit(OpDecl, x.Name, g.declType(x), "")
		if x.Init != nil {
			val, err := g.genExpr(x.Init)
			if err != nil {
				return "", err
			}
			g.emit(OpAssign, val, "", x.Name)
		}
		return "", nil
	case *syntax.AssignStmt:
		return "", g.genAssign(x)
	case *syntax.ReturnStmt:
		if x.Expr != nil {
			val, err := g.genExpr(x.Expr)
			if err != nil {
				return "", err
			}
			g.emit(OpReturn, val, "", "")
		} else {
			g.emit(OpReturn, "", "", "")
		}
		return "", nil
	case *syntax.IfStmt:
		return "", g.genIfStmt(x)
	case *syntax.WhileStmt:
		return "", g.genWhile(x)
	case *syntax.ForStmt:
		return "", g.genFor(x)
	case *syntax.LoopStmt:
		return g.genLoop(x)
	case *syntax.BreakStmt:
		return "", g.genBreak(x)
	case *syntax.ContinueStmt:
		return "", g.genContinue(x)
	case *syntax.ExprStmt:
		val, err := g.genExpr(x.Expr)
		if err != nil {
			return "", err
		}
		g.emit(OpEval, val, "", "")
		return "", nil
	case *syntax.EmptyStmt:
		return "", nil
	case *syntax.Block:
		return g.genBlockStmts(x)
	}
	line, col := s.Pos()
	return "", ferro.Errorf(line, col, "cannot lower statement %s", syntax.NodeName(s))
}

func (g *Generator) genAssign(a *syntax.AssignStmt) error {
	val, err := g.genExpr(a.Expr)
	if err != nil {
		return err
	}
	switch target := a.Target.(type) {
	case *syntax.Ident:
		g.emit(OpAssign, val, "", target.Name)
	case *syntax.IndexExpr:
		place, err := g.genExpr(target)
		if err != nil {
			return err
		}
		g.emit(OpAssign, val, "", place)
	case *syntax.MemberExpr:
		place, err := g.genExpr(target)
		if err != nil {
			return err
		}
		g.emit(OpAssign, val, "", place)
	default:
		line, col := a.Pos()
		return ferro.Errorf(line, col, "unsupported assignment target %s", syntax.NodeName(a.Target))
	}
	return nil
}

func (g *Generator) genIfStmt(n *syntax.IfStmt) error {
	cond, err := g.genExpr(n.Cond)
	if err != nil {
		return err
	}
	labelElse := g.newLabel()
	labelEnd := g.newLabel()
	g.emit(OpIfFalseGoto, cond, "", labelElse)
	if _, err := g.genBlockStmts(n.Then); err != nil {
		return err
	}
	g.emit(OpGoto, "", "", labelEnd)
	g.emit(OpLabel, "", "", labelElse)
	if n.Else != nil {
		if _, err := g.genBlockStmts(n.Else); err != nil {
			return err
		}
	}
	g.emit(OpLabel, "", "", labelEnd)
	return nil
}

func (g *Generator) genWhile(n *syntax.WhileStmt) error {
	labelStart := g.newLabel()
	labelEnd := g.newLabel()
	g.loops = append(g.loops, loopFrame{breakLabel: labelEnd, continueLabel: labelStart})
	g.emit(OpLabel, "", "", labelStart)
	cond, err := g.genExpr(n.Cond)
	if err != nil {
		return err
	}
	g.emit(OpIfFalseGoto, cond, "", labelEnd)
	if _, err := g.genBlockStmts(n.Body); err != nil {
		return err
	}
	if !g.lastQuadJumps() {
		g.emit(OpGoto, "", "", labelStart)
	}
	g.emit(OpLabel, "", "", labelEnd)
	g.loops = g.loops[:len(g.loops)-1]
	return nil
}

func (g *Generator) genFor(n *syntax.ForStmt) error {
	line, col := n.Pos()
	if n.End == nil {
		return ferro.Errorf(line, col, "for over an array value cannot be lowered")
	}
	start, err := g.genExpr(n.Start)
	if err != nil {
		return err
	}
	g.emit(OpAssign, start, "", n.Name)
	labelCond := g.newLabel()
	labelBody := g.newLabel()
	labelEnd := g.newLabel()
	g.loops = append(g.loops, loopFrame{breakLabel: labelEnd, continueLabel: labelCond})
	g.emit(OpGoto, "", "", labelCond)
	g.emit(OpLabel, "", "", labelBody)
	if _, err := g.genBlockStmts(n.Body); err != nil {
		return err
	}
	incr := g.newTemp()
	g.emit("+", n.Name, "1", incr)
	g.emit(OpAssign, incr, "", n.Name)
	g.emit(OpLabel, "", "", labelCond)
	end, err := g.genExpr(n.End)
	if err != nil {
		return err
	}
	cond := g.newTemp()
	g.emit("<", n.Name, end, cond)
	g.emit(OpIfFalseGoto, cond, "", labelEnd)
	g.emit(OpGoto, "", "", labelBody)
	g.emit(OpLabel, "", "", labelEnd)
	g.loops = g.loops[:len(g.loops)-1]
	return nil
}

func (g *Generator) genLoop(n *syntax.LoopStmt) (string, error) {
	labelStart := g.newLabel()
	labelEnd := g.newLabel()
	result := g.newTemp()
	g.loops = append(g.loops, loopFrame{
		breakLabel: labelEnd, continueLabel: labelStart, result: result})
	g.emit(OpLabel, "", "", labelStart)
	if _, err := g.genBlockStmts(n.Body); err != nil {
		return "", err
	}
	if !g.lastQuadJumps() {
		g.emit(OpGoto, "", "", labelStart)
	}
	g.emit(OpLabel, "", "", labelEnd)
	g.loops = g.loops[:len(g.loops)-1]
	return result, nil
}

func (g *Generator) genBreak(n *syntax.BreakStmt) error {
	if len(g.loops) == 0 {
		line, col := n.Pos()
		return ferro.Errorf(line, col, "break outside of a loop")
	}
	frame := g.loops[len(g.loops)-1]
	if n.Expr != nil && frame.result != "" {
		val, err := g.genExpr(n.Expr)
		if err != nil {
			return err
		}
		g.emit(OpAssign, val, "", frame.result)
	}
	g.emit(OpGoto, "", "", frame.breakLabel)
	return nil
}

func (g *Generator) genContinue(n *syntax.ContinueStmt) error {
	if len(g.loops) == 0 {
		line, col := n.Pos()
		return ferro.Errorf(line, col, "continue outside of a loop")
	}
	g.emit(OpGoto, "", "", g.loops[len(g.loops)-1].continueLabel)
	return nil
}

// genBlockStmts translates a block in statement context. Translation
// stops after a terminator; the returned value is the value of the last
// statement, which is how a trailing loop expression or implicit return
// feeds a function's result.
func (g *Generator) genBlockStmts(b *syntax.Block) (string, error) {
	var last string
	for _, s := range b.Stmts {
		if ret, ok := s.(*syntax.ReturnStmt); ok && ret.Implicit {
			val, err := g.genExpr(ret.Expr)
			if err != nil {
				return "", err
			}
			return val, nil
		}
		val, err := g.genStmt(s)
		if err != nil {
			return "", err
		}
		switch s.(type) {
		case *syntax.BreakStmt, *syntax.ContinueStmt, *syntax.ReturnStmt:
			return "", nil // the rest of the block is unreachable
		}
		last = val
	}
	return last, nil
}

// genBlockExpr translates a block in expression context and returns the
// value of its trailing element.
func (g *Generator) genBlockExpr(b *syntax.Block) (string, error) {
	if len(b.Stmts) == 0 {
		return "", nil
	}
	for _, s := range b.Stmts[:len(b.Stmts)-1] {
		if _, err := g.genStmt(s); err != nil {
			return "", err
		}
	}
	switch last := b.Stmts[len(b.Stmts)-1].(type) {
	case *syntax.ReturnStmt:
		if last.Implicit {
			return g.genExpr(last.Expr)
		}
		_, err := g.genStmt(last)
		return "", err
	case *syntax.ExprStmt:
		return g.genExpr(last.Expr)
	default:
		return g.genStmt(last)
	}
}

// --- Expressions ------------------------------------------------------------

// genExpr computes an expression and returns the textual value referring
// to its result: a temporary, a variable name, or a number literal.
func (g *Generator) genExpr(e syntax.Expr) (string, error) {
	switch x := e.(type) {
	case *syntax.NumberLit:
		return strconv.Itoa(x.Value), nil
	case *syntax.Ident:
		return x.Name, nil
	case *syntax.BinaryOp:
		left, err := g.genExpr(x.Left)
		if err != nil {
			return "", err
		}
		right, err := g.genExpr(x.Right)
		if err != nil {
			return "", err
		}
		temp := g.newTemp()
		g.emit(x.Op, left, right, temp)
		return temp, nil
	case *syntax.FuncCall:
		args := make([]string, len(x.Args))
		for i, arg := range x.Args {
			val, err := g.genExpr(arg)
			if err != nil {
				return "", err
			}
			args[i] = val
		}
		name, err := g.genExpr(x.Fn)
		if err != nil {
			return "", err
		}
		temp := g.newTemp()
		g.emit(OpCall, name, bracketList(args), temp)
		return temp, nil
	case *syntax.ArrayLiteral:
		return g.genLiteralList(OpArrayLit, x.Elems)
	case *syntax.TupleLiteral:
		return g.genLiteralList(OpTupleLit, x.Elems)
	case *syntax.IndexExpr:
		base, err := g.genExpr(x.Base)
		if err != nil {
			return "", err
		}
		index, err := g.genExpr(x.Index)
		if err != nil {
			return "", err
		}
		temp := g.newTemp()
		g.emit(OpIndex, base, index, temp)
		return temp, nil
	case *syntax.MemberExpr:
		base, err := g.genExpr(x.Base)
		if err != nil {
			return "", err
		}
		temp := g.newTemp()
		g.emit(OpMemberAccess, base, strconv.Itoa(x.Field), temp)
		return temp, nil
	case *syntax.BorrowExpr:
		val, err := g.genExpr(x.Target)
		if err != nil {
			return "", err
		}
		temp := g.newTemp()
		if x.Mutable {
			g.emit(OpBorrowMut, val, "", temp)
		} else {
			g.emit(OpBorrow, val, "", temp)
		}
		return temp, nil
	case *syntax.DerefExpr:
		val, err := g.genExpr(x.Target)
		if err != nil {
			return "", err
		}
		temp := g.newTemp()
		g.emit(OpDeref, val, "", temp)
		return temp, nil
	case *syntax.IfStmt:
		return g.genIfExpr(x)
	case *syntax.LoopStmt:
		return g.genLoop(x)
	case *syntax.Block:
		return g.genBlockExpr(x)
	}
	line, col := e.Pos()
	return "", ferro.Errorf(line, col, "cannot lower expression %s", syntax.NodeName(e))
}

func (g *Generator) genLiteralList(op string, elems []syntax.Expr) (string, error) {
	vals := make([]string, len(elems))
	for i, elem := range elems {
		val, err := g.genExpr(elem)
		if err != nil {
			return "", err
		}
		vals[i] = val
	}
	temp := g.newTemp()
	g.emit(op, bracketList(vals), "", temp)
	return temp, nil
}

// genIfExpr translates `if` in expression context: both arms assign
// their value to a shared result temporary.
func (g *Generator) genIfExpr(n *syntax.IfStmt) (string, error) {
	cond, err := g.genExpr(n.Cond)
	if err != nil {
		return "", err
	}
	labelElse := g.newLabel()
	labelEnd := g.newLabel()
	result := g.newTemp()
	g.emit(OpIfFalseGoto, cond, "", labelElse)
	thenVal, err := g.genBlockExpr(n.Then)
	if err != nil {
		return "", err
	}
	g.emit(OpAssign, thenVal, "", result)
	g.emit(OpGoto, "", "", labelEnd)
	g.emit(OpLabel, "", "", labelElse)
	elseVal, err := g.genBlockExpr(n.Else)
	if err != nil {
		return "", err
	}
	g.emit(OpAssign, elseVal, "", result)
	g.emit(OpLabel, "", "", labelEnd)
	return result, nil
}
