package syntax

import (
	"fmt"
	"io"
	"strings"
)

// Fprint writes an indented tree rendering of an AST to w. It is used by
// the CLI and by debugging sessions; the output format is not stable.
func Fprint(w io.Writer, n Node) {
	p := printer{w: w}
	p.node(n, 0, "")
}

type printer struct {
	w io.Writer
}

func (p *printer) line(depth int, tag, format string, args ...interface{}) {
	indent := strings.Repeat("  ", depth)
	if tag != "" {
		tag = tag + ": "
	}
	fmt.Fprintf(p.w, "%s%s%s\n", indent, tag, fmt.Sprintf(format, args...))
}

func (p *printer) node(n Node, depth int, tag string) {
	if n == nil {
		return
	}
	switch x := n.(type) {
	case *Program:
		p.line(depth, tag, "Program")
		for _, item := range x.Items {
			p.node(item, depth+1, "")
		}
	case *FuncDecl:
		sig := x.Name
		if x.RetType != nil {
			sig += " -> " + x.RetType.String()
		}
		p.line(depth, tag, "FuncDecl %s", sig)
		for _, param := range x.Params {
			mut := ""
			if param.Mutable {
				mut = "mut "
			}
			p.line(depth+1, "param", "%s%s: %s", mut, param.Name, param.Typ.String())
		}
		p.node(x.Body, depth+1, "body")
	case *Block:
		p.line(depth, tag, "Block")
		for _, s := range x.Stmts {
			p.node(s, depth+1, "")
		}
	case *VarDecl:
		mut := ""
		if x.Mutable {
			mut = "mut "
		}
		typ := ""
		if x.Typ != nil {
			typ = ": " + x.Typ.String()
		}
		p.line(depth, tag, "VarDecl %s%s%s", mut, x.Name, typ)
		p.node(x.Init, depth+1, "init")
	case *AssignStmt:
		p.line(depth, tag, "Assign")
		p.node(x.Target, depth+1, "target")
		p.node(x.Expr, depth+1, "value")
	case *ReturnStmt:
		if x.Implicit {
			p.line(depth, tag, "Return (implicit)")
		} else {
			p.line(depth, tag, "Return")
		}
		p.node(x.Expr, depth+1, "")
	case *IfStmt:
		p.line(depth, tag, "If")
		p.node(x.Cond, depth+1, "cond")
		p.node(x.Then, depth+1, "then")
		if x.Else != nil {
			p.node(x.Else, depth+1, "else")
		}
	case *WhileStmt:
		p.line(depth, tag, "While")
		p.node(x.Cond, depth+1, "cond")
		p.node(x.Body, depth+1, "body")
	case *ForStmt:
		mut := ""
		if x.Mutable {
			mut = "mut "
		}
		p.line(depth, tag, "For %s%s", mut, x.Name)
		p.node(x.Start, depth+1, "start")
		if x.End != nil {
			p.node(x.End, depth+1, "end")
		}
		p.node(x.Body, depth+1, "body")
	case *LoopStmt:
		p.line(depth, tag, "Loop")
		p.node(x.Body, depth+1, "body")
	case *BreakStmt:
		p.line(depth, tag, "Break")
		p.node(x.Expr, depth+1, "")
	case *ContinueStmt:
		p.line(depth, tag, "Continue")
	case *ExprStmt:
		p.line(depth, tag, "ExprStmt")
		p.node(x.Expr, depth+1, "")
	case *EmptyStmt:
		p.line(depth, tag, "Empty")
	case *NumberLit:
		p.line(depth, tag, "Number %s", x.Text)
	case *Ident:
		p.line(depth, tag, "Ident %s", x.Name)
	case *BinaryOp:
		p.line(depth, tag, "Operator %s", x.Op)
		p.node(x.Left, depth+1, "")
		p.node(x.Right, depth+1, "")
	case *FuncCall:
		p.line(depth, tag, "Call")
		p.node(x.Fn, depth+1, "fn")
		for _, arg := range x.Args {
			p.node(arg, depth+1, "arg")
		}
	case *ArrayLiteral:
		p.line(depth, tag, "Array (%d elements)", len(x.Elems))
		for _, e := range x.Elems {
			p.node(e, depth+1, "")
		}
	case *TupleLiteral:
		p.line(depth, tag, "Tuple (%d elements)", len(x.Elems))
		for _, e := range x.Elems {
			p.node(e, depth+1, "")
		}
	case *IndexExpr:
		p.line(depth, tag, "Index")
		p.node(x.Base, depth+1, "base")
		p.node(x.Index, depth+1, "index")
	case *MemberExpr:
		p.line(depth, tag, "Member .%d", x.Field)
		p.node(x.Base, depth+1, "base")
	case *BorrowExpr:
		if x.Mutable {
			p.line(depth, tag, "Borrow mut")
		} else {
			p.line(depth, tag, "Borrow")
		}
		p.node(x.Target, depth+1, "")
	case *DerefExpr:
		p.line(depth, tag, "Deref")
		p.node(x.Target, depth+1, "")
	default:
		p.line(depth, tag, "%s", NodeName(n))
	}
}
