/*
Package sema implements the semantic analysis of ferro programs: a scoped
symbol table, a nominal type system with structural equality, type
checking over all statements and expressions, mutability and
initialization discipline, and a conservative scope-based borrow tracker.

The checker performs a single post-parse tree walk. The AST itself stays
immutable; computed types and symbol bindings are collected in an Info
side table keyed by node identity.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.
*/
package sema

import (
	"fmt"
	"strings"

	"github.com/npillmayer/schuko/tracing"

	"github.com/ferrolang/ferro"
	"github.com/ferrolang/ferro/syntax"
)

// tracer traces with key 'ferro.sema'.
func tracer() tracing.Trace {
	return tracing.Select("ferro.sema")
}

// Type is a semantic type. Equality is structural.
type Type interface {
	Equals(other Type) bool
	String() string
}

// Primitive is a named base type.
type Primitive struct {
	Name string
}

// The predefined primitive types. Err is attached to constructs that
// cannot be typed (currently only empty array literals).
var (
	I32  = &Primitive{Name: "i32"}
	Void = &Primitive{Name: "void"}
	Err  = &Primitive{Name: "error"}
)

func (t *Primitive) Equals(other Type) bool {
	o, ok := other.(*Primitive)
	return ok && t.Name == o.Name
}

func (t *Primitive) String() string {
	return t.Name
}

// Ref is a reference type &T or &mut T.
type Ref struct {
	Target  Type
	Mutable bool
}

func (t *Ref) Equals(other Type) bool {
	o, ok := other.(*Ref)
	return ok && t.Mutable == o.Mutable && t.Target.Equals(o.Target)
}

func (t *Ref) String() string {
	if t.Mutable {
		return "&mut " + t.Target.String()
	}
	return "&" + t.Target.String()
}

// Array is a fixed-size array type [T; N].
type Array struct {
	Elem Type
	Size int
}

func (t *Array) Equals(other Type) bool {
	o, ok := other.(*Array)
	return ok && t.Size == o.Size && t.Elem.Equals(o.Elem)
}

func (t *Array) String() string {
	return fmt.Sprintf("[%s; %d]", t.Elem, t.Size)
}

// Tuple is a tuple type, including the empty tuple ().
type Tuple struct {
	Members []Type
}

func (t *Tuple) Equals(other Type) bool {
	o, ok := other.(*Tuple)
	if !ok || len(t.Members) != len(o.Members) {
		return false
	}
	for i, m := range t.Members {
		if !m.Equals(o.Members[i]) {
			return false
		}
	}
	return true
}

func (t *Tuple) String() string {
	parts := make([]string, len(t.Members))
	for i, m := range t.Members {
		parts[i] = m.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// Function is a function signature fn(P1, …, Pn) -> R.
type Function struct {
	Params []Type
	Return Type
}

func (t *Function) Equals(other Type) bool {
	o, ok := other.(*Function)
	if !ok || len(t.Params) != len(o.Params) || !t.Return.Equals(o.Return) {
		return false
	}
	for i, p := range t.Params {
		if !p.Equals(o.Params[i]) {
			return false
		}
	}
	return true
}

func (t *Function) String() string {
	parts := make([]string, len(t.Params))
	for i, p := range t.Params {
		parts[i] = p.String()
	}
	return fmt.Sprintf("fn(%s) -> %s", strings.Join(parts, ", "), t.Return)
}

// resolveType converts a type annotation from the AST into a semantic
// type.
func (c *Checker) resolveType(t syntax.TypeExpr) (Type, error) {
	switch x := t.(type) {
	case *syntax.NamedType:
		if x.Name == "i32" {
			return I32, nil
		}
		line, col := x.Pos()
		return nil, c.errorf(line, col, "unknown type annotation '%s'", x.Name)
	case *syntax.RefType:
		elem, err := c.resolveType(x.Elem)
		if err != nil {
			return nil, err
		}
		return &Ref{Target: elem, Mutable: x.Mutable}, nil
	case *syntax.ArrayType:
		elem, err := c.resolveType(x.Elem)
		if err != nil {
			return nil, err
		}
		return &Array{Elem: elem, Size: x.Size}, nil
	case *syntax.TupleType:
		members := make([]Type, len(x.Elems))
		for i, e := range x.Elems {
			m, err := c.resolveType(e)
			if err != nil {
				return nil, err
			}
			members[i] = m
		}
		return &Tuple{Members: members}, nil
	}
	line, col := t.Pos()
	return nil, c.errorf(line, col, "unknown type annotation '%s'", t)
}

// SemanticError is the diagnostic raised by the checker; it carries the
// source position of the offending construct.
type SemanticError = ferro.PosError
