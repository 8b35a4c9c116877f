/*
Package parser drives a table-driven LR(1) stack automaton over the ferro
ACTION/GOTO tables, building AST nodes during reductions.

The parser operates a state stack and a symbol stack. Terminals push the
scanned token; a reduction pops the handle, feeds it to the production's
reducer (see package syntax) and pushes the resulting node. A trace hook
receives a row before every shift/reduce and on accept, mirroring what a
table-driven parser would print as its derivation protocol.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.
*/
package parser

import (
	"errors"
	"fmt"
	"sync"

	"github.com/npillmayer/schuko/tracing"

	"github.com/ferrolang/ferro"
	"github.com/ferrolang/ferro/lr"
	"github.com/ferrolang/ferro/syntax"
)

// tracer traces with key 'ferro.parser'.
func tracer() tracing.Trace {
	return tracing.Select("ferro.parser")
}

// SyntaxError reports the offending token together with the parser state
// and the mapped lookahead terminal.
type SyntaxError struct {
	Token     ferro.Token
	State     int
	Lookahead string
}

func (e *SyntaxError) Error() string {
	return ferro.Errorf(e.Token.Line, e.Token.Col,
		"unexpected token %s(%s) (lookahead %s) in state %d",
		e.Token.Kind, e.Token.Value, e.Lookahead, e.State).Error()
}

// TraceRow is one protocol row of a parse: the state stack, a rendering
// of the symbol stack, the remaining input, and the action taken.
type TraceRow struct {
	States  []int
	Symbols []string
	Input   []string
	Action  string
}

// Parser is a table-driven LR(1) parser for the ferro grammar. It is
// read-only after construction and may be reused for any number of
// parses; each parse gets fresh stacks.
type Parser struct {
	g         *lr.Grammar
	reducers  []syntax.Reducer
	action    *lr.Table
	gototable *lr.Table
}

// The generated tables are pure data and shared by every parser of this
// process.
var (
	buildOnce   sync.Once
	builtTables *lr.TableGenerator
	buildErr    error
)

func sharedTables() (*lr.TableGenerator, error) {
	buildOnce.Do(func() {
		_, _, builtTables, buildErr = syntax.BuildTables()
	})
	return builtTables, buildErr
}

// New constructs a parser, generating the parse tables in memory.
func New() (*Parser, error) {
	g, reducers, err := syntax.Grammar()
	if err != nil {
		return nil, err
	}
	lrgen, err := sharedTables()
	if err != nil {
		return nil, err
	}
	return &Parser{g: g, reducers: reducers,
		action: lrgen.ActionTable(), gototable: lrgen.GotoTable()}, nil
}

// NewCached constructs a parser, loading the parse tables from the given
// artifact path. On a miss — no artifact, unreadable artifact, or one
// generated for a different grammar — the tables are built and persisted
// fresh.
func NewCached(path string) (*Parser, error) {
	g, reducers, err := syntax.Grammar()
	if err != nil {
		return nil, err
	}
	action, gototable, err := lr.LoadTables(path, g)
	if err == nil {
		return &Parser{g: g, reducers: reducers, action: action, gototable: gototable}, nil
	}
	if errors.Is(err, lr.ErrTableVersion) {
		tracer().Infof("stale parser tables at %s, rebuilding", path)
	} else {
		tracer().Infof("no parser tables at %s, building (%v)", path, err)
	}
	lrgen, err := sharedTables()
	if err != nil {
		return nil, err
	}
	if err := lr.SaveTables(path, g, lrgen.ActionTable(), lrgen.GotoTable()); err != nil {
		tracer().Errorf("cannot persist parser tables: %v", err)
	}
	return &Parser{g: g, reducers: reducers,
		action: lrgen.ActionTable(), gototable: lrgen.GotoTable()}, nil
}

// lookahead maps a token to its grammar terminal: identifiers to IDENT,
// numbers to NUMBER, end of input to $, everything else to the terminal
// named by the token text.
func (p *Parser) lookahead(tok ferro.Token) (*lr.Symbol, string) {
	switch tok.Kind {
	case ferro.Ident:
		return p.g.Terminal("IDENT"), "IDENT"
	case ferro.Number:
		return p.g.Terminal("NUMBER"), "NUMBER"
	case ferro.EOF:
		return p.g.EOF, "$"
	default:
		return p.g.Terminal(tok.Value), tok.Value
	}
}

// Parse runs the automaton over a token stream and returns the AST root.
// The trace hook may be nil.
func (p *Parser) Parse(tokens []ferro.Token, trace func(TraceRow)) (*syntax.Program, error) {
	states := make([]int, 1, 256) // starts as [0], the CFSM start state
	symbols := make([]interface{}, 0, 256)
	idx := 0
	for {
		state := states[len(states)-1]
		tok := tokens[idx]
		if tok.Kind == ferro.Error {
			return nil, ferro.Errorf(tok.Line, tok.Col, "unrecognized input %q", tok.Value)
		}
		look, lookName := p.lookahead(tok)
		if look == nil {
			return nil, &SyntaxError{Token: tok, State: state, Lookahead: tok.Value}
		}
		action := p.action.Value(state, look.Value)
		switch {
		case action == p.action.NullValue():
			return nil, &SyntaxError{Token: tok, State: state, Lookahead: lookName}
		case action == lr.AcceptAction:
			p.emitTrace(trace, states, symbols, nil, "accept")
			root, ok := symbols[len(symbols)-1].(*syntax.Program)
			if !ok {
				return nil, fmt.Errorf("accept state with non-program symbol on stack")
			}
			tracer().Debugf("accepted after %d tokens", idx)
			return root, nil
		case action == lr.ShiftAction:
			next := p.gototable.Value(state, look.Value)
			if next == p.gototable.NullValue() {
				return nil, fmt.Errorf("corrupt tables: shift in state %d on %q without successor",
					state, lookName)
			}
			p.emitTrace(trace, states, symbols, tokens[idx:], fmt.Sprintf("shift %d", next))
			symbols = append(symbols, tok)
			states = append(states, int(next))
			idx++
		default: // reduce
			rule := p.g.Rule(int(action))
			p.emitTrace(trace, states, symbols, tokens[idx:],
				fmt.Sprintf("reduce %s", rule))
			n := rule.Len()
			if n == 0 {
				// a cycle of ε-reductions indicates corrupt tables
				if int(p.gototable.Value(state, rule.LHS.Value)) == state {
					return nil, fmt.Errorf("corrupt tables: infinite ε-reduce of %s in state %d",
						rule, state)
				}
			}
			children := make([]interface{}, n)
			for i := n - 1; i >= 0; i-- { // pop the handle in reverse order
				children[i] = symbols[len(symbols)-1]
				symbols = symbols[:len(symbols)-1]
			}
			states = states[:len(states)-n]
			value := p.reducers[rule.Serial](children)
			top := states[len(states)-1]
			next := p.gototable.Value(top, rule.LHS.Value)
			if next == p.gototable.NullValue() {
				return nil, fmt.Errorf("corrupt tables: no GOTO for %s in state %d",
					rule.LHS.Name, top)
			}
			symbols = append(symbols, value)
			states = append(states, int(next))
		}
	}
}

func (p *Parser) emitTrace(trace func(TraceRow), states []int, symbols []interface{},
	input []ferro.Token, action string) {
	if trace == nil {
		return
	}
	row := TraceRow{
		States:  append([]int(nil), states...),
		Symbols: make([]string, len(symbols)),
		Action:  action,
	}
	for i, sym := range symbols {
		row.Symbols[i] = symbolRepr(sym)
	}
	for _, tok := range input {
		if tok.Kind == ferro.EOF {
			row.Input = append(row.Input, "$")
		} else {
			row.Input = append(row.Input, tok.Value)
		}
	}
	trace(row)
}

// symbolRepr renders one symbol-stack entry for the parse trace.
func symbolRepr(v interface{}) string {
	switch x := v.(type) {
	case ferro.Token:
		return fmt.Sprintf("%s(%s)", x.Kind, x.Value)
	case syntax.Node:
		return syntax.NodeName(x)
	case []syntax.Stmt:
		return fmt.Sprintf("StmtList(%d)", len(x))
	case []syntax.Expr:
		return fmt.Sprintf("ExprList(%d)", len(x))
	case []*syntax.Param:
		return fmt.Sprintf("ParamList(%d)", len(x))
	case []*syntax.FuncDecl:
		return fmt.Sprintf("DeclList(%d)", len(x))
	case []syntax.TypeExpr:
		return fmt.Sprintf("TypeList(%d)", len(x))
	case nil:
		return "ε"
	default:
		return fmt.Sprintf("%T", v)
	}
}
