package lr

import (
	"fmt"
	"strings"
)

// Symbol values. Terminals receive small values starting right after the
// end-of-input sentinel; non-terminals live in their own value range so
// that both kinds can index the same table columns.
const (
	EpsilonType = 0    // the empty string, only ever a FIRST-set member
	EOFType     = 1    // the end-of-input sentinel '$'
	NonTermType = 1000 // first value handed out to non-terminals
)

// Symbol is a grammar symbol, either a terminal or a non-terminal.
// Symbols are interned per grammar: two occurrences of the same name are
// pointer-identical.
type Symbol struct {
	Name     string
	Value    int // table column index of this symbol
	terminal bool
}

// IsTerminal returns true for terminals and the EOF sentinel.
func (s *Symbol) IsTerminal() bool {
	return s.terminal
}

func (s *Symbol) String() string {
	return s.Name
}

// Rule is a grammar production LHS → RHS. Serial is the ordinal number of
// the rule within its grammar; the augmented start rule has serial 0.
type Rule struct {
	Serial int
	LHS    *Symbol
	rhs    []*Symbol
}

// RHS returns the right-hand side symbols of the rule.
func (r *Rule) RHS() []*Symbol {
	return r.rhs
}

// Len returns the number of right-hand side symbols.
func (r *Rule) Len() int {
	return len(r.rhs)
}

// IsEpsilon returns true for ε-productions.
func (r *Rule) IsEpsilon() bool {
	return len(r.rhs) == 0
}

func (r *Rule) String() string {
	return fmt.Sprintf("%s → %s", r.LHS.Name, r.rhsString())
}

func (r *Rule) rhsString() string {
	if len(r.rhs) == 0 {
		return "ε"
	}
	names := make([]string, len(r.rhs))
	for i, sym := range r.rhs {
		names[i] = sym.Name
	}
	return strings.Join(names, " ")
}

// eq compares two rules by content.
func (r *Rule) eq(lhs *Symbol, handle []*Symbol) bool {
	if r.LHS != lhs || len(r.rhs) != len(handle) {
		return false
	}
	for i, sym := range r.rhs {
		if sym != handle[i] {
			return false
		}
	}
	return true
}

// TableError is returned for structural problems detected during grammar
// or table construction.
type TableError struct {
	Msg string
}

func (e *TableError) Error() string {
	return e.Msg
}

func tableErrorf(format string, args ...interface{}) *TableError {
	return &TableError{Msg: fmt.Sprintf(format, args...)}
}

// Grammar is an immutable grammar, augmented with a start rule S' → S as
// production 0. Create one with a GrammarBuilder.
type Grammar struct {
	Name         string
	EOF          *Symbol // the '$' sentinel
	rules        []*Rule
	terminals    map[string]*Symbol
	nonterminals map[string]*Symbol
	maxValue     int
}

// Size returns the number of productions, including the augmentation rule.
func (g *Grammar) Size() int {
	return len(g.rules)
}

// Rule returns the production with the given serial, or nil.
func (g *Grammar) Rule(serial int) *Rule {
	if serial < 0 || serial >= len(g.rules) {
		return nil
	}
	return g.rules[serial]
}

// Terminal returns the terminal symbol with the given name, or nil.
func (g *Grammar) Terminal(name string) *Symbol {
	return g.terminals[name]
}

// Nonterminal returns the non-terminal symbol with the given name, or nil.
func (g *Grammar) Nonterminal(name string) *Symbol {
	return g.nonterminals[name]
}

// MaxSymbolValue returns the largest symbol value in use; table columns
// range over 0…MaxSymbolValue.
func (g *Grammar) MaxSymbolValue() int {
	return g.maxValue
}

// EachRule iterates over all productions in serial order.
func (g *Grammar) EachRule(f func(r *Rule)) {
	for _, r := range g.rules {
		f(r)
	}
}

// EachSymbol iterates over all symbols of the grammar, terminals first,
// in ascending symbol-value order.
func (g *Grammar) EachSymbol(f func(sym *Symbol)) {
	for _, sym := range g.symbolsByValue() {
		f(sym)
	}
}

// EachNonTerminal iterates over the non-terminals of the grammar in
// ascending symbol-value order.
func (g *Grammar) EachNonTerminal(f func(sym *Symbol)) {
	for _, sym := range g.symbolsByValue() {
		if !sym.IsTerminal() {
			f(sym)
		}
	}
}

func (g *Grammar) symbolsByValue() []*Symbol {
	syms := make([]*Symbol, 0, len(g.terminals)+len(g.nonterminals))
	for _, sym := range g.terminals {
		syms = append(syms, sym)
	}
	for _, sym := range g.nonterminals {
		syms = append(syms, sym)
	}
	sortSymbols(syms)
	return syms
}

func sortSymbols(syms []*Symbol) {
	for i := 1; i < len(syms); i++ { // insertion sort, symbol counts are small
		for j := i; j > 0 && syms[j-1].Value > syms[j].Value; j-- {
			syms[j-1], syms[j] = syms[j], syms[j-1]
		}
	}
}

// rulesFor returns all productions with the given LHS.
func (g *Grammar) rulesFor(A *Symbol) []*Rule {
	var rules []*Rule
	for _, r := range g.rules {
		if r.LHS == A {
			rules = append(rules, r)
		}
	}
	return rules
}

// matchesRHS finds the production LHS → handle and returns it together
// with its serial, or (nil, -1).
func (g *Grammar) matchesRHS(lhs *Symbol, handle []*Symbol) (*Rule, int) {
	for _, r := range g.rules {
		if r.eq(lhs, handle) {
			return r, r.Serial
		}
	}
	return nil, -1
}

// Dump is a debugging helper, tracing all productions of the grammar.
func (g *Grammar) Dump() {
	tracer().Debugf("--- %s --------------------------", g.Name)
	for _, r := range g.rules {
		tracer().Debugf("%3d: %s", r.Serial, r.String())
	}
	tracer().Debugf("-------------------------------------")
}

// --- Grammar builder --------------------------------------------------------

// GrammarBuilder collects productions for a grammar. The start symbol is
// the LHS of the first rule added; Grammar() performs augmentation and
// consistency checks.
type GrammarBuilder struct {
	name         string
	rules        []*Rule
	terminals    map[string]*Symbol
	nonterminals map[string]*Symbol
	nextTermVal  int
	nextNTVal    int
	err          error
}

// NewGrammarBuilder creates a GrammarBuilder for a named grammar.
func NewGrammarBuilder(name string) *GrammarBuilder {
	return &GrammarBuilder{
		name:         name,
		terminals:    map[string]*Symbol{},
		nonterminals: map[string]*Symbol{},
		nextTermVal:  EOFType + 1,
		nextNTVal:    NonTermType,
	}
}

func (gb *GrammarBuilder) terminal(name string) *Symbol {
	if sym, ok := gb.terminals[name]; ok {
		return sym
	}
	if _, ok := gb.nonterminals[name]; ok {
		gb.fail("symbol %q used both as terminal and non-terminal", name)
	}
	sym := &Symbol{Name: name, Value: gb.nextTermVal, terminal: true}
	gb.nextTermVal++
	gb.terminals[name] = sym
	return sym
}

func (gb *GrammarBuilder) nonterminal(name string) *Symbol {
	if sym, ok := gb.nonterminals[name]; ok {
		return sym
	}
	if _, ok := gb.terminals[name]; ok {
		gb.fail("symbol %q used both as terminal and non-terminal", name)
	}
	sym := &Symbol{Name: name, Value: gb.nextNTVal}
	gb.nextNTVal++
	gb.nonterminals[name] = sym
	return sym
}

func (gb *GrammarBuilder) fail(format string, args ...interface{}) {
	if gb.err == nil {
		gb.err = tableErrorf(format, args...)
	}
}

// LHS starts a new rule with the given non-terminal on the left side.
func (gb *GrammarBuilder) LHS(name string) *RuleBuilder {
	return &RuleBuilder{gb: gb, lhs: gb.nonterminal(name)}
}

// RuleBuilder assembles the right-hand side of a single production.
type RuleBuilder struct {
	gb  *GrammarBuilder
	lhs *Symbol
	rhs []*Symbol
}

// N appends a non-terminal to the right-hand side.
func (rb *RuleBuilder) N(name string) *RuleBuilder {
	rb.rhs = append(rb.rhs, rb.gb.nonterminal(name))
	return rb
}

// T appends a terminal to the right-hand side. Terminal values are
// assigned in order of first appearance.
func (rb *RuleBuilder) T(name string) *RuleBuilder {
	rb.rhs = append(rb.rhs, rb.gb.terminal(name))
	return rb
}

// End finishes the rule and returns it. Serial numbers are provisional
// until Grammar() augments the grammar.
func (rb *RuleBuilder) End() *Rule {
	r := &Rule{LHS: rb.lhs, rhs: rb.rhs}
	rb.gb.rules = append(rb.gb.rules, r)
	return r
}

// Epsilon finishes the rule as an ε-production.
func (rb *RuleBuilder) Epsilon() *Rule {
	rb.rhs = nil
	return rb.End()
}

// Grammar validates the collected productions, augments the grammar with
// S' → S as production 0 and returns the finished grammar.
func (gb *GrammarBuilder) Grammar() (*Grammar, error) {
	if gb.err != nil {
		return nil, gb.err
	}
	if len(gb.rules) == 0 {
		return nil, tableErrorf("grammar %q has no productions", gb.name)
	}
	produced := map[*Symbol]bool{}
	for _, r := range gb.rules {
		produced[r.LHS] = true
	}
	for _, r := range gb.rules {
		for _, sym := range r.rhs {
			if !sym.IsTerminal() && !produced[sym] {
				return nil, tableErrorf("non-terminal %q has no productions", sym.Name)
			}
		}
	}
	start := gb.rules[0].LHS
	augmented := gb.nonterminal(start.Name + "'")
	if produced[augmented] {
		return nil, tableErrorf("augmented start symbol %q already in use", augmented.Name)
	}
	eof := &Symbol{Name: "$", Value: EOFType, terminal: true}
	gb.terminals["$"] = eof
	g := &Grammar{
		Name:         gb.name,
		EOF:          eof,
		terminals:    gb.terminals,
		nonterminals: gb.nonterminals,
	}
	g.rules = make([]*Rule, 0, len(gb.rules)+1)
	g.rules = append(g.rules, &Rule{LHS: augmented, rhs: []*Symbol{start}})
	g.rules = append(g.rules, gb.rules...)
	for i, r := range g.rules {
		r.Serial = i
	}
	g.maxValue = gb.nextNTVal - 1
	tracer().Infof("grammar %q: %d productions, %d terminals, %d non-terminals",
		g.Name, len(g.rules), len(g.terminals), len(g.nonterminals))
	return g, nil
}
