package lr

import (
	"fmt"
	"io"

	"github.com/emirpasic/gods/lists/arraylist"
	"github.com/emirpasic/gods/sets/treeset"
	"github.com/emirpasic/gods/utils"

	"github.com/ferrolang/ferro/lr/sparse"
)

// Actions for parser action tables. Reduce actions are encoded as the
// serial number of the production to reduce (always ≥ 1: production 0 is
// the augmentation rule, which accepts instead of reducing).
const (
	ShiftAction  = -1
	AcceptAction = -2
)

// === Closure and Goto-Set Operations =======================================

// Refer to "Compilers – Principles, Techniques & Tools" by Aho/Lam/Sethi/
// Ullman, section 4.7.2: canonical LR(1) collection.

// closure expands an item set: for every item [A → α·Bβ, a] with
// non-terminal B, the items [B → ·γ, b] are added for every production
// B → γ and every b ∈ FIRST(βa), until a fixed point is reached.
func (ga *LRAnalysis) closure(items ...Item) *itemSet {
	C := newItemSet()
	worklist := make([]Item, 0, 64)
	for _, i := range items {
		if C.add(i) {
			worklist = append(worklist, i)
		}
	}
	for len(worklist) > 0 {
		item := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		B := item.PeekSymbol()
		if B == nil || B.IsTerminal() {
			continue
		}
		lookaheads := ga.firstOfSeq(item.Suffix(), item.Lookahead())
		for _, r := range ga.g.rulesFor(B) {
			it := lookaheads.Iterator()
			for it.Next() {
				la := it.Value().(int)
				inew := Item{rule: r, la: la}
				if C.add(inew) {
					worklist = append(worklist, inew)
				}
			}
		}
	}
	return C
}

// gotoSet advances the dot over symbol A for every item of a closed set.
func (ga *LRAnalysis) gotoSet(closure *itemSet, A *Symbol) *itemSet {
	gotoset := newItemSet()
	for i := range closure.items {
		if i.PeekSymbol() == A {
			gotoset.add(i.Advance())
		}
	}
	return gotoset
}

func (ga *LRAnalysis) gotoSetClosure(i *itemSet, A *Symbol) *itemSet {
	gotoset := ga.gotoSet(i, A)
	if gotoset.empty() {
		return gotoset
	}
	kernel := make([]Item, 0, gotoset.size())
	for item := range gotoset.items {
		kernel = append(kernel, item)
	}
	return ga.closure(kernel...)
}

// === CFSM Construction =====================================================

// CFSMState is a state within the CFSM for a grammar.
type CFSMState struct {
	ID     int      // serial ID of this state
	items  *itemSet // configuration items within this state
	Accept bool     // is this an accepting state?
}

// CFSM edge between 2 states, directed and labelled with a symbol.
type cfsmEdge struct {
	from  *CFSMState
	to    *CFSMState
	label *Symbol
}

// Dump is a debugging helper.
func (s *CFSMState) Dump() {
	tracer().Debugf("--- state %03d -----------", s.ID)
	s.items.Dump()
	tracer().Debugf("-------------------------")
}

func (s *CFSMState) String() string {
	return fmt.Sprintf("(state %d | [%d])", s.ID, s.items.size())
}

// containsCompletedStartRule checks for the item [S' → S·, $].
func (s *CFSMState) containsCompletedStartRule() bool {
	for i := range s.items.items {
		if i.rule.Serial == 0 && i.PeekSymbol() == nil && i.la == EOFType {
			return true
		}
	}
	return false
}

// We need this for the set of states. It sorts states by serial ID.
func stateComparator(s1, s2 interface{}) int {
	c1 := s1.(*CFSMState)
	c2 := s2.(*CFSMState)
	return utils.IntComparator(c1.ID, c2.ID)
}

// CFSM is the characteristic finite state machine for an LR grammar,
// i.e. the LR(1) state diagram. Will be constructed by a TableGenerator.
// Clients normally do not use it directly, but it is kept available for
// debugging and for export of the state graph.
type CFSM struct {
	g      *Grammar
	states *treeset.Set    // all the states, ordered by ID
	edges  *arraylist.List // all the edges between states
	bySig  map[string]*CFSMState
	S0     *CFSMState // start state
	ids    int        // serial IDs for CFSM states
}

// create an empty (initial) CFSM automaton.
func emptyCFSM(g *Grammar) *CFSM {
	c := &CFSM{g: g}
	c.states = treeset.NewWith(stateComparator)
	c.edges = arraylist.New()
	c.bySig = map[string]*CFSMState{}
	return c
}

// Size returns the number of states.
func (c *CFSM) Size() int {
	return c.states.Size()
}

// addState finds or creates the state holding the given item set.
// State identity is item-set equality.
func (c *CFSM) addState(iset *itemSet) (*CFSMState, bool) {
	sig := iset.signature()
	if s, ok := c.bySig[sig]; ok {
		return s, false
	}
	s := &CFSMState{ID: c.ids, items: iset}
	c.ids++
	c.states.Add(s)
	c.bySig[sig] = s
	return s, true
}

func (c *CFSM) addEdge(s0, s1 *CFSMState, sym *Symbol) {
	c.edges.Add(&cfsmEdge{from: s0, to: s1, label: sym})
}

func (c *CFSM) allEdges(s *CFSMState) []*cfsmEdge {
	it := c.edges.Iterator()
	r := make([]*cfsmEdge, 0, 2)
	for it.Next() {
		e := it.Value().(*cfsmEdge)
		if e.from == s {
			r = append(r, e)
		}
	}
	return r
}

// ExportDot writes the state graph in Graphviz Dot format. Rendering is
// left to external tooling.
func (c *CFSM) ExportDot(w io.Writer) {
	io.WriteString(w, `digraph {
graph [splines=true, fontname=Helvetica, fontsize=10];
node [shape=Mrecord, style=filled, fontname=Helvetica, fontsize=10];
edge [fontname=Helvetica, fontsize=10];

`)
	it := c.states.Iterator()
	for it.Next() {
		s := it.Value().(*CFSMState)
		fmt.Fprintf(w, "s%03d [fillcolor=%s label=\"state %d\"]\n", s.ID, nodecolor(s), s.ID)
	}
	eit := c.edges.Iterator()
	for eit.Next() {
		e := eit.Value().(*cfsmEdge)
		fmt.Fprintf(w, "s%03d -> s%03d [label=\"%s\"]\n", e.from.ID, e.to.ID, e.label)
	}
	io.WriteString(w, "}\n")
}

func nodecolor(state *CFSMState) string {
	if state.Accept {
		return "lightgray"
	}
	return "white"
}

// ===========================================================================

// TableGenerator is a generator object to construct LR(1) parser tables.
// Clients usually create a Grammar G, then an LRAnalysis object for G,
// and then a table generator. TableGenerator.CreateTables() constructs
// the CFSM and the parser tables for an LR-parser recognizing grammar G.
type TableGenerator struct {
	g           *Grammar
	ga          *LRAnalysis
	dfa         *CFSM
	gototable   *Table
	actiontable *Table
	// HasConflicts reports whether any table cell collided during the
	// build. Shift/reduce collisions are resolved in favour of shift;
	// reduce/reduce collisions keep the production with the lower serial
	// and are fatal unless AllowReduceReduce is set.
	HasConflicts         bool
	ShiftReduceCount     int
	ReduceReduceCount    int
	AllowReduceReduce    bool
	reduceReduceExamples []string
}

// NewTableGenerator creates a new TableGenerator for a (previously
// analysed) grammar.
func NewTableGenerator(ga *LRAnalysis) *TableGenerator {
	return &TableGenerator{g: ga.Grammar(), ga: ga}
}

// CFSM returns the characteristic finite state machine for the grammar.
// It will be created if it has not been constructed previously.
func (lrgen *TableGenerator) CFSM() *CFSM {
	if lrgen.dfa == nil {
		lrgen.dfa = lrgen.buildCFSM()
	}
	return lrgen.dfa
}

// GotoTable returns the GOTO table. The tables have to be built by
// calling CreateTables() previously.
func (lrgen *TableGenerator) GotoTable() *Table {
	if lrgen.gototable == nil {
		tracer().Errorf("tables not yet initialized")
	}
	return lrgen.gototable
}

// ActionTable returns the ACTION table. The tables have to be built by
// calling CreateTables() previously.
func (lrgen *TableGenerator) ActionTable() *Table {
	if lrgen.actiontable == nil {
		tracer().Errorf("tables not yet initialized")
	}
	return lrgen.actiontable
}

// CreateTables creates the CFSM and the ACTION/GOTO tables for an LR(1)
// parser.
func (lrgen *TableGenerator) CreateTables() error {
	lrgen.dfa = lrgen.buildCFSM()
	lrgen.gototable = lrgen.buildGotoTable()
	if err := lrgen.buildActionTable(); err != nil {
		return err
	}
	if lrgen.ReduceReduceCount > 0 && !lrgen.AllowReduceReduce {
		return tableErrorf("grammar %q is not LR(1): %d reduce/reduce conflict(s), e.g. %s",
			lrgen.g.Name, lrgen.ReduceReduceCount, lrgen.reduceReduceExamples[0])
	}
	return nil
}

// buildCFSM constructs the canonical LR(1) collection: starting from
// closure({[S' → ·S, $]}), GOTO sets are computed for every symbol until
// no new states appear.
func (lrgen *TableGenerator) buildCFSM() *CFSM {
	tracer().Debugf("=== build CFSM ==================================================")
	G := lrgen.g
	cfsm := emptyCFSM(G)
	closure0 := lrgen.ga.closure(StartItem(G.rules[0]))
	cfsm.S0, _ = cfsm.addState(closure0)
	worklist := []*CFSMState{cfsm.S0}
	for len(worklist) > 0 {
		s := worklist[0]
		worklist = worklist[1:]
		G.EachSymbol(func(A *Symbol) {
			if A == G.EOF {
				return // no transitions on the sentinel
			}
			gotoset := lrgen.ga.gotoSetClosure(s.items, A)
			if gotoset.empty() {
				return
			}
			snew, isNew := cfsm.addState(gotoset)
			if isNew {
				if snew.containsCompletedStartRule() {
					snew.Accept = true
				}
				worklist = append(worklist, snew)
			}
			cfsm.addEdge(s, snew, A)
		})
	}
	tracer().Infof("CFSM of grammar %q has %d states", G.Name, cfsm.Size())
	return cfsm
}

// buildGotoTable fills the GOTO table from the CFSM edges. The table
// holds successor states for terminals and non-terminals alike; shift
// actions look up their target state here.
func (lrgen *TableGenerator) buildGotoTable() *Table {
	statescnt := lrgen.dfa.Size()
	extent := lrgen.g.MaxSymbolValue() + 1
	tracer().Debugf("GOTO table of size %d x %d", statescnt, extent)
	gototable := newTable(statescnt, extent)
	it := lrgen.dfa.edges.Iterator()
	for it.Next() {
		e := it.Value().(*cfsmEdge)
		gototable.set(e.from.ID, e.label.Value, int32(e.to.ID))
	}
	return gototable
}

// buildActionTable fills the ACTION table. For every state we iterate
// over its items in deterministic order (rule serial, dot, lookahead):
//
//   - an item [A → α·aβ, b] with terminal a produces a shift entry;
//   - an item [A → α·, a] with A ≠ S' produces a reduce entry for its
//     production at lookahead a;
//   - the item [S' → S·, $] produces the accept entry.
//
// On collision the first insertion wins, and shift entries always beat
// reduce entries. The shift preference attaches a dangling 'else' to the
// nearest 'if'. Reduce/reduce collisions keep the lower production serial
// and are counted; CreateTables treats them as fatal unless the client
// opted in to tolerate them.
func (lrgen *TableGenerator) buildActionTable() error {
	statescnt := lrgen.dfa.Size()
	extent := lrgen.g.MaxSymbolValue() + 1
	tracer().Debugf("ACTION table of size %d x %d", statescnt, extent)
	actions := newTable(statescnt, extent)
	states := lrgen.dfa.states.Iterator()
	for states.Next() {
		state := states.Value().(*CFSMState)
		for _, i := range state.items.sorted() {
			A := i.PeekSymbol()
			if A != nil && A.IsTerminal() {
				lrgen.insertShift(actions, state, A)
			}
			if A == nil { // dot at the end of the rule
				if i.rule.Serial == 0 {
					if i.Lookahead() == EOFType {
						actions.set(state.ID, EOFType, AcceptAction)
					}
					continue
				}
				lrgen.insertReduce(actions, state, i)
			}
		}
	}
	lrgen.actiontable = actions
	return nil
}

func (lrgen *TableGenerator) insertShift(actions *Table, state *CFSMState, a *Symbol) {
	old := actions.Value(state.ID, a.Value)
	if old == actions.NullValue() || old == ShiftAction {
		actions.set(state.ID, a.Value, ShiftAction)
		return
	}
	// a reduce entry is already present: shift wins
	lrgen.HasConflicts = true
	lrgen.ShiftReduceCount++
	tracer().Debugf("shift/reduce conflict in state %d at %q, shifting", state.ID, a.Name)
	actions.set(state.ID, a.Value, ShiftAction)
}

func (lrgen *TableGenerator) insertReduce(actions *Table, state *CFSMState, i Item) {
	old := actions.Value(state.ID, i.Lookahead())
	switch {
	case old == actions.NullValue():
		actions.set(state.ID, i.Lookahead(), int32(i.rule.Serial))
	case old == ShiftAction:
		// shift wins over reduce
		lrgen.HasConflicts = true
		lrgen.ShiftReduceCount++
		tracer().Debugf("shift/reduce conflict in state %d at lookahead %d, keeping shift",
			state.ID, i.Lookahead())
	case old == int32(i.rule.Serial):
		// same reduction, nothing to do
	default:
		lrgen.HasConflicts = true
		lrgen.ReduceReduceCount++
		example := fmt.Sprintf("state %d, lookahead %d: (%s) vs (%s)",
			state.ID, i.Lookahead(), lrgen.g.Rule(int(old)), i.rule)
		lrgen.reduceReduceExamples = append(lrgen.reduceReduceExamples, example)
		tracer().Infof("reduce/reduce conflict in %s", example)
		// first insertion wins: keep the production with the lower serial
		if int32(i.rule.Serial) < old {
			actions.set(state.ID, i.Lookahead(), int32(i.rule.Serial))
		}
	}
}

// --- Parser tables ----------------------------------------------------------

// Table is a parser table: rows are CFSM state IDs, columns are grammar
// symbol values.
type Table struct {
	matrix *sparse.IntMatrix
}

func newTable(rows, cols int) *Table {
	return &Table{matrix: sparse.NewIntMatrix(rows, cols, sparse.DefaultNullValue)}
}

// Value returns the entry for a state and a symbol value, or NullValue.
func (t *Table) Value(state, symval int) int32 {
	return t.matrix.Value(state, symval)
}

// NullValue marks empty table entries.
func (t *Table) NullValue() int32 {
	return t.matrix.NullValue()
}

// ValueCount returns the number of filled entries.
func (t *Table) ValueCount() int {
	return t.matrix.ValueCount()
}

// Each iterates over all filled entries in (state, symbol value) order.
func (t *Table) Each(f func(state, symval int, value int32)) {
	t.matrix.Each(f)
}

func (t *Table) set(state, symval int, value int32) {
	t.matrix.Set(state, symval, value)
}

// valstring is a short helper to stringify an action table entry.
func valstring(v int32, t *Table) string {
	if v == t.NullValue() {
		return "<none>"
	} else if v == AcceptAction {
		return "<accept>"
	} else if v == ShiftAction {
		return "<shift>"
	}
	return fmt.Sprintf("<reduce %d>", v)
}
