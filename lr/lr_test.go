package lr

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"
)

func TestGrammarBuilder(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ferro.lr")
	defer teardown()
	//
	b := NewGrammarBuilder("G1")
	b.LHS("S").N("A").T("a").End()
	b.LHS("A").T("b").End()
	b.LHS("A").Epsilon()
	g, err := b.Grammar()
	assert.NoError(t, err)
	assert.Equal(t, 4, g.Size()) // 3 productions + augmentation
	assert.Equal(t, "S'", g.Rule(0).LHS.Name)
	assert.Equal(t, 1, g.Rule(0).Len())
	assert.True(t, g.Rule(3).IsEpsilon())
	assert.NotNil(t, g.Terminal("a"))
	assert.NotNil(t, g.Terminal("$"))
	assert.Nil(t, g.Terminal("S"))
	assert.NotNil(t, g.Nonterminal("S"))
	g.Dump()
}

func TestGrammarBuilderRejectsUnproducedNonterminal(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ferro.lr")
	defer teardown()
	//
	b := NewGrammarBuilder("G2")
	b.LHS("S").N("A").End()
	_, err := b.Grammar()
	assert.Error(t, err)
}

func TestFirstSets(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ferro.lr")
	defer teardown()
	//
	b := NewGrammarBuilder("G3")
	b.LHS("S").N("A").T("a").End()
	b.LHS("A").T("b").End()
	b.LHS("A").Epsilon()
	g, err := b.Grammar()
	assert.NoError(t, err)
	ga := Analysis(g)
	a := g.Terminal("a").Value
	bb := g.Terminal("b").Value
	assert.Equal(t, []int{EpsilonType, bb}, ga.First(g.Nonterminal("A")))
	assert.Equal(t, []int{a, bb}, ga.First(g.Nonterminal("S")))
	// FIRST of a terminal is the terminal itself
	assert.Equal(t, []int{a}, ga.First(g.Terminal("a")))
}

// The classic canonical-LR(1) example: S → CC, C → cC | d. Its canonical
// collection has exactly 10 states and the grammar is conflict-free.
func buildCC(t *testing.T) (*Grammar, *TableGenerator) {
	b := NewGrammarBuilder("CC")
	b.LHS("S").N("C").N("C").End()
	b.LHS("C").T("c").N("C").End()
	b.LHS("C").T("d").End()
	g, err := b.Grammar()
	assert.NoError(t, err)
	lrgen := NewTableGenerator(Analysis(g))
	assert.NoError(t, lrgen.CreateTables())
	return g, lrgen
}

func TestCanonicalLR1Collection(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ferro.lr")
	defer teardown()
	//
	_, lrgen := buildCC(t)
	assert.Equal(t, 10, lrgen.CFSM().Size())
	assert.False(t, lrgen.HasConflicts)
	assert.Equal(t, 0, lrgen.ReduceReduceCount)
}

func TestActionTableEntries(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ferro.lr")
	defer teardown()
	//
	g, lrgen := buildCC(t)
	action, gototable := lrgen.ActionTable(), lrgen.GotoTable()
	c, d := g.Terminal("c").Value, g.Terminal("d").Value
	s0 := lrgen.CFSM().S0.ID
	// in the start state both c and d must be shifted
	assert.Equal(t, int32(ShiftAction), action.Value(s0, c))
	assert.Equal(t, int32(ShiftAction), action.Value(s0, d))
	assert.NotEqual(t, gototable.NullValue(), gototable.Value(s0, c))
	assert.NotEqual(t, gototable.NullValue(), gototable.Value(s0, d))
	// after GOTO(S0, S) the parser must accept on $
	sAfterS := int(gototable.Value(s0, g.Nonterminal("S").Value))
	assert.Equal(t, int32(AcceptAction), action.Value(sAfterS, EOFType))
}

func TestDotExport(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ferro.lr")
	defer teardown()
	//
	_, lrgen := buildCC(t)
	var buf bytes.Buffer
	lrgen.CFSM().ExportDot(&buf)
	assert.Contains(t, buf.String(), "digraph {")
	assert.Contains(t, buf.String(), "s000")
}

func TestTableArtifactRoundTrip(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ferro.lr")
	defer teardown()
	//
	g, lrgen := buildCC(t)
	path := filepath.Join(t.TempDir(), "cc.tables")
	err := SaveTables(path, g, lrgen.ActionTable(), lrgen.GotoTable())
	assert.NoError(t, err)
	action, gototable, err := LoadTables(path, g)
	assert.NoError(t, err)
	assert.Equal(t, lrgen.ActionTable().ValueCount(), action.ValueCount())
	assert.Equal(t, lrgen.GotoTable().ValueCount(), gototable.ValueCount())
	lrgen.ActionTable().Each(func(state, symval int, value int32) {
		assert.Equal(t, value, action.Value(state, symval))
	})
	lrgen.GotoTable().Each(func(state, symval int, value int32) {
		assert.Equal(t, value, gototable.Value(state, symval))
	})
}

func TestTableArtifactVersioning(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ferro.lr")
	defer teardown()
	//
	g, lrgen := buildCC(t)
	path := filepath.Join(t.TempDir(), "cc.tables")
	assert.NoError(t, SaveTables(path, g, lrgen.ActionTable(), lrgen.GotoTable()))
	// a different grammar must not accept the artifact
	b := NewGrammarBuilder("other")
	b.LHS("S").T("x").End()
	other, err := b.Grammar()
	assert.NoError(t, err)
	_, _, err = LoadTables(path, other)
	assert.ErrorIs(t, err, ErrTableVersion)
}
