/*
Package lr implements prerequisites for LR parsing: a grammar model with
a builder API, FIRST-set analysis, canonical LR(1) item-set construction,
and ACTION/GOTO table generation.

Building a Grammar

Grammars are specified using a grammar builder object. Clients add
rules, consisting of non-terminal and terminal symbols. Grammars may
contain epsilon-productions.

Example:

    b := lr.NewGrammarBuilder("G")
    b.LHS("S").N("A").T("a").End()     // S  ->  A a
    b.LHS("A").T("b").End()            // A  ->  b
    b.LHS("A").Epsilon()               // A  ->

The start symbol is the LHS of the first rule added. b.Grammar() augments
the grammar with a unique start rule S' -> S as production 0 and verifies
that every right-hand-side symbol is classified as either a terminal or a
non-terminal with productions.

Static Grammar Analysis

After the grammar is complete, it has to be analysed. For this end, the
grammar is subjected to an LRAnalysis object, which computes FIRST sets
for the grammar (with epsilon tracked explicitly).

    ga := lr.Analysis(g)

Parser Construction

Using grammar analysis as input, the canonical LR(1) collection of
item-sets is constructed, together with the characteristic finite state
machine (CFSM) and the ACTION/GOTO tables for a table-driven parser.
On a shift/reduce collision the shift entry wins, which attaches a
dangling 'else' to the nearest 'if'. The CFSM is kept around after table
generation and can be exported to Graphviz's Dot-format.

Example:

    lrgen := lr.NewTableGenerator(ga)
    if err := lrgen.CreateTables(); err != nil { … }
    action, gototable := lrgen.ActionTable(), lrgen.GotoTable()

Tables may be persisted to a versioned binary artifact and reloaded, see
SaveTables and LoadTables.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.
*/
package lr

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'ferro.lr'.
func tracer() tracing.Trace {
	return tracing.Select("ferro.lr")
}
