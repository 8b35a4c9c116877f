package lr

import (
	"github.com/emirpasic/gods/sets/treeset"
	"github.com/emirpasic/gods/utils"
)

// LRAnalysis is the static analysis of a grammar needed for LR table
// construction: the FIRST sets of all non-terminals, with ε (represented
// as EpsilonType) tracked explicitly.
type LRAnalysis struct {
	g     *Grammar
	first map[*Symbol]*treeset.Set
}

// Analysis computes FIRST sets for a grammar.
func Analysis(g *Grammar) *LRAnalysis {
	ga := &LRAnalysis{
		g:     g,
		first: map[*Symbol]*treeset.Set{},
	}
	for _, sym := range g.nonterminals {
		ga.first[sym] = treeset.NewWith(utils.IntComparator)
	}
	ga.computeFirstSets()
	return ga
}

// Grammar returns the grammar under analysis.
func (ga *LRAnalysis) Grammar() *Grammar {
	return ga.g
}

// First returns FIRST(A) as a sorted slice of terminal values; a leading
// EpsilonType entry means A is nullable.
func (ga *LRAnalysis) First(A *Symbol) []int {
	set, ok := ga.first[A]
	if !ok {
		return []int{A.Value} // FIRST of a terminal is the terminal
	}
	return intValues(set)
}

// computeFirstSets runs the standard fixed-point iteration: for every
// production, terminals are accumulated left to right until a non-nullable
// prefix symbol is reached; a production whose whole RHS is nullable
// contributes ε.
func (ga *LRAnalysis) computeFirstSets() {
	changed := true
	for changed {
		changed = false
		for _, r := range ga.g.rules {
			fA := ga.first[r.LHS]
			before := fA.Size()
			if r.IsEpsilon() {
				fA.Add(EpsilonType)
			} else {
				nullable := true
				for _, X := range r.rhs {
					if X.IsTerminal() {
						fA.Add(X.Value)
						nullable = false
						break
					}
					addAllExceptEpsilon(fA, ga.first[X])
					if !ga.first[X].Contains(EpsilonType) {
						nullable = false
						break
					}
				}
				if nullable {
					fA.Add(EpsilonType)
				}
			}
			if fA.Size() != before {
				changed = true
			}
		}
	}
}

// firstOfSeq computes FIRST(α a) for a symbol string α followed by a
// lookahead terminal: terminals are added left to right until a
// non-nullable prefix is reached; if the whole string is nullable the
// lookahead itself is included.
func (ga *LRAnalysis) firstOfSeq(seq []*Symbol, la int) *treeset.Set {
	out := treeset.NewWith(utils.IntComparator)
	for _, X := range seq {
		if X.IsTerminal() {
			out.Add(X.Value)
			return out
		}
		addAllExceptEpsilon(out, ga.first[X])
		if !ga.first[X].Contains(EpsilonType) {
			return out
		}
	}
	out.Add(la)
	return out
}

func addAllExceptEpsilon(dst, src *treeset.Set) {
	it := src.Iterator()
	for it.Next() {
		if v := it.Value().(int); v != EpsilonType {
			dst.Add(v)
		}
	}
}

func intValues(set *treeset.Set) []int {
	vals := make([]int, 0, set.Size())
	it := set.Iterator()
	for it.Next() {
		vals = append(vals, it.Value().(int))
	}
	return vals
}
