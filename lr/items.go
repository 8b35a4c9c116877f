package lr

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cnf/structhash"
)

// Item is an LR(1) item [A → α·β, a]: a production with a dot position
// and a lookahead terminal (by symbol value). Items are value types and
// may be used as map keys.
type Item struct {
	rule *Rule
	dot  int
	la   int
}

// StartItem returns the kernel item of the initial state, [S' → ·S, $].
func StartItem(r *Rule) Item {
	return Item{rule: r, la: EOFType}
}

// Rule returns the production of the item.
func (i Item) Rule() *Rule {
	return i.rule
}

// Lookahead returns the lookahead terminal value of the item.
func (i Item) Lookahead() int {
	return i.la
}

// PeekSymbol returns the symbol right after the dot, or nil if the dot is
// at the end of the production.
func (i Item) PeekSymbol() *Symbol {
	if i.dot >= len(i.rule.rhs) {
		return nil
	}
	return i.rule.rhs[i.dot]
}

// Prefix returns the symbols before the dot.
func (i Item) Prefix() []*Symbol {
	return i.rule.rhs[:i.dot]
}

// Suffix returns the symbols after the dot-symbol, i.e. β for [A → α·Xβ].
func (i Item) Suffix() []*Symbol {
	if i.dot >= len(i.rule.rhs) {
		return nil
	}
	return i.rule.rhs[i.dot+1:]
}

// Advance moves the dot of the item one symbol to the right.
func (i Item) Advance() Item {
	return Item{rule: i.rule, dot: i.dot + 1, la: i.la}
}

func (i Item) String() string {
	names := make([]string, 0, len(i.rule.rhs)+1)
	for k, sym := range i.rule.rhs {
		if k == i.dot {
			names = append(names, "·")
		}
		names = append(names, sym.Name)
	}
	if i.dot == len(i.rule.rhs) {
		names = append(names, "·")
	}
	return fmt.Sprintf("[%s → %s, %d]", i.rule.LHS.Name, strings.Join(names, " "), i.la)
}

// --- Item sets --------------------------------------------------------------

// itemSet is a set of LR(1) items. State identity during the canonical
// collection fixed point is decided by the set's signature.
type itemSet struct {
	items map[Item]bool
	sig   string // cached, invalidated by add
}

func newItemSet() *itemSet {
	return &itemSet{items: map[Item]bool{}}
}

func (s *itemSet) add(i Item) bool {
	if s.items[i] {
		return false
	}
	s.items[i] = true
	s.sig = ""
	return true
}

func (s *itemSet) size() int {
	return len(s.items)
}

func (s *itemSet) empty() bool {
	return len(s.items) == 0
}

// sorted returns the items in deterministic order: by rule serial, dot
// position, and lookahead.
func (s *itemSet) sorted() []Item {
	items := make([]Item, 0, len(s.items))
	for i := range s.items {
		items = append(items, i)
	}
	sort.Slice(items, func(a, b int) bool {
		ia, ib := items[a], items[b]
		if ia.rule.Serial != ib.rule.Serial {
			return ia.rule.Serial < ib.rule.Serial
		}
		if ia.dot != ib.dot {
			return ia.dot < ib.dot
		}
		return ia.la < ib.la
	})
	return items
}

// itemKey is the hashable shape of an item for set signatures.
type itemKey struct {
	Serial int
	Dot    int
	La     int
}

// signature returns a canonical fingerprint of the item set, suitable for
// finding an existing state with the same items.
func (s *itemSet) signature() string {
	if s.sig != "" {
		return s.sig
	}
	keys := make([]itemKey, 0, len(s.items))
	for i := range s.items {
		keys = append(keys, itemKey{Serial: i.rule.Serial, Dot: i.dot, La: i.la})
	}
	sort.Slice(keys, func(a, b int) bool {
		ka, kb := keys[a], keys[b]
		if ka.Serial != kb.Serial {
			return ka.Serial < kb.Serial
		}
		if ka.Dot != kb.Dot {
			return ka.Dot < kb.Dot
		}
		return ka.La < kb.La
	})
	hash, err := structhash.Hash(keys, 1)
	if err != nil {
		panic(fmt.Sprintf("cannot hash item set: %v", err))
	}
	s.sig = hash
	return s.sig
}

// Dump is a debugging helper, tracing the items of the set.
func (s *itemSet) Dump() {
	for _, i := range s.sorted() {
		tracer().Debugf("    %s", i)
	}
}
