package lr

import (
	"fmt"
	"os"

	"github.com/cnf/structhash"
	"github.com/dekarrin/rezi"
)

// Table artifact persistence. Once generated, the ACTION/GOTO tables for
// a grammar are pure data and may be reused across runs. The artifact is
// versioned by a fingerprint of the production list: loading tables for a
// changed grammar fails with ErrTableVersion and callers rebuild.

// ErrTableVersion is returned by LoadTables when the artifact on disk was
// generated for a different grammar (or by a different artifact layout).
var ErrTableVersion = fmt.Errorf("table artifact does not match the grammar")

const artifactMagic = "ferro-tables"
const artifactLayout = 1

// Fingerprint returns a canonical hash of a grammar's production list and
// symbol assignment.
func Fingerprint(g *Grammar) string {
	var desc []string
	for _, r := range g.rules {
		desc = append(desc, r.String())
	}
	g.EachSymbol(func(sym *Symbol) {
		desc = append(desc, fmt.Sprintf("%s=%d", sym.Name, sym.Value))
	})
	hash, err := structhash.Hash(desc, 1)
	if err != nil {
		panic(fmt.Sprintf("cannot hash grammar: %v", err))
	}
	return hash
}

// artifact is the serialized form of a generated table set.
type artifact struct {
	fingerprint string
	productions []string
	states      int
	maxSymval   int
	action      []tableCell
	gotos       []tableCell
}

type tableCell struct {
	state  int
	symval int
	value  int
}

// MarshalBinary encodes the artifact with rezi.
func (a *artifact) MarshalBinary() ([]byte, error) {
	var enc []byte
	enc = append(enc, rezi.EncString(artifactMagic)...)
	enc = append(enc, rezi.EncInt(artifactLayout)...)
	enc = append(enc, rezi.EncString(a.fingerprint)...)
	enc = append(enc, rezi.EncSliceString(a.productions)...)
	enc = append(enc, rezi.EncInt(a.states)...)
	enc = append(enc, rezi.EncInt(a.maxSymval)...)
	for _, cells := range [][]tableCell{a.action, a.gotos} {
		enc = append(enc, rezi.EncInt(len(cells))...)
		for _, c := range cells {
			enc = append(enc, rezi.EncInt(c.state)...)
			enc = append(enc, rezi.EncInt(c.symval)...)
			enc = append(enc, rezi.EncInt(c.value)...)
		}
	}
	return enc, nil
}

// UnmarshalBinary decodes the artifact with rezi.
func (a *artifact) UnmarshalBinary(data []byte) error {
	magic, n, err := rezi.DecString(data)
	if err != nil {
		return err
	}
	data = data[n:]
	if magic != artifactMagic {
		return ErrTableVersion
	}
	layout, n, err := rezi.DecInt(data)
	if err != nil {
		return err
	}
	data = data[n:]
	if layout != artifactLayout {
		return ErrTableVersion
	}
	if a.fingerprint, n, err = rezi.DecString(data); err != nil {
		return err
	}
	data = data[n:]
	if a.productions, n, err = rezi.DecSliceString(data); err != nil {
		return err
	}
	data = data[n:]
	if a.states, n, err = rezi.DecInt(data); err != nil {
		return err
	}
	data = data[n:]
	if a.maxSymval, n, err = rezi.DecInt(data); err != nil {
		return err
	}
	data = data[n:]
	for _, cells := range []*[]tableCell{&a.action, &a.gotos} {
		var cnt int
		if cnt, n, err = rezi.DecInt(data); err != nil {
			return err
		}
		data = data[n:]
		*cells = make([]tableCell, cnt)
		for i := 0; i < cnt; i++ {
			c := &(*cells)[i]
			if c.state, n, err = rezi.DecInt(data); err != nil {
				return err
			}
			data = data[n:]
			if c.symval, n, err = rezi.DecInt(data); err != nil {
				return err
			}
			data = data[n:]
			if c.value, n, err = rezi.DecInt(data); err != nil {
				return err
			}
			data = data[n:]
		}
	}
	return nil
}

func tableToCells(t *Table) []tableCell {
	var cells []tableCell
	t.Each(func(state, symval int, value int32) {
		cells = append(cells, tableCell{state: state, symval: symval, value: int(value)})
	})
	return cells
}

func cellsToTable(cells []tableCell, states, extent int) *Table {
	t := newTable(states, extent)
	for _, c := range cells {
		t.set(c.state, c.symval, int32(c.value))
	}
	return t
}

// SaveTables persists the generated ACTION/GOTO tables for grammar g to
// the given path.
func SaveTables(path string, g *Grammar, action, gototable *Table) error {
	var prods []string
	for _, r := range g.rules {
		prods = append(prods, r.String())
	}
	art := &artifact{
		fingerprint: Fingerprint(g),
		productions: prods,
		states:      action.matrix.M(),
		maxSymval:   g.MaxSymbolValue(),
		action:      tableToCells(action),
		gotos:       tableToCells(gototable),
	}
	data := rezi.EncBinary(art)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("cannot persist parser tables: %w", err)
	}
	tracer().Infof("persisted parser tables to %s (%d bytes)", path, len(data))
	return nil
}

// LoadTables reads a table artifact from path and verifies that it was
// generated for grammar g. On a fingerprint mismatch ErrTableVersion is
// returned and callers should rebuild.
func LoadTables(path string, g *Grammar) (action *Table, gototable *Table, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	art := &artifact{}
	if _, err := rezi.DecBinary(data, art); err != nil {
		return nil, nil, fmt.Errorf("cannot read parser tables: %w", err)
	}
	if art.fingerprint != Fingerprint(g) {
		return nil, nil, ErrTableVersion
	}
	extent := art.maxSymval + 1
	action = cellsToTable(art.action, art.states, extent)
	gototable = cellsToTable(art.gotos, art.states, extent)
	tracer().Infof("loaded parser tables from %s (%d states)", path, art.states)
	return action, gototable, nil
}
