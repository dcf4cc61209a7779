package wam

import (
	"strconv"
	"strings"
)

// writeTermSource renders a source Term (spec.md's Term, not Cell) for
// diagnostics; Struct.String uses it.
func writeTermSource(t Term) string {
	var b strings.Builder
	writeTermSourceTo(&b, t)
	return b.String()
}

func writeTermSourceTo(b *strings.Builder, t Term) {
	switch t := t.(type) {
	case Atom:
		b.WriteString(string(t))
	case Var:
		b.WriteString(string(t))
	case *Struct:
		if t.Functor == listFunctor {
			writeListSourceTo(b, t)
			return
		}
		b.WriteString(t.Functor.Name)
		b.WriteByte('(')
		for i, a := range t.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			writeTermSourceTo(b, a)
		}
		b.WriteByte(')')
	default:
		b.WriteString("?")
	}
}

func writeListSourceTo(b *strings.Builder, s *Struct) {
	b.WriteByte('[')
	first := true
	var cur Term = s
	for {
		st, ok := cur.(*Struct)
		if !ok || st.Functor != listFunctor {
			break
		}
		if !first {
			b.WriteString(", ")
		}
		first = false
		writeTermSourceTo(b, st.Args[0])
		cur = st.Args[1]
	}
	if a, ok := cur.(Atom); !ok || a != atomNil {
		b.WriteByte('|')
		writeTermSourceTo(b, cur)
	}
	b.WriteByte(']')
}

// maxPrintDepth caps recursive Cell printing, per the Design Notes'
// requirement that printers be cycle-tolerant: an improperly occurs-check
// free unification can produce a cyclic cell graph, and a printer walking
// it without a cap would never terminate.
const maxPrintDepth = 1000

// writeCell renders a runtime Cell, walking refs and naming unresolved ones
// _G<id> the way a top-level answer substitution would.
func (m *Machine) writeCell(c Cell) string {
	var b strings.Builder
	m.writeCellTo(&b, c, 0)
	return b.String()
}

func (m *Machine) writeCellTo(b *strings.Builder, c Cell, depth int) {
	if depth > maxPrintDepth {
		b.WriteString("...")
		return
	}
	c = m.walk(c)
	switch c := c.(type) {
	case AtomCell:
		b.WriteString(string(c))
	case RefCell:
		b.WriteString("_G")
		b.WriteString(strconv.FormatInt(int64(c), 10))
	case *StructCell:
		if c.Functor == listFunctor {
			m.writeListCellTo(b, c, depth)
			return
		}
		b.WriteString(c.Functor.Name)
		b.WriteByte('(')
		for i, s := range c.Slots {
			if i > 0 {
				b.WriteString(", ")
			}
			m.writeCellTo(b, s, depth+1)
		}
		b.WriteByte(')')
	default:
		b.WriteString("?")
	}
}

func (m *Machine) writeListCellTo(b *strings.Builder, s *StructCell, depth int) {
	b.WriteByte('[')
	first := true
	var cur Cell = s
	for i := 0; i <= maxPrintDepth; i++ {
		cur = m.walk(cur)
		st, ok := cur.(*StructCell)
		if !ok || st.Functor != listFunctor {
			break
		}
		if !first {
			b.WriteString(", ")
		}
		first = false
		m.writeCellTo(b, st.Slots[0], depth+1)
		cur = st.Slots[1]
	}
	if a, ok := cur.(AtomCell); !ok || a != AtomCell(atomNil) {
		b.WriteByte('|')
		m.writeCellTo(b, cur, depth+1)
	}
	b.WriteByte(']')
}
