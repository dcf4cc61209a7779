package wam

// Cell is a runtime machine cell: AtomCell, *StructCell, or RefCell. It is a
// closed tagged variant, dispatched by type switch rather than an interface
// hierarchy of behaviors (spec.md Design Notes, "Polymorphic cells").
type Cell interface {
	isCell()
}

// AtomCell is a nullary constant cell.
type AtomCell string

func (AtomCell) isCell() {}

// StructCell is a populated compound cell; each slot is itself a Cell.
// Arity equals Functor.Arity once fully built (term model invariant (c)).
type StructCell struct {
	Functor Functor
	Slots   []Cell
}

func (*StructCell) isCell() {}

// RefCell is a logic variable at runtime, represented as an index into the
// owning Machine's ref arena rather than an embedded pointer (spec.md Design
// Notes, "Shared ref ownership"): every cell that shares a variable, and
// every choice point whose trail logs its binding, refers to the same arena
// slot.
type RefCell int64

func (RefCell) isCell() {}

// ref is one arena slot: an unbound variable (Value == nil) or a binding.
type ref struct {
	value Cell
}

// walk follows a chain of bound refs to the first non-ref or unbound ref,
// per term model invariant (b): the chain is acyclic as long as occurs-check
// violating unifications are not performed (a documented non-goal).
func (m *Machine) walk(c Cell) Cell {
	for {
		rc, ok := c.(RefCell)
		if !ok {
			return c
		}
		v := m.refs[rc].value
		if v == nil {
			return c
		}
		c = v
	}
}

// newRef allocates a fresh unbound ref and returns it as a RefCell. Ref ids
// are arena indices, used only for display, trail bookkeeping and
// choice-point age comparisons (never actual memory addresses). They grow
// as refs are allocated; backtracking truncates the arena to the choice
// point's mark, so ids at or above that mark are handed out again.
func (m *Machine) newRef() RefCell {
	id := RefCell(len(m.refs))
	m.refs = append(m.refs, ref{})
	return id
}

// bindRef binds an unbound ref to a value and conditionally trails it: only
// if the ref predates the most recent choice point (spec.md §4.4 "Binding is
// conditional"). Refs created after the latest choice point need no trail
// entry; their bindings become garbage when the choice point is popped.
func (m *Machine) bindRef(r RefCell, value Cell) {
	m.refs[r].value = value
	if m.choiceTop != nil && int64(r) < m.choiceTop.refMark {
		m.trail = append(m.trail, r)
	}
	m.notifyAttr(r, value)
}

// unbindTo undoes trail entries back to mark, restoring every ref in
// between to unbound. Used on backtrack (spec.md §4.5 "Backtrack protocol").
func (m *Machine) unbindTo(mark int) {
	for i := len(m.trail) - 1; i >= mark; i-- {
		m.refs[m.trail[i]].value = nil
	}
	m.trail = m.trail[:mark]
}
