package wam

// unify attempts to unify a and b in place, binding refs and trailing as
// it goes (spec.md §4.4). It returns false (with any partial bindings left
// in place, to be undone by the caller's backtrack) the moment a mismatch
// is found.
func (m *Machine) unify(a, b Cell) bool {
	a = m.walk(a)
	b = m.walk(b)

	ra, aRef := a.(RefCell)
	rb, bRef := b.(RefCell)

	switch {
	case aRef && bRef:
		if ra == rb {
			return true
		}
		// Bind the younger ref to the older one, so that backtracking a
		// choice point created between their ages never needs to touch
		// the surviving, older variable (spec.md §4.4 "younger to older").
		if ra < rb {
			m.bindRef(rb, ra)
		} else {
			m.bindRef(ra, rb)
		}
		return true
	case aRef:
		m.bindRef(ra, b)
		return true
	case bRef:
		m.bindRef(rb, a)
		return true
	}

	switch a := a.(type) {
	case AtomCell:
		b, ok := b.(AtomCell)
		return ok && a == b
	case *StructCell:
		b, ok := b.(*StructCell)
		if !ok || a.Functor != b.Functor {
			return false
		}
		for i := range a.Slots {
			if !m.unify(a.Slots[i], b.Slots[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
