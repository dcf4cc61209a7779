package wam

import (
	"golang.org/x/crypto/blake2b"
)

// registerBuiltins installs the standard builtin library every Machine
// carries (spec.md §6 "register_builtin", §9 "required builtins").
func registerBuiltins(m *Machine) {
	m.RegisterBuiltin("=", 2, builtinUnify)
	m.RegisterBuiltin("\\==", 2, builtinNotIdentical)
	m.RegisterBuiltin("==", 2, builtinIdentical)
	m.RegisterBuiltin("@<", 2, builtinOrderLess)
	m.RegisterBuiltin("fail", 0, builtinFail)
	m.RegisterBuiltin("true", 0, builtinTrue)
	m.RegisterBuiltin("var", 1, builtinIsVar)
	m.RegisterBuiltin("atom", 1, builtinIsAtom)
	m.RegisterBuiltin("compound", 1, builtinIsCompound)
	m.RegisterBuiltin("is_list", 1, builtinIsList)
	m.RegisterBuiltin("term_hash", 2, builtinTermHash)
}

func builtinUnify(m *Machine, args []Cell) (bool, error) {
	return m.unify(args[0], args[1]), nil
}

func builtinIdentical(m *Machine, args []Cell) (bool, error) {
	return compareCells(m, args[0], args[1]) == 0, nil
}

func builtinNotIdentical(m *Machine, args []Cell) (bool, error) {
	return compareCells(m, args[0], args[1]) != 0, nil
}

func builtinOrderLess(m *Machine, args []Cell) (bool, error) {
	return compareCells(m, args[0], args[1]) < 0, nil
}

func builtinFail(m *Machine, args []Cell) (bool, error) {
	return false, nil
}

func builtinTrue(m *Machine, args []Cell) (bool, error) {
	return true, nil
}

func builtinIsVar(m *Machine, args []Cell) (bool, error) {
	_, ok := m.walk(args[0]).(RefCell)
	return ok, nil
}

func builtinIsAtom(m *Machine, args []Cell) (bool, error) {
	_, ok := m.walk(args[0]).(AtomCell)
	return ok, nil
}

func builtinIsCompound(m *Machine, args []Cell) (bool, error) {
	_, ok := m.walk(args[0]).(*StructCell)
	return ok, nil
}

func builtinIsList(m *Machine, args []Cell) (bool, error) {
	c := m.walk(args[0])
	for {
		if a, ok := c.(AtomCell); ok {
			return a == AtomCell(atomNil), nil
		}
		s, ok := c.(*StructCell)
		if !ok || s.Functor != listFunctor {
			return false, nil
		}
		c = m.walk(s.Slots[1])
	}
}

// builtinTermHash implements term_hash/2, a supplemented builtin
// (SPEC_FULL.md "Domain stack"): hashes the printed form of a term's
// current binding with blake2b, for content-addressing ground terms
// (e.g. memoizing clause lookups by argument) without depending on Go's
// map hashing of arbitrary cell graphs.
func builtinTermHash(m *Machine, args []Cell) (bool, error) {
	h, err := blake2b.New256(nil)
	if err != nil {
		return false, err
	}
	_, _ = h.Write([]byte(m.writeCell(args[0])))
	sum := h.Sum(nil)
	return m.unify(args[1], AtomCell(hexDigits(sum))), nil
}

const hexAlphabet = "0123456789abcdef"

func hexDigits(b []byte) string {
	out := make([]byte, len(b)*2)
	for i, v := range b {
		out[i*2] = hexAlphabet[v>>4]
		out[i*2+1] = hexAlphabet[v&0xf]
	}
	return string(out)
}

// compareCells implements the standard order of terms (spec.md §8
// "Determinism under ordering"): unbound variables order by ref id, then
// atoms order lexically, then structs order by arity, then functor name,
// then arguments left to right. Variables order before atoms, which order
// before structs.
func compareCells(m *Machine, a, b Cell) int {
	a = m.walk(a)
	b = m.walk(b)

	rank := func(c Cell) int {
		switch c.(type) {
		case RefCell:
			return 0
		case AtomCell:
			return 1
		default:
			return 2
		}
	}
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return ra - rb
	}

	switch a := a.(type) {
	case RefCell:
		b := b.(RefCell)
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		default:
			return 0
		}
	case AtomCell:
		b := b.(AtomCell)
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		default:
			return 0
		}
	case *StructCell:
		b := b.(*StructCell)
		if a.Functor.Arity != b.Functor.Arity {
			return a.Functor.Arity - b.Functor.Arity
		}
		if a.Functor.Name != b.Functor.Name {
			if a.Functor.Name < b.Functor.Name {
				return -1
			}
			return 1
		}
		for i := range a.Slots {
			if c := compareCells(m, a.Slots[i], b.Slots[i]); c != 0 {
				return c
			}
		}
		return 0
	default:
		return 0
	}
}
