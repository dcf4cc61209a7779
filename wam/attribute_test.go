package wam

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A toy attribute package that rejects any binding to the atom
// "forbidden", exercising RegisterAttributePackage/PutAttr/notifyAttr end
// to end (spec.md §4.4, §9).
func TestAttributeHookRejectsBinding(t *testing.T) {
	db := NewDatabase()
	m := NewMachine(db)

	var woke []Cell
	m.RegisterAttributePackage("guard", func(m *Machine, v RefCell, value Cell) (bool, error) {
		woke = append(woke, value)
		if a, ok := value.(AtomCell); ok && a == "forbidden" {
			return false, nil
		}
		return true, nil
	})

	r := m.newRef()
	m.PutAttr(r, "guard", AtomCell("present"))

	// unify itself always succeeds on an ordinary ref binding: the hook
	// runs later, out of line, via drainAttrFrames (spec.md §4.4).
	require.True(t, m.unify(r, AtomCell("forbidden")))

	ok2, err := m.drainAttrFrames()
	require.NoError(t, err)
	assert.False(t, ok2)
	require.Len(t, woke, 1)
	assert.Equal(t, AtomCell("forbidden"), woke[0])
}

func TestAttributeHookAllowsBinding(t *testing.T) {
	db := NewDatabase()
	m := NewMachine(db)

	allowed := false
	m.RegisterAttributePackage("guard", func(m *Machine, v RefCell, value Cell) (bool, error) {
		allowed = true
		return true, nil
	})

	r := m.newRef()
	m.PutAttr(r, "guard", AtomCell("present"))
	require.True(t, m.unify(r, AtomCell("ok")))

	ok, err := m.drainAttrFrames()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, allowed)
}

// Binding a ref created before a choice point trails it; backtracking
// past that choice point must restore it to unbound.
func TestTrailUndoesBindingOnBacktrack(t *testing.T) {
	db := NewDatabase()
	m := NewMachine(db)

	r := m.newRef()
	m.choiceTop = &ChoicePoint{refMark: int64(len(m.refs))}
	m.bindRef(r, AtomCell("x"))
	assert.Equal(t, AtomCell("x"), m.walk(r))

	m.unbindTo(0)
	assert.Equal(t, r, m.walk(r), "an unbound ref walks to itself")
}
