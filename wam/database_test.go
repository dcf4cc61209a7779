package wam

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustClause(t *testing.T, head Term, body ...Term) *CompiledClause {
	t.Helper()
	cc, err := CompileClause(&Clause{Head: head, Body: body})
	require.NoError(t, err)
	return cc
}

// Six clauses of p/1: const(a), var(X), const(b), const(a), var(Y),
// const(b) -- a worked example shaped like spec.md §4.3's: two separate
// Const runs for 'a' and two for 'b', each with its own Var runs
// interleaved in source order.
func TestDatabaseLookupInterleavesInSourceOrder(t *testing.T) {
	db := NewDatabase()
	db.addClause(mustClause(t, NewStruct("p", Atom("a"))))
	db.addClause(mustClause(t, NewStruct("p", Var("X"))))
	db.addClause(mustClause(t, NewStruct("p", Atom("b"))))
	db.addClause(mustClause(t, NewStruct("p", Atom("a"))))
	db.addClause(mustClause(t, NewStruct("p", Var("Y"))))
	db.addClause(mustClause(t, NewStruct("p", Atom("b"))))
	db.buildIndices()

	p, ok := db.Predicate(Functor{Name: "p", Arity: 1})
	require.True(t, ok)

	got := p.Lookup(AtomCell("a"))
	assert.Len(t, got, 4, "two 'a' clauses plus both var clauses")
	assert.Same(t, got[0], p.clauses[0]) // const(a) #1
	assert.Same(t, got[1], p.clauses[1]) // var(X), interleaved after its run
	assert.Same(t, got[2], p.clauses[3]) // const(a) #2
	assert.Same(t, got[3], p.clauses[4]) // var(Y)

	gotUnbound := p.Lookup(RefCell(0))
	assert.Len(t, gotUnbound, 6, "an unbound first argument matches every clause")
}

func TestDatabaseLookupByFunctor(t *testing.T) {
	db := NewDatabase()
	db.addClause(mustClause(t, NewStruct("q", NewStruct("f", Atom("x")))))
	db.addClause(mustClause(t, NewStruct("q", Var("X"))))
	db.addClause(mustClause(t, NewStruct("q", NewStruct("g", Atom("x")))))
	db.buildIndices()

	p, _ := db.Predicate(Functor{Name: "q", Arity: 1})

	got := p.Lookup(&StructCell{Functor: Functor{Name: "f", Arity: 1}, Slots: []Cell{AtomCell("x")}})
	assert.Len(t, got, 2) // the f/1 clause plus the var clause
}

func TestCompileAbortsOnFirstError(t *testing.T) {
	_, err := Compile([]*Clause{
		{Head: NewStruct("ok", Atom("a"))},
		{Head: Var("bad")},
	})
	require.Error(t, err)
}
