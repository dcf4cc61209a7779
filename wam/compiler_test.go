package wam

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fact(a). -- no variables, no body: pure proceed after matching.
func TestCompileClauseFact(t *testing.T) {
	cl := &Clause{Head: NewStruct("fact", Atom("a"))}
	cc, err := CompileClause(cl)
	require.NoError(t, err)
	assert.Equal(t, Functor{Name: "fact", Arity: 1}, cc.Functor)
	assert.Equal(t, 0, cc.NumPermVars)
	assert.Equal(t, OpProceed, cc.Code[len(cc.Code)-1].Op)
	assert.Equal(t, indexArgAtom, cc.arg0Kind)
}

// parent(X, Y) :- father(X, Y). -- a single-chunk rule, every variable
// used once in the head and once in the one body goal: both temporary.
func TestCompileClauseSingleChunkAllTemp(t *testing.T) {
	cl := &Clause{
		Head: NewStruct("parent", Var("X"), Var("Y")),
		Body: []Term{NewStruct("father", Var("X"), Var("Y"))},
	}
	cc, err := CompileClause(cl)
	require.NoError(t, err)
	assert.Equal(t, 0, cc.NumPermVars, "single-chunk clause needs no environment")
	for _, instr := range cc.Code {
		assert.NotEqual(t, OpAllocate, instr.Op)
		assert.NotEqual(t, OpDeallocate, instr.Op)
	}
	assert.Equal(t, OpExecute, cc.Code[len(cc.Code)-1].Op)
}

// connected(X, Y) :- edge(X, Z), connected(Z, Y). -- X spans the head
// chunk and the first goal only (temp); Z spans the first and second
// goals (permanent); Y spans the head chunk and the last goal (permanent).
func TestCompileClausePermanentVars(t *testing.T) {
	cl := &Clause{
		Head: NewStruct("connected", Var("X"), Var("Y")),
		Body: []Term{
			NewStruct("edge", Var("X"), Var("Z")),
			NewStruct("connected", Var("Z"), Var("Y")),
		},
	}
	cc, err := CompileClause(cl)
	require.NoError(t, err)
	assert.Equal(t, 2, cc.NumPermVars, "Z and Y cross a chunk boundary, X does not")

	var sawAllocate, sawDeallocate bool
	for _, instr := range cc.Code {
		switch instr.Op {
		case OpAllocate:
			sawAllocate = true
			assert.Equal(t, 2, instr.Operand)
		case OpDeallocate:
			sawDeallocate = true
		}
	}
	assert.True(t, sawAllocate)
	assert.True(t, sawDeallocate)
}

// p(f(X, g(Y))) -- head argument nesting two levels deep, exercising the
// deferred get_struct emission.
func TestCompileClauseNestedHeadStruct(t *testing.T) {
	cl := &Clause{
		Head: NewStruct("p", NewStruct("f", Var("X"), NewStruct("g", Var("Y")))),
	}
	cc, err := CompileClause(cl)
	require.NoError(t, err)

	var gotF, gotG bool
	for _, instr := range cc.Code {
		if instr.Op == OpGetStruct {
			rf := instr.Operand.(RegFunctor)
			switch rf.Functor.Name {
			case "f":
				gotF = true
			case "g":
				gotG = true
			}
		}
	}
	assert.True(t, gotF)
	assert.True(t, gotG, "nested struct must be expanded by its own deferred get_struct")
}

// q(_) -- a void head argument needs no instruction at all.
func TestCompileClauseVoidHeadArg(t *testing.T) {
	cl := &Clause{Head: NewStruct("q", Var("_"))}
	cc, err := CompileClause(cl)
	require.NoError(t, err)
	assert.Len(t, cc.Code, 1) // just proceed
	assert.Equal(t, OpProceed, cc.Code[0].Op)
}

// Two distinct "_" in the same clause are unrelated fresh variables.
func TestUnderscoreIsAlwaysFresh(t *testing.T) {
	cl := &Clause{Head: NewStruct("r", Var("_"), Var("_"))}
	cc, err := CompileClause(cl)
	require.NoError(t, err)
	assert.Equal(t, 0, cc.NumPermVars)
	assert.Len(t, cc.Code, 1)
}

func TestCompileClauseRejectsVarHead(t *testing.T) {
	cl := &Clause{Head: Var("X")}
	_, err := CompileClause(cl)
	require.Error(t, err)
	var cerr *CompileError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, ReasonVariableHead, cerr.Reason)
}
