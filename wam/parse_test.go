package wam

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClausesFactsAndRule(t *testing.T) {
	src := `
connection(são_bento, sé).
connection(sé, república).
walk(A, B) :- connection(A, B).
walk(A, B) :- connection(B, A).
`
	clauses, err := ParseClauses(src)
	require.NoError(t, err)
	require.Len(t, clauses, 4)

	assert.Equal(t, NewStruct("connection", Atom("são_bento"), Atom("sé")), clauses[0].Head)
	assert.Empty(t, clauses[0].Body)

	assert.Equal(t, NewStruct("walk", Var("A"), Var("B")), clauses[2].Head)
	require.Len(t, clauses[2].Body, 1)
	assert.Equal(t, NewStruct("connection", Var("A"), Var("B")), clauses[2].Body[0])
}

func TestParseClausesInfixGoal(t *testing.T) {
	clauses, err := ParseClauses(`walk2(A, B) :- walk(A, C), walk(C, B), A \== B.`)
	require.NoError(t, err)
	require.Len(t, clauses, 1)
	require.Len(t, clauses[0].Body, 3)
	assert.Equal(t, NewStruct("\\==", Var("A"), Var("B")), clauses[0].Body[2])
}

func TestParseClausesAtomArityZero(t *testing.T) {
	clauses, err := ParseClauses(`true. fail.`)
	require.NoError(t, err)
	require.Len(t, clauses, 2)
	assert.Equal(t, Atom("true"), clauses[0].Head)
	assert.Equal(t, Atom("fail"), clauses[1].Head)
}

func TestParseClausesList(t *testing.T) {
	clauses, err := ParseClauses(`is_pair([H|T]) :- true.`)
	require.NoError(t, err)
	require.Len(t, clauses, 1)
	want := NewStruct("is_pair", Cons(Var("H"), Var("T")))
	assert.Equal(t, want, clauses[0].Head)
}

func TestParseClausesMissingDotIsParseError(t *testing.T) {
	_, err := ParseClauses(`walk(a, b)`)
	require.Error(t, err)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, ReasonExpectedToken, perr.Reason)
}

func TestParseQueryGoalList(t *testing.T) {
	goals, err := ParseQuery(`walk2(são_bento, X)`)
	require.NoError(t, err)
	require.Len(t, goals, 1)
	assert.Equal(t, NewStruct("walk2", Atom("são_bento"), Var("X")), goals[0])
}

func TestParseQueryEmptyIsParseError(t *testing.T) {
	_, err := ParseQuery("")
	require.Error(t, err)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, ReasonEmptyInput, perr.Reason)
}

// A clause file parsed at runtime must compile and solve exactly like an
// equivalent *Clause literal built in Go.
func TestParsedClausesCompileAndSolve(t *testing.T) {
	clauses, err := ParseClauses(`
color(red).
color(green).
color(blue).
`)
	require.NoError(t, err)

	db, err := Compile(clauses)
	require.NoError(t, err)

	m := NewMachine(db)
	query, err := ParseQuery(`color(X)`)
	require.NoError(t, err)

	solver, err := m.Solve(query)
	require.NoError(t, err)

	var colors []string
	for {
		sol, err := solver.Next()
		require.NoError(t, err)
		if sol == nil {
			break
		}
		colors = append(colors, sol.Bindings["X"])
	}
	assert.Equal(t, []string{"red", "green", "blue"}, colors)
}
