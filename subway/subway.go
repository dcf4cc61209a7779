// Package subway builds the small transit-reachability database used by
// the end-to-end tests and the wamc CLI: the five-station stretch of
// São Paulo's Linha 3-Vermelha walked in scenario 3 of the machine's
// specification, plus the two-hop walk2/2 rule that exercises \==.
package subway

import "github.com/wam-go/wam/wam"

type link struct{ from, to string }

// connections is the documented graph: five connection/2 facts linking
// six stations in a single branching stretch of track. são_bento sits at
// one end: sé is one hop away and is the branch point, where the line
// splits toward república/tiradentes on one side and
// anhangabaú/santa_cecília on the other.
var connections = []link{
	{"são_bento", "sé"},
	{"sé", "república"},
	{"sé", "anhangabaú"},
	{"república", "tiradentes"},
	{"anhangabaú", "santa_cecília"},
}

// Clauses returns the connection/2 facts, the bidirectional walk/2 rules,
// and the walk2/2 two-hop rule, in the order they would appear in a
// source listing.
func Clauses() []*wam.Clause {
	clauses := make([]*wam.Clause, 0, len(connections)+3)
	for _, c := range connections {
		clauses = append(clauses, &wam.Clause{
			Head: wam.NewStruct("connection", wam.Atom(c.from), wam.Atom(c.to)),
		})
	}
	clauses = append(clauses,
		&wam.Clause{
			Head: wam.NewStruct("walk", wam.Var("A"), wam.Var("B")),
			Body: []wam.Term{wam.NewStruct("connection", wam.Var("A"), wam.Var("B"))},
		},
		&wam.Clause{
			Head: wam.NewStruct("walk", wam.Var("A"), wam.Var("B")),
			Body: []wam.Term{wam.NewStruct("connection", wam.Var("B"), wam.Var("A"))},
		},
		&wam.Clause{
			Head: wam.NewStruct("walk2", wam.Var("A"), wam.Var("B")),
			Body: []wam.Term{
				wam.NewStruct("walk", wam.Var("A"), wam.Var("C")),
				wam.NewStruct("walk", wam.Var("C"), wam.Var("B")),
				wam.NewStruct("\\==", wam.Var("A"), wam.Var("B")),
			},
		},
	)
	return clauses
}

// Walk2Query builds walk2(from, X), the scenario 3 query: every station
// two hops away from from, excluding from itself.
func Walk2Query(from string) []wam.Term {
	return []wam.Term{wam.NewStruct("walk2", wam.Atom(from), wam.Var("X"))}
}

// PredicateCount reports how many of the module's own predicates db
// actually holds, for a one-line startup log.
func PredicateCount(db *wam.Database) int {
	count := 0
	for _, f := range []wam.Functor{
		{Name: "connection", Arity: 2},
		{Name: "walk", Arity: 2},
		{Name: "walk2", Arity: 2},
	} {
		if _, ok := db.Predicate(f); ok {
			count++
		}
	}
	return count
}
