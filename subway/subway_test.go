package subway

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wam-go/wam/wam"
)

// walk2(são_bento, X) must enumerate exactly república then anhangabaú, in
// that order: the end-to-end scenario the CLI runs by default.
func TestWalk2ReachesStationsTwoHopsAway(t *testing.T) {
	db, err := wam.Compile(Clauses())
	require.NoError(t, err)
	require.Equal(t, 3, PredicateCount(db))

	m := wam.NewMachine(db)
	solver, err := m.Solve(Walk2Query("são_bento"))
	require.NoError(t, err)

	var stations []string
	for {
		sol, err := solver.Next()
		require.NoError(t, err)
		if sol == nil {
			break
		}
		stations = append(stations, sol.Bindings["X"])
	}
	require.Equal(t, []string{"república", "anhangabaú"}, stations)
}

// são_bento never appears as its own two-hop neighbor: walk2's A\==B
// guard (wam/builtin.go's \== ) must reject the same-station loop through
// the bidirectional walk/2 rules.
func TestWalk2ExcludesStartingStation(t *testing.T) {
	db, err := wam.Compile(Clauses())
	require.NoError(t, err)

	m := wam.NewMachine(db)
	solver, err := m.Solve(Walk2Query("são_bento"))
	require.NoError(t, err)

	for {
		sol, err := solver.Next()
		require.NoError(t, err)
		if sol == nil {
			break
		}
		require.NotEqual(t, "são_bento", sol.Bindings["X"])
	}
}
