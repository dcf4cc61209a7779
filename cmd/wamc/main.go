// Command wamc drives the wam machine over either a clause-file database
// and a free-form query, or (absent those flags) the built-in subway
// reachability scenario, exercising compile, solve, and optional snapshot
// streaming from the command line.
package main

import (
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"
	flag "github.com/spf13/pflag"

	"github.com/wam-go/wam/subway"
	"github.com/wam-go/wam/wam"
)

func main() {
	var (
		clausesPath = flag.String("clauses", "", "path to a clause source file (.pl-like); built-in subway scenario if empty")
		queryText   = flag.String("query", "", "free-form comma-separated query goals; built-in scenario 3 query if empty")
		stepBudget  = flag.Int("steps", 1_000_000, "instruction budget per query, 0 for unbounded")
		maxDepth    = flag.Int("max-depth", 100_000, "environment/choice-point stack depth limit, 0 for unbounded")
		strict      = flag.Bool("strict", false, "treat calls to undefined predicates as errors")
		snapshot    = flag.String("snapshot", "", "write a JSONL instruction trace to this path")
		logLevel    = flag.String("log-level", "info", "hclog level: trace, debug, info, warn, error")
	)
	flag.Parse()

	logger := hclog.New(&hclog.LoggerOptions{
		Name:  "wamc",
		Level: hclog.LevelFromString(*logLevel),
	})

	clauses, err := loadClauses(*clausesPath)
	if err != nil {
		logger.Error("could not load clauses", "error", err)
		os.Exit(1)
	}

	db, err := wam.Compile(clauses, wam.WithCompileLogger(logger))
	if err != nil {
		logger.Error("compile failed", "error", err)
		os.Exit(1)
	}
	if *clausesPath == "" {
		logger.Info("compiled database", "predicates", subway.PredicateCount(db))
	} else {
		logger.Info("compiled database", "clauses", len(clauses))
	}

	opts := []wam.Option{wam.WithLogger(logger), wam.WithStepBudget(*stepBudget), wam.WithMaxDepth(*maxDepth)}
	if *strict {
		opts = append(opts, wam.WithStrictUnknown())
	}

	var snapFile *os.File
	if *snapshot != "" {
		snapFile, err = os.Create(*snapshot)
		if err != nil {
			logger.Error("could not create snapshot file", "error", err)
			os.Exit(1)
		}
		defer snapFile.Close()
		opts = append(opts, wam.WithSnapshot(wam.NewSnapshotWriter(snapFile)))
	}

	m := wam.NewMachine(db, opts...)

	query, err := loadQuery(*queryText)
	if err != nil {
		logger.Error("could not parse query", "error", err)
		os.Exit(1)
	}

	solver, err := m.Solve(query)
	if err != nil {
		logger.Error("query compilation failed", "error", err)
		os.Exit(1)
	}

	count := 0
	for {
		sol, err := solver.Next()
		if err != nil {
			logger.Error("query aborted", "error", err)
			os.Exit(1)
		}
		if sol == nil {
			break
		}
		count++
		fmt.Printf("%d: %v\n", count, sol.Bindings)
	}
	logger.Info("done", "solutions", count)
}

// loadClauses parses path's contents as clause source text, or returns
// the built-in subway scenario if path is empty.
func loadClauses(path string) ([]*wam.Clause, error) {
	if path == "" {
		return subway.Clauses(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return wam.ParseClauses(string(data))
}

// loadQuery parses text as a comma-separated goal list, or returns the
// built-in scenario 3 query (walk2(são_bento, X)) if text is empty.
func loadQuery(text string) ([]wam.Term, error) {
	if text == "" {
		return subway.Walk2Query("são_bento"), nil
	}
	return wam.ParseQuery(text)
}
