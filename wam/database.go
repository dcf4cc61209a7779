package wam

import (
	"fmt"

	"github.com/hashicorp/go-hclog"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Predicate is an ordered collection of compiled clauses sharing a functor,
// plus the two-level first-argument index built over them (spec.md §4.3).
type Predicate struct {
	Functor Functor
	clauses []*CompiledClause

	runs []indexRun
}

type runKind uint8

const (
	runVar runKind = iota
	runConst
)

// indexRun is level 1 of the index: a maximal run of clauses sharing a
// first-head-argument kind (Var or Constant), in source order. Level 2
// lives inside a Constant run only: atomIndex/funcIndex map the run's own
// clauses (not the whole predicate's) by atom or functor, preserving this
// run's source order -- spec.md §4.3 "for each Constant run, take its
// atom[a] sublist".
type indexRun struct {
	kind      runKind
	clauses   []*CompiledClause
	atomIndex *orderedmap.OrderedMap[Atom, []*CompiledClause]
	funcIndex *orderedmap.OrderedMap[Functor, []*CompiledClause]
}

// Database is the immutable-after-construction mapping from functor to
// predicate (spec.md §3 "Predicate", §5 "compiled database is immutable").
type Database struct {
	predicates *orderedmap.OrderedMap[Functor, *Predicate]
}

// NewDatabase creates an empty database.
func NewDatabase() *Database {
	return &Database{predicates: orderedmap.New[Functor, *Predicate]()}
}

// CompileOption configures a database load.
type CompileOption func(*compileConfig)

type compileConfig struct {
	logger hclog.Logger
}

// WithCompileLogger installs a structured logger that reports a database
// load failure at Error level (spec.md's AMBIENT STACK "database load
// errors").
func WithCompileLogger(l hclog.Logger) CompileOption {
	return func(c *compileConfig) { c.logger = l }
}

// Compile is the driver API's compile(clauses) -> Database (spec.md §6). It
// compiles every clause and groups the results by functor, aborting with
// the first CompileError encountered.
func Compile(clauses []*Clause, opts ...CompileOption) (*Database, error) {
	cfg := &compileConfig{logger: hclog.NewNullLogger()}
	for _, opt := range opts {
		opt(cfg)
	}

	db := NewDatabase()
	for _, cl := range clauses {
		cc, err := CompileClause(cl)
		if err != nil {
			cfg.logger.Error("database load failed", "error", err)
			return nil, err
		}
		db.addClause(cc)
	}
	db.buildIndices()
	return db, nil
}

func (db *Database) addClause(cc *CompiledClause) {
	p, ok := db.predicates.Get(cc.Functor)
	if !ok {
		p = &Predicate{Functor: cc.Functor}
		db.predicates.Set(cc.Functor, p)
	}
	p.clauses = append(p.clauses, cc)
}

// Predicate looks up a predicate by functor.
func (db *Database) Predicate(f Functor) (*Predicate, bool) {
	return db.predicates.Get(f)
}

// buildIndices constructs the two-level first-argument index for every
// predicate, preserving source order at every level (spec.md §4.3, and the
// "Determinism under ordering" law of §8).
func (db *Database) buildIndices() {
	for pair := db.predicates.Oldest(); pair != nil; pair = pair.Next() {
		pair.Value.buildIndex()
	}
}

func (p *Predicate) buildIndex() {
	p.runs = nil

	var cur *indexRun
	for _, cc := range p.clauses {
		kind := runVar
		if cc.arg0Kind == indexArgAtom || cc.arg0Kind == indexArgFunc {
			kind = runConst
		}
		if cur == nil || cur.kind != kind {
			p.runs = append(p.runs, indexRun{kind: kind})
			cur = &p.runs[len(p.runs)-1]
			if kind == runConst {
				cur.atomIndex = orderedmap.New[Atom, []*CompiledClause]()
				cur.funcIndex = orderedmap.New[Functor, []*CompiledClause]()
			}
		}
		cur.clauses = append(cur.clauses, cc)

		switch cc.arg0Kind {
		case indexArgAtom:
			a := cc.arg0Key.(Atom)
			list, _ := cur.atomIndex.Get(a)
			cur.atomIndex.Set(a, append(list, cc))
		case indexArgFunc:
			f := cc.arg0Key.(Functor)
			list, _ := cur.funcIndex.Get(f)
			cur.funcIndex.Set(f, append(list, cc))
		}
	}
}

// Lookup returns the source-ordered sequence of candidate clauses for a
// call whose first argument walks to firstArg (spec.md §4.3 "Lookup for a
// call"). firstArg is nil for arity-0 predicates, in which case the full
// (only) clause list is returned.
func (p *Predicate) Lookup(firstArg Cell) []*CompiledClause {
	if firstArg == nil {
		return p.clauses
	}
	switch a := firstArg.(type) {
	case RefCell:
		return p.clauses
	case AtomCell:
		return p.interleave(func(r *indexRun) []*CompiledClause {
			list, _ := r.atomIndex.Get(Atom(a))
			return list
		})
	case *StructCell:
		return p.interleave(func(r *indexRun) []*CompiledClause {
			list, _ := r.funcIndex.Get(a.Functor)
			return list
		})
	default:
		return p.clauses
	}
}

// interleave walks the runs in source order, taking constMatch(run) for
// Const runs (an already-filtered, source-ordered sublist) and the run's
// own clauses verbatim for Var runs, concatenating the results. This
// reproduces the worked example in spec.md §4.3 exactly: interleaving the
// filtered Const sublist with every Var run in source position.
func (p *Predicate) interleave(constMatch func(*indexRun) []*CompiledClause) []*CompiledClause {
	var out []*CompiledClause
	for i := range p.runs {
		r := &p.runs[i]
		if r.kind == runVar {
			out = append(out, r.clauses...)
			continue
		}
		out = append(out, constMatch(r)...)
	}
	return out
}

func (p *Predicate) String() string {
	return fmt.Sprintf("%s (%d clauses)", p.Functor, len(p.clauses))
}
