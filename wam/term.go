package wam

// Term is the source-level representation delivered across the parser
// boundary (see SPEC_FULL.md "External interfaces"): an Atom, a Var, or a
// Struct. It is a closed tagged union; the compiler never sees any other
// implementation.
type Term interface {
	isTerm()
	// String renders the term using the clause-local variable names it was
	// parsed with. It is for diagnostics only; runtime terms print through
	// Cell.
	String() string
}

// Atom is a nullary constant.
type Atom string

func (Atom) isTerm()           {}
func (a Atom) String() string { return string(a) }

// Var is a named logic variable, scoped to the clause it appears in. Two Var
// values with the same name within one clause denote the same variable;
// clauses never share variable identity. Per the singleton-underscore
// resolution in spec.md §9, each textual "_" is a distinct, unshared
// variable: it stays Var("_") in the Term, and the compiler gives every
// "_" occurrence its own fresh variable instead of sharing one by name.
// "_" only denotes sharing when followed by a name ("_Name").
type Var string

func (Var) isTerm()           {}
func (v Var) String() string { return string(v) }

// Struct is a compound term: a functor applied to Arity args.
type Struct struct {
	Functor Functor
	Args    []Term
}

func (*Struct) isTerm() {}

func (s *Struct) String() string {
	return writeTermSource(s)
}

// NewStruct builds a Struct from a name and argument list, deriving arity
// from len(args). Arity-0 structs are not legal; use Atom instead.
func NewStruct(name string, args ...Term) *Struct {
	if len(args) == 0 {
		panic("wam: NewStruct requires at least one argument; use Atom for arity 0")
	}
	return &Struct{Functor: Functor{Name: name, Arity: len(args)}, Args: args}
}

// Cons builds one list cell head.tail.
func Cons(head, tail Term) *Struct {
	return &Struct{Functor: listFunctor, Args: []Term{head, tail}}
}

// List builds a proper list term from elements, terminated by atomNil,
// optionally overriding the tail (for partial/difference lists).
func List(elems []Term, tail Term) Term {
	if tail == nil {
		tail = Atom(atomNil)
	}
	for i := len(elems) - 1; i >= 0; i-- {
		tail = Cons(elems[i], tail)
	}
	return tail
}

// Clause is a parsed clause: a head term (Atom or *Struct) and an ordered
// body of goal terms. A fact has an empty Body.
type Clause struct {
	Head Term
	Body []Term
}
