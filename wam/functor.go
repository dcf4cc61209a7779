package wam

import "fmt"

// Functor identifies a struct or predicate by name and arity. Equality is
// structural: two Functor values are the same functor iff both fields match.
type Functor struct {
	Name  string
	Arity int
}

// String renders the functor in name/arity form, e.g. "f/2".
func (f Functor) String() string {
	return fmt.Sprintf("%s/%d", f.Name, f.Arity)
}

// listFunctor is the functor of cons cells; lists are nested structs of this
// functor terminated by atomNil.
var listFunctor = Functor{Name: ".", Arity: 2}

const atomNil = Atom("[]")
