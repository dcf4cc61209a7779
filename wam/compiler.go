package wam

import "fmt"

// RegAtom is the operand of get_atom/put_atom: a register and the atom to
// match or build there.
type RegAtom struct {
	Reg  Addr
	Atom Atom
}

// RegAddr is the operand of get_var/get_val/put_var/put_val: a register and
// the address (X or Y) the variable lives in.
type RegAddr struct {
	Reg Addr
	Var Addr
}

// RegFunctor is the operand of get_struct/put_struct: a register and the
// functor of the struct to match or build there.
type RegFunctor struct {
	Reg     Addr
	Functor Functor
}

// RegPair is the operand of get_pair/put_pair: the specialization of
// RegFunctor for listFunctor, spec.md §4.2's pair instructions.
type RegPair struct {
	Reg Addr
}

// CompiledClause is one clause's compiled form (spec.md §3 "Clause
// (compiled)"): its predicate functor, instruction stream, and the register
// /environment sizes the interpreter must allocate to run it.
type CompiledClause struct {
	Functor      Functor
	Code         Code
	NumRegisters int
	NumPermVars  int

	// arg0Kind/arg0Key summarize the clause's first head argument for the
	// database's first-argument index (spec.md §4.3); computed at compile
	// time so the database never has to re-inspect clause bodies.
	arg0Kind indexArgKind
	arg0Key  interface{}

	// Source is kept for diagnostics and debug snapshots (spec.md §6).
	Source *Clause
}

type indexArgKind uint8

const (
	indexArgNone  indexArgKind = iota // predicate of arity 0
	indexArgVar                       // first arg is a variable
	indexArgAtom                      // first arg is an atom
	indexArgFunc                      // first arg is a struct/pair
)

// CompileReasonCode is the closed set of static compile failures,
// mirroring engine/exception.go's validType enum pattern: a fixed code
// plus a lookup table, rather than a message built ad hoc at each call
// site with fmt.Errorf.
type CompileReasonCode uint8

const (
	ReasonVariableHead CompileReasonCode = iota
	ReasonUnsupportedHeadArg
	ReasonUnsupportedNestedTerm
	ReasonUnsupportedGoal
	ReasonUnsupportedBodyArg
)

var compileReasonText = [...]string{
	ReasonVariableHead:          "clause head must be an atom or struct, not a variable",
	ReasonUnsupportedHeadArg:    "unsupported head argument term",
	ReasonUnsupportedNestedTerm: "unsupported nested term",
	ReasonUnsupportedGoal:       "goal must be an atom or struct",
	ReasonUnsupportedBodyArg:    "unsupported body argument term",
}

func (r CompileReasonCode) String() string { return compileReasonText[r] }

// CompileError is a static compile error (spec.md §7): a clause whose head
// is a variable, or a head, goal or argument term the compiler does not
// support. Calls to undefined builtins and meta-call arities are not
// checked at compile time. It aborts compilation of the database load
// that raised it. Culprit is the
// offending term, carried alongside the reason code rather than baked
// into a formatted string (spec.md's AMBIENT STACK "a reason code and a
// culprit term").
type CompileError struct {
	Reason  CompileReasonCode
	Culprit Term
	Clause  *Clause
}

func (e *CompileError) Error() string {
	if e.Culprit != nil {
		return fmt.Sprintf("wam: compile error: %s (culprit %T)", e.Reason, e.Culprit)
	}
	return fmt.Sprintf("wam: compile error: %s", e.Reason)
}

// CompileClause compiles a single clause into its abstract-machine form.
func CompileClause(cl *Clause) (*CompiledClause, error) {
	head := cl.Head
	var functor Functor
	var headArgs []Term
	switch h := head.(type) {
	case Atom:
		functor = Functor{Name: string(h), Arity: 0}
	case *Struct:
		functor = h.Functor
		headArgs = h.Args
	default:
		return nil, &CompileError{Reason: ReasonVariableHead, Culprit: head, Clause: cl}
	}

	// X0..X(n-1) are reserved for the widest argument list in the clause,
	// head or body goal, so no variable home or nested-struct register
	// sits on a slot that a later goal's put instructions overwrite.
	regs := len(headArgs)
	for _, g := range cl.Body {
		if s, ok := g.(*Struct); ok && len(s.Args) > regs {
			regs = len(s.Args)
		}
	}
	cc := newClauseCompiler(permanentVars(head, cl.Body), regs)

	// The permanent-variable set is known analytically (spec.md §4.1 Phase
	// 1), before a single instruction is emitted, so allocate's operand
	// does not depend on how compilation happens to visit variables:
	// every permanent name gets exactly one Y slot by the time the whole
	// clause is compiled, whether first mentioned in the head or deep in
	// the body. allocate comes before the head, since a head argument
	// holding a permanent variable is stored straight into its Y slot.
	needsEnv := len(cl.Body) > 0 && len(cc.permanent) > 0
	if needsEnv {
		cc.emit(Instruction{Op: OpAllocate, Operand: len(cc.permanent)})
	}

	for i, a := range headArgs {
		if err := cc.compileHeadArg(a, X(i)); err != nil {
			ce := err.(*CompileError)
			ce.Clause = cl
			return nil, ce
		}
	}

	for i, goal := range cl.Body {
		last := i == len(cl.Body)-1
		if err := cc.compileGoal(goal, last); err != nil {
			ce := err.(*CompileError)
			ce.Clause = cl
			return nil, ce
		}
		if last && needsEnv {
			// deallocate goes after the final goal's argument setup,
			// which may still read Y slots, and just before its execute.
			exec := cc.code[len(cc.code)-1]
			cc.code[len(cc.code)-1] = Instruction{Op: OpDeallocate}
			cc.emit(exec)
		}
	}

	if len(cl.Body) == 0 {
		cc.emit(Instruction{Op: OpProceed})
	}

	out := &CompiledClause{
		Functor:      functor,
		Code:         cc.code,
		NumRegisters: cc.nextTemp,
		NumPermVars:  len(cc.permanent),
		Source:       cl,
	}
	out.arg0Kind, out.arg0Key = firstArgIndex(headArgs)
	return out, nil
}

func firstArgIndex(headArgs []Term) (indexArgKind, interface{}) {
	if len(headArgs) == 0 {
		return indexArgNone, nil
	}
	switch a := headArgs[0].(type) {
	case Atom:
		return indexArgAtom, a
	case *Struct:
		return indexArgFunc, a.Functor
	default:
		return indexArgVar, nil
	}
}

// clauseCompiler holds per-clause compilation state: which variable names
// are permanent (from Phase 1), and the address assigned to each variable
// on first mention (Phase 2's simplified, always-correct-if-suboptimal
// register allocation: every distinct variable gets its own home address,
// never reused for an unrelated variable -- see DESIGN.md).
type clauseCompiler struct {
	code      Code
	permanent map[string]bool
	perm      map[string]int
	temp      map[string]int
	nextPerm  int
	nextTemp  int
	synth     int
}

func newClauseCompiler(permanent map[string]bool, arity int) *clauseCompiler {
	return &clauseCompiler{
		permanent: permanent,
		perm:      map[string]int{},
		temp:      map[string]int{},
		nextTemp:  arity, // X0..X(arity-1) are reserved for head/call argument slots.
	}
}

func (cc *clauseCompiler) emit(i Instruction) {
	cc.code = append(cc.code, i)
}

func (cc *clauseCompiler) freshName() string {
	cc.synth++
	return fmt.Sprintf("_S%d", cc.synth)
}

// addrOf returns the home address for a variable, assigning one (and
// reporting whether this is its first mention) the first time it is seen.
// Permanent variables (live across more than one chunk, spec.md §4.1 Phase
// 1) get a Y slot; everything else gets a dedicated X register.
func (cc *clauseCompiler) addrOf(name string) (addr Addr, first bool) {
	if cc.permanent[name] {
		if idx, ok := cc.perm[name]; ok {
			return Y(idx), false
		}
		idx := cc.nextPerm
		cc.nextPerm++
		cc.perm[name] = idx
		return Y(idx), true
	}
	if idx, ok := cc.temp[name]; ok {
		return X(idx), false
	}
	idx := cc.nextTemp
	cc.nextTemp++
	cc.temp[name] = idx
	return X(idx), true
}

// permanentVars classifies every variable in the clause as permanent (live
// across more than one chunk) or temporary, per spec.md §4.1 Phase 1. A
// chunk is the head plus the first goal, then each subsequent goal alone.
func permanentVars(head Term, body []Term) map[string]bool {
	var chunks [][]Term
	if len(body) > 0 {
		chunks = append(chunks, []Term{head, body[0]})
		for _, g := range body[1:] {
			chunks = append(chunks, []Term{g})
		}
	} else {
		chunks = append(chunks, []Term{head})
	}

	counts := map[string]int{}
	for _, chunk := range chunks {
		seen := map[string]bool{}
		for _, t := range chunk {
			collectVarNames(t, seen)
		}
		for name := range seen {
			counts[name]++
		}
	}

	permanent := map[string]bool{}
	for name, n := range counts {
		if n >= 2 {
			permanent[name] = true
		}
	}
	return permanent
}

func collectVarNames(t Term, out map[string]bool) {
	switch t := t.(type) {
	case Var:
		if t != "_" {
			out[string(t)] = true
		}
	case *Struct:
		for _, a := range t.Args {
			collectVarNames(a, out)
		}
	}
}

// compileHeadArg emits the get-family instruction for head argument a
// sitting in register reg.
func (cc *clauseCompiler) compileHeadArg(a Term, reg Addr) error {
	switch a := a.(type) {
	case Var:
		if a == "_" {
			return nil // a bare void head argument needs no instruction at all.
		}
		addr, first := cc.addrOf(string(a))
		op := OpGetVal
		if first {
			op = OpGetVar
		}
		cc.emit(Instruction{Op: op, Operand: RegAddr{Reg: reg, Var: addr}})
	case Atom:
		cc.emit(Instruction{Op: OpGetAtom, Operand: RegAtom{Reg: reg, Atom: a}})
	case *Struct:
		return cc.emitStructHead(a, reg)
	default:
		return &CompileError{Reason: ReasonUnsupportedHeadArg, Culprit: a}
	}
	return nil
}

// emitStructHead emits get_struct/get_pair followed by a flat unify-family
// sequence for a's immediate children. Grandchildren that are themselves
// structs are deferred: a fresh register placeholder is unified in their
// place, and their own get_struct sequence is emitted afterwards, entirely
// separately. This keeps the runtime's complex_arg a single active frame
// (spec.md §3), never a stack: by the time a deferred child's get_struct
// instruction runs, its parent's unify sequence has already completed.
func (cc *clauseCompiler) emitStructHead(a *Struct, reg Addr) error {
	if a.Functor == listFunctor {
		cc.emit(Instruction{Op: OpGetPair, Operand: RegPair{Reg: reg}})
	} else {
		cc.emit(Instruction{Op: OpGetStruct, Operand: RegFunctor{Reg: reg, Functor: a.Functor}})
	}

	type deferred struct {
		term *Struct
		addr Addr
	}
	var pending []deferred

	for _, arg := range a.Args {
		switch arg := arg.(type) {
		case Var:
			if arg == "_" {
				cc.emit(Instruction{Op: OpUnifyVoid, Operand: 1})
				continue
			}
			addr, first := cc.addrOf(string(arg))
			op := OpUnifyVal
			if first {
				op = OpUnifyVar
			}
			cc.emit(Instruction{Op: op, Operand: addr})
		case Atom:
			cc.emit(Instruction{Op: OpUnifyAtom, Operand: arg})
		case *Struct:
			addr, _ := cc.addrOf(cc.freshName())
			cc.emit(Instruction{Op: OpUnifyVar, Operand: addr})
			pending = append(pending, deferred{term: arg, addr: addr})
		default:
			return &CompileError{Reason: ReasonUnsupportedNestedTerm, Culprit: arg}
		}
	}

	for _, d := range pending {
		if err := cc.compileHeadArg(d.term, d.addr); err != nil {
			return err
		}
	}
	return nil
}

// compileGoal builds a body goal's arguments into X registers with the
// put-family, then emits call (or execute for the final goal).
func (cc *clauseCompiler) compileGoal(goal Term, last bool) error {
	var functor Functor
	var args []Term
	switch g := goal.(type) {
	case Atom:
		functor = Functor{Name: string(g), Arity: 0}
	case *Struct:
		functor = g.Functor
		args = g.Args
	default:
		return &CompileError{Reason: ReasonUnsupportedGoal, Culprit: goal}
	}

	for i, a := range args {
		if err := cc.compileBodyArg(a, X(i)); err != nil {
			return err
		}
	}

	op := OpCall
	if last {
		op = OpExecute
	}
	cc.emit(Instruction{Op: op, Operand: functor})
	return nil
}

// compileBodyArg emits the put-family instruction that builds argument a
// into register reg.
func (cc *clauseCompiler) compileBodyArg(a Term, reg Addr) error {
	switch a := a.(type) {
	case Var:
		if a == "_" {
			addr, _ := cc.addrOf(cc.freshName())
			cc.emit(Instruction{Op: OpPutVar, Operand: RegAddr{Reg: reg, Var: addr}})
			return nil
		}
		addr, first := cc.addrOf(string(a))
		op := OpPutVal
		if first {
			op = OpPutVar
		}
		cc.emit(Instruction{Op: op, Operand: RegAddr{Reg: reg, Var: addr}})
	case Atom:
		cc.emit(Instruction{Op: OpPutAtom, Operand: RegAtom{Reg: reg, Atom: a}})
	case *Struct:
		return cc.emitStructBody(a, reg)
	default:
		return &CompileError{Reason: ReasonUnsupportedBodyArg, Culprit: a}
	}
	return nil
}

// emitStructBody builds a into reg. Any child that is itself a struct is
// built first, into its own register, in a separate, earlier instruction
// sequence (so its own put_struct never runs while a's is mid-sequence);
// a's own sequence then just refers to the already-built child by
// unify_val, keeping complex_arg a single frame just as emitStructHead
// does for the read direction.
func (cc *clauseCompiler) emitStructBody(a *Struct, reg Addr) error {
	childAddrs := make([]Addr, len(a.Args))
	for i, arg := range a.Args {
		if child, ok := arg.(*Struct); ok {
			addr, _ := cc.addrOf(cc.freshName())
			if err := cc.emitStructBody(child, addr); err != nil {
				return err
			}
			childAddrs[i] = addr
		}
	}

	if a.Functor == listFunctor {
		cc.emit(Instruction{Op: OpPutPair, Operand: RegPair{Reg: reg}})
	} else {
		cc.emit(Instruction{Op: OpPutStruct, Operand: RegFunctor{Reg: reg, Functor: a.Functor}})
	}

	for i, arg := range a.Args {
		switch arg := arg.(type) {
		case Var:
			if arg == "_" {
				cc.emit(Instruction{Op: OpUnifyVoid, Operand: 1})
				continue
			}
			addr, first := cc.addrOf(string(arg))
			op := OpUnifyVal
			if first {
				op = OpUnifyVar
			}
			cc.emit(Instruction{Op: op, Operand: addr})
		case Atom:
			cc.emit(Instruction{Op: OpUnifyAtom, Operand: arg})
		case *Struct:
			cc.emit(Instruction{Op: OpUnifyVal, Operand: childAddrs[i]})
		default:
			return &CompileError{Reason: ReasonUnsupportedNestedTerm, Culprit: arg}
		}
	}
	return nil
}
