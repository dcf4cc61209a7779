package wam

import (
	"github.com/hashicorp/go-hclog"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// contFrame is a resumable instruction pointer: the continuation a clause
// (or the top-level query) returns to on proceed (spec.md §3
// "Environment", "Continuation pointer").
type contFrame struct {
	code Code
	pos  int
	next *contFrame
}

// Environment is one activation record: its slice of permanent variables,
// and the continuation to resume when its clause deallocates (spec.md §3
// "Environment").
type Environment struct {
	prev     *Environment
	cont     *contFrame
	permVars []Cell
}

// ChoicePoint is a pending alternative (spec.md §3 "Choice point", §4.5
// "Backtrack protocol"). candidates holds the clauses not yet tried, in
// source order; trying the last one pops the choice point entirely
// (trust), trying an earlier one leaves it in place (retry) -- the
// index-driven resolution of the Open Question in spec.md §9.
type ChoicePoint struct {
	prev        *ChoicePoint
	envAtCreate *Environment
	envDepth    int
	cont        *contFrame
	candidates  []*CompiledClause
	savedArgs   []Cell
	trailMark   int
	refMark     int64
	attrMark    int
}

type argMode uint8

const (
	modeRead argMode = iota
	modeWrite
)

// complexArg is the machine's single active struct-read/write cursor
// (spec.md §3 "complex_arg"). Nested structs never need a stack of these:
// see compiler.go's emitStructHead/emitStructBody for why the compiled
// instruction stream never has two such cursors active at once.
type complexArg struct {
	mode  argMode
	cell  *StructCell
	index int
}

// Builtin is a native predicate implementation, installed with
// RegisterBuiltin (the driver API's register_builtin, spec.md §6). args
// holds the call's argument cells, unwalked; a Builtin is expected to walk
// and unify them itself via m.unify.
type Builtin func(m *Machine, args []Cell) (ok bool, err error)

// Machine is one interpreter run over an immutable Database (spec.md §3
// "Machine state", §5). It is not safe for concurrent use; run one query
// to completion (or abandon it) before starting another on the same
// Machine.
type Machine struct {
	db *Database

	regs  []Cell
	refs  []ref
	trail []RefCell

	code Code
	pos  int

	envTop    *Environment
	choiceTop *ChoicePoint
	cont      *contFrame
	arg       complexArg

	builtins      map[Functor]Builtin
	attrPkgs      *orderedmap.OrderedMap[string, AttributeHook]
	attributes    map[RefCell]*orderedmap.OrderedMap[string, Cell]
	pendingFrames []UnifFrame

	stepBudget int
	steps      int
	strict     bool

	maxDepth    int
	envDepth    int
	choiceDepth int

	snapshot *SnapshotWriter
	logger   hclog.Logger
	stepHook StepHook
}

// Option configures a Machine at construction.
type Option func(*Machine)

// WithStepBudget aborts the run with an OperationalError once more than n
// instructions have executed (spec.md §7), guarding against runaway
// queries. n <= 0 means unbounded.
func WithStepBudget(n int) Option { return func(m *Machine) { m.stepBudget = n } }

// WithStrictUnknown makes a call to an undefined, non-builtin procedure an
// OperationalError instead of a silent failure (spec.md §7).
func WithStrictUnknown() Option { return func(m *Machine) { m.strict = true } }

// WithMaxDepth aborts the run with an OperationalError once either the
// environment stack or the choice-point stack would grow past n frames
// (spec.md §7 "stack depth limit exceeded"), bounding a left-recursive,
// non-tail clause that first-argument indexing doesn't cut off. n <= 0
// means unbounded.
func WithMaxDepth(n int) Option { return func(m *Machine) { m.maxDepth = n } }

// WithLogger installs a structured logger for diagnostics.
func WithLogger(l hclog.Logger) Option { return func(m *Machine) { m.logger = l } }

// WithSnapshot installs a writer that receives one JSONL record per
// instruction step and per backtrack (spec.md §6 "Snapshot format").
func WithSnapshot(w *SnapshotWriter) Option { return func(m *Machine) { m.snapshot = w } }

// NewMachine creates a Machine bound to db, with the standard builtin
// library registered (builtin.go).
func NewMachine(db *Database, opts ...Option) *Machine {
	m := &Machine{
		db:         db,
		builtins:   map[Functor]Builtin{},
		attrPkgs:   orderedmap.New[string, AttributeHook](),
		attributes: map[RefCell]*orderedmap.OrderedMap[string, Cell]{},
		logger:     hclog.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	registerBuiltins(m)
	return m
}

// RegisterBuiltin installs a native predicate, the driver API's
// register_builtin (spec.md §6). It takes priority over any database
// clause with the same functor.
func (m *Machine) RegisterBuiltin(name string, arity int, b Builtin) {
	m.builtins[Functor{Name: name, Arity: arity}] = b
}

func (m *Machine) ensureRegs(n int) {
	if len(m.regs) < n {
		grown := make([]Cell, n)
		copy(grown, m.regs)
		m.regs = grown
	}
}

func (m *Machine) getReg(a Addr) Cell {
	if a.Kind == AddrY {
		return m.envTop.permVars[a.Index]
	}
	return m.regs[a.Index]
}

func (m *Machine) setReg(a Addr, c Cell) {
	if a.Kind == AddrY {
		m.envTop.permVars[a.Index] = c
		return
	}
	m.ensureRegs(a.Index + 1)
	m.regs[a.Index] = c
}

func (m *Machine) enterClause(cc *CompiledClause) {
	m.ensureRegs(cc.NumRegisters)
	m.code = cc.Code
	m.pos = 0
}

// Solution is one answer substitution: query variable name to its
// rendered binding (spec.md §6 "Solve" -- ground or partially ground,
// unresolved variables rendered as fresh names).
type Solution struct {
	Bindings map[string]string
}

// Solver is the iterator returned by Solve, one per query (spec.md §6
// "solve(Database, query) -> iterator of substitution").
type Solver struct {
	m       *Machine
	env     *Environment
	vars    map[string]Addr
	started bool
	done    bool
}

// Solve compiles query (a conjunction of goals) and prepares a Solver over
// it. Every named variable in query is forced permanent, living in the
// query's own Environment for as long as the Solver is driven -- see
// compileQuery.
func (m *Machine) Solve(query []Term) (*Solver, error) {
	cc, addrs, err := compileQuery(query)
	if err != nil {
		return nil, err
	}
	m.ensureRegs(cc.NumRegisters)
	env := &Environment{permVars: make([]Cell, cc.NumPermVars)}
	m.envTop = env
	m.choiceTop = nil
	m.cont = nil
	m.code = cc.Code
	m.pos = 0
	m.steps = 0
	m.envDepth = 0
	m.choiceDepth = 0
	return &Solver{m: m, env: env, vars: addrs}, nil
}

// Next runs to the next answer, backtracking past the previous one first
// if this is not the first call. It returns (nil, nil) once the query is
// exhausted.
func (s *Solver) Next() (*Solution, error) {
	if s.done {
		return nil, nil
	}
	if s.started {
		if !s.m.backtrack() {
			s.done = true
			return nil, nil
		}
	}
	s.started = true

	ok, err := s.m.run()
	if err != nil {
		s.done = true
		return nil, err
	}
	if !ok {
		s.done = true
		return nil, nil
	}

	bindings := make(map[string]string, len(s.vars))
	for name, addr := range s.vars {
		bindings[name] = s.m.writeCell(s.env.permVars[addr.Index])
	}
	return &Solution{Bindings: bindings}, nil
}

// compileQuery compiles a top-level query as a headless, fact-free clause
// body in which every named variable is forced permanent: unlike a clause
// body's chunk-based classification (permanentVars), a query's variables
// must survive for the whole life of the Solver, not just across the
// chunk that mentions them.
func compileQuery(goals []Term) (*CompiledClause, map[string]Addr, error) {
	names := map[string]bool{}
	for _, g := range goals {
		collectVarNames(g, names)
	}
	permanent := make(map[string]bool, len(names))
	for n := range names {
		permanent[n] = true
	}

	arity := 0
	for _, g := range goals {
		if s, ok := g.(*Struct); ok && len(s.Args) > arity {
			arity = len(s.Args)
		}
	}
	cc := newClauseCompiler(permanent, arity)
	for _, g := range goals {
		if err := cc.compileGoal(g, false); err != nil {
			return nil, nil, err.(*CompileError)
		}
	}
	cc.emit(Instruction{Op: OpProceed})

	addrs := make(map[string]Addr, len(cc.perm))
	for name, idx := range cc.perm {
		addrs[name] = Y(idx)
	}
	return &CompiledClause{Code: cc.code, NumRegisters: cc.nextTemp, NumPermVars: len(permanent)}, addrs, nil
}

type stepResult uint8

const (
	stepContinue stepResult = iota
	stepFail
	stepAnswer
)

// run drives the fetch/dispatch loop until an answer is produced, the
// query fails outright, or an OperationalError aborts it (spec.md §4.5,
// §7).
func (m *Machine) run() (bool, error) {
	for {
		if m.stepBudget > 0 {
			m.steps++
			if m.steps > m.stepBudget {
				err := errBudgetExceeded()
				m.logger.Warn("operational error", "reason", err.Reason.String())
				return false, err
			}
		}
		if m.pos >= len(m.code) {
			if !m.backtrack() {
				return false, nil
			}
			continue
		}

		instr := m.code[m.pos]
		m.pos++
		if m.snapshot != nil {
			m.snapshot.writeStep(m, instr)
		}
		if m.stepHook != nil {
			if err := m.stepHook(instr); err != nil {
				return false, err
			}
		}

		res, err := m.step(instr)
		if err != nil {
			if operr, ok := err.(*OperationalError); ok {
				m.logger.Warn("operational error", "reason", operr.Reason.String(), "goal", operr.Goal)
			}
			return false, err
		}
		if res == stepContinue {
			if ok, aerr := m.drainAttrFrames(); aerr != nil {
				return false, aerr
			} else if !ok {
				res = stepFail
			}
		}

		switch res {
		case stepFail:
			if m.snapshot != nil {
				m.snapshot.writeBacktrack(m)
			}
			if !m.backtrack() {
				return false, nil
			}
		case stepAnswer:
			return true, nil
		}
	}
}

// stepProceed performs the control transfer shared by the proceed
// instruction and a successful builtin call: pop the current
// continuation, or report an answer if there is none left to resume.
func (m *Machine) stepProceed() stepResult {
	if m.cont == nil {
		return stepAnswer
	}
	m.code = m.cont.code
	m.pos = m.cont.pos
	m.cont = m.cont.next
	return stepContinue
}

// backtrack restores the most recent choice point's saved state and
// enters its next candidate clause, popping the choice point entirely if
// that candidate was its last (spec.md §4.5 "Backtrack protocol").
func (m *Machine) backtrack() bool {
	cp := m.choiceTop
	if cp == nil {
		return false
	}

	if len(cp.savedArgs) > 0 {
		m.ensureRegs(len(cp.savedArgs))
		copy(m.regs, cp.savedArgs)
	}
	m.unbindTo(cp.trailMark)
	m.refs = m.refs[:cp.refMark]
	m.pendingFrames = m.pendingFrames[:cp.attrMark]
	m.envTop = cp.envAtCreate
	m.envDepth = cp.envDepth
	m.cont = cp.cont

	candidate := cp.candidates[0]
	cp.candidates = cp.candidates[1:]
	if len(cp.candidates) == 0 {
		m.choiceTop = cp.prev
		m.choiceDepth--
	}

	m.enterClause(candidate)
	return true
}

// invoke dispatches a call or execute to functor f: a registered builtin,
// or the database's indexed clause candidates, pushing a choice point when
// more than one candidate remains (spec.md §4.3 "Lookup for a call").
func (m *Machine) invoke(f Functor, cont *contFrame) (stepResult, error) {
	if b, ok := m.builtins[f]; ok {
		m.ensureRegs(f.Arity)
		args := make([]Cell, f.Arity)
		copy(args, m.regs[:f.Arity])
		ok2, err := b(m, args)
		if err != nil {
			return stepFail, err
		}
		if !ok2 {
			return stepFail, nil
		}
		m.cont = cont
		return m.stepProceed(), nil
	}

	pred, found := m.db.Predicate(f)
	if !found {
		m.logger.Debug("predicate dispatch miss", "functor", f.String())
		if m.strict {
			return stepFail, errUnknownProcedure(f)
		}
		return stepFail, nil
	}

	var firstArg Cell
	if f.Arity > 0 {
		m.ensureRegs(f.Arity)
		firstArg = m.walk(m.regs[0])
	}
	candidates := pred.Lookup(firstArg)
	if len(candidates) == 0 {
		return stepFail, nil
	}

	if len(candidates) > 1 {
		if m.maxDepth > 0 && m.choiceDepth+1 > m.maxDepth {
			return stepFail, errStackDepthExceeded()
		}
		saved := append([]Cell(nil), m.regs[:f.Arity]...)
		m.choiceDepth++
		m.choiceTop = &ChoicePoint{
			prev:        m.choiceTop,
			envAtCreate: m.envTop,
			envDepth:    m.envDepth,
			cont:        cont,
			candidates:  candidates[1:],
			savedArgs:   saved,
			trailMark:   len(m.trail),
			refMark:     int64(len(m.refs)),
			attrMark:    len(m.pendingFrames),
		}
	}

	m.cont = cont
	m.enterClause(candidates[0])
	return stepContinue, nil
}

// step executes one instruction and reports its control-flow effect.
func (m *Machine) step(instr Instruction) (stepResult, error) {
	switch instr.Op {
	case OpGetVar:
		ra := instr.Operand.(RegAddr)
		m.setReg(ra.Var, m.getReg(ra.Reg))
		return stepContinue, nil
	case OpGetVal:
		ra := instr.Operand.(RegAddr)
		if !m.unify(m.getReg(ra.Reg), m.getReg(ra.Var)) {
			return stepFail, nil
		}
		return stepContinue, nil
	case OpGetAtom:
		ra := instr.Operand.(RegAtom)
		c := m.walk(m.getReg(ra.Reg))
		switch c := c.(type) {
		case RefCell:
			m.bindRef(c, AtomCell(ra.Atom))
		case AtomCell:
			if c != AtomCell(ra.Atom) {
				return stepFail, nil
			}
		default:
			return stepFail, nil
		}
		return stepContinue, nil
	case OpGetStruct:
		rf := instr.Operand.(RegFunctor)
		return m.getStructOrPair(rf.Reg, rf.Functor)
	case OpGetPair:
		rp := instr.Operand.(RegPair)
		return m.getStructOrPair(rp.Reg, listFunctor)

	case OpUnifyVar:
		addr := instr.Operand.(Addr)
		if m.arg.mode == modeRead {
			m.setReg(addr, m.arg.cell.Slots[m.arg.index])
		} else {
			r := m.newRef()
			m.arg.cell.Slots[m.arg.index] = r
			m.setReg(addr, r)
		}
		m.arg.index++
		return stepContinue, nil
	case OpUnifyVal:
		addr := instr.Operand.(Addr)
		if m.arg.mode == modeRead {
			if !m.unify(m.getReg(addr), m.arg.cell.Slots[m.arg.index]) {
				return stepFail, nil
			}
		} else {
			m.arg.cell.Slots[m.arg.index] = m.getReg(addr)
		}
		m.arg.index++
		return stepContinue, nil
	case OpUnifyAtom:
		a := instr.Operand.(Atom)
		if m.arg.mode == modeRead {
			v := m.walk(m.arg.cell.Slots[m.arg.index])
			switch v := v.(type) {
			case RefCell:
				m.bindRef(v, AtomCell(a))
			case AtomCell:
				if v != AtomCell(a) {
					return stepFail, nil
				}
			default:
				return stepFail, nil
			}
		} else {
			m.arg.cell.Slots[m.arg.index] = AtomCell(a)
		}
		m.arg.index++
		return stepContinue, nil
	case OpUnifyVoid:
		n := instr.Operand.(int)
		if m.arg.mode == modeWrite {
			for i := 0; i < n; i++ {
				m.arg.cell.Slots[m.arg.index+i] = m.newRef()
			}
		}
		m.arg.index += n
		return stepContinue, nil

	case OpPutVar:
		ra := instr.Operand.(RegAddr)
		r := m.newRef()
		m.setReg(ra.Var, r)
		m.setReg(ra.Reg, r)
		return stepContinue, nil
	case OpPutVal:
		ra := instr.Operand.(RegAddr)
		m.setReg(ra.Reg, m.getReg(ra.Var))
		return stepContinue, nil
	case OpPutAtom:
		ra := instr.Operand.(RegAtom)
		m.setReg(ra.Reg, AtomCell(ra.Atom))
		return stepContinue, nil
	case OpPutStruct:
		rf := instr.Operand.(RegFunctor)
		cell := &StructCell{Functor: rf.Functor, Slots: make([]Cell, rf.Functor.Arity)}
		m.setReg(rf.Reg, cell)
		m.arg = complexArg{mode: modeWrite, cell: cell}
		return stepContinue, nil
	case OpPutPair:
		rp := instr.Operand.(RegPair)
		cell := &StructCell{Functor: listFunctor, Slots: make([]Cell, 2)}
		m.setReg(rp.Reg, cell)
		m.arg = complexArg{mode: modeWrite, cell: cell}
		return stepContinue, nil

	case OpCall:
		f := instr.Operand.(Functor)
		cont := &contFrame{code: m.code, pos: m.pos, next: m.cont}
		return m.invoke(f, cont)
	case OpExecute:
		f := instr.Operand.(Functor)
		return m.invoke(f, m.cont)
	case OpProceed:
		return m.stepProceed(), nil
	case OpAllocate:
		n := instr.Operand.(int)
		if m.maxDepth > 0 && m.envDepth+1 > m.maxDepth {
			return stepFail, errStackDepthExceeded()
		}
		m.envDepth++
		m.envTop = &Environment{prev: m.envTop, cont: m.cont, permVars: make([]Cell, n)}
		return stepContinue, nil
	case OpDeallocate:
		m.envDepth--
		m.cont = m.envTop.cont
		m.envTop = m.envTop.prev
		return stepContinue, nil

	default:
		return stepFail, errUnimplementedInstruction()
	}
}

func (m *Machine) getStructOrPair(reg Addr, f Functor) (stepResult, error) {
	c := m.walk(m.getReg(reg))
	switch c := c.(type) {
	case *StructCell:
		if c.Functor != f {
			return stepFail, nil
		}
		m.arg = complexArg{mode: modeRead, cell: c}
		return stepContinue, nil
	case RefCell:
		nc := &StructCell{Functor: f, Slots: make([]Cell, f.Arity)}
		m.bindRef(c, nc)
		m.arg = complexArg{mode: modeWrite, cell: nc}
		return stepContinue, nil
	default:
		return stepFail, nil
	}
}
