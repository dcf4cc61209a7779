package wam

import "fmt"

// AddrKind discriminates a compile-time-assigned operand location.
type AddrKind uint8

const (
	// AddrX is a temporary register, index 0..n-1.
	AddrX AddrKind = iota
	// AddrY is a permanent environment slot, index 0..k-1.
	AddrY
)

// Addr is a compile-time-assigned argument location: X(i) or Y(i).
type Addr struct {
	Kind  AddrKind
	Index int
}

func X(i int) Addr { return Addr{Kind: AddrX, Index: i} }
func Y(i int) Addr { return Addr{Kind: AddrY, Index: i} }

func (a Addr) String() string {
	switch a.Kind {
	case AddrY:
		return fmt.Sprintf("Y%d", a.Index)
	default:
		return fmt.Sprintf("X%d", a.Index)
	}
}

// Opcode identifies an abstract-machine instruction kind (spec.md §4.2).
type Opcode uint8

const (
	OpGetVar Opcode = iota
	OpGetVal
	OpGetAtom
	OpGetStruct
	OpGetPair
	OpUnifyVar
	OpUnifyVal
	OpUnifyAtom
	OpUnifyVoid

	OpPutVar
	OpPutVal
	OpPutAtom
	OpPutStruct
	OpPutPair

	OpCall
	OpExecute
	OpProceed
	OpAllocate
	OpDeallocate
	OpTryMeElse
	OpRetryMeElse
	OpTrustMe
	OpTry
	OpRetry
	OpTrust
	OpJump
	OpLabel

	OpSwitchOnTerm
	OpSwitchOnConstant
	OpSwitchOnStruct

	OpBuiltin
	OpCallMeta
	OpExecuteMeta
	OpInlineUnify

	OpPutAttr
	OpGetAttr
	OpDelAttr
	OpImportPkg
)

var opcodeNames = [...]string{
	OpGetVar:           "get_var",
	OpGetVal:           "get_val",
	OpGetAtom:          "get_atom",
	OpGetStruct:        "get_struct",
	OpGetPair:          "get_pair",
	OpUnifyVar:         "unify_var",
	OpUnifyVal:         "unify_val",
	OpUnifyAtom:        "unify_atom",
	OpUnifyVoid:        "unify_void",
	OpPutVar:           "put_var",
	OpPutVal:           "put_val",
	OpPutAtom:          "put_atom",
	OpPutStruct:        "put_struct",
	OpPutPair:          "put_pair",
	OpCall:             "call",
	OpExecute:          "execute",
	OpProceed:          "proceed",
	OpAllocate:         "allocate",
	OpDeallocate:       "deallocate",
	OpTryMeElse:        "try_me_else",
	OpRetryMeElse:      "retry_me_else",
	OpTrustMe:          "trust_me",
	OpTry:              "try",
	OpRetry:            "retry",
	OpTrust:            "trust",
	OpJump:             "jump",
	OpLabel:            "label",
	OpSwitchOnTerm:     "switch_on_term",
	OpSwitchOnConstant: "switch_on_constant",
	OpSwitchOnStruct:   "switch_on_struct",
	OpBuiltin:          "builtin",
	OpCallMeta:         "call_meta",
	OpExecuteMeta:      "execute_meta",
	OpInlineUnify:      "inline_unify",
	OpPutAttr:          "put_attr",
	OpGetAttr:          "get_attr",
	OpDelAttr:          "del_attr",
	OpImportPkg:        "import_pkg",
}

func (op Opcode) String() string {
	if int(op) < len(opcodeNames) && opcodeNames[op] != "" {
		return opcodeNames[op]
	}
	return fmt.Sprintf("op(%d)", op)
}

// Instruction is one compiled abstract-machine instruction. Operand is one
// of: RegAddr, RegAtom, RegFunctor or RegPair (get/put family), Addr,
// Functor, Atom, int (list/builtin arity or label target), a *Clause
// pointer (jump/try targets), or nil.
type Instruction struct {
	Op      Opcode
	Operand interface{}
}

func (i Instruction) String() string {
	if i.Operand == nil {
		return i.Op.String()
	}
	return fmt.Sprintf("%s(%v)", i.Op, i.Operand)
}

// Code is a flat instruction stream belonging to one compiled clause.
type Code []Instruction
