// Package analysis reconstructs per-function stack frames from x86-64
// assembly source text. It tracks symbolic register and stack-slot state
// while walking a function's lines, then derives static findings
// (out-of-bounds access, uninitialized reads, return-address tampering)
// and advisory hints from the completed model.
package analysis

import (
	"encoding/json"
	"sort"
)

// OpKind classifies one recorded register operation.
type OpKind int

const (
	OpCall OpKind = iota
	OpMov
	OpRegMove
	OpStackLoad
	OpImmediate
	OpLea
	OpXor
	OpAdd
	OpSub
	OpInc
	OpDec
	OpAnd
	OpOr
	OpShl
	OpShr
	OpImul
)

var opKindNames = map[OpKind]string{
	OpCall:      "call",
	OpMov:       "mov",
	OpRegMove:   "reg_move",
	OpStackLoad: "stack_load",
	OpImmediate: "immediate",
	OpLea:       "lea",
	OpXor:       "xor",
	OpAdd:       "add",
	OpSub:       "sub",
	OpInc:       "inc",
	OpDec:       "dec",
	OpAnd:       "and",
	OpOr:        "or",
	OpShl:       "shl",
	OpShr:       "shr",
	OpImul:      "imul",
}

func (k OpKind) String() string { return opKindNames[k] }

func (k OpKind) MarshalJSON() ([]byte, error) { return json.Marshal(k.String()) }

// RegisterOp is one operation recorded against a register: what happened,
// where, and a display rendering of the value or expression. For OpCall the
// display carries the called function's name, which is how call provenance
// follows a value through later moves into stack slots.
type RegisterOp struct {
	Kind    OpKind `json:"kind"`
	Line    int    `json:"line"`
	Raw     string `json:"raw"`
	Display string `json:"display"`
}

// RegisterUsage is the ordered operation history for one register name.
type RegisterUsage struct {
	Ops []RegisterOp `json:"ops"`
}

// Latest returns the most recent operation, or nil if none was recorded.
func (u *RegisterUsage) Latest() *RegisterOp {
	if u == nil || len(u.Ops) == 0 {
		return nil
	}
	return &u.Ops[len(u.Ops)-1]
}

// VarType is the inferred storage type of a stack slot.
type VarType int

const (
	TypeUnknown VarType = iota
	TypeByte
	TypeWord
	TypeDword
	TypeQword
	TypeString
)

var varTypeNames = map[VarType]string{
	TypeUnknown: "unknown",
	TypeByte:    "byte",
	TypeWord:    "word",
	TypeDword:   "dword",
	TypeQword:   "qword",
	TypeString:  "string",
}

func (t VarType) String() string { return varTypeNames[t] }

func (t VarType) MarshalJSON() ([]byte, error) { return json.Marshal(t.String()) }

// Size returns the occupied byte size for layout purposes. Unknown slots
// default to pointer width; string buffers use a 32-byte heuristic.
func (t VarType) Size() int {
	switch t {
	case TypeByte:
		return 1
	case TypeWord:
		return 2
	case TypeDword:
		return 4
	case TypeQword:
		return 8
	case TypeString:
		return 32
	default:
		return 8
	}
}

// Variable is one stack slot, keyed by its byte offset below the frame base.
type Variable struct {
	Offset      int      `json:"offset"`
	Type        VarType  `json:"type"`
	Usage       []string `json:"usage,omitempty"` // de-duplicated callee names
	DefLine     int      `json:"def_line"`        // first line touching the slot
	Reads       []int    `json:"reads,omitempty"`
	Writes      []int    `json:"writes,omitempty"`
	AccessCount int      `json:"access_count"`
}

// FindingKind classifies a static defect.
type FindingKind int

const (
	FindingOutOfBounds FindingKind = iota
	FindingUninitialized
	FindingReturnTamper
)

var findingKindNames = map[FindingKind]string{
	FindingOutOfBounds:   "out_of_bounds",
	FindingUninitialized: "uninitialized",
	FindingReturnTamper:  "return_tamper",
}

func (k FindingKind) String() string { return findingKindNames[k] }

func (k FindingKind) MarshalJSON() ([]byte, error) { return json.Marshal(k.String()) }

// Finding is a structured diagnostic attached to a function. Offset is zero
// for kinds that have no slot (return tampering).
type Finding struct {
	Kind    FindingKind `json:"kind"`
	Line    int         `json:"line"`
	Offset  int         `json:"offset,omitempty"`
	Message string      `json:"message"`
}

// HintKind classifies an advisory, non-error suggestion.
type HintKind int

const (
	HintSingleUse HintKind = iota
	HintRandomAccess
	HintLargeStack
)

var hintKindNames = map[HintKind]string{
	HintSingleUse:    "single_use",
	HintRandomAccess: "random_access",
	HintLargeStack:   "large_stack",
}

func (k HintKind) String() string { return hintKindNames[k] }

func (k HintKind) MarshalJSON() ([]byte, error) { return json.Marshal(k.String()) }

// Hint is an advisory suggestion. Offset is zero for function-level hints.
type Hint struct {
	Kind    HintKind `json:"kind"`
	Offset  int      `json:"offset,omitempty"`
	Message string   `json:"message"`
}

// tamperAccess is a stack reference flagged at parse time as a
// return-address tampering candidate (positive displacement or non-positive
// computed offset). Candidates become findings when the model is sealed.
type tamperAccess struct {
	Line int
	Raw  string
}

// FunctionModel is the completed analysis of one function. It is built
// incrementally while scanning and never mutated after diagnostics run.
type FunctionModel struct {
	Name      string                    `json:"name"`
	StackSize int                       `json:"stack_size"`
	Variables map[int]*Variable         `json:"variables"`
	SavedRegs []string                  `json:"saved_regs,omitempty"`
	Registers map[string]*RegisterUsage `json:"register_usage,omitempty"`

	// AccessOrder holds one entry per syntactic stack access, in line order.
	AccessOrder []int `json:"access_order,omitempty"`

	Errors []Finding `json:"errors,omitempty"`
	Hints  []Hint    `json:"hints,omitempty"`

	// Misaligned is set once per function: true when return address plus
	// saved registers plus stack_size is not a multiple of the alignment
	// boundary. FrameBytes is that committed total.
	Misaligned bool `json:"misaligned"`
	FrameBytes int  `json:"frame_bytes"`

	HasCalls  bool `json:"has_calls"`
	StartLine int  `json:"start_line"`
	EndLine   int  `json:"end_line"`

	tampers []tamperAccess
}

// SortedOffsets returns the variable offsets in ascending order.
func (fn *FunctionModel) SortedOffsets() []int {
	offs := make([]int, 0, len(fn.Variables))
	for off := range fn.Variables {
		offs = append(offs, off)
	}
	sort.Ints(offs)
	return offs
}
