package analysis

import (
	"sort"

	"framescope/internal/asm"
)

// frameBuilder accumulates the model for the function currently being
// scanned. One builder exists per function; it is discarded after sealing.
type frameBuilder struct {
	fn *FunctionModel

	// pointers tracks registers known to hold the address of a stack slot,
	// recorded by lea. Keyed by the 64-bit parent name. Informational for
	// value resolution, but required to attribute callee names to slots.
	pointers map[string]int
}

func newFrameBuilder(name string, startLine int) *frameBuilder {
	return &frameBuilder{
		fn: &FunctionModel{
			Name:      name,
			Variables: make(map[int]*Variable),
			Registers: make(map[string]*RegisterUsage),
			StartLine: startLine,
		},
		pointers: make(map[string]int),
	}
}

// processLine consumes one source line and returns the stack offsets it
// recorded, in match order. Lines that match nothing are skipped silently.
func (b *frameBuilder) processLine(line string, lineNo int) []int {
	ev, classified := asm.Classify(line)

	// Reference bookkeeping runs first: a store's destination slot must
	// already exist when the event handlers attribute call provenance to it.
	recorded := b.recordStackRefs(line, lineNo, ev, classified)

	if classified {
		switch ev.Kind {
		case asm.EvStackAlloc:
			// First allocation wins; later adjustments are ignored.
			if b.fn.StackSize == 0 {
				b.fn.StackSize = ev.Size
			}
		case asm.EvPush:
			b.fn.SavedRegs = append(b.fn.SavedRegs, ev.Name)
		case asm.EvCall:
			b.recordCall(ev.Name, lineNo)
		case asm.EvMov:
			b.recordMov(ev, lineNo)
		case asm.EvLea:
			b.recordLea(ev, lineNo)
		case asm.EvXor:
			b.recordXor(ev, lineNo)
		case asm.EvArith:
			b.recordArith(ev, lineNo)
		}
	}
	return recorded
}

// setReg appends an operation to a register's history. Writing a
// sub-register also writes an independent copy to its 64-bit parent; the
// reverse never happens.
func (b *frameBuilder) setReg(name string, op RegisterOp) {
	b.appendOp(name, op)
	if parent := asm.Parent(name); parent != name {
		b.appendOp(parent, op)
		delete(b.pointers, parent)
	}
	delete(b.pointers, name)
}

func (b *frameBuilder) appendOp(name string, op RegisterOp) {
	usage := b.fn.Registers[name]
	if usage == nil {
		usage = &RegisterUsage{}
		b.fn.Registers[name] = usage
	}
	usage.Ops = append(usage.Ops, op)
}

// latestOp resolves a register's most recent operation, falling back to the
// 64-bit parent when the exact alias has no history.
func (b *frameBuilder) latestOp(name string) *RegisterOp {
	if op := b.fn.Registers[name].Latest(); op != nil {
		return op
	}
	if parent := asm.Parent(name); parent != name {
		return b.fn.Registers[parent].Latest()
	}
	return nil
}

// recordCall marks the call, stores the call result in the return register,
// and credits the callee to every slot whose address is currently held in a
// register.
func (b *frameBuilder) recordCall(target string, lineNo int) {
	b.fn.HasCalls = true
	op := RegisterOp{Kind: OpCall, Line: lineNo, Raw: target, Display: target}

	// Slot attribution must come first: the rax write below clears any
	// pointer rax held. Sorted for deterministic usage ordering.
	regs := make([]string, 0, len(b.pointers))
	for reg := range b.pointers {
		regs = append(regs, reg)
	}
	sort.Strings(regs)
	for _, reg := range regs {
		off := b.pointers[reg]
		b.addUsage(off, target)
		// A buffer handed to a string primitive is treated as a string slot.
		if asm.MentionsStringOp(target) {
			if v, ok := b.fn.Variables[off]; ok {
				v.Type = TypeString
			}
		}
	}

	b.setReg("rax", op)
}

// recordMov resolves the symbolic value flowing through a move.
func (b *frameBuilder) recordMov(ev asm.Event, lineNo int) {
	// Store to a stack slot: propagate call provenance from the source
	// register into the slot's usage list.
	if ref, ok := asm.FirstStackRef(ev.Dst); ok {
		if ref.Positive || ref.Offset <= 0 {
			return // tampering candidate, handled by the reference scan
		}
		if asm.IsRegister(ev.Src) {
			if latest := b.latestOp(ev.Src); latest != nil && latest.Kind == OpCall {
				b.addUsage(ref.Offset, latest.Display)
			}
		}
		return
	}

	if !asm.IsRegister(ev.Dst) {
		return
	}

	switch {
	case hasStackRef(ev.Src):
		ref, _ := asm.FirstStackRef(ev.Src)
		b.setReg(ev.Dst, RegisterOp{Kind: OpStackLoad, Line: lineNo, Raw: ev.Src, Display: ref.Raw})
	case asm.IsImmediate(ev.Src):
		b.setReg(ev.Dst, RegisterOp{Kind: OpImmediate, Line: lineNo, Raw: ev.Src, Display: ev.Src})
	case asm.IsRegister(ev.Src):
		if latest := b.latestOp(ev.Src); latest != nil && latest.Kind == OpCall {
			// Value originated from a call; keep the callee name attached
			// through the move chain.
			b.setReg(ev.Dst, RegisterOp{Kind: OpCall, Line: lineNo, Raw: ev.Src, Display: latest.Display})
			return
		}
		b.setReg(ev.Dst, RegisterOp{Kind: OpRegMove, Line: lineNo, Raw: ev.Src, Display: ev.Src})
	default:
		b.setReg(ev.Dst, RegisterOp{Kind: OpMov, Line: lineNo, Raw: ev.Src, Display: ev.Src})
	}
}

// recordLea stores the effective address and, for frame slots, remembers
// that the register now points at that slot.
func (b *frameBuilder) recordLea(ev asm.Event, lineNo int) {
	ref, ok := asm.FirstStackRef(ev.Src)
	if !ok {
		b.setReg(ev.Dst, RegisterOp{Kind: OpLea, Line: lineNo, Raw: ev.Src, Display: ev.Src})
		return
	}
	b.setReg(ev.Dst, RegisterOp{Kind: OpLea, Line: lineNo, Raw: ev.Src, Display: "&" + ref.Raw})
	if !ref.Positive && ref.Offset > 0 {
		b.pointers[asm.Parent(ev.Dst)] = ref.Offset
	}
}

// recordXor distinguishes the self-xor zeroing idiom from a general xor.
func (b *frameBuilder) recordXor(ev asm.Event, lineNo int) {
	if !asm.IsRegister(ev.Dst) {
		return
	}
	display := ev.Dst + " ^ " + ev.Src
	if asm.SameParent(ev.Dst, ev.Src) {
		display = "0"
	}
	b.setReg(ev.Dst, RegisterOp{Kind: OpXor, Line: lineNo, Raw: ev.Src, Display: display})
}

var arithKinds = map[string]OpKind{
	"add": OpAdd, "sub": OpSub, "inc": OpInc, "dec": OpDec,
	"and": OpAnd, "or": OpOr, "shl": OpShl, "shr": OpShr, "imul": OpImul,
}

var arithSymbols = map[string]string{
	"add": "+", "sub": "-", "and": "&", "or": "|",
	"shl": "<<", "shr": ">>", "imul": "*",
}

func (b *frameBuilder) recordArith(ev asm.Event, lineNo int) {
	if !asm.IsRegister(ev.Dst) {
		return
	}
	kind, ok := arithKinds[ev.Op]
	if !ok {
		return
	}
	var display string
	switch ev.Op {
	case "inc":
		display = ev.Dst + " + 1"
	case "dec":
		display = ev.Dst + " - 1"
	default:
		display = ev.Dst + " " + arithSymbols[ev.Op] + " " + ev.Src
	}
	b.setReg(ev.Dst, RegisterOp{Kind: kind, Line: lineNo, Raw: ev.Src, Display: display})
}

// recordStackRefs handles every frame-base reference on the line: variable
// creation, access bookkeeping, type inference, and tampering candidates.
// Returns the slot offsets recorded, for the per-line offset map.
func (b *frameBuilder) recordStackRefs(line string, lineNo int, ev asm.Event, classified bool) []int {
	refs := asm.StackRefs(line)
	if len(refs) == 0 {
		return nil
	}

	sizeKw, hasSize := asm.SizeKeyword(line)
	isString := asm.MentionsStringOp(line)

	var recorded []int
	for _, ref := range refs {
		// Positive displacements reach above the frame base into the saved
		// return address; never a variable.
		if ref.Positive || ref.Offset <= 0 {
			b.fn.tampers = append(b.fn.tampers, tamperAccess{Line: lineNo, Raw: ref.Raw})
			continue
		}

		v := b.variableAt(ref.Offset, lineNo)
		v.AccessCount++
		b.fn.AccessOrder = append(b.fn.AccessOrder, ref.Offset)
		recorded = append(recorded, ref.Offset)

		if hasSize {
			v.Type = keywordType(sizeKw)
		}
		if isString {
			v.Type = TypeString
		}

		// Read and write roles are checked independently; a single
		// instruction may in principle hold both.
		if classified {
			if refMatchesOperand(ev.Dst, ref) && ev.Kind == asm.EvMov {
				v.Writes = append(v.Writes, lineNo)
			}
			if refMatchesOperand(ev.Src, ref) && (ev.Kind == asm.EvMov || ev.Kind == asm.EvLea) {
				v.Reads = append(v.Reads, lineNo)
			}
		}
	}
	return recorded
}

func (b *frameBuilder) variableAt(offset, lineNo int) *Variable {
	if v, ok := b.fn.Variables[offset]; ok {
		return v
	}
	v := &Variable{Offset: offset, Type: TypeUnknown, DefLine: lineNo}
	b.fn.Variables[offset] = v
	return v
}

// addUsage appends a callee name to a slot's usage list, de-duplicated,
// keeping first-seen order. Unknown offsets are ignored.
func (b *frameBuilder) addUsage(offset int, callee string) {
	v, ok := b.fn.Variables[offset]
	if !ok {
		return
	}
	for _, existing := range v.Usage {
		if existing == callee {
			return
		}
	}
	v.Usage = append(v.Usage, callee)
}

// seal finalizes the model at the function's last line. The returned model
// is not mutated afterwards except by the diagnostics pass.
func (b *frameBuilder) seal(endLine int) *FunctionModel {
	b.fn.EndLine = endLine
	return b.fn
}

func keywordType(kw string) VarType {
	switch kw {
	case "byte":
		return TypeByte
	case "word":
		return TypeWord
	case "dword":
		return TypeDword
	case "qword":
		return TypeQword
	}
	return TypeUnknown
}

func hasStackRef(operand string) bool {
	_, ok := asm.FirstStackRef(operand)
	return ok
}

func refMatchesOperand(operand string, ref asm.StackRef) bool {
	or, ok := asm.FirstStackRef(operand)
	return ok && or.Offset == ref.Offset && or.Positive == ref.Positive
}
