package asm

// parent64 maps every sub-register name to its 64-bit architectural parent.
// Legacy high-byte registers (ah..bh) alias the same parent as their low
// counterparts.
var parent64 = map[string]string{
	// rax family
	"eax": "rax", "ax": "rax", "al": "rax", "ah": "rax",
	// rbx family
	"ebx": "rbx", "bx": "rbx", "bl": "rbx", "bh": "rbx",
	// rcx family
	"ecx": "rcx", "cx": "rcx", "cl": "rcx", "ch": "rcx",
	// rdx family
	"edx": "rdx", "dx": "rdx", "dl": "rdx", "dh": "rdx",
	// rsi family
	"esi": "rsi", "si": "rsi", "sil": "rsi",
	// rdi family
	"edi": "rdi", "di": "rdi", "dil": "rdi",
	// rbp family
	"ebp": "rbp", "bp": "rbp", "bpl": "rbp",
	// rsp family
	"esp": "rsp", "sp": "rsp", "spl": "rsp",
	// r8-r15 families
	"r8d": "r8", "r8w": "r8", "r8b": "r8",
	"r9d": "r9", "r9w": "r9", "r9b": "r9",
	"r10d": "r10", "r10w": "r10", "r10b": "r10",
	"r11d": "r11", "r11w": "r11", "r11b": "r11",
	"r12d": "r12", "r12w": "r12", "r12b": "r12",
	"r13d": "r13", "r13w": "r13", "r13b": "r13",
	"r14d": "r14", "r14w": "r14", "r14b": "r14",
	"r15d": "r15", "r15w": "r15", "r15b": "r15",
}

// gp64 is the set of 64-bit general purpose register names.
var gp64 = map[string]bool{
	"rax": true, "rbx": true, "rcx": true, "rdx": true,
	"rsi": true, "rdi": true, "rbp": true, "rsp": true,
	"r8": true, "r9": true, "r10": true, "r11": true,
	"r12": true, "r13": true, "r14": true, "r15": true,
}

// Parent returns the 64-bit parent register for a sub-register name.
// A 64-bit name maps to itself; unknown names are returned unchanged so
// callers can treat them as opaque operands.
func Parent(reg string) string {
	if p, ok := parent64[reg]; ok {
		return p
	}
	return reg
}

// IsRegister reports whether name is a known general purpose register
// (64-bit or any sub-register alias).
func IsRegister(name string) bool {
	if gp64[name] {
		return true
	}
	_, ok := parent64[name]
	return ok
}

// SameParent reports whether two register names alias the same 64-bit
// architectural register. Used to recognize the xor reg, reg zeroing idiom
// even when the operands are spelled at different widths.
func SameParent(a, b string) bool {
	return IsRegister(a) && IsRegister(b) && Parent(a) == Parent(b)
}
