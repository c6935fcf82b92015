// Package asm recognizes x86-64 assembly source lines (Intel syntax) with
// heuristic pattern rules. It is deliberately not a disassembler: lines that
// match no rule produce no events, and operand text is matched structurally
// rather than decoded.
package asm

import (
	"regexp"
	"strconv"
	"strings"
)

// EventKind classifies a recognized instruction line.
type EventKind int

const (
	EvLabel EventKind = iota
	EvStackAlloc
	EvPush
	EvCall
	EvMov
	EvLea
	EvXor
	EvArith
)

// Event is one classified instruction line. Fields are populated per kind:
// Name for labels and call targets, Size for stack allocations, Dst/Src for
// mov/lea/xor, Op for arithmetic mnemonics.
type Event struct {
	Kind EventKind
	Name string
	Size int
	Dst  string
	Src  string
	Op   string
}

// StackRef is one occurrence of a frame-base-relative memory operand,
// e.g. the "[rbp-8]" in "mov qword [rbp-8], 100".
type StackRef struct {
	Base     string // frame base register, lowercase
	Offset   int    // displacement magnitude in bytes
	Positive bool   // true for [base+N]
	Raw      string // matched operand text
}

// Recognizer rules in match order. Ordering matters: the stack allocation
// rule must see "sub rsp, N" before the generic arithmetic rule does.
var (
	reLabel = regexp.MustCompile(`^([A-Za-z_.$@?][\w.$@?]*):`)
	reAlloc = regexp.MustCompile(`(?i)^sub\s+(rsp|esp)\s*,\s*(0x[0-9a-fA-F]+|\d+)\b`)
	rePush  = regexp.MustCompile(`(?i)^push\s+([a-zA-Z][a-zA-Z0-9]*)\b`)
	reCall  = regexp.MustCompile(`(?i)^call\s+(\S+)`)
	reMov   = regexp.MustCompile(`(?i)^(mov[a-z]*)\s+(.+)$`)
	reLea   = regexp.MustCompile(`(?i)^lea\s+([a-zA-Z][a-zA-Z0-9]*)\s*,\s*(.+)$`)
	reXor   = regexp.MustCompile(`(?i)^xor\s+([^,]+),(.+)$`)
	reArith = regexp.MustCompile(`(?i)^(add|sub|inc|dec|and|or|shl|shr|imul)\b\s*(.*)$`)

	reStackRef = regexp.MustCompile(`(?i)\[\s*(rbp|ebp)\s*([+-])\s*(0x[0-9a-fA-F]+|\d+)\s*\]`)
	reSizeKw   = regexp.MustCompile(`(?i)\b(byte|word|dword|qword)\b`)
	reImm      = regexp.MustCompile(`^(?:0x[0-9a-fA-F]+|\d+)$`)
)

// stringOps are mnemonics and library primitives whose presence on a line
// marks the touched slot as a string buffer.
var stringOps = []string{
	"movsb", "movsw", "movsq", "stosb", "stosw", "stosd", "stosq",
	"strcpy", "strcat", "strncpy", "strncat", "lstrcpy", "lstrcat",
}

// Classify recognizes a single source line and returns its event, if any.
// Matching is best effort: unrecognized lines return ok=false and are not an
// error. Trailing comments are ignored for classification (but not for
// StackRefs, which scans the full line).
func Classify(line string) (Event, bool) {
	code := strings.TrimSpace(stripComment(line))
	if code == "" {
		return Event{}, false
	}

	if m := reLabel.FindStringSubmatch(code); m != nil {
		// Locally-scoped labels (".L2:") never start a new function.
		if strings.HasPrefix(m[1], ".") {
			return Event{}, false
		}
		return Event{Kind: EvLabel, Name: m[1]}, true
	}
	if m := reAlloc.FindStringSubmatch(code); m != nil {
		n, ok := ParseImmediate(m[2])
		if !ok {
			return Event{}, false
		}
		return Event{Kind: EvStackAlloc, Size: n}, true
	}
	if m := rePush.FindStringSubmatch(code); m != nil {
		reg := strings.ToLower(m[1])
		if !IsRegister(reg) {
			return Event{}, false
		}
		return Event{Kind: EvPush, Name: reg}, true
	}
	if m := reCall.FindStringSubmatch(code); m != nil {
		return Event{Kind: EvCall, Name: m[1]}, true
	}
	if m := reLea.FindStringSubmatch(code); m != nil {
		dst := strings.ToLower(m[1])
		if !IsRegister(dst) {
			return Event{}, false
		}
		return Event{Kind: EvLea, Dst: dst, Src: strings.TrimSpace(m[2])}, true
	}
	if m := reXor.FindStringSubmatch(code); m != nil {
		return Event{
			Kind: EvXor,
			Dst:  normalizeOperand(m[1]),
			Src:  normalizeOperand(m[2]),
		}, true
	}
	if m := reMov.FindStringSubmatch(code); m != nil {
		dst, src, ok := splitOperands(m[2])
		if !ok {
			return Event{}, false
		}
		return Event{Kind: EvMov, Dst: dst, Src: src}, true
	}
	if m := reArith.FindStringSubmatch(code); m != nil {
		op := strings.ToLower(m[1])
		dst, src, ok := splitOperands(m[2])
		if !ok {
			// inc/dec take a single operand.
			dst = normalizeOperand(m[2])
			if dst == "" {
				return Event{}, false
			}
		}
		return Event{Kind: EvArith, Op: op, Dst: dst, Src: src}, true
	}
	return Event{}, false
}

// StackRefs finds every frame-base-relative reference on the line, comments
// included. A single line may carry any number of them.
func StackRefs(line string) []StackRef {
	var refs []StackRef
	for _, m := range reStackRef.FindAllStringSubmatch(line, -1) {
		n, ok := ParseImmediate(m[3])
		if !ok {
			continue
		}
		refs = append(refs, StackRef{
			Base:     strings.ToLower(m[1]),
			Offset:   n,
			Positive: m[2] == "+",
			Raw:      m[0],
		})
	}
	return refs
}

// SizeKeyword returns the explicit operand-size keyword on the line, if any.
func SizeKeyword(line string) (string, bool) {
	m := reSizeKw.FindStringSubmatch(stripComment(line))
	if m == nil {
		return "", false
	}
	return strings.ToLower(m[1]), true
}

// MentionsStringOp reports whether the line names a known string copy or
// concatenation primitive.
func MentionsStringOp(line string) bool {
	lower := strings.ToLower(line)
	for _, op := range stringOps {
		if strings.Contains(lower, op) {
			return true
		}
	}
	return false
}

// IsImmediate reports whether operand text is a pure decimal or 0x hex
// literal.
func IsImmediate(s string) bool {
	return reImm.MatchString(strings.TrimSpace(s))
}

// ParseImmediate parses a decimal or 0x hex literal.
func ParseImmediate(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, err := strconv.ParseInt(s[2:], 16, 64)
		if err != nil {
			return 0, false
		}
		return int(v), true
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return int(v), true
}

// FirstStackRef returns the first frame-base reference inside a single
// operand, typically after splitting a mov into dst/src.
func FirstStackRef(operand string) (StackRef, bool) {
	refs := StackRefs(operand)
	if len(refs) == 0 {
		return StackRef{}, false
	}
	return refs[0], true
}

// splitOperands splits "dst, src" at the first comma outside brackets.
// Register operands are lowercased; memory and immediate operands keep their
// text.
func splitOperands(s string) (dst, src string, ok bool) {
	depth := 0
	for i, r := range s {
		switch r {
		case '[':
			depth++
		case ']':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				return normalizeOperand(s[:i]), normalizeOperand(s[i+1:]), true
			}
		}
	}
	return "", "", false
}

// normalizeOperand trims an operand and lowercases it when it is a bare
// register name, so sub-register aliasing can be resolved consistently.
func normalizeOperand(s string) string {
	s = strings.TrimSpace(s)
	if IsRegister(strings.ToLower(s)) {
		return strings.ToLower(s)
	}
	return s
}

// stripComment removes a trailing ";" comment.
func stripComment(line string) string {
	if i := strings.IndexByte(line, ';'); i >= 0 {
		return line[:i]
	}
	return line
}
