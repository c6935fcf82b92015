package analysis

import (
	"strings"

	"framescope/internal/asm"
)

// Result is the immutable product of one analysis pass.
type Result struct {
	// Functions maps function name to its completed model. Only functions
	// that allocate stack space appear.
	Functions map[string]*FunctionModel

	// Order lists function names in source-declaration order. A repeated
	// label overwrites its model but keeps its original position.
	Order []string

	// LineOffsets maps a 1-indexed source line to the stack offsets it
	// references, used by callers to compute active offsets for a cursor.
	LineOffsets map[int][]int
}

// Analyze runs one full synchronous pass over the buffer. It is a pure
// function over the line slice and configuration: identical input yields a
// deeply equal Result. A nil cfg uses DefaultConfig. There is no error
// return; arbitrary or malformed text produces a best-effort result.
func Analyze(lines []string, cfg *Config) *Result {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	res := &Result{
		Functions:   make(map[string]*FunctionModel),
		LineOffsets: make(map[int][]int),
	}

	var current *frameBuilder
	seal := func(endLine int) {
		if current == nil {
			return
		}
		fn := current.seal(endLine)
		current = nil
		diagnose(fn, cfg)
		if fn.StackSize == 0 {
			return // functions that never allocate are not reported
		}
		if _, seen := res.Functions[fn.Name]; !seen {
			res.Order = append(res.Order, fn.Name)
		}
		res.Functions[fn.Name] = fn
	}

	for i, line := range lines {
		lineNo := i + 1
		if ev, ok := asm.Classify(line); ok && ev.Kind == asm.EvLabel {
			seal(lineNo - 1)
			current = newFrameBuilder(ev.Name, lineNo)
			continue
		}
		if current == nil {
			// No function yet; stack accesses here have nothing to attach to.
			continue
		}
		if offsets := current.processLine(line, lineNo); len(offsets) > 0 {
			res.LineOffsets[lineNo] = append(res.LineOffsets[lineNo], offsets...)
		}
	}
	seal(len(lines))
	return res
}

// AnalyzeText is Analyze over a whole buffer, splitting on newlines.
func AnalyzeText(text string, cfg *Config) *Result {
	return Analyze(strings.Split(text, "\n"), cfg)
}

// Function looks up a model by name. Missing names are an empty result, not
// an error.
func (r *Result) Function(name string) (*FunctionModel, bool) {
	fn, ok := r.Functions[name]
	return fn, ok
}

// FunctionsInOrder returns the models in source-declaration order.
func (r *Result) FunctionsInOrder() []*FunctionModel {
	out := make([]*FunctionModel, 0, len(r.Order))
	for _, name := range r.Order {
		out = append(out, r.Functions[name])
	}
	return out
}

// OffsetsAt returns the stack offsets referenced on the given line: the
// active offsets for a cursor position. Unknown lines yield nil.
func (r *Result) OffsetsAt(line int) []int {
	return r.LineOffsets[line]
}
