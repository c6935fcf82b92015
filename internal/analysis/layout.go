package analysis

import "encoding/json"

// RangeKind tags a layout range as occupied or empty.
type RangeKind int

const (
	RangeVariable RangeKind = iota
	RangeGap
)

func (k RangeKind) String() string {
	if k == RangeGap {
		return "gap"
	}
	return "variable"
}

func (k RangeKind) MarshalJSON() ([]byte, error) { return json.Marshal(k.String()) }

// Range is one contiguous byte span of the frame, render-ready. Offsets
// count bytes below the frame base; a variable range starts at its slot
// offset and runs for its type's size. Gaps carry no flags.
type Range struct {
	Kind    RangeKind `json:"kind"`
	Offset  int       `json:"offset"`
	Size    int       `json:"size"`
	Type    VarType   `json:"type,omitempty"`
	Usage   []string  `json:"usage,omitempty"`
	DefLine int       `json:"def_line,omitempty"`

	Unsafe        bool `json:"unsafe,omitempty"`
	Uninitialized bool `json:"uninitialized,omitempty"`
	OutOfBounds   bool `json:"out_of_bounds,omitempty"`
}

// ComputeLayout converts the unordered variable set into an ordered,
// gap-filled partition of [0, stack_size), cross-referencing the function's
// findings for per-range flags. Overlapping slots are not validated; an
// overlap simply yields a non-positive gap, which is suppressed.
func ComputeLayout(fn *FunctionModel, cfg *Config) []Range {
	offsets := fn.SortedOffsets()
	if len(offsets) == 0 {
		return nil
	}

	oob := make(map[int]bool)
	uninit := make(map[int]bool)
	for _, f := range fn.Errors {
		switch f.Kind {
		case FindingOutOfBounds:
			oob[f.Offset] = true
		case FindingUninitialized:
			uninit[f.Offset] = true
		}
	}

	var ranges []Range
	if offsets[0] > 0 {
		ranges = append(ranges, Range{Kind: RangeGap, Offset: 0, Size: offsets[0]})
	}

	for i, off := range offsets {
		v := fn.Variables[off]
		size := v.Type.Size()
		ranges = append(ranges, Range{
			Kind:          RangeVariable,
			Offset:        off,
			Size:          size,
			Type:          v.Type,
			Usage:         v.Usage,
			DefLine:       v.DefLine,
			Unsafe:        IsUnsafe(v, cfg),
			Uninitialized: uninit[off],
			OutOfBounds:   oob[off],
		})

		span := fn.StackSize - off
		if i+1 < len(offsets) {
			span = offsets[i+1] - off
		}
		if gap := span - size; gap > 0 {
			ranges = append(ranges, Range{Kind: RangeGap, Offset: off + size, Size: gap})
		}
	}
	return ranges
}
