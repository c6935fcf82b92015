package analysis

import (
	"fmt"
	"strings"
)

// diagnose enriches a sealed function model with findings and hints. It is a
// pure post-pass over the model; source text is never consulted again.
func diagnose(fn *FunctionModel, cfg *Config) {
	offsets := fn.SortedOffsets()

	// Out-of-bounds: any recorded slot below the allocated frame bottom.
	for _, off := range offsets {
		v := fn.Variables[off]
		if fn.StackSize > 0 && off > fn.StackSize {
			fn.Errors = append(fn.Errors, Finding{
				Kind:    FindingOutOfBounds,
				Line:    v.DefLine,
				Offset:  off,
				Message: fmt.Sprintf("offset %d is outside the %d-byte stack allocation", off, fn.StackSize),
			})
		}
	}

	// Return tampering candidates flagged during parsing.
	for _, t := range fn.tampers {
		fn.Errors = append(fn.Errors, Finding{
			Kind:    FindingReturnTamper,
			Line:    t.Line,
			Message: "access above the frame base can overwrite the saved return address",
		})
	}

	// Uninitialized: read at least once, never written.
	for _, off := range offsets {
		v := fn.Variables[off]
		if len(v.Reads) > 0 && len(v.Writes) == 0 {
			fn.Errors = append(fn.Errors, Finding{
				Kind:    FindingUninitialized,
				Line:    v.Reads[0],
				Offset:  off,
				Message: fmt.Sprintf("slot at offset %d is read on line %d but never written", off, v.Reads[0]),
			})
		}
	}

	// Alignment: checked once per function, pass/fail.
	fn.FrameBytes = cfg.ReturnAddressSize + cfg.RegisterSaveSize*len(fn.SavedRegs) + fn.StackSize
	fn.Misaligned = fn.FrameBytes%cfg.AlignmentBoundary != 0

	// Hints.
	for _, off := range offsets {
		v := fn.Variables[off]
		if v.AccessCount == cfg.SingleUseThreshold {
			fn.Hints = append(fn.Hints, Hint{
				Kind:    HintSingleUse,
				Offset:  off,
				Message: fmt.Sprintf("slot at offset %d is accessed once; a register would avoid the stack round trip", off),
			})
		}
	}

	if len(fn.AccessOrder) > cfg.MinAccessesForPattern {
		for i := 1; i < len(fn.AccessOrder); i++ {
			jump := fn.AccessOrder[i] - fn.AccessOrder[i-1]
			if jump < 0 {
				jump = -jump
			}
			if jump > cfg.RandomAccessJump {
				fn.Hints = append(fn.Hints, Hint{
					Kind:    HintRandomAccess,
					Message: "stack accesses jump across the frame; grouping related slots improves locality",
				})
				break
			}
		}
	}

	if fn.StackSize > cfg.LargeStackThreshold {
		fn.Hints = append(fn.Hints, Hint{
			Kind:    HintLargeStack,
			Message: fmt.Sprintf("stack allocation of %s is large; consider the heap", humanSize(fn.StackSize)),
		})
	}
}

// IsUnsafe reports whether any of the slot's recorded callees matches the
// denylist (case-insensitive substring). The flag persists for the
// function's lifetime once a dangerous callee touched the slot.
func IsUnsafe(v *Variable, cfg *Config) bool {
	for _, used := range v.Usage {
		lower := strings.ToLower(used)
		for _, bad := range cfg.UnsafeFunctions {
			if strings.Contains(lower, strings.ToLower(bad)) {
				return true
			}
		}
	}
	return false
}

// humanSize renders byte counts, switching to kilobytes from 1024 up.
func humanSize(n int) string {
	if n >= 1024 {
		return fmt.Sprintf("%.1f KB", float64(n)/1024)
	}
	return fmt.Sprintf("%d bytes", n)
}
