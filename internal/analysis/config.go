package analysis

// Constants for frame analysis heuristics
const (
	// ReturnAddressSize is the bytes the call instruction pushes
	ReturnAddressSize = 8

	// RegisterSaveSize is the bytes one pushed register occupies
	RegisterSaveSize = 8

	// AlignmentBoundary is the required stack alignment in bytes
	AlignmentBoundary = 16

	// SingleUseThreshold marks slots worth promoting to a register
	SingleUseThreshold = 1

	// RandomAccessJump is the offset distance that counts as a non-local jump
	RandomAccessJump = 64

	// MinAccessesForPattern is the minimum access count before access-pattern
	// heuristics apply
	MinAccessesForPattern = 3

	// LargeStackThreshold is the stack size above which heap allocation is
	// suggested
	LargeStackThreshold = 4096
)

// Config is the read-only configuration for one analysis pass.
type Config struct {
	// UnsafeFunctions is matched case-insensitively as substrings against a
	// slot's recorded callee usage.
	UnsafeFunctions []string

	SingleUseThreshold    int
	RandomAccessJump      int
	MinAccessesForPattern int
	LargeStackThreshold   int
	AlignmentBoundary     int
	ReturnAddressSize     int
	RegisterSaveSize      int
}

// DefaultConfig returns the stock thresholds and the builtin denylist of
// overflow-prone library calls.
func DefaultConfig() *Config {
	return &Config{
		UnsafeFunctions: []string{
			"strcpy", "strcat", "sprintf", "vsprintf",
			"gets", "scanf", "sscanf",
			"lstrcpy", "lstrcat",
			"wcscpy", "wcscat", "stpcpy",
		},
		SingleUseThreshold:    SingleUseThreshold,
		RandomAccessJump:      RandomAccessJump,
		MinAccessesForPattern: MinAccessesForPattern,
		LargeStackThreshold:   LargeStackThreshold,
		AlignmentBoundary:     AlignmentBoundary,
		ReturnAddressSize:     ReturnAddressSize,
		RegisterSaveSize:      RegisterSaveSize,
	}
}
