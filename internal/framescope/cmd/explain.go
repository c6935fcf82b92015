package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"framescope/internal/framescope/styles"
)

// findingDocs holds the built-in markdown documentation per finding and
// hint kind.
var findingDocs = map[string]string{
	"out_of_bounds": `# out_of_bounds

A stack slot is accessed at an offset **larger than the allocated stack
size**. The access lands below the space reserved by the allocation
instruction and can clobber other frames.

` + "```asm\nsub rsp, 16\nlea rcx, [rbp-32]   ; 32 > 16\n```" + `

Fix: grow the allocation or correct the displacement.`,

	"uninitialized": `# uninitialized

A stack slot is **read before any write**. Its contents are whatever the
previous frame left behind.

` + "```asm\nsub rsp, 16\nmov rax, [rbp-8]    ; no prior store to [rbp-8]\n```" + `

Fix: store to the slot before the first load.`,

	"return_tamper": `# return_tamper

An access uses a **positive displacement from the frame base** (or a
non-positive offset), reaching the saved return address or the caller's
frame.

` + "```asm\nmov rax, [rbp+8]    ; saved return address\n```" + `

Legitimate code rarely does this; it usually indicates a bug or an exploit
primitive.`,

	"single_use": `# single_use

A slot is accessed exactly once. Keeping the value in a register avoids the
stack round trip entirely.`,

	"random_access": `# random_access

Consecutive stack accesses jump more than 64 bytes apart. Grouping related
slots improves cache locality.`,

	"large_stack": `# large_stack

The function allocates more than 4 KB of stack. Large buffers belong on the
heap; oversized frames risk guard-page overshoot.`,

	"misaligned": `# misaligned

Return address (8 bytes) plus saved registers plus the stack allocation is
not a multiple of 16. Calls made from this frame violate the x86-64 ABI
alignment contract and can crash SSE code.`,
}

var explainCmd = &cobra.Command{
	Use:   "explain [finding]",
	Short: "Explain a finding or hint kind",
	Long:  "Render the built-in documentation for a finding or hint kind in the terminal.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			kinds := make([]string, 0, len(findingDocs))
			for kind := range findingDocs {
				kinds = append(kinds, kind)
			}
			sort.Strings(kinds)
			fmt.Fprintf(cmd.OutOrStdout(), "known kinds: %s\n", strings.Join(kinds, ", "))
			return nil
		}

		doc, ok := findingDocs[strings.ToLower(args[0])]
		if !ok {
			return fmt.Errorf("unknown finding kind %q", args[0])
		}

		width := 80
		if w, _, err := term.GetSize(os.Stdout.Fd()); err == nil && w > 0 && w < width {
			width = w
		}
		renderer := styles.GetMarkdownRenderer(width)
		out, err := renderer.Render(doc)
		if err != nil {
			// Fall back to the raw markdown.
			fmt.Fprintln(cmd.OutOrStdout(), doc)
			return nil
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(explainCmd)
}
