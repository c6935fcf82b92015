package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/charmbracelet/x/term"
	"github.com/ianlancetaylor/demangle"
	"github.com/spf13/cobra"

	"framescope/internal/analysis"
	"framescope/internal/framescope/log"
	"framescope/internal/ui/colorize"
)

var (
	flagJSON     bool
	flagLine     int
	flagFunction string
	flagSource   bool
	flagUnsafe   []string
	flagVerbose  bool
	flagLogFile  string
)

// JSONOutput is the machine-readable report, used for regression testing.
type JSONOutput struct {
	File      string            `json:"file"`
	Functions []*FunctionReport `json:"functions"`
}

// FunctionReport wraps a function model with its render-ready layout and a
// demangled display name.
type FunctionReport struct {
	*analysis.FunctionModel
	DisplayName string           `json:"display_name,omitempty"`
	Layout      []analysis.Range `json:"layout,omitempty"`
}

var rootCmd = &cobra.Command{
	Use:   "framescope [file]",
	Short: "Static stack-frame analysis for x86-64 assembly source",
	Long: `framescope reconstructs the stack frame of every function in an x86-64
assembly source file (Intel syntax): stack size, variable slots, saved
registers, and value flow through registers. It reports out-of-bounds
accesses, reads of never-written slots, return-address tampering, frame
misalignment, and optimization hints.

Pass "-" to read from stdin.`,
	Example: `
# Analyze a file and print the frame report
framescope prog.asm

# Machine-readable output
framescope --json prog.asm

# Which stack slots does line 14 touch?
framescope --line 14 prog.asm
  `,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log.Setup(flagLogFile, flagVerbose)
		return runAnalyze(cmd.OutOrStdout(), args[0])
	},
}

func init() {
	rootCmd.Flags().BoolVar(&flagJSON, "json", false, "Emit JSON instead of the text report")
	rootCmd.Flags().IntVar(&flagLine, "line", 0, "Print the stack offsets referenced on this line and exit")
	rootCmd.Flags().StringVar(&flagFunction, "function", "", "Restrict the report to one function")
	rootCmd.Flags().BoolVar(&flagSource, "source", false, "Include the highlighted source listing")
	rootCmd.Flags().StringSliceVar(&flagUnsafe, "unsafe", nil, "Extra unsafe-function substrings for the denylist")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flagLogFile, "log-file", "", "Append logs to this file instead of stderr")
	rootCmd.PersistentFlags().Bool("plain", false, "Plain output (skip styled help rendering)")
}

func runAnalyze(w io.Writer, path string) error {
	lines, err := readLines(path)
	if err != nil {
		return err
	}

	cfg := buildConfig()
	res := analysis.Analyze(lines, cfg)
	slog.Debug("analysis pass complete", "file", path, "functions", len(res.Functions))

	if flagLine > 0 {
		offsets := res.OffsetsAt(flagLine)
		if len(offsets) == 0 {
			fmt.Fprintf(w, "line %d references no stack slots\n", flagLine)
			return nil
		}
		fmt.Fprintf(w, "line %d: offsets %v\n", flagLine, offsets)
		return nil
	}

	reports := buildReports(res, cfg)
	if flagJSON {
		out := JSONOutput{File: path, Functions: reports}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	renderText(w, reports, lines)
	return nil
}

func buildConfig() *analysis.Config {
	cfg := analysis.DefaultConfig()
	cfg.UnsafeFunctions = append(cfg.UnsafeFunctions, flagUnsafe...)
	return cfg
}

func buildReports(res *analysis.Result, cfg *analysis.Config) []*FunctionReport {
	var reports []*FunctionReport
	for _, fn := range res.FunctionsInOrder() {
		if flagFunction != "" && fn.Name != flagFunction {
			continue
		}
		reports = append(reports, &FunctionReport{
			FunctionModel: fn,
			DisplayName:   displayName(fn.Name),
			Layout:        analysis.ComputeLayout(fn, cfg),
		})
	}
	return reports
}

// displayName demangles C++ labels for the report; plain names pass through.
func displayName(name string) string {
	if d := demangle.Filter(name); d != name {
		return d
	}
	return name
}

func readLines(path string) ([]string, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read source: %w", err)
	}
	return strings.Split(string(data), "\n"), nil
}

// Report styling
var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	hintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("117"))
	unsafeBadge  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	variableName = lipgloss.NewStyle().Foreground(lipgloss.Color("117"))
)

func renderText(w io.Writer, reports []*FunctionReport, lines []string) {
	if len(reports) == 0 {
		fmt.Fprintln(w, "no stack-allocating functions found")
		return
	}

	for _, r := range reports {
		fn := r.FunctionModel
		title := fn.Name
		if r.DisplayName != fn.Name {
			title = fmt.Sprintf("%s (%s)", r.DisplayName, fn.Name)
		}
		fmt.Fprintf(w, "%s  %s\n", headerStyle.Render(title),
			dimStyle.Render(fmt.Sprintf("lines %d-%d", fn.StartLine, fn.EndLine)))

		align := "aligned"
		if fn.Misaligned {
			align = warnStyle.Render(fmt.Sprintf("MISALIGNED (%d bytes, not a multiple of %d)",
				fn.FrameBytes, analysis.AlignmentBoundary))
		}
		fmt.Fprintf(w, "  stack %d bytes, frame %d bytes, %s\n", fn.StackSize, fn.FrameBytes, align)
		if len(fn.SavedRegs) > 0 {
			fmt.Fprintf(w, "  saved: %s\n", strings.Join(fn.SavedRegs, ", "))
		}

		renderLayout(w, r.Layout)
		renderFindings(w, fn)

		if flagSource && fn.StartLine >= 1 && fn.EndLine <= len(lines) {
			fmt.Fprintln(w)
			for i := fn.StartLine; i <= fn.EndLine; i++ {
				fmt.Fprintf(w, "  %s %s\n",
					dimStyle.Render(fmt.Sprintf("%4d", i)),
					colorize.Line(lines[i-1]))
			}
		}
		fmt.Fprintln(w)
	}
}

func renderLayout(w io.Writer, layout []analysis.Range) {
	if len(layout) == 0 {
		return
	}
	fmt.Fprintln(w, "  frame layout (bytes below base):")
	for _, rng := range layout {
		if rng.Kind == analysis.RangeGap {
			fmt.Fprintf(w, "    %s\n",
				dimStyle.Render(fmt.Sprintf("[%4d..%4d) gap %d bytes", rng.Offset, rng.Offset+rng.Size, rng.Size)))
			continue
		}
		var badges []string
		if rng.OutOfBounds {
			badges = append(badges, errorStyle.Render("out-of-bounds"))
		}
		if rng.Uninitialized {
			badges = append(badges, warnStyle.Render("uninitialized"))
		}
		if rng.Unsafe {
			badges = append(badges, unsafeBadge.Render("UNSAFE"))
		}
		detail := rng.Type.String()
		if len(rng.Usage) > 0 {
			detail += " ← " + strings.Join(rng.Usage, ", ")
		}
		fmt.Fprintf(w, "    [%4d..%4d) %s %s\n",
			rng.Offset, rng.Offset+rng.Size,
			variableName.Render(fmt.Sprintf("-%d %s", rng.Offset, detail)),
			strings.Join(badges, " "))
	}
}

func renderFindings(w io.Writer, fn *analysis.FunctionModel) {
	for _, f := range fn.Errors {
		fmt.Fprintf(w, "  %s line %d: %s\n", errorStyle.Render(f.Kind.String()), f.Line, f.Message)
	}
	for _, h := range fn.Hints {
		fmt.Fprintf(w, "  %s %s\n", hintStyle.Render(h.Kind.String()), h.Message)
	}
}

// Execute runs the root command, through fang unless output is piped or the
// caller asked for plain mode.
func Execute() {
	plain := false
	for _, arg := range os.Args[1:] {
		if arg == "--plain" || arg == "--json" {
			plain = true
			break
		}
	}

	// Also bypass fang when output is being piped
	if !plain && !term.IsTerminal(os.Stdout.Fd()) {
		plain = true
	}

	if plain {
		if err := rootCmd.Execute(); err != nil {
			os.Exit(1)
		}
	} else {
		if err := fang.Execute(
			context.Background(),
			rootCmd,
			fang.WithNotifySignal(os.Interrupt),
		); err != nil {
			os.Exit(1)
		}
	}
}
