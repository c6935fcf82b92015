package cmd

import (
	"fmt"

	"github.com/nxadm/tail"
	"github.com/spf13/cobra"

	"framescope/internal/analysis"
	"framescope/internal/logging"
)

var watchCmd = &cobra.Command{
	Use:   "watch [file]",
	Short: "Follow a file and re-analyze it as it grows",
	Long: `Follow an assembly source file and run one full analysis pass for every
appended line. Passes are synchronous: a new pass starts only after the
previous one completed, so there is never more than one in flight.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWatch(args[0])
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(path string) error {
	logger := logging.New("watch")
	defer logger.Close()

	t, err := tail.TailFile(path, tail.Config{
		Follow: true,
		ReOpen: true,
		Logger: tail.DiscardingLogger,
	})
	if err != nil {
		return fmt.Errorf("failed to follow %s: %w", path, err)
	}

	cfg := buildConfig()
	var buffer []string
	lastFindings, lastHints := -1, -1

	for line := range t.Lines {
		if line.Err != nil {
			logger.Warn("read error while following", "file", path, "error", line.Err)
			continue
		}
		buffer = append(buffer, line.Text)

		res := analysis.Analyze(buffer, cfg)
		findings, hints := 0, 0
		for _, fn := range res.Functions {
			findings += len(fn.Errors)
			hints += len(fn.Hints)
		}
		if findings != lastFindings || hints != lastHints {
			logger.Info("analysis pass",
				"lines", len(buffer),
				"functions", len(res.Functions),
				"findings", findings,
				"hints", hints)
			lastFindings, lastHints = findings, hints

			// Per-function breakdown is only assembled when someone will
			// see it.
			if logging.IsDebug() {
				for _, fn := range res.FunctionsInOrder() {
					logger.Debug("function state",
						"name", fn.Name,
						"stack", fn.StackSize,
						"findings", len(fn.Errors),
						"hints", len(fn.Hints))
				}
			}
		}
	}
	return t.Err()
}
