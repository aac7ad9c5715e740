package commands

import (
	"io"
	"time"

	"corossync/internal/history"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var historyLimit int

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Number of runs to show, 0 shows every run.")
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history [--limit N]",
	Short: "Lists past fetch runs, most recent first.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		runner, err := newRunner()
		if err != nil {
			return err
		}
		runs, err := runner.History(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}
		printHistory(cmd.OutOrStdout(), runs)
		return nil
	},
}

func printHistory(out io.Writer, runs []history.Run) {
	t := newTable(out)
	t.AppendHeader(table.Row{"Started", "Duration", "Scheme", "Pages", "Activities", "Stopped", "Failure", "Written"})
	for _, run := range runs {
		failure := run.FailureKind
		if failure == "" {
			failure = "-"
		}
		t.AppendRow(table.Row{
			run.StartedAt.Local().Format(time.DateTime),
			run.Duration().Round(time.Millisecond),
			run.Scheme,
			run.PagesFetched,
			run.Records,
			run.StoppedReason,
			failure,
			run.Written,
		})
	}
	t.Render()
}
