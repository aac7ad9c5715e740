package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"corossync/internal/components/telemetry"
	"corossync/internal/credential"
	"corossync/internal/syncrun"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var fetchOpts syncrun.FetchOptions

func init() {
	fetchCmd.Flags().IntVar(&fetchOpts.Pages, "pages", 0, "Maximum number of pages to fetch (default from config, 3).")
	fetchCmd.Flags().StringVar(&fetchOpts.OutputPath, "output", "", "Where to write the activities document (default from config).")
	fetchCmd.Flags().StringVar(&fetchOpts.Token, "token", "", "Use this credential instead of the stored one.")
	fetchCmd.Flags().StringVar(&fetchOpts.CredentialPath, "credential", "", "Credential file to read (default from config).")
	rootCmd.AddCommand(fetchCmd)
}

var fetchCmd = &cobra.Command{
	Use:   "fetch [--pages N] [--output PATH] [--token TOKEN] [--credential PATH]",
	Short: "Fetches recent activities and replaces the output document.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		runner, err := newRunner()
		if err != nil {
			return err
		}

		tracing, err := telemetry.SetupTracing(cmd.Context(), "corossync", runner.Config().Otlp)
		if err != nil {
			slog.Warn("tracing disabled", "err", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			tracing.Shutdown(ctx)
		}()

		report, err := runner.Fetch(cmd.Context(), fetchOpts)
		printReport(cmd.OutOrStdout(), report)
		return err
	},
}

func printReport(out io.Writer, report syncrun.Report) {
	t := newTable(out)
	t.AppendRow(table.Row{"Credential", credentialSummary(report.Credential)})
	t.AppendRow(table.Row{"Pages fetched", report.Result.PagesFetched})
	t.AppendRow(table.Row{"Activities", len(report.Result.Records)})
	if report.Result.StoppedReason != "" {
		t.AppendRow(table.Row{"Stopped", report.Result.StoppedReason})
	}
	if report.Written {
		t.AppendRow(table.Row{"Written to", report.OutputPath})
	} else {
		t.AppendRow(table.Row{"Written to", fmt.Sprintf("nothing, %s left untouched", report.OutputPath)})
	}
	t.AppendRow(table.Row{"Duration", report.Run.Duration().Round(time.Millisecond)})
	t.Render()
}

func credentialSummary(cred credential.Credential) string {
	if cred.Scheme == "" {
		return "-"
	}
	if cred.PrimaryToken == "" {
		return string(cred.Scheme)
	}
	return fmt.Sprintf("%s (%s)", cred.Scheme, credential.Mask(cred.PrimaryToken))
}
