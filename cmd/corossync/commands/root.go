package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"corossync/internal/components/chrono"
	"corossync/internal/components/telemetry"
	"corossync/internal/failure"
	"corossync/internal/syncrun"

	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file, defaults to the nearest "+syncrun.DefaultConfigName+".")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr.")
}

var rootCmd = &cobra.Command{
	Use:           "corossync",
	Short:         "corossync pulls your COROS activity history into a local JSON document.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		})))
	},
}

func ExecuteContext(ctx context.Context) {
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the command line in args and returns the exit status, 1 for
// any failure with the error and its hint written to stderr.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		printError(stderr, err)
		return 1
	}
	return 0
}

// newRunner loads the config and creates a runner logging through slog.
func newRunner() (syncrun.Runner, error) {
	config, err := syncrun.LoadConfig(configPath)
	if err != nil {
		return syncrun.Runner{}, fmt.Errorf("load config: %w", err)
	}
	return syncrun.NewRunner(
		config,
		telemetry.NewSlogAPI(slog.Default()),
		chrono.NewStandardImpl(),
	), nil
}

// printError writes err and, for known failure kinds, what to do about it.
func printError(out io.Writer, err error) {
	if errors.Is(err, context.Canceled) {
		fmt.Fprintln(out, "cancelled")
		return
	}

	ferr, ok := failure.As(err)
	if !ok {
		fmt.Fprintln(out, err.Error())
		return
	}
	fmt.Fprintf(out, "%s: %s\n", ferr.Kind, err.Error())
	fmt.Fprintf(out, "hint: %s\n", ferr.Remediation())
	if ferr.Kind.Retryable() {
		fmt.Fprintln(out, "this failure is transient, the run can be retried as is.")
	}
}
