// Command tracectl edits trace tables from the shell: it appends
// interpolated rows, converts between text and workbook formats and prints
// summary statistics, using the same engine as the fmtrace server.
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	apierrors "github.com/xalekter/charts-edit/internal/errors"
	"github.com/xalekter/charts-edit/internal/infrastructure"
	"github.com/xalekter/charts-edit/pkg/contracts"
)

type rootOptions struct {
	logLevel string
	logger   *slog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "tracectl",
		Short:         "Batch editing of FM-Trace tables",
		Version:       contracts.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			opts.logger = infrastructure.NewLogger(cmd.ErrOrStderr(), opts.logLevel)
		},
	}
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	cmd.AddCommand(newAddCmd(opts), newConvertCmd(opts), newStatsCmd(opts))
	return cmd
}

func main() {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		cmd.PrintErrln("Error:", err)
		os.Exit(apierrors.ExitCode(err))
	}
}
