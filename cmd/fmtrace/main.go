// Command fmtrace serves the trace editor HTTP API, the rendered charts and
// the websocket change feed.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/xalekter/charts-edit/internal/app"
	"github.com/xalekter/charts-edit/internal/config"
	apierrors "github.com/xalekter/charts-edit/internal/errors"
	"github.com/xalekter/charts-edit/internal/infrastructure"
	"github.com/xalekter/charts-edit/pkg/contracts"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "fmtrace",
	Short:         "Serve the FM-Trace editor",
	Long:          `fmtrace loads comma or tab separated trace tables, lets browsers edit them per session and exports the result.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServer,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), contracts.GetFullVersionString())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file (default: $FMTRACE_CONFIG or fmtrace.yaml)")
	rootCmd.AddCommand(versionCmd)
}

func runServer(cmd *cobra.Command, args []string) error {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return apierrors.NewConfigError("failed to load configuration", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return apierrors.NewConfigError("failed to initialize logger", err)
	}
	defer infrastructure.CloseLogFile()

	application, err := app.NewApplication(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return application.Run(ctx)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("fmtrace failed", slog.String("error", err.Error()))
		os.Exit(apierrors.ExitCode(err))
	}
}
