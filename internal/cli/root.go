// Package cli implements the deltawatch command line.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"deltawatch/internal/observability/logging"
)

// Set at build time with -ldflags "-X deltawatch/internal/cli.version=...".
var version = "dev"

// Execute runs the root command and exits with status 1 on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

type rootOptions struct {
	debug bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "deltawatch",
		Short:         "Detect new items on watched pages and notify about them",
		SilenceUsage:  true,
	}
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "log at debug level")

	cmd.AddCommand(
		runCmd(opts),
		checkCmd(opts),
		repoCmd(opts),
		storeCmd(opts),
		versionCmd(),
	)
	return cmd
}

// logger writes text logs to the command's stderr so stdout carries only
// command output.
func (o *rootOptions) logger(cmd *cobra.Command) *slog.Logger {
	level := logging.Level()
	if o.debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "deltawatch "+version)
		},
	}
}
