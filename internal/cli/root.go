package cli

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pcdshub/pytmc/internal/ctxlog"
	"github.com/pcdshub/pytmc/internal/infra/logger"
	"github.com/pcdshub/pytmc/internal/infra/workspacefinder"
)

func Execute() {
	if err := run(newRootCmd()); err != nil {
		os.Exit(1)
	}
}

// run executes cmd and closes the log file whether or not it failed.
func run(cmd *cobra.Command) error {
	err := cmd.Execute()
	if cerr := logger.Close(); err == nil {
		err = cerr
	}
	return err
}

func newRootCmd() *cobra.Command {
	var debug, verbose bool

	cmd := &cobra.Command{
		Use:          "pytmc",
		Short:        "Generate EPICS records and IOC scripts from TwinCAT3 .tmc files",
		SilenceUsage: true,
		PersistentPreRunE: func(c *cobra.Command, _ []string) error {
			wd, err := os.Getwd()
			if err != nil {
				wd = "."
			}
			wd, _ = filepath.Abs(wd)

			logRoot := wd
			if root, ferr := workspacefinder.NewFinder().FindRoot(wd); ferr == nil && root != "" {
				logRoot = root
			}

			// A logger that cannot be set up falls back to discard.
			cfg := logger.Config{Root: logRoot, Debug: debug, ConsoleLevel: slog.LevelWarn}
			if verbose {
				cfg.Console = c.ErrOrStderr()
				cfg.ConsoleLevel = slog.LevelInfo
				if debug {
					cfg.ConsoleLevel = slog.LevelDebug
				}
			}
			_, _ = logger.Setup(cfg)

			ctx := c.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			c.SetContext(ctxlog.WithLogger(ctx, logger.L()))
			logger.L().Debug("command.start", "command", c.CommandPath())
			return nil
		},
	}

	cmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging to .pytmc/logs/pytmc.log")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "mirror log records to stderr")

	cmd.AddCommand(
		dbCmd(),
		stcmdCmd(),
		summaryCmd(),
		validateCmd(),
		debugCmd(),
		ciCmd(),
		initCmd(),
		versionCmd(),
	)
	return cmd
}
