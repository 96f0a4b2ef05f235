package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pcdshub/pytmc/internal/infra/logger"
	"github.com/pcdshub/pytmc/internal/infra/tmcfile"
	"github.com/pcdshub/pytmc/internal/infra/workspacefinder"
	"github.com/pcdshub/pytmc/internal/ui/tui"
)

func debugCmd() *cobra.Command {
	var workspace string
	var protoName string
	var protoFile string

	c := &cobra.Command{
		Use:   "debug FILE",
		Short: "Browse the PV packages of a .tmc file interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := loadWorkspace(workspace)
			if err != nil {
				return err
			}
			debug, _ := cmd.Flags().GetBool("debug")

			deps := tui.Deps{
				Loader:           tmcfile.NewLoader(),
				WorkspaceLocator: workspacefinder.NewFinder(),
				Options:          ws.buildOptions(protoName, protoFile, false),
				Logger:           logger.L(),
				Debug:            debug,
			}
			err = tui.Run(deps, absPath(args[0]))
			if debug && logger.IsReady() == nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "log: %s\n", logger.Path())
			}
			return err
		},
	}

	c.Flags().StringVarP(&workspace, "workspace", "w", "", "Workspace root (optional; autodetected if omitted)")
	c.Flags().StringVar(&protoName, "proto", "", "StreamDevice protocol base name")
	c.Flags().StringVar(&protoFile, "proto-file", "", "StreamDevice protocol file name")
	return c
}
