package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pcdshub/pytmc/internal/infra/tmcfile"
	"github.com/pcdshub/pytmc/internal/usecase"
)

func validateCmd() *cobra.Command {
	var workspace string
	var protoName string
	var protoFile string

	c := &cobra.Command{
		Use:   "validate FILE",
		Short: "Check that every pragma in a .tmc file yields a complete record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := loadWorkspace(workspace)
			if err != nil {
				return err
			}

			uc := usecase.NewValidateTmc(tmcfile.NewLoader())
			problems, err := uc.Execute(cmd.Context(), args[0], ws.buildOptions(protoName, protoFile, false))
			for _, p := range problems {
				fmt.Fprintln(cmd.ErrOrStderr(), p.String())
			}
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "OK")
			return nil
		},
	}

	c.Flags().StringVarP(&workspace, "workspace", "w", "", "Workspace root (optional; autodetected if omitted)")
	c.Flags().StringVar(&protoName, "proto", "", "StreamDevice protocol base name")
	c.Flags().StringVar(&protoFile, "proto-file", "", "StreamDevice protocol file name")
	return c
}
