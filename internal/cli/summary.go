package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pcdshub/pytmc/internal/infra/tmcfile"
	"github.com/pcdshub/pytmc/internal/usecase"
	"github.com/pcdshub/pytmc/internal/usecase/summary"
)

func summaryCmd() *cobra.Command {
	var workspace string
	var all bool
	var format string
	var sel string

	c := &cobra.Command{
		Use:   "summary FILE",
		Short: "Summarise the symbols, data types and PVs of a .tmc file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := loadWorkspace(workspace)
			if err != nil {
				return err
			}

			rs, err := usecase.NewBuildRecords(tmcfile.NewLoader()).Execute(cmd.Context(), args[0], ws.buildOptions("", "", false))
			if err != nil {
				return err
			}
			s := summary.Build(rs.Tmc, rs.Packages, all)

			if sel == "" {
				return summary.Write(cmd.OutOrStdout(), s, format)
			}

			v, err := summary.Select(s, sel)
			if err != nil {
				return err
			}
			if format == "pretty" || format == "" {
				str, err := summary.ToString(v)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), str)
				return nil
			}
			return summary.Write(cmd.OutOrStdout(), v, format)
		},
	}

	c.Flags().StringVarP(&workspace, "workspace", "w", "", "Workspace root (optional; autodetected if omitted)")
	c.Flags().BoolVarP(&all, "all", "a", false, "Include symbols and data types without pragmas")
	c.Flags().StringVar(&format, "format", "pretty", "Output format: pretty|json|yaml")
	c.Flags().StringVar(&sel, "select", "", "JSONPath expression applied to the summary (e.g. $.pvs[*].pv)")
	return c
}
