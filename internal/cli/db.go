package cli

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pcdshub/pytmc/internal/app/template"
	"github.com/pcdshub/pytmc/internal/domain"
	"github.com/pcdshub/pytmc/internal/infra/artifactstore"
	"github.com/pcdshub/pytmc/internal/infra/tmcfile"
	"github.com/pcdshub/pytmc/internal/usecase"
)

func dbCmd() *cobra.Command {
	var workspace string
	var out string
	var protoName string
	var protoFile string
	var macros []string
	var allowIncomplete bool
	var noGuess bool

	c := &cobra.Command{
		Use:   "db FILE",
		Short: "Generate an EPICS database (and protocol file) from a .tmc file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := loadWorkspace(workspace)
			if err != nil {
				return err
			}
			opts := ws.buildOptions(protoName, protoFile, noGuess)

			rs, err := usecase.NewBuildRecords(tmcfile.NewLoader()).Execute(cmd.Context(), args[0], opts)
			if err != nil {
				return err
			}

			if len(rs.Incomplete) > 0 {
				printIncomplete(cmd.ErrOrStderr(), rs)
				if !allowIncomplete {
					return &domain.OpError{
						Op:   "cli.db",
						Kind: domain.KindIncompleteConfig,
						Path: args[0],
						Err:  fmt.Errorf("%d PV(s) incomplete (use --allow-incomplete to skip them): %w", len(rs.Incomplete), domain.ErrIncompleteConfig),
					}
				}
			}

			text := rs.DB()
			if len(macros) > 0 {
				m, err := template.ParseMacros(macros)
				if err != nil {
					return err
				}
				if text, err = template.ExpandMacros(text, m, false); err != nil {
					return err
				}
			}

			if out == "" {
				fmt.Fprintln(cmd.OutOrStdout(), text)
				return nil
			}

			store := artifactstore.New(ws.root, ws.cfg)
			dbPath, err := store.WriteFile(absPath(out), []byte(text+"\n"))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d record(s) to %s\n", len(rs.Records), dbPath)

			if len(rs.Protos) > 0 && opts.ProtoFile != "" {
				protoPath := filepath.Join(filepath.Dir(dbPath), filepath.Base(opts.ProtoFile))
				if _, err := store.WriteFile(protoPath, []byte(rs.ProtoText()+"\n")); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d protocol(s) to %s\n", len(rs.Protos), protoPath)
			}
			return nil
		},
	}

	c.Flags().StringVarP(&workspace, "workspace", "w", "", "Workspace root (optional; autodetected if omitted)")
	c.Flags().StringVarP(&out, "output", "o", "", "Write the database here instead of stdout")
	c.Flags().StringVar(&protoName, "proto", "", "StreamDevice protocol base name")
	c.Flags().StringVar(&protoFile, "proto-file", "", "StreamDevice protocol file name")
	c.Flags().StringArrayVar(&macros, "macro", nil, "Expand $(NAME) as NAME=VALUE (repeatable)")
	c.Flags().BoolVar(&allowIncomplete, "allow-incomplete", false, "Skip incomplete PVs instead of failing")
	c.Flags().BoolVar(&noGuess, "no-guess", false, "Use pragmas exactly as written")
	return c
}

func printIncomplete(w io.Writer, rs usecase.RecordSet) {
	for _, p := range rs.Incomplete {
		fmt.Fprintf(w, "incomplete: %s (%s)\n", p.PVComplete, p.TcPath())
		for _, r := range p.MissingLines() {
			fmt.Fprintf(w, "  missing %s\n", r)
		}
	}
}
