package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/pcdshub/pytmc/internal/infra/artifactstore"
	"github.com/pcdshub/pytmc/internal/infra/tmcfile"
	"github.com/pcdshub/pytmc/internal/usecase"
	"github.com/pcdshub/pytmc/internal/usecase/stcmd"
)

func stcmdCmd() *cobra.Command {
	var workspace string
	var opts usecase.StcmdOptions
	var protoName string
	var protoFile string
	var extras []string
	var extraJSON []string

	c := &cobra.Command{
		Use:   "stcmd FILE",
		Short: "Generate an IOC st.cmd from a .tmc file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := loadWorkspace(workspace)
			if err != nil {
				return err
			}

			opts.Build = ws.buildOptions(protoName, protoFile, false)
			if opts.Prefix == "" {
				opts.Prefix = ws.cfg.Prefix
			}
			if !cmd.Flags().Changed("binary") && ws.cfg.Binary != "" {
				opts.Binary = ws.cfg.Binary
			}
			if !cmd.Flags().Changed("delim") && ws.cfg.Delim != "" {
				opts.Delim = ws.cfg.Delim
			}
			if !cmd.Flags().Changed("ads-port") && ws.cfg.AdsPort != 0 {
				opts.AdsPort = ws.cfg.AdsPort
			}
			if opts.DBPath == "" {
				opts.DBPath = ws.path(ws.cfg.Paths.DBDir)
			}
			opts.DBPath = absPath(opts.DBPath)
			if opts.TemplateDir == "" {
				opts.TemplateDir = ws.path(ws.cfg.Paths.TemplateDir)
			}

			opts.Extras, err = stcmd.MergeExtras(extraJSON, extras)
			if err != nil {
				return err
			}

			store := artifactstore.New(ws.root, ws.cfg)
			res, err := usecase.NewGenerateStcmd(tmcfile.NewLoader(), store).Execute(cmd.Context(), args[0], opts)
			if err != nil {
				if debug, _ := cmd.Flags().GetBool("debug"); debug {
					printTemplateArgs(cmd.ErrOrStderr(), res.Args, opts.Extras)
				}
				return err
			}

			fmt.Fprint(cmd.OutOrStdout(), res.Script)
			return nil
		},
	}

	c.Flags().StringVarP(&workspace, "workspace", "w", "", "Workspace root (optional; autodetected if omitted)")
	c.Flags().StringVarP(&opts.Name, "name", "n", "", "IOC name (defaults to the .tmc file name)")
	c.Flags().StringVarP(&opts.Prefix, "prefix", "p", "", "PV prefix for the IOC (defaults to the upper-case name)")
	c.Flags().StringVar(&opts.Binary, "binary", "adsMotion", "IOC application binary name")
	c.Flags().StringVar(&opts.Delim, "delim", ":", "Preferred PV delimiter")
	c.Flags().StringVar(&opts.DBPath, "db-path", "", "Directory for generated db files")
	c.Flags().StringVar(&opts.Template, "template", stcmd.DefaultTemplate, "st.cmd template name")
	c.Flags().StringVar(&opts.TemplateDir, "template-path", "", "Directory holding custom templates")
	c.Flags().StringArrayVar(&extras, "extra", nil, "Extra template argument: VAR=VALUE (repeat for a list) or VAR:=VALUE (scalar)")
	c.Flags().StringArrayVar(&extraJSON, "extra-json", nil, "Extra template arguments from a JSON file or inline JSON object")
	c.Flags().StringVar(&opts.AmsID, "ams-id", "", "PLC AMS Net ID")
	c.Flags().StringVar(&opts.IP, "ip", "", "PLC IP address")
	c.Flags().IntVar(&opts.AdsPort, "ads-port", 851, "PLC ADS port")
	c.Flags().BoolVar(&opts.NoDB, "no-db", false, "Do not generate a database from pragmas")
	c.Flags().StringVar(&protoName, "proto", "", "StreamDevice protocol base name")
	c.Flags().StringVar(&protoFile, "proto-file", "", "StreamDevice protocol file name")
	return c
}

func printTemplateArgs(w io.Writer, args stcmd.Args, extras map[string]any) {
	m := args.Map()
	for k, v := range extras {
		m[k] = v
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintln(w, "Template arguments:")
	for _, k := range keys {
		switch k {
		case "symbols":
			fmt.Fprintf(w, "  %s: %d type(s)\n", k, len(args.Symbols))
		case "records":
			fmt.Fprintf(w, "  %s: %d record(s)\n", k, len(args.Records))
		default:
			fmt.Fprintf(w, "  %s: %v\n", k, m[k])
		}
	}
}
