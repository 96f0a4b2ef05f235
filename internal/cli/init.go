package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pcdshub/pytmc/internal/buildinfo"
	"github.com/pcdshub/pytmc/internal/domain"
	"github.com/pcdshub/pytmc/internal/infra/fsworkspace"
	"github.com/pcdshub/pytmc/internal/usecase"
)

func initCmd() *cobra.Command {
	var path string
	var force bool
	var cfg domain.Config

	c := &cobra.Command{
		Use:   "init",
		Short: "Create a pytmc workspace (pytmc.yaml, db/, runs/)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			root := absPath(path)
			cfg.Masking.Enabled = true

			uc := usecase.NewInitWorkspace(fsworkspace.NewInitializer())
			created, err := uc.Execute(root, cfg, force)
			if err != nil {
				return err
			}
			for _, p := range created {
				fmt.Fprintf(cmd.OutOrStdout(), "  created %s\n", p)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized pytmc workspace in %s\n", root)
			return nil
		},
	}

	c.Flags().StringVar(&path, "path", ".", "Directory to initialize")
	c.Flags().BoolVar(&force, "force", false, "Overwrite an existing pytmc.yaml")
	c.Flags().StringVarP(&cfg.Prefix, "prefix", "p", "", "Default IOC prefix")
	c.Flags().StringVar(&cfg.Delim, "delim", "", "PV delimiter (default \":\")")
	c.Flags().StringVar(&cfg.Binary, "binary", "", "IOC binary name (default adsMotion)")
	c.Flags().IntVar(&cfg.AdsPort, "ads-port", 0, "PLC ADS port (default 851)")
	c.Flags().StringVar(&cfg.Paths.DBDir, "db-dir", "", "Directory for generated databases (default db)")
	c.Flags().StringVar(&cfg.Proto.Name, "proto", "", "StreamDevice protocol base name")
	c.Flags().StringVar(&cfg.Proto.File, "proto-file", "", "StreamDevice protocol file (default <proto>.proto)")
	return c
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), buildinfo.String())
		},
	}
}
