package commands

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	var confPath string

	rootCmd := &cobra.Command{
		Use:           "pulse",
		Short:         "Embedded observability engine: metrics, health probes and alerts",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&confPath, "conf", "c", "", "config file, e.g. ./config.yaml")

	rootCmd.AddCommand(
		NewServeCommand(&confPath),
		NewCheckCommand(&confPath),
		NewVersionCommand(),
	)

	return rootCmd
}
