package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newRootCmd creates the root command with all subcommands attached.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "carrier-sales",
		Short:         "Inbound carrier sales API",
		Long:          "carrier-sales serves the inbound carrier sales API: carrier verification,\nload search, rate negotiation and the call dashboard.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetVersionTemplate("carrier-sales {{.Version}}\n")

	cmd.AddCommand(
		newServeCmd(),
		newLoadsCmd(),
		newNegotiateCmd(),
		newVersionCmd(),
	)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "carrier-sales %s\n", version)
		},
	}
}
