package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ngrokdns/internal/config"
)

func newInitCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write the default config file if it does not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			written, err := config.WriteDefault(g.configFile)
			if err != nil {
				return err
			}
			if written {
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", g.configFile)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s already exists\n", g.configFile)
			}
			return nil
		},
	}
}
