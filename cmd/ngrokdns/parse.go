package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ngrokdns/internal/endpoint"
)

func newParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <descriptor>",
		Short: "Print the host and port found in a tunnel descriptor",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ep, err := endpoint.Parse(strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "host: %s\nport: %d\n", ep.Host, ep.Port)
			return nil
		},
	}
}
