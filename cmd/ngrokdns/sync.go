package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"ngrokdns/internal/logging"
	"ngrokdns/internal/pipeline"
)

func newSyncCmd(g *globalFlags) *cobra.Command {
	var descriptor string
	var notify bool
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Point the DNS records at a tunnel descriptor without starting ngrok",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logging.SetupCli(g.verbose)
			if descriptor == "" {
				return errors.New("--descriptor is required")
			}
			cfg, err := loadConfig(g)
			if err != nil {
				return err
			}
			cfg.Dynu.Enabled = true
			cfg.Discord.Enabled = cfg.Discord.Enabled && notify

			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			b := pipeline.NewBuilder(cfg).WithDescriptor(descriptor)
			if st != nil {
				defer st.Close()
				b = b.WithStore(st)
			}
			p, err := b.Build()
			if err != nil {
				return err
			}

			res := p.Run(cmd.Context())
			out := cmd.OutOrStdout()
			if res.State == pipeline.StateAborted {
				return res.Err
			}
			if !res.HasEndpoint() {
				return fmt.Errorf("no endpoint in descriptor")
			}
			fmt.Fprintf(out, "endpoint: %s\n", res.Endpoint)
			if res.Sync != nil {
				fmt.Fprintf(out, "zone: %s\naddress updated: %t\nservice updated: %t\n", res.Sync.ZoneName, res.Sync.AddressUpdated, res.Sync.ServiceUpdated)
				if err := res.Sync.Err(); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&descriptor, "descriptor", "d", "", "tunnel descriptor text containing tcp://host:port")
	cmd.Flags().BoolVar(&notify, "notify", false, "also send the update message when DISCORD_UPDATES.ENABLED")
	return cmd
}
