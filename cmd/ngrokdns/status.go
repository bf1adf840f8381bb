package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"ngrokdns/internal/logging"
	"ngrokdns/internal/store"
)

func newStatusCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the outcome of the last pass",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logging.SetupCli(g.verbose)
			cfg, err := loadConfig(g)
			if err != nil {
				return err
			}
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			if st == nil {
				return errors.New("store disabled (STORE.DRIVER=none)")
			}
			defer st.Close()

			s, err := st.GetStatus(cmd.Context(), store.DefaultStatusID)
			if errors.Is(err, store.ErrNotFound) {
				fmt.Fprintln(cmd.OutOrStdout(), "no pass recorded yet")
				return nil
			}
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "state: %s\n", s.State)
			fmt.Fprintf(out, "address: %s\n", s.Address)
			fmt.Fprintf(out, "zone: %s\n", s.Zone)
			fmt.Fprintf(out, "address updated: %t\nservice updated: %t\nnotified: %t\n", s.AddressUpdated, s.ServiceUpdated, s.Notified)
			for _, w := range s.Warnings {
				fmt.Fprintf(out, "warning: %s\n", w)
			}
			if s.LastError != "" {
				fmt.Fprintf(out, "error: %s\n", s.LastError)
			}
			fmt.Fprintf(out, "updated at: %s\n", s.UpdatedAt.Format(time.RFC3339))
			return nil
		},
	}
}
