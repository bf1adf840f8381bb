package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"ngrokdns/internal/config"
	"ngrokdns/internal/logging"
	"ngrokdns/internal/pipeline"
)

var errAborted = errors.New("startup aborted")

func newRunCmd(g *globalFlags) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the tunnel, sync DNS, announce the address and keep the tunnel up",
		RunE: func(cmd *cobra.Command, args []string) error {
			if written, err := config.WriteDefault(g.configFile); err != nil {
				log.Printf("WARNING: write default config: %v", err)
			} else if written {
				log.Printf("wrote default config to %s", g.configFile)
			}

			cfg, err := loadConfig(g)
			if err != nil {
				return err
			}
			logging.Setup(cfg.Log.File)
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}

			st, err := openStore(cfg)
			if err != nil {
				log.Printf("WARNING: store disabled: %v", err)
				st = nil
			}
			if st != nil {
				defer st.Close()
			}

			metricsSrv := serveMetrics(cfg.Metrics.Listen)
			if metricsSrv != nil {
				defer metricsSrv.Close()
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			b := pipeline.NewBuilder(cfg)
			if st != nil {
				b = b.WithStore(st)
			}
			p, err := b.Build()
			if err != nil {
				return err
			}

			res := p.Run(ctx)
			if res.State == pipeline.StateAborted {
				p.Shutdown(context.Background())
				return errAborted
			}

			select {
			case <-ctx.Done():
				log.Printf("shutting down")
			case <-p.Done():
				log.Printf("WARNING: ngrok exited; shutting down")
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			p.Shutdown(shutdownCtx)
			return nil
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "local server port (overrides SERVER.PORT)")
	return cmd
}
