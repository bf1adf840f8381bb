package main

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"ngrokdns/internal/config"
	"ngrokdns/internal/metrics"
	"ngrokdns/internal/store"
)

type globalFlags struct {
	configFile string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "ngrokdns",
		Short:         "Expose a local server through ngrok and keep Dynu DNS records pointed at it",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVarP(&g.configFile, "config", "c", config.DefaultFile, "config file")
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "verbose output")

	root.AddCommand(
		newRunCmd(g),
		newSyncCmd(g),
		newParseCmd(),
		newStatusCmd(g),
		newInitCmd(g),
	)
	return root
}

func loadConfig(g *globalFlags) (*config.Config, error) {
	cfg, err := config.Load(g.configFile)
	if err != nil {
		return nil, err
	}
	if g.verbose {
		log.Printf("using config file %s", g.configFile)
	}
	return cfg, nil
}

// openStore 在未启用持久化时返回 nil。
func openStore(cfg *config.Config) (*store.Store, error) {
	switch cfg.Store.Driver {
	case "", "none":
		return nil, nil
	case "sqlite":
		return store.OpenSQLite(cfg.Store.DSN)
	case "mysql":
		if cfg.Store.DSN == "" {
			return nil, errors.New("STORE.DSN required for mysql")
		}
		return store.Open(cfg.Store.DSN)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// serveMetrics 在配置了地址时启动 /metrics 监听。
func serveMetrics(addr string) *http.Server {
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("WARNING: metrics listener: %v", err)
		}
	}()
	log.Printf("metrics listening on %s", addr)
	return srv
}
