package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"laila/internal/gateway"

	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP runtime (/invocations, /ping, /metrics)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close(context.Background())

		addr := a.Config.Gateway.Addr
		if serveAddr != "" {
			addr = serveAddr
		}

		srv := gateway.NewServer(a.Orchestrator)
		slog.Info("starting runtime", "addr", addr, "model", a.Orchestrator.Model())
		return srv.ListenAndServe(ctx, addr)
	},
}

func init() {
	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", "", "override listen address")
}
