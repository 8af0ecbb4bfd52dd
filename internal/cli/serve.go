package cli

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/soyeahso/collig/internal/gateway"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var (
		addr    string
		origins []string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the assistant over HTTP (POST /api/chat, GET /ws)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			a.WatchConfig(ctx)

			srv := gateway.New(a.Agent, log,
				gateway.WithHooks(a.Hooks),
				gateway.WithAllowedOrigins(origins),
			)
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("failed to listen on %s: %w", addr, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Collig API listening on http://%s\n", ln.Addr())
			return srv.Serve(ctx, ln)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", gateway.DefaultAddr, "listen address")
	cmd.Flags().StringSliceVar(&origins, "allow-origin", nil, `browser origins allowed for CORS and /ws ("*" for any)`)
	return cmd
}
